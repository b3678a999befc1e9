package api

import (
	"encoding/json"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/mirador-aiops/internal/engine"
	"github.com/miradorstack/mirador-aiops/internal/models"
)

// ToStruct converts a JSON-tagged domain value into a protobuf Struct.
func ToStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("payload is not an object: %w", err)
	}
	return structpb.NewStruct(fields)
}

// FromStruct decodes a protobuf Struct into a JSON-tagged domain value.
func FromStruct(s *structpb.Struct, dst any) error {
	if s == nil {
		return fmt.Errorf("payload is nil: %w", ErrBadRequest)
	}
	raw, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode struct: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode struct: %v: %w", err, ErrBadRequest)
	}
	return nil
}

// RunOptionsFromStruct reads {seed, nodes, edges, events, tools} from a request.
// A nil request selects every default.
func RunOptionsFromStruct(s *structpb.Struct) (engine.RunOptions, error) {
	if s == nil {
		return engine.RunOptions{}, nil
	}
	fields := s.GetFields()
	var opts engine.RunOptions
	var err error
	if opts.Seed, err = wholeNumber(fields, "seed", true); err != nil {
		return engine.RunOptions{}, err
	}
	n, err := wholeNumber(fields, "nodes", false)
	if err != nil {
		return engine.RunOptions{}, err
	}
	opts.Nodes = int(n)
	if n, err = wholeNumber(fields, "edges", false); err != nil {
		return engine.RunOptions{}, err
	}
	opts.EdgeDraws = int(n)
	if n, err = wholeNumber(fields, "events", false); err != nil {
		return engine.RunOptions{}, err
	}
	opts.Events = int(n)
	if v, ok := fields["tools"]; ok {
		list := v.GetListValue()
		if list == nil {
			return engine.RunOptions{}, fmt.Errorf("tools must be a list: %w", ErrBadRequest)
		}
		for _, item := range list.GetValues() {
			opts.Tools = append(opts.Tools, item.GetStringValue())
		}
	}
	return opts, nil
}

// RecordsFromStruct reads {records: [...]} from a detect request.
func RecordsFromStruct(s *structpb.Struct) ([]models.EventRecord, error) {
	var request struct {
		Records []models.EventRecord `json:"records"`
	}
	if err := FromStruct(s, &request); err != nil {
		return nil, err
	}
	return request.Records, nil
}

func wholeNumber(fields map[string]*structpb.Value, name string, signed bool) (int64, error) {
	v, ok := fields[name]
	if !ok {
		return 0, nil
	}
	num, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("%s must be a number: %w", name, ErrBadRequest)
	}
	f := num.NumberValue
	if f != math.Trunc(f) || (!signed && f < 0) || math.Abs(f) > math.MaxInt64/2 {
		return 0, fmt.Errorf("%s must be a whole number: %w", name, ErrBadRequest)
	}
	return int64(f), nil
}
