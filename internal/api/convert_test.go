package api

import (
	"errors"
	"testing"

	"google.golang.org/protobuf/types/known/structpb"
)

func TestRunOptionsFromStruct(t *testing.T) {
	opts, err := RunOptionsFromStruct(nil)
	if err != nil || opts.Events != 0 || opts.Seed != 0 {
		t.Fatalf("nil request should select defaults: %+v %v", opts, err)
	}

	req, _ := structpb.NewStruct(map[string]any{"seed": -4, "nodes": 10, "edges": 12, "events": 80})
	opts, err = RunOptionsFromStruct(req)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if opts.Seed != -4 || opts.Nodes != 10 || opts.EdgeDraws != 12 || opts.Events != 80 {
		t.Fatalf("unexpected options %+v", opts)
	}

	for _, bad := range []map[string]any{
		{"events": -1},
		{"events": "ten"},
		{"nodes": 1.5},
		{"tools": "Datadog"},
	} {
		req, _ := structpb.NewStruct(bad)
		if _, err := RunOptionsFromStruct(req); !errors.Is(err, ErrBadRequest) {
			t.Fatalf("%v: expected ErrBadRequest, got %v", bad, err)
		}
	}
}

func TestRecordsFromStruct(t *testing.T) {
	req, _ := structpb.NewStruct(map[string]any{
		"records": []any{
			map[string]any{"source_node": "auth-db", "severity": 5, "timestamp": "2024-03-01T10:00:00Z", "tool": "Prometheus"},
		},
	})
	records, err := RecordsFromStruct(req)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if len(records) != 1 || records[0].SourceNode != "auth-db" || records[0].Severity != 5 {
		t.Fatalf("unexpected records %+v", records)
	}

	bad, _ := structpb.NewStruct(map[string]any{"records": "nope"})
	if _, err := RecordsFromStruct(bad); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest, got %v", err)
	}
}

func TestToStructRejectsNonObjects(t *testing.T) {
	if _, err := ToStruct([]int{1, 2}); err == nil {
		t.Fatalf("expected error for array payload")
	}
}
