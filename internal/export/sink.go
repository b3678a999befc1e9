package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Sink stores an exported artifact and reports where it landed.
type Sink interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// DirSink writes artifacts below a local directory.
type DirSink struct {
	Root string
}

// NewDirSink creates the root directory if needed.
func NewDirSink(root string) (*DirSink, error) {
	if root == "" {
		root = "."
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}
	return &DirSink{Root: root}, nil
}

// Put writes data to Root/key, creating intermediate directories.
func (s *DirSink) Put(ctx context.Context, key string, data []byte, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := filepath.Join(s.Root, filepath.FromSlash(key))
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// MultiSink writes every artifact to each sink in order.
type MultiSink []Sink

// Put returns the location reported by the first sink. All sinks are
// attempted; their errors are joined.
func (m MultiSink) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	var (
		first string
		errs  []error
	)
	for i, sink := range m {
		loc, err := sink.Put(ctx, key, data, contentType)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if i == 0 || first == "" {
			first = loc
		}
	}
	return first, errors.Join(errs...)
}
