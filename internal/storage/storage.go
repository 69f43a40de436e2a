package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const gcsScheme = "gs://"

// Sink stores finished export files.
type Sink interface {
	// Write stores data under name and returns where it ended up.
	Write(ctx context.Context, name string, data []byte) (string, error)
	Close() error
}

// Open returns a GCS sink for "gs://bucket[/prefix]" targets and a local
// directory sink for anything else.
func Open(ctx context.Context, target string, logger *slog.Logger) (Sink, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if IsGCS(target) {
		bucket, prefix, err := ParseGCS(target)
		if err != nil {
			return nil, err
		}
		return NewGCSSink(ctx, bucket, prefix, logger)
	}
	return NewLocalSink(target, logger), nil
}

func IsGCS(target string) bool {
	return strings.HasPrefix(target, gcsScheme)
}

// ParseGCS splits "gs://bucket/a/b" into ("bucket", "a/b").
func ParseGCS(target string) (bucket, prefix string, err error) {
	rest := strings.TrimPrefix(target, gcsScheme)
	bucket, prefix, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("invalid gcs target %q: missing bucket", target)
	}
	return bucket, strings.Trim(prefix, "/"), nil
}

// SplitTarget separates an output file path into the sink root and the file
// name, e.g. "gs://b/out/x.xlsx" -> ("gs://b/out", "x.xlsx").
func SplitTarget(target string) (root, name string, err error) {
	if IsGCS(target) {
		bucket, object, err := ParseGCS(target)
		if err != nil {
			return "", "", err
		}
		if object == "" {
			return "", "", fmt.Errorf("invalid gcs target %q: missing object name", target)
		}
		dir, file := path.Split(object)
		return gcsScheme + path.Join(bucket, dir), file, nil
	}
	if target == "" || strings.HasSuffix(target, string(filepath.Separator)) {
		return "", "", errors.New("output path must name a file")
	}
	return filepath.Dir(target), filepath.Base(target), nil
}

// LocalSink writes files under a directory on the local filesystem.
type LocalSink struct {
	root   string
	logger *slog.Logger
}

func NewLocalSink(root string, logger *slog.Logger) *LocalSink {
	if logger == nil {
		logger = slog.Default()
	}
	if root == "" {
		root = "."
	}
	return &LocalSink{root: root, logger: logger}
}

func (s *LocalSink) Write(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid export name %q", name)
	}
	dst := filepath.Join(s.root, clean)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return "", fmt.Errorf("write export file: %w", err)
	}
	s.logger.Info("storage.local.write.ok", "path", dst, "bytes", len(data))
	return dst, nil
}

func (s *LocalSink) Close() error { return nil }
