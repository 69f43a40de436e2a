package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"

	"github.com/joseph-ayodele/kk-extractor/constants"
)

// GCSSink writes objects under an optional prefix in one bucket. Objects are
// never overwritten; writing an existing name is a no-op.
type GCSSink struct {
	client *storage.Client
	bucket *storage.BucketHandle
	name   string
	prefix string
	logger *slog.Logger
}

func NewGCSSink(ctx context.Context, bucket, prefix string, logger *slog.Logger) (*GCSSink, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCSSink{
		client: client,
		bucket: client.Bucket(bucket),
		name:   bucket,
		prefix: prefix,
		logger: logger,
	}, nil
}

func (s *GCSSink) Write(ctx context.Context, name string, data []byte) (string, error) {
	object := path.Join(s.prefix, name)
	uri := gcsScheme + s.name + "/" + object

	w := s.bucket.Object(object).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = constants.MIMETypeXLSX

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		if isPreconditionFailed(err) {
			s.logger.Info("storage.gcs.write.exists", "uri", uri)
			return uri, nil
		}
		return "", fmt.Errorf("failed to finalize GCS write: %w", err)
	}
	s.logger.Info("storage.gcs.write.ok", "uri", uri, "bytes", len(data))
	return uri, nil
}

func (s *GCSSink) Close() error {
	return s.client.Close()
}

func isPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}
