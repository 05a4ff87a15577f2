package load

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"

	"github.com/insightx/insightx/internal/domain"
)

// FromGCS downloads a CSV dataset export from a GCS bucket and decodes it.
func (l *CSVLoader) FromGCS(ctx context.Context, bucketName, objectName string) ([]domain.Transaction, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	defer client.Close()

	obj := client.Bucket(bucketName).Object(objectName)
	r, err := obj.NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open GCS object reader: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read GCS object: %w", err)
	}

	l.log.Info().
		Str("bucket", bucketName).
		Str("object", objectName).
		Int("bytes", len(data)).
		Msg("downloaded dataset from GCS")

	return l.FromReader(bytes.NewReader(data))
}
