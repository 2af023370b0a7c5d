package recording

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSLocator lists recordings from a Cloud Storage bucket.
type GCSLocator struct {
	bucket string
	list   func(ctx context.Context, prefix string) ([]Recording, error)
	close  func() error
}

// NewGCSLocator honours STORAGE_EMULATOR_HOST through the storage client.
func NewGCSLocator(ctx context.Context, bucket string, opts ...option.ClientOption) (*GCSLocator, error) {
	if bucket == "" {
		return nil, fmt.Errorf("recording bucket not configured")
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage client: %w", err)
	}
	l := &GCSLocator{bucket: bucket, close: client.Close}
	l.list = func(ctx context.Context, prefix string) ([]Recording, error) {
		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		it := client.Bucket(bucket).Objects(ctx, &storage.Query{Prefix: prefix})
		var out []Recording
		for {
			attrs, err := it.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				return nil, err
			}
			out = append(out, Recording{
				Key:     attrs.Name,
				URL:     fmt.Sprintf("gs://%s/%s", bucket, attrs.Name),
				Updated: attrs.Updated,
				Size:    attrs.Size,
			})
		}
		return out, nil
	}
	return l, nil
}

func (l *GCSLocator) Find(ctx context.Context, sessionID string) (Recording, bool, error) {
	objs, err := l.list(ctx, Prefix(sessionID))
	if err != nil {
		return Recording{}, false, fmt.Errorf("list %s: %w", Prefix(sessionID), err)
	}
	rec, ok := latest(objs)
	return rec, ok, nil
}

func (l *GCSLocator) Close() error {
	if l.close == nil {
		return nil
	}
	return l.close()
}
