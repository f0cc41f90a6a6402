package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/kurin/blazer/b2"
)

// B2Store keeps objects in a Backblaze B2 bucket.
type B2Store struct {
	bucket *b2.Bucket
}

// NewB2Store authorises against B2 and resolves the target bucket.
func NewB2Store(ctx context.Context, accountID, appKey, bucketName string) (*B2Store, error) {
	if strings.TrimSpace(accountID) == "" || strings.TrimSpace(appKey) == "" || strings.TrimSpace(bucketName) == "" {
		return nil, errors.New("storage: b2 account id, key and bucket are required")
	}

	client, err := b2.NewClient(ctx, accountID, appKey)
	if err != nil {
		return nil, fmt.Errorf("storage: create b2 client: %w", err)
	}

	bucket, err := client.Bucket(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("storage: get bucket: %w", err)
	}

	return &B2Store{bucket: bucket}, nil
}

// Upload streams the object into the bucket and returns its download URL.
func (s *B2Store) Upload(ctx context.Context, key, contentType string, r io.Reader, size int64) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}

	obj := s.bucket.Object(key)
	w := obj.NewWriter(ctx, b2.WithAttrsOption(&b2.Attrs{ContentType: contentType}))

	if _, err := io.Copy(w, limitReader(r, size)); err != nil {
		_ = w.Close()
		_ = obj.Delete(ctx)
		if errors.Is(err, ErrTooLarge) {
			return "", err
		}
		return "", fmt.Errorf("storage: write object: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("storage: close writer: %w", err)
	}

	return obj.URL(), nil
}

// Delete removes the object from the bucket.
func (s *B2Store) Delete(ctx context.Context, key string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	if err := s.bucket.Object(key).Delete(ctx); err != nil && !b2.IsNotExist(err) {
		return fmt.Errorf("storage: delete object: %w", err)
	}
	return nil
}

// Ping fetches the bucket attributes to confirm credentials are still valid.
func (s *B2Store) Ping(ctx context.Context) error {
	if _, err := s.bucket.Attrs(ctx); err != nil {
		return fmt.Errorf("storage: bucket attrs: %w", err)
	}
	return nil
}
