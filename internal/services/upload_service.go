package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/charlesng35/campushub/internal/storage"
	apperrors "github.com/charlesng35/campushub/pkg/errors"
	"github.com/charlesng35/campushub/pkg/logger"
	"github.com/charlesng35/campushub/pkg/metrics"
)

// UploadFile describes one file supplied by a client.
type UploadFile struct {
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// StoredObject is a file persisted in object storage.
type StoredObject struct {
	Key         string `json:"-"`
	URL         string `json:"url"`
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// UploadService validates files against the upload policy and stores them.
type UploadService struct {
	store  storage.Store
	policy storage.Policy
	log    *zap.Logger
}

// NewUploadService constructs an UploadService.
func NewUploadService(store storage.Store, policy storage.Policy) (*UploadService, error) {
	if store == nil {
		return nil, errors.New("upload service: store is required")
	}
	if policy.MaxSize <= 0 || len(policy.AllowedTypes) == 0 {
		policy = storage.NewPolicy(policy.MaxSize, policy.AllowedTypes)
	}
	return &UploadService{store: store, policy: policy, log: logger.WithModule("storage")}, nil
}

// Policy returns the active upload policy.
func (s *UploadService) Policy() storage.Policy {
	return s.policy
}

// Upload checks and stores a single file under prefix.
func (s *UploadService) Upload(ctx context.Context, prefix string, file UploadFile) (StoredObject, error) {
	ctx = ensureContext(ctx)
	if err := s.check(file); err != nil {
		metrics.Uploads.WithLabelValues("rejected").Inc()
		return StoredObject{}, err
	}

	reader, err := file.Open()
	if err != nil {
		metrics.Uploads.WithLabelValues("failed").Inc()
		return StoredObject{}, fmt.Errorf("upload service: open %q: %w", file.Name, err)
	}
	defer reader.Close()

	key := storage.ObjectKey(prefix, file.Name)
	url, err := s.store.Upload(ctx, key, file.ContentType, reader, file.Size)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			metrics.Uploads.WithLabelValues("rejected").Inc()
			return StoredObject{}, apperrors.ErrPayloadTooLarge.WithInternal(err)
		}
		metrics.Uploads.WithLabelValues("failed").Inc()
		return StoredObject{}, fmt.Errorf("upload service: store %q: %w", file.Name, err)
	}

	metrics.Uploads.WithLabelValues("stored").Inc()
	return StoredObject{
		Key:         key,
		URL:         url,
		Name:        file.Name,
		ContentType: file.ContentType,
		Size:        file.Size,
	}, nil
}

// UploadBatch stores files concurrently. The batch succeeds only when every file is stored;
// on the first failure the remaining uploads are cancelled and stored objects are removed.
func (s *UploadService) UploadBatch(ctx context.Context, prefix string, files []UploadFile) ([]StoredObject, error) {
	ctx = ensureContext(ctx)
	if len(files) == 0 {
		return []StoredObject{}, nil
	}

	for _, file := range files {
		if err := s.check(file); err != nil {
			metrics.Uploads.WithLabelValues("rejected").Inc()
			return nil, err
		}
	}

	results := make([]StoredObject, len(files))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, file := range files {
		group.Go(func() error {
			obj, err := s.Upload(groupCtx, prefix, file)
			if err != nil {
				return err
			}
			results[i] = obj
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		if cleanupErr := s.Remove(context.WithoutCancel(ctx), results...); cleanupErr != nil {
			s.log.Warn("upload rollback incomplete", zap.Error(cleanupErr))
		}
		return nil, err
	}
	return results, nil
}

// Remove deletes stored objects, skipping empty entries.
func (s *UploadService) Remove(ctx context.Context, objects ...StoredObject) error {
	ctx = ensureContext(ctx)
	var errs error
	for _, obj := range objects {
		if obj.Key == "" {
			continue
		}
		errs = multierr.Append(errs, s.store.Delete(ctx, obj.Key))
	}
	return errs
}

// RemoveKeys deletes objects by storage key.
func (s *UploadService) RemoveKeys(ctx context.Context, keys ...string) error {
	objects := make([]StoredObject, 0, len(keys))
	for _, key := range keys {
		objects = append(objects, StoredObject{Key: key})
	}
	return s.Remove(ctx, objects...)
}

func (s *UploadService) check(file UploadFile) error {
	if strings.TrimSpace(file.Name) == "" || file.Open == nil {
		return apperrors.NewBadRequest("file is required")
	}
	err := s.policy.Check(file.ContentType, file.Size)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrTooLarge):
		return apperrors.ErrPayloadTooLarge.WithInternal(err)
	case errors.Is(err, storage.ErrUnsupportedType):
		return apperrors.ErrUnsupportedMedia.WithInternal(err)
	}
	return err
}
