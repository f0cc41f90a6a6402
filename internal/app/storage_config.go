package app

import (
	"strings"

	"github.com/charlesng35/campushub/internal/storage"
)

// StoreConfig converts the storage section into storage.New parameters.
func (c StorageConfig) StoreConfig() storage.Config {
	return storage.Config{
		Driver:        strings.ToLower(strings.TrimSpace(c.Driver)),
		PublicBaseURL: strings.TrimSpace(c.PublicBaseURL),
		MaxSize:       c.MaxSize,
		AllowedTypes:  c.AllowedTypes,
		FSRoot:        strings.TrimSpace(c.FS.Root),
		B2AccountID:   strings.TrimSpace(c.B2.AccountID),
		B2Key:         strings.TrimSpace(c.B2.Key),
		B2Bucket:      strings.TrimSpace(c.B2.Bucket),
	}
}

// UploadPolicy returns the size and type limits applied to uploads.
func (c StorageConfig) UploadPolicy() storage.Policy {
	return storage.NewPolicy(c.MaxSize, c.AllowedTypes)
}
