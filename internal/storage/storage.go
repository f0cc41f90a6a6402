package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

// DefaultMaxSize is the upload ceiling applied when none is configured.
const DefaultMaxSize int64 = 10 << 20

// DefaultAllowedTypes lists the content types accepted when none are configured.
var DefaultAllowedTypes = []string{"image/*", "application/pdf"}

var (
	// ErrTooLarge is returned when an object exceeds the configured maximum size.
	ErrTooLarge = errors.New("storage: object too large")
	// ErrUnsupportedType is returned when the content type is not on the allow list.
	ErrUnsupportedType = errors.New("storage: unsupported content type")
	// ErrInvalidKey is returned for empty or escaping object keys.
	ErrInvalidKey = errors.New("storage: invalid object key")
)

// Store persists uploaded objects and returns their public URL.
type Store interface {
	Upload(ctx context.Context, key, contentType string, r io.Reader, size int64) (string, error)
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

// Config selects and configures a Store backend.
type Config struct {
	Driver        string
	PublicBaseURL string
	MaxSize       int64
	AllowedTypes  []string

	FSRoot string

	B2AccountID string
	B2Key       string
	B2Bucket    string
}

// Policy bounds what may be uploaded.
type Policy struct {
	MaxSize      int64
	AllowedTypes []string
}

// NewPolicy normalises the limits, falling back to the defaults.
func NewPolicy(maxSize int64, allowed []string) Policy {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}

	types := make([]string, 0, len(allowed))
	for _, t := range allowed {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			types = append(types, t)
		}
	}
	if len(types) == 0 {
		types = append(types, DefaultAllowedTypes...)
	}

	return Policy{MaxSize: maxSize, AllowedTypes: types}
}

// Check validates the declared content type and size of an upload.
func (p Policy) Check(contentType string, size int64) error {
	if size > p.MaxSize {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLarge, size, p.MaxSize)
	}
	if !p.Allows(contentType) {
		return fmt.Errorf("%w: %q", ErrUnsupportedType, contentType)
	}
	return nil
}

// Allows reports whether contentType matches the allow list. Entries ending in /* match a
// whole media family.
func (p Policy) Allows(contentType string) bool {
	mediaType := strings.ToLower(strings.TrimSpace(contentType))
	if idx := strings.Index(mediaType, ";"); idx >= 0 {
		mediaType = strings.TrimSpace(mediaType[:idx])
	}
	if mediaType == "" {
		return false
	}

	for _, allowed := range p.AllowedTypes {
		if strings.HasSuffix(allowed, "/*") {
			if strings.HasPrefix(mediaType, strings.TrimSuffix(allowed, "*")) {
				return true
			}
			continue
		}
		if mediaType == allowed {
			return true
		}
	}
	return false
}

// ObjectKey builds a collision free key under prefix that keeps the original file extension.
func ObjectKey(prefix, filename string) string {
	ext := strings.ToLower(path.Ext(path.Base(strings.ReplaceAll(filename, "\\", "/"))))
	if len(ext) > 16 {
		ext = ""
	}
	return path.Join(strings.Trim(prefix, "/"), uuid.NewString()+ext)
}

// New builds the Store selected by cfg.Driver.
func New(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "fs":
		return NewFSStore(nil, cfg.FSRoot, cfg.PublicBaseURL)
	case "b2":
		return NewB2Store(ctx, cfg.B2AccountID, cfg.B2Key, cfg.B2Bucket)
	default:
		return nil, fmt.Errorf("storage: unsupported driver %q", cfg.Driver)
	}
}

func cleanKey(key string) (string, error) {
	key = strings.TrimSpace(strings.ReplaceAll(key, "\\", "/"))
	if key == "" {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean("/" + key)
	if cleaned == "/" || strings.Contains(key, "..") {
		return "", ErrInvalidKey
	}
	return strings.TrimPrefix(cleaned, "/"), nil
}

// limitedReader errors once more than limit bytes are read so a lying size header cannot bypass the ceiling.
type limitedReader struct {
	r     io.Reader
	limit int64
	read  int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.read += int64(n)
	if l.read > l.limit {
		return n, ErrTooLarge
	}
	return n, err
}

func limitReader(r io.Reader, size int64) io.Reader {
	if size <= 0 {
		return r
	}
	return &limitedReader{r: r, limit: size}
}
