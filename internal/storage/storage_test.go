package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestPolicyCheck(t *testing.T) {
	policy := NewPolicy(0, nil)
	require.Equal(t, DefaultMaxSize, policy.MaxSize)

	require.NoError(t, policy.Check("image/png", 1024))
	require.NoError(t, policy.Check("application/pdf; charset=binary", DefaultMaxSize))

	err := policy.Check("image/png", DefaultMaxSize+1)
	require.ErrorIs(t, err, ErrTooLarge)

	err = policy.Check("application/zip", 10)
	require.ErrorIs(t, err, ErrUnsupportedType)

	require.ErrorIs(t, policy.Check("", 10), ErrUnsupportedType)
}

func TestPolicyCustomTypes(t *testing.T) {
	policy := NewPolicy(100, []string{" TEXT/PLAIN ", ""})
	require.True(t, policy.Allows("text/plain"))
	require.False(t, policy.Allows("image/png"))
}

func TestObjectKeyKeepsExtension(t *testing.T) {
	key := ObjectKey("/documents/", "Syllabus.PDF")
	require.True(t, strings.HasPrefix(key, "documents/"))
	require.True(t, strings.HasSuffix(key, ".pdf"))
	require.NotEqual(t, key, ObjectKey("documents", "Syllabus.PDF"))
}

func TestFSStoreUploadAndDelete(t *testing.T) {
	fs := afero.NewMemMapFs()
	store, err := NewFSStore(fs, "/uploads", "https://campus.example.edu/files/")
	require.NoError(t, err)
	ctx := context.Background()

	url, err := store.Upload(ctx, "posts/a.png", "image/png", strings.NewReader("png-bytes"), 9)
	require.NoError(t, err)
	require.Equal(t, "https://campus.example.edu/files/posts/a.png", url)
	require.True(t, store.Exists("posts/a.png"))

	data, err := afero.ReadFile(fs, "/uploads/posts/a.png")
	require.NoError(t, err)
	require.Equal(t, "png-bytes", string(data))

	require.NoError(t, store.Delete(ctx, "posts/a.png"))
	require.False(t, store.Exists("posts/a.png"))
	require.NoError(t, store.Delete(ctx, "posts/a.png"))
}

func TestFSStoreRejectsOversizedStream(t *testing.T) {
	fs := afero.NewMemMapFs()
	store, err := NewFSStore(fs, "/uploads", "")
	require.NoError(t, err)

	_, err = store.Upload(context.Background(), "big.pdf", "application/pdf", bytes.NewReader(make([]byte, 64)), 16)
	require.ErrorIs(t, err, ErrTooLarge)
	require.False(t, store.Exists("big.pdf"))
}

func TestFSStoreRejectsEscapingKeys(t *testing.T) {
	store, err := NewFSStore(afero.NewMemMapFs(), "/uploads", "")
	require.NoError(t, err)

	_, err = store.Upload(context.Background(), "../etc/passwd", "image/png", strings.NewReader("x"), 1)
	require.ErrorIs(t, err, ErrInvalidKey)

	_, err = store.Upload(context.Background(), "  ", "image/png", strings.NewReader("x"), 1)
	require.ErrorIs(t, err, ErrInvalidKey)
}

func TestFSStoreHonoursCancelledContext(t *testing.T) {
	store, err := NewFSStore(afero.NewMemMapFs(), "/uploads", "")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = store.Upload(ctx, "a.png", "image/png", strings.NewReader("x"), 1)
	require.True(t, errors.Is(err, context.Canceled))
}

func TestFSStorePingAndServe(t *testing.T) {
	fs := afero.NewMemMapFs()
	store, err := NewFSStore(fs, "/uploads", "")
	require.NoError(t, err)
	require.NoError(t, store.Ping(context.Background()))

	_, err = store.Upload(context.Background(), "docs/notes.pdf", "application/pdf", strings.NewReader("%PDF"), 4)
	require.NoError(t, err)

	var httpFS http.FileSystem = store.HTTPFileSystem()
	file, err := httpFS.Open("/docs/notes.pdf")
	require.NoError(t, err)
	defer file.Close()

	data, err := io.ReadAll(file)
	require.NoError(t, err)
	require.Equal(t, "%PDF", string(data))
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	_, err := New(context.Background(), Config{Driver: "ftp"})
	require.Error(t, err)
}

func TestNewB2StoreRequiresCredentials(t *testing.T) {
	_, err := NewB2Store(context.Background(), "", "", "")
	require.Error(t, err)
}
