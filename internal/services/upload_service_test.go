package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/campushub/internal/storage"
)

func memUpload(name, contentType, body string) UploadFile {
	return UploadFile{
		Name:        name,
		ContentType: contentType,
		Size:        int64(len(body)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(body)), nil
		},
	}
}

func newMemUploads(t *testing.T) (*UploadService, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	store, err := storage.NewFSStore(fs, "/uploads", "/files")
	require.NoError(t, err)
	svc, err := NewUploadService(store, storage.NewPolicy(1024, nil))
	require.NoError(t, err)
	return svc, fs
}

func countFiles(t *testing.T, fs afero.Fs) int {
	t.Helper()
	count := 0
	require.NoError(t, afero.Walk(fs, "/uploads", func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			count++
		}
		return nil
	}))
	return count
}

func TestUploadServiceStoresFile(t *testing.T) {
	svc, fs := newMemUploads(t)

	obj, err := svc.Upload(context.Background(), "documents", memUpload("syllabus.pdf", "application/pdf", "%PDF-1.4"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(obj.URL, "/files/documents/"))
	require.True(t, strings.HasSuffix(obj.Key, ".pdf"))
	require.Equal(t, 1, countFiles(t, fs))

	data, err := afero.ReadFile(fs, "/uploads/"+obj.Key)
	require.NoError(t, err)
	require.True(t, bytes.Equal([]byte("%PDF-1.4"), data))

	require.NoError(t, svc.Remove(context.Background(), obj))
	require.Zero(t, countFiles(t, fs))
}

func TestUploadServiceRejectsByPolicy(t *testing.T) {
	svc, fs := newMemUploads(t)

	_, err := svc.Upload(context.Background(), "posts", memUpload("notes.exe", "application/x-msdownload", "MZ"))
	requireAppError(t, err, http.StatusUnsupportedMediaType)

	_, err = svc.Upload(context.Background(), "posts", memUpload("big.png", "image/png", strings.Repeat("x", 2048)))
	requireAppError(t, err, http.StatusRequestEntityTooLarge)

	_, err = svc.Upload(context.Background(), "posts", UploadFile{Name: "empty.png", ContentType: "image/png"})
	requireAppError(t, err, http.StatusBadRequest)

	require.Zero(t, countFiles(t, fs))
}

func TestUploadBatchRollsBackOnFailure(t *testing.T) {
	svc, fs := newMemUploads(t)

	broken := memUpload("broken.png", "image/png", "png")
	broken.Open = func() (io.ReadCloser, error) { return nil, errors.New("disk gone") }

	files := []UploadFile{
		memUpload("a.png", "image/png", "aaa"),
		memUpload("b.jpg", "image/jpeg", "bbb"),
		broken,
	}

	_, err := svc.UploadBatch(context.Background(), "posts", files)
	require.Error(t, err)
	require.Contains(t, err.Error(), "disk gone")
	require.Zero(t, countFiles(t, fs))

	stored, err := svc.UploadBatch(context.Background(), "posts", files[:2])
	require.NoError(t, err)
	require.Len(t, stored, 2)
	require.Equal(t, "a.png", stored[0].Name)
	require.Equal(t, "b.jpg", stored[1].Name)
	require.Equal(t, 2, countFiles(t, fs))
}

func TestUploadBatchValidatesBeforeStoring(t *testing.T) {
	svc, fs := newMemUploads(t)

	_, err := svc.UploadBatch(context.Background(), "posts", []UploadFile{
		memUpload("a.png", "image/png", "aaa"),
		memUpload("b.txt", "text/plain", "bbb"),
	})
	requireAppError(t, err, http.StatusUnsupportedMediaType)
	require.Zero(t, countFiles(t, fs))
}
