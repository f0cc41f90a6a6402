package handlers

import (
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/campushub/internal/services"
	"github.com/charlesng35/campushub/pkg/errors"
	"github.com/charlesng35/campushub/pkg/response"
)

const maxBatchFiles = 10

var uploadPrefixes = map[string]string{
	"posts":       "posts",
	"submissions": "submissions",
	"chat":        "chat",
	"avatars":     "avatars",
}

// UploadHandler stores loose files, such as post images or submission attachments, and returns
// their public URLs for a follow-up create request.
type UploadHandler struct {
	svc *services.UploadService
}

// NewUploadHandler constructs an UploadHandler.
func NewUploadHandler(svc *services.UploadService) *UploadHandler {
	return &UploadHandler{svc: svc}
}

// POST /api/uploads?kind=posts|submissions|chat|avatars (multipart field "files")
func (h *UploadHandler) Create(c *gin.Context) {
	if _, ok := currentUserID(c); !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	prefix, ok := uploadPrefixes[strings.ToLower(strings.TrimSpace(c.DefaultQuery("kind", "posts")))]
	if !ok {
		response.Error(c, errors.NewBadRequest("kind must be one of posts, submissions, chat, avatars"))
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		response.Error(c, errors.NewBadRequest("multipart form is required"))
		return
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		response.Error(c, errors.NewBadRequest("at least one file is required"))
		return
	}
	if len(headers) > maxBatchFiles {
		response.Error(c, errors.NewBadRequest("too many files"))
		return
	}

	files := make([]services.UploadFile, 0, len(headers))
	for _, fh := range headers {
		files = append(files, uploadFileFromHeader(fh))
	}

	objects, err := h.svc.UploadBatch(requestContext(c), prefix, files)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, objects)
}

// uploadFileFromHeader adapts a multipart file. The content type is sniffed from the payload so a
// client supplied header cannot bypass the type policy.
func uploadFileFromHeader(fh *multipart.FileHeader) services.UploadFile {
	return services.UploadFile{
		Name:        fh.Filename,
		ContentType: sniffContentType(fh),
		Size:        fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

func sniffContentType(fh *multipart.FileHeader) string {
	declared := strings.TrimSpace(fh.Header.Get("Content-Type"))

	file, err := fh.Open()
	if err != nil {
		return declared
	}
	defer file.Close()

	detected, err := mimetype.DetectReader(file)
	if err != nil || detected == nil {
		return declared
	}
	mediaType, _, _ := strings.Cut(detected.String(), ";")
	return strings.TrimSpace(mediaType)
}
