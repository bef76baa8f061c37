package handlers

import (
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/goout-id/goout/internal/storage"
	"github.com/goout-id/goout/pkg/errors"
	"github.com/goout-id/goout/pkg/response"
)

// maxUploadFiles caps how many images one request may carry.
const maxUploadFiles = 10

// UploadHandler stores images in object storage.
type UploadHandler struct {
	uploader storage.Uploader
}

func NewUploadHandler(uploader storage.Uploader) *UploadHandler {
	if uploader == nil {
		uploader = storage.Disabled{}
	}
	return &UploadHandler{uploader: uploader}
}

// POST /api/v1/upload
func (h *UploadHandler) Upload(c *gin.Context) {
	if _, disabled := h.uploader.(storage.Disabled); disabled {
		response.Error(c, storage.ErrDisabled)
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		response.Error(c, errors.NewBadRequest("expected a multipart form"))
		return
	}

	files := form.File["images[]"]
	if len(files) == 0 {
		files = form.File["images"]
	}
	if len(files) == 0 {
		response.Error(c, errors.NewBadRequest("images is required"))
		return
	}
	if len(files) > maxUploadFiles {
		response.Error(c, errors.NewBadRequest(fmt.Sprintf("at most %d images may be uploaded at once", maxUploadFiles)))
		return
	}

	objects := make([]storage.Object, 0, len(files))
	for _, header := range files {
		object, err := h.store(c, header)
		if err != nil {
			response.Error(c, err)
			return
		}
		objects = append(objects, object)
	}

	response.Success(c, http.StatusCreated, objects)
}

func (h *UploadHandler) store(c *gin.Context, header *multipart.FileHeader) (storage.Object, error) {
	file, err := header.Open()
	if err != nil {
		return storage.Object{}, errors.NewBadRequest("unable to read " + header.Filename)
	}
	defer file.Close()

	return h.uploader.Upload(requestContext(c), header.Filename, header.Size, file)
}
