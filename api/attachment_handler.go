package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"stock_pro/internal/attachment"
)

// multipartOverhead is the room left for boundaries and part headers on top
// of the file size limit.
const multipartOverhead = 64 << 10

type attachmentHandler struct {
	store    attachment.Store
	maxBytes int64
	logger   *zap.Logger
}

func newAttachmentHandler(store attachment.Store, maxBytes int64, logger *zap.Logger) *attachmentHandler {
	return &attachmentHandler{store: store, maxBytes: maxBytes, logger: logger}
}

// handleUpload stores the multipart "file" field and returns its image reference.
func (h *attachmentHandler) handleUpload(c *gin.Context) {
	limit := h.maxBytes + multipartOverhead
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	header, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) || c.Request.ContentLength > limit {
			h.writeUploadError(c, "", fmt.Errorf("%w: request exceeds %d bytes", attachment.ErrTooLarge, limit))
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file field"})
		return
	}
	f, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
		return
	}
	if int64(len(data)) > h.maxBytes {
		h.writeUploadError(c, header.Filename, fmt.Errorf("%w: file exceeds %d bytes", attachment.ErrTooLarge, h.maxBytes))
		return
	}

	ref, err := h.store.Store(c.Request.Context(), header.Filename, data)
	if err != nil {
		h.writeUploadError(c, header.Filename, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ref": ref})
}

func (h *attachmentHandler) writeUploadError(c *gin.Context, filename string, err error) {
	switch {
	case errors.Is(err, attachment.ErrTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
	case errors.Is(err, attachment.ErrNotImage):
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": err.Error()})
	case errors.Is(err, attachment.ErrEmpty):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Error("failed to store attachment", zap.String("filename", filename), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store attachment"})
	}
}
