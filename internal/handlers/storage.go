package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Pokatocz/quest-and-check/internal/storage"
)

// StorageHandler serves stored photos. Public buckets are open; private ones
// need the token minted by SignedURL.
type StorageHandler struct {
	store *storage.LocalStore
}

func NewStorageHandler(store *storage.LocalStore) *StorageHandler {
	return &StorageHandler{store: store}
}

// ServePublic godoc
// @Summary Download a public object
// @Tags storage
// @Produce octet-stream
// @Param bucket path string true "Bucket"
// @Param path path string true "Object path"
// @Success 200 {file} binary
// @Failure 404 {object} ErrorResponse
// @Router /storage/public/{bucket}/{path} [get]
func (h *StorageHandler) ServePublic(c *gin.Context) {
	bucket := c.Param("bucket")
	if !h.store.IsPublic(bucket) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "object not found"})
		return
	}
	h.serve(c, bucket, objectPath(c))
}

// ServeSigned godoc
// @Summary Download an object through a signed link
// @Tags storage
// @Produce octet-stream
// @Param bucket path string true "Bucket"
// @Param path path string true "Object path"
// @Param token query string true "Signature"
// @Success 200 {file} binary
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /storage/signed/{bucket}/{path} [get]
func (h *StorageHandler) ServeSigned(c *gin.Context) {
	bucket := c.Param("bucket")
	path := objectPath(c)
	if err := h.store.VerifySignature(bucket, path, c.Query("token")); err != nil {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: err.Error()})
		return
	}
	h.serve(c, bucket, path)
}

func (h *StorageHandler) serve(c *gin.Context, bucket, path string) {
	file, err := h.store.Open(bucket, path)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrObjectNotFound), errors.Is(err, storage.ErrUnknownBucket):
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "object not found"})
		case errors.Is(err, storage.ErrInvalidPath):
			badRequest(c, err.Error())
		default:
			respondError(c, err)
		}
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Cache-Control", "private, max-age=3600")
	http.ServeContent(c.Writer, c.Request, info.Name(), info.ModTime(), file)
}

func objectPath(c *gin.Context) string {
	return strings.TrimPrefix(c.Param("path"), "/")
}
