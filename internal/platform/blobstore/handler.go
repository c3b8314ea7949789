package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/seniorcare/seniorcare/internal/platform/auth"
	"github.com/seniorcare/seniorcare/pkg/pagination"
)

// BlobHandler provides Echo HTTP handlers for file operations.
type BlobHandler struct {
	store BlobStore
}

func NewBlobHandler(store BlobStore) *BlobHandler {
	return &BlobHandler{store: store}
}

// RegisterRoutes mounts file routes on the supplied Echo group.
func (h *BlobHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/files", h.handleUpload)
	g.GET("/files/:id/metadata", h.handleGetMetadata)
	g.GET("/files/:id", h.handleDownload)
	g.DELETE("/files/:id", h.handleDelete)
	g.GET("/users/:id/files", h.handleListByOwner)
}

// ownerAccess checks the caller against the blob owner's data.
func ownerAccess(ctx context.Context, ownerID string, write bool) error {
	id, err := uuid.Parse(ownerID)
	if err != nil {
		if auth.IsAdmin(ctx) {
			return nil
		}
		return echo.NewHTTPError(http.StatusForbidden, "not allowed to access this file")
	}
	if write {
		return auth.RequireWrite(ctx, id)
	}
	return auth.RequireRead(ctx, id)
}

// sniffContentType resolves the upload's MIME type. Generic or missing part
// headers fall back to content sniffing.
func sniffContentType(header string, src io.Reader) (string, io.Reader, error) {
	if mt, _, err := mime.ParseMediaType(header); err == nil && mt != "application/octet-stream" {
		return mt, src, nil
	}
	head := make([]byte, 512)
	n, err := io.ReadFull(src, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", nil, err
	}
	head = head[:n]
	mt, _, _ := mime.ParseMediaType(http.DetectContentType(head))
	return mt, io.MultiReader(bytes.NewReader(head), src), nil
}

func (h *BlobHandler) handleUpload(c echo.Context) error {
	ctx := c.Request().Context()

	ownerID := c.FormValue("owner_id")
	if ownerID == "" {
		ownerID = auth.UserIDFromContext(ctx)
	}
	if err := ownerAccess(ctx, ownerID, true); err != nil {
		return err
	}

	file, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "file is required"})
	}
	if file.Size > MaxFileSize {
		return c.JSON(http.StatusRequestEntityTooLarge, map[string]string{"error": ErrFileTooLarge.Error()})
	}

	src, err := file.Open()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to open uploaded file"})
	}
	defer src.Close()

	contentType, body, err := sniffContentType(file.Header.Get("Content-Type"), src)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "failed to read uploaded file"})
	}

	meta := BlobMetadata{
		FileName:    file.Filename,
		ContentType: contentType,
		OwnerID:     ownerID,
		Category:    c.FormValue("category"),
		CreatedBy:   auth.UserIDFromContext(ctx),
	}

	result, err := h.store.Upload(ctx, meta, body)
	if err != nil {
		switch {
		case errors.Is(err, ErrFileTooLarge):
			return c.JSON(http.StatusRequestEntityTooLarge, map[string]string{"error": err.Error()})
		case errors.Is(err, ErrInvalidContentType):
			return c.JSON(http.StatusUnsupportedMediaType, map[string]string{"error": err.Error()})
		case errors.Is(err, ErrMissingFileName), errors.Is(err, ErrMissingOwner), errors.Is(err, ErrInvalidCategory):
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		default:
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
	}

	return c.JSON(http.StatusCreated, result)
}

// loadMetadata fetches the blob's metadata and checks the caller may access it.
func (h *BlobHandler) loadMetadata(c echo.Context, write bool) (*BlobMetadata, error) {
	meta, err := h.store.GetMetadata(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrBlobNotFound) {
			return nil, echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return nil, echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if err := ownerAccess(c.Request().Context(), meta.OwnerID, write); err != nil {
		return nil, err
	}
	return meta, nil
}

func (h *BlobHandler) handleDownload(c echo.Context) error {
	if _, err := h.loadMetadata(c, false); err != nil {
		return err
	}

	rc, meta, err := h.store.Download(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrBlobNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	defer rc.Close()

	c.Response().Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, meta.FileName))
	return c.Stream(http.StatusOK, meta.ContentType, rc)
}

func (h *BlobHandler) handleGetMetadata(c echo.Context) error {
	meta, err := h.loadMetadata(c, false)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, meta)
}

func (h *BlobHandler) handleDelete(c echo.Context) error {
	if _, err := h.loadMetadata(c, true); err != nil {
		return err
	}
	if err := h.store.Delete(c.Request().Context(), c.Param("id")); err != nil {
		if errors.Is(err, ErrBlobNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *BlobHandler) handleListByOwner(c echo.Context) error {
	ownerID := c.Param("id")
	if err := ownerAccess(c.Request().Context(), ownerID, false); err != nil {
		return err
	}
	pg := pagination.FromContext(c)

	items, total, err := h.store.ListByOwner(c.Request().Context(), ownerID, c.QueryParam("category"), pg.Limit, pg.Offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if items == nil {
		items = []*BlobMetadata{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
