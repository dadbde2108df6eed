package documents

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"docchat-backend/internal/extract"
	"docchat-backend/internal/shared/server/middleware"
	"docchat-backend/internal/shared/server/respond"
)

const (
	// multipartOverhead covers form boundaries and headers around the file part.
	multipartOverhead = 1 << 20
	previewMaxRunes   = 100_000
)

// Handler wires HTTP handlers to the coordinator and gateway.
type Handler struct {
	Coordinator *Coordinator
	Gateway     *Gateway
}

// NewHandler constructs a Handler.
func NewHandler(coord *Coordinator) *Handler {
	return &Handler{Coordinator: coord, Gateway: coord.Gateway}
}

// RegisterRoutes attaches document routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents", h.upload)
	rg.GET("/documents", h.list)
	rg.GET("/documents/:id", h.get)
	rg.GET("/documents/:id/content", h.content)
	rg.GET("/documents/:id/text", h.text)
	rg.DELETE("/documents/:id", h.delete)
}

func (h *Handler) upload(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if limit := h.bodyLimit(); limit > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "too_large", "file exceeds the upload limit", gin.H{"reason": string(ReasonTooLarge)})
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}

	data, err := readPart(fileHeader)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}

	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	res := h.Coordinator.Ingest(ctx, userID, fileHeader.Filename, resolveMediaType(fileHeader), data)

	switch res.Outcome {
	case OutcomeAccepted:
		c.Set("documentId", res.Document.ID)
		respond.JSON(c, http.StatusCreated, toResponse(*res.Document))
	case OutcomeRejectedValidation:
		details := gin.H{"outcome": string(res.Outcome), "reason": string(res.Reason)}
		switch res.Reason {
		case ReasonUnsupportedType:
			respond.Error(c, http.StatusBadRequest, "unsupported_type", "file type is not allowed", details)
		case ReasonTooLarge:
			respond.Error(c, http.StatusRequestEntityTooLarge, "too_large", "file exceeds the upload limit", details)
		default:
			respond.Error(c, http.StatusBadRequest, "validation_error", "upload rejected", details)
		}
	case OutcomeFailedStorage:
		respond.Error(c, http.StatusBadGateway, "storage_unavailable", "failed to store document", gin.H{"outcome": string(res.Outcome)})
	default:
		respond.Error(c, http.StatusInternalServerError, "metadata_unavailable", "failed to record document", gin.H{"outcome": string(res.Outcome)})
	}
}

func (h *Handler) list(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	docs, err := h.Gateway.ListByOwner(c.Request.Context(), userID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list documents", nil)
		return
	}

	resp := make([]DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		resp = append(resp, toResponse(doc))
	}
	respond.JSON(c, http.StatusOK, resp)
}

func (h *Handler) get(c *gin.Context) {
	doc, ok := h.lookup(c)
	if !ok {
		return
	}
	respond.JSON(c, http.StatusOK, toResponse(doc))
}

func (h *Handler) content(c *gin.Context) {
	doc, ok := h.lookup(c)
	if !ok {
		return
	}
	rc, err := h.Gateway.Open(c.Request.Context(), doc)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "document content not found", nil)
			return
		}
		respond.Error(c, http.StatusBadGateway, "storage_unavailable", "failed to read document", nil)
		return
	}
	defer rc.Close()

	headers := map[string]string{
		"Content-Disposition": mime.FormatMediaType("attachment", map[string]string{"filename": doc.FileName}),
	}
	c.DataFromReader(http.StatusOK, doc.SizeBytes, doc.MediaType, rc, headers)
}

// text serves a plain-text preview of the stored document.
func (h *Handler) text(c *gin.Context) {
	doc, ok := h.lookup(c)
	if !ok {
		return
	}
	if !extract.Supported(doc.MediaType) {
		respond.Error(c, http.StatusUnprocessableEntity, "not_extractable", "no text preview for this document type", gin.H{"mediaType": doc.MediaType})
		return
	}

	ctx := c.Request.Context()
	rc, err := h.Gateway.Open(ctx, doc)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "document content not found", nil)
			return
		}
		respond.Error(c, http.StatusBadGateway, "storage_unavailable", "failed to read document", nil)
		return
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, doc.SizeBytes+1))
	if err != nil {
		respond.Error(c, http.StatusBadGateway, "storage_unavailable", "failed to read document", nil)
		return
	}

	text, err := extract.Text(ctx, data, doc.MediaType, doc.FileName)
	if err != nil {
		respond.Error(c, http.StatusUnprocessableEntity, "extraction_failed", "failed to extract text", nil)
		return
	}
	text, truncated := extract.Truncate(text, previewMaxRunes)
	respond.OK(c, TextResponse{DocumentID: doc.ID, Text: text, Truncated: truncated})
}

func (h *Handler) delete(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	documentID := c.Param("id")
	c.Set("documentId", documentID)

	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	err := h.Coordinator.Delete(ctx, userID, documentID)
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	var delErr *DeleteError
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
	case errors.As(err, &delErr):
		status := http.StatusBadGateway
		if delErr.Partial {
			status = http.StatusInternalServerError
		}
		respond.Error(c, status, "delete_failed", "failed to delete document", gin.H{"partial": delErr.Partial})
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to delete document", nil)
	}
}

func (h *Handler) lookup(c *gin.Context) (Document, bool) {
	userID := middleware.UserIDFromContext(c)
	documentID := c.Param("id")
	c.Set("documentId", documentID)

	doc, err := h.Gateway.Get(c.Request.Context(), userID, documentID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
			return Document{}, false
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch document", nil)
		return Document{}, false
	}
	return doc, true
}

// bodyLimit caps the request body. The cap sits above the policy ceiling so an
// oversized file with an allowed type still reaches validation and is reported as too-large.
func (h *Handler) bodyLimit() int64 {
	maxBytes := h.Coordinator.Policy.MaxBytes
	if maxBytes <= 0 {
		return 0
	}
	return 2*maxBytes + multipartOverhead
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return data, nil
}

// resolveMediaType trusts the part's declared type and falls back to the file extension.
func resolveMediaType(fh *multipart.FileHeader) string {
	declared := NormalizeMediaType(fh.Header.Get("Content-Type"))
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if byExt := mime.TypeByExtension(filepath.Ext(fh.Filename)); byExt != "" {
		return NormalizeMediaType(byExt)
	}
	return declared
}
