package chat

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"docchat-backend/internal/shared/server/middleware"
	"docchat-backend/internal/shared/server/respond"
)

// Handler exposes chat sessions over HTTP.
type Handler struct {
	Sessions *Manager
}

// NewHandler constructs a Handler.
func NewHandler(sessions *Manager) *Handler {
	return &Handler{Sessions: sessions}
}

type submitRequest struct {
	Content string `json:"content"`
}

type submitResponse struct {
	Message    Message `json:"message"`
	Appended   bool    `json:"appended"`
	Generation uint64  `json:"generation"`
}

// RegisterRoutes attaches chat routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/chat/sessions", h.create)
	rg.GET("/chat/sessions/:id", h.get)
	rg.POST("/chat/sessions/:id/messages", h.submit)
	rg.POST("/chat/sessions/:id/clear", h.clear)
	rg.DELETE("/chat/sessions/:id", h.delete)
}

func (h *Handler) create(c *gin.Context) {
	s := h.Sessions.Create(middleware.UserIDFromContext(c))
	c.Set("sessionId", s.ID)
	respond.JSON(c, http.StatusCreated, s.View())
}

func (h *Handler) get(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}
	respond.OK(c, s.View())
}

func (h *Handler) submit(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}

	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid JSON body", nil)
		return
	}

	turn, err := s.Submit(c.Request.Context(), req.Content)
	switch {
	case errors.Is(err, ErrEmptyMessage):
		respond.Error(c, http.StatusBadRequest, "validation_error", "content is required", nil)
		return
	case errors.Is(err, ErrBusy):
		respond.Error(c, http.StatusConflict, "busy", "a response is still pending", gin.H{"state": string(StateAwaiting)})
		return
	case err != nil:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to submit message", nil)
		return
	}

	msg, appended, err := turn.Wait(c.Request.Context())
	if err != nil {
		// The caller went away; the turn still resolves and can be read back with GET.
		respond.Accepted(c, gin.H{"state": string(StateAwaiting), "generation": turn.Generation})
		return
	}
	respond.OK(c, submitResponse{Message: msg, Appended: appended, Generation: turn.Generation})
}

func (h *Handler) clear(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}
	generation := s.Clear()
	respond.OK(c, gin.H{"state": string(StateIdle), "generation": generation})
}

func (h *Handler) delete(c *gin.Context) {
	id := c.Param("id")
	c.Set("sessionId", id)
	if err := h.Sessions.Delete(middleware.UserIDFromContext(c), id); err != nil {
		respond.Error(c, http.StatusNotFound, "not_found", "session not found", nil)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) lookup(c *gin.Context) (*Session, bool) {
	id := c.Param("id")
	c.Set("sessionId", id)
	s, err := h.Sessions.Get(middleware.UserIDFromContext(c), id)
	if err != nil {
		respond.Error(c, http.StatusNotFound, "not_found", "session not found", nil)
		return nil, false
	}
	return s, true
}
