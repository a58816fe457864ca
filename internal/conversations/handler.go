package conversations

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"pdfchat-backend/internal/documents"
	"pdfchat-backend/internal/shared/server/middleware"
	"pdfchat-backend/internal/shared/server/respond"
)

// Handler exposes the conversation engine over HTTP.
type Handler struct {
	Engine *Engine
}

// NewHandler constructs a Handler.
func NewHandler(engine *Engine) *Handler {
	return &Handler{Engine: engine}
}

// RegisterRoutes attaches conversation routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/documents/:id/conversation", h.get)
	rg.POST("/documents/:id/conversation", h.ask)
}

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Message      string           `json:"message"`
	Conversation []documents.Turn `json:"conversation"`
}

type conversationResponse struct {
	Conversation []documents.Turn `json:"conversation"`
	StoragePath  string           `json:"storagePath"`
}

func (h *Handler) get(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	documentID := c.Param("id")
	c.Set(middleware.DocumentIDKey, documentID)

	turns, storagePath, err := h.Engine.Conversation(c.Request.Context(), userID, documentID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.OK(c, conversationResponse{Conversation: turns, StoragePath: storagePath})
}

func (h *Handler) ask(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	documentID := c.Param("id")
	c.Set(middleware.DocumentIDKey, documentID)

	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid JSON body", nil)
		return
	}

	turns, err := h.Engine.Ask(c.Request.Context(), userID, documentID, req.Question)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.OK(c, askResponse{
		Message:      turns[len(turns)-1].Content,
		Conversation: turns,
	})
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", "question is required", nil)
	case errors.Is(err, documents.ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
	case errors.Is(err, ErrNoConversation):
		respond.Error(c, http.StatusNotFound, "no_conversation", "no conversation yet", nil)
	case errors.Is(err, ErrBusy):
		respond.Error(c, http.StatusConflict, "busy", "another question for this document is in progress", nil)
	case errors.Is(err, ErrGeneration):
		respond.Error(c, http.StatusBadGateway, "generation_failed", "the language model did not answer, try again", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to process conversation", nil)
	}
}
