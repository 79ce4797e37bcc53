package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ctlst/telegramollamabot/internal/models"
)

// RuntimeService is the model-runtime surface the handlers relay to.
type RuntimeService interface {
	ListModels(ctx context.Context) ([]models.ModelDescriptor, error)
	PullModel(ctx context.Context, name string) error
	Chat(ctx context.Context, model, message, sessionID string) (*models.GenerationResult, error)
	Generate(ctx context.Context, model, prompt string) (*models.GenerationResult, error)
	ClearHistory(ctx context.Context, sessionID string) error
}

// Handler wires HTTP routes to the runtime service.
type Handler struct {
	runtime RuntimeService
}

// NewHandler constructs a Handler instance.
func NewHandler(runtime RuntimeService) *Handler {
	return &Handler{runtime: runtime}
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	api.GET("/models", h.listModels)
	api.POST("/models/pull/:model_name", h.pullModel)
	api.POST("/chat", h.chat)
	api.POST("/generate", h.generate)
	api.POST("/chat/clear/:session_id", h.clearHistory)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Resource not found"})
	})
}

func (h *Handler) listModels(c *gin.Context) {
	listed, err := h.runtime.ListModels(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "error": err.Error()})
		return
	}
	formatted := make([]gin.H, 0, len(listed))
	for _, m := range listed {
		formatted = append(formatted, gin.H{"name": m.Name, "size": m.SizeGB()})
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "models": formatted})
}

func (h *Handler) pullModel(c *gin.Context) {
	name := c.Param("model_name")
	if err := h.runtime.PullModel(c.Request.Context(), name); err != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Successfully pulled " + name})
}

type chatRequest struct {
	Model     string `json:"model"`
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

func (h *Handler) chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Model == "" || req.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Missing required parameters"})
		return
	}
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = "default"
	}
	result, err := h.runtime.Chat(c.Request.Context(), req.Model, req.Message, sessionID)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"response":     result.Response,
		"elapsed_time": result.ElapsedSeconds,
	})
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

func (h *Handler) generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Model == "" || req.Prompt == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Missing required parameters"})
		return
	}
	result, err := h.runtime.Generate(c.Request.Context(), req.Model, req.Prompt)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"response":     result.Response,
		"elapsed_time": result.ElapsedSeconds,
	})
}

func (h *Handler) clearHistory(c *gin.Context) {
	sessionID := c.Param("session_id")
	if err := h.runtime.ClearHistory(c.Request.Context(), sessionID); err != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Chat history cleared"})
}
