package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/couchcryptid/rescue-triage-service/internal/chat"
	"github.com/couchcryptid/rescue-triage-service/internal/dashboard"
	"github.com/couchcryptid/rescue-triage-service/internal/pipeline"
	"github.com/couchcryptid/rescue-triage-service/internal/session"
	"github.com/gin-gonic/gin"
)

// DashboardAPI is the session-facing behaviour served over HTTP.
type DashboardAPI interface {
	NewSession(ctx context.Context) dashboard.Dashboard
	Dashboard(ctx context.Context, id string) (dashboard.Dashboard, error)
	CloseSession(id string) error
	MapClick(ctx context.Context, id string, lat, lon float64) (dashboard.Dashboard, error)
	ListClick(ctx context.Context, id string, row int) (dashboard.Dashboard, error)
	History(id string) ([]chat.Message, error)
	Chat(ctx context.Context, id, prompt string) (dashboard.ChatReply, error)
	ChatStream(ctx context.Context, id, prompt string, onDelta func(string) error) (dashboard.ChatReply, error)
	Refresh(ctx context.Context) pipeline.Snapshot
}

type mapClickRequest struct {
	Lat *float64 `json:"lat" binding:"required"`
	Lon *float64 `json:"lon" binding:"required"`
}

type listClickRequest struct {
	Row *int `json:"row" binding:"required"`
}

type chatRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type handlers struct {
	api    DashboardAPI
	logger *slog.Logger
}

func (h *handlers) register(api *gin.RouterGroup) {
	api.POST("/sessions", h.createSession)
	api.POST("/refresh", h.refresh)

	s := api.Group("/sessions/:id")
	s.DELETE("", h.closeSession)
	s.GET("/dashboard", h.getDashboard)
	s.POST("/map-click", h.mapClick)
	s.POST("/list-click", h.listClick)
	s.GET("/chat", h.chatHistory)
	s.POST("/chat", h.chat)
	s.POST("/chat/stream", h.chatStream)
}

func (h *handlers) createSession(c *gin.Context) {
	c.JSON(http.StatusCreated, h.api.NewSession(c.Request.Context()))
}

func (h *handlers) closeSession(c *gin.Context) {
	if err := h.api.CloseSession(c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) getDashboard(c *gin.Context) {
	d, err := h.api.Dashboard(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *handlers) mapClick(c *gin.Context) {
	var req mapClickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	d, err := h.api.MapClick(c.Request.Context(), c.Param("id"), *req.Lat, *req.Lon)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *handlers) listClick(c *gin.Context) {
	var req listClickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	d, err := h.api.ListClick(c.Request.Context(), c.Param("id"), *req.Row)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *handlers) chatHistory(c *gin.Context) {
	msgs, err := h.api.History(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if msgs == nil {
		msgs = []chat.Message{}
	}
	c.JSON(http.StatusOK, gin.H{"history": msgs})
}

func (h *handlers) chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	reply, err := h.api.Chat(c.Request.Context(), c.Param("id"), req.Prompt)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

// chatStream answers as server-sent events: one "delta" event per fragment
// followed by a "done" event carrying the complete reply.
func (h *handlers) chatStream(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	id := c.Param("id")
	if _, err := h.api.History(id); err != nil {
		h.fail(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream; charset=utf-8")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	reply, err := h.api.ChatStream(c.Request.Context(), id, req.Prompt, func(delta string) error {
		c.SSEvent("delta", gin.H{"delta": delta})
		c.Writer.Flush()
		return c.Request.Context().Err()
	})
	if err != nil {
		c.SSEvent("error", errorBody{Code: "internal", Message: err.Error()})
		c.Writer.Flush()
		return
	}
	c.SSEvent("done", reply)
	c.Writer.Flush()
}

func (h *handlers) refresh(c *gin.Context) {
	snap := h.api.Refresh(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"status":      snap.Status,
		"reason":      snap.Reason,
		"provider":    snap.Provider,
		"individuals": len(snap.Individuals),
		"loaded_at":   snap.LoadedAt,
	})
}

func (h *handlers) fail(c *gin.Context, err error) {
	if errors.Is(err, session.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": errorBody{Code: "not_found", Message: err.Error()}})
		return
	}
	h.logger.Error("request failed", "path", c.FullPath(), "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": errorBody{Code: "internal", Message: "internal error"}})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": errorBody{Code: "bad_request", Message: err.Error()}})
}
