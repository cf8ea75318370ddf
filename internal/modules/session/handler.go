package session

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"examseat/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/sessions", h.ListSessions)
}

func (h *Handler) ListSessions(c *gin.Context) {
	list, err := h.service.ListAvailability(c.Request.Context(), time.Now())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load sessions")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"sessions": list})
}
