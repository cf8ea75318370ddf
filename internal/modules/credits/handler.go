package credits

import (
	"net/http"

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
	rg.GET("/credits", h.GetCredits)
}

// GetCredits returns the caller's ledger, priming it from the contact record
// on first sight so a fresh student sees real balances, not an empty row.
func (h *Handler) GetCredits(c *gin.Context) {
	studentID := c.GetString("student_id")
	email := c.GetString("email")

	ledger, err := h.service.GetOrPrime(c.Request.Context(), studentID, email)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load credits")
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"student_id":         ledger.StudentID,
		"judgment_credits":   ledger.JudgmentCredits,
		"skills_credits":     ledger.SkillsCredits,
		"mini_credits":       ledger.MiniCredits,
		"discussion_credits": ledger.DiscussionCredits,
		"shared_credits":     ledger.SharedCredits,
	})
}
