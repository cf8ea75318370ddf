package booking

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"examseat/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/bookings", h.CreateBooking)
	rg.GET("/bookings", h.ListMyBookings)
	rg.DELETE("/bookings/:id", h.CancelBooking)
}

func (h *Handler) CreateBooking(c *gin.Context) {
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	req.StudentID = c.GetString("student_id")
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}
	if req.ContactRef == "" {
		req.ContactRef = c.GetString("email")
	}

	result, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		h.writeCreateError(c, err)
		return
	}

	status := http.StatusCreated
	if result.Idempotent {
		status = http.StatusOK
	}
	response.Success(c, status, gin.H{"booking": result})
}

func (h *Handler) writeCreateError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid booking request")
	case errors.Is(err, ErrSessionNotFound):
		response.Error(c, http.StatusNotFound, "SESSION_NOT_FOUND", "Exam session not found or closed")
	case errors.Is(err, ErrDuplicateBooking):
		response.Error(c, http.StatusConflict, "DUPLICATE_BOOKING", "An active booking already exists for this date")
	case errors.Is(err, ErrSessionFull):
		response.Error(c, http.StatusConflict, "SESSION_FULL", "Exam session is at capacity")
	case errors.Is(err, ErrInsufficientCredits):
		response.Error(c, http.StatusPaymentRequired, "INSUFFICIENT_CREDITS", "No credits available for this exam type")
	case errors.Is(err, ErrLockBusy):
		response.Error(c, http.StatusServiceUnavailable, "LOCK_BUSY", "Booking is busy, please retry")
	default:
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create booking")
	}
}

func (h *Handler) CancelBooking(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid booking id")
		return
	}

	var body struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&body) // reason is optional

	result, err := h.service.Cancel(c.Request.Context(), id, c.GetString("student_id"), body.Reason)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "Booking not found")
		case errors.Is(err, ErrAccessDenied):
			response.Error(c, http.StatusForbidden, "ACCESS_DENIED", "Booking belongs to another student")
		case errors.Is(err, ErrAlreadyCancelled):
			response.Error(c, http.StatusConflict, "ALREADY_CANCELLED", "Booking is not active")
		case errors.Is(err, ErrLockBusy):
			response.Error(c, http.StatusServiceUnavailable, "LOCK_BUSY", "Booking is busy, please retry")
		default:
			response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to cancel booking")
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"cancellation": result})
}

func (h *Handler) ListMyBookings(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	bookings, err := h.service.ListMine(c.Request.Context(), c.GetString("student_id"), limit, offset)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load bookings")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"bookings": bookings})
}
