package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pulsefit/pulsefit-api/internal/service"
	appErrors "github.com/pulsefit/pulsefit-api/pkg/errors"
	"github.com/pulsefit/pulsefit-api/pkg/response"
)

// BookingHandler exposes class booking endpoints.
type BookingHandler struct {
	bookings *service.BookingService
	queries  *service.BookingQueryService
}

// NewBookingHandler constructs BookingHandler.
func NewBookingHandler(bookings *service.BookingService, queries *service.BookingQueryService) *BookingHandler {
	return &BookingHandler{bookings: bookings, queries: queries}
}

// Create godoc
// @Summary Book a class occurrence
// @Tags Bookings
// @Accept json
// @Produce json
// @Param payload body service.CreateBookingRequest true "Booking payload"
// @Success 201 {object} response.Envelope
// @Router /bookings [post]
func (h *BookingHandler) Create(c *gin.Context) {
	var req service.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	req.UserID = claims.UserID

	booking, err := h.bookings.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, booking)
}

// Cancel godoc
// @Summary Cancel a booking
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Envelope
// @Router /bookings/{id} [delete]
func (h *BookingHandler) Cancel(c *gin.Context) {
	booking, err := h.bookings.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, booking, nil)
}

// CheckIn godoc
// @Summary Check a member in to a class
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Envelope
// @Router /bookings/{id}/check-in [post]
func (h *BookingHandler) CheckIn(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	booking, err := h.bookings.CheckIn(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, booking, nil)
}

// Upcoming godoc
// @Summary List the caller's upcoming bookings
// @Tags Bookings
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /bookings/upcoming [get]
func (h *BookingHandler) Upcoming(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	bookings, err := h.queries.UpcomingBookings(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bookings, nil)
}

// Next godoc
// @Summary The caller's next booked class, if any
// @Tags Bookings
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /bookings/next [get]
func (h *BookingHandler) Next(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	booking, err := h.queries.NextClass(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, booking, nil)
}

// History godoc
// @Summary The caller's full booking history
// @Tags Bookings
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /bookings/history [get]
func (h *BookingHandler) History(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	bookings, err := h.queries.History(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bookings, nil)
}

// Check godoc
// @Summary Whether the caller already booked a class occurrence
// @Tags Bookings
// @Produce json
// @Param classScheduleId query string true "Class schedule ID"
// @Param date query string true "Occurrence date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /bookings/check [get]
func (h *BookingHandler) Check(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	scheduleID := c.Query("classScheduleId")
	date := c.Query("date")
	if scheduleID == "" || date == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "classScheduleId and date are required"))
		return
	}
	booked, err := h.queries.HasUserBooked(c.Request.Context(), claims.UserID, scheduleID, date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"booked": booked}, nil)
}

// Roster godoc
// @Summary Full roster for a class occurrence
// @Tags Bookings
// @Produce json
// @Param id path string true "Class schedule ID"
// @Param date query string true "Occurrence date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /class-schedules/{id}/roster [get]
func (h *BookingHandler) Roster(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date is required"))
		return
	}
	roster, err := h.queries.Roster(c.Request.Context(), c.Param("id"), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, roster, nil)
}
