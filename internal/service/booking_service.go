package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/pulsefit/pulsefit-api/internal/models"
	"github.com/pulsefit/pulsefit-api/internal/repository"
	appErrors "github.com/pulsefit/pulsefit-api/pkg/errors"
)

const dateLayout = "2006-01-02"

type bookingWriter interface {
	Reserve(ctx context.Context, booking *models.ClassBooking) error
	CancelAndPromote(ctx context.Context, id string) (*models.ClassBooking, *models.ClassBooking, error)
	CheckIn(ctx context.Context, id, checkedInBy string, at time.Time) (*models.ClassBooking, error)
	ExistsActive(ctx context.Context, userID, scheduleID string, date time.Time) (bool, error)
}

type scheduleReader interface {
	FindByID(ctx context.Context, id string) (*models.ClassSchedule, error)
}

type memberReader interface {
	FindByID(ctx context.Context, id string) (*models.Member, error)
}

// CreateBookingRequest describes a booking creation request. When Date is
// omitted the next occurrence of the schedule is resolved server-side.
type CreateBookingRequest struct {
	ClassScheduleID string `json:"class_schedule_id" validate:"required"`
	Date            string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	UserID          string `json:"-"`
}

// BookingService is the write side of class booking: admission, cancellation
// with waitlist promotion, and coach check-in.
type BookingService struct {
	repo      bookingWriter
	schedules scheduleReader
	members   memberReader
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewBookingService constructs BookingService.
func NewBookingService(repo bookingWriter, schedules scheduleReader, members memberReader, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *BookingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingService{repo: repo, schedules: schedules, members: members, cache: cache, metrics: metrics, validator: validate, logger: logger, now: time.Now}
}

// Create admits a booking for a class occurrence. The returned record carries
// whichever status the engine assigned; callers must inspect it rather than
// assume confirmation.
func (s *BookingService) Create(ctx context.Context, req CreateBookingRequest) (*models.ClassBooking, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking payload")
	}

	member, err := s.members.FindByID(ctx, req.UserID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "member not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load member")
	}
	if !member.Active {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "membership inactive")
	}

	var date time.Time
	if req.Date == "" {
		schedule, err := s.schedules.FindByID(ctx, req.ClassScheduleID)
		if err != nil {
			if err == sql.ErrNoRows {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "class schedule not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class schedule")
		}
		resolved, err := NextOccurrenceDate(schedule, s.now().UTC())
		if err != nil {
			s.logger.Error("schedule has invalid start time",
				zap.String("class_schedule_id", schedule.ID),
				zap.String("start_time", schedule.StartTime),
				zap.Error(err))
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "invalid schedule start time")
		}
		date = resolved
	} else {
		parsed, err := time.Parse(dateLayout, req.Date)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking date")
		}
		date = parsed
	}

	booked, err := s.repo.ExistsActive(ctx, req.UserID, req.ClassScheduleID, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate booking")
	}
	if booked {
		return nil, appErrors.Clone(appErrors.ErrConflict, "member already booked for this class")
	}

	booking := &models.ClassBooking{
		ClassScheduleID: req.ClassScheduleID,
		UserID:          req.UserID,
		Date:            date,
	}
	if err := s.repo.Reserve(ctx, booking); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class schedule not found")
		}
		if errors.Is(err, repository.ErrClassFull) {
			return nil, appErrors.ErrClassFull
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create booking")
	}

	s.logger.Info("booking created",
		zap.String("booking_id", booking.ID),
		zap.String("class_schedule_id", booking.ClassScheduleID),
		zap.String("status", string(booking.Status)))
	s.metrics.RecordBooking(string(booking.Status))
	s.invalidateRoster(ctx, booking.ClassScheduleID, booking.Date)
	return booking, nil
}

// Cancel marks the booking cancelled. When the cancelled row held a confirmed
// seat the longest-waiting waitlisted booking is promoted in the same
// transaction. The returned record is the cancelled booking, not the promoted
// one.
func (s *BookingService) Cancel(ctx context.Context, id string) (*models.ClassBooking, error) {
	cancelled, promoted, err := s.repo.CancelAndPromote(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		if errors.Is(err, repository.ErrNotActive) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "booking is already cancelled or attended")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel booking")
	}

	if promoted != nil {
		s.metrics.RecordPromotion()
		s.logger.Info("waitlist promotion",
			zap.String("cancelled_booking_id", cancelled.ID),
			zap.String("promoted_booking_id", promoted.ID),
			zap.String("class_schedule_id", cancelled.ClassScheduleID))
	}
	s.invalidateRoster(ctx, cancelled.ClassScheduleID, cancelled.Date)
	return cancelled, nil
}

// CheckIn marks a booking attended.
func (s *BookingService) CheckIn(ctx context.Context, id, checkedInBy string) (*models.ClassBooking, error) {
	booking, err := s.repo.CheckIn(ctx, id, checkedInBy, s.now().UTC())
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		if errors.Is(err, repository.ErrNotConfirmed) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "only confirmed bookings can be checked in")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check in booking")
	}
	s.invalidateRoster(ctx, booking.ClassScheduleID, booking.Date)
	return booking, nil
}

func (s *BookingService) invalidateRoster(ctx context.Context, scheduleID string, date time.Time) {
	if !s.cache.Enabled() {
		return
	}
	key := rosterCacheKey(scheduleID, date)
	if err := s.cache.Invalidate(ctx, key); err != nil {
		s.logger.Warn("roster cache invalidation failed", zap.String("key", key), zap.Error(err))
	}
}

func rosterCacheKey(scheduleID string, date time.Time) string {
	return fmt.Sprintf("roster:%s:%s", scheduleID, date.Format(dateLayout))
}
