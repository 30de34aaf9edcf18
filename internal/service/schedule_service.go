package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/pulsefit/pulsefit-api/internal/models"
	appErrors "github.com/pulsefit/pulsefit-api/pkg/errors"
)

const clockLayout = "15:04"

type scheduleRepository interface {
	List(ctx context.Context, filter models.ClassScheduleFilter) ([]models.ClassSchedule, int, error)
	FindByID(ctx context.Context, id string) (*models.ClassSchedule, error)
	Create(ctx context.Context, schedule *models.ClassSchedule) error
	Update(ctx context.Context, schedule *models.ClassSchedule) error
	Delete(ctx context.Context, id string) error
}

// CreateScheduleRequest describes schedule creation payload.
type CreateScheduleRequest struct {
	Name            string  `json:"name" validate:"required"`
	CoachID         *string `json:"coach_id"`
	DayOfWeek       int     `json:"day_of_week" validate:"gte=0,lte=6"`
	StartTime       string  `json:"start_time" validate:"required,datetime=15:04"`
	EndTime         string  `json:"end_time" validate:"required,datetime=15:04"`
	MaxCapacity     int     `json:"max_capacity" validate:"gte=0"`
	WaitlistEnabled bool    `json:"waitlist_enabled"`
}

// UpdateScheduleRequest describes schedule update payload.
type UpdateScheduleRequest struct {
	Name            string  `json:"name" validate:"required"`
	CoachID         *string `json:"coach_id"`
	DayOfWeek       int     `json:"day_of_week" validate:"gte=0,lte=6"`
	StartTime       string  `json:"start_time" validate:"required,datetime=15:04"`
	EndTime         string  `json:"end_time" validate:"required,datetime=15:04"`
	MaxCapacity     int     `json:"max_capacity" validate:"gte=0"`
	WaitlistEnabled bool    `json:"waitlist_enabled"`
}

// ScheduleService manages weekly class schedules and resolves recurring
// entries to concrete occurrence dates.
type ScheduleService struct {
	repo      scheduleRepository
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewScheduleService constructs ScheduleService.
func NewScheduleService(repo scheduleRepository, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{repo: repo, validator: validate, logger: logger, now: time.Now}
}

// List returns schedules with pagination metadata.
func (s *ScheduleService) List(ctx context.Context, filter models.ClassScheduleFilter) ([]models.ClassSchedule, *models.Pagination, error) {
	schedules, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedules")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return schedules, pagination, nil
}

// Get returns one schedule.
func (s *ScheduleService) Get(ctx context.Context, id string) (*models.ClassSchedule, error) {
	schedule, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	return schedule, nil
}

// Create registers a new weekly schedule entry.
func (s *ScheduleService) Create(ctx context.Context, req CreateScheduleRequest) (*models.ClassSchedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}
	schedule := &models.ClassSchedule{
		Name:            req.Name,
		CoachID:         req.CoachID,
		DayOfWeek:       req.DayOfWeek,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		MaxCapacity:     req.MaxCapacity,
		WaitlistEnabled: req.WaitlistEnabled,
	}
	if err := s.repo.Create(ctx, schedule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create schedule")
	}
	return schedule, nil
}

// Update rewrites a schedule entry.
func (s *ScheduleService) Update(ctx context.Context, id string, req UpdateScheduleRequest) (*models.ClassSchedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}
	schedule, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	schedule.Name = req.Name
	schedule.CoachID = req.CoachID
	schedule.DayOfWeek = req.DayOfWeek
	schedule.StartTime = req.StartTime
	schedule.EndTime = req.EndTime
	schedule.MaxCapacity = req.MaxCapacity
	schedule.WaitlistEnabled = req.WaitlistEnabled
	if err := s.repo.Update(ctx, schedule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update schedule")
	}
	return schedule, nil
}

// Delete removes a schedule entry.
func (s *ScheduleService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete schedule")
	}
	return nil
}

// NextOccurrence resolves the schedule's next concrete occurrence date.
func (s *ScheduleService) NextOccurrence(ctx context.Context, id string) (time.Time, error) {
	schedule, err := s.Get(ctx, id)
	if err != nil {
		return time.Time{}, err
	}
	date, err := NextOccurrenceDate(schedule, s.now().UTC())
	if err != nil {
		s.logger.Error("schedule has invalid start time",
			zap.String("class_schedule_id", schedule.ID),
			zap.String("start_time", schedule.StartTime),
			zap.Error(err))
		return time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "invalid schedule start time")
	}
	return date, nil
}

// NextOccurrenceDate returns the first date on or after now falling on the
// schedule's weekday. When today is that weekday but the class start time has
// already passed, the occurrence rolls to next week. StartTime is validated
// on write, so a parse failure means the stored row is corrupt and is
// reported rather than masked.
func NextOccurrenceDate(schedule *models.ClassSchedule, now time.Time) (time.Time, error) {
	start, err := time.Parse(clockLayout, schedule.StartTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse schedule start time %q: %w", schedule.StartTime, err)
	}

	today := startOfDay(now)
	delta := (schedule.DayOfWeek - int(now.Weekday()) + 7) % 7
	candidate := today.AddDate(0, 0, delta)

	if delta == 0 {
		startToday := today.Add(time.Duration(start.Hour())*time.Hour + time.Duration(start.Minute())*time.Minute)
		if !now.Before(startToday) {
			candidate = candidate.AddDate(0, 0, 7)
		}
	}

	return candidate, nil
}
