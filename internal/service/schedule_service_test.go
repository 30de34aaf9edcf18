package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsefit/pulsefit-api/internal/models"
	appErrors "github.com/pulsefit/pulsefit-api/pkg/errors"
)

type fakeScheduleRepo struct {
	schedules map[string]models.ClassSchedule
	deleted   []string
}

func (f *fakeScheduleRepo) List(ctx context.Context, filter models.ClassScheduleFilter) ([]models.ClassSchedule, int, error) {
	var out []models.ClassSchedule
	for _, s := range f.schedules {
		out = append(out, s)
	}
	return out, len(out), nil
}

func (f *fakeScheduleRepo) FindByID(ctx context.Context, id string) (*models.ClassSchedule, error) {
	if s, ok := f.schedules[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeScheduleRepo) Create(ctx context.Context, schedule *models.ClassSchedule) error {
	if f.schedules == nil {
		f.schedules = make(map[string]models.ClassSchedule)
	}
	if schedule.ID == "" {
		schedule.ID = "new-sched"
	}
	f.schedules[schedule.ID] = *schedule
	return nil
}

func (f *fakeScheduleRepo) Update(ctx context.Context, schedule *models.ClassSchedule) error {
	f.schedules[schedule.ID] = *schedule
	return nil
}

func (f *fakeScheduleRepo) Delete(ctx context.Context, id string) error {
	delete(f.schedules, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func TestScheduleServiceCreate(t *testing.T) {
	repo := &fakeScheduleRepo{}
	svc := NewScheduleService(repo, nil, nil)

	schedule, err := svc.Create(context.Background(), CreateScheduleRequest{
		Name: "Morning Yoga", DayOfWeek: 1, StartTime: "07:00", EndTime: "08:00", MaxCapacity: 12, WaitlistEnabled: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "new-sched", schedule.ID)
	assert.Equal(t, 12, schedule.MaxCapacity)
}

func TestScheduleServiceCreateValidation(t *testing.T) {
	svc := NewScheduleService(&fakeScheduleRepo{}, nil, nil)

	_, err := svc.Create(context.Background(), CreateScheduleRequest{
		Name: "Bad Clock", DayOfWeek: 1, StartTime: "7am", EndTime: "08:00",
	})
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)

	_, err = svc.Create(context.Background(), CreateScheduleRequest{
		Name: "Bad Day", DayOfWeek: 7, StartTime: "07:00", EndTime: "08:00",
	})
	appErr = appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestScheduleServiceUpdate(t *testing.T) {
	repo := &fakeScheduleRepo{schedules: map[string]models.ClassSchedule{
		"sched-1": {ID: "sched-1", Name: "Morning Yoga", DayOfWeek: 1, StartTime: "07:00", EndTime: "08:00", MaxCapacity: 12},
	}}
	svc := NewScheduleService(repo, nil, nil)

	schedule, err := svc.Update(context.Background(), "sched-1", UpdateScheduleRequest{
		Name: "Sunrise Yoga", DayOfWeek: 1, StartTime: "06:30", EndTime: "07:30", MaxCapacity: 15, WaitlistEnabled: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "Sunrise Yoga", schedule.Name)
	assert.Equal(t, 15, repo.schedules["sched-1"].MaxCapacity)
}

func TestScheduleServiceUpdateNotFound(t *testing.T) {
	svc := NewScheduleService(&fakeScheduleRepo{}, nil, nil)

	_, err := svc.Update(context.Background(), "missing", UpdateScheduleRequest{
		Name: "Ghost", DayOfWeek: 1, StartTime: "07:00", EndTime: "08:00",
	})
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestScheduleServiceDelete(t *testing.T) {
	repo := &fakeScheduleRepo{schedules: map[string]models.ClassSchedule{
		"sched-1": {ID: "sched-1", Name: "Morning Yoga"},
	}}
	svc := NewScheduleService(repo, nil, nil)

	require.NoError(t, svc.Delete(context.Background(), "sched-1"))
	assert.Equal(t, []string{"sched-1"}, repo.deleted)

	err := svc.Delete(context.Background(), "sched-1")
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestNextOccurrenceDate(t *testing.T) {
	schedule := &models.ClassSchedule{DayOfWeek: 3, StartTime: "18:00"} // Wednesday

	// Monday before the class day.
	monday := time.Date(2026, time.August, 31, 10, 0, 0, 0, time.UTC)
	date, err := NextOccurrenceDate(schedule, monday)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.September, 2, 0, 0, 0, 0, time.UTC), date)

	// Wednesday before start time resolves to today.
	wednesdayMorning := time.Date(2026, time.September, 2, 9, 0, 0, 0, time.UTC)
	date, err = NextOccurrenceDate(schedule, wednesdayMorning)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.September, 2, 0, 0, 0, 0, time.UTC), date)

	// Wednesday at start time rolls to next week.
	wednesdayEvening := time.Date(2026, time.September, 2, 18, 0, 0, 0, time.UTC)
	date, err = NextOccurrenceDate(schedule, wednesdayEvening)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.September, 9, 0, 0, 0, 0, time.UTC), date)

	// Friday wraps into next week.
	friday := time.Date(2026, time.September, 4, 10, 0, 0, 0, time.UTC)
	date, err = NextOccurrenceDate(schedule, friday)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.September, 9, 0, 0, 0, 0, time.UTC), date)
}

func TestNextOccurrenceDateInvalidStartTime(t *testing.T) {
	schedule := &models.ClassSchedule{DayOfWeek: 1, StartTime: "sunrise"}

	_, err := NextOccurrenceDate(schedule, time.Date(2026, time.August, 31, 10, 0, 0, 0, time.UTC))
	assert.Error(t, err)
}

func TestScheduleServiceNextOccurrenceInvalidStartTime(t *testing.T) {
	repo := &fakeScheduleRepo{schedules: map[string]models.ClassSchedule{
		"sched-1": {ID: "sched-1", Name: "HIIT", DayOfWeek: 4, StartTime: "6pm", EndTime: "19:00"},
	}}
	svc := NewScheduleService(repo, nil, nil)

	_, err := svc.NextOccurrence(context.Background(), "sched-1")
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErr.Code)
}

func TestScheduleServiceNextOccurrence(t *testing.T) {
	repo := &fakeScheduleRepo{schedules: map[string]models.ClassSchedule{
		"sched-1": {ID: "sched-1", Name: "HIIT", DayOfWeek: 4, StartTime: "18:00", EndTime: "19:00"},
	}}
	svc := NewScheduleService(repo, nil, nil)
	svc.now = func() time.Time { return time.Date(2026, time.August, 31, 10, 0, 0, 0, time.UTC) }

	date, err := svc.NextOccurrence(context.Background(), "sched-1")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.September, 3, 0, 0, 0, 0, time.UTC), date)

	_, err = svc.NextOccurrence(context.Background(), "missing")
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
