package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsefit/pulsefit-api/internal/models"
	"github.com/pulsefit/pulsefit-api/internal/repository"
	appErrors "github.com/pulsefit/pulsefit-api/pkg/errors"
)

// fakeBookingEngine mirrors the repository's admission and promotion rules in
// memory so service scenarios can run against real seat accounting.
type fakeBookingEngine struct {
	schedules map[string]*models.ClassSchedule
	bookings  map[string]*models.ClassBooking
	seq       int
}

func newFakeBookingEngine(schedules ...*models.ClassSchedule) *fakeBookingEngine {
	e := &fakeBookingEngine{
		schedules: make(map[string]*models.ClassSchedule),
		bookings:  make(map[string]*models.ClassBooking),
	}
	for _, s := range schedules {
		e.schedules[s.ID] = s
	}
	return e
}

func (e *fakeBookingEngine) FindByID(ctx context.Context, id string) (*models.ClassSchedule, error) {
	if s, ok := e.schedules[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func (e *fakeBookingEngine) occurrence(scheduleID string, date time.Time, status models.BookingStatus) []*models.ClassBooking {
	var out []*models.ClassBooking
	for _, b := range e.bookings {
		if b.ClassScheduleID == scheduleID && b.Date.Equal(date) && b.Status == status {
			out = append(out, b)
		}
	}
	return out
}

func (e *fakeBookingEngine) Reserve(ctx context.Context, booking *models.ClassBooking) error {
	schedule, ok := e.schedules[booking.ClassScheduleID]
	if !ok {
		return sql.ErrNoRows
	}
	confirmed := len(e.occurrence(booking.ClassScheduleID, booking.Date, models.BookingStatusConfirmed))
	if confirmed >= schedule.MaxCapacity {
		if !schedule.WaitlistEnabled {
			return repository.ErrClassFull
		}
		position := len(e.occurrence(booking.ClassScheduleID, booking.Date, models.BookingStatusWaitlist)) + 1
		booking.Status = models.BookingStatusWaitlist
		booking.WaitlistPosition = &position
	} else {
		booking.Status = models.BookingStatusConfirmed
		booking.WaitlistPosition = nil
	}
	e.seq++
	booking.ID = fmt.Sprintf("book-%d", e.seq)
	booking.CreatedAt = time.Unix(int64(e.seq), 0)
	stored := *booking
	e.bookings[booking.ID] = &stored
	return nil
}

func (e *fakeBookingEngine) CancelAndPromote(ctx context.Context, id string) (*models.ClassBooking, *models.ClassBooking, error) {
	booking, ok := e.bookings[id]
	if !ok {
		return nil, nil, sql.ErrNoRows
	}
	if booking.Status.Terminal() {
		return nil, nil, repository.ErrNotActive
	}
	wasConfirmed := booking.Status == models.BookingStatusConfirmed
	booking.Status = models.BookingStatusCancelled
	booking.WaitlistPosition = nil

	var promoted *models.ClassBooking
	if wasConfirmed {
		queue := e.occurrence(booking.ClassScheduleID, booking.Date, models.BookingStatusWaitlist)
		sort.Slice(queue, func(i, j int) bool { return *queue[i].WaitlistPosition < *queue[j].WaitlistPosition })
		if len(queue) > 0 {
			next := queue[0]
			next.Status = models.BookingStatusConfirmed
			next.WaitlistPosition = nil
			for i, rest := range queue[1:] {
				pos := i + 1
				rest.WaitlistPosition = &pos
			}
			promotedCopy := *next
			promoted = &promotedCopy
		}
	}
	cancelled := *booking
	return &cancelled, promoted, nil
}

func (e *fakeBookingEngine) CheckIn(ctx context.Context, id, checkedInBy string, at time.Time) (*models.ClassBooking, error) {
	booking, ok := e.bookings[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if booking.Status != models.BookingStatusConfirmed {
		return nil, repository.ErrNotConfirmed
	}
	booking.Status = models.BookingStatusAttended
	booking.WaitlistPosition = nil
	booking.CheckedInAt = &at
	booking.CheckedInBy = &checkedInBy
	result := *booking
	return &result, nil
}

func (e *fakeBookingEngine) ExistsActive(ctx context.Context, userID, scheduleID string, date time.Time) (bool, error) {
	for _, b := range e.bookings {
		if b.UserID == userID && b.ClassScheduleID == scheduleID && b.Date.Equal(date) &&
			(b.Status == models.BookingStatusConfirmed || b.Status == models.BookingStatusWaitlist) {
			return true, nil
		}
	}
	return false, nil
}

type fakeMemberReader struct {
	members map[string]*models.Member
}

func (m *fakeMemberReader) FindByID(ctx context.Context, id string) (*models.Member, error) {
	if member, ok := m.members[id]; ok {
		return member, nil
	}
	return nil, sql.ErrNoRows
}

func activeMembers(ids ...string) *fakeMemberReader {
	members := make(map[string]*models.Member)
	for _, id := range ids {
		members[id] = &models.Member{ID: id, Role: models.RoleMember, Active: true}
	}
	return &fakeMemberReader{members: members}
}

func newBookingService(engine *fakeBookingEngine, members *fakeMemberReader) *BookingService {
	return NewBookingService(engine, engine, members, nil, nil, nil, nil)
}

func TestBookingServiceCreateConfirmed(t *testing.T) {
	engine := newFakeBookingEngine(&models.ClassSchedule{ID: "sched-1", DayOfWeek: 1, StartTime: "07:00", MaxCapacity: 2, WaitlistEnabled: true})
	svc := newBookingService(engine, activeMembers("member-a"))

	booking, err := svc.Create(context.Background(), CreateBookingRequest{ClassScheduleID: "sched-1", Date: "2026-09-07", UserID: "member-a"})
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusConfirmed, booking.Status)
	assert.Nil(t, booking.WaitlistPosition)
	assert.False(t, booking.Waitlisted())
}

func TestBookingServiceCreateWaitlistOverflow(t *testing.T) {
	engine := newFakeBookingEngine(&models.ClassSchedule{ID: "sched-1", DayOfWeek: 1, StartTime: "07:00", MaxCapacity: 2, WaitlistEnabled: true})
	svc := newBookingService(engine, activeMembers("member-a", "member-b", "member-c", "member-d"))

	var last *models.ClassBooking
	for _, member := range []string{"member-a", "member-b", "member-c", "member-d"} {
		booking, err := svc.Create(context.Background(), CreateBookingRequest{ClassScheduleID: "sched-1", Date: "2026-09-07", UserID: member})
		require.NoError(t, err)
		last = booking
	}

	assert.Equal(t, models.BookingStatusWaitlist, last.Status)
	require.NotNil(t, last.WaitlistPosition)
	assert.Equal(t, 2, *last.WaitlistPosition)
	assert.True(t, last.Waitlisted())
}

func TestBookingServiceCreateClassFull(t *testing.T) {
	engine := newFakeBookingEngine(&models.ClassSchedule{ID: "sched-1", DayOfWeek: 1, StartTime: "07:00", MaxCapacity: 1, WaitlistEnabled: false})
	svc := newBookingService(engine, activeMembers("member-a", "member-b"))

	_, err := svc.Create(context.Background(), CreateBookingRequest{ClassScheduleID: "sched-1", Date: "2026-09-07", UserID: "member-a"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateBookingRequest{ClassScheduleID: "sched-1", Date: "2026-09-07", UserID: "member-b"})
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrClassFull.Code, appErr.Code)
	assert.Equal(t, appErrors.ErrClassFull.Status, appErr.Status)
}

func TestBookingServiceCreateDuplicate(t *testing.T) {
	engine := newFakeBookingEngine(&models.ClassSchedule{ID: "sched-1", DayOfWeek: 1, StartTime: "07:00", MaxCapacity: 5, WaitlistEnabled: true})
	svc := newBookingService(engine, activeMembers("member-a"))

	_, err := svc.Create(context.Background(), CreateBookingRequest{ClassScheduleID: "sched-1", Date: "2026-09-07", UserID: "member-a"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateBookingRequest{ClassScheduleID: "sched-1", Date: "2026-09-07", UserID: "member-a"})
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestBookingServiceCreateMemberMissing(t *testing.T) {
	engine := newFakeBookingEngine(&models.ClassSchedule{ID: "sched-1", DayOfWeek: 1, StartTime: "07:00", MaxCapacity: 5})
	svc := newBookingService(engine, &fakeMemberReader{})

	_, err := svc.Create(context.Background(), CreateBookingRequest{ClassScheduleID: "sched-1", Date: "2026-09-07", UserID: "ghost"})
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestBookingServiceCreateMemberInactive(t *testing.T) {
	engine := newFakeBookingEngine(&models.ClassSchedule{ID: "sched-1", DayOfWeek: 1, StartTime: "07:00", MaxCapacity: 5})
	members := &fakeMemberReader{members: map[string]*models.Member{
		"member-x": {ID: "member-x", Role: models.RoleMember, Active: false},
	}}
	svc := newBookingService(engine, members)

	_, err := svc.Create(context.Background(), CreateBookingRequest{ClassScheduleID: "sched-1", Date: "2026-09-07", UserID: "member-x"})
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestBookingServiceCreateScheduleMissing(t *testing.T) {
	engine := newFakeBookingEngine()
	svc := newBookingService(engine, activeMembers("member-a"))

	_, err := svc.Create(context.Background(), CreateBookingRequest{ClassScheduleID: "missing", Date: "2026-09-07", UserID: "member-a"})
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestBookingServiceCreateValidation(t *testing.T) {
	engine := newFakeBookingEngine()
	svc := newBookingService(engine, activeMembers("member-a"))

	_, err := svc.Create(context.Background(), CreateBookingRequest{Date: "2026-09-07", UserID: "member-a"})
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)

	_, err = svc.Create(context.Background(), CreateBookingRequest{ClassScheduleID: "sched-1", Date: "07/09/2026", UserID: "member-a"})
	appErr = appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestBookingServiceCreateResolvesNextOccurrence(t *testing.T) {
	engine := newFakeBookingEngine(&models.ClassSchedule{ID: "sched-1", DayOfWeek: 3, StartTime: "18:00", MaxCapacity: 5, WaitlistEnabled: true})
	svc := newBookingService(engine, activeMembers("member-a"))
	// Monday 2026-08-31.
	svc.now = func() time.Time { return time.Date(2026, time.August, 31, 10, 0, 0, 0, time.UTC) }

	booking, err := svc.Create(context.Background(), CreateBookingRequest{ClassScheduleID: "sched-1", UserID: "member-a"})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.September, 2, 0, 0, 0, 0, time.UTC), booking.Date)
}

func TestBookingServiceCancelPromotesLongestWaiting(t *testing.T) {
	engine := newFakeBookingEngine(&models.ClassSchedule{ID: "sched-1", DayOfWeek: 1, StartTime: "07:00", MaxCapacity: 2, WaitlistEnabled: true})
	svc := newBookingService(engine, activeMembers("member-a", "member-b", "member-c", "member-d"))

	ids := make(map[string]string)
	for _, member := range []string{"member-a", "member-b", "member-c", "member-d"} {
		booking, err := svc.Create(context.Background(), CreateBookingRequest{ClassScheduleID: "sched-1", Date: "2026-09-07", UserID: member})
		require.NoError(t, err)
		ids[member] = booking.ID
	}

	cancelled, err := svc.Cancel(context.Background(), ids["member-a"])
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, cancelled.Status)

	promoted := engine.bookings[ids["member-c"]]
	assert.Equal(t, models.BookingStatusConfirmed, promoted.Status)
	assert.Nil(t, promoted.WaitlistPosition)

	renumbered := engine.bookings[ids["member-d"]]
	assert.Equal(t, models.BookingStatusWaitlist, renumbered.Status)
	require.NotNil(t, renumbered.WaitlistPosition)
	assert.Equal(t, 1, *renumbered.WaitlistPosition)

	// Cancelling the remaining waitlist entry promotes nobody.
	_, err = svc.Cancel(context.Background(), ids["member-d"])
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusConfirmed, engine.bookings[ids["member-b"]].Status)
	assert.Equal(t, models.BookingStatusConfirmed, engine.bookings[ids["member-c"]].Status)
	assert.Empty(t, engine.occurrence("sched-1", time.Date(2026, time.September, 7, 0, 0, 0, 0, time.UTC), models.BookingStatusWaitlist))
}

func TestBookingServiceCancelNotFound(t *testing.T) {
	engine := newFakeBookingEngine()
	svc := newBookingService(engine, activeMembers())

	_, err := svc.Cancel(context.Background(), "missing")
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestBookingServiceCheckIn(t *testing.T) {
	engine := newFakeBookingEngine(&models.ClassSchedule{ID: "sched-1", DayOfWeek: 1, StartTime: "07:00", MaxCapacity: 2, WaitlistEnabled: true})
	svc := newBookingService(engine, activeMembers("member-a"))

	created, err := svc.Create(context.Background(), CreateBookingRequest{ClassScheduleID: "sched-1", Date: "2026-09-07", UserID: "member-a"})
	require.NoError(t, err)

	booking, err := svc.CheckIn(context.Background(), created.ID, "coach-1")
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusAttended, booking.Status)
	require.NotNil(t, booking.CheckedInAt)
	require.NotNil(t, booking.CheckedInBy)
	assert.Equal(t, "coach-1", *booking.CheckedInBy)
}

func TestBookingServiceCheckInNotFound(t *testing.T) {
	engine := newFakeBookingEngine()
	svc := newBookingService(engine, activeMembers())

	_, err := svc.CheckIn(context.Background(), "missing", "coach-1")
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

// Checking in a waitlisted booking is rejected with a conflict; the booking
// keeps its queue slot instead of jumping to attended.
func TestBookingServiceCheckInWaitlistedRejected(t *testing.T) {
	engine := newFakeBookingEngine(&models.ClassSchedule{ID: "sched-1", DayOfWeek: 1, StartTime: "07:00", MaxCapacity: 1, WaitlistEnabled: true})
	svc := newBookingService(engine, activeMembers("member-a", "member-b"))

	_, err := svc.Create(context.Background(), CreateBookingRequest{ClassScheduleID: "sched-1", Date: "2026-09-07", UserID: "member-a"})
	require.NoError(t, err)
	waitlisted, err := svc.Create(context.Background(), CreateBookingRequest{ClassScheduleID: "sched-1", Date: "2026-09-07", UserID: "member-b"})
	require.NoError(t, err)
	require.Equal(t, models.BookingStatusWaitlist, waitlisted.Status)

	_, err = svc.CheckIn(context.Background(), waitlisted.ID, "coach-1")
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)

	stored := engine.bookings[waitlisted.ID]
	assert.Equal(t, models.BookingStatusWaitlist, stored.Status)
	require.NotNil(t, stored.WaitlistPosition)
	assert.Equal(t, 1, *stored.WaitlistPosition)
}

func TestBookingServiceCheckInCancelledRejected(t *testing.T) {
	engine := newFakeBookingEngine(&models.ClassSchedule{ID: "sched-1", DayOfWeek: 1, StartTime: "07:00", MaxCapacity: 2, WaitlistEnabled: true})
	svc := newBookingService(engine, activeMembers("member-a"))

	created, err := svc.Create(context.Background(), CreateBookingRequest{ClassScheduleID: "sched-1", Date: "2026-09-07", UserID: "member-a"})
	require.NoError(t, err)
	_, err = svc.Cancel(context.Background(), created.ID)
	require.NoError(t, err)

	_, err = svc.CheckIn(context.Background(), created.ID, "coach-1")
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Equal(t, models.BookingStatusCancelled, engine.bookings[created.ID].Status)
}

func TestBookingServiceCancelTerminalRejected(t *testing.T) {
	engine := newFakeBookingEngine(&models.ClassSchedule{ID: "sched-1", DayOfWeek: 1, StartTime: "07:00", MaxCapacity: 2, WaitlistEnabled: true})
	svc := newBookingService(engine, activeMembers("member-a"))

	created, err := svc.Create(context.Background(), CreateBookingRequest{ClassScheduleID: "sched-1", Date: "2026-09-07", UserID: "member-a"})
	require.NoError(t, err)
	_, err = svc.CheckIn(context.Background(), created.ID, "coach-1")
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), created.ID)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Equal(t, models.BookingStatusAttended, engine.bookings[created.ID].Status)
}
