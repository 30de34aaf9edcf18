package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/pulsefit/pulsefit-api/internal/models"
)

// ErrClassFull is returned by Reserve when the class is at capacity and the
// waitlist is disabled.
var ErrClassFull = errors.New("class full")

// ErrNotActive is returned by CancelAndPromote when the booking is already in
// a terminal state (cancelled or attended).
var ErrNotActive = errors.New("booking not active")

// ErrNotConfirmed is returned by CheckIn when the booking exists but does not
// hold a confirmed seat.
var ErrNotConfirmed = errors.New("booking not confirmed")

const bookingColumns = `id, class_schedule_id, user_id, date, status, waitlist_position, checked_in_at, checked_in_by, created_at`

// BookingRepository handles persistence of class bookings. Admission and
// promotion run inside single transactions serialized per schedule row, so
// two concurrent requests can never both observe the same free seat or claim
// the same waitlist position.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository constructs the repository.
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

type scheduleSeats struct {
	MaxCapacity     int  `db:"max_capacity"`
	WaitlistEnabled bool `db:"waitlist_enabled"`
}

// Reserve admits a booking for one class occurrence. The schedule row lock is
// the serialization point for all seat accounting on that class. The booking's
// Status and WaitlistPosition are decided here: confirmed while seats remain,
// waitlisted at position count+1 once the class is full and the waitlist is
// enabled. Returns sql.ErrNoRows when the schedule does not exist and
// ErrClassFull when the class is full with the waitlist disabled.
func (r *BookingRepository) Reserve(ctx context.Context, booking *models.ClassBooking) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reserve: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var seats scheduleSeats
	if err := tx.GetContext(ctx, &seats,
		`SELECT max_capacity, waitlist_enabled FROM class_schedules WHERE id = $1 FOR UPDATE`,
		booking.ClassScheduleID); err != nil {
		if err == sql.ErrNoRows {
			return sql.ErrNoRows
		}
		return fmt.Errorf("lock schedule: %w", err)
	}

	var confirmed int
	if err := tx.GetContext(ctx, &confirmed,
		`SELECT COUNT(*) FROM class_bookings WHERE class_schedule_id = $1 AND date = $2 AND status = $3`,
		booking.ClassScheduleID, booking.Date, models.BookingStatusConfirmed); err != nil {
		return fmt.Errorf("count confirmed: %w", err)
	}

	if confirmed >= seats.MaxCapacity {
		if !seats.WaitlistEnabled {
			return ErrClassFull
		}
		var queued int
		if err := tx.GetContext(ctx, &queued,
			`SELECT COUNT(*) FROM class_bookings WHERE class_schedule_id = $1 AND date = $2 AND status = $3`,
			booking.ClassScheduleID, booking.Date, models.BookingStatusWaitlist); err != nil {
			return fmt.Errorf("count waitlist: %w", err)
		}
		position := queued + 1
		booking.Status = models.BookingStatusWaitlist
		booking.WaitlistPosition = &position
	} else {
		booking.Status = models.BookingStatusConfirmed
		booking.WaitlistPosition = nil
	}

	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = time.Now().UTC()
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO class_bookings (id, class_schedule_id, user_id, date, status, waitlist_position, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		booking.ID, booking.ClassScheduleID, booking.UserID, booking.Date,
		booking.Status, booking.WaitlistPosition, booking.CreatedAt); err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reserve: %w", err)
	}
	return nil
}

// CancelAndPromote marks the booking cancelled and, when the cancelled row
// held a confirmed seat, advances the lowest-position waitlisted booking for
// the same occurrence into it within the same transaction. Cancelling a
// waitlisted row only vacates its queue slot. Returns the cancelled booking
// and the promoted one when a promotion happened, sql.ErrNoRows when the
// booking does not exist, or ErrNotActive when it is already terminal.
func (r *BookingRepository) CancelAndPromote(ctx context.Context, id string) (*models.ClassBooking, *models.ClassBooking, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin cancel: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var booking models.ClassBooking
	if err := tx.GetContext(ctx, &booking,
		fmt.Sprintf(`SELECT %s FROM class_bookings WHERE id = $1 FOR UPDATE`, bookingColumns), id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, sql.ErrNoRows
		}
		return nil, nil, fmt.Errorf("load booking: %w", err)
	}
	if booking.Status.Terminal() {
		return nil, nil, ErrNotActive
	}

	// Serialize against Reserve on the same class.
	var scheduleID string
	if err := tx.GetContext(ctx, &scheduleID,
		`SELECT id FROM class_schedules WHERE id = $1 FOR UPDATE`, booking.ClassScheduleID); err != nil && err != sql.ErrNoRows {
		return nil, nil, fmt.Errorf("lock schedule: %w", err)
	}

	wasConfirmed := booking.Status == models.BookingStatusConfirmed

	if _, err := tx.ExecContext(ctx,
		`UPDATE class_bookings SET status = $2, waitlist_position = NULL WHERE id = $1`,
		booking.ID, models.BookingStatusCancelled); err != nil {
		return nil, nil, fmt.Errorf("cancel booking: %w", err)
	}
	booking.Status = models.BookingStatusCancelled
	booking.WaitlistPosition = nil

	var promoted *models.ClassBooking
	if wasConfirmed {
		promoted, err = r.promote(ctx, tx, booking.ClassScheduleID, booking.Date)
		if err != nil {
			return nil, nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit cancel: %w", err)
	}
	return &booking, promoted, nil
}

// promote confirms the longest-waiting waitlisted booking for the occurrence
// and renumbers the remaining queue sequentially from 1 preserving order.
// No-op when the waitlist is empty.
func (r *BookingRepository) promote(ctx context.Context, tx *sqlx.Tx, scheduleID string, date time.Time) (*models.ClassBooking, error) {
	var next models.ClassBooking
	err := tx.GetContext(ctx, &next,
		fmt.Sprintf(`SELECT %s FROM class_bookings
        WHERE class_schedule_id = $1 AND date = $2 AND status = $3
        ORDER BY waitlist_position ASC LIMIT 1`, bookingColumns),
		scheduleID, date, models.BookingStatusWaitlist)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("next waitlisted: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE class_bookings SET status = $2, waitlist_position = NULL WHERE id = $1`,
		next.ID, models.BookingStatusConfirmed); err != nil {
		return nil, fmt.Errorf("promote booking: %w", err)
	}
	next.Status = models.BookingStatusConfirmed
	next.WaitlistPosition = nil

	var remaining []string
	if err := tx.SelectContext(ctx, &remaining,
		`SELECT id FROM class_bookings
        WHERE class_schedule_id = $1 AND date = $2 AND status = $3
        ORDER BY waitlist_position ASC, created_at ASC`,
		scheduleID, date, models.BookingStatusWaitlist); err != nil {
		return nil, fmt.Errorf("list waitlist: %w", err)
	}
	for i, bookingID := range remaining {
		if _, err := tx.ExecContext(ctx,
			`UPDATE class_bookings SET waitlist_position = $2 WHERE id = $1`,
			bookingID, i+1); err != nil {
			return nil, fmt.Errorf("renumber waitlist: %w", err)
		}
	}

	return &next, nil
}

// CheckIn marks a confirmed booking attended. Waitlisted rows keep their
// queue slot and terminal rows stay terminal: the update only matches a
// confirmed booking. Returns sql.ErrNoRows when the booking does not exist
// and ErrNotConfirmed when it exists in any other state.
func (r *BookingRepository) CheckIn(ctx context.Context, id, checkedInBy string, at time.Time) (*models.ClassBooking, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE class_bookings SET status = $2, waitlist_position = NULL, checked_in_at = $3, checked_in_by = $4 WHERE id = $1 AND status = $5`,
		id, models.BookingStatusAttended, at, checkedInBy, models.BookingStatusConfirmed)
	if err != nil {
		return nil, fmt.Errorf("check in booking: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("check in booking: %w", err)
	}
	if affected == 0 {
		if _, err := r.FindByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrNotConfirmed
	}
	return r.FindByID(ctx, id)
}

// FindByID returns a booking by its ID.
func (r *BookingRepository) FindByID(ctx context.Context, id string) (*models.ClassBooking, error) {
	var booking models.ClassBooking
	if err := r.db.GetContext(ctx, &booking,
		fmt.Sprintf(`SELECT %s FROM class_bookings WHERE id = $1`, bookingColumns), id); err != nil {
		return nil, err
	}
	return &booking, nil
}

// ListUpcomingByUser returns the member's active bookings from the given date
// onward, ordered by date then class start time.
func (r *BookingRepository) ListUpcomingByUser(ctx context.Context, userID string, from time.Time) ([]models.BookingDetail, error) {
	const query = `SELECT b.id, b.class_schedule_id, b.user_id, b.date, b.status, b.waitlist_position,
        b.checked_in_at, b.checked_in_by, b.created_at,
        s.name AS class_name, s.day_of_week, s.start_time, s.end_time
        FROM class_bookings b
        JOIN class_schedules s ON s.id = b.class_schedule_id
        WHERE b.user_id = $1 AND b.date >= $2 AND b.status IN ($3, $4)
        ORDER BY b.date ASC, s.start_time ASC`
	var bookings []models.BookingDetail
	if err := r.db.SelectContext(ctx, &bookings, query,
		userID, from, models.BookingStatusConfirmed, models.BookingStatusWaitlist); err != nil {
		return nil, fmt.Errorf("list upcoming bookings: %w", err)
	}
	return bookings, nil
}

// ListRoster returns every booking for one occurrence regardless of status,
// in creation order, enriched with member profile fields.
func (r *BookingRepository) ListRoster(ctx context.Context, scheduleID string, date time.Time) ([]models.RosterEntry, error) {
	const query = `SELECT b.id, b.class_schedule_id, b.user_id, b.date, b.status, b.waitlist_position,
        b.checked_in_at, b.checked_in_by, b.created_at,
        m.full_name AS member_name, m.email AS member_email, m.avatar_url
        FROM class_bookings b
        JOIN members m ON m.id = b.user_id
        WHERE b.class_schedule_id = $1 AND b.date = $2
        ORDER BY b.created_at ASC`
	var roster []models.RosterEntry
	if err := r.db.SelectContext(ctx, &roster, query, scheduleID, date); err != nil {
		return nil, fmt.Errorf("list class roster: %w", err)
	}
	return roster, nil
}

// ExistsActive checks whether the member already holds an active booking for
// the exact class occurrence.
func (r *BookingRepository) ExistsActive(ctx context.Context, userID, scheduleID string, date time.Time) (bool, error) {
	const query = `SELECT 1 FROM class_bookings
        WHERE user_id = $1 AND class_schedule_id = $2 AND date = $3 AND status IN ($4, $5) LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query,
		userID, scheduleID, date, models.BookingStatusConfirmed, models.BookingStatusWaitlist); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check active booking: %w", err)
	}
	return true, nil
}

// ListByUser returns the member's full booking history, newest first.
func (r *BookingRepository) ListByUser(ctx context.Context, userID string) ([]models.BookingDetail, error) {
	const query = `SELECT b.id, b.class_schedule_id, b.user_id, b.date, b.status, b.waitlist_position,
        b.checked_in_at, b.checked_in_by, b.created_at,
        s.name AS class_name, s.day_of_week, s.start_time, s.end_time
        FROM class_bookings b
        JOIN class_schedules s ON s.id = b.class_schedule_id
        WHERE b.user_id = $1
        ORDER BY b.date DESC, b.created_at DESC`
	var bookings []models.BookingDetail
	if err := r.db.SelectContext(ctx, &bookings, query, userID); err != nil {
		return nil, fmt.Errorf("list booking history: %w", err)
	}
	return bookings, nil
}
