package models

import "time"

// BookingStatus represents the lifecycle state of a class booking.
type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusWaitlist  BookingStatus = "waitlist"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusAttended  BookingStatus = "attended"
)

// Valid returns true when the status is a supported value.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusConfirmed, BookingStatusWaitlist, BookingStatusCancelled, BookingStatusAttended:
		return true
	default:
		return false
	}
}

// Active reports whether the booking still holds or queues for a seat.
func (s BookingStatus) Active() bool {
	return s == BookingStatusConfirmed || s == BookingStatusWaitlist
}

// Terminal reports whether no further transition is allowed.
func (s BookingStatus) Terminal() bool {
	return s == BookingStatusCancelled || s == BookingStatusAttended
}

// ClassBooking is one member's seat reservation for a single occurrence of a
// weekly-recurring class. Waitlisted rows carry a position that stays dense
// (1..N, no gaps) among waitlist rows sharing the same schedule and date.
type ClassBooking struct {
	ID               string        `db:"id" json:"id"`
	ClassScheduleID  string        `db:"class_schedule_id" json:"class_schedule_id"`
	UserID           string        `db:"user_id" json:"user_id"`
	Date             time.Time     `db:"date" json:"date"`
	Status           BookingStatus `db:"status" json:"status"`
	WaitlistPosition *int          `db:"waitlist_position" json:"waitlist_position,omitempty"`
	CheckedInAt      *time.Time    `db:"checked_in_at" json:"checked_in_at,omitempty"`
	CheckedInBy      *string       `db:"checked_in_by" json:"checked_in_by,omitempty"`
	CreatedAt        time.Time     `db:"created_at" json:"created_at"`
}

// Waitlisted reports whether the booking currently queues for a seat.
func (b *ClassBooking) Waitlisted() bool {
	return b.Status == BookingStatusWaitlist
}

// BookingDetail enriches a booking with its schedule projection for the
// upcoming-bookings read side.
type BookingDetail struct {
	ClassBooking
	ClassName string `db:"class_name" json:"class_name"`
	DayOfWeek int    `db:"day_of_week" json:"day_of_week"`
	StartTime string `db:"start_time" json:"start_time"`
	EndTime   string `db:"end_time" json:"end_time"`
}

// RosterEntry enriches a booking with the owner's public profile fields.
type RosterEntry struct {
	ClassBooking
	MemberName  string  `db:"member_name" json:"member_name"`
	MemberEmail string  `db:"member_email" json:"member_email"`
	AvatarURL   *string `db:"avatar_url" json:"avatar_url,omitempty"`
}
