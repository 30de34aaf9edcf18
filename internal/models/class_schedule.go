package models

import "time"

// ClassSchedule is a weekly-recurring class entry. A schedule recurs on
// DayOfWeek; individual occurrences are identified by a concrete date on the
// booking rows.
type ClassSchedule struct {
	ID              string    `db:"id" json:"id"`
	Name            string    `db:"name" json:"name"`
	CoachID         *string   `db:"coach_id" json:"coach_id,omitempty"`
	DayOfWeek       int       `db:"day_of_week" json:"day_of_week"`
	StartTime       string    `db:"start_time" json:"start_time"`
	EndTime         string    `db:"end_time" json:"end_time"`
	MaxCapacity     int       `db:"max_capacity" json:"max_capacity"`
	WaitlistEnabled bool      `db:"waitlist_enabled" json:"waitlist_enabled"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// ClassScheduleFilter scopes schedule listing queries.
type ClassScheduleFilter struct {
	CoachID   string
	DayOfWeek *int
	Page      int
	PageSize  int
}
