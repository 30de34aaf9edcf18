package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/pulsefit/pulsefit-api/internal/models"
)

const scheduleColumns = `id, name, coach_id, day_of_week, start_time, end_time, max_capacity, waitlist_enabled, created_at, updated_at`

// ClassScheduleRepository handles persistence of weekly class schedules.
type ClassScheduleRepository struct {
	db *sqlx.DB
}

// NewClassScheduleRepository constructs the repository.
func NewClassScheduleRepository(db *sqlx.DB) *ClassScheduleRepository {
	return &ClassScheduleRepository{db: db}
}

// List returns schedules filtered by the provided criteria.
func (r *ClassScheduleRepository) List(ctx context.Context, filter models.ClassScheduleFilter) ([]models.ClassSchedule, int, error) {
	base := "FROM class_schedules"
	var conditions []string
	var args []interface{}

	if filter.CoachID != "" {
		conditions = append(conditions, fmt.Sprintf("coach_id = $%d", len(args)+1))
		args = append(args, filter.CoachID)
	}
	if filter.DayOfWeek != nil {
		conditions = append(conditions, fmt.Sprintf("day_of_week = $%d", len(args)+1))
		args = append(args, *filter.DayOfWeek)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY day_of_week ASC, start_time ASC LIMIT %d OFFSET %d",
		scheduleColumns, base+clause, size, offset)

	var schedules []models.ClassSchedule
	if err := r.db.SelectContext(ctx, &schedules, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list schedules: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count schedules: %w", err)
	}
	return schedules, total, nil
}

// FindByID returns a schedule by its ID.
func (r *ClassScheduleRepository) FindByID(ctx context.Context, id string) (*models.ClassSchedule, error) {
	query := fmt.Sprintf("SELECT %s FROM class_schedules WHERE id = $1", scheduleColumns)
	var schedule models.ClassSchedule
	if err := r.db.GetContext(ctx, &schedule, query, id); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// Create persists a new schedule entry.
func (r *ClassScheduleRepository) Create(ctx context.Context, schedule *models.ClassSchedule) error {
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if schedule.CreatedAt.IsZero() {
		schedule.CreatedAt = now
	}
	schedule.UpdatedAt = now
	const query = `INSERT INTO class_schedules (id, name, coach_id, day_of_week, start_time, end_time, max_capacity, waitlist_enabled, created_at, updated_at)
        VALUES (:id, :name, :coach_id, :day_of_week, :start_time, :end_time, :max_capacity, :waitlist_enabled, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, schedule); err != nil {
		return fmt.Errorf("create schedule: %w", err)
	}
	return nil
}

// Update rewrites the mutable fields of a schedule entry.
func (r *ClassScheduleRepository) Update(ctx context.Context, schedule *models.ClassSchedule) error {
	schedule.UpdatedAt = time.Now().UTC()
	const query = `UPDATE class_schedules SET name = :name, coach_id = :coach_id, day_of_week = :day_of_week,
        start_time = :start_time, end_time = :end_time, max_capacity = :max_capacity,
        waitlist_enabled = :waitlist_enabled, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, schedule); err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}
	return nil
}

// Delete removes a schedule entry.
func (r *ClassScheduleRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM class_schedules WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	return nil
}
