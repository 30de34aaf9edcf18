package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/pulsefit/pulsefit-api/internal/models"
	appErrors "github.com/pulsefit/pulsefit-api/pkg/errors"
)

type bookingReader interface {
	ListUpcomingByUser(ctx context.Context, userID string, from time.Time) ([]models.BookingDetail, error)
	ListRoster(ctx context.Context, scheduleID string, date time.Time) ([]models.RosterEntry, error)
	ExistsActive(ctx context.Context, userID, scheduleID string, date time.Time) (bool, error)
	ListByUser(ctx context.Context, userID string) ([]models.BookingDetail, error)
}

// BookingQueryService is the read side of class booking: filtered and ordered
// projections over the booking table with no invariants of its own beyond the
// ordering contracts.
type BookingQueryService struct {
	repo   bookingReader
	cache  *CacheService
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewBookingQueryService constructs BookingQueryService.
func NewBookingQueryService(repo bookingReader, cache *CacheService, rosterTTL time.Duration, logger *zap.Logger) *BookingQueryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingQueryService{repo: repo, cache: cache, ttl: rosterTTL, logger: logger, now: time.Now}
}

// UpcomingBookings returns the member's active bookings from today onward,
// ordered by date then class start time.
func (s *BookingQueryService) UpcomingBookings(ctx context.Context, userID string) ([]models.BookingDetail, error) {
	from := startOfDay(s.now().UTC())
	bookings, err := s.repo.ListUpcomingByUser(ctx, userID, from)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list upcoming bookings")
	}
	return bookings, nil
}

// NextClass returns the first upcoming booking, or nil when there is none.
func (s *BookingQueryService) NextClass(ctx context.Context, userID string) (*models.BookingDetail, error) {
	bookings, err := s.UpcomingBookings(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(bookings) == 0 {
		return nil, nil
	}
	return &bookings[0], nil
}

// Roster returns every booking for one occurrence in creation order, enriched
// with member profiles. Served from cache when enabled.
func (s *BookingQueryService) Roster(ctx context.Context, scheduleID, rawDate string) ([]models.RosterEntry, error) {
	date, err := time.Parse(dateLayout, rawDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid roster date")
	}

	key := rosterCacheKey(scheduleID, date)
	if s.cache.Enabled() {
		var cached []models.RosterEntry
		hit, err := s.cache.Get(ctx, key, &cached)
		if err == nil && hit {
			return cached, nil
		}
	}

	roster, err := s.repo.ListRoster(ctx, scheduleID, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class roster")
	}

	if s.cache.Enabled() {
		if err := s.cache.Set(ctx, key, roster, s.ttl); err != nil {
			s.logger.Warn("roster cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return roster, nil
}

// HasUserBooked reports whether an active booking exists for the exact
// member, class and date triple.
func (s *BookingQueryService) HasUserBooked(ctx context.Context, userID, scheduleID, rawDate string) (bool, error) {
	date, err := time.Parse(dateLayout, rawDate)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking date")
	}
	booked, err := s.repo.ExistsActive(ctx, userID, scheduleID, date)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check booking")
	}
	return booked, nil
}

// History returns the member's full booking history, newest first.
func (s *BookingQueryService) History(ctx context.Context, userID string) ([]models.BookingDetail, error) {
	bookings, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list booking history")
	}
	return bookings, nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
