package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/pulsefit/pulsefit-api/internal/models"
)

// MemberRepository reads member profiles. Profile lifecycle is owned by the
// identity service; this API only consumes the projection.
type MemberRepository struct {
	db *sqlx.DB
}

// NewMemberRepository constructs the repository.
func NewMemberRepository(db *sqlx.DB) *MemberRepository {
	return &MemberRepository{db: db}
}

// FindByID returns a member profile by its ID.
func (r *MemberRepository) FindByID(ctx context.Context, id string) (*models.Member, error) {
	const query = `SELECT id, full_name, email, role, avatar_url, active, created_at FROM members WHERE id = $1`
	var member models.Member
	if err := r.db.GetContext(ctx, &member, query, id); err != nil {
		return nil, err
	}
	return &member, nil
}

// ListByIDs returns the profiles for the given member IDs.
func (r *MemberRepository) ListByIDs(ctx context.Context, ids []string) ([]models.Member, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT id, full_name, email, role, avatar_url, active, created_at FROM members WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("build member query: %w", err)
	}
	query = r.db.Rebind(query)
	var members []models.Member
	if err := r.db.SelectContext(ctx, &members, query, args...); err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return members, nil
}
