package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/corkboard/realtime-backend/internal/core/ports"
)

// MembershipRepository resolves project membership against the board
// application's database. The gateway only reads; the board owns the
// schema and its migrations.
type MembershipRepository struct {
	pool *pgxpool.Pool
}

// Ensure MembershipRepository implements the ports.MembershipResolver interface.
var _ ports.MembershipResolver = (*MembershipRepository)(nil)

// NewMembershipRepository creates a new membership repository.
func NewMembershipRepository(pool *pgxpool.Pool) *MembershipRepository {
	return &MembershipRepository{pool: pool}
}

// IsMember reports whether userID belongs to projectID.
func (r *MembershipRepository) IsMember(ctx context.Context, userID uuid.UUID, projectID string) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM project_members
			WHERE user_id = $1 AND project_id = $2
		)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, userID.String(), projectID).Scan(&exists); err != nil {
		return false, fmt.Errorf("membership lookup: %w", err)
	}
	return exists, nil
}
