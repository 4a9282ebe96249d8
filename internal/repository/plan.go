package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/marcos-wesley/ComunidadeANETI-sub000/internal/logger"
	"github.com/marcos-wesley/ComunidadeANETI-sub000/internal/model"
)

// PlanRepository reads the membership plan records owned by the back office.
// The messaging core never writes them.
type PlanRepository struct {
	pool *pgxpool.Pool
}

func NewPlanRepository(pool *pgxpool.Pool) *PlanRepository {
	return &PlanRepository{pool: pool}
}

func (r *PlanRepository) GetByUser(ctx context.Context, userID string) (*model.MembershipPlan, error) {
	defer logger.DeferLogDuration("plan.GetByUser", time.Now())()
	p := &model.MembershipPlan{}
	err := r.pool.QueryRow(ctx,
		`SELECT user_id, plan_name, tier, can_message, valid_until, updated_at
		 FROM membership_plans WHERE user_id = $1`, userID,
	).Scan(&p.UserID, &p.PlanName, &p.Tier, &p.CanMessage, &p.ValidUntil, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("planRepo.GetByUser: %w", err)
	}
	return p, nil
}
