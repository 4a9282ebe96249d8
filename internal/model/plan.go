package model

import "time"

type PlanTier string

const (
	// TierPublic is the free tier: browse only, messaging locked.
	TierPublic  PlanTier = "public"
	TierMember  PlanTier = "member"
	TierStudent PlanTier = "student"
)

// MembershipPlan is the user's current plan record, owned by the membership
// back office. Only can_message crosses into the messaging core: the delivery
// engine refuses sends for plans that do not carry it.
type MembershipPlan struct {
	UserID     string     `json:"user_id"`
	PlanName   string     `json:"plan_name"`
	Tier       PlanTier   `json:"tier"`
	CanMessage bool       `json:"can_message"`
	ValidUntil *time.Time `json:"valid_until,omitempty"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Active reports whether the plan is currently in force.
func (p *MembershipPlan) Active(now time.Time) bool {
	return p.ValidUntil == nil || p.ValidUntil.After(now)
}
