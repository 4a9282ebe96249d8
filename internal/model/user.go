package model

import "time"

type User struct {
	ID         string     `json:"id"`
	Username   string     `json:"username"`
	FullName   string     `json:"full_name"`
	Email      string     `json:"email"`
	AvatarURL  string     `json:"avatar_url"`
	PlanTier   PlanTier   `json:"plan_tier"`
	LastSeenAt time.Time  `json:"last_seen_at"`
	IsOnline   bool       `json:"is_online"`
	CreatedAt  time.Time  `json:"created_at"`
	DisabledAt *time.Time `json:"-"` // non-null = account suspended by the back office
}

type UserPublic struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	FullName   string    `json:"full_name"`
	AvatarURL  string    `json:"avatar_url"`
	PlanTier   PlanTier  `json:"plan_tier"`
	IsOnline   bool      `json:"is_online"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

func (u *User) ToPublic() UserPublic {
	return UserPublic{
		ID:         u.ID,
		Username:   u.Username,
		FullName:   u.FullName,
		AvatarURL:  u.AvatarURL,
		PlanTier:   u.PlanTier,
		IsOnline:   u.IsOnline,
		LastSeenAt: u.LastSeenAt,
	}
}
