package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/marcos-wesley/ComunidadeANETI-sub000/internal/apperr"
	"github.com/marcos-wesley/ComunidadeANETI-sub000/internal/middleware"
	"github.com/marcos-wesley/ComunidadeANETI-sub000/internal/model"
	"github.com/marcos-wesley/ComunidadeANETI-sub000/internal/repository"
)

type UserHandler struct {
	userRepo *repository.UserRepository
	planRepo *repository.PlanRepository
}

func NewUserHandler(userRepo *repository.UserRepository, planRepo *repository.PlanRepository) *UserHandler {
	return &UserHandler{userRepo: userRepo, planRepo: planRepo}
}

type meResponse struct {
	User *model.User           `json:"user"`
	Plan *model.MembershipPlan `json:"plan,omitempty"`
}

// Me returns the caller's profile and current membership plan. The client
// uses plan.can_message for UX gating; the server still enforces it on send.
// GET /api/users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	u, err := h.userRepo.GetByID(r.Context(), userID)
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, apperr.KindNotFound, "user not found")
		return
	}
	if err != nil {
		writeAppErr(w, "get current user", err)
		return
	}
	resp := meResponse{User: u}
	if plan, err := h.planRepo.GetByUser(r.Context(), userID); err == nil {
		resp.Plan = plan
	}
	writeJSON(w, http.StatusOK, resp)
}

// Search finds members by username or name prefix, for the new-conversation
// picker.
// GET /api/users/search?q=
func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, apperr.KindValidation, "q is required")
		return
	}
	limit := queryInt(r, "limit", 20)
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	users, err := h.userRepo.Search(r.Context(), q, limit)
	if err != nil {
		writeAppErr(w, "search users", err)
		return
	}
	out := make([]model.UserPublic, 0, len(users))
	callerID := middleware.GetUserID(r.Context())
	for i := range users {
		if users[i].ID == callerID {
			continue
		}
		out = append(out, users[i].ToPublic())
	}
	writeJSON(w, http.StatusOK, out)
}
