// README: Reward handlers (add points, actor summary with score).
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"medride/internal/modules/reward"
	"medride/internal/types"
)

type RewardHandler struct {
	rewards  *reward.Service
	validate *validator.Validate
}

func NewRewardHandler(rewards *reward.Service, v *validator.Validate) *RewardHandler {
	return &RewardHandler{rewards: rewards, validate: v}
}

type addRewardReq struct {
	ActorID string         `json:"actor_id" validate:"required,max=64"`
	Type    string         `json:"type" validate:"required"`
	Meta    map[string]any `json:"meta"`
}

type actorRewardsResp struct {
	ActorID      types.ID       `json:"actor_id"`
	Total        int64          `json:"total"`
	Events       []reward.Event `json:"events"`
	Role         types.Role     `json:"role,omitempty"`
	Score        *int64         `json:"score,omitempty"`
	LoanEligible *bool          `json:"loan_eligible,omitempty"`
}

// Add leaves type checking to the reward engine so unknown types are
// reported like every other rejected reward.
func (h *RewardHandler) Add(c *gin.Context) {
	var req addRewardReq
	if !bind(c, h.validate, &req) {
		return
	}
	ev, err := h.rewards.AddReward(c.Request.Context(), types.ID(req.ActorID), reward.Type(req.Type), req.Meta)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, ev)
}

func (h *RewardHandler) Actor(c *gin.Context) {
	ctx := c.Request.Context()
	actorID := types.ID(c.Param("id"))
	role := types.Role(c.Query("role"))
	if role != "" && !role.Valid() {
		writeError(c, http.StatusBadRequest, "unknown role")
		return
	}

	evs, err := h.rewards.List(ctx, actorID)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	total, err := h.rewards.TotalPoints(ctx, actorID)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	resp := actorRewardsResp{ActorID: actorID, Total: total, Events: evs}
	if role != "" {
		score, err := reward.Score(role, total)
		if err != nil {
			writeDomainError(c, err)
			return
		}
		eligible := reward.LoanEligible(score)
		resp.Role = role
		resp.Score = &score
		resp.LoanEligible = &eligible
	}
	writeJSON(c, http.StatusOK, resp)
}
