package api

import "github.com/swarmrouter/core/pkg/models"

// createRunRequest is the JSON body of POST /runs, mirroring run.create's
// input fields (§6.1).
type createRunRequest struct {
	Task            string             `json:"task" binding:"required"`
	Mode            models.Mode        `json:"mode" binding:"required"`
	Budget          models.Budget      `json:"budget"`
	Context         string             `json:"context"`
	CollectiveCount int                `json:"collectiveCount"`
	Role            *models.RoleConfig `json:"role"`
	Merge           models.MergeConfig `json:"merge"`
}
