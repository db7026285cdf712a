package controller

import (
	"query_clash_backend/internal/service"
	"query_clash_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AdminController struct {
	Service *service.AdminService
}

func NewAdminController(svc *service.AdminService) *AdminController {
	return &AdminController{Service: svc}
}

// @Summary Participant standings and submissions
// @Tags admin
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=service.AdminStats}
// @Router /api/admin/stats [get]
func (c *AdminController) Stats(ctx *gin.Context) {
	stats, err := c.Service.Stats(ctx.Request.Context())
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, stats)
}

// @Summary Investigations with answers
// @Tags admin
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]service.InvestigationDetail}
// @Router /api/admin/investigations [get]
func (c *AdminController) Investigations(ctx *gin.Context) {
	invs, err := c.Service.ListInvestigations(ctx.Request.Context())
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, invs)
}

// @Summary Reset a participant
// @Tags admin
// @Produce json
// @Security ApiKeyAuth
// @Param name path string true "participant name"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/admin/participants/{name}/reset [post]
func (c *AdminController) Reset(ctx *gin.Context) {
	name := ctx.Param("name")
	if err := c.Service.ResetParticipant(ctx.Request.Context(), name); err != nil {
		writeServiceError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"success": true, "message": "User " + name + " has been reset"})
}

// @Summary Delete a participant
// @Tags admin
// @Produce json
// @Security ApiKeyAuth
// @Param name path string true "participant name"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/admin/participants/{name}/delete [post]
func (c *AdminController) Delete(ctx *gin.Context) {
	name := ctx.Param("name")
	if err := c.Service.DeleteParticipant(ctx.Request.Context(), name); err != nil {
		writeServiceError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"success": true, "message": "User " + name + " has been deleted"})
}

// @Summary Public leaderboard
// @Tags game
// @Produce json
// @Success 200 {object} util.Response{data=[]service.LeaderboardEntry}
// @Router /api/leaderboard [get]
func (c *AdminController) Leaderboard(ctx *gin.Context) {
	entries, err := c.Service.Leaderboard(ctx.Request.Context())
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, entries)
}
