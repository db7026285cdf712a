package controller

import (
	"errors"
	"net/http"

	"query_clash_backend/internal/service"
	"query_clash_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type GameController struct {
	Timer       *service.TimerService
	Progression *service.ProgressionService
	Submissions *service.SubmissionService
	Queries     *service.QueryService
	Schema      *service.SchemaService
}

func NewGameController(timer *service.TimerService, progression *service.ProgressionService, submissions *service.SubmissionService, queries *service.QueryService, schema *service.SchemaService) *GameController {
	return &GameController{
		Timer:       timer,
		Progression: progression,
		Submissions: submissions,
		Queries:     queries,
		Schema:      schema,
	}
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
func writeServiceError(ctx *gin.Context, err error) {
	var rejection *service.RejectionError
	switch {
	case errors.As(err, &rejection):
		util.ErrorWithData(ctx, http.StatusBadRequest, rejection.Error(), gin.H{
			"error":   rejection.Error(),
			"rule":    rejection.Rule,
			"keyword": rejection.Keyword,
			"results": []interface{}{},
		})
	case errors.Is(err, util.ErrUnauthorized):
		util.Unauthorized(ctx)
	case errors.Is(err, util.ErrParticipantNotFound):
		util.Error(ctx, http.StatusNotFound, "User not found")
	case errors.Is(err, util.ErrInvestigationNotFound):
		util.Error(ctx, http.StatusNotFound, "Invalid ID")
	case errors.Is(err, util.ErrInvestigationLocked):
		util.Error(ctx, http.StatusForbidden, err.Error())
	case errors.Is(err, util.ErrAlreadySubmitted):
		util.Conflict(ctx, "Already submitted")
	default:
		util.LogInternalError(ctx, err)
	}
}

// GetState godoc
// @Summary Current round and remaining time
// @Tags game
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=service.GameState}
// @Failure 401 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/state [get]
func (c *GameController) GetState(ctx *gin.Context) {
	state, err := c.Timer.State(ctx.Request.Context(), util.CurrentName(ctx))
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	util.Success(ctx, state)
}

// ListInvestigations godoc
// @Summary Investigations of the current round
// @Tags game
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]service.InvestigationView}
// @Router /api/investigations [get]
func (c *GameController) ListInvestigations(ctx *gin.Context) {
	views, err := c.Progression.ListInvestigations(ctx.Request.Context(), util.CurrentName(ctx))
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	util.Success(ctx, views)
}

type VerifyRequest struct {
	ID     uint   `json:"id" binding:"required"`
	Answer string `json:"answer"`
}

// Verify godoc
// @Summary Answer an investigation
// @Tags game
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body VerifyRequest true "answer"
// @Success 200 {object} util.Response{data=service.VerifyResult}
// @Failure 403 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/verify [post]
func (c *GameController) Verify(ctx *gin.Context) {
	var req VerifyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.Progression.Verify(ctx.Request.Context(), util.CurrentName(ctx), req.ID, req.Answer)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

type SubmitRequest struct {
	FinalAnswer string `json:"final_answer" form:"final_answer"`
}

// Submit godoc
// @Summary Submit the final answer
// @Description Only the first submission counts; later ones return 409.
// @Tags game
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body SubmitRequest true "final answer"
// @Success 200 {object} util.Response{data=service.SubmitResult}
// @Failure 409 {object} util.Response
// @Router /api/submit [post]
func (c *GameController) Submit(ctx *gin.Context) {
	var req SubmitRequest
	if err := ctx.ShouldBind(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.Submissions.Submit(ctx.Request.Context(), util.CurrentName(ctx), req.FinalAnswer)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

type QueryRequest struct {
	SQL string `json:"sql"`
}

// RunQuery godoc
// @Summary Run a read-only SQL statement against the dataset
// @Description Statements must start with SELECT and may not contain mutating keywords. At most 50 rows are returned.
// @Tags game
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body QueryRequest true "statement"
// @Success 200 {object} util.Response{data=service.QueryResult}
// @Failure 400 {object} util.Response
// @Router /api/query [post]
func (c *GameController) RunQuery(ctx *gin.Context) {
	var req QueryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.Queries.Run(ctx.Request.Context(), util.CurrentName(ctx), req.SQL)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// GetSchema godoc
// @Summary Dataset tables and columns
// @Tags game
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Router /api/schema [get]
func (c *GameController) GetSchema(ctx *gin.Context) {
	schema, err := c.Schema.Schema(ctx.Request.Context())
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, schema)
}
