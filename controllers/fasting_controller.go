package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hasanat/tracker/services"
	"github.com/hasanat/tracker/utils"
)

// FastingController handles fasting declarations.
type FastingController struct {
	fasting *services.FastingService
	clock   utils.Clock
}

// NewFastingController creates a new controller instance.
func NewFastingController(fasting *services.FastingService, clock utils.Clock) *FastingController {
	return &FastingController{fasting: fasting, clock: clock}
}

// Set declares whether the caller is fasting on a date.
func (f *FastingController) Set(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	var req struct {
		IsFasting *bool `json:"is_fasting" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}

	res, err := f.fasting.SetFasting(ctx.Request.Context(), userID, ctx.Param("date"), *req.IsFasting, f.clock())
	if err != nil {
		respondError(ctx, err, 50020, "failed to set fasting")
		return
	}
	utils.Success(ctx, res)
}

// Break revokes the caller's fasting bonus for a date.
func (f *FastingController) Break(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	res, err := f.fasting.BreakFast(ctx.Request.Context(), userID, ctx.Param("date"), f.clock())
	if err != nil {
		respondError(ctx, err, 50021, "failed to break fast")
		return
	}
	utils.Success(ctx, res)
}
