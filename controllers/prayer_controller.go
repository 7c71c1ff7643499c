package controllers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hasanat/tracker/models"
	"github.com/hasanat/tracker/services"
	"github.com/hasanat/tracker/utils"
)

// PrayerController handles prayer marking endpoints.
type PrayerController struct {
	prayers *services.PrayerService
	clock   utils.Clock
}

// NewPrayerController creates a new controller instance.
func NewPrayerController(prayers *services.PrayerService, clock utils.Clock) *PrayerController {
	return &PrayerController{prayers: prayers, clock: clock}
}

// Mark records the caller's prayer at the server's current time.
func (p *PrayerController) Mark(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	prayer := models.Prayer(strings.ToLower(ctx.Param("prayer")))

	res, err := p.prayers.MarkPrayer(ctx.Request.Context(), userID, ctx.Param("date"), prayer, p.clock())
	if err != nil {
		respondError(ctx, err, 50010, "failed to mark prayer")
		return
	}
	utils.Success(ctx, res)
}

// List returns the caller's prayer records for a date.
func (p *PrayerController) List(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	records, err := p.prayers.Records(ctx.Request.Context(), userID, ctx.Param("date"))
	if err != nil {
		respondError(ctx, err, 50011, "failed to load prayer records")
		return
	}
	utils.Success(ctx, gin.H{"date": ctx.Param("date"), "records": records})
}
