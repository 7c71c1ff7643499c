package controllers

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/hasanat/tracker/ledger"
	"github.com/hasanat/tracker/models"
	"github.com/hasanat/tracker/utils"
)

// PointsController exposes the caller's totals and ledger.
type PointsController struct {
	db     *gorm.DB
	ledger *ledger.Store
	clock  utils.Clock
}

// NewPointsController creates a new controller instance.
func NewPointsController(db *gorm.DB, ledgerStore *ledger.Store, clock utils.Clock) *PointsController {
	return &PointsController{db: db, ledger: ledgerStore, clock: clock}
}

// Totals returns the all-time total and today's total in the caller's timezone.
func (p *PointsController) Totals(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	loc := time.UTC
	var user models.User
	if err := p.db.WithContext(ctx.Request.Context()).First(&user, userID).Error; err == nil {
		loc = user.Location()
	}
	today := utils.LocalDate(p.clock(), loc)

	allTime, daily, err := p.ledger.Totals(ctx.Request.Context(), userID, today)
	if err != nil {
		respondError(ctx, err, 50040, "failed to load totals")
		return
	}
	utils.Success(ctx, gin.H{"all_time": allTime, "today": daily, "date": today})
}

// Ledger lists the caller's scored events, newest first.
func (p *PointsController) Ledger(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	entries, total, err := p.ledger.History(ctx.Request.Context(), userID, pageSize, (page-1)*pageSize)
	if err != nil {
		respondError(ctx, err, 50041, "failed to load ledger")
		return
	}
	utils.Paginated(ctx, entries, total, page, pageSize)
}
