package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hasanat/tracker/ledger"
	"github.com/hasanat/tracker/services"
	"github.com/hasanat/tracker/utils"
)

// AdminController runs maintenance jobs on demand.
type AdminController struct {
	sweeper *services.Sweeper
	ledger  *ledger.Store
	clock   utils.Clock
}

// NewAdminController creates a new controller instance.
func NewAdminController(sweeper *services.Sweeper, ledgerStore *ledger.Store, clock utils.Clock) *AdminController {
	return &AdminController{sweeper: sweeper, ledger: ledgerStore, clock: clock}
}

// Sweep runs the missed-prayer sweep now.
func (a *AdminController) Sweep(ctx *gin.Context) {
	res := a.sweeper.RunMissedPrayerSweep(ctx.Request.Context(), a.clock())
	utils.Success(ctx, res)
}

// Reconcile rebuilds a user's cached totals from the ledger.
func (a *AdminController) Reconcile(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("userId"), 10, 64)
	if err != nil || id == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40050, "invalid user id")
		return
	}
	allTime, err := a.ledger.Reconcile(ctx.Request.Context(), uint(id))
	if err != nil {
		respondError(ctx, err, 50050, "failed to reconcile totals")
		return
	}
	utils.Success(ctx, gin.H{"user_id": id, "all_time": allTime})
}
