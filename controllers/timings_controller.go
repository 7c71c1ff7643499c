package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/hasanat/tracker/models"
	"github.com/hasanat/tracker/timewindow"
	"github.com/hasanat/tracker/timings"
	"github.com/hasanat/tracker/utils"
)

// TimingsController stores and serves daily timetables.
type TimingsController struct {
	db     *gorm.DB
	store  *timings.Store
	reader timings.Reader
	clock  utils.Clock
}

// NewTimingsController creates a new controller instance.
func NewTimingsController(db *gorm.DB, store *timings.Store, reader timings.Reader, clock utils.Clock) *TimingsController {
	return &TimingsController{db: db, store: store, reader: reader, clock: clock}
}

type windowView struct {
	Prayer   models.Prayer    `json:"prayer"`
	Start    time.Time        `json:"start"`
	End      time.Time        `json:"end"`
	Deadline time.Time        `json:"deadline"`
	Phase    timewindow.Phase `json:"phase"`
}

// Save stores the caller's timetable for a date. A timetable already stored for that date is
// returned unchanged.
func (t *TimingsController) Save(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	var req struct {
		Date     string     `json:"date" binding:"required"`
		Fajr     time.Time  `json:"fajr"`
		Sunrise  time.Time  `json:"sunrise"`
		Dhuhr    time.Time  `json:"dhuhr"`
		Asr      time.Time  `json:"asr"`
		Maghrib  time.Time  `json:"maghrib"`
		Isha     time.Time  `json:"isha"`
		Midnight *time.Time `json:"midnight"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "invalid request payload")
		return
	}
	if _, err := utils.ParseDate(req.Date); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, "date must be YYYY-MM-DD")
		return
	}

	row := &models.PrayerTimings{
		UserID:  userID,
		Date:    req.Date,
		Fajr:    req.Fajr,
		Sunrise: req.Sunrise,
		Dhuhr:   req.Dhuhr,
		Asr:     req.Asr,
		Maghrib: req.Maghrib,
		Isha:    req.Isha,
	}
	if req.Midnight != nil {
		row.Midnight = *req.Midnight
	}

	stored, created, err := t.store.Save(ctx.Request.Context(), row)
	if errors.Is(err, timewindow.ErrNotIncreasing) {
		utils.Error(ctx, http.StatusBadRequest, 40031, err.Error())
		return
	}
	if err != nil {
		respondError(ctx, err, 50030, "failed to save timings")
		return
	}
	utils.Success(ctx, gin.H{"created": created, "timings": stored})
}

// Get returns the caller's timetable for a date with the state of each prayer window.
func (t *TimingsController) Get(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	date := ctx.Param("date")
	if _, err := utils.ParseDate(date); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, "date must be YYYY-MM-DD")
		return
	}

	row, err := t.reader.Get(ctx.Request.Context(), userID, date)
	if errors.Is(err, timings.ErrNotFound) {
		utils.Error(ctx, http.StatusNotFound, 40410, "prayer timings for this date have not been fetched")
		return
	}
	if err != nil {
		respondError(ctx, err, 50031, "failed to load timings")
		return
	}

	window := timewindow.DefaultOnTimeWindow
	var user models.User
	if err := t.db.WithContext(ctx.Request.Context()).Select("on_time_window_minutes").First(&user, userID).Error; err == nil {
		window = user.OnTimeWindowMinutes
	}

	now := t.clock()
	windows := make([]windowView, 0, len(models.ObligatoryPrayers))
	for _, p := range models.ObligatoryPrayers {
		w, err := timewindow.For(row, p, window)
		if err != nil {
			continue
		}
		windows = append(windows, windowView{Prayer: p, Start: w.Start, End: w.End, Deadline: w.Deadline, Phase: w.Phase(now)})
	}
	utils.Success(ctx, gin.H{"timings": row, "windows": windows})
}
