package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hasanat/tracker/models"
	"github.com/hasanat/tracker/notify"
	"github.com/hasanat/tracker/timewindow"
	"github.com/hasanat/tracker/utils"
)

// SettingsController reads and writes the caller's scoring and notification settings.
type SettingsController struct {
	db *gorm.DB
}

// NewSettingsController creates a new controller instance.
func NewSettingsController(db *gorm.DB) *SettingsController {
	return &SettingsController{db: db}
}

type settingsRequest struct {
	OnTimeWindowMinutes *int    `json:"on_time_window_minutes"`
	Timezone            *string `json:"timezone"`
	PrayerMarked        *bool   `json:"prayer_marked"`
	MissedPrayer        *bool   `json:"missed_prayer"`
	Fasting             *bool   `json:"fasting"`
	QuietHoursEnabled   *bool   `json:"quiet_hours_enabled"`
	QuietStart          *string `json:"quiet_start"`
	QuietEnd            *string `json:"quiet_end"`
}

// Get returns the caller's settings, with defaults for anything never saved.
func (s *SettingsController) Get(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	user, pref, err := s.load(ctx, s.db, userID)
	if err != nil {
		respondError(ctx, err, 50070, "failed to load settings")
		return
	}
	utils.Success(ctx, settingsView(user, pref))
}

// Update applies the fields present in the payload. Unknown timezones, grace periods outside
// [5,120] and malformed quiet-hour bounds are rejected.
func (s *SettingsController) Update(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	var req settingsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40070, "invalid request payload")
		return
	}
	if m := req.OnTimeWindowMinutes; m != nil && (*m < timewindow.MinOnTimeWindow || *m > timewindow.MaxOnTimeWindow) {
		utils.Error(ctx, http.StatusBadRequest, 40071, "on_time_window_minutes must be between 5 and 120")
		return
	}
	if req.Timezone != nil {
		tz := strings.TrimSpace(*req.Timezone)
		if _, err := time.LoadLocation(tz); err != nil || tz == "" {
			utils.Error(ctx, http.StatusBadRequest, 40072, "unknown timezone")
			return
		}
		req.Timezone = &tz
	}
	for _, c := range []*string{req.QuietStart, req.QuietEnd} {
		if c == nil {
			continue
		}
		if _, valid := notify.ParseClock(*c); !valid {
			utils.Error(ctx, http.StatusBadRequest, 40073, "quiet hours must be HH:MM")
			return
		}
	}

	var user models.User
	var pref models.NotificationPreference
	err := s.db.WithContext(ctx.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var err error
		user, pref, err = s.load(ctx, tx, userID)
		if err != nil {
			return err
		}
		if req.OnTimeWindowMinutes != nil {
			user.OnTimeWindowMinutes = *req.OnTimeWindowMinutes
		}
		if req.Timezone != nil {
			user.Timezone = *req.Timezone
		}
		if err := tx.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
			"on_time_window_minutes": user.OnTimeWindowMinutes,
			"timezone":               user.Timezone,
			"updated_at":             time.Now(),
		}).Error; err != nil {
			return err
		}

		applyBool(&pref.PrayerMarked, req.PrayerMarked)
		applyBool(&pref.MissedPrayer, req.MissedPrayer)
		applyBool(&pref.Fasting, req.Fasting)
		applyBool(&pref.QuietHoursEnabled, req.QuietHoursEnabled)
		if req.QuietStart != nil {
			pref.QuietStart = strings.TrimSpace(*req.QuietStart)
		}
		if req.QuietEnd != nil {
			pref.QuietEnd = strings.TrimSpace(*req.QuietEnd)
		}
		pref.UpdatedAt = time.Now()
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"prayer_marked", "missed_prayer", "fasting", "quiet_hours_enabled", "quiet_start", "quiet_end", "updated_at",
			}),
		}).Create(&pref).Error
	})
	if err != nil {
		respondError(ctx, err, 50071, "failed to save settings")
		return
	}
	utils.Success(ctx, settingsView(user, pref))
}

// load reads the profile and preference rows. EnsureUser has already created the profile.
func (s *SettingsController) load(ctx *gin.Context, db *gorm.DB, userID uint) (models.User, models.NotificationPreference, error) {
	var user models.User
	if err := db.WithContext(ctx.Request.Context()).First(&user, userID).Error; err != nil {
		return user, models.NotificationPreference{}, err
	}
	pref := models.DefaultNotificationPreference(userID)
	err := db.WithContext(ctx.Request.Context()).First(&pref, "user_id = ?", userID).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return user, pref, err
	}
	return user, pref, nil
}

func applyBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func settingsView(u models.User, p models.NotificationPreference) gin.H {
	return gin.H{
		"on_time_window_minutes": timewindow.ClampMinutes(u.OnTimeWindowMinutes),
		"timezone":               u.Timezone,
		"notifications": gin.H{
			"prayer_marked":       p.PrayerMarked,
			"missed_prayer":       p.MissedPrayer,
			"fasting":             p.Fasting,
			"quiet_hours_enabled": p.QuietHoursEnabled,
			"quiet_start":         p.QuietStart,
			"quiet_end":           p.QuietEnd,
		},
	}
}
