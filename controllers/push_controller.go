package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hasanat/tracker/models"
	"github.com/hasanat/tracker/utils"
)

var pushPlatforms = map[string]bool{"ios": true, "android": true, "web": true}

// PushController manages the caller's delivery endpoints.
type PushController struct {
	db *gorm.DB
}

// NewPushController creates a new controller instance.
func NewPushController(db *gorm.DB) *PushController {
	return &PushController{db: db}
}

// Register stores a device endpoint for the caller. A token registered by another account moves
// to the caller.
func (p *PushController) Register(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	var req struct {
		Token    string `json:"token" binding:"required"`
		Platform string `json:"platform"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40060, "invalid request payload")
		return
	}
	token := strings.TrimSpace(req.Token)
	if token == "" || len(token) > 255 {
		utils.Error(ctx, http.StatusBadRequest, 40061, "invalid push token")
		return
	}
	platform := strings.ToLower(strings.TrimSpace(req.Platform))
	if platform != "" && !pushPlatforms[platform] {
		utils.Error(ctx, http.StatusBadRequest, 40062, "unsupported platform")
		return
	}

	row := models.PushToken{UserID: userID, Token: token, Platform: platform, CreatedAt: time.Now()}
	err := p.db.WithContext(ctx.Request.Context()).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "platform"}),
	}).Create(&row).Error
	if err != nil {
		respondError(ctx, err, 50060, "failed to register push token")
		return
	}
	utils.Success(ctx, gin.H{"token": token, "platform": platform})
}
