package middleware

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hasanat/tracker/ledger"
	"github.com/hasanat/tracker/models"
	"github.com/hasanat/tracker/utils"
)

// EnsureUser creates the local profile of an authenticated user on first sight. Existing rows
// are left untouched. It must run after AuthRequired.
func EnsureUser(db *gorm.DB) gin.HandlerFunc {
	var known sync.Map

	return func(c *gin.Context) {
		raw, ok := c.Get(ContextClaimsKey)
		claims, _ := raw.(*utils.Claims)
		if !ok || claims == nil {
			c.Next()
			return
		}
		if _, seen := known.Load(claims.UserID); !seen {
			if err := ensureProfile(c.Request.Context(), db, claims); err != nil {
				utils.Logger.Warn("ensure user profile failed", zap.Uint("user_id", claims.UserID), zap.Error(err))
			} else {
				known.Store(claims.UserID, struct{}{})
			}
		}
		c.Next()
	}
}

// ensureProfile inserts the profile if its id is absent. A username already taken by another
// account is suffixed with the id.
func ensureProfile(ctx context.Context, db *gorm.DB, claims *utils.Claims) error {
	fallback := "user-" + strconv.FormatUint(uint64(claims.UserID), 10)
	username := claims.Username
	if username == "" {
		username = fallback
	}
	err := insertProfile(ctx, db, claims, username)
	if ledger.IsUniqueViolation(err) && username != fallback {
		utils.Logger.Info("username taken, storing suffixed profile",
			zap.Uint("user_id", claims.UserID), zap.String("username", username))
		err = insertProfile(ctx, db, claims, username+"-"+strconv.FormatUint(uint64(claims.UserID), 10))
	}
	return err
}

// insertProfile returns a unique violation when the row was not stored because of a clash on
// another column. MySQL reports such clashes as zero affected rows.
func insertProfile(ctx context.Context, db *gorm.DB, claims *utils.Claims, username string) error {
	db = db.WithContext(ctx)
	user := models.User{
		ID:          claims.UserID,
		Username:    username,
		DisplayName: claims.DisplayName,
		Timezone:    claims.Timezone,
	}
	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(&user)
	if res.Error != nil || res.RowsAffected > 0 {
		return res.Error
	}
	var count int64
	if err := db.Model(&models.User{}).Unscoped().Where("id = ?", claims.UserID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("store profile %d as %q: %w", claims.UserID, username, gorm.ErrDuplicatedKey)
	}
	return nil
}
