package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"gorm.io/gorm"

	"github.com/hasanat/tracker/config"
	"github.com/hasanat/tracker/models"
	"github.com/hasanat/tracker/notify"
	"github.com/hasanat/tracker/utils"
)

// Points is the award table. Late must not exceed on-time.
type Points struct {
	OnTime       int
	Late         int
	FastingBonus int
}

// DefaultPoints is 10 on time, 5 late and 20 for a fast.
var DefaultPoints = Points{OnTime: 10, Late: 5, FastingBonus: 20}

// PointsFromConfig reads the award table from configuration.
func PointsFromConfig(c config.AppConfig) Points {
	return Points{OnTime: c.PointsOnTime, Late: c.PointsLate, FastingBonus: c.FastingBonus}
}

// Notifier receives fire-and-forget friend notifications.
type Notifier interface {
	Notify(actorID uint, category notify.Category, msg notify.Message)
}

type nopNotifier struct{}

func (nopNotifier) Notify(uint, notify.Category, notify.Message) {}

func orNop(n Notifier) Notifier {
	if n == nil {
		return nopNotifier{}
	}
	return n
}

func validateDate(date string) error {
	if _, err := utils.ParseDate(date); err != nil {
		return ErrInvalidDate
	}
	return nil
}

// loadUser returns the stored profile, or a default profile when the identity provider knows
// a user this service has not stored yet.
func loadUser(ctx context.Context, db *gorm.DB, userID uint) (*models.User, error) {
	var u models.User
	err := db.WithContext(ctx).First(&u, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.User{ID: userID, Username: "user-" + strconv.FormatUint(uint64(userID), 10), Timezone: "UTC", OnTimeWindowMinutes: models.DefaultOnTimeWindowMinutes}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load user %d: %w", userID, err)
	}
	return &u, nil
}
