package notify

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/hasanat/tracker/models"
)

// Directory resolves the friend graph and delivery endpoints.
type Directory interface {
	// Recipients returns accepted friends of actorID that neither block nor are blocked by it.
	Recipients(ctx context.Context, actorID uint) ([]Recipient, error)
	// PruneTokens removes endpoints the transport reported as no longer registered.
	PruneTokens(ctx context.Context, tokens []string) error
}

// GormDirectory reads the social tables.
type GormDirectory struct {
	db *gorm.DB
}

// NewGormDirectory creates a directory on db.
func NewGormDirectory(db *gorm.DB) *GormDirectory {
	return &GormDirectory{db: db}
}

// Recipients implements Directory.
func (d *GormDirectory) Recipients(ctx context.Context, actorID uint) ([]Recipient, error) {
	db := d.db.WithContext(ctx)

	var forward, backward []uint
	if err := db.Model(&models.Friendship{}).
		Where("user_id = ? AND status = ?", actorID, models.FriendshipAccepted).
		Pluck("friend_id", &forward).Error; err != nil {
		return nil, fmt.Errorf("load friends of %d: %w", actorID, err)
	}
	if err := db.Model(&models.Friendship{}).
		Where("friend_id = ? AND status = ?", actorID, models.FriendshipAccepted).
		Pluck("user_id", &backward).Error; err != nil {
		return nil, fmt.Errorf("load friends of %d: %w", actorID, err)
	}

	var blocks []models.Block
	if err := db.Where("blocker_id = ? OR blocked_id = ?", actorID, actorID).Find(&blocks).Error; err != nil {
		return nil, fmt.Errorf("load blocks of %d: %w", actorID, err)
	}
	excluded := map[uint]struct{}{actorID: {}}
	for _, b := range blocks {
		excluded[b.BlockerID] = struct{}{}
		excluded[b.BlockedID] = struct{}{}
	}

	seen := make(map[uint]struct{})
	var ids []uint
	for _, id := range append(forward, backward...) {
		if _, skip := excluded[id]; skip {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	var users []models.User
	if err := db.Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("load recipients: %w", err)
	}
	var prefs []models.NotificationPreference
	if err := db.Where("user_id IN ?", ids).Find(&prefs).Error; err != nil {
		return nil, fmt.Errorf("load notification preferences: %w", err)
	}
	var tokens []models.PushToken
	if err := db.Where("user_id IN ?", ids).Order("id").Find(&tokens).Error; err != nil {
		return nil, fmt.Errorf("load push tokens: %w", err)
	}

	prefByUser := make(map[uint]models.NotificationPreference, len(prefs))
	for _, p := range prefs {
		prefByUser[p.UserID] = p
	}
	tokensByUser := make(map[uint][]string)
	for _, t := range tokens {
		tokensByUser[t.UserID] = append(tokensByUser[t.UserID], t.Token)
	}

	userByID := make(map[uint]*models.User, len(users))
	for i := range users {
		userByID[users[i].ID] = &users[i]
	}

	// Friends whose profile has not been synced yet still get notified, in UTC with defaults.
	out := make([]Recipient, 0, len(ids))
	for _, id := range ids {
		loc := time.UTC
		if u, ok := userByID[id]; ok {
			loc = u.Location()
		} else if len(tokensByUser[id]) == 0 {
			continue
		}
		pref, ok := prefByUser[id]
		if !ok {
			pref = models.DefaultNotificationPreference(id)
		}
		out = append(out, Recipient{
			UserID:     id,
			Location:   loc,
			Preference: PreferenceFromModel(pref),
			Tokens:     tokensByUser[id],
		})
	}
	return out, nil
}

// PruneTokens implements Directory.
func (d *GormDirectory) PruneTokens(ctx context.Context, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}
	if err := d.db.WithContext(ctx).Where("token IN ?", tokens).Delete(&models.PushToken{}).Error; err != nil {
		return fmt.Errorf("prune %d push tokens: %w", len(tokens), err)
	}
	return nil
}
