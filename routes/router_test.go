package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/hasanat/tracker/config"
	"github.com/hasanat/tracker/models"
	"github.com/hasanat/tracker/testutil"
	"github.com/hasanat/tracker/utils"
)

const day = "2026-03-10"

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type app struct {
	t      *testing.T
	db     *gorm.DB
	now    time.Time
	router http.Handler
}

func newApp(t *testing.T) *app {
	config.Set(config.AppConfig{
		JWTSecret:                "test-secret",
		GinMode:                  "test",
		AllowedOrigins:           []string{"*"},
		AdminUsernames:           []string{"root"},
		PointsOnTime:             10,
		PointsLate:               5,
		FastingBonus:             20,
		RateLimitPerMinute:       1000,
		ActionRateLimitPerMinute: 1000,
		TimingsCacheTTL:          time.Hour,
	})
	a := &app{t: t, db: testutil.NewDB(t), now: testutil.Clock(day, "05:45")}
	deps := NewDependencies(a.db, config.Get(), utils.NewMemoryCache(), nil, func() time.Time { return a.now })
	a.router = SetupRouter(deps)
	return a
}

func (a *app) auth(userID uint, username string) string {
	tok, err := utils.GenerateToken(utils.Claims{UserID: userID, Username: username, Timezone: "UTC"}, time.Hour)
	require.NoError(a.t, err)
	return "Bearer " + tok
}

func (a *app) call(method, path, auth string, body interface{}) (int, envelope) {
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func (a *app) saveTimings(auth string) {
	tm := testutil.Timings(0, day)
	status, env := a.call("POST", "/api/v1/timings", auth, map[string]interface{}{
		"date":    day,
		"fajr":    tm.Fajr,
		"sunrise": tm.Sunrise,
		"dhuhr":   tm.Dhuhr,
		"asr":     tm.Asr,
		"maghrib": tm.Maghrib,
		"isha":    tm.Isha,
	})
	require.Equal(a.t, http.StatusOK, status, env.Message)
}

func TestHealth(t *testing.T) {
	a := newApp(t)
	status, env := a.call("GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 0, env.Code)

	status, env = a.call("GET", "/api/v1/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, 40400, env.Code)
}

func TestRequiresAuth(t *testing.T) {
	a := newApp(t)
	status, env := a.call("POST", "/api/v1/prayers/"+day+"/fajr/mark", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, 40101, env.Code)
}

func TestTimingsAndMarking(t *testing.T) {
	a := newApp(t)
	auth := a.auth(1, "amina")

	status, env := a.call("POST", "/api/v1/prayers/"+day+"/fajr/mark", auth, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, 40410, env.Code)

	a.saveTimings(auth)

	status, env = a.call("GET", "/api/v1/timings/"+day, auth, nil)
	require.Equal(t, http.StatusOK, status)
	var view struct {
		Timings models.PrayerTimings `json:"timings"`
		Windows []struct {
			Prayer string `json:"prayer"`
			Phase  string `json:"phase"`
		} `json:"windows"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.True(t, testutil.Clock(day, "23:55").Equal(view.Timings.Midnight))
	require.Len(t, view.Windows, 5)
	assert.Equal(t, "fajr", view.Windows[0].Prayer)
	assert.Equal(t, "active", view.Windows[0].Phase)
	assert.Equal(t, "upcoming", view.Windows[1].Phase)

	status, env = a.call("POST", "/api/v1/prayers/"+day+"/Fajr/mark", auth, nil)
	require.Equal(t, http.StatusOK, status, env.Message)
	assert.JSONEq(t, `"on_time"`, string(mustField(t, env.Data, "status")))

	status, env = a.call("POST", "/api/v1/prayers/"+day+"/fajr/mark", auth, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, 40910, env.Code)

	status, env = a.call("POST", "/api/v1/prayers/"+day+"/dhuhr/mark", auth, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, 42210, env.Code)

	status, env = a.call("POST", "/api/v1/prayers/"+day+"/sunrise/mark", auth, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, 40011, env.Code)

	status, env = a.call("GET", "/api/v1/prayers/"+day, auth, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), `"prayer":"fajr"`)
}

func TestSaveTimingsRejectsDisorder(t *testing.T) {
	a := newApp(t)
	auth := a.auth(1, "amina")
	tm := testutil.Timings(0, day)
	status, env := a.call("POST", "/api/v1/timings", auth, map[string]interface{}{
		"date": day, "fajr": tm.Sunrise, "sunrise": tm.Fajr, "dhuhr": tm.Dhuhr,
		"asr": tm.Asr, "maghrib": tm.Maghrib, "isha": tm.Isha,
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, 40031, env.Code)
}

func TestFastingAndPoints(t *testing.T) {
	a := newApp(t)
	auth := a.auth(1, "amina")

	status, env := a.call("POST", "/api/v1/fasting/"+day, auth, map[string]bool{"is_fasting": true})
	require.Equal(t, http.StatusOK, status, env.Message)
	assert.JSONEq(t, `20`, string(mustField(t, env.Data, "points")))

	status, env = a.call("POST", "/api/v1/fasting/"+day, auth, map[string]bool{"is_fasting": true})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, 40911, env.Code)

	status, env = a.call("POST", "/api/v1/fasting/"+day, auth, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, 40020, env.Code)

	status, env = a.call("GET", "/api/v1/points", auth, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"all_time":20,"today":20,"date":"`+day+`"}`, string(env.Data))

	status, env = a.call("POST", "/api/v1/fasting/"+day+"/break", auth, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `-20`, string(mustField(t, env.Data, "points")))

	status, env = a.call("POST", "/api/v1/fasting/"+day+"/break", auth, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, 40912, env.Code)

	status, env = a.call("POST", "/api/v1/fasting/2026-03-11/break", auth, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, 40411, env.Code)

	status, env = a.call("GET", "/api/v1/points/ledger?page=1&page_size=1", auth, nil)
	require.Equal(t, http.StatusOK, status)
	var page struct {
		Items []models.LedgerEntry `json:"items"`
		Total int64                `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, int64(2), page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, models.ActionFastingRevoke, page.Items[0].Action)
}

func TestAdminEndpoints(t *testing.T) {
	a := newApp(t)
	user := a.auth(1, "amina")
	admin := a.auth(99, "root")
	a.saveTimings(user)
	status, _ := a.call("POST", "/api/v1/fasting/"+day, user, map[string]bool{"is_fasting": true})
	require.Equal(t, http.StatusOK, status)

	status, env := a.call("POST", "/api/v1/admin/sweep", user, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, 40301, env.Code)

	a.now = testutil.Clock(day, "13:00")
	status, env = a.call("POST", "/api/v1/admin/sweep", admin, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `1`, string(mustField(t, env.Data, "missed")))

	require.NoError(t, a.db.Model(&models.UserTotal{}).Where("user_id = ?", 1).Update("all_time", 999).Error)
	status, env = a.call("POST", "/api/v1/admin/reconcile/1", admin, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `20`, string(mustField(t, env.Data, "all_time")))

	status, env = a.call("POST", "/api/v1/admin/reconcile/abc", admin, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, 40050, env.Code)
}

func TestPushTokenRegistration(t *testing.T) {
	a := newApp(t)
	amina := a.auth(1, "amina")
	bilal := a.auth(2, "bilal")

	status, _ := a.call("POST", "/api/v1/push-tokens", amina, map[string]string{"token": "ExponentPushToken[abc]", "platform": "ios"})
	require.Equal(t, http.StatusOK, status)
	status, _ = a.call("POST", "/api/v1/push-tokens", bilal, map[string]string{"token": "ExponentPushToken[abc]", "platform": "android"})
	require.Equal(t, http.StatusOK, status)

	var tokens []models.PushToken
	require.NoError(t, a.db.Find(&tokens).Error)
	require.Len(t, tokens, 1)
	assert.Equal(t, uint(2), tokens[0].UserID)
	assert.Equal(t, "android", tokens[0].Platform)

	status, env := a.call("POST", "/api/v1/push-tokens", amina, map[string]string{"token": strings.Repeat("x", 300)})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, 40061, env.Code)

	status, env = a.call("POST", "/api/v1/push-tokens", amina, map[string]string{"token": "t", "platform": "fax"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, 40062, env.Code)
}

func TestSettings(t *testing.T) {
	a := newApp(t)
	amina := a.auth(1, "amina")

	status, env := a.call("GET", "/api/v1/settings", amina, nil)
	require.Equal(t, http.StatusOK, status, env.Message)
	assert.JSONEq(t, "30", string(mustField(t, env.Data, "on_time_window_minutes")))

	status, env = a.call("PUT", "/api/v1/settings", amina, map[string]interface{}{"on_time_window_minutes": 121})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, 40071, env.Code)
	status, env = a.call("PUT", "/api/v1/settings", amina, map[string]interface{}{"timezone": "Mars/Olympus"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, 40072, env.Code)
	status, env = a.call("PUT", "/api/v1/settings", amina, map[string]interface{}{"quiet_start": "25:00"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, 40073, env.Code)

	status, env = a.call("PUT", "/api/v1/settings", amina, map[string]interface{}{
		"on_time_window_minutes": 10,
		"timezone":               "Asia/Karachi",
		"prayer_marked":          false,
		"quiet_hours_enabled":    true,
		"quiet_start":            "22:00",
		"quiet_end":              "06:00",
	})
	require.Equal(t, http.StatusOK, status, env.Message)

	var user models.User
	require.NoError(t, a.db.First(&user, 1).Error)
	assert.Equal(t, 10, user.OnTimeWindowMinutes)
	assert.Equal(t, "Asia/Karachi", user.Timezone)

	var pref models.NotificationPreference
	require.NoError(t, a.db.First(&pref, "user_id = ?", 1).Error)
	assert.False(t, pref.PrayerMarked)
	assert.True(t, pref.MissedPrayer)
	assert.True(t, pref.QuietHoursEnabled)
	assert.Equal(t, "22:00", pref.QuietStart)

	// fajr opens 05:30; with a 10 minute window 05:45 is late
	a.saveTimings(amina)
	a.now = testutil.Clock(day, "05:45")
	status, env = a.call("POST", "/api/v1/prayers/"+day+"/fajr/mark", amina, nil)
	require.Equal(t, http.StatusOK, status, env.Message)
	assert.JSONEq(t, `"late"`, string(mustField(t, env.Data, "status")))
}

func mustField(t *testing.T, data json.RawMessage, field string) json.RawMessage {
	t.Helper()
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &m))
	v, ok := m[field]
	require.True(t, ok, "missing field %s in %s", field, data)
	return v
}
