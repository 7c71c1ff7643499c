package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via config files or the environment.
type AppConfig struct {
	AppPort        string
	JWTSecret      string
	AllowedOrigins []string
	AdminUsernames []string
	// Gin framework configuration
	GinMode string
	GinPath string
	// Database
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	// Redis for the timings cache
	RedisHost       string
	RedisPort       int
	RedisDB         int
	RedisPassword   string
	TimingsCacheTTL time.Duration
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
	// Hasanat awarded per event
	PointsOnTime int
	PointsLate   int
	FastingBonus int
	// Missed-prayer sweep
	SweepEnabled   bool
	SweepInterval  time.Duration
	SweepLookback  time.Duration
	SweepBatchSize int
	// Friend notifications
	NotifyEnabled   bool
	PushEndpoint    string
	PushAccessToken string
	NotifyBatchSize int
	NotifyTimeout   time.Duration
	// Rate limits
	RateLimitPerMinute       int
	ActionRateLimitPerMinute int
}

var (
	cfg    AppConfig
	loaded bool
	mu     sync.RWMutex
)

// Load loads the application configuration. It should be called once during boot.
//
// Precedence: built-in defaults -> config/config.json -> HASANAT_* environment variables.
func Load() AppConfig {
	mu.RLock()
	if loaded {
		defer mu.RUnlock()
		return cfg
	}
	mu.RUnlock()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath("config")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Fatalf("error reading config file: %v", err)
		}
	}

	c, err := FromViper(v)
	if err != nil {
		log.Fatal(err)
	}
	Set(c)
	return c
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	mu.RLock()
	if loaded {
		defer mu.RUnlock()
		return cfg
	}
	mu.RUnlock()
	return Load()
}

// Set replaces the cached configuration.
func Set(c AppConfig) {
	mu.Lock()
	cfg = c
	loaded = true
	mu.Unlock()
}

// FromViper builds a validated AppConfig from v with environment overrides enabled.
func FromViper(v *viper.Viper) (AppConfig, error) {
	v.SetEnvPrefix("HASANAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	c := AppConfig{
		AppPort:        v.GetString("app.port"),
		JWTSecret:      v.GetString("app.jwt_secret"),
		AllowedOrigins: readList(v, "app.allowed_origins"),
		AdminUsernames: readList(v, "app.admin_usernames"),

		GinMode: v.GetString("gin.mode"),
		GinPath: v.GetString("gin.log_path"),

		DatabaseURI: v.GetString("database.uri"),
		DBHost:      v.GetString("database.host"),
		DBPort:      v.GetString("database.port"),
		DBUser:      v.GetString("database.user"),
		DBPassword:  v.GetString("database.password"),
		DBName:      v.GetString("database.name"),

		RedisHost:       v.GetString("redis.host"),
		RedisPort:       v.GetInt("redis.port"),
		RedisDB:         v.GetInt("redis.db"),
		RedisPassword:   v.GetString("redis.password"),
		TimingsCacheTTL: v.GetDuration("redis.timings_ttl"),

		LogLevel:      v.GetString("log.level"),
		LogPath:       v.GetString("log.path"),
		LogMaxSizeMB:  v.GetInt("log.max_size_mb"),
		LogMaxBackups: v.GetInt("log.max_backups"),
		LogMaxAgeDays: v.GetInt("log.max_age_days"),
		LogCompress:   v.GetBool("log.compress"),

		PointsOnTime: v.GetInt("points.on_time"),
		PointsLate:   v.GetInt("points.late"),
		FastingBonus: v.GetInt("points.fasting_bonus"),

		SweepEnabled:   v.GetBool("sweep.enabled"),
		SweepInterval:  v.GetDuration("sweep.interval"),
		SweepLookback:  v.GetDuration("sweep.lookback"),
		SweepBatchSize: v.GetInt("sweep.batch_size"),

		NotifyEnabled:   v.GetBool("notify.enabled"),
		PushEndpoint:    v.GetString("notify.push_endpoint"),
		PushAccessToken: v.GetString("notify.push_access_token"),
		NotifyBatchSize: v.GetInt("notify.batch_size"),
		NotifyTimeout:   v.GetDuration("notify.timeout"),

		RateLimitPerMinute:       v.GetInt("rate_limit.per_minute"),
		ActionRateLimitPerMinute: v.GetInt("rate_limit.action_per_minute"),
	}
	if err := c.validate(); err != nil {
		return AppConfig{}, err
	}
	return c, nil
}

// setDefaults registers sane defaults for every key so AutomaticEnv can see them.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.jwt_secret", "")
	v.SetDefault("app.allowed_origins", []string{"*"})
	v.SetDefault("app.admin_usernames", []string{})
	v.SetDefault("gin.mode", "release")
	v.SetDefault("gin.log_path", "logs/go_gin.log")
	v.SetDefault("database.uri", "")
	v.SetDefault("database.host", "127.0.0.1")
	v.SetDefault("database.port", "3306")
	v.SetDefault("database.user", "root")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "hasanat")
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.timings_ttl", 48*time.Hour)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.path", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 7)
	v.SetDefault("log.compress", false)
	v.SetDefault("points.on_time", 10)
	v.SetDefault("points.late", 5)
	v.SetDefault("points.fasting_bonus", 20)
	v.SetDefault("sweep.enabled", true)
	v.SetDefault("sweep.interval", 15*time.Minute)
	v.SetDefault("sweep.lookback", 36*time.Hour)
	v.SetDefault("sweep.batch_size", 200)
	v.SetDefault("notify.enabled", true)
	v.SetDefault("notify.push_endpoint", "https://exp.host/--/api/v2/push/send")
	v.SetDefault("notify.push_access_token", "")
	v.SetDefault("notify.batch_size", 100)
	v.SetDefault("notify.timeout", 10*time.Second)
	v.SetDefault("rate_limit.per_minute", 60)
	v.SetDefault("rate_limit.action_per_minute", 20)
}

func (c AppConfig) validate() error {
	if c.JWTSecret == "" {
		return errors.New("HASANAT_APP_JWT_SECRET must be set")
	}
	if c.PointsOnTime < 0 || c.PointsLate < 0 || c.FastingBonus < 0 {
		return fmt.Errorf("points must not be negative (on_time=%d late=%d fasting_bonus=%d)", c.PointsOnTime, c.PointsLate, c.FastingBonus)
	}
	if c.PointsLate > c.PointsOnTime {
		return fmt.Errorf("late points (%d) exceed on-time points (%d)", c.PointsLate, c.PointsOnTime)
	}
	if c.SweepInterval <= 0 || c.SweepLookback <= 0 || c.SweepBatchSize <= 0 {
		return errors.New("sweep interval, lookback and batch size must be positive")
	}
	if c.NotifyBatchSize <= 0 || c.NotifyBatchSize > 100 {
		return fmt.Errorf("notify batch size %d outside (0,100]", c.NotifyBatchSize)
	}
	return nil
}

// IsAdmin reports whether username is configured as an administrator.
func (c AppConfig) IsAdmin(username string) bool {
	for _, a := range c.AdminUsernames {
		if strings.EqualFold(a, username) {
			return true
		}
	}
	return false
}

// readList accepts either a JSON array or a comma separated environment value.
func readList(v *viper.Viper, key string) []string {
	raw := v.GetStringSlice(key)
	items := []string{}
	for _, r := range raw {
		for _, item := range strings.Split(r, ",") {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				items = append(items, trimmed)
			}
		}
	}
	return items
}
