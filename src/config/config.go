package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/nostrlabs/nostroracle/src/data"
	"gorm.io/gorm"
)

type Config struct {
	Port string

	OpenAIKey  string
	NewsAPIKey string

	Relays []string

	LightningAddress string
	ZapAmountSats    int64
	ZapThreshold     int

	CacheTTL          time.Duration
	AdmissionInterval time.Duration
	PollInterval      time.Duration
	// Uniform timeout for every outbound call.
	RequestTimeout time.Duration

	MySQLDSN string
	RedisURL string

	DiscordToken     string
	DiscordChannelID string

	// Secret used to sign zap request records.
	ServiceSecret string
}

// MySQLDSN reads the DSN from the environment; needed before the settings
// table is available.
func MySQLDSN() string {
	return getenv("MYSQL_DSN", "oracle:oracle@tcp(127.0.0.1:3306)/nostroracle")
}

// Load builds the configuration from the settings table with env fallbacks.
// db may be nil when running without persistence.
func Load(db *gorm.DB) Config {
	if db != nil {
		if err := data.LoadSettings(db); err != nil {
			log.Printf("config: failed to load settings: %v", err)
		}
	}

	relays := strings.Split(setting("relays", "RELAYS",
		"wss://relay.damus.io,wss://nos.lol,wss://relay.snort.social"), ",")
	for i := range relays {
		relays[i] = strings.TrimSpace(relays[i])
	}

	return Config{
		Port:              setting("port", "PORT", "4000"),
		OpenAIKey:         setting("openai_api_key", "OPENAI_API_KEY", ""),
		NewsAPIKey:        setting("newsapi_key", "NEWSAPI_KEY", ""),
		Relays:            relays,
		LightningAddress:  setting("lightning_address", "LIGHTNING_ADDRESS", "nostroracle@getalby.com"),
		ZapAmountSats:     int64(settingInt("zap_amount_sats", "ZAP_AMOUNT_SATS", 1000)),
		ZapThreshold:      settingInt("zap_threshold", "ZAP_THRESHOLD", 80),
		CacheTTL:          settingDuration("cache_ttl", "CACHE_TTL", 15*time.Minute),
		AdmissionInterval: settingDuration("admission_interval", "ADMISSION_INTERVAL", 30*time.Second),
		PollInterval:      settingDuration("poll_interval", "POLL_INTERVAL", 10*time.Second),
		RequestTimeout:    settingDuration("request_timeout", "REQUEST_TIMEOUT", 8*time.Second),
		MySQLDSN:          MySQLDSN(),
		RedisURL:          setting("redis_url", "REDIS_URL", ""),
		DiscordToken:      setting("discord_token", "DISCORD_TOKEN", ""),
		DiscordChannelID:  setting("discord_channel_id", "DISCORD_CHANNEL_ID", ""),
		ServiceSecret:     setting("service_secret", "SERVICE_SECRET", "nostroracle-dev-secret"),
	}
}

// setting retrieves a value from the settings table with env fallback.
func setting(name, envKey, defaultValue string) string {
	val := data.GetSetting(name)
	if val == "" {
		val = os.Getenv(envKey)
	}
	if val == "" {
		val = defaultValue
	}
	return val
}

func settingInt(name, envKey string, defaultValue int) int {
	raw := setting(name, envKey, "")
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("config: bad value %q for %s, using %d", raw, name, defaultValue)
		return defaultValue
	}
	return v
}

func settingDuration(name, envKey string, defaultValue time.Duration) time.Duration {
	raw := setting(name, envKey, "")
	if raw == "" {
		return defaultValue
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("config: bad value %q for %s, using %s", raw, name, defaultValue)
		return defaultValue
	}
	return v
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
