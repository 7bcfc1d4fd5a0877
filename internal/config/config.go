// Package config assembles the per-environment settings of the in-queue
// voice service from environment variables. A .env file is loaded in main
// for local development; production values come from the deployment.
package config

import (
	"os"
	"strconv"
)

// Config holds the full service configuration.
type Config struct {
	Port string

	// PublicBaseURL is the https origin the voice platform reaches this
	// service on; all TwiML action and redirect URLs are built against it.
	PublicBaseURL string

	// Twilio credentials and the TaskRouter workspace this service operates on.
	TwilioAccountSID   string
	TwilioAuthToken    string
	TwilioWorkspaceSID string

	// UtilsTokenSecret signs the bearer tokens the agent desktop presents to
	// /inqueue-utils. Empty disables validation (development only).
	UtilsTokenSecret string

	// Voice prompt options.
	SayVoice    string
	SayLanguage string

	HoldMusicURL       string
	CallbackAlertTone  string
	VoicemailAlertTone string
	AssetsDir          string

	EstimatedWaitTimeEnabled bool
	StatsWindowMinutes       int
	QueuePositionEnabled     bool

	CallbackTaskPriority  int
	VoicemailTaskPriority int

	TimeZone string

	// Redis backs the workflow-stats cache; empty host disables caching.
	RedisHost     string
	RedisPort     string
	RedisPassword string
}

// Load reads the configuration from the environment.
func Load() *Config {
	return &Config{
		Port:          getEnvOrDefault("PORT", "8080"),
		PublicBaseURL: getEnvOrDefault("PUBLIC_BASE_URL", ""),

		TwilioAccountSID:   getEnvOrDefault("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:    getEnvOrDefault("TWILIO_AUTH_TOKEN", ""),
		TwilioWorkspaceSID: getEnvOrDefault("TWILIO_WORKSPACE_SID", ""),

		UtilsTokenSecret: getEnvOrDefault("UTILS_TOKEN_SECRET", ""),

		SayVoice:    getEnvOrDefault("SAY_VOICE", "Polly.Joanna"),
		SayLanguage: getEnvOrDefault("SAY_LANGUAGE", ""),

		HoldMusicURL:       getEnvOrDefault("HOLD_MUSIC_URL", "/assets/guitar_music.mp3"),
		CallbackAlertTone:  getEnvOrDefault("CALLBACK_ALERT_TONE", "/assets/alertTone.mp3"),
		VoicemailAlertTone: getEnvOrDefault("VOICEMAIL_ALERT_TONE", "/assets/alertTone.mp3"),
		AssetsDir:          getEnvOrDefault("ASSETS_DIR", "assets"),

		EstimatedWaitTimeEnabled: getEnvAsBoolOrDefault("ESTIMATED_WAIT_TIME_ENABLED", true),
		StatsWindowMinutes:       getEnvAsIntOrDefault("STATS_WINDOW_MINUTES", 5),
		QueuePositionEnabled:     getEnvAsBoolOrDefault("QUEUE_POSITION_ENABLED", true),

		CallbackTaskPriority:  getEnvAsIntOrDefault("CALLBACK_TASK_PRIORITY", 50),
		VoicemailTaskPriority: getEnvAsIntOrDefault("VOICEMAIL_TASK_PRIORITY", 50),

		TimeZone: getEnvOrDefault("SERVER_TIMEZONE", "America/Los_Angeles"),

		RedisHost:     getEnvOrDefault("REDIS_HOST", ""),
		RedisPort:     getEnvOrDefault("REDIS_PORT", "6379"),
		RedisPassword: getEnvOrDefault("REDIS_PASSWORD", ""),
	}
}

// getEnvOrDefault gets environment variable or returns default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault gets environment variable as int or returns default
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBoolOrDefault gets environment variable as bool or returns default
func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
