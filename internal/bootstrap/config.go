package bootstrap

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerAddr string
	LogLevel   string
	LogFile    string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CredentialTTL time.Duration

	GeminiAPIKey      string
	ElevenLabsAgentID string
	ElevenLabsAPIKey  string
	VisionBaseURL     string
	VoiceBaseURL      string

	RTCICEServers []ICEServerConfig
	RTCPortMin    int
	RTCPortMax    int

	MetricsInterval time.Duration
	MetricsFile     string
}

type ICEServerConfig struct {
	URLs       []string
	Username   string
	Credential string
}

// LoadConfig reads the environment, after merging in a .env file from the
// working directory if one exists.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env file", "error", err)
	}

	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		LogFile:    getEnv("LOG_FILE", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		CredentialTTL: getEnvDuration("CREDENTIAL_TTL", 30*24*time.Hour),

		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		ElevenLabsAgentID: getEnv("ELEVENLABS_AGENT_ID", ""),
		ElevenLabsAPIKey:  getEnv("ELEVENLABS_API_KEY", ""),
		VisionBaseURL:     getEnv("VISION_BASE_URL", ""),
		VoiceBaseURL:      getEnv("VOICE_BASE_URL", ""),

		RTCICEServers: parseICEServers(getEnv("RTC_ICE_SERVERS", "stun:stun.l.google.com:19302")),
		RTCPortMin:    getEnvInt("RTC_PORT_MIN", 10000),
		RTCPortMax:    getEnvInt("RTC_PORT_MAX", 20000),

		MetricsInterval: getEnvDuration("METRICS_INTERVAL", 30*time.Second),
		MetricsFile:     getEnv("METRICS_FILE", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}

// parseICEServers accepts a comma separated list of URLs. A TURN entry may
// carry credentials as turn:user:pass@host:port.
func parseICEServers(envValue string) []ICEServerConfig {
	if envValue == "" {
		return []ICEServerConfig{{URLs: []string{"stun:stun.l.google.com:19302"}}}
	}

	var servers []ICEServerConfig
	for _, url := range strings.Split(envValue, ",") {
		url = strings.TrimSpace(url)
		if url == "" {
			continue
		}
		servers = append(servers, parseICEServer(url))
	}

	if len(servers) == 0 {
		return []ICEServerConfig{{URLs: []string{"stun:stun.l.google.com:19302"}}}
	}

	return servers
}

func parseICEServer(url string) ICEServerConfig {
	scheme, rest, ok := strings.Cut(url, ":")
	if !ok || (scheme != "turn" && scheme != "turns") {
		return ICEServerConfig{URLs: []string{url}}
	}

	at := strings.LastIndex(rest, "@")
	if at < 0 {
		return ICEServerConfig{URLs: []string{url}}
	}

	user, pass, _ := strings.Cut(rest[:at], ":")
	return ICEServerConfig{
		URLs:       []string{scheme + ":" + rest[at+1:]},
		Username:   user,
		Credential: pass,
	}
}
