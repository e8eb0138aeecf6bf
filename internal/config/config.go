package config

import (
	"os"
	"strconv"
)

// Config holds all runtime configuration, loaded from environment variables.
type Config struct {
	// Gemini connection
	GeminiAPIKey  string
	AnalysisModel string // multimodal model used for feature extraction
	TTSModel      string // speech model used for track introductions
	TTSVoice      string // prebuilt voice name

	// Server
	Port int

	// Library behavior
	MaxFileMB    int // uploads larger than this are rejected
	ClusterCount int // starting k, adjustable per session within [2,8]

	// Playback
	TmpDir string // where decodable payload handles are staged ("" = system temp)
}

// Load reads configuration from environment variables with sane defaults.
func Load() Config {
	return Config{
		GeminiAPIKey:  envStr("GEMINI_API_KEY", ""),
		AnalysisModel: envStr("SONIC_ANALYSIS_MODEL", "gemini-3-flash-preview"),
		TTSModel:      envStr("SONIC_TTS_MODEL", "gemini-2.5-flash-preview-tts"),
		TTSVoice:      envStr("SONIC_TTS_VOICE", "Kore"),

		Port: envInt("SONIC_PORT", 8080),

		MaxFileMB:    envInt("SONIC_MAX_FILE_MB", 10),
		ClusterCount: envInt("SONIC_CLUSTER_COUNT", 3),

		TmpDir: envStr("SONIC_TMP_DIR", ""),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
