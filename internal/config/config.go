package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all environment-driven settings for the daemon.
type Config struct {
	SocketPath string
	DBPath     string

	PredictURL     string
	PredictTimeout time.Duration
	ProxyAddr      string // SOCKS5 address, empty for direct

	SpeechMode   string // "device" or "bus"
	BusURL       string
	BusPeer      string
	WhisperModel string
	EarconPath   string // empty disables the cue

	ScriptPath string
	Settle     time.Duration
	Chat       bool
}

// Load reads configuration from the environment and an optional env file.
func Load(envFile string) Config {
	_ = godotenv.Load(envFile)

	return Config{
		SocketPath:     getenv("ALIVE_SOCKET", "/tmp/alive.sock"),
		DBPath:         getenv("ALIVE_DB", "./alive.db"),
		PredictURL:     getenv("PREDICT_URL", "http://127.0.0.1:8000"),
		PredictTimeout: time.Duration(getenvInt("PREDICT_TIMEOUT_MS", 30000)) * time.Millisecond,
		ProxyAddr:      getenv("SOCKS_PROXY", ""),
		SpeechMode:     getenv("SPEECH_MODE", "device"),
		BusURL:         getenv("BUS_URL", "ws://localhost:8092/ws"),
		BusPeer:        getenv("BUS_PEER", "speech"),
		WhisperModel:   getenv("WHISPER_MODEL", "third_party/whisper.cpp/models/ggml-base.en.bin"),
		EarconPath:     getenv("EARCON_PATH", "beep.mp3"),
		ScriptPath:     getenv("SCRIPT_PATH", ""),
		Settle:         time.Duration(getenvInt("SETTLE_MS", 300)) * time.Millisecond,
		Chat:           getenvBool("CHAT", true),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
