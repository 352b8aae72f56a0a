// Package config handles screenwatch configuration
package config

import (
	"fmt"
	"image"
	"os"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/GriffinCanCode/screenwatch/internal/errors"
)

// Region is a screen rectangle in absolute display coordinates.
type Region struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Rect converts the region to an image.Rectangle.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

func (r Region) String() string {
	return fmt.Sprintf("%d,%d,%d,%d", r.X, r.Y, r.Width, r.Height)
}

// Monitor is the per-session snapshot consumed by the scheduler.
type Monitor struct {
	Region   Region
	Interval time.Duration
	Keywords []string
	Reply    string
	Language string
	Submit   bool // press Enter after typing Reply
	// MaxHashDistance enables perceptual frame skipping when > 0.
	MaxHashDistance int
	Dedup           Dedup
}

// Dedup selects the claim eviction policy.
type Dedup struct {
	Policy string // unbounded, size, window
	Limit  int
	Window time.Duration
}

// Config is the full process configuration.
type Config struct {
	HTTPAddr       string
	CaptureBackend string
	OCRBackend     string
	OCRAddr        string
	JournalPath    string
	MQTTBroker     string
	MQTTTopic      string
	AlertSound     bool
	LogLevel       string
	LogFormat      string
	LogFile        string
	Monitor        Monitor
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		HTTPAddr:       ":8000",
		CaptureBackend: "screenshot",
		OCRBackend:     "tesseract",
		OCRAddr:        "localhost:50051",
		MQTTTopic:      "screenwatch",
		LogLevel:       "info",
		LogFormat:      "text",
		Monitor: Monitor{
			Region:   Region{X: 100, Y: 100, Width: 800, Height: 600},
			Interval: DefaultInterval,
			Keywords: append([]string(nil), DefaultKeywords...),
			Reply:    DefaultReply,
			Language: DefaultLanguage,
			Submit:   true,
			Dedup:    Dedup{Policy: DedupUnbounded},
		},
	}
}

// Load builds the configuration from defaults, an optional file, then env.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := LoadFile(path, cfg); err != nil {
			return nil, err
		}
	}
	applyEnv(cfg)
	cfg.Monitor.Keywords = normalizeKeywords(cfg.Monitor.Keywords)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.HTTPAddr = getEnv("HTTP_ADDR", cfg.HTTPAddr)
	cfg.CaptureBackend = getEnv("CAPTURE_BACKEND", cfg.CaptureBackend)
	cfg.OCRBackend = getEnv("OCR_BACKEND", cfg.OCRBackend)
	cfg.OCRAddr = getEnv("OCR_ADDR", cfg.OCRAddr)
	cfg.JournalPath = getEnv("JOURNAL_PATH", cfg.JournalPath)
	cfg.MQTTBroker = getEnv("MQTT_BROKER", cfg.MQTTBroker)
	cfg.MQTTTopic = getEnv("MQTT_TOPIC", cfg.MQTTTopic)
	cfg.AlertSound = getEnvBool("ALERT_SOUND", cfg.AlertSound)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)
	cfg.LogFile = getEnv("LOG_FILE", cfg.LogFile)

	m := &cfg.Monitor
	m.Region = getEnvRegion("CAPTURE_REGION", m.Region)
	m.Interval = getEnvSeconds("CHECK_INTERVAL", m.Interval)
	m.Keywords = getEnvList("KEYWORDS", m.Keywords)
	m.Reply = getEnv("REPLY_TEXT", m.Reply)
	m.Language = getEnv("OCR_LANGUAGE", m.Language)
	m.Submit = getEnvBool("SUBMIT_REPLY", m.Submit)
	m.MaxHashDistance = getEnvInt("MAX_HASH_DISTANCE", m.MaxHashDistance)
	m.Dedup.Policy = getEnv("DEDUP_POLICY", m.Dedup.Policy)
	m.Dedup.Limit = getEnvInt("DEDUP_LIMIT", m.Dedup.Limit)
	m.Dedup.Window = getEnvSeconds("DEDUP_WINDOW", m.Dedup.Window)
}

// Validate checks the session snapshot. It never mutates m.
func (m Monitor) Validate() error {
	r := m.Region
	if r.X <= 0 || r.Y <= 0 || r.Width <= 0 || r.Height <= 0 {
		return apperrors.ConfigInvalid("capture region must be positive").
			WithMetadata("region", r.String())
	}
	if m.Interval < MinInterval {
		return apperrors.ConfigInvalid(fmt.Sprintf("interval %s is below %s", m.Interval, MinInterval))
	}
	if len(normalizeKeywords(m.Keywords)) == 0 {
		return apperrors.ConfigInvalid("keyword set is empty")
	}
	switch m.Dedup.Policy {
	case "", DedupUnbounded:
	case DedupSize:
		if m.Dedup.Limit <= 0 {
			return apperrors.ConfigInvalid("dedup size policy needs a positive limit")
		}
	case DedupWindow:
		if m.Dedup.Window <= 0 {
			return apperrors.ConfigInvalid("dedup window policy needs a positive window")
		}
	default:
		return apperrors.ConfigInvalid("unknown dedup policy " + strconv.Quote(m.Dedup.Policy))
	}
	return nil
}

// KeywordSet returns the keywords trimmed and deduplicated, in configured order.
func (m Monitor) KeywordSet() []string {
	return normalizeKeywords(m.Keywords)
}

// normalizeKeywords drops blank entries and duplicates, keeping first-seen order.
func normalizeKeywords(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, k := range in {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

// getEnvSeconds reads a float number of seconds.
func getEnvSeconds(key string, def time.Duration) time.Duration {
	f := getEnvFloat(key, -1)
	if f < 0 {
		return def
	}
	return time.Duration(f * float64(time.Second))
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true" || v == "1"
	}
	return def
}

func getEnvList(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if t := strings.TrimSpace(p); t != "" {
				result = append(result, t)
			}
		}
		return result
	}
	return def
}

// getEnvRegion parses "x,y,width,height".
func getEnvRegion(key string, def Region) Region {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	if len(parts) != 4 {
		return def
	}
	var vals [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return def
		}
		vals[i] = n
	}
	return Region{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]}
}
