package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// fileConfig is the on-disk schema for YAML and TOML. Durations are seconds.
// Zero values leave the current setting untouched.
type fileConfig struct {
	HTTPAddr       string      `yaml:"http_addr" toml:"http_addr"`
	CaptureBackend string      `yaml:"capture_backend" toml:"capture_backend"`
	OCRBackend     string      `yaml:"ocr_backend" toml:"ocr_backend"`
	OCRAddr        string      `yaml:"ocr_addr" toml:"ocr_addr"`
	JournalPath    string      `yaml:"journal_path" toml:"journal_path"`
	MQTTBroker     string      `yaml:"mqtt_broker" toml:"mqtt_broker"`
	MQTTTopic      string      `yaml:"mqtt_topic" toml:"mqtt_topic"`
	AlertSound     *bool       `yaml:"alert_sound" toml:"alert_sound"`
	LogLevel       string      `yaml:"log_level" toml:"log_level"`
	LogFormat      string      `yaml:"log_format" toml:"log_format"`
	LogFile        string      `yaml:"log_file" toml:"log_file"`
	Monitor        fileMonitor `yaml:"monitor" toml:"monitor"`
}

type fileMonitor struct {
	Region          []int    `yaml:"region" toml:"region"`
	Interval        float64  `yaml:"interval" toml:"interval"`
	Keywords        []string `yaml:"keywords" toml:"keywords"`
	Reply           string   `yaml:"reply" toml:"reply"`
	Language        string   `yaml:"language" toml:"language"`
	Submit          *bool    `yaml:"submit" toml:"submit"`
	MaxHashDistance int      `yaml:"max_hash_distance" toml:"max_hash_distance"`
	DedupPolicy     string   `yaml:"dedup_policy" toml:"dedup_policy"`
	DedupLimit      int      `yaml:"dedup_limit" toml:"dedup_limit"`
	DedupWindow     float64  `yaml:"dedup_window" toml:"dedup_window"`
}

// legacyConfig is the config.json layout written by the desktop tool.
type legacyConfig struct {
	Region        []int    `json:"region"`
	ReplyText     *string  `json:"reply_text"`
	CheckInterval float64  `json:"check_interval"`
	Cities        []string `json:"cities"`
	LogToFile     bool     `json:"log_to_file"`
}

// LoadFile overlays the file at path onto cfg. The format follows the extension.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		var fc fileConfig
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return fmt.Errorf("parse yaml config: %w", err)
		}
		return fc.apply(cfg)
	case ".toml":
		var fc fileConfig
		if err := toml.Unmarshal(data, &fc); err != nil {
			return fmt.Errorf("parse toml config: %w", err)
		}
		return fc.apply(cfg)
	case ".json":
		var lc legacyConfig
		if err := json.Unmarshal(data, &lc); err != nil {
			return fmt.Errorf("parse json config: %w", err)
		}
		return lc.apply(cfg, filepath.Dir(path))
	default:
		return fmt.Errorf("unsupported config format %q", ext)
	}
}

func (fc *fileConfig) apply(cfg *Config) error {
	setString(&cfg.HTTPAddr, fc.HTTPAddr)
	setString(&cfg.CaptureBackend, fc.CaptureBackend)
	setString(&cfg.OCRBackend, fc.OCRBackend)
	setString(&cfg.OCRAddr, fc.OCRAddr)
	setString(&cfg.JournalPath, fc.JournalPath)
	setString(&cfg.MQTTBroker, fc.MQTTBroker)
	setString(&cfg.MQTTTopic, fc.MQTTTopic)
	setString(&cfg.LogLevel, fc.LogLevel)
	setString(&cfg.LogFormat, fc.LogFormat)
	setString(&cfg.LogFile, fc.LogFile)
	if fc.AlertSound != nil {
		cfg.AlertSound = *fc.AlertSound
	}

	fm, m := fc.Monitor, &cfg.Monitor
	if fm.Region != nil {
		r, err := regionFromSlice(fm.Region)
		if err != nil {
			return err
		}
		m.Region = r
	}
	if fm.Interval > 0 {
		m.Interval = seconds(fm.Interval)
	}
	if fm.Keywords != nil {
		m.Keywords = fm.Keywords
	}
	setString(&m.Reply, fm.Reply)
	setString(&m.Language, fm.Language)
	if fm.Submit != nil {
		m.Submit = *fm.Submit
	}
	if fm.MaxHashDistance > 0 {
		m.MaxHashDistance = fm.MaxHashDistance
	}
	setString(&m.Dedup.Policy, fm.DedupPolicy)
	if fm.DedupLimit > 0 {
		m.Dedup.Limit = fm.DedupLimit
	}
	if fm.DedupWindow > 0 {
		m.Dedup.Window = seconds(fm.DedupWindow)
	}
	return nil
}

func (lc *legacyConfig) apply(cfg *Config, dir string) error {
	if lc.Region != nil {
		r, err := regionFromSlice(lc.Region)
		if err != nil {
			return err
		}
		cfg.Monitor.Region = r
	}
	if lc.ReplyText != nil {
		cfg.Monitor.Reply = *lc.ReplyText
	}
	if lc.CheckInterval > 0 {
		cfg.Monitor.Interval = seconds(lc.CheckInterval)
	}
	if lc.Cities != nil {
		cfg.Monitor.Keywords = lc.Cities
	}
	if lc.LogToFile && cfg.LogFile == "" {
		cfg.LogFile = filepath.Join(dir, "logs", "screenwatch.log")
	}
	return nil
}

func regionFromSlice(v []int) (Region, error) {
	if len(v) != 4 {
		return Region{}, fmt.Errorf("region needs 4 values (x, y, width, height), got %d", len(v))
	}
	return Region{X: v[0], Y: v[1], Width: v[2], Height: v[3]}, nil
}

func seconds(f float64) time.Duration {
	return time.Duration(f * float64(time.Second))
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
