package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Agent         AgentConfig         `yaml:"agent"`
	Connectivity  ConnectivityConfig  `yaml:"connectivity"`
	Capture       CaptureConfig       `yaml:"capture"`
	Activity      ActivityConfig      `yaml:"activity"`
	Reminder      ReminderConfig      `yaml:"reminder"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Home          HomeConfig          `yaml:"home"`
	Logging       LoggingConfig       `yaml:"logging"`
}

type AgentConfig struct {
	Server ServerConfig `yaml:"server"`
	Bridge BridgeConfig `yaml:"bridge"`
}

type ServerConfig struct {
	URL            string `yaml:"url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type BridgeConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

type ConnectivityConfig struct {
	IntervalSeconds int    `yaml:"interval_seconds"`
	TimeoutMillis   int    `yaml:"timeout_ms"`
	Retries         int    `yaml:"retries"`
	ProbeURL        string `yaml:"probe_url"`
}

type CaptureConfig struct {
	ScreenshotIntervalSeconds int `yaml:"screenshot_interval_seconds"`
	VideoIntervalSeconds      int `yaml:"video_interval_seconds"`
	VideoClipSeconds          int `yaml:"video_clip_seconds"`
	HeartbeatIntervalSeconds  int `yaml:"heartbeat_interval_seconds"`
	Quality                   int `yaml:"quality"`
}

type ActivityConfig struct {
	PollIntervalSeconds int `yaml:"poll_interval_seconds"`
}

type ReminderConfig struct {
	IntervalSeconds int `yaml:"interval_seconds"`
}

// NotificationsConfig silences user notifications when Disabled is
// set; monitoring itself is unaffected.
type NotificationsConfig struct {
	Disabled bool `yaml:"disabled"`
}

type HomeConfig struct {
	DevMode    bool   `yaml:"dev_mode"`
	LiveURL    string `yaml:"live_url"`
	LocalURL   string `yaml:"local_url"`
	OfflineURL string `yaml:"offline_url"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()

	if cfg.Agent.Server.URL == "" {
		return nil, fmt.Errorf("agent.server.url is required")
	}

	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Agent.Server.TimeoutSeconds == 0 {
		cfg.Agent.Server.TimeoutSeconds = 30
	}
	if cfg.Agent.Bridge.ListenAddr == "" {
		cfg.Agent.Bridge.ListenAddr = "127.0.0.1:17605"
	}
	if cfg.Connectivity.IntervalSeconds == 0 {
		cfg.Connectivity.IntervalSeconds = 2
	}
	if cfg.Connectivity.TimeoutMillis == 0 {
		cfg.Connectivity.TimeoutMillis = 5000
	}
	if cfg.Connectivity.Retries == 0 {
		cfg.Connectivity.Retries = 3
	}
	if cfg.Connectivity.ProbeURL == "" {
		cfg.Connectivity.ProbeURL = "https://google.com"
	}
	if cfg.Capture.ScreenshotIntervalSeconds == 0 {
		cfg.Capture.ScreenshotIntervalSeconds = 10
	}
	if cfg.Capture.VideoIntervalSeconds == 0 {
		cfg.Capture.VideoIntervalSeconds = 30
	}
	if cfg.Capture.VideoClipSeconds == 0 {
		cfg.Capture.VideoClipSeconds = 6
	}
	if cfg.Capture.HeartbeatIntervalSeconds == 0 {
		cfg.Capture.HeartbeatIntervalSeconds = 10
	}
	if cfg.Capture.Quality == 0 {
		cfg.Capture.Quality = 75
	}
	if cfg.Activity.PollIntervalSeconds == 0 {
		cfg.Activity.PollIntervalSeconds = 10
	}
	if cfg.Reminder.IntervalSeconds == 0 {
		cfg.Reminder.IntervalSeconds = 10
	}
}

// HomeURL returns the page the content view should show while online,
// selected by build mode.
func (h HomeConfig) HomeURL() string {
	if h.DevMode {
		return h.LocalURL
	}
	return h.LiveURL
}

func (c ConnectivityConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

func (c ConnectivityConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMillis) * time.Millisecond
}
