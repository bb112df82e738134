package server

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/multierr"
)

// Config 进程配置，对应 TOML 文件的各个小节
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Session   SessionConfig   `toml:"session"`
	Animation AnimationConfig `toml:"animation"`
	Map       MapConfig       `toml:"map"`
	Logging   LoggingConfig   `toml:"logging"`
	Telemetry TelemetryConfig `toml:"telemetry"`
}

// ServerConfig HTTP 监听与默认会话
type ServerConfig struct {
	Addr           string `toml:"addr"`
	StaticDir      string `toml:"static_dir"`
	DefaultSession string `toml:"default_session"`
}

// SessionConfig 会话节拍、队列容量与广播节奏
type SessionConfig struct {
	FrameRate       int  `toml:"frame_rate"` // 每秒 Tick 数
	InputQueueSize  int  `toml:"input_queue_size"`
	ActionQueueSize int  `toml:"action_queue_size"`
	BroadcastEvery  int  `toml:"broadcast_every"` // 每隔多少 Tick 广播一次
	SendQueueSize   int  `toml:"send_queue_size"`
	ClampToMap      bool `toml:"clamp_to_map"` // 移动裁剪到地图范围内
}

// AnimationConfig 动画帧间隔
type AnimationConfig struct {
	FrameInterval duration `toml:"frame_interval"`
}

// MapConfig 内嵌地图名
type MapConfig struct {
	Name string `toml:"name"`
}

// LoggingConfig 日志级别、格式与滚动文件参数
type LoggingConfig struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"` // "json" 或 "console"
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Stderr     bool   `toml:"stderr"`
}

// TelemetryConfig OTLP 追踪导出
type TelemetryConfig struct {
	Enabled     bool   `toml:"enabled"`
	Endpoint    string `toml:"endpoint"`
	ServiceName string `toml:"service_name"`
	TraceTicks  bool   `toml:"trace_ticks"`
}

// duration 支持 "150ms" 形式的 TOML 字符串
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// LoadConfig 读取 TOML 配置，未出现的字段保留默认值
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return ParseConfig(data, path)
}

// ParseConfig 解析 TOML 文本；name 仅用于错误信息
func ParseConfig(data []byte, name string) (*Config, error) {
	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", name, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", name, err)
	}
	return cfg, nil
}

// Validate 检查数值范围
func (c *Config) Validate() error {
	var err error
	if c.Session.FrameRate <= 0 {
		err = multierr.Append(err, fmt.Errorf("session.frame_rate must be positive, got %d", c.Session.FrameRate))
	}
	if c.Session.InputQueueSize <= 0 || c.Session.ActionQueueSize <= 0 || c.Session.SendQueueSize <= 0 {
		err = multierr.Append(err, errors.New("session queue sizes must be positive"))
	}
	if c.Session.BroadcastEvery <= 0 {
		err = multierr.Append(err, fmt.Errorf("session.broadcast_every must be positive, got %d", c.Session.BroadcastEvery))
	}
	if c.Animation.FrameInterval.Duration <= 0 {
		err = multierr.Append(err, fmt.Errorf("animation.frame_interval must be positive, got %s", c.Animation.FrameInterval.Duration))
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		err = multierr.Append(err, fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format))
	}
	return err
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           ":8080",
			StaticDir:      "web",
			DefaultSession: "session-1",
		},
		Session: SessionConfig{
			FrameRate:       DefaultFrameRate,
			InputQueueSize:  256,
			ActionQueueSize: 64,
			BroadcastEvery:  3,
			SendQueueSize:   64,
		},
		Animation: AnimationConfig{
			FrameInterval: duration{DefaultFrameInterval},
		},
		Map: MapConfig{
			Name: "initial",
		},
		Logging: LoggingConfig{
			Level:      "debug",
			Format:     "console",
			File:       "app.log",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
		Telemetry: TelemetryConfig{
			ServiceName: "miniarpg",
		},
	}
}
