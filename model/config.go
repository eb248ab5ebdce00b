package model

import (
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

const ConfigEnvPrefix = "NZU"

// Config is shared by the client CLI and the reference dashboard.
type Config struct {
	Debug    bool   `mapstructure:"debug"`
	Language string `mapstructure:"language"`
	UserID   string `mapstructure:"user_id"`
	PageSize int    `mapstructure:"page_size"`

	Dashboard struct {
		URL      string `mapstructure:"url"`
		PushURL  string `mapstructure:"push_url"`
		Insecure bool   `mapstructure:"insecure"` // 跳过 TLS 证书校验
		Token    string `mapstructure:"token"`
	} `mapstructure:"dashboard"`
	NATS struct {
		URL     string `mapstructure:"url"`
		Subject string `mapstructure:"subject"`
	} `mapstructure:"nats"`
	Preference struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"preference"`

	// 以下仅 dashboard 使用
	Listen   string `mapstructure:"listen"`
	Database struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"database"`
	AutoRefresh struct {
		Interval int `mapstructure:"interval"`
	} `mapstructure:"auto_refresh"`
	SeedPath string `mapstructure:"seed_path"`
}

// SetDefaults registers the default of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("language", "en-US")
	v.SetDefault("page_size", 10)
	v.SetDefault("dashboard.url", "http://127.0.0.1:8008")
	v.SetDefault("dashboard.push_url", "ws://127.0.0.1:8008/ws/monitors")
	v.SetDefault("nats.subject", "monitors.updated")
	v.SetDefault("preference.path", "data/preference.db")
	v.SetDefault("listen", ":8008")
	v.SetDefault("database.path", "data/dashboard.db")
	v.SetDefault("auto_refresh.interval", 10)
}

// Read loads the config from path (optional) and the environment, and keeps
// it updated when the file changes.
func (c *Config) Read(v *viper.Viper, path string) error {
	SetDefaults(v)
	v.SetEnvPrefix(ConfigEnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return err
		}
	}
	if err := v.Unmarshal(c); err != nil {
		return err
	}
	if path != "" {
		v.OnConfigChange(func(in fsnotify.Event) {
			v.Unmarshal(c)
		})
		go v.WatchConfig()
	}
	return nil
}
