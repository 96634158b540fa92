package config

import (
	"encoding/json"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"silentwave/internal/fetcher"
	"silentwave/internal/hfc"
)

// Config хранит настройки сервиса. Интервалы и TTL задаются в миллисекундах.
type Config struct {
	ListenAddr         string `json:"listen_addr" yaml:"listen_addr"`
	AlertsURL          string `json:"alerts_url" yaml:"alerts_url"`
	AlertsProxyURL     string `json:"alerts_proxy_url" yaml:"alerts_proxy_url"`
	NewsURL            string `json:"news_url" yaml:"news_url"`
	NewsLimit          int    `json:"news_limit" yaml:"news_limit"`
	PollIntervalAlerts int    `json:"poll_interval_alerts" yaml:"poll_interval_alerts"`
	PollIntervalNews   int    `json:"poll_interval_news" yaml:"poll_interval_news"`
	AlertCacheTTL      int    `json:"alert_cache_ttl" yaml:"alert_cache_ttl"`
	NewsCacheTTL       int    `json:"news_cache_ttl" yaml:"news_cache_ttl"`
	MockAlertTTL       int    `json:"mock_alert_ttl" yaml:"mock_alert_ttl"`
	UpstreamTimeout    int    `json:"upstream_timeout" yaml:"upstream_timeout"`
	PrefsPath          string `json:"prefs_path" yaml:"prefs_path"`
	AudioAutoUnlock    bool   `json:"audio_auto_unlock" yaml:"audio_auto_unlock"`
	EnableMockEndpoint bool   `json:"enable_mock_endpoint" yaml:"enable_mock_endpoint"`
}

// Default возвращает настройки по умолчанию.
func Default() *Config {
	return &Config{
		ListenAddr:         ":8080",
		AlertsURL:          hfc.DefaultAlertsURL,
		NewsURL:            fetcher.DefaultFeedURL,
		NewsLimit:          fetcher.DefaultLimit,
		PollIntervalAlerts: 1500,
		PollIntervalNews:   30000,
		AlertCacheTTL:      1000,
		NewsCacheTTL:       30000,
		MockAlertTTL:       3600000,
		UpstreamTimeout:    5000,
		PrefsPath:          "silentwave-prefs.json",
		AudioAutoUnlock:    true,
		EnableMockEndpoint: true,
	}
}

// Validate проверяет интервалы опроса, TTL и что все URL валидные.
func (cfg *Config) Validate() error {
	if cfg.PollIntervalAlerts < 250 {
		return errors.New("alert poll interval must be ≥ 250 ms")
	}
	if cfg.PollIntervalNews < 1000 {
		return errors.New("news poll interval must be ≥ 1000 ms")
	}
	if cfg.AlertCacheTTL <= 0 || cfg.NewsCacheTTL <= 0 || cfg.MockAlertTTL <= 0 {
		return errors.New("cache ttl must be positive")
	}
	if cfg.UpstreamTimeout <= 0 {
		return errors.New("upstream timeout must be positive")
	}
	if cfg.NewsLimit < 1 {
		return errors.New("news limit must be ≥ 1")
	}
	for name, u := range map[string]string{"alerts": cfg.AlertsURL, "news": cfg.NewsURL} {
		if _, err := url.ParseRequestURI(u); err != nil {
			return errors.Errorf("invalid %s URL: %s", name, u)
		}
	}
	if cfg.AlertsProxyURL != "" {
		if _, err := url.ParseRequestURI(cfg.AlertsProxyURL); err != nil {
			return errors.Errorf("invalid proxy URL: %s", cfg.AlertsProxyURL)
		}
	}
	return nil
}

// LoadConfig читает файл по пути path поверх настроек по умолчанию.
// Файлы .yaml/.yml декодируются как YAML, остальные как JSON. Пустой path даёт значения по умолчанию.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.NewDecoder(file).Decode(cfg); err != nil {
			return nil, errors.Wrap(err, "parse yaml config")
		}
	default:
		if err := json.NewDecoder(file).Decode(cfg); err != nil {
			return nil, errors.Wrap(err, "parse json config")
		}
	}
	return cfg, nil
}

// ApplyEnv переопределяет настройки из переменных окружения.
func (cfg *Config) ApplyEnv(getenv func(string) string) error {
	if getenv == nil {
		getenv = os.Getenv
	}

	strs := map[string]*string{
		"LISTEN_ADDR":    &cfg.ListenAddr,
		"HFC_ALERTS_URL": &cfg.AlertsURL,
		"HFC_PROXY_URL":  &cfg.AlertsProxyURL,
		"NEWS_RSS_URL":   &cfg.NewsURL,
		"PREFS_PATH":     &cfg.PrefsPath,
	}
	for key, dst := range strs {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"POLL_INTERVAL_ALERTS": &cfg.PollIntervalAlerts,
		"POLL_INTERVAL_NEWS":   &cfg.PollIntervalNews,
	}
	for key, dst := range ints {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Errorf("invalid %s: %q", key, v)
		}
		*dst = n
	}
	return nil
}

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

func (cfg *Config) AlertInterval() time.Duration { return ms(cfg.PollIntervalAlerts) }
func (cfg *Config) NewsInterval() time.Duration  { return ms(cfg.PollIntervalNews) }
func (cfg *Config) AlertTTL() time.Duration      { return ms(cfg.AlertCacheTTL) }
func (cfg *Config) NewsTTL() time.Duration       { return ms(cfg.NewsCacheTTL) }
func (cfg *Config) MockTTL() time.Duration       { return ms(cfg.MockAlertTTL) }
func (cfg *Config) Timeout() time.Duration       { return ms(cfg.UpstreamTimeout) }
