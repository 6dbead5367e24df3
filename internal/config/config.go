package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/swiftguard/internal/cache"
	"github.com/nao1215/swiftguard/internal/engine"
	"github.com/nao1215/swiftguard/internal/eventsink"
	"github.com/nao1215/swiftguard/internal/factcheck"
	"github.com/nao1215/swiftguard/internal/llm"
	"github.com/nao1215/swiftguard/internal/model"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "swiftguard"

	// DefaultListen is where the dispatch API listens. Loopback only: the
	// browser shell runs on the same machine.
	DefaultListen = "127.0.0.1:8787"

	// DefaultProxyListen is where the fact-check proxy listens.
	DefaultProxyListen = "127.0.0.1:8788"

	// DefaultModel is the local Ollama model used for every prompt.
	DefaultModel = "gemma3:4b"

	// DefaultFactCheckURL points the client at a proxy on DefaultProxyListen.
	DefaultFactCheckURL = "http://127.0.0.1:8788/factcheck"
)

// Config holds every swiftguard option. It is populated from defaults, the
// config file, environment variables and CLI flags, in that order.
type Config struct {
	// Listen is the dispatch API address.
	Listen string `yaml:"listen"`
	// ProxyListen is the fact-check proxy address.
	ProxyListen string `yaml:"proxy_listen"`
	// APIKey guards the /v1 routes when set.
	APIKey string `yaml:"api_key"`

	OllamaURL  string `yaml:"ollama_url"`
	Model      string `yaml:"model"`
	CloudURL   string `yaml:"cloud_url"`
	CloudModel string `yaml:"cloud_model"`

	// FactCheckURL is the proxy endpoint the news pipeline queries.
	FactCheckURL string `yaml:"factcheck_url"`
	// FactCheckAPIKey is sent to the proxy and is also the key the proxy
	// accepts from clients.
	FactCheckAPIKey string `yaml:"factcheck_api_key"`
	// FactCheckUpstreamKey is the Google Fact Check Tools key used by the
	// proxy.
	FactCheckUpstreamKey string `yaml:"factcheck_upstream_key"`
	// FactCheckRate limits client requests per second.
	FactCheckRate int `yaml:"factcheck_rate"`

	// NATSURL enables the family event sink when set.
	NATSURL           string `yaml:"nats_url"`
	NATSSubjectPrefix string `yaml:"nats_subject_prefix"`

	// InferenceMode and MonitoringMode seed the stored settings on first run.
	InferenceMode  string `yaml:"inference_mode"`
	MonitoringMode string `yaml:"monitoring_mode"`

	GracePeriod   time.Duration `yaml:"grace_period"`
	Debounce      time.Duration `yaml:"debounce"`
	SnapshotDelay time.Duration `yaml:"snapshot_delay"`
	RescanDelay   time.Duration `yaml:"rescan_delay"`

	LLMLogLimit    int `yaml:"llm_log_limit"`
	FamilyLogLimit int `yaml:"family_log_limit"`

	// FamilyID and FamilyUserID seed the family enrollment.
	FamilyID     string `yaml:"family_id"`
	FamilyUserID string `yaml:"family_user_id"`

	// DBDir is the directory holding swiftguard.db. Defaults to XDGDataDir.
	DBDir string `yaml:"db_dir"`

	// Verbose enables debug logging. Flag only.
	Verbose bool `yaml:"-"`
	// ConfigFilePath is the file the config was read from, if any.
	ConfigFilePath string `yaml:"-"`
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		Listen:            DefaultListen,
		ProxyListen:       DefaultProxyListen,
		OllamaURL:         llm.DefaultOllamaURL,
		Model:             DefaultModel,
		FactCheckURL:      DefaultFactCheckURL,
		FactCheckRate:     factcheck.DefaultRate,
		NATSSubjectPrefix: eventsink.DefaultSubjectPrefix,
		InferenceMode:     string(model.InferenceOnDevice),
		MonitoringMode:    string(model.DefaultMonitoringMode),
		GracePeriod:       llm.DefaultGracePeriod,
		Debounce:          engine.DefaultDebounce,
		SnapshotDelay:     engine.DefaultSnapshotDelay,
		RescanDelay:       engine.DefaultRescanDelay,
		LLMLogLimit:       cache.DefaultLLMLogLimit,
		FamilyLogLimit:    cache.DefaultFamilyLogLimit,
		DBDir:             XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for swiftguard.
// On Linux: ~/.local/share/swiftguard
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for swiftguard.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for swiftguard.
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// Monitoring returns the parsed monitoring mode. Call Validate first.
func (c *Config) Monitoring() model.MonitoringMode {
	m, err := model.ParseMonitoringMode(c.MonitoringMode)
	if err != nil {
		return model.DefaultMonitoringMode
	}
	return m
}

// Inference returns the parsed inference mode. Call Validate first.
func (c *Config) Inference() model.InferenceMode {
	m, err := model.ParseInferenceMode(c.InferenceMode)
	if err != nil {
		return model.InferenceOnDevice
	}
	return m
}

// CloudEnabled reports whether a cloud runtime is configured.
func (c *Config) CloudEnabled() bool {
	return c.CloudURL != "" && c.CloudModel != ""
}

// Validate returns the first problem found in c.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return ErrMissingListen
	}
	if c.Model == "" {
		return ErrMissingModel
	}
	if _, err := model.ParseMonitoringMode(c.MonitoringMode); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidMonitoringMode, c.MonitoringMode)
	}
	inference, err := model.ParseInferenceMode(c.InferenceMode)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidInferenceMode, c.InferenceMode)
	}
	if inference == model.InferenceCloud && !c.CloudEnabled() {
		return ErrCloudNotConfigured
	}

	for name, d := range map[string]time.Duration{
		"grace_period":   c.GracePeriod,
		"debounce":       c.Debounce,
		"snapshot_delay": c.SnapshotDelay,
		"rescan_delay":   c.RescanDelay,
	} {
		if d < 0 {
			return fmt.Errorf("%w: %s=%s", ErrInvalidDuration, name, d)
		}
	}

	if c.FactCheckRate <= 0 {
		return ErrInvalidRate
	}
	if c.LLMLogLimit <= 0 || c.FamilyLogLimit <= 0 {
		return ErrInvalidLogLimit
	}
	return nil
}
