package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix             = "RORIGATE"
	DefaultServerURL      = "http://localhost:8000"
	DefaultRequestTimeout = 10 * time.Second
	DefaultInitialDelay   = 500 * time.Millisecond
	DefaultMaxDelay       = 30 * time.Second
	DefaultLogLevel       = "info"
)

// Reconnect controls push channel backoff. MaxAttempts of zero retries
// forever.
type Reconnect struct {
	InitialDelay Duration `json:"initial_delay,omitempty"`
	MaxDelay     Duration `json:"max_delay,omitempty"`
	MaxAttempts  int      `json:"max_attempts,omitempty"`
}

type Profile struct {
	ServerURL      string    `json:"server_url"`
	RequestTimeout Duration  `json:"request_timeout,omitempty"`
	Reconnect      Reconnect `json:"reconnect"`
	LogLevel       string    `json:"log_level,omitempty"`
}

// Env holds RORIGATE_* overrides. They apply to the running process only
// and are never written back to the config file.
type Env struct {
	Home           string        `envconfig:"HOME"`
	Profile        string        `envconfig:"PROFILE"`
	ServerURL      string        `envconfig:"SERVER_URL"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT"`
	LogLevel       string        `envconfig:"LOG_LEVEL"`
}

type Config struct {
	Profiles       map[string]Profile `json:"profiles"`
	ActiveProfile  string             `json:"active_profile"`
	current        string
	currentProfile *Profile
	path           string
}

func LoadConfig() (*Config, error) {
	var env Env
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	configPath, err := getConfigPath(env.Home)
	if err != nil {
		return nil, fmt.Errorf("failed to get config path: %w", err)
	}

	// Ensure config directory exists
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	config, err := loadConfigFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	config.path = configPath

	name := config.ActiveProfile
	if env.Profile != "" {
		name = env.Profile
	}
	if err := config.UseProfile(name); err != nil {
		if env.Profile != "" {
			return nil, err
		}
		if err := config.setFallbackProfile(); err != nil {
			return nil, fmt.Errorf("failed to set current profile: %w", err)
		}
	}
	config.applyEnv(env)

	return config, nil
}

// UseProfile selects name for this process without changing the saved
// active profile.
func (c *Config) UseProfile(name string) error {
	profile, exists := c.Profiles[name]
	if !exists {
		return fmt.Errorf("profile '%s' does not exist", name)
	}
	c.current = name
	c.currentProfile = &profile
	return nil
}

// OverrideServer points the current profile at serverURL for this process.
func (c *Config) OverrideServer(serverURL string) {
	if c.currentProfile == nil {
		c.currentProfile = &Profile{}
	}
	c.currentProfile.ServerURL = serverURL
}

func (c *Config) applyEnv(env Env) {
	if env.ServerURL != "" {
		c.OverrideServer(env.ServerURL)
	}
	if env.RequestTimeout > 0 {
		c.currentProfile.RequestTimeout = Duration(env.RequestTimeout)
	}
	if env.LogLevel != "" {
		c.currentProfile.LogLevel = env.LogLevel
	}
}

// CurrentProfile is the name of the profile in use.
func (c *Config) CurrentProfile() string {
	return c.current
}

func (c *Config) Validate() error {
	if c.currentProfile == nil {
		return fmt.Errorf("no profile selected")
	}
	u, err := url.Parse(c.currentProfile.ServerURL)
	if err != nil {
		return fmt.Errorf("invalid server_url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("server_url must be an http(s) URL, got %q", c.currentProfile.ServerURL)
	}
	return nil
}

func (c *Config) IsValid() bool {
	return c.Validate() == nil
}

// BaseURL is the HTTP root of the approval server, without a trailing slash.
func (c *Config) BaseURL() string {
	if c.currentProfile == nil || c.currentProfile.ServerURL == "" {
		return DefaultServerURL
	}
	return strings.TrimRight(c.currentProfile.ServerURL, "/")
}

// WebSocketURL derives the push channel address from the server URL.
func (c *Config) WebSocketURL() (string, error) {
	return WebSocketURL(c.BaseURL())
}

func WebSocketURL(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid server url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String(), nil
}

func (c *Config) RequestTimeout() time.Duration {
	if c.currentProfile == nil || c.currentProfile.RequestTimeout <= 0 {
		return DefaultRequestTimeout
	}
	return c.currentProfile.RequestTimeout.Std()
}

// ReconnectPolicy returns the backoff settings with defaults filled in.
func (c *Config) ReconnectPolicy() Reconnect {
	r := Reconnect{}
	if c.currentProfile != nil {
		r = c.currentProfile.Reconnect
	}
	if r.InitialDelay <= 0 {
		r.InitialDelay = Duration(DefaultInitialDelay)
	}
	if r.MaxDelay <= 0 {
		r.MaxDelay = Duration(DefaultMaxDelay)
	}
	if r.MaxDelay < r.InitialDelay {
		r.MaxDelay = r.InitialDelay
	}
	if r.MaxAttempts < 0 {
		r.MaxAttempts = 0
	}
	return r
}

func (c *Config) LogLevel() string {
	if c.currentProfile == nil || c.currentProfile.LogLevel == "" {
		return DefaultLogLevel
	}
	return c.currentProfile.LogLevel
}

// Dir is the directory holding the config file and the default log.
func (c *Config) Dir() string {
	return filepath.Dir(c.path)
}

func (c *Config) Path() string {
	return c.path
}

func getConfigPath(home string) (string, error) {
	configDir := home
	// Use RORIGATE_HOME if set, otherwise use user's home directory
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = homeDir
	}

	return filepath.Join(configDir, ".rorigate", "config.json"), nil
}

func loadConfigFile(configPath string) (*Config, error) {
	// If config file doesn't exist, create default
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return createDefaultConfig(configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, err
	}
	if config.Profiles == nil {
		config.Profiles = make(map[string]Profile)
	}

	return &config, nil
}

func DefaultProfile() Profile {
	return Profile{
		ServerURL:      DefaultServerURL,
		RequestTimeout: Duration(DefaultRequestTimeout),
	}
}

func createDefaultConfig(configPath string) (*Config, error) {
	config := &Config{
		Profiles:      map[string]Profile{"default": DefaultProfile()},
		ActiveProfile: "default",
	}

	if err := saveConfig(config, configPath); err != nil {
		return nil, err
	}

	return config, nil
}

func saveConfig(config *Config, configPath string) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0600)
}

func (c *Config) Save() error {
	if c.path == "" {
		return fmt.Errorf("config has no file path")
	}
	return saveConfig(c, c.path)
}

// setFallbackProfile picks another profile when the active one is missing,
// recreating the default profile if none are left.
func (c *Config) setFallbackProfile() error {
	if len(c.Profiles) == 0 {
		c.Profiles["default"] = DefaultProfile()
	}
	names := c.ProfileNames()
	c.ActiveProfile = names[0]
	return c.UseProfile(names[0])
}

// ProfileNames returns profile names in sorted order.
func (c *Config) ProfileNames() []string {
	names := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
