package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/robfig/cron/v3"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration. Every key can be
// overridden from the environment; env-default fills whatever the file
// leaves empty.
type Config struct {
	// Listen is the HTTP listen address for the UI and API.
	Listen string `yaml:"listen" env:"EVCAL_LISTEN" env-default:"127.0.0.1:8080"`

	Log     LogConfig     `yaml:"log"`
	Auth    AuthConfig    `yaml:"auth"`
	Session SessionConfig `yaml:"session"`
	Preview PreviewConfig `yaml:"preview"`
	Import  ImportConfig  `yaml:"import"`
}

type LogConfig struct {
	Level  string `yaml:"level"  env:"EVCAL_LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"EVCAL_LOG_FORMAT" env-default:"text"`
}

// AuthConfig controls account sign-in and the session tokens handed to
// browsers.
type AuthConfig struct {
	// JWTSecret signs session tokens. At least 32 bytes; generated on first run.
	JWTSecret         string        `yaml:"jwt_secret"          env:"EVCAL_AUTH_JWT_SECRET"`
	JWTIssuer         string        `yaml:"jwt_issuer"          env:"EVCAL_AUTH_JWT_ISSUER"          env-default:"evcal"`
	TokenTTL          time.Duration `yaml:"token_ttl"           env:"EVCAL_AUTH_TOKEN_TTL"           env-default:"24h"`
	MinPasswordLength int           `yaml:"min_password_length" env:"EVCAL_AUTH_MIN_PASSWORD_LENGTH" env-default:"6"`
	BcryptCost        int           `yaml:"bcrypt_cost"         env:"EVCAL_AUTH_BCRYPT_COST"         env-default:"10"`

	Google GoogleConfig `yaml:"google"`
}

// GoogleConfig enables "Sign in with Google" when both client fields are set.
type GoogleConfig struct {
	ClientID     string `yaml:"client_id"     env:"EVCAL_GOOGLE_CLIENT_ID"`
	ClientSecret string `yaml:"client_secret" env:"EVCAL_GOOGLE_CLIENT_SECRET"`
	RedirectURL  string `yaml:"redirect_url"  env:"EVCAL_GOOGLE_REDIRECT_URL"`
}

// Enabled reports whether Google sign-in is fully configured.
func (g GoogleConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

type SessionConfig struct {
	// IdleTTL is how long an untouched calendar session survives.
	IdleTTL time.Duration `yaml:"idle_ttl" env:"EVCAL_SESSION_IDLE_TTL" env-default:"12h"`
	// Sweep is a cron spec for the idle-session sweeper.
	Sweep string `yaml:"sweep" env:"EVCAL_SESSION_SWEEP" env-default:"@every 5m"`
}

// PreviewConfig controls the headless-Chromium PNG rendering of /calendar.
type PreviewConfig struct {
	Enabled bool          `yaml:"enabled" env:"EVCAL_PREVIEW_ENABLED" env-default:"false"`
	Width   int           `yaml:"width"   env:"EVCAL_PREVIEW_WIDTH"   env-default:"1200"`
	Height  int           `yaml:"height"  env:"EVCAL_PREVIEW_HEIGHT"  env-default:"900"`
	Timeout time.Duration `yaml:"timeout" env:"EVCAL_PREVIEW_TIMEOUT" env-default:"20s"`
	// BaseURL is where the browser reaches this server; empty means
	// "http://" + Listen.
	BaseURL string `yaml:"base_url" env:"EVCAL_PREVIEW_BASE_URL"`
}

type ImportConfig struct {
	MaxBytes     int64         `yaml:"max_bytes"     env:"EVCAL_IMPORT_MAX_BYTES"     env-default:"1048576"`
	FetchTimeout time.Duration `yaml:"fetch_timeout" env:"EVCAL_IMPORT_FETCH_TIMEOUT" env-default:"15s"`
	// AllowPrivate lets URL imports reach loopback, private and link-local
	// addresses. Leave off unless feeds are served from the local network.
	AllowPrivate bool `yaml:"allow_private" env:"EVCAL_IMPORT_ALLOW_PRIVATE" env-default:"false"`
	CacheEntries int  `yaml:"cache_entries" env:"EVCAL_IMPORT_CACHE_ENTRIES" env-default:"64"`
}

// DefaultConfig returns the env-default values with a freshly generated JWT
// secret.
func DefaultConfig() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}
	if cfg.Auth.JWTSecret == "" {
		secret, err := randomSecret()
		if err != nil {
			return nil, err
		}
		cfg.Auth.JWTSecret = secret
	}
	cfg.Normalize()
	return &cfg, nil
}

// Normalize cleans up values that are valid YAML but awkward to consume.
func (c *Config) Normalize() {
	c.Listen = strings.TrimSpace(c.Listen)
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	c.Preview.BaseURL = strings.TrimRight(c.Preview.BaseURL, "/")
	c.Session.Sweep = strings.TrimSpace(c.Session.Sweep)
}

// Validate checks business rules on a loaded configuration.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return errors.New("listen must not be empty")
	}
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters (got %d)", len(c.Auth.JWTSecret))
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be > 0 (got %s)", c.Auth.TokenTTL)
	}
	if c.Auth.MinPasswordLength < 1 {
		return fmt.Errorf("auth.min_password_length must be >= 1 (got %d)", c.Auth.MinPasswordLength)
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("auth.bcrypt_cost must be within %d..%d (got %d)", bcrypt.MinCost, bcrypt.MaxCost, c.Auth.BcryptCost)
	}
	if c.Session.Sweep != "" {
		if _, err := cron.ParseStandard(c.Session.Sweep); err != nil {
			return fmt.Errorf("session.sweep: %w", err)
		}
	}
	if c.Preview.Enabled && (c.Preview.Width <= 0 || c.Preview.Height <= 0) {
		return fmt.Errorf("preview size must be positive (got %dx%d)", c.Preview.Width, c.Preview.Height)
	}
	if c.Import.MaxBytes <= 0 {
		return fmt.Errorf("import.max_bytes must be > 0 (got %d)", c.Import.MaxBytes)
	}
	if c.Import.CacheEntries <= 0 {
		return fmt.Errorf("import.cache_entries must be > 0 (got %d)", c.Import.CacheEntries)
	}
	return nil
}

// Load reads configuration from the given YAML path with environment
// overrides (ENV > YAML > env-default).
//
// Behavior:
//   - If the file does not exist, defaults are written there with 0600
//     permissions and returned.
//   - Otherwise the file is read, normalized and validated.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: stat %s: %w", path, err)
		}
		// First run: create default config file.
		cfg, err := DefaultConfig()
		if err != nil {
			return nil, err
		}
		if err := Save(path, cfg); err != nil {
			// Even if save fails, return cfg with error so caller can decide.
			return cfg, err
		}
		return cfg, nil
	}

	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg.Normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

// Save writes cfg to path atomically: parent directory 0700, temp file in the
// same directory, 0600 permissions, then rename over the target.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".evcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}

// PreviewBaseURL is the origin the headless browser should load pages from.
func (c *Config) PreviewBaseURL() string {
	if c.Preview.BaseURL != "" {
		return c.Preview.BaseURL
	}
	return "http://" + c.Listen
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("config: generate jwt secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}
