package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the application's configuration model.
// It captures the bot account, API credentials, on-disk state locations
// and the tuning knobs of fetching and capturing.
type Config struct {
	Account     AccountConfig     `yaml:"account"`
	Credentials CredentialsConfig `yaml:"credentials"`
	Paths       PathsConfig       `yaml:"paths"`
	API         APIConfig         `yaml:"api"`
	Capture     CaptureConfig     `yaml:"capture"`
	Lock        LockConfig        `yaml:"lock"`
	Logging     LoggingConfig     `yaml:"logging"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Schedule    ScheduleConfig    `yaml:"schedule"`
}

type AccountConfig struct {
	// Screen name of the bot, without "@". If empty, read from env X_BOT_HANDLE
	BotHandle string `yaml:"botHandle"`
}

// OAuthConfig holds OAuth1.0a user-context credentials.
type OAuthConfig struct {
	ConsumerKey    string `yaml:"consumerKey"`
	ConsumerSecret string `yaml:"consumerSecret"`
	AccessToken    string `yaml:"accessToken"`
	AccessSecret   string `yaml:"accessSecret"`
}

func (o OAuthConfig) Empty() bool {
	return o.ConsumerKey == "" && o.ConsumerSecret == "" && o.AccessToken == "" && o.AccessSecret == ""
}

func (o OAuthConfig) Complete() bool {
	return o.ConsumerKey != "" && o.ConsumerSecret != "" && o.AccessToken != "" && o.AccessSecret != ""
}

type CredentialsConfig struct {
	// Account that scans timelines. Env X_CONSUMER_KEY, X_CONSUMER_SECRET, X_ACCESS_TOKEN, X_ACCESS_SECRET
	Read OAuthConfig `yaml:"read"`
	// Account that posts replies. Env X_WRITE_*; falls back to Read when unset
	Write OAuthConfig `yaml:"write"`
}

type PathsConfig struct {
	UsersFile      string `yaml:"usersFile"`
	RepliedLedger  string `yaml:"repliedLedger"`
	RequestsLedger string `yaml:"requestsLedger"`
	CursorDir      string `yaml:"cursorDir"`
	ScreenshotDir  string `yaml:"screenshotDir"`
	DBPath         string `yaml:"dbPath"`
}

type APIConfig struct {
	// Tweets requested per timeline read
	PageSize         int `yaml:"pageSize"`
	MentionsPageSize int `yaml:"mentionsPageSize"`
	// Bounded retry on rate limiting
	RateLimitCooldown time.Duration `yaml:"rateLimitCooldown"`
	RateLimitAttempts int           `yaml:"rateLimitAttempts"`
	Timeout           time.Duration `yaml:"timeout"`
}

type CaptureConfig struct {
	ChromePath   string        `yaml:"chromePath"`
	Headless     bool          `yaml:"headless"`
	WindowWidth  int           `yaml:"windowWidth"`
	WindowHeight int           `yaml:"windowHeight"`
	PageTimeout  time.Duration `yaml:"pageTimeout"`
	WaitTimeout  time.Duration `yaml:"waitTimeout"`
	PollInterval time.Duration `yaml:"pollInterval"`
	Attempts     int           `yaml:"attempts"`
	RetryDelay   time.Duration `yaml:"retryDelay"`
}

type LockConfig struct {
	Path    string        `yaml:"path"`
	Timeout time.Duration `yaml:"timeout"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json, logfmt
	File   string `yaml:"file"`
}

type MetricsConfig struct {
	// Listen address for /metrics, e.g. ":9090". If empty, read METRICS_ADDR
	Addr string `yaml:"addr"`
}

type ScheduleConfig struct {
	Cron            string `yaml:"cron"`
	IncludeRequests bool   `yaml:"includeRequests"`
	// Upper bound on one scheduled pass; 0 means unbounded
	Timeout time.Duration `yaml:"timeout"`
}

// Default returns a sensible default configuration.
func Default() Config {
	return Config{
		Account: AccountConfig{BotHandle: "FTBandFTR"},
		Paths: PathsConfig{
			UsersFile:      "./conf/users.txt",
			RepliedLedger:  "./conf/replied_to.txt",
			RequestsLedger: "./conf/requests_completed.txt",
			CursorDir:      "./conf/statuses_checked",
			ScreenshotDir:  "./screenshots",
			DBPath:         "./chronicler.db",
		},
		API: APIConfig{
			PageSize:          10,
			MentionsPageSize:  20,
			RateLimitCooldown: 120 * time.Second,
			RateLimitAttempts: 4,
			Timeout:           30 * time.Second,
		},
		Capture: CaptureConfig{
			Headless:     true,
			WindowWidth:  1280,
			WindowHeight: 2000,
			PageTimeout:  45 * time.Second,
			WaitTimeout:  10 * time.Second,
			PollInterval: 2 * time.Second,
			Attempts:     3,
			RetryDelay:   5 * time.Second,
		},
		Lock:     LockConfig{Path: "./chronicler.lock", Timeout: 10 * time.Second},
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		Schedule: ScheduleConfig{Cron: "*/15 * * * *", IncludeRequests: true, Timeout: 30 * time.Minute},
	}
}

// ResolveEnv fills in config fields from environment variables if not set.
func (c *Config) ResolveEnv() {
	if c.Account.BotHandle == "" {
		c.Account.BotHandle = os.Getenv("X_BOT_HANDLE")
	}
	c.Account.BotHandle = strings.TrimPrefix(c.Account.BotHandle, "@")
	fill(&c.Credentials.Read.ConsumerKey, "X_CONSUMER_KEY")
	fill(&c.Credentials.Read.ConsumerSecret, "X_CONSUMER_SECRET")
	fill(&c.Credentials.Read.AccessToken, "X_ACCESS_TOKEN")
	fill(&c.Credentials.Read.AccessSecret, "X_ACCESS_SECRET")
	fill(&c.Credentials.Write.ConsumerKey, "X_WRITE_CONSUMER_KEY")
	fill(&c.Credentials.Write.ConsumerSecret, "X_WRITE_CONSUMER_SECRET")
	fill(&c.Credentials.Write.AccessToken, "X_WRITE_ACCESS_TOKEN")
	fill(&c.Credentials.Write.AccessSecret, "X_WRITE_ACCESS_SECRET")
	if c.Credentials.Write.Empty() {
		c.Credentials.Write = c.Credentials.Read
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = os.Getenv("METRICS_ADDR")
	}
}

func fill(dst *string, env string) {
	if *dst == "" {
		*dst = os.Getenv(env)
	}
}

// Validate reports the first setting that makes a pass impossible.
func (c Config) Validate() error {
	var errs []error
	if c.Account.BotHandle == "" {
		errs = append(errs, errors.New("account.botHandle is required"))
	}
	if !c.Credentials.Read.Complete() {
		errs = append(errs, errors.New("credentials.read is incomplete"))
	}
	if !c.Credentials.Write.Complete() {
		errs = append(errs, errors.New("credentials.write is incomplete"))
	}
	for name, v := range map[string]string{
		"paths.usersFile":      c.Paths.UsersFile,
		"paths.repliedLedger":  c.Paths.RepliedLedger,
		"paths.requestsLedger": c.Paths.RequestsLedger,
		"paths.cursorDir":      c.Paths.CursorDir,
		"paths.screenshotDir":  c.Paths.ScreenshotDir,
		"lock.path":            c.Lock.Path,
	} {
		if v == "" {
			errs = append(errs, fmt.Errorf("%s is required", name))
		}
	}
	if c.API.PageSize <= 0 {
		errs = append(errs, errors.New("api.pageSize must be positive"))
	}
	return errors.Join(errs...)
}

// Load reads YAML config from path on top of the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.ResolveEnv()
	return cfg, nil
}

// Save writes YAML config to path, creating directories as needed.
func Save(path string, cfg Config) error {
	if path == "" {
		return errors.New("empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// LoadUsers reads the followed-user list: one handle per line, blank lines
// and lines starting with "#" ignored, a leading "@" stripped, first
// occurrence wins.
func LoadUsers(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	seen := map[string]struct{}{}
	var users []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "@")
		if _, ok := seen[line]; ok || line == "" {
			continue
		}
		seen[line] = struct{}{}
		users = append(users, line)
	}
	return users, sc.Err()
}
