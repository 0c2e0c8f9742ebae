// Package config loads slotwatch configuration from an optional YAML file,
// a .env file and the process environment, in that order.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no --config flag is given. It may be absent.
const DefaultPath = "slotwatch.yaml"

// ErrMissingIdentifiers is returned by Validate when the request number or
// protection code is empty. Both are required to address the queue page.
var ErrMissingIdentifiers = errors.New("AMBASSY_REQUEST_NUMBER and AMBASSY_PROTECTION_CODE must be set")

type Config struct {
	Queue    QueueConfig    `yaml:"queue"`
	Retry    RetryConfig    `yaml:"retry"`
	HTTP     HTTPConfig     `yaml:"http"`
	Solver   SolverConfig   `yaml:"solver"`
	Notify   NotifyConfig   `yaml:"notify"`
	Store    StoreConfig    `yaml:"store"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Status   StatusConfig   `yaml:"status"`
	LogLevel string         `yaml:"log_level"`
}

type QueueConfig struct {
	BaseURL        string `yaml:"base_url"`
	RequestNumber  string `yaml:"request_number"`
	ProtectionCode string `yaml:"protection_code"`
}

type RetryConfig struct {
	Count int           `yaml:"count"`
	Delay time.Duration `yaml:"delay"`
	// FailOnExhausted makes a run that used every attempt on captcha
	// failures exit non-zero instead of only logging a warning.
	FailOnExhausted bool `yaml:"fail_on_exhausted"`
}

type HTTPConfig struct {
	UserAgent string        `yaml:"user_agent"`
	Timeout   time.Duration `yaml:"timeout"`
	// Cipher is an OpenSSL-style or Go cipher suite name. The queue server
	// drops connections that offer the modern default suites.
	Cipher string `yaml:"cipher"`
}

type SolverConfig struct {
	// Provider is "openai" or "2captcha".
	Provider   string           `yaml:"provider"`
	PromptFile string           `yaml:"prompt_file,omitempty"`
	OpenAI     ProviderConfig   `yaml:"openai"`
	TwoCaptcha TwoCaptchaConfig `yaml:"twocaptcha"`
}

type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url,omitempty"`
}

type TwoCaptchaConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url,omitempty"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Discord  DiscordConfig  `yaml:"discord"`
	Email    EmailConfig    `yaml:"email"`
	// NoSlotPatterns are extra case-insensitive regular expressions that
	// mark a result message as "no free slots".
	NoSlotPatterns []string `yaml:"no_slot_patterns,omitempty"`
}

type TelegramConfig struct {
	Token   string `yaml:"token"`
	ChatID  string `yaml:"chat_id"`
	Enabled bool   `yaml:"enabled"`
}

type DiscordConfig struct {
	Token     string `yaml:"token"`
	ChannelID string `yaml:"channel_id"`
	Enabled   bool   `yaml:"enabled"`
}

type EmailConfig struct {
	From     string `yaml:"from"`
	To       string `yaml:"to"`
	SMTPAddr string `yaml:"smtp_addr"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Enabled  bool   `yaml:"enabled"`
}

type StoreConfig struct {
	// Path of the sqlite run history. Empty disables history.
	Path string `yaml:"path"`
}

type ScheduleConfig struct {
	Interval time.Duration `yaml:"interval"`
}

type StatusConfig struct {
	// Addr enables the status HTTP server in watch mode, e.g. ":8089".
	Addr string `yaml:"addr"`
}

// Default returns a Config populated with the values used when nothing
// overrides them.
func Default() *Config {
	return &Config{
		Queue: QueueConfig{
			BaseURL: "https://paris.kdmid.ru",
		},
		Retry: RetryConfig{
			Count: 3,
			Delay: 5 * time.Second,
		},
		HTTP: HTTPConfig{
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/58.0.3029.110 Safari/537.3",
			Timeout:   30 * time.Second,
			Cipher:    "AES128-SHA",
		},
		Solver: SolverConfig{
			Provider: "openai",
			OpenAI: ProviderConfig{
				Model: "gpt-4o",
			},
		},
		Store: StoreConfig{
			Path: "./data/slotwatch.db",
		},
		Schedule: ScheduleConfig{
			Interval: 30 * time.Minute,
		},
		LogLevel: "INFO",
	}
}

// Load builds a Config from defaults, the YAML file at path, a .env file in
// the working directory and the environment. A missing file is only an error
// when path is not DefaultPath. Load does not validate; commands that talk to
// the queue call Validate themselves.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && path == DefaultPath:
	default:
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// godotenv never overrides variables that are already set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString("QUEUE_BASE_URL", &c.Queue.BaseURL)
	setString("AMBASSY_REQUEST_NUMBER", &c.Queue.RequestNumber)
	setString("AMBASSY_PROTECTION_CODE", &c.Queue.ProtectionCode)
	setString("LOG_LEVEL", &c.LogLevel)
	setString("SLOTWATCH_DB", &c.Store.Path)
	setString("STATUS_ADDR", &c.Status.Addr)
	setString("HTTP_CIPHER", &c.HTTP.Cipher)

	setString("SOLVER_PROVIDER", &c.Solver.Provider)
	setString("OPENAI_API_KEY", &c.Solver.OpenAI.APIKey)
	setString("OPENAI_MODEL", &c.Solver.OpenAI.Model)
	setString("OPENAI_BASE_URL", &c.Solver.OpenAI.BaseURL)
	setString("TWOCAPTCHA_API_KEY", &c.Solver.TwoCaptcha.APIKey)

	if setString("TELEGRAM_TOKEN", &c.Notify.Telegram.Token) {
		c.Notify.Telegram.Enabled = true
	}
	setString("TELEGRAM_CHAT_ID", &c.Notify.Telegram.ChatID)
	if setString("DISCORD_TOKEN", &c.Notify.Discord.Token) {
		c.Notify.Discord.Enabled = true
	}
	setString("DISCORD_CHANNEL_ID", &c.Notify.Discord.ChannelID)
	setString("EMAIL_FROM", &c.Notify.Email.From)
	setString("EMAIL_TO", &c.Notify.Email.To)
	if setString("SMTP_ADDR", &c.Notify.Email.SMTPAddr) {
		c.Notify.Email.Enabled = true
	}
	setString("SMTP_USERNAME", &c.Notify.Email.Username)
	setString("SMTP_PASSWORD", &c.Notify.Email.Password)

	if v := strings.TrimSpace(os.Getenv("RETRY_COUNT")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RETRY_COUNT: %w", err)
		}
		c.Retry.Count = n
	}
	if err := setDuration("RETRY_DELAY", &c.Retry.Delay); err != nil {
		return err
	}
	if err := setDuration("HTTP_TIMEOUT", &c.HTTP.Timeout); err != nil {
		return err
	}
	if err := setDuration("SCHEDULE_INTERVAL", &c.Schedule.Interval); err != nil {
		return err
	}
	return nil
}

// Validate checks the settings needed to run a queue check.
func (c *Config) Validate() error {
	if c.Queue.RequestNumber == "" || c.Queue.ProtectionCode == "" {
		return ErrMissingIdentifiers
	}
	if c.Queue.BaseURL == "" {
		return fmt.Errorf("queue base URL cannot be empty")
	}
	if c.Retry.Count < 1 {
		return fmt.Errorf("retry count must be >= 1, got %d", c.Retry.Count)
	}
	if c.Retry.Delay < 0 {
		return fmt.Errorf("retry delay cannot be negative")
	}
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("http timeout must be > 0")
	}
	switch c.Solver.Provider {
	case "openai":
		if c.Solver.OpenAI.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY must be set for the openai solver")
		}
	case "2captcha":
		if c.Solver.TwoCaptcha.APIKey == "" {
			return fmt.Errorf("TWOCAPTCHA_API_KEY must be set for the 2captcha solver")
		}
	default:
		return fmt.Errorf("unknown solver provider %q", c.Solver.Provider)
	}
	if c.Notify.Telegram.Enabled && (c.Notify.Telegram.Token == "" || c.Notify.Telegram.ChatID == "") {
		return fmt.Errorf("telegram notifier needs a token and chat id")
	}
	if c.Notify.Discord.Enabled && (c.Notify.Discord.Token == "" || c.Notify.Discord.ChannelID == "") {
		return fmt.Errorf("discord notifier needs a token and channel id")
	}
	if c.Notify.Email.Enabled && (c.Notify.Email.SMTPAddr == "" || c.Notify.Email.From == "" || c.Notify.Email.To == "") {
		return fmt.Errorf("email notifier needs an SMTP address, sender and recipient")
	}
	return nil
}

// QueueURL returns the order page for the configured request. The image and
// both form submissions are resolved against it.
func (c *Config) QueueURL() string {
	return fmt.Sprintf("%s/queue/OrderInfo.aspx?id=%s&cd=%s",
		strings.TrimRight(c.Queue.BaseURL, "/"),
		url.QueryEscape(c.Queue.RequestNumber),
		url.QueryEscape(c.Queue.ProtectionCode),
	)
}

func setString(key string, dst *string) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return false
	}
	*dst = v
	return true
}

func setDuration(key string, dst *time.Duration) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	v = strings.TrimSpace(v)
	// A bare number is read as seconds.
	if n, err := strconv.Atoi(v); err == nil {
		*dst = time.Duration(n) * time.Second
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}
