package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/procurekit/approval-engine/internal/domain/entity"
	"github.com/procurekit/approval-engine/pkg/utils"
)

// Config holds all application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Engine       EngineConfig       `mapstructure:"engine"`
	Notification NotificationConfig `mapstructure:"notification"`
	Approval     ApprovalConfig     `mapstructure:"approval"`
	Logger       LoggerConfig       `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	BusyTimeout     time.Duration `mapstructure:"busy_timeout"`
}

// EngineConfig holds tuning knobs for the approval engine
type EngineConfig struct {
	BulkConcurrency        int           `mapstructure:"bulk_concurrency"`
	EscalationScanInterval time.Duration `mapstructure:"escalation_scan_interval"`
	ReminderInterval       time.Duration `mapstructure:"reminder_interval"`
	CleanupInterval        time.Duration `mapstructure:"cleanup_interval"`
	Retention              time.Duration `mapstructure:"retention"`
}

// NotificationConfig holds outbound notification configuration. The webhook
// is optional; the log sink is always active.
type NotificationConfig struct {
	WebhookURL     string        `mapstructure:"webhook_url"`
	WebhookSecret  string        `mapstructure:"webhook_secret"`
	WebhookTimeout time.Duration `mapstructure:"webhook_timeout"`
}

// ApprovalConfig holds the threshold table, the escalation ladder and the
// holiday calendar. Thresholds and levels unmarshal straight into the domain
// types.
type ApprovalConfig struct {
	Thresholds       []entity.ApprovalThreshold `mapstructure:"thresholds"`
	EscalationLevels []entity.EscalationLevel   `mapstructure:"escalation_levels"`

	// Holidays are dates in YYYY-MM-DD form.
	Holidays []string `mapstructure:"holidays"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	// Database defaults
	v.SetDefault("database.path", "data/approvals.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.busy_timeout", 5*time.Second)

	// Engine defaults
	v.SetDefault("engine.bulk_concurrency", 8)
	v.SetDefault("engine.escalation_scan_interval", time.Minute)
	v.SetDefault("engine.reminder_interval", time.Hour)
	v.SetDefault("engine.cleanup_interval", 24*time.Hour)
	v.SetDefault("engine.retention", 90*24*time.Hour)

	// Notification defaults
	v.SetDefault("notification.webhook_timeout", 10*time.Second)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars(v *viper.Viper) {
	// Sensitive credentials from environment
	v.BindEnv("notification.webhook_url", "WEBHOOK_URL")
	v.BindEnv("notification.webhook_secret", "WEBHOOK_SECRET")
	v.BindEnv("database.path", "DATABASE_PATH")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Engine.BulkConcurrency <= 0 {
		return fmt.Errorf("engine.bulk_concurrency must be positive, got %d", c.Engine.BulkConcurrency)
	}

	if err := c.validateThresholds(); err != nil {
		return err
	}
	if err := c.validateEscalationLevels(); err != nil {
		return err
	}
	return c.validateHolidays()
}

func (c *Config) validateThresholds() error {
	for i, t := range c.Approval.Thresholds {
		if t.ID == "" {
			return fmt.Errorf("approval.thresholds[%d]: id is required", i)
		}
		if t.MinAmountCents < 0 {
			return fmt.Errorf("threshold %q: min_amount_cents must not be negative", t.ID)
		}
		if t.MaxAmountCents != nil && *t.MaxAmountCents < t.MinAmountCents {
			return fmt.Errorf("threshold %q: max_amount_cents below min_amount_cents", t.ID)
		}
		if !t.AutoApprove {
			if t.RequiredApprovers < 1 {
				return fmt.Errorf("threshold %q: required_approvers must be at least 1", t.ID)
			}
			if len(t.RequiredRoles) == 0 {
				return fmt.Errorf("threshold %q: required_roles must not be empty", t.ID)
			}
		}
		for _, role := range t.RequiredRoles {
			if !role.IsValid() {
				return fmt.Errorf("threshold %q: unknown role %q", t.ID, role)
			}
		}
		if t.Priority != "" && !t.Priority.IsValid() {
			return fmt.Errorf("threshold %q: unknown priority %q", t.ID, t.Priority)
		}
		for _, cond := range t.Conditions {
			switch cond.Operator {
			case entity.OperatorEquals, entity.OperatorContains, entity.OperatorIn, entity.OperatorNotIn:
			default:
				return fmt.Errorf("threshold %q: unknown condition operator %q", t.ID, cond.Operator)
			}
		}
	}

	// Unconditioned active thresholds must not share amounts; thresholds
	// carrying conditions may overlap ranges since the resolver narrows by
	// condition match first.
	for i, a := range c.Approval.Thresholds {
		if !a.Active || len(a.Conditions) > 0 {
			continue
		}
		for _, b := range c.Approval.Thresholds[i+1:] {
			if !b.Active || len(b.Conditions) > 0 {
				continue
			}
			if a.Overlaps(b) {
				return fmt.Errorf("thresholds %q and %q have overlapping amount ranges", a.ID, b.ID)
			}
		}
	}

	return nil
}

func (c *Config) validateEscalationLevels() error {
	for i, level := range c.Approval.EscalationLevels {
		if level.Level != i+1 {
			return fmt.Errorf("approval.escalation_levels must be ordered 1..n, got level %d at position %d", level.Level, i)
		}
		// A zero delay would leave the request overdue the instant it
		// escalates, so the next scan would climb the whole ladder.
		if level.AfterHours < 1 {
			return fmt.Errorf("escalation level %d: after_hours must be at least 1", level.Level)
		}
		if len(level.Recipients) == 0 {
			return fmt.Errorf("escalation level %d: recipients must not be empty", level.Level)
		}
		for _, rec := range level.Recipients {
			switch rec.Type {
			case entity.RecipientRole:
				if _, ok := entity.ParseRole(rec.Value); !ok {
					return fmt.Errorf("escalation level %d: unknown role recipient %q", level.Level, rec.Value)
				}
			case entity.RecipientUser:
				if err := utils.ValidateEmail(rec.Value); err != nil {
					return fmt.Errorf("escalation level %d: user recipient: %w", level.Level, err)
				}
			default:
				return fmt.Errorf("escalation level %d: unknown recipient type %q", level.Level, rec.Type)
			}
		}
		if level.Priority != "" && !level.Priority.IsValid() {
			return fmt.Errorf("escalation level %d: unknown priority %q", level.Level, level.Priority)
		}
	}
	return nil
}

func (c *Config) validateHolidays() error {
	for _, h := range c.Approval.Holidays {
		if _, err := time.Parse("2006-01-02", h); err != nil {
			return fmt.Errorf("approval.holidays: %q is not a YYYY-MM-DD date", h)
		}
	}
	return nil
}
