package app

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/xoelrdgz/loginsight/internal/adapters/analytics"
	"github.com/xoelrdgz/loginsight/internal/adapters/detection"
	"github.com/xoelrdgz/loginsight/internal/adapters/output"
)

const EnvPrefix = "LOGINSIGHT"

// Config is the resolved configuration of one analysis pass.
type Config struct {
	Input     InputConfig     `mapstructure:"input"`
	Reports   ReportsConfig   `mapstructure:"reports"`
	Blocker   BlockerConfig   `mapstructure:"blocker"`
	BusyHours BusyHoursConfig `mapstructure:"busy_hours"`
	Output    OutputConfig    `mapstructure:"output"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type InputConfig struct {
	Path       string `mapstructure:"path" validate:"required"`
	Format     string `mapstructure:"format" validate:"oneof=clf common json auto"`
	MaxRecords int64  `mapstructure:"max_records" validate:"min=0"`
	BufferSize int    `mapstructure:"buffer_size" validate:"min=1,max=10000000"`
}

// ReportsConfig names the report files. An empty path skips the report.
type ReportsConfig struct {
	Hosts        string `mapstructure:"hosts"`
	Hours        string `mapstructure:"hours"`
	Resources    string `mapstructure:"resources"`
	Blocked      string `mapstructure:"blocked"`
	TopHosts     int    `mapstructure:"top_hosts" validate:"min=1"`
	TopResources int    `mapstructure:"top_resources" validate:"min=1"`
}

type BlockerConfig struct {
	FailureStatus int           `mapstructure:"failure_status" validate:"min=100,max=599,nefield=SuccessStatus"`
	SuccessStatus int           `mapstructure:"success_status" validate:"min=100,max=599"`
	MaxFailures   int           `mapstructure:"max_failures" validate:"min=1,max=1000"`
	FailureWindow time.Duration `mapstructure:"failure_window" validate:"min=1s"`
	BlockDuration time.Duration `mapstructure:"block_duration" validate:"min=1s"`
	PruneInterval time.Duration `mapstructure:"prune_interval" validate:"min=0"`
}

type BusyHoursConfig struct {
	Window        time.Duration `mapstructure:"window" validate:"min=1s"`
	TopN          int           `mapstructure:"top_n" validate:"min=1,max=10000"`
	DenseCapacity int           `mapstructure:"dense_capacity" validate:"min=1,max=1000000000"`
}

type OutputConfig struct {
	BlockEvents       string `mapstructure:"block_events"`
	BlockEventsPretty bool   `mapstructure:"block_events_pretty"`
	Rejects           string `mapstructure:"rejects"`
	Summary           bool   `mapstructure:"summary"`
	RecentBlocks      int    `mapstructure:"recent_blocks" validate:"min=0,max=1000"`
}

type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
	Addr     string `mapstructure:"addr" validate:"omitempty,hostname_port"`
	Path     string `mapstructure:"path" validate:"startswith=/"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=console json"`
}

// Detection converts the blocker section into the detector's settings.
func (c BlockerConfig) Detection() detection.BlockerConfig {
	return detection.BlockerConfig{
		FailureStatus: c.FailureStatus,
		SuccessStatus: c.SuccessStatus,
		MaxFailures:   c.MaxFailures,
		FailureWindow: c.FailureWindow,
		BlockDuration: c.BlockDuration,
		PruneInterval: c.PruneInterval,
	}
}

func (c BusyHoursConfig) Analytics() analytics.BusyHoursConfig {
	return analytics.BusyHoursConfig{
		Window:        c.Window,
		TopN:          c.TopN,
		DenseCapacity: c.DenseCapacity,
	}
}

func (c MetricsConfig) Server() output.MetricsConfig {
	return output.MetricsConfig{
		Addr: c.Addr,
		Path: c.Path,
	}
}

// SetDefaults registers every key with its default so that environment
// variables can override keys that appear in no config file.
func SetDefaults(v *viper.Viper) {
	blocker := detection.DefaultBlockerConfig()
	busy := analytics.DefaultBusyHoursConfig()

	v.SetDefault("input.path", "")
	v.SetDefault("input.format", "clf")
	v.SetDefault("input.max_records", 0)
	v.SetDefault("input.buffer_size", 10000)

	v.SetDefault("reports.hosts", "hosts.txt")
	v.SetDefault("reports.hours", "hours.txt")
	v.SetDefault("reports.resources", "resources.txt")
	v.SetDefault("reports.blocked", "blocked.txt")
	v.SetDefault("reports.top_hosts", 10)
	v.SetDefault("reports.top_resources", 10)

	v.SetDefault("blocker.failure_status", blocker.FailureStatus)
	v.SetDefault("blocker.success_status", blocker.SuccessStatus)
	v.SetDefault("blocker.max_failures", blocker.MaxFailures)
	v.SetDefault("blocker.failure_window", blocker.FailureWindow)
	v.SetDefault("blocker.block_duration", blocker.BlockDuration)
	v.SetDefault("blocker.prune_interval", blocker.PruneInterval)

	v.SetDefault("busy_hours.window", busy.Window)
	v.SetDefault("busy_hours.top_n", busy.TopN)
	v.SetDefault("busy_hours.dense_capacity", busy.DenseCapacity)

	v.SetDefault("output.block_events", "")
	v.SetDefault("output.block_events_pretty", false)
	v.SetDefault("output.rejects", "")
	v.SetDefault("output.summary", false)
	v.SetDefault("output.recent_blocks", 10)

	v.SetDefault("metrics.textfile", "")
	v.SetDefault("metrics.addr", "")
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// NewViper builds a viper instance with defaults, the optional config file,
// a .env file in the working directory and LOGINSIGHT_* environment
// variables, in increasing order of precedence.
//
// An explicit configFile must exist. Without one, config.yaml is looked up in
// ./configs, the working directory and /etc/loginsight, and a missing file is
// not an error.
func NewViper(configFile string) (*viper.Viper, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	SetDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/loginsight")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	} else {
		log.Debug().Str("file", v.ConfigFileUsed()).Msg("Loaded config file")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// Load unmarshals and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cfg against its struct tags. Every failing field is
// reported as a *ConfigValidationError joined into the returned error.
func Validate(cfg *Config) error {
	err := newValidator().Struct(cfg)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("config validation failed: %w", err)
	}

	errs := make([]error, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		errs = append(errs, &ConfigValidationError{
			Field:  fieldPath(fe.Namespace()),
			Value:  fe.Value(),
			Reason: reason(fe),
		})
	}
	return fmt.Errorf("config validation failed: %w", errors.Join(errs...))
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// fieldPath turns "Config.input.path" into "input.path".
func fieldPath(namespace string) string {
	_, path, found := strings.Cut(namespace, ".")
	if !found {
		return namespace
	}
	return path
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of [" + fe.Param() + "]"
	case "nefield":
		return "must differ from " + fe.Param()
	case "startswith":
		return "must start with " + fe.Param()
	case "hostname_port":
		return "must be host:port"
	default:
		return "failed " + fe.Tag()
	}
}

type ConfigValidationError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (e *ConfigValidationError) Error() string {
	return "config validation error: " + e.Field + " = " +
		formatValue(e.Value) + " - " + e.Reason
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		if val == "" {
			return `""`
		}
		return val
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}
