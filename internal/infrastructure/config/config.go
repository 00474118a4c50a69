package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/blernix/tableback-sub000/internal/infrastructure/logger"
)

type Config struct {
	HTTP struct {
		Listen       string        `mapstructure:"listen"`
		ReadTimeout  time.Duration `mapstructure:"read_timeout"`
		WriteTimeout time.Duration `mapstructure:"write_timeout"`
		IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	} `mapstructure:"http"`

	Hub struct {
		MaxPerSubject     int           `mapstructure:"max_per_subject"`
		MaxPerTenant      int           `mapstructure:"max_per_tenant"`
		HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
		SweepInterval     time.Duration `mapstructure:"sweep_interval"`
		MaxDuration       time.Duration `mapstructure:"max_duration"`
		WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	} `mapstructure:"hub"`

	Log struct {
		Level    string `mapstructure:"level"`
		Format   string `mapstructure:"format"`
		Output   string `mapstructure:"output"`
		FilePath string `mapstructure:"file_path"`
	} `mapstructure:"log"`
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	// Defaults
	v.SetDefault("http.listen", ":8080")
	v.SetDefault("http.read_timeout", 15*time.Second)
	// The write timeout must be zero: SSE responses stay open far longer
	// than any sane server-wide write deadline.
	v.SetDefault("http.write_timeout", 0)
	v.SetDefault("http.idle_timeout", 60*time.Second)
	v.SetDefault("hub.max_per_subject", 5)
	v.SetDefault("hub.max_per_tenant", 50)
	v.SetDefault("hub.heartbeat_interval", 30*time.Second)
	v.SetDefault("hub.sweep_interval", 60*time.Second)
	v.SetDefault("hub.max_duration", time.Hour)
	v.SetDefault("hub.write_timeout", 10*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")

	// Env overrides
	v.SetEnvPrefix("TABLEBACK")
	v.AutomaticEnv()
	_ = v.BindEnv("http.listen", "TABLEBACK_HTTP_LISTEN")
	_ = v.BindEnv("hub.max_per_subject", "TABLEBACK_HUB_MAX_PER_SUBJECT")
	_ = v.BindEnv("hub.max_per_tenant", "TABLEBACK_HUB_MAX_PER_TENANT")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if c.Hub.MaxPerSubject < 1 {
		return nil, fmt.Errorf("hub.max_per_subject must be at least 1, got %d", c.Hub.MaxPerSubject)
	}
	if c.Hub.MaxPerTenant < c.Hub.MaxPerSubject {
		return nil, fmt.Errorf("hub.max_per_tenant (%d) must not be below hub.max_per_subject (%d)",
			c.Hub.MaxPerTenant, c.Hub.MaxPerSubject)
	}
	return &c, nil
}

// LoggerConfig maps the log section onto the logger package's config.
func (c *Config) LoggerConfig() *logger.Config {
	lc := logger.NewDefaultConfig()
	switch c.Log.Level {
	case "debug":
		lc.Level = logger.LevelDebug
	case "warn":
		lc.Level = logger.LevelWarn
	case "error":
		lc.Level = logger.LevelError
	default:
		lc.Level = logger.LevelInfo
	}
	lc.Format = c.Log.Format
	lc.Output = c.Log.Output
	lc.FilePath = c.Log.FilePath
	return lc
}
