package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the API server configuration.
type Config struct {
	Server struct {
		Address     string `mapstructure:"address"`       // 0.0.0.0
		HTTPPort    string `mapstructure:"http_port"`     // 8080
		GRPCPort    string `mapstructure:"grpc_port"`     // 9090, empty disables gRPC health
		MaxBodySize int64  `mapstructure:"max_body_size"` // bytes
	} `mapstructure:"server"`

	Auth struct {
		AccessSecret  string        `mapstructure:"access_secret"`
		RefreshSecret string        `mapstructure:"refresh_secret"`
		Issuer        string        `mapstructure:"issuer"`
		AccessTTL     time.Duration `mapstructure:"access_ttl"`
		RefreshTTL    time.Duration `mapstructure:"refresh_ttl"`
		SecureCookies bool          `mapstructure:"secure_cookies"`
	} `mapstructure:"auth"`

	Database struct {
		DSN     string `mapstructure:"dsn"`     // postgres://...; empty keeps everything in memory
		Migrate bool   `mapstructure:"migrate"` // apply embedded migrations and seeds on start
	} `mapstructure:"database"`

	Catalog struct {
		Driver string `mapstructure:"driver"` // "" shares database.dsn | postgres | mysql
		DSN    string `mapstructure:"dsn"`
	} `mapstructure:"catalog"`

	Logging struct {
		Level  string `mapstructure:"level"`  // debug|info|warn|error
		Format string `mapstructure:"format"` // json|text
	} `mapstructure:"logs"`

	Mail struct {
		Driver   string `mapstructure:"driver"` // log|smtp
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		Username string `mapstructure:"username"`
		Password string `mapstructure:"password"`
		From     string `mapstructure:"from"`
		ResetURL string `mapstructure:"reset_url"`
	} `mapstructure:"mail"`

	RateLimit struct {
		Burst     int `mapstructure:"burst"`
		PerSecond int `mapstructure:"per_second"`
	} `mapstructure:"rate_limit"`

	CORS struct {
		AllowedOrigins []string `mapstructure:"allowed_origins"`
	} `mapstructure:"cors"`

	OTel struct {
		Endpoint    string `mapstructure:"endpoint"`
		ServiceName string `mapstructure:"service_name"`
	} `mapstructure:"otel"`
}

// HTTPAddr is the listen address of the HTTP API.
func (c *Config) HTTPAddr() string {
	return c.Server.Address + ":" + c.Server.HTTPPort
}

// GRPCAddr is the listen address of the gRPC health service, or "" when disabled.
func (c *Config) GRPCAddr() string {
	if strings.TrimSpace(c.Server.GRPCPort) == "" {
		return ""
	}
	return c.Server.Address + ":" + c.Server.GRPCPort
}

// Load reads .env, an optional YAML file and IFS_* environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("IFS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			v.AddConfigPath(filepath.Join(xdg, "ifs"))
		}
		v.AddConfigPath("/etc/ifs")
	}
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return nil, fmt.Errorf("config read error: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal error: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", "0.0.0.0")
	v.SetDefault("server.http_port", "8080")
	v.SetDefault("server.grpc_port", "9090")
	v.SetDefault("server.max_body_size", 1<<20)

	v.SetDefault("auth.access_secret", "")
	v.SetDefault("auth.refresh_secret", "")
	v.SetDefault("auth.issuer", "ifs")
	v.SetDefault("auth.access_ttl", "15m")
	v.SetDefault("auth.refresh_ttl", "168h")
	v.SetDefault("auth.secure_cookies", false)

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.migrate", false)
	v.SetDefault("catalog.driver", "")
	v.SetDefault("catalog.dsn", "")

	v.SetDefault("logs.level", "info")
	v.SetDefault("logs.format", "json")

	v.SetDefault("mail.driver", "log")
	v.SetDefault("mail.host", "")
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.from", "")
	v.SetDefault("mail.reset_url", "http://localhost:3000/reset-password")

	v.SetDefault("rate_limit.burst", 10)
	v.SetDefault("rate_limit.per_second", 5)
	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000"})

	v.SetDefault("otel.endpoint", "")
	v.SetDefault("otel.service_name", "ifs-api")
}

func validate(c *Config) error {
	if strings.TrimSpace(c.Auth.AccessSecret) == "" || strings.TrimSpace(c.Auth.RefreshSecret) == "" {
		return errors.New("auth.access_secret and auth.refresh_secret must be set")
	}
	if c.Auth.AccessSecret == c.Auth.RefreshSecret {
		return errors.New("auth.access_secret and auth.refresh_secret must differ")
	}
	if strings.TrimSpace(c.Server.HTTPPort) == "" {
		return errors.New("server.http_port must not be empty")
	}
	switch strings.ToLower(c.Mail.Driver) {
	case "log", "":
	case "smtp":
		if strings.TrimSpace(c.Mail.Host) == "" || strings.TrimSpace(c.Mail.From) == "" {
			return errors.New("mail.host and mail.from are required for the smtp driver")
		}
	default:
		return fmt.Errorf("mail.driver %q is not supported", c.Mail.Driver)
	}
	switch strings.ToLower(c.Catalog.Driver) {
	case "":
	case "postgres", "mysql":
		if strings.TrimSpace(c.Catalog.DSN) == "" {
			return errors.New("catalog.dsn is required when catalog.driver is set")
		}
	default:
		return fmt.Errorf("catalog.driver %q is not supported", c.Catalog.Driver)
	}
	if c.RateLimit.Burst <= 0 || c.RateLimit.PerSecond <= 0 {
		return errors.New("rate_limit.burst and rate_limit.per_second must be positive")
	}
	return nil
}
