package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	NATS         NATSConfig         `yaml:"nats"`
	MinIO        MinIOConfig        `yaml:"minio"`
	Verification VerificationConfig `yaml:"verification"`
	Attendance   AttendanceConfig   `yaml:"attendance"`
	Sweeper      SweeperConfig      `yaml:"sweeper"`
	Logging      LoggingConfig      `yaml:"logging"`
}

type ServerConfig struct {
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	MaxConns int    `yaml:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

type NATSConfig struct {
	URL string `yaml:"url"`
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// VerificationConfig holds the matching thresholds. These are deliberately
// strict: false rejections cost a retry at the kiosk, false acceptances let
// the wrong person check in.
type VerificationConfig struct {
	MatchThreshold                 float64 `yaml:"match_threshold"`
	EnrollmentConsistencyThreshold float64 `yaml:"enrollment_consistency_threshold"`
	MinVectorMatches               int     `yaml:"min_vector_matches"`
}

// AttendanceConfig holds the check-in window parameters.
type AttendanceConfig struct {
	// EarlyCheckInWindow is how long before the scheduled start a check-in
	// is accepted.
	EarlyCheckInWindow time.Duration `yaml:"early_check_in_window"`
	// OnTimeTolerance is the +/- band around the scheduled start that still
	// classifies as ON_TIME.
	OnTimeTolerance time.Duration `yaml:"on_time_tolerance"`
}

type SweeperConfig struct {
	// Interval between sweep passes.
	Interval time.Duration `yaml:"interval"`
	// AutoCheckoutGrace is how long past the scheduled end an open record
	// may linger before the sweeper force-closes it.
	AutoCheckoutGrace time.Duration `yaml:"auto_checkout_grace"`
	// Port for the sweeper's metrics/health endpoint.
	Port int `yaml:"port"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads config from YAML file and applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 20
	}
	if cfg.Verification.MatchThreshold == 0 {
		cfg.Verification.MatchThreshold = 0.85
	}
	if cfg.Verification.EnrollmentConsistencyThreshold == 0 {
		cfg.Verification.EnrollmentConsistencyThreshold = 0.65
	}
	if cfg.Verification.MinVectorMatches == 0 {
		cfg.Verification.MinVectorMatches = 2
	}
	if cfg.Attendance.EarlyCheckInWindow == 0 {
		cfg.Attendance.EarlyCheckInWindow = 30 * time.Minute
	}
	if cfg.Attendance.OnTimeTolerance == 0 {
		cfg.Attendance.OnTimeTolerance = 5 * time.Minute
	}
	if cfg.Sweeper.Interval == 0 {
		cfg.Sweeper.Interval = 2 * time.Minute
	}
	if cfg.Sweeper.AutoCheckoutGrace == 0 {
		cfg.Sweeper.AutoCheckoutGrace = 3 * time.Hour
	}
	if cfg.Sweeper.Port == 0 {
		cfg.Sweeper.Port = 8082
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GYM_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("GYM_API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}
	if v := os.Getenv("GYM_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("GYM_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("GYM_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("GYM_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("GYM_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("GYM_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("GYM_MINIO_ENDPOINT"); v != "" {
		cfg.MinIO.Endpoint = v
	}
	if v := os.Getenv("GYM_MINIO_ACCESS_KEY"); v != "" {
		cfg.MinIO.AccessKey = v
	}
	if v := os.Getenv("GYM_MINIO_SECRET_KEY"); v != "" {
		cfg.MinIO.SecretKey = v
	}
	if v := os.Getenv("GYM_MINIO_BUCKET"); v != "" {
		cfg.MinIO.Bucket = v
	}
	if v := os.Getenv("GYM_SWEEP_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Sweeper.Interval = d
		}
	}
	if v := os.Getenv("GYM_SWEEP_GRACE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Sweeper.AutoCheckoutGrace = d
		}
	}
}
