// Package config loads the bridge configuration from the environment and an
// optional .env file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env      string `mapstructure:"ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	AETitle           string        `mapstructure:"AE_TITLE"`
	DICOMAddr         string        `mapstructure:"DICOM_ADDR"`
	StrictCalledAE    bool          `mapstructure:"STRICT_CALLED_AE"`
	DICOMReadTimeout  time.Duration `mapstructure:"DICOM_READ_TIMEOUT"`
	DICOMWriteTimeout time.Duration `mapstructure:"DICOM_WRITE_TIMEOUT"`
	StationAETitle    string        `mapstructure:"STATION_AE_TITLE"`

	HTTPAddr string `mapstructure:"HTTP_ADDR"`

	WorklistDBPath string `mapstructure:"WORKLIST_DB_PATH"`

	SourceDatabaseURL   string `mapstructure:"SOURCE_DATABASE_URL"`
	SourceMaxConns      int32  `mapstructure:"SOURCE_MAX_CONNS"`
	SourceMinConns      int32  `mapstructure:"SOURCE_MIN_CONNS"`
	SourceNotifyChannel string `mapstructure:"SOURCE_NOTIFY_CHANNEL"`

	SyncInterval  time.Duration `mapstructure:"SYNC_INTERVAL"`
	SyncWorkers   int           `mapstructure:"SYNC_WORKERS"`
	SyncQueueSize int           `mapstructure:"SYNC_QUEUE_SIZE"`

	UltrasoundKeywords []string `mapstructure:"-"`
	InScopeStatuses    []string `mapstructure:"-"`
	Modality           string   `mapstructure:"MODALITY"`
	AccessionPrefix    string   `mapstructure:"ACCESSION_PREFIX"`
	AccessionDigits    int      `mapstructure:"ACCESSION_DIGITS"`
}

var defaults = map[string]any{
	"ENV":                   "development",
	"LOG_LEVEL":             "info",
	"AE_TITLE":              "MWL_SCP",
	"DICOM_ADDR":            ":11112",
	"STRICT_CALLED_AE":      false,
	"DICOM_READ_TIMEOUT":    "60s",
	"DICOM_WRITE_TIMEOUT":   "60s",
	"STATION_AE_TITLE":      "",
	"HTTP_ADDR":             ":8080",
	"WORKLIST_DB_PATH":      "worklist.db",
	"SOURCE_DATABASE_URL":   "",
	"SOURCE_MAX_CONNS":      10,
	"SOURCE_MIN_CONNS":      1,
	"SOURCE_NOTIFY_CHANNEL": "",
	"SYNC_INTERVAL":         "5m",
	"SYNC_WORKERS":          2,
	"SYNC_QUEUE_SIZE":       64,
	"ULTRASOUND_KEYWORDS":   "siêu âm,sieu am,ultrasound,US",
	"IN_SCOPE_STATUSES":     "pending,scheduled",
	"MODALITY":              "US",
	"ACCESSION_PREFIX":      "ACC",
	"ACCESSION_DIGITS":      6,
}

// Load reads the configuration and validates it. A missing .env file is
// not an error.
func Load() (*Config, error) {
	return load(".env")
}

func load(envFile string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(envFile)
	v.SetConfigType("env")
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
		// Bind explicitly so Unmarshal sees variables only present in the environment.
		_ = v.BindEnv(key)
	}

	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.UltrasoundKeywords = splitList(v.GetString("ULTRASOUND_KEYWORDS"))
	cfg.InScopeStatuses = splitList(v.GetString("IN_SCOPE_STATUSES"))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Validate checks the values that would otherwise fail deep inside the
// DICOM or sync layers.
func (c *Config) Validate() error {
	if c.AETitle == "" || len(c.AETitle) > 16 {
		return fmt.Errorf("AE_TITLE must be 1 to 16 characters, got %q", c.AETitle)
	}
	if len(c.StationAETitle) > 16 {
		return fmt.Errorf("STATION_AE_TITLE must be at most 16 characters, got %q", c.StationAETitle)
	}
	if c.SyncInterval <= 0 {
		return fmt.Errorf("SYNC_INTERVAL must be positive, got %s", c.SyncInterval)
	}
	if c.SyncWorkers < 1 {
		return fmt.Errorf("SYNC_WORKERS must be at least 1, got %d", c.SyncWorkers)
	}
	if c.SyncQueueSize < 1 {
		return fmt.Errorf("SYNC_QUEUE_SIZE must be at least 1, got %d", c.SyncQueueSize)
	}
	if c.AccessionDigits < 1 || c.AccessionDigits > 16-len(c.AccessionPrefix) {
		return fmt.Errorf("ACCESSION_PREFIX and ACCESSION_DIGITS must fit the 16 character accession number")
	}
	if c.Modality == "" {
		return fmt.Errorf("MODALITY is required")
	}
	if c.SourceMinConns > c.SourceMaxConns {
		return fmt.Errorf("SOURCE_MIN_CONNS (%d) exceeds SOURCE_MAX_CONNS (%d)", c.SourceMinConns, c.SourceMaxConns)
	}
	return nil
}

// RequireSource reports an error when the scheduling store is not configured.
func (c *Config) RequireSource() error {
	if c.SourceDatabaseURL == "" {
		return fmt.Errorf("SOURCE_DATABASE_URL is required")
	}
	return nil
}
