package cfg

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"koi-classifier/internal/common"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Settings struct {
	ListenAddr      string
	DataPath        string
	LogLevel        string
	LogFormat       string
	MinTrainingRows int
	RowSlack        int
	MaxUploadBytes  int64
	HistorySize     int
	TrainRateLimit  float64
	TrainRateBurst  int
	RequestTimeout  time.Duration
	ArchiveURL      string
	ArchiveTimeout  time.Duration
	ArchiveRowLimit int
	EventsEnabled   bool
	EventsPing      time.Duration
}

type ConfigFile struct {
	Server struct {
		ListenAddr     string  `yaml:"listenAddr"`
		RequestTimeout string  `yaml:"requestTimeout"`
		MaxUploadBytes int64   `yaml:"maxUploadBytes"`
		TrainRateLimit float64 `yaml:"trainRateLimit"`
		TrainRateBurst int     `yaml:"trainRateBurst"`
	} `yaml:"server"`

	Training struct {
		MinRows     int `yaml:"minRows"`
		RowSlack    int `yaml:"rowSlack"`
		HistorySize int `yaml:"historySize"`
	} `yaml:"training"`

	Archive struct {
		URL      string `yaml:"url"`
		Timeout  string `yaml:"timeout"`
		RowLimit int    `yaml:"rowLimit"`
	} `yaml:"archive"`

	Events struct {
		Enabled    *bool  `yaml:"enabled"`
		PingPeriod string `yaml:"pingPeriod"`
	} `yaml:"events"`

	System struct {
		DataPath  string `yaml:"dataPath"`
		LogLevel  string `yaml:"logLevel"`
		LogFormat string `yaml:"logFormat"`
	} `yaml:"system"`
}

// Load reads the settings. A .env file (DOTENV_FILE, default ".env") is
// applied first without overriding variables already set; then CONFIG_FILE is
// used when present, otherwise the environment alone.
func Load() (Settings, error) {
	if err := loadDotEnv(getEnvOrDefault(common.EnvDotEnvFile, ".env")); err != nil {
		return Settings{}, err
	}

	if configPath := os.Getenv(common.EnvConfigFile); configPath != "" {
		return loadFromYAML(configPath)
	}

	return loadFromEnv()
}

func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to load env file %s: %w", path, err)
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	requestTimeout, err := time.ParseDuration(config.Server.RequestTimeout)
	if err != nil {
		requestTimeout = 30 * time.Second
	}

	archiveTimeout, err := time.ParseDuration(config.Archive.Timeout)
	if err != nil {
		archiveTimeout = 60 * time.Second
	}

	eventsPing, err := time.ParseDuration(config.Events.PingPeriod)
	if err != nil {
		eventsPing = 30 * time.Second
	}

	eventsEnabled := common.DefaultEventsEnabled
	if config.Events.Enabled != nil {
		eventsEnabled = *config.Events.Enabled
	}

	settings := Settings{
		ListenAddr:      getEnvOrDefault(common.EnvListenAddr, orString(config.Server.ListenAddr, common.DefaultListenAddr)),
		DataPath:        getEnvOrDefault(common.EnvDataPath, config.System.DataPath),
		LogLevel:        getEnvOrDefault(common.EnvLogLevel, orString(config.System.LogLevel, common.DefaultLogLevel)),
		LogFormat:       getEnvOrDefault(common.EnvLogFormat, orString(config.System.LogFormat, common.DefaultLogFormat)),
		MinTrainingRows: getIntFromEnvOrConfig(common.EnvMinTrainingRows, config.Training.MinRows, common.DefaultMinTrainingRows),
		RowSlack:        getIntFromEnvOrConfig(common.EnvRowSlack, config.Training.RowSlack, common.DefaultRowSlack),
		MaxUploadBytes:  int64(getIntFromEnvOrConfig(common.EnvMaxUploadBytes, int(config.Server.MaxUploadBytes), common.DefaultMaxUploadBytes)),
		HistorySize:     getIntFromEnvOrConfig(common.EnvHistorySize, config.Training.HistorySize, common.DefaultHistorySize),
		TrainRateLimit:  getFloatFromEnvOrConfig(common.EnvTrainRateLimit, config.Server.TrainRateLimit, common.DefaultTrainRateLimit),
		TrainRateBurst:  getIntFromEnvOrConfig(common.EnvTrainRateBurst, config.Server.TrainRateBurst, common.DefaultTrainRateBurst),
		RequestTimeout:  getDurationOrDefault(common.EnvRequestTimeout, requestTimeout),
		ArchiveURL:      getEnvOrDefault(common.EnvArchiveURL, orString(config.Archive.URL, common.DefaultArchiveURL)),
		ArchiveTimeout:  getDurationOrDefault(common.EnvArchiveTimeout, archiveTimeout),
		ArchiveRowLimit: getIntFromEnvOrConfig(common.EnvArchiveRowLimit, config.Archive.RowLimit, common.DefaultArchiveRowLimit),
		EventsEnabled:   getBoolOrDefault(common.EnvEventsEnabled, eventsEnabled),
		EventsPing:      getDurationOrDefault(common.EnvEventsPingPeriod, eventsPing),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := Settings{
		ListenAddr:      getEnvOrDefault(common.EnvListenAddr, common.DefaultListenAddr),
		DataPath:        os.Getenv(common.EnvDataPath), // optional
		LogLevel:        getEnvOrDefault(common.EnvLogLevel, common.DefaultLogLevel),
		LogFormat:       getEnvOrDefault(common.EnvLogFormat, common.DefaultLogFormat),
		MinTrainingRows: getIntOrDefault(common.EnvMinTrainingRows, common.DefaultMinTrainingRows),
		RowSlack:        getIntOrDefault(common.EnvRowSlack, common.DefaultRowSlack),
		MaxUploadBytes:  int64(getIntOrDefault(common.EnvMaxUploadBytes, common.DefaultMaxUploadBytes)),
		HistorySize:     getIntOrDefault(common.EnvHistorySize, common.DefaultHistorySize),
		TrainRateLimit:  getFloatOrDefault(common.EnvTrainRateLimit, common.DefaultTrainRateLimit),
		TrainRateBurst:  getIntOrDefault(common.EnvTrainRateBurst, common.DefaultTrainRateBurst),
		RequestTimeout:  getDurationOrDefault(common.EnvRequestTimeout, 30*time.Second),
		ArchiveURL:      getEnvOrDefault(common.EnvArchiveURL, common.DefaultArchiveURL),
		ArchiveTimeout:  getDurationOrDefault(common.EnvArchiveTimeout, 60*time.Second),
		ArchiveRowLimit: getIntOrDefault(common.EnvArchiveRowLimit, common.DefaultArchiveRowLimit),
		EventsEnabled:   getBoolOrDefault(common.EnvEventsEnabled, common.DefaultEventsEnabled),
		EventsPing:      getDurationOrDefault(common.EnvEventsPingPeriod, 30*time.Second),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func orString(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue, defaultValue int) int {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.Atoi(env); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

func getFloatFromEnvOrConfig(key string, configValue, defaultValue float64) float64 {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.ParseFloat(env, 64); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

// validateSettings performs bounds checks on every configured value
func validateSettings(settings *Settings) error {
	if settings.ListenAddr == "" {
		return fmt.Errorf("listen address cannot be empty")
	}

	switch settings.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("log format must be json or console, got %q", settings.LogFormat)
	}

	if settings.MinTrainingRows < common.MinTrainingRowsLimit || settings.MinTrainingRows > common.MaxTrainingRowsLimit {
		return fmt.Errorf("minimum training rows must be between %d and %d, got %d",
			common.MinTrainingRowsLimit, common.MaxTrainingRowsLimit, settings.MinTrainingRows)
	}
	if settings.RowSlack < 0 || settings.RowSlack > common.MaxRowSlack {
		return fmt.Errorf("CSV row slack must be between 0 and %d, got %d", common.MaxRowSlack, settings.RowSlack)
	}
	if settings.MaxUploadBytes < common.MinUploadBytes || settings.MaxUploadBytes > common.MaxUploadBytesLimit {
		return fmt.Errorf("max upload size must be between %d and %d bytes, got %d",
			common.MinUploadBytes, common.MaxUploadBytesLimit, settings.MaxUploadBytes)
	}
	if settings.HistorySize <= 0 || settings.HistorySize > common.MaxHistorySize {
		return fmt.Errorf("history size must be between 1 and %d, got %d", common.MaxHistorySize, settings.HistorySize)
	}

	if settings.TrainRateLimit <= 0 || settings.TrainRateLimit > 1000 {
		return fmt.Errorf("train rate limit must be between 0 and 1000 per second, got %f", settings.TrainRateLimit)
	}
	if settings.TrainRateBurst <= 0 || settings.TrainRateBurst > 1000 {
		return fmt.Errorf("train rate burst must be between 1 and 1000, got %d", settings.TrainRateBurst)
	}

	if settings.RequestTimeout < time.Second || settings.RequestTimeout > 10*time.Minute {
		return fmt.Errorf("request timeout must be between 1s and 10m, got %v", settings.RequestTimeout)
	}
	if settings.ArchiveTimeout < time.Second || settings.ArchiveTimeout > 10*time.Minute {
		return fmt.Errorf("archive timeout must be between 1s and 10m, got %v", settings.ArchiveTimeout)
	}
	if settings.EventsPing < time.Second || settings.EventsPing > 5*time.Minute {
		return fmt.Errorf("events ping period must be between 1s and 5m, got %v", settings.EventsPing)
	}

	if settings.ArchiveURL == "" {
		return fmt.Errorf("archive URL cannot be empty")
	}
	if settings.ArchiveRowLimit <= 0 || settings.ArchiveRowLimit > common.MaxArchiveRowLimit {
		return fmt.Errorf("archive row limit must be between 1 and %d, got %d", common.MaxArchiveRowLimit, settings.ArchiveRowLimit)
	}

	return nil
}
