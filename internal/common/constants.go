package common

// Environment variable keys
const (
	EnvConfigFile       = "CONFIG_FILE"
	EnvDotEnvFile       = "DOTENV_FILE"
	EnvListenAddr       = "LISTEN_ADDR"
	EnvDataPath         = "DATA_PATH"
	EnvLogLevel         = "LOG_LEVEL"
	EnvLogFormat        = "LOG_FORMAT"
	EnvMinTrainingRows  = "MIN_TRAINING_ROWS"
	EnvRowSlack         = "CSV_ROW_SLACK"
	EnvMaxUploadBytes   = "MAX_UPLOAD_BYTES"
	EnvHistorySize      = "HISTORY_SIZE"
	EnvTrainRateLimit   = "TRAIN_RATE_LIMIT"
	EnvTrainRateBurst   = "TRAIN_RATE_BURST"
	EnvRequestTimeout   = "REQUEST_TIMEOUT"
	EnvArchiveURL       = "ARCHIVE_URL"
	EnvArchiveTimeout   = "ARCHIVE_TIMEOUT"
	EnvArchiveRowLimit  = "ARCHIVE_ROW_LIMIT"
	EnvEventsEnabled    = "EVENTS_ENABLED"
	EnvEventsPingPeriod = "EVENTS_PING_PERIOD"
)

// Configuration defaults
const (
	DefaultListenAddr       = ":8080"
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "json"
	DefaultMinTrainingRows  = 10
	DefaultRowSlack         = 2
	DefaultMaxUploadBytes   = 32 << 20 // 32 MiB
	DefaultHistorySize      = 100
	DefaultTrainRateLimit   = 1.0 // trainings per second per client
	DefaultTrainRateBurst   = 5
	DefaultArchiveURL       = "https://exoplanetarchive.ipac.caltech.edu"
	DefaultArchiveRowLimit  = 5000
	DefaultEventsEnabled    = true
	DefaultDataFileName     = "koi-classifier.db"
	DefaultTrainingTemplate = "koi_training_template.csv"
	DefaultPredictionSample = "koi_prediction_sample.csv"
)

// Disposition labels
const (
	DispositionConfirmed     = "CONFIRMED"
	DispositionFalsePositive = "FALSE POSITIVE"
)

// Prediction labels
const (
	PredictionExoplanet    = "exoplanet"
	PredictionNotExoplanet = "not-exoplanet"
	ModelUsedTrained       = "trained"
	ModelUsedHeuristic     = "heuristic"
)

// Validation constants
const (
	MinTrainingRowsLimit = DefaultMinTrainingRows
	MaxTrainingRowsLimit = 1_000_000
	MaxRowSlack          = 20
	MinUploadBytes       = 1 << 10
	MaxUploadBytesLimit  = 1 << 30
	MaxHistorySize       = 10000
	MaxArchiveRowLimit   = 100000
	MaxTestSize          = 0.5
)
