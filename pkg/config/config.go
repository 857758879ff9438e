package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Supported document store drivers.
const (
	StoreMongo     = "mongo"
	StoreFirestore = "firestore"
	StorePostgres  = "postgres"
	StoreMemory    = "memory"
)

// MaxBatchSize is the upper bound on documents per batch commit.
const MaxBatchSize = 500

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Store     StoreConfig
	Database  DatabaseConfig
	Mongo     MongoConfig
	Firestore FirestoreConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Grading   GradingConfig
	Setup     SetupConfig
	Cache     CacheConfig
}

// StoreConfig selects the document store backend.
type StoreConfig struct {
	Driver string
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

// MongoConfig holds MongoDB connection settings.
type MongoConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
	MaxPoolSize    uint64
	MinPoolSize    uint64
}

// FirestoreConfig holds Firestore project settings.
type FirestoreConfig struct {
	ProjectID       string
	CredentialsFile string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// GradingConfig tunes score weighting and remark selection.
type GradingConfig struct {
	DefaultWeights       map[string]float64
	DeterministicRemarks bool
}

// SetupConfig governs the setup tooling write discipline.
type SetupConfig struct {
	BatchSize    int
	BatchTimeout time.Duration
	LockEnabled  bool
	LockTTL      time.Duration
	FixturesPath string
	BcryptCost   int
}

// CacheConfig governs report card read caching.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Store = StoreConfig{Driver: strings.ToLower(strings.TrimSpace(v.GetString("STORE_DRIVER")))}
	switch cfg.Store.Driver {
	case StoreMongo, StoreFirestore, StorePostgres, StoreMemory:
	default:
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q", cfg.Store.Driver)
	}

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Mongo = MongoConfig{
		URI:            v.GetString("MONGO_URI"),
		Database:       v.GetString("MONGO_DATABASE"),
		ConnectTimeout: parseDuration(v.GetString("MONGO_CONNECT_TIMEOUT"), 20*time.Second),
		MaxPoolSize:    uint64(v.GetInt("MONGO_MAX_POOL_SIZE")),
		MinPoolSize:    uint64(v.GetInt("MONGO_MIN_POOL_SIZE")),
	}

	cfg.Firestore = FirestoreConfig{
		ProjectID:       v.GetString("FIRESTORE_PROJECT_ID"),
		CredentialsFile: v.GetString("FIRESTORE_CREDENTIALS_FILE"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	weights, err := ParseWeights(v.GetString("GRADING_DEFAULT_WEIGHTS"))
	if err != nil {
		return nil, err
	}
	cfg.Grading = GradingConfig{
		DefaultWeights:       weights,
		DeterministicRemarks: v.GetBool("GRADING_DETERMINISTIC_REMARKS"),
	}

	batchSize := v.GetInt("SETUP_BATCH_SIZE")
	if batchSize <= 0 || batchSize > MaxBatchSize {
		batchSize = MaxBatchSize
	}
	cfg.Setup = SetupConfig{
		BatchSize:    batchSize,
		BatchTimeout: parseDuration(v.GetString("SETUP_BATCH_TIMEOUT"), 30*time.Second),
		LockEnabled:  v.GetBool("SETUP_LOCK_ENABLED"),
		LockTTL:      parseDuration(v.GetString("SETUP_LOCK_TTL"), 5*time.Minute),
		FixturesPath: v.GetString("SETUP_FIXTURES_PATH"),
		BcryptCost:   v.GetInt("SETUP_BCRYPT_COST"),
	}

	cfg.Cache = CacheConfig{
		Enabled: v.GetBool("ENABLE_REPORT_CACHE"),
		TTL:     parseDuration(v.GetString("REPORT_CACHE_TTL"), 10*time.Minute),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("STORE_DRIVER", StoreMemory)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "school_reports")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DATABASE", "school_reports")
	v.SetDefault("MONGO_CONNECT_TIMEOUT", "20s")
	v.SetDefault("MONGO_MAX_POOL_SIZE", 50)
	v.SetDefault("MONGO_MIN_POOL_SIZE", 5)

	v.SetDefault("FIRESTORE_PROJECT_ID", "")
	v.SetDefault("FIRESTORE_CREDENTIALS_FILE", "")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("GRADING_DEFAULT_WEIGHTS", "midTerm:0.2,endTerm:0.8")
	v.SetDefault("GRADING_DETERMINISTIC_REMARKS", false)

	v.SetDefault("SETUP_BATCH_SIZE", MaxBatchSize)
	v.SetDefault("SETUP_BATCH_TIMEOUT", "30s")
	v.SetDefault("SETUP_LOCK_ENABLED", false)
	v.SetDefault("SETUP_LOCK_TTL", "5m")
	v.SetDefault("SETUP_FIXTURES_PATH", "")
	v.SetDefault("SETUP_BCRYPT_COST", 10)

	v.SetDefault("ENABLE_REPORT_CACHE", false)
	v.SetDefault("REPORT_CACHE_TTL", "10m")
}

// ParseWeights parses "code:weight,code:weight" into a weight map.
func ParseWeights(raw string) (map[string]float64, error) {
	weights := make(map[string]float64)
	for _, part := range splitAndTrim(raw) {
		pieces := strings.SplitN(part, ":", 2)
		if len(pieces) != 2 {
			return nil, fmt.Errorf("invalid weight entry %q", part)
		}
		code := strings.TrimSpace(pieces[0])
		weight, err := strconv.ParseFloat(strings.TrimSpace(pieces[1]), 64)
		if err != nil || code == "" {
			return nil, fmt.Errorf("invalid weight entry %q", part)
		}
		weights[code] = weight
	}
	return weights, nil
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
