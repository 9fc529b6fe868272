package config

import (
	"errors" // Error construction
	"time"   // Session lifetime

	"github.com/joho/godotenv"   // For loading .env files
	"github.com/spf13/viper"     // Typed environment lookup with defaults
	"golang.org/x/crypto/bcrypt" // Password hashing
)

// Patient store backends
const (
	PatientStoreMongo  = "mongo"
	PatientStoreMemory = "memory"
)

// Config holds the application configuration
type Config struct {
	AppPort  string // Application port
	IsProd   bool   // Is production environment
	LogLevel string // logrus level name

	SecretKey string // Signs session cookies and CSRF tokens

	DBDriver   string // sqlite or mysql
	DBPath     string // SQLite file path
	DBUser     string // Database user
	DBPassword string // Database password
	DBHost     string // Database host
	DBPort     string // Database port
	DBName     string // Database name

	PatientStore    string // mongo or memory
	MongoURI        string // MongoDB connection string
	MongoDB         string // MongoDB database name
	MongoCollection string // Patient collection name

	RedisAddr string // Redis server address, empty keeps revocations in process
	RedisPass string // Redis password
	RedisDB   int    // Redis database number

	SessionCookieName   string        // Session cookie name
	SessionCookieSecure bool          // Restrict the cookie to HTTPS
	SessionTTL          time.Duration // Session lifetime

	CSRFEnabled bool // Require CSRF tokens on unsafe methods
	BcryptCost  int  // Password hashing cost
}

var (
	ErrMissingSecret   = errors.New("SECRET_KEY must be set")
	ErrMissingMongoURI = errors.New("MONGO_URI must be set when PATIENT_STORE=mongo")
	ErrUnknownStore    = errors.New("PATIENT_STORE must be mongo or memory")
	ErrUnknownDriver   = errors.New("DB_DRIVER must be sqlite or mysql")
)

// LoadConfig loads configuration from environment variables.
// A .env file in the working directory is loaded first if present.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load() // Load .env file if present
	return fromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("APP_PORT", "5000")
	v.SetDefault("IS_PROD", false)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DB_PATH", "database/auth.db")
	v.SetDefault("DB_PORT", "3306")
	v.SetDefault("PATIENT_STORE", PatientStoreMongo)
	v.SetDefault("MONGO_DB", "stroke_prediction")
	v.SetDefault("MONGO_COLLECTION", "patients")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("SESSION_COOKIE_NAME", "session")
	v.SetDefault("SESSION_COOKIE_SECURE", false)
	v.SetDefault("SESSION_TTL", 12*time.Hour)
	v.SetDefault("CSRF_ENABLED", true)
	v.SetDefault("BCRYPT_COST", bcrypt.DefaultCost)
	return v
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		AppPort:  v.GetString("APP_PORT"),
		IsProd:   v.GetBool("IS_PROD"),
		LogLevel: v.GetString("LOG_LEVEL"),

		SecretKey: v.GetString("SECRET_KEY"),

		DBDriver:   v.GetString("DB_DRIVER"),
		DBPath:     v.GetString("DB_PATH"),
		DBUser:     v.GetString("DB_USER"),
		DBPassword: v.GetString("DB_PASSWORD"),
		DBHost:     v.GetString("DB_HOST"),
		DBPort:     v.GetString("DB_PORT"),
		DBName:     v.GetString("DB_NAME"),

		PatientStore:    v.GetString("PATIENT_STORE"),
		MongoURI:        v.GetString("MONGO_URI"),
		MongoDB:         v.GetString("MONGO_DB"),
		MongoCollection: v.GetString("MONGO_COLLECTION"),

		RedisAddr: v.GetString("REDIS_ADDR"),
		RedisPass: v.GetString("REDIS_PASS"),
		RedisDB:   v.GetInt("REDIS_DB"),

		SessionCookieName:   v.GetString("SESSION_COOKIE_NAME"),
		SessionCookieSecure: v.GetBool("SESSION_COOKIE_SECURE"),
		SessionTTL:          v.GetDuration("SESSION_TTL"),

		CSRFEnabled: v.GetBool("CSRF_ENABLED"),
		BcryptCost:  v.GetInt("BCRYPT_COST"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot start with
func (c *Config) Validate() error {
	if c.SecretKey == "" {
		return ErrMissingSecret
	}
	switch c.DBDriver {
	case "sqlite", "mysql":
	default:
		return ErrUnknownDriver
	}
	switch c.PatientStore {
	case PatientStoreMongo:
		if c.MongoURI == "" {
			return ErrMissingMongoURI
		}
	case PatientStoreMemory:
	default:
		return ErrUnknownStore
	}
	return nil
}

// MySQLDSN builds the Data Source Name for the MySQL driver
func (c *Config) MySQLDSN() string {
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?parseTime=true"
}
