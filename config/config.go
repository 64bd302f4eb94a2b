package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Store backends understood by the server.
const (
	StoreBackendFile     = "file"
	StoreBackendMemory   = "memory"
	StoreBackendPostgres = "postgres"
	StoreBackendMinio    = "minio"
	StoreBackendGCS      = "gcs"
)

// Event backends understood by the server.
const (
	EventsBackendNone     = "none"
	EventsBackendRabbitMQ = "rabbitmq"
	EventsBackendPubSub   = "pubsub"
)

type Config struct {
	ServerPort int           `env:"SERVER_PORT" envDefault:"8080"`
	JWTSecret  string        `env:"JWT_SECRET"`
	TokenTTL   time.Duration `env:"JWT_TOKEN_TTL" envDefault:"24h"`

	Log      LogConfig
	Store    StoreConfig
	Database DatabaseConfig
	Minio    MinioConfig
	GCS      GCSConfig
	Events   EventsConfig
	RabbitMQ RabbitMQConfig
	PubSub   PubSubConfig
}

type LogConfig struct {
	Level       string `env:"LOG_LEVEL" envDefault:"info"`
	Development bool   `env:"LOG_DEVELOPMENT" envDefault:"false"`
}

// StoreConfig selects where the user document lives.
type StoreConfig struct {
	Backend   string `env:"STORE_BACKEND" envDefault:"file"`
	FilePath  string `env:"STORE_FILE_PATH" envDefault:"users.json"`
	ObjectKey string `env:"STORE_OBJECT_KEY" envDefault:"users.json"`
}

type DatabaseConfig struct {
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     int    `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"socialnote"`
	Password string `env:"DB_PASSWORD" envDefault:"password"`
	DBName   string `env:"DB_NAME" envDefault:"socialnote_db"`
	UseSSL   bool   `env:"DB_USE_SSL" envDefault:"false"`
}

type MinioConfig struct {
	Endpoint  string `env:"MINIO_ENDPOINT"`
	AccessKey string `env:"MINIO_ACCESS_KEY"`
	SecretKey string `env:"MINIO_SECRET_KEY"`
	Bucket    string `env:"MINIO_BUCKET" envDefault:"socialnote"`
	UseSSL    bool   `env:"MINIO_USE_SSL" envDefault:"false"`
}

type GCSConfig struct {
	Bucket          string `env:"GCS_BUCKET"`
	ProjectID       string `env:"GCS_PROJECT_ID"`
	CredentialsFile string `env:"GCS_CREDENTIALS_FILE"`
}

// EventsConfig selects the broker friend-request events are published to.
type EventsConfig struct {
	Backend string `env:"EVENTS_BACKEND" envDefault:"none"`
	Channel string `env:"EVENTS_CHANNEL" envDefault:"social-events"`
}

type RabbitMQConfig struct {
	URL             string `env:"RABBITMQ_URL"`
	QueueDurable    bool   `env:"RABBITMQ_QUEUE_DURABLE" envDefault:"true"`
	QueueAutoDelete bool   `env:"RABBITMQ_QUEUE_AUTO_DELETE" envDefault:"false"`
	PrefetchCount   int    `env:"RABBITMQ_PREFETCH_COUNT" envDefault:"10"`
}

type PubSubConfig struct {
	ProjectID          string `env:"PUBSUB_PROJECT_ID"`
	CredentialsFile    string `env:"PUBSUB_CREDENTIALS_FILE"`
	SubscriptionSuffix string `env:"PUBSUB_SUBSCRIPTION_SUFFIX" envDefault:"-sub"`
}

func LoadConfig() (Config, error) {
	if os.Getenv("ENV") == "dev" {
		godotenv.Load()
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
