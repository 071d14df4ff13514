package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const AVATAR_SIZE = 128

type DBDriver string

const (
	DBDriverMySQL  DBDriver = "mysql"
	DBDriverSQLite DBDriver = "sqlite"
)

type AuthProvider string

const (
	AuthProviderFirebase AuthProvider = "firebase"
	AuthProviderLocal    AuthProvider = "local"
)

type BlobProvider string

const (
	BlobProviderGCS  BlobProvider = "gcs"
	BlobProviderS3   BlobProvider = "s3"
	BlobProviderNone BlobProvider = "none"
)

type Config struct {
	Port      string   `env:"PORT" envDefault:"8080"`
	GinMode   string   `env:"GIN_MODE" envDefault:"debug"`
	FEOrigins []string `env:"FE_ORIGINS" envSeparator:";" envDefault:"http://localhost:19006"`

	DB DBConfig

	AuthProvider AuthProvider  `env:"AUTH_PROVIDER" envDefault:"firebase"`
	JWTSecret    string        `env:"JWT_SECRET"`
	JWTTTL       time.Duration `env:"JWT_TTL" envDefault:"72h"`

	BlobProvider  BlobProvider `env:"BLOB_PROVIDER" envDefault:"none"`
	BlobBucket    string       `env:"BLOB_BUCKET"`
	BlobPublicURL string       `env:"BLOB_PUBLIC_URL"`
	AWSRegion     string       `env:"AWS_REGION" envDefault:"us-east-1"`

	PushEnabled bool   `env:"PUSH_ENABLED" envDefault:"false"`
	SNSFCMArn   string `env:"SNS_FCM_ARN"`
	SNSAPNSArn  string `env:"SNS_APNS_ARN"`

	ProductLookupURL      string        `env:"PRODUCT_LOOKUP_URL" envDefault:"https://world.openfoodfacts.org"`
	ProductLookupTimeout  time.Duration `env:"PRODUCT_LOOKUP_TIMEOUT" envDefault:"5s"`
	CatalogRefreshSpec    string        `env:"CATALOG_REFRESH_SPEC" envDefault:"*/20 * * * *"`
	NotificationPurgeSpec string        `env:"NOTIFICATION_PURGE_SPEC" envDefault:"30 3 * * *"`
	NotificationRetention time.Duration `env:"NOTIFICATION_RETENTION" envDefault:"720h"`
	FeedPageSize          int16         `env:"FEED_PAGE_SIZE" envDefault:"20"`
}

type DBConfig struct {
	Driver   DBDriver `env:"DB_DRIVER" envDefault:"mysql"`
	Host     string   `env:"DB_HOST"`
	User     string   `env:"DB_USER"`
	Pass     string   `env:"DB_PASS"`
	Name     string   `env:"DB_NAME" envDefault:"nutriscan"`
	TLS      bool     `env:"DB_TLS" envDefault:"true"`
	Path     string   `env:"DB_PATH" envDefault:"nutriscan.sqlite"`
	MaxConns int      `env:"DB_MAX_CONNS" envDefault:"50"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	// a missing .env is fine, the environment may be set by the platform
	_ = godotenv.Load()

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	switch c.DB.Driver {
	case DBDriverMySQL:
		if c.DB.Host == "" || c.DB.User == "" {
			errs = append(errs, errors.New("DB_HOST and DB_USER are required for mysql"))
		}
	case DBDriverSQLite:
		if c.DB.Path == "" {
			errs = append(errs, errors.New("DB_PATH is required for sqlite"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown DB_DRIVER %q", c.DB.Driver))
	}

	switch c.AuthProvider {
	case AuthProviderFirebase:
	case AuthProviderLocal:
		if len(c.JWTSecret) < 32 {
			errs = append(errs, errors.New("JWT_SECRET must be at least 32 bytes for local auth"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown AUTH_PROVIDER %q", c.AuthProvider))
	}

	switch c.BlobProvider {
	case BlobProviderGCS, BlobProviderS3:
		if c.BlobBucket == "" {
			errs = append(errs, fmt.Errorf("BLOB_BUCKET is required for %v", c.BlobProvider))
		}
	case BlobProviderNone:
	default:
		errs = append(errs, fmt.Errorf("unknown BLOB_PROVIDER %q", c.BlobProvider))
	}

	if c.PushEnabled && c.SNSFCMArn == "" && c.SNSAPNSArn == "" {
		errs = append(errs, errors.New("PUSH_ENABLED requires SNS_FCM_ARN or SNS_APNS_ARN"))
	}
	if c.FeedPageSize <= 0 || c.FeedPageSize > 100 {
		errs = append(errs, errors.New("FEED_PAGE_SIZE must be between 1 and 100"))
	}

	return errors.Join(errs...)
}

func (c *Config) IsRelease() bool {
	return c.GinMode == "release"
}
