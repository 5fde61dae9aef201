package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type (
	APP struct {
		Name           string
		Host           string
		Port           string
		Env            string
		JWTSecret      string
		JWKSURL        string
		RequestTimeout time.Duration
	}
	DB struct {
		User     string
		Password string
		Name     string
		Host     string
		Port     string
	}
	S3 struct {
		// Driver is "s3" (aws-sdk-go-v2) or "minio".
		Driver          string
		Endpoint        string
		Region          string
		AccessKeyID     string
		SecretAccessKey string
		Bucket          string
		UseSSL          bool
		CreateBucket    bool
	}
	MQ struct {
		User         string
		Password     string
		Vhost        string
		Host         string
		AmqpPort     string
		Exchange     string
		ExchangeType string
		QueueName    string
	}
	Redis struct {
		Addr     string
		Password string
		DB       int
	}
	Limits struct {
		Window            time.Duration
		MaxRequests       int
		MaxBytes          int64
		MaxStorageBytes   int64
		StoreCapacity     int
		RequestsPerWindow int
		RequestWindow     time.Duration
	}
	Upload struct {
		RetainFailed        bool
		StoreAttempts       int
		BaseBackoff         time.Duration
		MaxBackoff          time.Duration
		CompensationTimeout time.Duration
	}

	Config struct {
		App    APP
		DB     DB
		S3     S3
		MQ     MQ
		Redis  Redis
		Limits Limits
		Upload Upload
	}
)

const (
	DriverS3    = "s3"
	DriverMinio = "minio"
)

var defaults = map[string]any{
	"SERVICE_NAME":            "file-manager-api",
	"SERVICE_PORT":            "8080",
	"SERVICE_ENV":             "debug",
	"SERVICE_REQUEST_TIMEOUT": "30s",

	"POSTGRES_PORT": "5432",

	"OBJECT_STORE_DRIVER": DriverS3,
	"S3_REGION":           "us-east-1",
	"S3_USE_SSL":          false,
	"S3_CREATE_BUCKET":    false,

	"RABBITMQ_EXCHANGE":      "file-manager-api",
	"RABBITMQ_EXCHANGE_TYPE": "topic",
	"RABBITMQ_QUEUE_NAME":    "file-manager-api.events",

	"LIMITS_WINDOW":              "1h",
	"LIMITS_MAX_REQUESTS":        20,
	"LIMITS_MAX_BYTES":           100 << 20,
	"LIMITS_MAX_STORAGE_BYTES":   500 << 20,
	"LIMITS_STORE_CAPACITY":      10_000,
	"LIMITS_REQUESTS_PER_WINDOW": 120,
	"LIMITS_REQUEST_WINDOW":      "1m",

	"UPLOAD_RETAIN_FAILED":        false,
	"UPLOAD_STORE_ATTEMPTS":       3,
	"UPLOAD_BASE_BACKOFF":         "100ms",
	"UPLOAD_MAX_BACKOFF":          "2s",
	"UPLOAD_COMPENSATION_TIMEOUT": "10s",
}

// Load reads the process environment.
func Load() Config {
	v := viper.New()
	v.AutomaticEnv()

	return LoadFrom(v)
}

// LoadFrom reads every known key from v, filling defaults first.
func LoadFrom(v *viper.Viper) Config {
	for k, d := range defaults {
		v.SetDefault(k, d)
	}

	app := APP{
		Name:           v.GetString("SERVICE_NAME"),
		Host:           v.GetString("SERVICE_HOST"),
		Port:           v.GetString("SERVICE_PORT"),
		Env:            v.GetString("SERVICE_ENV"),
		JWTSecret:      v.GetString("SERVICE_JWT_SECRET"),
		JWKSURL:        v.GetString("AUTH_JWKS_URL"),
		RequestTimeout: v.GetDuration("SERVICE_REQUEST_TIMEOUT"),
	}
	db := DB{
		User:     v.GetString("POSTGRES_USER"),
		Password: v.GetString("POSTGRES_PASSWORD"),
		Name:     v.GetString("POSTGRES_DB"),
		Host:     v.GetString("POSTGRES_HOST"),
		Port:     v.GetString("POSTGRES_PORT"),
	}
	s3 := S3{
		Driver:          strings.ToLower(v.GetString("OBJECT_STORE_DRIVER")),
		Endpoint:        v.GetString("S3_ENDPOINT"),
		Region:          v.GetString("S3_REGION"),
		AccessKeyID:     v.GetString("S3_ACCESS_KEY_ID"),
		SecretAccessKey: v.GetString("S3_SECRET_ACCESS_KEY"),
		Bucket:          v.GetString("S3_BUCKET_UPLOADS"),
		UseSSL:          v.GetBool("S3_USE_SSL"),
		CreateBucket:    v.GetBool("S3_CREATE_BUCKET"),
	}
	mq := MQ{
		User:         v.GetString("RABBITMQ_USER"),
		Password:     v.GetString("RABBITMQ_PASSWORD"),
		Vhost:        v.GetString("RABBITMQ_VHOST"),
		Host:         v.GetString("RABBITMQ_HOST"),
		AmqpPort:     v.GetString("RABBITMQ_AMQP_PORT"),
		Exchange:     v.GetString("RABBITMQ_EXCHANGE"),
		ExchangeType: v.GetString("RABBITMQ_EXCHANGE_TYPE"),
		QueueName:    v.GetString("RABBITMQ_QUEUE_NAME"),
	}
	rds := Redis{
		Addr:     v.GetString("REDIS_ADDR"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}
	limits := Limits{
		Window:            v.GetDuration("LIMITS_WINDOW"),
		MaxRequests:       v.GetInt("LIMITS_MAX_REQUESTS"),
		MaxBytes:          v.GetInt64("LIMITS_MAX_BYTES"),
		MaxStorageBytes:   v.GetInt64("LIMITS_MAX_STORAGE_BYTES"),
		StoreCapacity:     v.GetInt("LIMITS_STORE_CAPACITY"),
		RequestsPerWindow: v.GetInt("LIMITS_REQUESTS_PER_WINDOW"),
		RequestWindow:     v.GetDuration("LIMITS_REQUEST_WINDOW"),
	}
	upload := Upload{
		RetainFailed:        v.GetBool("UPLOAD_RETAIN_FAILED"),
		StoreAttempts:       v.GetInt("UPLOAD_STORE_ATTEMPTS"),
		BaseBackoff:         v.GetDuration("UPLOAD_BASE_BACKOFF"),
		MaxBackoff:          v.GetDuration("UPLOAD_MAX_BACKOFF"),
		CompensationTimeout: v.GetDuration("UPLOAD_COMPENSATION_TIMEOUT"),
	}

	return Config{
		App:    app,
		DB:     db,
		S3:     s3,
		MQ:     mq,
		Redis:  rds,
		Limits: limits,
		Upload: upload,
	}
}

func (c Config) DBDSN() (string, error) {
	if c.DB.User == "" || c.DB.Name == "" || c.DB.Host == "" || c.DB.Port == "" {
		return "", fmt.Errorf("incomplete DB config")
	}
	return fmt.Sprintf(
		"postgres://%s@%s:%s/%s",
		url.UserPassword(c.DB.User, c.DB.Password).String(),
		c.DB.Host,
		c.DB.Port,
		c.DB.Name,
	), nil
}

func (c Config) AMQPDSN() (string, error) {
	if c.MQ.User == "" || c.MQ.Host == "" || c.MQ.AmqpPort == "" {
		return "", fmt.Errorf("invalid MQ config: user, host and amqp port are required")
	}

	return fmt.Sprintf(
		"%s://%s@%s:%s/%s",
		"amqp",
		url.UserPassword(c.MQ.User, c.MQ.Password).String(),
		c.MQ.Host,
		c.MQ.AmqpPort,
		url.PathEscape(c.MQ.Vhost),
	), nil
}

// Validate reports settings the process cannot start without.
func (c Config) Validate() error {
	if c.S3.Bucket == "" {
		return fmt.Errorf("invalid S3 config: bucket is required")
	}
	switch c.S3.Driver {
	case DriverS3:
	case DriverMinio:
		if c.S3.Endpoint == "" {
			return fmt.Errorf("invalid S3 config: minio driver needs an endpoint")
		}
	default:
		return fmt.Errorf("invalid S3 config: unknown driver %q", c.S3.Driver)
	}
	if c.App.JWTSecret == "" && c.App.JWKSURL == "" {
		return fmt.Errorf("invalid auth config: jwt secret or jwks url is required")
	}
	if c.Limits.MaxRequests <= 0 || c.Limits.Window <= 0 || c.Limits.RequestWindow <= 0 {
		return fmt.Errorf("invalid limits config: window and request ceilings must be positive")
	}

	return nil
}

// EndpointURL is Endpoint with a scheme, as the aws sdk expects.
func (s S3) EndpointURL() string {
	if s.Endpoint == "" || strings.Contains(s.Endpoint, "://") {
		return s.Endpoint
	}
	if s.UseSSL {
		return "https://" + s.Endpoint
	}
	return "http://" + s.Endpoint
}

// MinioEndpoint strips any scheme, as minio-go expects a bare host.
func (s S3) MinioEndpoint() string {
	if _, rest, ok := strings.Cut(s.Endpoint, "://"); ok {
		return rest
	}
	return s.Endpoint
}
