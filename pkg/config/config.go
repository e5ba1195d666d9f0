package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ServiceName string
	ServerPort  int
	LogLevel    string

	DatabaseURL string

	JWTAccessSecret  []byte
	JWTRefreshSecret []byte

	Store    StoreConfig
	Paystack PaystackConfig
	SMTP     SMTPConfig
	Notify   NotifyConfig

	KafkaBrokers []string

	ES    ESConfig
	Minio MinioConfig

	ImgproxyURL  string
	ImgproxyKey  string
	ImgproxySalt string

	GA4MeasurementID string
	GA4APISecret     string

	NodeID       int64
	RateLimitRPS float64
	CookieSecure bool
}

type StoreConfig struct {
	Name                  string
	BaseURL               string
	CheckoutPath          string
	OrderConfirmationPath string
	Currency              string
}

type PaystackConfig struct {
	SecretKey   string
	BaseURL     string
	CallbackURL string
	Timeout     time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type NotifyConfig struct {
	Workers int
	Buffer  int
	Timeout time.Duration
}

type ESConfig struct {
	URL      string
	User     string
	Password string
	Index    string
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	PublicURL string
}

func Load() Config {
	return Config{
		ServiceName: EnvDefault("SERVICE_NAME", "storefront"),
		ServerPort:  EnvIntDefault("SERVER_PORT", 8080),
		LogLevel:    EnvDefault("LOG_LEVEL", "info"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		JWTAccessSecret:  []byte(os.Getenv("JWT_SECRET")),
		JWTRefreshSecret: []byte(os.Getenv("JWT_REFRESH_SECRET")),

		Store: StoreConfig{
			Name:                  EnvDefault("STORE_NAME", "Storefront"),
			BaseURL:               strings.TrimRight(EnvDefault("STORE_BASE_URL", "http://localhost:3000"), "/"),
			CheckoutPath:          EnvDefault("CHECKOUT_PATH", "/checkout"),
			OrderConfirmationPath: EnvDefault("ORDER_CONFIRMATION_PATH", "/order-confirmation"),
			Currency:              EnvDefault("CURRENCY", "NGN"),
		},

		Paystack: PaystackConfig{
			SecretKey:   os.Getenv("PAYSTACK_SECRET_KEY"),
			BaseURL:     EnvDefault("PAYSTACK_BASE_URL", "https://api.paystack.co"),
			CallbackURL: os.Getenv("PAYSTACK_CALLBACK_URL"),
			Timeout:     EnvDurationDefault("PAYSTACK_TIMEOUT", 5*time.Second),
		},

		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     EnvIntDefault("SMTP_PORT", 587),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     EnvDefault("SMTP_FROM", "no-reply@localhost"),
		},

		Notify: NotifyConfig{
			Workers: EnvIntDefault("NOTIFY_WORKERS", 2),
			Buffer:  EnvIntDefault("NOTIFY_BUFFER", 256),
			Timeout: EnvDurationDefault("NOTIFY_TIMEOUT", 15*time.Second),
		},

		KafkaBrokers: CSV(os.Getenv("KAFKA_BROKERS")),

		ES: ESConfig{
			URL:      os.Getenv("ES_URL"),
			User:     os.Getenv("ES_USER"),
			Password: os.Getenv("ES_PASSWORD"),
			Index:    EnvDefault("ES_INDEX", "products"),
		},

		Minio: MinioConfig{
			Endpoint:  os.Getenv("MINIO_ENDPOINT"),
			AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			Bucket:    EnvDefault("MINIO_BUCKET", "storefront"),
			UseSSL:    EnvBoolDefault("MINIO_USE_SSL", false),
			PublicURL: strings.TrimRight(os.Getenv("MINIO_PUBLIC_URL"), "/"),
		},

		ImgproxyURL:  strings.TrimRight(os.Getenv("IMGPROXY_URL"), "/"),
		ImgproxyKey:  os.Getenv("IMGPROXY_KEY"),
		ImgproxySalt: os.Getenv("IMGPROXY_SALT"),

		GA4MeasurementID: os.Getenv("GA4_MEASUREMENT_ID"),
		GA4APISecret:     os.Getenv("GA4_API_SECRET"),

		NodeID:       int64(EnvIntDefault("NODE_ID", 1)),
		RateLimitRPS: EnvFloatDefault("RATE_LIMIT_RPS", 10),
		CookieSecure: EnvBoolDefault("COOKIE_SECURE", true),
	}
}

// RedirectURL joins the storefront base url with one of its page paths.
func (s StoreConfig) RedirectURL(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return s.BaseURL + path
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func EnvFloatDefault(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func EnvBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func EnvDurationDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
