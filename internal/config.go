package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"http_server"`
	Database DatabaseConfig `mapstructure:"database"`
	Gateways GatewaysConfig `mapstructure:"gateways"`
	Brevo    BrevoConfig    `mapstructure:"brevo"`
	Frontend FrontendConfig `mapstructure:"frontend"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	BaseURL           string        `mapstructure:"base_url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	URI            string        `mapstructure:"uri"`
	Name           string        `mapstructure:"name"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	QueryTimeout   time.Duration `mapstructure:"query_timeout"`
}

type GatewaysConfig struct {
	RequestTimeout time.Duration     `mapstructure:"request_timeout"`
	Flutterwave    FlutterwaveConfig `mapstructure:"flutterwave"`
	Paystack       PaystackConfig    `mapstructure:"paystack"`
}

type FlutterwaveConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	SecretKey  string `mapstructure:"secret_key"`
	SecretHash string `mapstructure:"secret_hash"`
}

type PaystackConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	SecretKey string `mapstructure:"secret_key"`
}

type BrevoConfig struct {
	BaseURL          string `mapstructure:"base_url"`
	APIKey           string `mapstructure:"api_key"`
	NewsletterListID int64  `mapstructure:"newsletter_list_id"`
	AdminEmail       string `mapstructure:"admin_email"`
	SenderName       string `mapstructure:"sender_name"`
	SenderEmail      string `mapstructure:"sender_email"`
}

type FrontendConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

// LoadConfigFromEnv builds the configuration purely from environment
// variables, used for container deployments where no config file is
// mounted.
func LoadConfigFromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Port:              getEnvAsInt("SERVER_PORT", 8080),
			BaseURL:           getEnv("SERVER_BASE_URL", "http://localhost:8080"),
			AllowedOrigins:    getEnv("SERVER_ALLOWED_ORIGINS", "*"),
			ReadHeaderTimeout: getEnvAsDuration("SERVER_READ_HEADER_TIMEOUT", 5*time.Second),
			ReadTimeout:       getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			IdleTimeout:       getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			WriteTimeout:      getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			URI:            getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Name:           getEnv("MONGODB_NAME", "apeh_charity"),
			ConnectTimeout: getEnvAsDuration("MONGODB_CONNECT_TIMEOUT", 10*time.Second),
			QueryTimeout:   getEnvAsDuration("MONGODB_QUERY_TIMEOUT", 5*time.Second),
		},
		Gateways: GatewaysConfig{
			RequestTimeout: getEnvAsDuration("GATEWAY_REQUEST_TIMEOUT", 30*time.Second),
			Flutterwave: FlutterwaveConfig{
				BaseURL:    getEnv("FLUTTERWAVE_BASE_URL", "https://api.flutterwave.com/v3"),
				SecretKey:  getEnv("FLUTTERWAVE_SECRET_KEY", ""),
				SecretHash: getEnv("FLUTTERWAVE_SECRET_HASH", ""),
			},
			Paystack: PaystackConfig{
				BaseURL:   getEnv("PAYSTACK_BASE_URL", "https://api.paystack.co"),
				SecretKey: getEnv("PAYSTACK_SECRET_KEY", ""),
			},
		},
		Brevo: BrevoConfig{
			BaseURL:          getEnv("BREVO_BASE_URL", "https://api.brevo.com/v3"),
			APIKey:           getEnv("BREVO_API_KEY", ""),
			NewsletterListID: int64(getEnvAsInt("BREVO_NEWSLETTER_LIST_ID", 1)),
			AdminEmail:       getEnv("ADMIN_EMAIL", "admin@apehbe.org"),
			SenderName:       getEnv("BREVO_SENDER_NAME", "APEH-BE-CHARITY"),
			SenderEmail:      getEnv("BREVO_SENDER_EMAIL", "noreply@apehbe.org"),
		},
		Frontend: FrontendConfig{
			BaseURL: getEnv("FRONTEND_URL", "http://localhost:3000"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Gateways.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("gateways config: %v", err))
	}

	if err := c.Brevo.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("brevo config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.URI == "" {
		return errors.New("uri is required")
	}
	if c.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

func (c *GatewaysConfig) Validate() error {
	if c.RequestTimeout < 10*time.Second || c.RequestTimeout > 30*time.Second {
		return errors.New("request_timeout must be between 10s and 30s")
	}
	if c.Flutterwave.SecretKey == "" {
		return errors.New("flutterwave secret_key is required")
	}
	if c.Flutterwave.SecretHash == "" {
		return errors.New("flutterwave secret_hash is required")
	}
	if c.Paystack.SecretKey == "" {
		return errors.New("paystack secret_key is required")
	}
	return nil
}

func (c *BrevoConfig) Validate() error {
	if c.APIKey == "" {
		return errors.New("api_key is required")
	}
	if c.SenderEmail == "" {
		return errors.New("sender_email is required")
	}
	return nil
}
