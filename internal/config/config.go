package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	RabbitMQ   RabbitMQConfig   `yaml:"rabbitmq"`
	LinkedIn   LinkedInConfig   `yaml:"linkedin"`
	Credential CredentialConfig `yaml:"credential"`
	Publish    PublishConfig    `yaml:"publish"`
	Report     ReportConfig     `yaml:"report"`
	LogLevel   string           `yaml:"log_level"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// RabbitMQConfig configures the optional lifecycle event publisher.
// An empty URL disables event publishing entirely.
type RabbitMQConfig struct {
	URL        string `yaml:"url"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key"`
	QueueName  string `yaml:"queue_name"`
}

type LinkedInConfig struct {
	ClientID     string        `yaml:"client_id"`
	ClientSecret string        `yaml:"client_secret"`
	AuthorURN    string        `yaml:"author_urn"`
	Scopes       string        `yaml:"scopes"`
	AuthBaseURL  string        `yaml:"auth_base_url"`
	APIBaseURL   string        `yaml:"api_base_url"`
	CallbackPort int           `yaml:"callback_port"`
	CallbackPath string        `yaml:"callback_path"`
	AuthTimeout  time.Duration `yaml:"auth_timeout"`
	HTTPTimeout  time.Duration `yaml:"http_timeout"`
}

// RedirectURI is the redirect_uri registered with the platform; it must
// match the local callback listener exactly.
func (l LinkedInConfig) RedirectURI() string {
	return fmt.Sprintf("http://localhost:%d%s", l.CallbackPort, l.CallbackPath)
}

type CredentialConfig struct {
	Path string `yaml:"path"`
}

type PublishConfig struct {
	InterPostDelay time.Duration `yaml:"inter_post_delay"`
	StaleClaimAge  time.Duration `yaml:"stale_claim_age"`
}

type ReportConfig struct {
	Interval time.Duration `yaml:"interval"`
}

func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	return &cfg, nil
}

// Validate checks fields the pipeline cannot default. It runs before any
// network activity so that configuration errors abort immediately.
func (c *Config) Validate() error {
	var errs []error
	if c.LinkedIn.ClientID == "" {
		errs = append(errs, errors.New("linkedin.client_id is required"))
	}
	if c.LinkedIn.ClientSecret == "" {
		errs = append(errs, errors.New("linkedin.client_secret is required"))
	}
	if c.LinkedIn.AuthorURN == "" {
		errs = append(errs, errors.New("linkedin.author_urn is required"))
	}
	return errors.Join(errs...)
}

func (c *Config) setDefaults() {
	if c.RabbitMQ.Exchange == "" {
		c.RabbitMQ.Exchange = "social_publisher"
	}
	if c.RabbitMQ.RoutingKey == "" {
		c.RabbitMQ.RoutingKey = "drafts"
	}
	if c.RabbitMQ.QueueName == "" {
		c.RabbitMQ.QueueName = "draft_events"
	}
	if c.LinkedIn.Scopes == "" {
		c.LinkedIn.Scopes = "w_member_social"
	}
	if c.LinkedIn.AuthBaseURL == "" {
		c.LinkedIn.AuthBaseURL = "https://www.linkedin.com/oauth/v2"
	}
	if c.LinkedIn.APIBaseURL == "" {
		c.LinkedIn.APIBaseURL = "https://api.linkedin.com/v2"
	}
	if c.LinkedIn.CallbackPort == 0 {
		c.LinkedIn.CallbackPort = 8914
	}
	if c.LinkedIn.CallbackPath == "" {
		c.LinkedIn.CallbackPath = "/callback"
	}
	if c.LinkedIn.AuthTimeout == 0 {
		c.LinkedIn.AuthTimeout = 5 * time.Minute
	}
	if c.LinkedIn.HTTPTimeout == 0 {
		c.LinkedIn.HTTPTimeout = 30 * time.Second
	}
	if c.Credential.Path == "" {
		c.Credential.Path = "credential.json"
	}
	if c.Publish.InterPostDelay == 0 {
		c.Publish.InterPostDelay = 30 * time.Second
	}
	if c.Publish.StaleClaimAge == 0 {
		c.Publish.StaleClaimAge = 15 * time.Minute
	}
	if c.Report.Interval == 0 {
		c.Report.Interval = 1 * time.Hour
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}
