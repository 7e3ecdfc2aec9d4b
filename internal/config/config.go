package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

// Queue backends
const (
	QueueBackendMemory   = "memory"
	QueueBackendRedis    = "redis"
	QueueBackendRabbitMQ = "rabbitmq"
)

// Config represents the complete application configuration
type Config struct {
	App      AppConfig      `yaml:"app"`
	Logging  LoggingConfig  `yaml:"logging"`
	Telegram TelegramConfig `yaml:"telegram"`
	Ranking  RankingConfig  `yaml:"ranking"`
	Queue    QueueConfig    `yaml:"queue"`
	Worker   WorkerConfig   `yaml:"worker"`
	Server   ServerConfig   `yaml:"server"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	Output       string `yaml:"output"`
	EnableCaller bool   `yaml:"enable_caller"`
}

// TelegramConfig holds bot credentials and polling settings
type TelegramConfig struct {
	Token       string        `yaml:"token"`
	PollTimeout time.Duration `yaml:"poll_timeout"`
}

// RankingConfig holds the ranking API client configuration
type RankingConfig struct {
	BaseURL           string        `yaml:"base_url"`
	Username          string        `yaml:"username"`
	Password          string        `yaml:"password"`
	LocationCode      int           `yaml:"location_code"`
	LanguageCode      string        `yaml:"language_code"`
	Depth             int           `yaml:"depth"`
	Timeout           time.Duration `yaml:"timeout"`
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
	RateLimit         float64       `yaml:"rate_limit"`
	RateBurst         int           `yaml:"rate_burst"`
}

// QueueConfig selects and configures the job queue backend
type QueueConfig struct {
	Backend  string         `yaml:"backend"`
	Redis    RedisConfig    `yaml:"redis"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
}

// RedisConfig holds Redis list queue configuration
type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	Key      string `yaml:"key"`
}

// RabbitMQConfig holds RabbitMQ connection and exchange/queue configuration
type RabbitMQConfig struct {
	Host       string           `yaml:"host"`
	Port       int              `yaml:"port"`
	User       string           `yaml:"user"`
	Password   string           `yaml:"password"`
	VHost      string           `yaml:"vhost"`
	Exchange   ExchangeConfig   `yaml:"exchange"`
	Queue      BrokerQueue      `yaml:"queue"`
	RoutingKey string           `yaml:"routing_key"`
	Connection ConnectionConfig `yaml:"connection"`
	Publish    PublishConfig    `yaml:"publish"`
}

// ExchangeConfig holds RabbitMQ exchange configuration
type ExchangeConfig struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
}

// BrokerQueue holds RabbitMQ queue configuration
type BrokerQueue struct {
	Name       string `yaml:"name"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
}

// ConnectionConfig holds RabbitMQ connection settings
type ConnectionConfig struct {
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryInterval time.Duration `yaml:"retry_interval"`
	Heartbeat     time.Duration `yaml:"heartbeat"`
}

// PublishConfig holds RabbitMQ publish retry settings
type PublishConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
}

// WorkerConfig holds job worker configuration
type WorkerConfig struct {
	PollInterval    time.Duration `yaml:"poll_interval"`
	JobTimeout      time.Duration `yaml:"job_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	TrackerCapacity int           `yaml:"tracker_capacity"`
}

// ServerConfig holds the ops HTTP server configuration
type ServerConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Load reads and parses the configuration file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.SetDefaults()

	return &config, nil
}

// SetDefaults fills zero values with the defaults the bot runs with
func (c *Config) SetDefaults() {
	if c.App.Name == "" {
		c.App.Name = "rankbot"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	if c.Telegram.PollTimeout == 0 {
		c.Telegram.PollTimeout = 10 * time.Second
	}

	r := &c.Ranking
	if r.BaseURL == "" {
		r.BaseURL = "https://api.dataforseo.com"
	}
	if r.LocationCode == 0 {
		r.LocationCode = 2376
	}
	if r.LanguageCode == "" {
		r.LanguageCode = "vi"
	}
	if r.Depth == 0 {
		r.Depth = 10
	}
	if r.Timeout == 0 {
		r.Timeout = 10 * time.Second
	}
	if r.RetryInterval == 0 {
		r.RetryInterval = 500 * time.Millisecond
	}
	if r.BackoffMultiplier == 0 {
		r.BackoffMultiplier = 2.0
	}
	if r.RateBurst == 0 {
		r.RateBurst = 1
	}

	if c.Queue.Backend == "" {
		c.Queue.Backend = QueueBackendMemory
	}
	if c.Queue.Redis.Key == "" {
		c.Queue.Redis.Key = "rankbot:jobs"
	}
	mq := &c.Queue.RabbitMQ
	if mq.Port == 0 {
		mq.Port = 5672
	}
	if mq.VHost == "" {
		mq.VHost = "/"
	}
	if mq.Exchange.Type == "" {
		mq.Exchange.Type = "direct"
	}
	if mq.Connection.RetryAttempts == 0 {
		mq.Connection.RetryAttempts = 5
	}
	if mq.Connection.RetryInterval == 0 {
		mq.Connection.RetryInterval = 2 * time.Second
	}

	w := &c.Worker
	if w.PollInterval == 0 {
		w.PollInterval = time.Second
	}
	if w.JobTimeout == 0 {
		w.JobTimeout = 15 * time.Second
	}
	if w.ShutdownTimeout == 0 {
		w.ShutdownTimeout = 30 * time.Second
	}
	if w.TrackerCapacity == 0 {
		w.TrackerCapacity = 1000
	}

	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
}

// ApplyEnv overrides secrets with values from the environment when set
func (c *Config) ApplyEnv() {
	overrides := []struct {
		key    string
		target *string
	}{
		{"BOT_TOKEN", &c.Telegram.Token},
		{"API_USERNAME", &c.Ranking.Username},
		{"API_PASSWORD", &c.Ranking.Password},
		{"REDIS_URL", &c.Queue.Redis.URL},
		{"REDIS_PASSWORD", &c.Queue.Redis.Password},
		{"RABBITMQ_PASSWORD", &c.Queue.RabbitMQ.Password},
	}

	for _, o := range overrides {
		if v := os.Getenv(o.key); v != "" {
			*o.target = v
		}
	}
}

// Validate checks everything the serve command needs
func (c *Config) Validate() error {
	if err := c.ValidateBotConfig(); err != nil {
		return err
	}
	if err := c.ValidateRankingConfig(); err != nil {
		return err
	}
	if err := c.ValidateQueueConfig(); err != nil {
		return err
	}
	if err := c.ValidateWorkerConfig(); err != nil {
		return err
	}
	return c.ValidateServerConfig()
}

// ValidateBotConfig checks the chat platform credentials
func (c *Config) ValidateBotConfig() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required (set BOT_TOKEN)")
	}
	return nil
}

// ValidateRankingConfig checks the ranking API credentials and limits
func (c *Config) ValidateRankingConfig() error {
	if c.Ranking.Username == "" {
		return fmt.Errorf("ranking api username is required (set API_USERNAME)")
	}

	if c.Ranking.Password == "" {
		return fmt.Errorf("ranking api password is required (set API_PASSWORD)")
	}

	if c.Ranking.Depth <= 0 {
		return fmt.Errorf("ranking depth must be greater than 0")
	}

	if c.Ranking.RetryAttempts < 0 {
		return fmt.Errorf("ranking retry_attempts must not be negative")
	}

	if c.Ranking.RateLimit < 0 {
		return fmt.Errorf("ranking rate_limit must not be negative")
	}

	return nil
}

// ValidateQueueConfig checks the selected queue backend
func (c *Config) ValidateQueueConfig() error {
	switch c.Queue.Backend {
	case QueueBackendMemory:
		return nil

	case QueueBackendRedis:
		if c.Queue.Redis.URL == "" {
			return fmt.Errorf("redis url is required for the redis queue backend")
		}
		return nil

	case QueueBackendRabbitMQ:
		mq := c.Queue.RabbitMQ
		if mq.Host == "" {
			return fmt.Errorf("rabbitmq host is required")
		}

		if mq.Port < MinPort || mq.Port > MaxPort {
			return fmt.Errorf("invalid rabbitmq port: %d (must be between %d and %d)", mq.Port, MinPort, MaxPort)
		}

		if mq.Exchange.Name == "" {
			return fmt.Errorf("rabbitmq exchange name is required")
		}

		if mq.Queue.Name == "" {
			return fmt.Errorf("rabbitmq queue name is required")
		}
		return nil

	default:
		return fmt.Errorf("unknown queue backend: %q", c.Queue.Backend)
	}
}

// ValidateWorkerConfig checks worker timings
func (c *Config) ValidateWorkerConfig() error {
	if c.Worker.PollInterval <= 0 {
		return fmt.Errorf("worker poll_interval must be greater than 0")
	}

	if c.Worker.JobTimeout <= 0 {
		return fmt.Errorf("worker job_timeout must be greater than 0")
	}

	if c.Worker.ShutdownTimeout <= 0 {
		return fmt.Errorf("worker shutdown_timeout must be greater than 0")
	}

	if c.Worker.TrackerCapacity <= 0 {
		return fmt.Errorf("worker tracker_capacity must be greater than 0")
	}

	return nil
}

// ValidateServerConfig checks the ops server settings when it is enabled
func (c *Config) ValidateServerConfig() error {
	if !c.Server.Enabled {
		return nil
	}

	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	return nil
}
