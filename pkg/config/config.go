package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Flow       FlowConfig
	OpenSearch OpenSearchConfig
	Dashboards DashboardsConfig
	Redis      RedisConfig
	SQLite     SQLiteConfig
	LLM        LLMConfig
	Auth       AuthConfig
	RateLimit  RateLimitConfig
	Logging    LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
}

type FlowConfig struct {
	URL        string
	FlowID     string
	APIKey     string
	TimeoutSec int
	MaxRetries int
}

type OpenSearchConfig struct {
	Endpoint    string
	Username    string
	Password    string
	Index       string
	InsecureTLS bool
}

type DashboardsConfig struct {
	URL string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type SQLiteConfig struct {
	Path string
}

type LLMConfig struct {
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
	TimeoutSec  int
}

type AuthConfig struct {
	AdminUsername string
	AdminPassword string
	SessionTTLHrs int
	CookieName    string
	CookieSecure  bool
}

type RateLimitConfig struct {
	Enabled              bool
	MaxRequestsPerMinute int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/rag-chat")

	viper.SetEnvPrefix("RAG_CHAT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 30)
	viper.SetDefault("server.bodyLimit", 1048576)

	viper.SetDefault("flow.url", "http://localhost:7860")
	viper.SetDefault("flow.flowId", "")
	viper.SetDefault("flow.apiKey", "")
	viper.SetDefault("flow.timeoutSec", 60)
	viper.SetDefault("flow.maxRetries", 2)

	viper.SetDefault("opensearch.endpoint", "http://localhost:9200")
	viper.SetDefault("opensearch.username", "admin")
	viper.SetDefault("opensearch.password", "admin")
	viper.SetDefault("opensearch.index", "rag_analytics")
	viper.SetDefault("opensearch.insecureTLS", true)

	viper.SetDefault("dashboards.url", "http://localhost:5601")

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("sqlite.path", "./data/chat.db")

	viper.SetDefault("llm.model", "gpt-4o-mini")
	viper.SetDefault("llm.temperature", 0.1)
	viper.SetDefault("llm.maxTokens", 600)
	viper.SetDefault("llm.timeoutSec", 30)

	viper.SetDefault("auth.adminUsername", "admin")
	viper.SetDefault("auth.adminPassword", "admin")
	viper.SetDefault("auth.sessionTTLHrs", 24)
	viper.SetDefault("auth.cookieName", "admin_session")
	viper.SetDefault("auth.cookieSecure", false)

	viper.SetDefault("ratelimit.enabled", true)
	viper.SetDefault("ratelimit.maxRequestsPerMinute", 60)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
