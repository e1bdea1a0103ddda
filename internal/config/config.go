package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	HTTP       HTTPConfig       `mapstructure:"http"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
	Logger     LoggerConfig     `mapstructure:"logger"`
	Pagination PaginationConfig `mapstructure:"pagination"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Events     EventsConfig     `mapstructure:"events"`
	CORS       CORSConfig       `mapstructure:"cors"`
}

type HTTPConfig struct {
	Port    int           `mapstructure:"port"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	Migrate  bool   `mapstructure:"migrate"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Endpoint    string `mapstructure:"endpoint"`
	ServiceName string `mapstructure:"service_name"`
	Environment string `mapstructure:"environment"`
	Version     string `mapstructure:"version"`
}

type LoggerConfig struct {
	Level  string       `mapstructure:"level"`
	Fluent FluentConfig `mapstructure:"fluent"`
}

type FluentConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	Tag     string `mapstructure:"tag"`
	Level   string `mapstructure:"level"`
}

type PaginationConfig struct {
	PageSize    int `mapstructure:"page_size"`
	MaxPageSize int `mapstructure:"max_page_size"`
}

type AuthConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	JWTSecret string `mapstructure:"jwt_secret"`
	// Capabilities maps a capability name to the roles that grant it.
	Capabilities map[string][]string `mapstructure:"capabilities"`
}

type EventsConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.timeout", "10s")
	v.SetDefault("database.port", "3306")
	v.SetDefault("database.migrate", true)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.ttl", "10m")
	v.SetDefault("tracing.service_name", "advertisement-service")
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.fluent.port", 24224)
	v.SetDefault("logger.fluent.tag", "advertisement-service")
	v.SetDefault("pagination.page_size", 10)
	v.SetDefault("pagination.max_page_size", 100)
	v.SetDefault("auth.capabilities", map[string]interface{}{
		"advertisement_show": []string{"ROLE_ADMIN"},
	})
	v.SetDefault("events.exchange", "advertisements")
	v.SetDefault("cors.allowed_origins", []string{"*"})
}

// LoadConfig reads config.yaml from the working directory, or the file named by
// CONFIG_PATH. Environment variables override file values: DATABASE_HOST for
// database.host and so on.
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(os.Getenv("CONFIG_PATH"))
}

func LoadConfigFrom(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".") // if its current directory
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func MustLoadConfig() *Config {
	config, err := LoadConfig()
	if err != nil {
		log.Fatalf("Could not load configuration: %v", err)
	}
	return config
}
