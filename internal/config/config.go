// Package config предоставляет структуры и функцию для парсинга и загрузки конфига.
package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config общая структура для хранения настроек.
type Config struct {
	Env             string `yaml:"env" env:"ENV" env-default:"local"`
	HTTPServer      `yaml:"http_server"`
	Storage         `yaml:"storage"`
	RedisConnection `yaml:"redis_connection"`
	RabbitMQ        `yaml:"rabbitmq"`
	JWTToken        `yaml:"jwttoken"`
	Auth            `yaml:"auth"`
}

// HTTPServer структура для настройки сервера.
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"5s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// Storage структура для выбора и настройки хранилища аккаунтов.
// Driver: postgres или jsonfile.
type Storage struct {
	Driver           string        `yaml:"driver" env:"STORAGE_DRIVER" env-default:"postgres"`
	ConnectionString string        `yaml:"connection_string" env:"DATABASE_URL"`
	FilePath         string        `yaml:"file_path" env-default:"users.json"`
	ConnectRetries   int           `yaml:"connect_retries" env-default:"10"`
	ConnectDelay     time.Duration `yaml:"connect_delay" env-default:"3s"`
	MigrationsPath   string        `yaml:"migrations_path" env-default:"./migrations"`
}

// RedisConnection структура для настройки подключения к redis.
// Пустой адрес отключает redis (лимитер регистраций пропускает всех).
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env:"REDIS_ADDR"`
	Password     string        `yaml:"password"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries" env-default:"3"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env-default:"5s"`
	TimeoutRedis time.Duration `yaml:"timeoutredis" env-default:"3s"`
}

// RabbitMQ структура для настройки брокера событий безопасности.
// Пустой URL отключает публикацию событий.
type RabbitMQ struct {
	URL            string        `yaml:"url" env:"RABBITMQ_URL"`
	ConnectRetries int           `yaml:"connect_retries" env-default:"5"`
	ConnectDelay   time.Duration `yaml:"connect_delay" env-default:"2s"`
	RoutingKey     string        `yaml:"routing_key" env-default:"account.security"`
	QueueName      string        `yaml:"queue_name" env-default:"security_events"`
}

// JWTToken структура для работы с jwt-токеном.
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"168h"`
}

// Auth настройки аутентификации и регистрации.
type Auth struct {
	BcryptCost         int           `yaml:"bcrypt_cost" env:"BCRYPT_ROUNDS" env-default:"12"`
	RegistrationWindow time.Duration `yaml:"registration_window" env-default:"1h"`
	RegistrationLimit  int           `yaml:"registration_limit" env-default:"5"`
	BotScoreThreshold  int           `yaml:"bot_score_threshold" env-default:"60"`
	MinFormTime        time.Duration `yaml:"min_form_time" env-default:"5s"`
}

// MustLoad функция для загрузки конфига, завершает процесс при ошибке.
// Перед чтением YAML подхватывает .env, если он есть.
func MustLoad() *Config {
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return &cfg
}
