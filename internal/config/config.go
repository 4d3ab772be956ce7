// Package config предоставялет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	// EnvLocal — окружение для локальной разработки.
	EnvLocal = "local"
	// EnvDev — тестовый стенд.
	EnvDev = "dev"
	// EnvProd — боевое окружение.
	EnvProd = "prod"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	Cache                   `yaml:"cache"`
	Guard                   `yaml:"guard"`
	RabbitMQ                `yaml:"rabbitmq"`
	Media                   `yaml:"media"`
	Scheduler               `yaml:"scheduler"`
	CORS                    `yaml:"cors"`
	RateLimit               `yaml:"rate_limit"`
	SMTP                    `yaml:"smtp"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env:"HTTP_ADDRESS" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env:"REDIS_ADDRESS"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
}

// JWTToken содержит секрет, которым платформа аутентификации подписывает токены сессий.
type JWTToken struct {
	JWTSecretKey string `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	Issuer       string `yaml:"issuer"`
}

// Cache настройки кеша: драйвер redis или memory и окно устаревания данных.
type Cache struct {
	Driver     string        `yaml:"driver" env:"CACHE_DRIVER" env-default:"redis"`
	TTL        time.Duration `yaml:"ttl" env-default:"5m"`
	MemorySize int           `yaml:"memory_size" env-default:"10000"`
}

// Guard задаёт, сколько запрос ждёт загрузки роли, прав и подписки.
type Guard struct {
	ResolveWait  time.Duration `yaml:"resolve_wait" env-default:"2s"`
	FetchTimeout time.Duration `yaml:"fetch_timeout" env-default:"10s"`
}

// RabbitMQ настройки публикации событий. Пустой URL отключает публикацию.
type RabbitMQ struct {
	URL        string        `yaml:"url" env:"RABBITMQ_URL"`
	Exchange   string        `yaml:"exchange" env-default:"notifications"`
	Retries    int           `yaml:"retries" env-default:"5"`
	RetryDelay time.Duration `yaml:"retry_delay" env-default:"2s"`
}

// Media настройки S3-совместимого хранилища картинок каталога.
type Media struct {
	Bucket        string `yaml:"bucket" env:"MEDIA_BUCKET"`
	Region        string `yaml:"region" env-default:"us-east-1"`
	Endpoint      string `yaml:"endpoint" env:"MEDIA_ENDPOINT"`
	AccessKey     string `yaml:"access_key" env:"MEDIA_ACCESS_KEY"`
	SecretKey     string `yaml:"secret_key" env:"MEDIA_SECRET_KEY"`
	UsePathStyle  bool   `yaml:"use_path_style"`
	PublicBaseURL string `yaml:"public_base_url"`
	MaxSizeBytes  int64  `yaml:"max_size_bytes" env-default:"5242880"`
}

// Scheduler настройки фоновых задач по подпискам.
type Scheduler struct {
	Spec           string        `yaml:"spec" env-default:"@every 1h"`
	ExpiringWithin time.Duration `yaml:"expiring_within" env-default:"72h"`
	MetricsAddress string        `yaml:"metrics_address" env:"SCHEDULER_METRICS_ADDRESS" env-default:":9091"`
}

// CORS список разрешённых источников для браузерного клиента.
type CORS struct {
	AllowedOrigins []string `yaml:"allowed_origins" env-default:"*"`
}

// RateLimit ограничение частоты запросов авторизованных пользователей.
type RateLimit struct {
	RPS   float64 `yaml:"rps" env-default:"10"`
	Burst int     `yaml:"burst" env-default:"20"`
}

// SMTP настройки почты для уведомлений администраторам.
type SMTP struct {
	SMTPHost string `yaml:"host" env:"SMTP_HOST"`
	SMTPPort string `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	SMTPUser string `yaml:"user" env:"SMTP_USER"`
	SMTPPass string `yaml:"password" env:"SMTP_PASSWORD"`
	// Workers — сколько писем отправляется одновременно из одной очереди.
	Workers int `yaml:"workers" env-default:"4"`
}

// MustLoad функция для загрузки конфига, путь к которому берётся из CONFIG_PATH
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

// Load читает конфиг из файла и переменных окружения.
func Load(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("file: %s - does not exist", configPath)
	}
	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  DB: %d\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"Cache:\n"+
			"  Driver: %s\n"+
			"  TTL: %s\n"+
			"Guard:\n"+
			"  ResolveWait: %s\n"+
			"  FetchTimeout: %s\n"+
			"Scheduler:\n"+
			"  Spec: %s\n",
		c.Env,
		c.AddressRedis,
		c.DB,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		c.Cache.Driver,
		c.Cache.TTL,
		c.ResolveWait,
		c.FetchTimeout,
		c.Spec,
	)
}
