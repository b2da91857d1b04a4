package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config хранит все настройки приложения
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Bus       BusConfig       `mapstructure:"bus"`
	Game      GameConfig      `mapstructure:"game"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Report    ReportConfig    `mapstructure:"report"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
}

// ServerConfig содержит настройки HTTP сервера
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	ReadTimeout    int      `mapstructure:"read_timeout"`  // секунды
	WriteTimeout   int      `mapstructure:"write_timeout"` // секунды
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatabaseConfig содержит настройки подключения к PostgreSQL.
// Driver "memory" держит все в памяти процесса (демо и тесты).
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	// MigrationsPath - каталог SQL-миграций для golang-migrate
	MigrationsPath string `mapstructure:"migrations_path"`

	MaxOpenConns       int `mapstructure:"max_open_conns"`
	MaxIdleConns       int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeMin int `mapstructure:"conn_max_lifetime_min"`
}

// RedisConfig содержит унифицированные настройки подключения к Redis
// Поддерживает режимы: single, sentinel, cluster
type RedisConfig struct {
	// Mode: Режим работы Redis ("single", "sentinel", "cluster"). По умолчанию "single".
	Mode string `mapstructure:"mode"`

	// Addrs: Список адресов Redis (хост:порт). Используется для всех режимов.
	Addrs []string `mapstructure:"addrs"`

	// Addr: Альтернативный адрес для режима 'single'.
	Addr string `mapstructure:"addr"`

	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// MasterName: Имя мастер-сервера Redis (только для режима "sentinel")
	MasterName string `mapstructure:"master_name"`

	// MaxRetries: Максимальное количество попыток переподключения (-1 - бесконечно).
	MaxRetries int `mapstructure:"max_retries"`

	// MinRetryBackoff: Минимальный интервал между попытками (в миллисекундах).
	MinRetryBackoff int `mapstructure:"min_retry_backoff"`

	// MaxRetryBackoff: Максимальный интервал между попытками (в миллисекундах).
	MaxRetryBackoff int `mapstructure:"max_retry_backoff"`
}

// Enabled сообщает, задан ли адрес Redis
func (r RedisConfig) Enabled() bool {
	return len(r.Addrs) > 0 || r.Addr != ""
}

// NATSConfig содержит настройки подключения к NATS
type NATSConfig struct {
	URL             string `mapstructure:"url"`
	SubjectPrefix   string `mapstructure:"subject_prefix"`
	MaxReconnects   int    `mapstructure:"max_reconnects"`
	ReconnectWaitMs int    `mapstructure:"reconnect_wait_ms"`
}

// ReconnectWait возвращает паузу между переподключениями
func (n NATSConfig) ReconnectWait() time.Duration {
	return time.Duration(n.ReconnectWaitMs) * time.Millisecond
}

// Драйверы шины событий между экземплярами
const (
	BusDriverNone  = "none"
	BusDriverRedis = "redis"
	BusDriverNATS  = "nats"
)

// BusConfig выбирает шину событий
type BusConfig struct {
	Driver        string `mapstructure:"driver"`
	ChannelPrefix string `mapstructure:"channel_prefix"`
}

// GameConfig содержит параметры игрового цикла
type GameConfig struct {
	AutoLockGraceMs           int `mapstructure:"auto_lock_grace_ms"`
	DefaultTimeLimitSec       int `mapstructure:"default_time_limit_sec"`
	PresenceTTLSec            int `mapstructure:"presence_ttl_sec"`
	RankingPageSize           int `mapstructure:"ranking_page_size"`
	StateBroadcastIntervalSec int `mapstructure:"state_broadcast_interval_sec"`
	CommandBuffer             int `mapstructure:"command_buffer"`
}

// AuthConfig содержит настройки билетов и ключа оператора
type AuthConfig struct {
	TicketSecret string `mapstructure:"ticket_secret"`
	TicketTTLMin int    `mapstructure:"ticket_ttl_min"`
	// AdminKeyHash - bcrypt-хеш ключа оператора. Пусто - админ-поверхность открыта.
	AdminKeyHash string `mapstructure:"admin_key_hash"`
}

// TicketTTL возвращает время жизни билета
func (a AuthConfig) TicketTTL() time.Duration {
	return time.Duration(a.TicketTTLMin) * time.Minute
}

// ReportConfig содержит настройки отправки итогов
type ReportConfig struct {
	ResendAPIKey string   `mapstructure:"resend_api_key"`
	From         string   `mapstructure:"from"`
	Recipients   []string `mapstructure:"recipients"`
}

// WebSocketConfig содержит настройки WebSocket-подсистемы
type WebSocketConfig struct {
	ClientSendBuffer     int `mapstructure:"client_send_buffer"`
	PingIntervalSec      int `mapstructure:"ping_interval_sec"`
	PongWaitSec          int `mapstructure:"pong_wait_sec"`
	MaxMessageSize       int `mapstructure:"max_message_size"`
	CleanupIntervalSec   int `mapstructure:"cleanup_interval_sec"`
	InactivityTimeoutSec int `mapstructure:"inactivity_timeout_sec"`
}

// PostgresConnectionString формирует строку подключения к PostgreSQL
func (d *DatabaseConfig) PostgresConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// ConnMaxLifetime - время жизни соединения пула
func (d *DatabaseConfig) ConnMaxLifetime() time.Duration {
	return time.Duration(d.ConnMaxLifetimeMin) * time.Minute
}

func setDefaults(vip *viper.Viper) {
	vip.SetDefault("server.port", "8080")
	vip.SetDefault("server.read_timeout", 15)
	vip.SetDefault("server.write_timeout", 15)
	vip.SetDefault("server.allowed_origins", []string{"http://localhost:5173", "http://localhost:3000"})

	vip.SetDefault("database.driver", "postgres")
	vip.SetDefault("database.port", "5432")
	vip.SetDefault("database.sslmode", "disable")
	vip.SetDefault("database.migrations_path", "migrations")
	vip.SetDefault("database.max_open_conns", 25)
	vip.SetDefault("database.max_idle_conns", 10)
	vip.SetDefault("database.conn_max_lifetime_min", 60)

	vip.SetDefault("redis.mode", "single")

	vip.SetDefault("nats.subject_prefix", "quiz")
	vip.SetDefault("nats.max_reconnects", -1)
	vip.SetDefault("nats.reconnect_wait_ms", 2000)

	vip.SetDefault("bus.driver", BusDriverNone)
	vip.SetDefault("bus.channel_prefix", "quiz:")

	vip.SetDefault("game.auto_lock_grace_ms", 1000)
	vip.SetDefault("game.default_time_limit_sec", 10)
	vip.SetDefault("game.presence_ttl_sec", 30)
	vip.SetDefault("game.ranking_page_size", 10)
	vip.SetDefault("game.state_broadcast_interval_sec", 0)
	vip.SetDefault("game.command_buffer", 64)

	vip.SetDefault("auth.ticket_ttl_min", 720)

	vip.SetDefault("websocket.client_send_buffer", 128)
	vip.SetDefault("websocket.ping_interval_sec", 27)
	vip.SetDefault("websocket.pong_wait_sec", 30)
	vip.SetDefault("websocket.max_message_size", 2048)
	vip.SetDefault("websocket.cleanup_interval_sec", 60)
	vip.SetDefault("websocket.inactivity_timeout_sec", 120)
}

// Load загружает конфигурацию из файла
func Load(configPath string) (*Config, error) {
	vip := viper.New() // Используем новый экземпляр Viper, чтобы избежать глобального состояния

	// 1. Значения по умолчанию
	setDefaults(vip)

	// 2. Привязываем переменные окружения ЯВНО
	vip.BindEnv("server.port", "SERVER_PORT")
	vip.BindEnv("server.allowed_origins", "SERVER_ALLOWED_ORIGINS")

	vip.BindEnv("database.driver", "DATABASE_DRIVER")
	vip.BindEnv("database.host", "DATABASE_HOST")
	vip.BindEnv("database.port", "DATABASE_PORT")
	vip.BindEnv("database.user", "DATABASE_USER")
	vip.BindEnv("database.password", "DATABASE_PASSWORD")
	vip.BindEnv("database.dbname", "DATABASE_DBNAME")
	vip.BindEnv("database.sslmode", "DATABASE_SSLMODE")
	vip.BindEnv("database.migrations_path", "DATABASE_MIGRATIONS_PATH")
	vip.BindEnv("database.max_open_conns", "DATABASE_MAX_OPEN_CONNS")

	vip.BindEnv("redis.mode", "REDIS_MODE")
	vip.BindEnv("redis.addrs", "REDIS_ADDRS")
	vip.BindEnv("redis.addr", "REDIS_ADDR")
	vip.BindEnv("redis.password", "REDIS_PASSWORD")
	vip.BindEnv("redis.db", "REDIS_DB")
	vip.BindEnv("redis.master_name", "REDIS_MASTER_NAME")

	vip.BindEnv("nats.url", "NATS_URL")
	vip.BindEnv("nats.subject_prefix", "NATS_SUBJECT_PREFIX")

	vip.BindEnv("bus.driver", "BUS_DRIVER")

	vip.BindEnv("auth.ticket_secret", "AUTH_TICKET_SECRET")
	vip.BindEnv("auth.admin_key_hash", "AUTH_ADMIN_KEY_HASH")

	vip.BindEnv("report.resend_api_key", "RESEND_API_KEY")
	vip.BindEnv("report.from", "REPORT_FROM")
	vip.BindEnv("report.recipients", "REPORT_RECIPIENTS")

	// 3. Файл конфигурации (не страшно, если его нет, т.к. есть BindEnv)
	if configPath != "" {
		vip.SetConfigFile(configPath)
		if err := vip.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok || os.IsNotExist(err) {
				log.Printf("Файл конфигурации '%s' не найден, используются переменные окружения/умолчания.", configPath)
			} else {
				log.Printf("Предупреждение: не удалось прочитать файл конфигурации '%s': %v", configPath, err)
			}
		}
	}

	// 4. Анмаршалим конфигурацию (Viper объединит значения из файла и привязанных env vars)
	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Списки из env приходят одной строкой через запятую
	cfg.Server.AllowedOrigins = splitList(cfg.Server.AllowedOrigins)
	cfg.Redis.Addrs = splitList(cfg.Redis.Addrs)
	cfg.Report.Recipients = splitList(cfg.Report.Recipients)

	// 5. Логирование конфигурации (только в debug режиме)
	if os.Getenv("GIN_MODE") != "release" {
		log.Printf("--- Загруженные значения конфигурации ---")
		log.Printf("Database Driver: %s", cfg.Database.Driver)
		log.Printf("Database Host: %s", cfg.Database.Host)
		log.Printf("Database Name: %s", cfg.Database.DBName)
		log.Printf("Redis Addrs: %v (mode %s)", cfg.Redis.Addrs, cfg.Redis.Mode)
		log.Printf("Bus Driver: %s", cfg.Bus.Driver)
		log.Printf("NATS URL: %s", cfg.NATS.URL)
		log.Printf("Admin Key Set: %t", cfg.Auth.AdminKeyHash != "")
		log.Printf("Server Port: %s", cfg.Server.Port)
		log.Printf("-----------------------------------------")
	}

	// 6. Проверка обязательных параметров
	if err := cfg.Validate(os.Getenv("GIN_MODE")); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate проверяет согласованность настроек
func (c *Config) Validate(ginMode string) error {
	switch c.Database.Driver {
	case "memory":
	case "postgres":
		if c.Database.Host == "" || c.Database.DBName == "" || c.Database.User == "" {
			return fmt.Errorf("database configuration (host, dbname, user) is incomplete in config (check DATABASE_HOST, DATABASE_DBNAME, DATABASE_USER env vars)")
		}
	default:
		return fmt.Errorf("unsupported database driver %q (memory|postgres)", c.Database.Driver)
	}

	switch c.Bus.Driver {
	case BusDriverNone:
	case BusDriverRedis:
		if !c.Redis.Enabled() {
			return fmt.Errorf("bus driver redis requires redis.addrs or redis.addr")
		}
	case BusDriverNATS:
		if c.NATS.URL == "" {
			return fmt.Errorf("bus driver nats requires nats.url (check NATS_URL env var)")
		}
	default:
		return fmt.Errorf("unsupported bus driver %q (none|redis|nats)", c.Bus.Driver)
	}

	if c.Game.DefaultTimeLimitSec <= 0 {
		return fmt.Errorf("game.default_time_limit_sec must be positive")
	}
	if c.Game.PresenceTTLSec <= 0 {
		return fmt.Errorf("game.presence_ttl_sec must be positive")
	}
	if c.Game.AutoLockGraceMs < 0 {
		return fmt.Errorf("game.auto_lock_grace_ms must not be negative")
	}

	if ginMode != "debug" && ginMode != "" && c.Auth.TicketSecret == "" {
		return fmt.Errorf("ticket secret is required outside debug mode (check AUTH_TICKET_SECRET env var)")
	}
	if ginMode == "release" && c.Database.Driver == "postgres" && c.Database.Password == "" {
		return fmt.Errorf("database password is required in production mode (check DATABASE_PASSWORD env var)")
	}
	if ginMode == "release" && c.Auth.AdminKeyHash == "" {
		log.Println("Warning: auth.admin_key_hash is empty, admin surface is open.")
	}
	return nil
}

func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
