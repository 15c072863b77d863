package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig настройки HTTP-сервера
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// DBConfig настройки базы данных
type DBConfig struct {
	Driver        string        `mapstructure:"driver"` // postgres | sqlite
	Host          string        `mapstructure:"host"`
	Port          int           `mapstructure:"port"`
	User          string        `mapstructure:"user"`
	Password      string        `mapstructure:"password"`
	DBName        string        `mapstructure:"name"`
	SQLitePath    string        `mapstructure:"sqlite_path"`
	MigrationsDir string        `mapstructure:"migrations_dir"`
	MaxIdleConns  int           `mapstructure:"max_idle_conns"`
	MaxOpenConns  int           `mapstructure:"max_open_conns"`
	ConnMaxLife   time.Duration `mapstructure:"conn_max_lifetime"`
	LogSQL        bool          `mapstructure:"log_sql"`
}

// JWTConfig настройки токенов
type JWTConfig struct {
	SecretKey string `mapstructure:"secret_key"`
	ExpiresIn int    `mapstructure:"expires_in"` // в часах
}

// LedgerConfig настройки ядра операций с картами
type LedgerConfig struct {
	TransferAttempts int           `mapstructure:"transfer_attempts"`
	StoreTimeout     time.Duration `mapstructure:"store_timeout"`
	RetryBackoff     time.Duration `mapstructure:"retry_backoff"`
}

// LogConfig настройки логирования
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Dir        string `mapstructure:"dir"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Stdout     bool   `mapstructure:"stdout"`
}

// SMTPConfig настройки почтовых уведомлений
type SMTPConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// RedisConfig настройки Redis для ключей идемпотентности
type RedisConfig struct {
	Addr           string        `mapstructure:"addr"`
	Password       string        `mapstructure:"password"`
	DB             int           `mapstructure:"db"`
	IdempotencyTTL time.Duration `mapstructure:"idempotency_ttl"`
}

// RateLimitConfig настройки ограничения частоты запросов
type RateLimitConfig struct {
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// AdminConfig учетная запись администратора, создаваемая при старте.
// Пустой email отключает создание.
type AdminConfig struct {
	Name     string `mapstructure:"name"`
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
}

// Config представляет конфигурацию приложения
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	DB        DBConfig        `mapstructure:"db"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Log       LogConfig       `mapstructure:"log"`
	SMTP      SMTPConfig      `mapstructure:"smtp"`
	Redis     RedisConfig     `mapstructure:"redis"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Admin     AdminConfig     `mapstructure:"admin"`
}

func setDefaults(v *viper.Viper) {
	// Настройки сервера
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.cleanup_interval", 5*time.Minute)

	// Настройки базы данных
	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "postgres")
	v.SetDefault("db.name", "bank_cards")
	v.SetDefault("db.sqlite_path", "bankcards.db")
	v.SetDefault("db.migrations_dir", "migrations")
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.max_open_conns", 100)
	v.SetDefault("db.conn_max_lifetime", time.Hour)
	v.SetDefault("db.log_sql", false)

	// Настройки JWT
	v.SetDefault("jwt.secret_key", "your-secret-key-here")
	v.SetDefault("jwt.expires_in", 24)

	// Настройки переводов
	v.SetDefault("ledger.transfer_attempts", 10)
	v.SetDefault("ledger.store_timeout", 5*time.Second)
	v.SetDefault("ledger.retry_backoff", 5*time.Millisecond)

	// Настройки логов
	v.SetDefault("log.level", "info")
	v.SetDefault("log.dir", "logs")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.stdout", true)

	// Настройки SMTP
	v.SetDefault("smtp.enabled", false)
	v.SetDefault("smtp.host", "smtp.gmail.com")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "noreply@bankcards.local")

	// Настройки Redis
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.idempotency_ttl", 24*time.Hour)

	// Ограничение частоты запросов
	v.SetDefault("rate_limit.requests", 100)
	v.SetDefault("rate_limit.window", time.Minute)

	// Начальный администратор
	v.SetDefault("admin.name", "Administrator")
	v.SetDefault("admin.email", "")
	v.SetDefault("admin.password", "")
}

// NewConfig создает новый экземпляр конфигурации:
// значения по умолчанию, затем config.yaml, затем переменные окружения
func NewConfig() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := os.Getenv("BANKCARDS_CONFIG"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет согласованность настроек
func (c *Config) Validate() error {
	switch c.DB.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported db driver %q", c.DB.Driver)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Ledger.TransferAttempts < 1 {
		return fmt.Errorf("ledger.transfer_attempts must be at least 1")
	}
	if c.Ledger.StoreTimeout <= 0 {
		return fmt.Errorf("ledger.store_timeout must be positive")
	}
	if c.JWT.SecretKey == "" {
		return fmt.Errorf("jwt.secret_key must not be empty")
	}
	if c.Admin.Email != "" && c.Admin.Password == "" {
		return fmt.Errorf("admin.password must be set together with admin.email")
	}
	return nil
}

// PostgresDSN возвращает строку подключения для gorm
func (c DBConfig) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.DBName)
}

// MigrationURL возвращает URL для golang-migrate
func (c DBConfig) MigrationURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User, c.Password, c.Host, c.Port, c.DBName)
}
