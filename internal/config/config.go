package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type Config struct {
	RedisHost string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort uint16 `env:"REDIS_PORT" envDefault:"6379" validate:"min=1000,max=65535"`

	PostgresHost     string `env:"POSTGRES_HOST"     envDefault:"localhost"`
	PostgresPort     string `env:"POSTGRES_PORT"     envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER"     envDefault:"relay_user"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" envDefault:"relay_password"`
	PostgresDb       string `env:"POSTGRES_DB"       envDefault:"relay_db"`
	PostgresSSLMode  string `env:"POSTGRES_SSLMODE"  envDefault:"disable" validate:"oneof=disable allow prefer require verify-ca verify-full"`
	PostgresMaxConns int    `env:"POSTGRES_MAX_CONNS" envDefault:"20"     validate:"min=1"`

	SecretKey  string        `env:"SECRET_KEY,required" validate:"min=16"`
	TokenTTL   time.Duration `env:"TOKEN_TTL"   envDefault:"24h" validate:"gt=0"`
	BcryptCost int           `env:"BCRYPT_COST" envDefault:"10"  validate:"min=4,max=31"`

	CorsAllow []string `env:"CORS_ALLOW" envDefault:"*" envSeparator:","`

	WsSendBuffer     int           `env:"WS_SEND_BUFFER"      envDefault:"256"  validate:"min=1"`
	WsMaxMessageSize int64         `env:"WS_MAX_MESSAGE_SIZE" envDefault:"4096" validate:"min=64"`
	WsPingPeriod     time.Duration `env:"WS_PING_PERIOD"      envDefault:"30s"  validate:"min=0"`
	WsIdleTimeout    time.Duration `env:"WS_IDLE_TIMEOUT"     envDefault:"0s"   validate:"min=0"`

	PresenceSyncInterval time.Duration `env:"PRESENCE_SYNC_INTERVAL" envDefault:"10s" validate:"gt=0"`

	HttpServerPort uint16 `env:"HTTP_SERVER_PORT" envDefault:"3000" validate:"min=1000,max=65535"`
}

func LoadConfig() (*Config, error) {
	// Load environment variables from .env file
	err := godotenv.Load(".env")
	if err != nil {
		zap.L().Debug(".env file not found", zap.Error(err))
	}

	cfg := &Config{}
	// Parse config from environment variables
	if err = env.Parse(cfg); err != nil {
		zap.L().Error("config_load_failed", zap.Error(err))
		return nil, err
	}

	// Validate the config
	validate := validator.New()
	err = validate.Struct(cfg)
	if err != nil {
		zap.L().Error("config_validation_failed", zap.Error(err))
		return nil, err
	}
	return cfg, nil
}
