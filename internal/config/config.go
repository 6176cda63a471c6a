package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr      string
	DBDSN         string
	MongoURI      string
	RedisAddr     string
	RabbitURL     string
	JWTSecret     string
	HoldTTL       time.Duration
	SweepInterval time.Duration
	SignupBonus   float64
	OTLPEndpoint  string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	holdTTL, _ := time.ParseDuration(os.Getenv("HOLD_TTL"))
	if holdTTL == 0 {
		holdTTL = 10 * time.Minute
	}
	sweep, _ := time.ParseDuration(os.Getenv("SWEEP_INTERVAL"))
	if sweep == 0 {
		sweep = 30 * time.Second
	}
	bonus, _ := strconv.ParseFloat(os.Getenv("SIGNUP_BONUS"), 64)
	if bonus == 0 {
		bonus = 1000.0
	}
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "dev-secret-change-me"
	}

	return &Config{
		HTTPAddr:      addr,
		DBDSN:         os.Getenv("DB_DSN"),
		MongoURI:      os.Getenv("MONGO_URI"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RabbitURL:     os.Getenv("RABBIT_URL"),
		JWTSecret:     secret,
		HoldTTL:       holdTTL,
		SweepInterval: sweep,
		SignupBonus:   bonus,
		OTLPEndpoint:  os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}, nil
}
