package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Configはアプリ全体の設定
type Config struct {
	GoEnv string // dev/prod

	DatabaseURL      string // あれば最優先で使う接続文字列
	PostgresUser     string // DBユーザー
	PostgresPassword string // DBパスワード
	PostgresDB       string // DB名
	PostgresHost     string // DBホスト（localhost）
	PostgresPort     int    // DBポート（5432）
	PostgresSSLMode  string

	RedisAddr     string // 空ならインメモリキャッシュで動く
	RedisPassword string
	RedisDB       int

	KafkaBrokers    []string // 空ならイベント連携なしで動く
	StockTopic      string   // 在庫変動イベントの出力先
	OrderTopic      string   // 注文イベントの購読元
	ConsumerGroupID string

	ReservationTTL       time.Duration // 予約のデフォルト保持時間
	AvailabilityCacheTTL time.Duration
	OutOfStockCacheTTL   time.Duration
	MetricsCacheTTL      time.Duration
}

// Loadは環境変数から設定を組み立てる
func Load() (Config, error) {
	pgPort, err := getEnvAsInt("POSTGRES_PORT", 5432)
	if err != nil {
		return Config{}, err
	}
	redisDB, err := getEnvAsInt("REDIS_DB", 0)
	if err != nil {
		return Config{}, err
	}

	reservationTTL, err := getEnvAsSeconds("RESERVATION_TTL_SECONDS", 900)
	if err != nil {
		return Config{}, err
	}
	availabilityTTL, err := getEnvAsSeconds("AVAILABILITY_CACHE_TTL_SECONDS", 30)
	if err != nil {
		return Config{}, err
	}
	outOfStockTTL, err := getEnvAsSeconds("OUT_OF_STOCK_CACHE_TTL_SECONDS", 60)
	if err != nil {
		return Config{}, err
	}
	metricsTTL, err := getEnvAsSeconds("METRICS_CACHE_TTL_SECONDS", 300)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		GoEnv: getEnv("GO_ENV", "dev"),

		DatabaseURL:      os.Getenv("DATABASE_URL"),
		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     os.Getenv("POSTGRES_HOST"),
		PostgresPort:     pgPort,
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,

		KafkaBrokers:    splitAndTrim(os.Getenv("KAFKA_BROKERS")),
		StockTopic:      getEnv("KAFKA_STOCK_TOPIC", "inventory.stock"),
		OrderTopic:      getEnv("KAFKA_ORDER_TOPIC", "orders.events"),
		ConsumerGroupID: getEnv("KAFKA_CONSUMER_GROUP", "inventory-worker"),

		ReservationTTL:       reservationTTL,
		AvailabilityCacheTTL: availabilityTTL,
		OutOfStockCacheTTL:   outOfStockTTL,
		MetricsCacheTTL:      metricsTTL,
	}

	//必須チェック（DATABASE_URLがあれば個別のDB変数は不要）
	if cfg.DatabaseURL == "" {
		if cfg.PostgresUser == "" {
			return Config{}, fmt.Errorf("POSTGRES_USER is required")
		}
		if cfg.PostgresPassword == "" {
			return Config{}, fmt.Errorf("POSTGRES_PASSWORD is required")
		}
		if cfg.PostgresDB == "" {
			return Config{}, fmt.Errorf("POSTGRES_DB is required")
		}
		if cfg.PostgresHost == "" {
			return Config{}, fmt.Errorf("POSTGRES_HOST is required")
		}
	}

	return cfg, nil
}

func getEnv(key string, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getEnvAsInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func getEnvAsSeconds(key string, defSeconds int) (time.Duration, error) {
	i, err := getEnvAsInt(key, defSeconds)
	if err != nil {
		return 0, err
	}
	if i <= 0 {
		return 0, fmt.Errorf("%s must be > 0", key)
	}
	return time.Duration(i) * time.Second, nil
}

// カンマ区切りの環境変数をスライスへ（KAFKA_BROKERS=host1:9092,host2:9092）
func splitAndTrim(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
