package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// StoreBackend selects the durable store implementation for drafts and the
// upload retry queue.
type StoreBackend string

const (
	BackendRedis  StoreBackend = "redis"
	BackendSQLite StoreBackend = "sqlite"
	BackendMySQL  StoreBackend = "mysql"
)

type Config struct {
	AppPort string

	// Remote loan-origination service.
	OriginationBaseURL string
	OriginationTimeout time.Duration

	StoreBackend StoreBackend
	SQLitePath   string

	MySQLHost string
	MySQLPort string
	MySQLDB   string
	MySQLUser string
	MySQLPass string

	RedisAddr string
	RedisDB   int

	IdempTTLSecs int

	// Customer-registration polling.
	DecisionMaxAttempts int
	DecisionPollDelay   time.Duration
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getint(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}

// LoadEnv pulls in a .env file if one exists; absence is not an error.
func LoadEnv() {
	_ = godotenv.Load()
}

func Load() *Config {
	return &Config{
		AppPort: getenv("APP_PORT", "8080"),

		OriginationBaseURL: getenv("ORIGINATION_BASE_URL", "http://localhost:9090"),
		OriginationTimeout: time.Duration(getint("ORIGINATION_TIMEOUT_SECONDS", 15)) * time.Second,

		StoreBackend: StoreBackend(getenv("STORE_BACKEND", string(BackendSQLite))),
		SQLitePath:   getenv("SQLITE_PATH", "intake.db"),

		MySQLHost: getenv("MYSQL_HOST", "mysql"),
		MySQLPort: getenv("MYSQL_PORT", "3306"),
		MySQLDB:   getenv("MYSQL_DB", "intake"),
		MySQLUser: getenv("MYSQL_USER", "intake"),
		MySQLPass: getenv("MYSQL_PASS", "intake"),

		RedisAddr: getenv("REDIS_ADDR", "redis:6379"),
		RedisDB:   getint("REDIS_DB", 0),

		IdempTTLSecs: getint("IDEMPOTENCY_TTL_SECONDS", 300),

		DecisionMaxAttempts: getint("DECISION_MAX_ATTEMPTS", 10),
		DecisionPollDelay:   time.Duration(getint("DECISION_POLL_DELAY_SECONDS", 3)) * time.Second,
	}
}

func (c *Config) Validate() error {
	if c.AppPort == "" {
		return errors.New("missing APP_PORT")
	}
	if c.OriginationBaseURL == "" {
		return errors.New("missing ORIGINATION_BASE_URL")
	}
	switch c.StoreBackend {
	case BackendRedis, BackendSQLite, BackendMySQL:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.StoreBackend == BackendMySQL {
		if c.MySQLHost == "" || c.MySQLPort == "" || c.MySQLDB == "" || c.MySQLUser == "" {
			return errors.New("missing MySQL config (MYSQL_HOST/PORT/DB/USER)")
		}
		if _, err := net.LookupPort("tcp", c.MySQLPort); err != nil {
			return fmt.Errorf("invalid MYSQL_PORT %q: %w", c.MySQLPort, err)
		}
	}
	return nil
}

func (c *Config) mysqlAddr() string { return net.JoinHostPort(c.MySQLHost, c.MySQLPort) }

func (c *Config) MySQLDSN() string {
	// parseTime needed for the DATETIME column in the kv table.
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?multiStatements=true&parseTime=true&charset=utf8mb4,utf8",
		c.MySQLUser, c.MySQLPass, c.mysqlAddr(), c.MySQLDB)
}
