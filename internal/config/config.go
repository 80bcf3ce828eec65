package config

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type HTTPServer struct {
	Host string
	Port string
}

type RedisCache struct {
	Host     string
	Port     string
	Password string
}

// Enabled reports whether a Redis host was configured at all.
func (r RedisCache) Enabled() bool {
	return r.Host != ""
}

type Postgres struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type Voting struct {
	MaxDelta int
}

type Log struct {
	Level  string
	Format string
}

type CORS struct {
	Origins []string
}

type RateLimit struct {
	Max    int
	Window time.Duration
}

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

type Config struct {
	HTTP      HTTPServer
	Redis     RedisCache
	Postgres  Postgres
	Voting    Voting
	Log       Log
	CORS      CORS
	RateLimit RateLimit
	Storage   string
}

const logtag = "[config]"

func Load() *Config {
	configPath := flag.String("config", "", "path env file")
	flag.Parse()

	if *configPath != "" {
		if err := godotenv.Load(*configPath); err != nil {
			log.Fatalf("%s err loading env from file : %v", logtag, err)
		}
		log.Printf("%s using env from : %s", logtag, *configPath)
	} else {
		log.Printf("%s using env from .env", logtag)
		_ = godotenv.Load()
	}

	cfg := FromEnv()
	log.Printf("%s backend config : %+v\n", logtag, cfg)
	return cfg
}

// FromEnv builds the config from the current process environment only.
func FromEnv() *Config {
	return &Config{
		HTTP:      *newHTTP(),
		Redis:     *newRedis(),
		Postgres:  *newPostgres(),
		Voting:    *newVoting(),
		Log:       *newLog(),
		CORS:      *newCORS(),
		RateLimit: *newRateLimit(),
		Storage:   strings.ToLower(getenv("STORAGE", StorageMemory)),
	}
}

func newHTTP() *HTTPServer {
	return &HTTPServer{
		Port: getenv("HTTP_PORT", "8080"),
		Host: getenv("HTTP_HOST", "localhost"),
	}
}

func newRedis() *RedisCache {
	return &RedisCache{
		Port:     getenv("REDIS_PORT", "6379"),
		Host:     getenv("REDIS_HOST", ""),
		Password: getenv("REDIS_PASSWORD", ""),
	}
}

func newPostgres() *Postgres {
	return &Postgres{
		Host:     getenv("DB_HOST", "localhost"),
		Port:     getenv("DB_PORT", "5432"),
		User:     getenv("DB_USER", "admin"),
		Password: getenv("DB_PASSWORD", "shared"),
		DBName:   getenv("DB_NAME", "dinevote"),
		SSLMode:  getenv("DB_SSLMODE", "disable"),
	}
}

func newVoting() *Voting {
	maxDelta := getenvInt("VOTE_MAX_DELTA", 1)
	if maxDelta < 1 {
		maxDelta = 1
	}
	return &Voting{MaxDelta: maxDelta}
}

func newLog() *Log {
	return &Log{
		Level:  getenv("LOG_LEVEL", "info"),
		Format: getenv("LOG_FORMAT", "text"),
	}
}

func newCORS() *CORS {
	raw := getenv("CORS_ORIGINS", "http://localhost:3000")
	origins := make([]string, 0, 2)
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return &CORS{Origins: origins}
}

func newRateLimit() *RateLimit {
	window, err := time.ParseDuration(getenv("RATE_LIMIT_WINDOW", "1m"))
	if err != nil {
		window = time.Minute
	}
	return &RateLimit{
		Max:    getenvInt("RATE_LIMIT_MAX", 100),
		Window: window,
	}
}

func getenv(key, defaultValue string) string {
	val := os.Getenv(key)
	if val == "" {
		fmt.Printf("%s %s undefined. Using default value %s\n", logtag, key, defaultValue)
		return defaultValue
	}
	fmt.Printf("%s %s = %s\n", logtag, key, val)
	return val
}

func getenvInt(key string, defaultValue int) int {
	raw := getenv(key, strconv.Itoa(defaultValue))
	val, err := strconv.Atoi(raw)
	if err != nil {
		fmt.Printf("%s %s is not an int (%q). Using default value %d\n", logtag, key, raw, defaultValue)
		return defaultValue
	}
	return val
}
