package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	ScrapeDelayMs     int
	MaxParallelSites  int
	MaxRetries        int
	ResultsPerSite    int
	RequestTimeoutSec int

	DarazMinPrice     float64
	DarazMaxPrice     float64
	SastoDealMinPrice float64
	SastoDealMaxPrice float64

	CSVOutputPath string
	APIListenAddr string
	ChromeBin     string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "scraper"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "scraper123"),
		PostgresDB:       getEnv("POSTGRES_DB", "pricetracker_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		ScrapeDelayMs:     getEnvInt("SCRAPE_DELAY_MS", 2000),
		MaxParallelSites:  getEnvInt("MAX_PARALLEL_SITES", 1),
		MaxRetries:        getEnvInt("MAX_RETRIES", 3),
		ResultsPerSite:    getEnvInt("RESULTS_PER_SITE", 15),
		RequestTimeoutSec: getEnvInt("REQUEST_TIMEOUT_SEC", 20),

		DarazMinPrice:     getEnvFloat("DARAZ_MIN_PRICE", 100),
		DarazMaxPrice:     getEnvFloat("DARAZ_MAX_PRICE", 5000000),
		SastoDealMinPrice: getEnvFloat("SASTODEAL_MIN_PRICE", 50),
		SastoDealMaxPrice: getEnvFloat("SASTODEAL_MAX_PRICE", 2000000),

		CSVOutputPath: getEnv("CSV_OUTPUT_PATH", "./output/products.csv"),
		APIListenAddr: getEnv("API_LISTEN_ADDR", ":8080"),
		ChromeBin:     getEnv("CHROME_BIN", ""),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err == nil {
			return f
		}
	}
	return fallback
}
