package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Contact store backends.
const (
	StoreMongo     = "mongo"
	StoreFirestore = "firestore"
	StoreFile      = "file"
)

type Config struct {
	ServerAddress string
	LogLevel      string

	MongoURI     string
	MongoDB      string
	ContactStore string
	DataDir      string

	FirebaseProjectID       string
	FirebaseCredentialsJSON string
	JWTSecret               string
	StorageBucket           string

	SendGridAPIKey  string
	ShareFromEmail  string
	RecaptchaSecret string

	// RecaptchaMinScore applies to v3 tokens only.
	RecaptchaMinScore float64

	QRSize   int
	QRMargin int

	ScanFPS     int
	ScanQRBox   int
	ScanTimeout time.Duration

	DedupeOnWrite   bool
	AnonScanRPS     float64
	AnonScanBurst   int
	MaxUploadSizeMB int64
}

// Load reads .env (if present) and then the process environment.
func Load() *Config {
	_ = godotenv.Load()

	store := strings.ToLower(getEnv("CONTACT_STORE", ""))
	if store == "" {
		if os.Getenv("MONGO_URI") != "" {
			store = StoreMongo
		} else {
			store = StoreFile
		}
	}

	return &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),

		MongoURI:     getEnv("MONGO_URI", ""),
		MongoDB:      getEnv("MONGO_DB", "snapcard"),
		ContactStore: store,
		DataDir:      getEnv("DATA_DIR", "./data"),

		FirebaseProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseCredentialsJSON: getEnv("FIREBASE_CREDENTIALS_JSON", ""),
		JWTSecret:               getEnv("JWT_SECRET", ""),
		StorageBucket:           getEnv("STORAGE_BUCKET", ""),

		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		ShareFromEmail:    getEnv("SHARE_FROM_EMAIL", ""),
		RecaptchaSecret:   getEnv("RECAPTCHA_SECRET", ""),
		RecaptchaMinScore: getEnvFloat("RECAPTCHA_MIN_SCORE", 0.5),

		QRSize:   getEnvInt("QR_SIZE", 256),
		QRMargin: getEnvInt("QR_MARGIN", 4),

		ScanFPS:     getEnvInt("SCAN_FPS", 10),
		ScanQRBox:   getEnvInt("SCAN_QRBOX", 250),
		ScanTimeout: getEnvDuration("SCAN_TIMEOUT", 5*time.Second),

		DedupeOnWrite:   getEnvBool("CONTACTS_DEDUPE_ON_WRITE", false),
		AnonScanRPS:     getEnvFloat("ANON_SCAN_RPS", 1),
		AnonScanBurst:   getEnvInt("ANON_SCAN_BURST", 5),
		MaxUploadSizeMB: int64(getEnvInt("MAX_UPLOAD_MB", 10)),
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return strings.TrimSpace(value)
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return v
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return v
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return v
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("3s") or a bare number of seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return time.Duration(n) * time.Second
	}
	return defaultValue
}
