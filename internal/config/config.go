package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

const (
	AppName     = "curio"
	EnvFileName = "config.env"
)

// LoadEnvFile loads environment variables from the config file in the user's
// config directory. Errors are ignored since the file may not exist.
func LoadEnvFile() {
	configBase, err := os.UserConfigDir()
	if err != nil {
		return
	}
	configPath := filepath.Join(configBase, AppName, EnvFileName)
	_ = godotenv.Load(configPath)
}

// Config holds all runtime configuration.
type Config struct {
	// DBPath is the SQLite database file path.
	DBPath string
	// ImageKey is the passphrase for image-at-rest encryption.
	ImageKey string
	// TokenSecret signs session tokens. Defaults to ImageKey when unset.
	TokenSecret string
}

// CheckRequired returns the names of required environment variables that are
// not set.
func CheckRequired() []string {
	var missing []string
	for _, name := range []string{"GEMINI_API_KEY", "CURIO_IMAGE_KEY"} {
		if os.Getenv(name) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

// Load reads configuration from the environment. Call CheckRequired first.
func Load() Config {
	cfg := Config{
		DBPath:      os.Getenv("CURIO_DB_PATH"),
		ImageKey:    os.Getenv("CURIO_IMAGE_KEY"),
		TokenSecret: os.Getenv("CURIO_TOKEN_SECRET"),
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "curio.db"
	}
	if cfg.TokenSecret == "" {
		cfg.TokenSecret = cfg.ImageKey
	}
	return cfg
}
