package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     string
	Env      string
	DataFile string
	// BackupFile is the XLSX copy regenerated on every save; empty disables it.
	BackupFile     string
	AdminSecret    string
	UTCOffsetHours int
	DefaultLocale  string

	// MongoDB mirror; disabled when MongoURI is empty.
	MongoURI string
	MongoDB  string

	// Mattermost notifications; disabled when the token or channel is empty.
	MattermostURL       string
	AttendanceBotToken  string
	AttendanceChannelID string
}

// Load reads the configuration from the environment. Variables from envFiles
// (default ".env") fill in what the environment does not set; missing files are ignored.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	offset, err := strconv.Atoi(getEnv("SHIFT_UTC_OFFSET_HOURS", "2"))
	if err != nil || offset < -12 || offset > 14 {
		return nil, fmt.Errorf("SHIFT_UTC_OFFSET_HOURS: want an hour offset between -12 and 14, got %q", os.Getenv("SHIFT_UTC_OFFSET_HOURS"))
	}

	return &Config{
		Port:                getEnv("PORT", "3000"),
		Env:                 getEnv("ENV", "development"),
		DataFile:            getEnv("DATA_FILE", "attendance.csv"),
		BackupFile:          getEnv("BACKUP_FILE", "attendance_backup.xlsx"),
		AdminSecret:         getEnv("ADMIN_SECRET", ""),
		UTCOffsetHours:      offset,
		DefaultLocale:       getEnv("DEFAULT_LOCALE", "en"),
		MongoURI:            getEnv("MONGODB_URI", ""),
		MongoDB:             getEnv("MONGODB_DATABASE", "shiftlog"),
		MattermostURL:       strings.TrimRight(getEnv("MATTERMOST_URL", "http://localhost:8065"), "/"),
		AttendanceBotToken:  getEnv("ATTENDANCE_BOT_TOKEN", ""),
		AttendanceChannelID: getEnv("ATTENDANCE_CHANNEL_ID", ""),
	}, nil
}

// MirrorEnabled reports whether records are mirrored to MongoDB.
func (c *Config) MirrorEnabled() bool { return c.MongoURI != "" }

// NotifyEnabled reports whether transitions are posted to Mattermost.
func (c *Config) NotifyEnabled() bool {
	return c.AttendanceBotToken != "" && c.AttendanceChannelID != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
