package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment overrides
const (
	EnvUploadEndpoint = "SOUND_TRAINER_UPLOAD_ENDPOINT"
	EnvLanguage       = "SOUND_TRAINER_LANGUAGE"
	EnvHistoryDB      = "SOUND_TRAINER_HISTORY_DB"
)

// LoadEnv loads variables from the given .env files (".env" when none are
// given) without overriding variables already set. Missing files are ignored.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// ApplyEnv copies environment overrides into settings and returns the keys it changed
func ApplyEnv(s *Settings) []string {
	var applied []string
	if v := strings.TrimSpace(os.Getenv(EnvUploadEndpoint)); v != "" {
		s.SetUploadEndpoint(v)
		applied = append(applied, KeyUploadEndpoint)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLanguage)); v != "" {
		s.SetLanguage(v)
		applied = append(applied, KeyLanguage)
	}
	if v := strings.TrimSpace(os.Getenv(EnvHistoryDB)); v != "" {
		s.SetHistoryDBPath(v)
		applied = append(applied, KeyHistoryDBPath)
	}
	return applied
}
