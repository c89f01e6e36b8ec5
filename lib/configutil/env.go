package configutil

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// ErrMissingEnv is returned by RequireEnv when a variable is unset or blank.
var ErrMissingEnv = errors.New("environment variable not set")

// LoadEnv loads the given dotenv files (".env" when none are given) into the
// process environment. Variables that are already set are not overwritten
// and files that do not exist are skipped.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		err := godotenv.Load(p)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
		slog.Debug("loaded dotenv", "path", p)
	}
	return nil
}

// RequireEnv returns the trimmed value of an environment variable or an
// error wrapping ErrMissingEnv.
func RequireEnv(name string) (string, error) {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingEnv, name)
	}
	return value, nil
}
