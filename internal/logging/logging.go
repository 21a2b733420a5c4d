package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Setup builds the process logger. Console output goes to stderr; when path is
// non-empty, JSON lines are also appended to that file. The returned cleanup
// closes the file.
func Setup(level string, path string) (zerolog.Logger, func(), error) {
	lvl := zerolog.InfoLevel
	if level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(level))
		if err == nil && parsed != zerolog.NoLevel {
			lvl = parsed
		}
	}

	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	writers := []io.Writer{console}
	cleanup := func() {}

	if path != "" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return zerolog.Nop(), nil, fmt.Errorf("create log dir: %w", err)
			}
		}
		file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("open log file: %w", err)
		}
		writers = append(writers, file)
		cleanup = func() { file.Close() }
	}

	logger := zerolog.New(io.MultiWriter(writers...)).Level(lvl).With().Timestamp().Logger()
	return logger, cleanup, nil
}
