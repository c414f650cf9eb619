package logging

import (
	"log/slog"
	"os"
	"time"

	"import.name/sjournal"
)

// Init returns some kind of logger on error.
func Init(journal, verbose bool) (*slog.Logger, error) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	if !journal {
		log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(log)
		return log, nil
	}

	opts := &sjournal.HandlerOptions{
		Delimiter:  sjournal.ColonDelimiter,
		TimeFormat: time.RFC3339Nano,
	}

	h, err := sjournal.NewHandler(opts)
	if err != nil {
		return slog.Default(), err
	}

	log := slog.New(h)

	slog.SetDefault(log)
	slog.SetLogLoggerLevel(level)

	return log, nil
}
