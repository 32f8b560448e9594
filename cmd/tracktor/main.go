// Command tracktor replays detections (optionally with frames for camera motion compensation)
// through the tracker and writes resulting tracks.
//
// Input is JSON-lines file, one frame per line:
//
//	{"frame": 0, "image": "000000.jpg", "detections": [{"box": [xmin, ymin, xmax, ymax], "score": 0.9, "feature": [...]}]}
package main

import (
	"flag"
	"io"
	"os"
	"time"

	"github.com/LdDl/tracktor-go/mot"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type options struct {
	configPath string
	inputPath  string
	csvPath    string
	sqlitePath string
	plotPath   string
	imagesDir  string
}

type summary struct {
	frames  int
	skipped int
	rows    int
	maxID   int64
}

func main() {
	var opts options
	var logLevel string
	flag.StringVar(&opts.configPath, "config", "", "path to JSON tracker configuration (defaults are used when empty; with defaults unmatched tracks never age, set regression_score_decay < 1 or public_detections to drop them)")
	flag.StringVar(&opts.inputPath, "input", "-", "path to JSON-lines detections ('-' for stdin)")
	flag.StringVar(&opts.csvPath, "csv", "-", "path to output CSV ('-' for stdout)")
	flag.StringVar(&opts.sqlitePath, "sqlite", "", "path to SQLite database for tracks (optional)")
	flag.StringVar(&opts.plotPath, "plot", "", "path to PNG with track trajectories (optional)")
	flag.StringVar(&opts.imagesDir, "images-dir", "", "directory for relative image paths")
	flag.StringVar(&logLevel, "log-level", "info", "log level: trace, debug, info, warn, error")
	flag.Parse()

	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).Level(level).With().Timestamp().Logger()

	st, err := run(opts, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("tracking failed")
	}
	logger.Info().
		Int("frames", st.frames).
		Int("skipped", st.skipped).
		Int("rows", st.rows).
		Int64("tracks", st.maxID).
		Msg("done")
}

func run(opts options, logger zerolog.Logger) (summary, error) {
	st := summary{}
	cfg := mot.DefaultConfig()
	if opts.configPath != "" {
		var err error
		cfg, err = mot.LoadConfig(opts.configPath)
		if err != nil {
			return st, err
		}
	}

	tracker, err := mot.NewTracker(cfg, mot.WithLogger(logger), mot.WithAligner(newAligner(cfg)))
	if err != nil {
		return st, err
	}
	logger.Info().Str("session", tracker.SessionID().String()).Bool("align", cfg.DoAlign).Bool("reid", cfg.DoReID).Msg("tracker is ready")

	var input io.Reader = os.Stdin
	if opts.inputPath != "-" {
		file, err := os.Open(opts.inputPath)
		if err != nil {
			return st, errors.Wrap(err, "can't open input")
		}
		defer file.Close()
		input = file
	}

	sinks := multiSink{}
	defer func() {
		if err := sinks.Close(); err != nil {
			logger.Error().Err(err).Msg("can't close outputs")
		}
	}()
	csvOut, err := newCSVSink(opts.csvPath)
	if err != nil {
		return st, err
	}
	sinks = append(sinks, csvOut)
	if opts.sqlitePath != "" {
		dbOut, err := newSQLiteSink(opts.sqlitePath, tracker.SessionID(), cfg)
		if err != nil {
			return st, err
		}
		sinks = append(sinks, dbOut)
	}
	if opts.plotPath != "" {
		sinks = append(sinks, newPlotSink(opts.plotPath))
	}

	reader := newFrameReader(input, opts.imagesDir, cfg.DoAlign)
	for {
		record, frame, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return st, err
		}
		result := tracker.Step(frame)
		st.frames++
		if result.Skipped {
			st.skipped++
		}
		for _, warning := range result.Warnings {
			logger.Debug().Int("frame", record.Frame).Err(warning).Msg("warning")
		}
		for _, track := range result.Tracks {
			if track.ID > st.maxID {
				st.maxID = track.ID
			}
		}
		st.rows += len(result.Tracks)
		if err := sinks.WriteFrame(record.Frame, result.Tracks); err != nil {
			return st, err
		}
	}
	return st, nil
}
