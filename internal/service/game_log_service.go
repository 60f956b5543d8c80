package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/noah-isme/arena-session-api/internal/models"
	appErrors "github.com/noah-isme/arena-session-api/pkg/errors"
	"github.com/noah-isme/arena-session-api/pkg/jobs"
	"github.com/noah-isme/arena-session-api/pkg/storage"
)

const gameLogJobType = "game_log.append"

// GameLogService appends commentary lines to per-game log files through a
// background worker queue and serves the files back for download.
type GameLogService struct {
	storage *storage.LocalStorage
	queue   *jobs.Queue
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// NewGameLogService wires the worker queue that writes game logs.
func NewGameLogService(store *storage.LocalStorage, metrics *MetricsService, logger *zap.Logger, cfg jobs.QueueConfig) *GameLogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Logger == nil {
		cfg.Logger = logger
	}
	svc := &GameLogService{storage: store, metrics: metrics, logger: logger, now: time.Now}
	svc.queue = jobs.NewQueue("game-logs", svc.handle, cfg)
	return svc
}

// Start launches the log writers.
func (s *GameLogService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop flushes queued lines and stops the writers.
func (s *GameLogService) Stop() {
	s.queue.Stop()
}

// Record queues one commentary line for the given game.
func (s *GameLogService) Record(userID string, game int, commentary string) error {
	entry := models.GameLogEntry{UserID: userID, Game: game, Commentary: commentary, At: s.now().UTC()}
	if err := s.queue.Enqueue(jobs.Job{ID: ulid.Make().String(), Type: gameLogJobType, Payload: entry}); err != nil {
		return fmt.Errorf("queue game log: %w", err)
	}
	return nil
}

// Open returns the log file of a finished game. game must be a decimal number.
func (s *GameLogService) Open(userID, game string) (*os.File, string, error) {
	n, err := strconv.Atoi(game)
	if err != nil || n < 0 {
		return nil, "", appErrors.WithData(appErrors.ErrValidation, map[string]string{"field": "game"})
	}

	name := GameLogFileName(userID, n)
	file, err := s.storage.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "game log")
		}
		if errors.Is(err, storage.ErrInvalidName) {
			return nil, "", appErrors.Clone(appErrors.ErrBadRequest, "game")
		}
		return nil, "", appErrors.Wrap(err, appErrors.KindInternal, appErrors.ErrInternal.Code, "failed to open game log")
	}
	return file, name, nil
}

func (s *GameLogService) handle(ctx context.Context, job jobs.Job) error {
	entry, ok := job.Payload.(models.GameLogEntry)
	if !ok {
		s.logger.Error("unexpected game log payload", zap.String("job_id", job.ID), zap.String("type", job.Type))
		return nil
	}

	err := s.storage.Append(GameLogFileName(entry.UserID, entry.Game), []byte(FormatGameLogLine(entry)))
	s.metrics.RecordGameLogWrite(err)
	return err
}

// GameLogFileName is the file holding the log of one game of a player.
func GameLogFileName(userID string, game int) string {
	return fmt.Sprintf("%s_%d.log", userID, game)
}

// FormatGameLogLine renders an entry as "Date: <RFC3339> <commentary>".
func FormatGameLogLine(entry models.GameLogEntry) string {
	commentary := entry.Commentary
	if commentary == "" {
		commentary = " "
	}
	return "Date: " + entry.At.UTC().Format(time.RFC3339) + " " + commentary + "\n"
}
