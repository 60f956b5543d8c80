package service

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/arena-session-api/internal/models"
	appErrors "github.com/noah-isme/arena-session-api/pkg/errors"
	"github.com/noah-isme/arena-session-api/pkg/jobs"
	"github.com/noah-isme/arena-session-api/pkg/storage"
)

func newTestGameLogService(t *testing.T) (*GameLogService, string) {
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	svc := NewGameLogService(store, NewMetricsService(), zap.NewNop(), jobs.QueueConfig{Workers: 1, RetryDelay: time.Millisecond})
	return svc, dir
}

func TestFormatGameLogLine(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

	assert.Equal(t, "Date: 2024-03-01T12:30:00Z GG\n", FormatGameLogLine(models.GameLogEntry{Commentary: "GG", At: at}))
	assert.Equal(t, "Date: 2024-03-01T12:30:00Z  \n", FormatGameLogLine(models.GameLogEntry{At: at}))
	assert.Equal(t, "u1_3.log", GameLogFileName("u1", 3))
}

func TestGameLogRecordAndOpen(t *testing.T) {
	svc, dir := newTestGameLogService(t)
	svc.Start(context.Background())

	require.NoError(t, svc.Record("u1", 2, "close match"))
	require.NoError(t, svc.Record("u1", 2, ""))
	svc.Stop()

	raw, err := os.ReadFile(filepath.Join(dir, "u1_2.log"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "close match\n")

	file, name, err := svc.Open("u1", "2")
	require.NoError(t, err)
	defer file.Close()
	assert.Equal(t, "u1_2.log", name)
	body, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Equal(t, raw, body)
}

func TestGameLogOpenErrors(t *testing.T) {
	svc, _ := newTestGameLogService(t)

	_, _, err := svc.Open("u1", "7")
	assert.Equal(t, appErrors.KindNotFound, appErrors.KindOf(err))

	_, _, err = svc.Open("u1", "../../etc/passwd")
	assert.Equal(t, appErrors.KindBadRequest, appErrors.KindOf(err))

	_, _, err = svc.Open("../u1", "1")
	assert.Equal(t, appErrors.KindBadRequest, appErrors.KindOf(err))
}

func TestGameLogRecordWhenStopped(t *testing.T) {
	svc, _ := newTestGameLogService(t)

	err := svc.Record("u1", 1, "late")
	assert.ErrorIs(t, err, jobs.ErrQueueClosed)
}
