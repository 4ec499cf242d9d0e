package logger_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/matchtag/internal/logger"
)

func TestNewWritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")

	l, err := logger.New(logger.Config{Level: "info", OutputPaths: []string{path}})
	require.NoError(t, err)

	l.Debug("hidden")
	l.With(logger.String("run_id", "r1")).Info("Article tagged",
		logger.String("article_id", "abc"),
		logger.Int("sentences", 3),
		logger.Error(errors.New("none")))
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(data, &entry), "expected exactly one JSON line, got %q", data)
	assert.Equal(t, "Article tagged", entry["msg"])
	assert.Equal(t, "r1", entry["run_id"])
	assert.Equal(t, "abc", entry["article_id"])
	assert.InDelta(t, 3, entry["sentences"], 0)
	assert.Equal(t, "none", entry["error"])
}

func TestFromContext(t *testing.T) {
	nop := logger.NewNop()
	ctx := logger.WithContext(context.Background(), nop)
	assert.Same(t, nop, logger.FromContext(ctx))

	a := logger.FromContext(context.Background())
	b := logger.FromContext(context.Background())
	require.NotNil(t, a)
	assert.Same(t, a, b)
}
