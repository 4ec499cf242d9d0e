package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/matchtag/pkg/matchtag/article"
	"github.com/cognicore/matchtag/pkg/matchtag/internalerr"
	"github.com/cognicore/matchtag/pkg/matchtag/tagger/remote"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.Equal(t, DefaultCacheSize, cfg.Server.CacheSize)
	assert.Equal(t, "guardian-match-reports", cfg.S3.Bucket)
	assert.Equal(t, "guardian-match-reports", cfg.Sync.Prefix)
	assert.Equal(t, 24*time.Hour, cfg.Sync.Freshness)
	assert.Equal(t, "Europe/Copenhagen", cfg.Run.Timezone)
	assert.Equal(t, "data/processed.db", cfg.Storage.LedgerPath)
	assert.Equal(t, "data/articles.jl", cfg.Storage.OutputPath)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "0.0.0.0:5000", cfg.Addr())
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 8080
  schedule: "@daily"
sync:
  prefix: reports/2020
  freshness: 6h
s3:
  endpoint: minio:9000
  bucket: local-reports
run:
  timezone: UTC
  max_attempts: 3
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "@daily", cfg.Server.Schedule)
	assert.Equal(t, "reports/2020", cfg.Sync.Prefix)
	assert.Equal(t, 6*time.Hour, cfg.Sync.Freshness)
	assert.Equal(t, "minio:9000", cfg.S3.Endpoint)
	assert.Equal(t, "local-reports", cfg.S3.Bucket)
	assert.Equal(t, 3, cfg.Run.MaxAttempts)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 8080\n")
	t.Setenv("ENDPOINT_PORT", "9090")
	t.Setenv("DATA_S3_BUCKET", "env-bucket")
	t.Setenv("FOLDER_UPDATE_FREQ", "2d")
	t.Setenv("MATCHTAG_SYNC_DISABLED", "yes")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "env-bucket", cfg.S3.Bucket)
	assert.Equal(t, 48*time.Hour, cfg.Sync.Freshness)
	assert.True(t, cfg.Sync.Disabled)
}

func TestLoadEnvFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("MATCHTAG_CACHE_SIZE=16\n"), 0o644))
	t.Setenv("ENV_FILE", envFile)
	t.Cleanup(func() { os.Unsetenv("MATCHTAG_CACHE_SIZE") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.Server.CacheSize)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad timezone", "run:\n  timezone: Mars/Olympus\n"},
		{"negative freshness", "sync:\n  freshness: -1h\n"},
		{"bad port", "server:\n  port: 70000\n"},
		{"negative attempts", "run:\n  max_attempts: -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.ErrorIs(t, err, internalerr.ErrInvalidConfig)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadComponentsDefaults(t *testing.T) {
	comp, err := LoadComponents(TaggerConfig{})
	require.NoError(t, err)
	require.NotNil(t, comp.Tagger)
	require.NotNil(t, comp.Lexicon)
	require.NotNil(t, comp.Gazetteer)

	tagged, err := comp.Tagger.Tag(t.Context(), article.NewRecord("text", "Superb goal."))
	require.NoError(t, err)
	assert.Len(t, tagged.Sentences, 1)
}

func TestLoadComponentsFromFiles(t *testing.T) {
	dir := t.TempDir()
	gazPath := filepath.Join(dir, "gazetteer.yaml")
	require.NoError(t, os.WriteFile(gazPath, []byte("persons:\n  - name: Son Heung-min\n    aliases: [Son]\n"), 0o644))

	comp, err := LoadComponents(TaggerConfig{GazetteerPath: gazPath, NoNameFallback: true})
	require.NoError(t, err)

	ents := comp.Gazetteer.Recognize("Son scored after Harry Kane crossed.")
	require.Len(t, ents, 1)
	assert.Equal(t, "Son Heung-min", ents[0].Canonical)
}

func TestLoadComponentsRemoteSentiment(t *testing.T) {
	comp, err := LoadComponents(TaggerConfig{SentimentURL: "https://api.test/sst2", SentimentRPS: 2})
	require.NoError(t, err)
	client, ok := comp.Classifier.(*remote.Client)
	require.True(t, ok)
	assert.NotNil(t, client.Limiter)
}

func TestLoadComponentsMissingGazetteer(t *testing.T) {
	_, err := LoadComponents(TaggerConfig{GazetteerPath: filepath.Join(t.TempDir(), "none.yaml")})
	assert.Error(t, err)
}

func TestSampleConfig(t *testing.T) {
	root := filepath.Join("..", "..", "..", "configs")
	cfg, err := Load(filepath.Join(root, "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, cfg.Sync.Freshness)
	assert.Equal(t, 4, cfg.Server.CacheSize)

	tc := cfg.Tagger
	tc.GazetteerPath = filepath.Join(root, "gazetteer.yaml")
	tc.SentimentURL = ""
	comp, err := LoadComponents(tc)
	require.NoError(t, err)

	canon := map[string]string{}
	for _, e := range comp.Gazetteer.Recognize("Spurs were beaten after Jota scored.") {
		canon[e.Text] = e.Canonical
	}
	assert.Equal(t, "Tottenham Hotspur", canon["Spurs"])
	assert.Equal(t, "Diogo Jota", canon["Jota"])
}
