package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("COPYWATCH_CONFIG", "")
	t.Setenv("DATABASE_DSN", "")
	t.Setenv("COPYWATCH_LISTEN_ADDR", "")

	cfg := Load()

	assert.Equal(t, ":8080", cfg.HTTP.ListenAddr)
	assert.Equal(t, 0.427, cfg.Scoring.DisplayThreshold)
	assert.Equal(t, "Copywatch bot", cfg.Review.BotUser)
	require.Len(t, cfg.Wikis, 1)
	assert.Equal(t, "en", cfg.Wikis[0].Lang)
}

func TestLoadMergesFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
http:
  listenAddr: ":9090"
scoring:
  displayThreshold: 0.5
review:
  privileged: ["Steward"]
  whitelistCacheTtl: 2m
wikis:
  - lang: de
    domain: de.wikipedia.org
    replicaDsn: "user:pass@tcp(replica:3306)/dewiki"
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	t.Setenv("COPYWATCH_CONFIG", path)
	t.Setenv("DATABASE_DSN", "user:pass@tcp(central:3306)/copywatch")
	t.Setenv("COPYWATCH_LISTEN_ADDR", "")

	cfg := Load()

	assert.Equal(t, ":9090", cfg.HTTP.ListenAddr)
	assert.Equal(t, "user:pass@tcp(central:3306)/copywatch", cfg.Database.DSN, "env wins over file")
	assert.Equal(t, 0.5, cfg.Scoring.DisplayThreshold)
	assert.Equal(t, []string{"Steward"}, cfg.Review.Privileged)
	assert.Equal(t, Duration(2*time.Minute), cfg.Review.WhitelistCacheTTL)
	require.Len(t, cfg.Wikis, 1)
	assert.Equal(t, "de", cfg.Wikis[0].Lang)
	assert.Equal(t, "Copywatch bot", cfg.Review.BotUser, "untouched fields keep defaults")
}
