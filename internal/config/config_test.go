package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	t.Run("defaults pass", func(t *testing.T) {
		require.NoError(t, defaultConfig().Validate())
	})

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero top_k", func(c *Config) { c.RAG.TopK = 0 }},
		{"negative top_k", func(c *Config) { c.RAG.TopK = -1 }},
		{"threshold above 1", func(c *Config) { c.RAG.ScoreThreshold = 1.5 }},
		{"threshold below -1", func(c *Config) { c.RAG.ScoreThreshold = -2 }},
		{"zero chunk size", func(c *Config) { c.RAG.ChunkSize = 0 }},
		{"overlap equals chunk size", func(c *Config) { c.RAG.ChunkOverlap = c.RAG.ChunkSize }},
		{"negative overlap", func(c *Config) { c.RAG.ChunkOverlap = -1 }},
		{"zero upload cap", func(c *Config) { c.RAG.MaxUploadMB = 0 }},
		{"zero embedding dimension", func(c *Config) { c.RAG.EmbeddingDimension = 0 }},
		{"unknown store", func(c *Config) { c.RAG.Store = "postgres" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	t.Run("boundary thresholds pass", func(t *testing.T) {
		cfg := defaultConfig()
		cfg.RAG.ScoreThreshold = -1
		assert.NoError(t, cfg.Validate())
		cfg.RAG.ScoreThreshold = 1
		assert.NoError(t, cfg.Validate())
	})

	t.Run("memory store passes", func(t *testing.T) {
		cfg := defaultConfig()
		cfg.RAG.Store = "memory"
		assert.NoError(t, cfg.Validate())
	})
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("RAG_TOP_K", "3")
	t.Setenv("RAG_SCORE_THRESHOLD", "0.25")
	t.Setenv("RAG_STORE", "memory")
	t.Setenv("LLM_EMBEDDING_MODEL", "text-embedding-3-large")

	cfg := defaultConfig()
	overrideByEnv(cfg)

	assert.Equal(t, 3, cfg.RAG.TopK)
	assert.Equal(t, 0.25, cfg.RAG.ScoreThreshold)
	assert.Equal(t, "memory", cfg.RAG.Store)
	assert.Equal(t, "text-embedding-3-large", cfg.LLM.EmbeddingModel)
}

func TestMaxUploadBytes(t *testing.T) {
	cfg := defaultConfig()
	cfg.RAG.MaxUploadMB = 2
	assert.Equal(t, int64(2<<20), cfg.MaxUploadBytes())
}

func TestMySQLDSN(t *testing.T) {
	cfg := defaultConfig()
	cfg.MySQL.User = "app"
	cfg.MySQL.Password = "secret"
	cfg.MySQL.Host = "db"
	cfg.MySQL.Port = 3307
	cfg.MySQL.DB = "notes"
	cfg.MySQL.Params = "parseTime=true"

	assert.Equal(t, "app:secret@tcp(db:3307)/notes?parseTime=true", cfg.MySQLDSN())
}
