package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	var c Config
	c.Embedding.Dimension = 1536
	c.Chunking.MaxTokens = 200
	c.Chunking.Overlap = 50
	c.Pipeline.WorkDir = "work"
	c.Pipeline.OutputDir = "output"
	c.Pipeline.PollIntervalSeconds = 10
	c.Pipeline.PollBudgetSeconds = 300
	c.Redis.Address = "localhost:6379"
	c.Worker.Concurrency = 2
	c.Worker.Queues = map[string]int{"courses": 5}
	return &c
}

func TestValidateAcceptsDefaults(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidateMissingAPIKeysIsFine(t *testing.T) {
	c := validConfig()
	c.Providers.OpenAIAPIKey = ""
	c.Providers.DIDAPIKey = ""
	assert.NoError(t, c.Validate())
}

func TestValidateRejectsBadPolling(t *testing.T) {
	c := validConfig()
	c.Pipeline.PollBudgetSeconds = 5
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "poll_budget_seconds")
}

func TestValidateRejectsBadWorker(t *testing.T) {
	c := validConfig()
	c.Worker.Concurrency = 0
	assert.Error(t, c.Validate())

	c = validConfig()
	c.Worker.Queues = map[string]int{"courses": 0}
	assert.Error(t, c.Validate())
}

func TestValidateRejectsBadChunking(t *testing.T) {
	c := validConfig()
	c.Chunking.MaxTokens = 0
	assert.Error(t, c.Validate())

	c = validConfig()
	c.Chunking.Overlap = 200
	assert.Error(t, c.Validate())
}

func TestValidateRejectsMissingDirs(t *testing.T) {
	c := validConfig()
	c.Pipeline.OutputDir = ""
	assert.Error(t, c.Validate())
}
