package config

import (
	"errors"
	"fmt"
)

// Validate checks fields whose absence would only surface deep inside a
// running job. Provider API keys are deliberately not required: missing
// keys degrade the corresponding chain tier instead of blocking startup.
func (c *Config) Validate() error {
	if c.Embedding.Dimension <= 0 {
		return errors.New("embedding.dimension must be a positive integer")
	}

	if c.Chunking.MaxTokens <= 0 {
		return errors.New("chunking.max_tokens must be a positive integer")
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.MaxTokens {
		return fmt.Errorf("chunking.overlap (%d) must be non-negative and smaller than max_tokens (%d)",
			c.Chunking.Overlap, c.Chunking.MaxTokens)
	}

	if c.Pipeline.WorkDir == "" {
		return errors.New("pipeline.work_dir is required")
	}
	if c.Pipeline.OutputDir == "" {
		return errors.New("pipeline.output_dir is required")
	}
	if c.Pipeline.PollIntervalSeconds <= 0 {
		return errors.New("pipeline.poll_interval_seconds must be positive")
	}
	if c.Pipeline.PollBudgetSeconds < c.Pipeline.PollIntervalSeconds {
		return fmt.Errorf("pipeline.poll_budget_seconds (%d) must be at least poll_interval_seconds (%d)",
			c.Pipeline.PollBudgetSeconds, c.Pipeline.PollIntervalSeconds)
	}
	if c.Pipeline.PacingSeconds < 0 {
		return errors.New("pipeline.pacing_seconds must be non-negative")
	}

	if c.Redis.Address == "" {
		return errors.New("redis.address is required")
	}

	if c.Worker.Concurrency <= 0 {
		return errors.New("worker.concurrency must be a positive integer")
	}
	if len(c.Worker.Queues) == 0 {
		return errors.New("worker.queues must define at least one queue")
	}
	for name, priority := range c.Worker.Queues {
		if name == "" {
			return errors.New("worker.queues contains an empty queue name")
		}
		if priority <= 0 {
			return fmt.Errorf("worker.queues priority for queue '%s' must be positive", name)
		}
	}

	return nil
}
