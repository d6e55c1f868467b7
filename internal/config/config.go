package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Database struct {
		Primary struct {
			DSN string
		}
		Vector struct {
			DSN string `mapstructure:"DSN"`
		}
	}

	Providers struct {
		OpenAIAPIKey string `mapstructure:"openai_api_key"`
		OpenAIModel  string `mapstructure:"openai_model"`
		GeminiAPIKey string `mapstructure:"gemini_api_key"`
		GeminiModel  string `mapstructure:"gemini_model"`
		DIDAPIKey    string `mapstructure:"did_api_key"`
		DIDBaseURL   string `mapstructure:"did_base_url"`
		DIDPresenter string `mapstructure:"did_presenter"`
		TTSVoice     string `mapstructure:"tts_voice"`
		// Mock swaps every provider for its in-process fake.
		Mock bool `mapstructure:"mock"`
	} `mapstructure:"providers"`

	Embedding struct {
		Model     string `mapstructure:"model"`
		Dimension int    `mapstructure:"dimension"`
	} `mapstructure:"embedding"`

	Chunking struct {
		MaxTokens int `mapstructure:"max_tokens"`
		Overlap   int `mapstructure:"overlap"`
	} `mapstructure:"chunking"`

	Pipeline struct {
		WorkDir             string `mapstructure:"work_dir"`
		OutputDir           string `mapstructure:"output_dir"`
		FontPath            string `mapstructure:"font_path"`
		PacingSeconds       int    `mapstructure:"pacing_seconds"`
		PollIntervalSeconds int    `mapstructure:"poll_interval_seconds"`
		PollBudgetSeconds   int    `mapstructure:"poll_budget_seconds"`
		TierTimeoutSeconds  int    `mapstructure:"tier_timeout_seconds"`
	} `mapstructure:"pipeline"`

	Server struct {
		Address string `mapstructure:"address"`
	} `mapstructure:"server"`

	Redis struct {
		Address  string
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	}

	Worker struct {
		Concurrency int            `mapstructure:"concurrency"`
		Queues      map[string]int `mapstructure:"queues"`
	}
}

func LoadConfig() (*Config, error) {
	// .env is a developer convenience; absence is normal.
	_ = godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()
	viper.BindEnv("providers.openai_api_key", "OPENAI_API_KEY")
	viper.BindEnv("providers.gemini_api_key", "GEMINI_API_KEY")
	viper.BindEnv("providers.did_api_key", "DID_API_KEY")
	viper.BindEnv("database.primary.dsn", "DATABASE_URL")
	viper.BindEnv("database.vector.dsn", "VECTOR_DATABASE_URL")
	viper.BindEnv("redis.address", "REDIS_ADDR")

	viper.SetDefault("providers.openai_model", "gpt-4o-mini")
	viper.SetDefault("providers.gemini_model", "gemini-1.5-flash")
	viper.SetDefault("embedding.model", "text-embedding-3-small")
	viper.SetDefault("embedding.dimension", 1536)
	viper.SetDefault("chunking.max_tokens", 200)
	viper.SetDefault("chunking.overlap", 50)
	viper.SetDefault("pipeline.work_dir", "work")
	viper.SetDefault("pipeline.output_dir", "output")
	viper.SetDefault("pipeline.pacing_seconds", 30)
	viper.SetDefault("pipeline.poll_interval_seconds", 10)
	viper.SetDefault("pipeline.poll_budget_seconds", 300)
	viper.SetDefault("pipeline.tier_timeout_seconds", 120)
	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("redis.address", "localhost:6379")
	viper.SetDefault("worker.concurrency", 2)
	viper.SetDefault("worker.queues", map[string]int{"courses": 5, "documents": 1})

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No config file; defaults and env vars carry the day.
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}
	return &config, nil
}
