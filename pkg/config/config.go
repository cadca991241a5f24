package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Chunking   ChunkingConfig
	Embedding  EmbeddingConfig
	Vector     VectorConfig
	SQLite     SQLiteConfig
	Redis      RedisConfig
	LLM        LLMConfig
	Retrieval  RetrievalConfig
	Generation GenerationConfig
	Logging    LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
}

type ChunkingConfig struct {
	TargetTokens  int
	OverlapTokens int
	MinTokens     int
	MaxTokens     int
	Encoding      string
}

type EmbeddingConfig struct {
	Model       string
	Dim         int
	BatchSize   int
	Concurrency int
	CacheTTLSec int
}

type VectorConfig struct {
	// Backend selects the index: "milvus", "chromem", or "memory".
	Backend        string
	Endpoint       string
	CollectionName string
	ChromemPath    string
}

type SQLiteConfig struct {
	Path string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type LLMConfig struct {
	Provider    string
	Model       string
	APIKey      string
	Temperature float32
	MaxTokens   int
	TimeoutSec  int
}

type RetrievalConfig struct {
	QueryCount  int
	PerQueryK   int
	RRFK        int
	Concurrency int
}

type GenerationConfig struct {
	MCQCount int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/teachgen")

	viper.SetEnvPrefix("TEACHGEN")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 120)
	viper.SetDefault("server.bodyLimit", 10485760)

	viper.SetDefault("chunking.targetTokens", 800)
	viper.SetDefault("chunking.overlapTokens", 160)
	viper.SetDefault("chunking.minTokens", 600)
	viper.SetDefault("chunking.maxTokens", 1000)
	viper.SetDefault("chunking.encoding", "cl100k_base")

	viper.SetDefault("embedding.model", "text-embedding-3-small")
	viper.SetDefault("embedding.dim", 1536)
	viper.SetDefault("embedding.batchSize", 64)
	viper.SetDefault("embedding.concurrency", 4)
	viper.SetDefault("embedding.cacheTTLSec", 86400)

	viper.SetDefault("vector.backend", "chromem")
	viper.SetDefault("vector.endpoint", "localhost:19530")
	viper.SetDefault("vector.collectionName", "teachgen_chunks")
	viper.SetDefault("vector.chromemPath", "./data/chromem")

	viper.SetDefault("sqlite.path", "./data/teachgen.db")

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("llm.provider", "openai")
	viper.SetDefault("llm.model", "gpt-4o")
	viper.SetDefault("llm.temperature", 0.4)
	viper.SetDefault("llm.maxTokens", 4096)
	viper.SetDefault("llm.timeoutSec", 90)

	viper.SetDefault("retrieval.queryCount", 8)
	viper.SetDefault("retrieval.perQueryK", 5)
	viper.SetDefault("retrieval.rrfK", 60)
	viper.SetDefault("retrieval.concurrency", 4)

	viper.SetDefault("generation.mcqCount", 8)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
