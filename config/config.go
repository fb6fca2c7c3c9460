package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	Database struct {
		ConnectionString string `yaml:"connection_string"`
	} `yaml:"database"`
	Ollama struct {
		BaseURL       string `yaml:"base_url"`
		EmbedModel    string `yaml:"embed_model"`
		GenerateModel string `yaml:"generate_model"`
	} `yaml:"ollama"`
	Embeddings struct {
		Dimension int `yaml:"dimension"`
	} `yaml:"embeddings"`
	Processing struct {
		ChunkSize    int `yaml:"chunk_size"`
		ChunkOverlap int `yaml:"chunk_overlap"`
		TopK         int `yaml:"top_k"`
	} `yaml:"processing"`
	Ingest struct {
		Collection string   `yaml:"collection"`
		Files      []string `yaml:"files"`
	} `yaml:"ingest"`
	Access struct {
		// email -> collection name; an email absent here has no access
		Collections map[string]string `yaml:"collections"`
	} `yaml:"access"`
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Audit struct {
		LogPath string `yaml:"log_path"`
	} `yaml:"audit"`
}

// Load loads configuration from the given path, falling back to defaults
// for anything the file does not set. Only the implicit config.yaml may be
// absent; a path the operator named must exist.
func Load(path string) (*Config, error) {
	// .env is optional; values already in the environment win
	_ = godotenv.Load()

	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = "config.yaml"
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case os.IsNotExist(err) && !explicit:
		// run on defaults
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		cfg.Database.ConnectionString = dsn
	}

	return cfg, nil
}

// Default returns default configuration
func Default() *Config {
	cfg := &Config{}

	cfg.Database.ConnectionString = "postgres://postgres@localhost/postgres?sslmode=disable"
	cfg.Ollama.BaseURL = "http://localhost:11434"
	cfg.Ollama.EmbedModel = "nomic-embed-text"
	cfg.Ollama.GenerateModel = "deepseek-r1"
	cfg.Embeddings.Dimension = 768
	cfg.Processing.ChunkSize = 512
	cfg.Processing.ChunkOverlap = 200
	cfg.Processing.TopK = 10
	cfg.Ingest.Collection = "support_docs"
	cfg.Server.Addr = ":8080"
	cfg.Audit.LogPath = "queries.log"

	return cfg
}
