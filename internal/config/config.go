package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"todoapp/internal/util"
)

// LLM providers.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderMock   = "mock"
)

// Console storage backends.
const (
	StorageMemory = "memory"
	StorageNeo4j  = "neo4j"
)

// LLM configures the chat completion backend.
type LLM struct {
	Provider string
	BaseURL  string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// Config holds everything the web server needs.
type Config struct {
	Addr        string
	DBPath      string
	StaticDir   string
	Debug       bool
	JWTSecret   string
	TokenTTL    time.Duration
	CORSOrigins []string
	LLM         LLM
}

// Neo4j holds graph database credentials.
type Neo4j struct {
	URI      string
	Username string
	Password string
}

// Console configures the terminal app.
type Console struct {
	Storage string
	Debug   bool
	Neo4j   Neo4j
}

// Load parses server flags, taking defaults from the environment.
func Load(args []string) (Config, error) {
	fs := flag.NewFlagSet("todo", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var cfg Config
	fs.StringVar(&cfg.Addr, "addr", util.EnvOrDefault("TODO_ADDR", ":8080"), "HTTP listen address")
	fs.StringVar(&cfg.DBPath, "db", util.EnvOrDefault("TODO_DB_PATH", "data/todo.db"), "Path to sqlite database file")
	fs.StringVar(&cfg.StaticDir, "static", util.EnvOrDefault("TODO_STATIC_DIR", "web/dist"), "Directory with built frontend")
	fs.BoolVar(&cfg.Debug, "debug", util.EnvBool("TODO_DEBUG", false), "Enable debug logging")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg.JWTSecret = util.EnvOrDefault("TODO_JWT_SECRET", "")
	cfg.TokenTTL = util.EnvDuration("TODO_TOKEN_TTL", 24*time.Hour)
	cfg.CORSOrigins = util.EnvList("TODO_CORS_ORIGINS", []string{"http://localhost:3000", "http://127.0.0.1:3000"})

	cfg.LLM = LLM{
		Provider: util.EnvOrDefault("TODO_LLM_PROVIDER", ProviderOpenAI),
		BaseURL:  util.EnvOrDefault("TODO_LLM_BASE_URL", "https://openrouter.ai/api/v1"),
		APIKey:   util.EnvOrDefault("TODO_LLM_API_KEY", ""),
		Timeout:  util.EnvDuration("TODO_LLM_TIMEOUT", 60*time.Second),
	}
	defaultModel := "openai/gpt-3.5-turbo"
	if cfg.LLM.Provider == ProviderGemini {
		defaultModel = "gemini-2.5-flash"
	}
	cfg.LLM.Model = util.EnvOrDefault("TODO_LLM_MODEL", defaultModel)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("TODO_JWT_SECRET must be set"))
	}
	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderGemini:
		if c.LLM.APIKey == "" {
			errs = append(errs, fmt.Errorf("TODO_LLM_API_KEY must be set for provider %q", c.LLM.Provider))
		}
	case ProviderMock:
	default:
		errs = append(errs, fmt.Errorf("unknown TODO_LLM_PROVIDER %q", c.LLM.Provider))
	}
	return errors.Join(errs...)
}

// LoadConsole parses console flags.
func LoadConsole(args []string) (Console, error) {
	fs := flag.NewFlagSet("todo-console", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var cfg Console
	fs.StringVar(&cfg.Storage, "storage", util.EnvOrDefault("TODO_CONSOLE_STORAGE", StorageMemory), "Task storage: memory or neo4j")
	fs.BoolVar(&cfg.Debug, "debug", util.EnvBool("TODO_DEBUG", false), "Enable debug logging")
	if err := fs.Parse(args); err != nil {
		return Console{}, err
	}

	cfg.Neo4j = Neo4j{
		URI:      util.EnvOrDefault("TODO_NEO4J_URI", "neo4j://localhost:7687"),
		Username: util.EnvOrDefault("TODO_NEO4J_USER", "neo4j"),
		Password: util.EnvOrDefault("TODO_NEO4J_PASSWORD", ""),
	}

	switch cfg.Storage {
	case StorageMemory:
	case StorageNeo4j:
		if cfg.Neo4j.Password == "" {
			return Console{}, errors.New("TODO_NEO4J_PASSWORD must be set for neo4j storage")
		}
	default:
		return Console{}, fmt.Errorf("unknown storage %q", cfg.Storage)
	}
	return cfg, nil
}
