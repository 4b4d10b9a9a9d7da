package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/jonwraymond/memops/database"
	"github.com/jonwraymond/memops/observe"
	"github.com/jonwraymond/memops/observe/exporters"
)

// Supported values.
var (
	Transports   = []string{"sse", "stdio"}
	LLMProviders = []string{"openai", "openrouter", "ollama"}
)

// Config is the complete server configuration.
type Config struct {
	Database  database.Config
	Server    ServerConfig
	LLM       LLMConfig
	Embedding EmbeddingConfig
	Observe   ObserveConfig
	Auth      AuthConfig
}

// ServerConfig configures the MCP listener.
type ServerConfig struct {
	// Host defaults to 0.0.0.0.
	Host string

	// Port defaults to 8050.
	Port int

	// Transport is sse or stdio.
	// Default: sse
	Transport string

	// DefaultUserID is documented to clients as the example owner.
	// Default: default_user
	DefaultUserID string
}

// Addr joins Host and Port.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// LLMConfig selects the model provider.
type LLMConfig struct {
	// Provider is openai, openrouter or ollama.
	// Default: openai
	Provider string
	APIKey   string

	// Model is the chat model name (LLM_CHOICE).
	// Default: gpt-3.5-turbo
	Model string

	// BaseURL overrides the provider endpoint.
	BaseURL string
}

// EmbeddingConfig overrides embedding defaults. Empty fields fall back to
// the provider's defaults and to the LLM settings.
type EmbeddingConfig struct {
	Model   string
	Dims    int
	BaseURL string
	APIKey  string
}

// ObserveConfig configures telemetry and logging.
type ObserveConfig struct {
	ServiceName     string
	Version         string
	TracesExporter  string
	MetricsExporter string
	SampleRatio     float64
	OTLPEndpoint    string
	OTLPInsecure    bool
	LogLevel        string
	Debug           bool
}

// AuthConfig enables authentication on the SSE transport. Auth is off when
// both JWTSecret and APIKeys are empty.
type AuthConfig struct {
	JWTSecret string
	JWTIssuer string
	APIKeys   []string
}

// Enabled reports whether any authenticator is configured.
func (a AuthConfig) Enabled() bool {
	return a.JWTSecret != "" || len(a.APIKeys) > 0
}

// Default returns the configuration used when no variables are set.
func Default() Config {
	return Config{
		Database: database.DefaultConfig(),
		Server: ServerConfig{
			Host:          "0.0.0.0",
			Port:          8050,
			Transport:     "sse",
			DefaultUserID: "default_user",
		},
		LLM: LLMConfig{
			Provider: "openai",
			Model:    "gpt-3.5-turbo",
		},
		Observe: ObserveConfig{
			ServiceName:     "mcp-mem0",
			Version:         "1.0.0",
			TracesExporter:  "none",
			MetricsExporter: "none",
			SampleRatio:     1.0,
			LogLevel:        "info",
		},
	}
}

// Loader reads a Config through a LookupFunc.
type Loader struct {
	lookup  LookupFunc
	secrets secretResolver
}

// NewLoader creates a Loader. FileProvider is always registered.
func NewLoader(lookup LookupFunc, providers ...SecretProvider) *Loader {
	all := append([]SecretProvider{FileProvider{}}, providers...)
	return &Loader{lookup: lookup, secrets: newSecretResolver(all)}
}

// Load reads the process environment overlaid on the .env file in the
// working directory, if present.
func Load(ctx context.Context) (Config, error) {
	lookup, err := DotenvLookup(os.LookupEnv, ".env")
	if err != nil {
		return Config{}, err
	}
	return NewLoader(lookup).Load(ctx)
}

// DotenvLookup returns a LookupFunc that consults base first and then the
// given dotenv files. Missing files are skipped.
func DotenvLookup(base LookupFunc, files ...string) (LookupFunc, error) {
	fileVars := make(map[string]string)
	for _, f := range files {
		vars, err := godotenv.Read(f)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", ErrInvalidConfig, f, err)
		}
		for k, v := range vars {
			if _, ok := fileVars[k]; !ok {
				fileVars[k] = v
			}
		}
	}
	return func(key string) (string, bool) {
		if v, ok := base(key); ok {
			return v, true
		}
		v, ok := fileVars[key]
		return v, ok
	}, nil
}

// Load builds the Config. Unparseable values, unresolved ${VAR} references
// and failed secret references are errors; soft problems are left to
// Warnings.
func (l *Loader) Load(ctx context.Context) (Config, error) {
	r := &reader{ctx: ctx, lookup: l.lookup, secrets: l.secrets}
	cfg := Default()

	db, err := database.ParseConfig(r.lookupResolved)
	if r.err != nil {
		return Config{}, r.err
	}
	if err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	cfg.Database = db

	r.str("HOST", &cfg.Server.Host)
	r.int("PORT", &cfg.Server.Port)
	r.str("TRANSPORT", &cfg.Server.Transport)
	r.str("DEFAULT_USER_ID", &cfg.Server.DefaultUserID)

	r.str("LLM_PROVIDER", &cfg.LLM.Provider)
	r.str("LLM_API_KEY", &cfg.LLM.APIKey)
	r.str("LLM_CHOICE", &cfg.LLM.Model)
	r.str("LLM_BASE_URL", &cfg.LLM.BaseURL)

	r.str("EMBEDDING_MODEL_CHOICE", &cfg.Embedding.Model)
	r.int("EMBEDDING_MODEL_DIMS", &cfg.Embedding.Dims)
	r.str("EMBEDDING_BASE_URL", &cfg.Embedding.BaseURL)
	r.str("EMBEDDING_API_KEY", &cfg.Embedding.APIKey)

	r.str("OTEL_SERVICE_NAME", &cfg.Observe.ServiceName)
	r.str("SERVICE_VERSION", &cfg.Observe.Version)
	r.str("OTEL_TRACES_EXPORTER", &cfg.Observe.TracesExporter)
	r.str("OTEL_METRICS_EXPORTER", &cfg.Observe.MetricsExporter)
	r.float("OTEL_TRACES_SAMPLE_RATIO", &cfg.Observe.SampleRatio)
	r.str("OTEL_EXPORTER_OTLP_ENDPOINT", &cfg.Observe.OTLPEndpoint)
	r.bool("OTEL_EXPORTER_OTLP_INSECURE", &cfg.Observe.OTLPInsecure)
	r.str("LOG_LEVEL", &cfg.Observe.LogLevel)
	r.bool("DEBUG", &cfg.Observe.Debug)

	r.str("MCP_AUTH_JWT_SECRET", &cfg.Auth.JWTSecret)
	r.str("MCP_AUTH_JWT_ISSUER", &cfg.Auth.JWTIssuer)
	var keys string
	r.str("MCP_AUTH_API_KEYS", &keys)
	cfg.Auth.APIKeys = splitList(keys)

	if r.err != nil {
		return Config{}, r.err
	}

	cfg.Server.Transport = strings.ToLower(cfg.Server.Transport)
	cfg.LLM.Provider = strings.ToLower(cfg.LLM.Provider)
	cfg.Observe.LogLevel = strings.ToLower(cfg.Observe.LogLevel)
	if cfg.Observe.LogLevel == "warning" {
		cfg.Observe.LogLevel = "warn"
	}
	if cfg.Observe.Debug {
		cfg.Observe.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the hard constraints. The database section is validated
// when the pool is opened so that a missing DATABASE_URL only disables
// storage and shows up in Warnings.
func (c Config) Validate() error {
	var errs []error
	if !slices.Contains(Transports, c.Server.Transport) {
		errs = append(errs, fmt.Errorf("%w: TRANSPORT must be one of %v, got %q", ErrInvalidConfig, Transports, c.Server.Transport))
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("%w: PORT out of range: %d", ErrInvalidConfig, c.Server.Port))
	}
	if !slices.Contains(LLMProviders, c.LLM.Provider) {
		errs = append(errs, fmt.Errorf("%w: unsupported LLM provider %q", ErrInvalidConfig, c.LLM.Provider))
	}
	if c.Embedding.Dims < 0 {
		errs = append(errs, fmt.Errorf("%w: EMBEDDING_MODEL_DIMS must not be negative", ErrInvalidConfig))
	}
	if !slices.Contains(observe.ValidLogLevels, c.Observe.LogLevel) {
		errs = append(errs, fmt.Errorf("%w: %w: %q", ErrInvalidConfig, observe.ErrInvalidLogLevel, c.Observe.LogLevel))
	}
	return errors.Join(errs...)
}

// Warnings lists soft configuration problems worth logging at startup.
func (c Config) Warnings() []string {
	var w []string
	if c.LLM.APIKey == "" && c.LLM.Provider != "ollama" {
		w = append(w, "WARNING: No LLM API key provided. Set LLM_API_KEY environment variable.")
	}
	if c.Database.DSN == "" {
		w = append(w, "WARNING: No database URL provided. Set DATABASE_URL environment variable.")
	}
	if c.Database.MinConns < 1 {
		w = append(w, fmt.Sprintf("WARNING: DATABASE_POOL_SIZE should be at least 1. Current value: %d", c.Database.MinConns))
	}
	if c.Database.MaxConns < c.Database.MinConns {
		w = append(w, fmt.Sprintf(
			"WARNING: DATABASE_MAX_CONNECTIONS should be >= DATABASE_POOL_SIZE. Current values: pool_size=%d, max_connections=%d",
			c.Database.MinConns, c.Database.MaxConns))
	}
	if c.Database.AcquireTimeout.Seconds() < 5 {
		w = append(w, fmt.Sprintf("WARNING: DATABASE_POOL_TIMEOUT should be at least 5 seconds. Current value: %g", c.Database.AcquireTimeout.Seconds()))
	}
	if c.Server.Transport == "sse" && !c.Auth.Enabled() {
		w = append(w, "WARNING: SSE transport has no authentication. Set MCP_AUTH_JWT_SECRET or MCP_AUTH_API_KEYS.")
	}
	return w
}

// ObserverConfig converts the section into an observe.Config.
func (c Config) ObserverConfig() observe.Config {
	o := c.Observe
	return observe.Config{
		ServiceName: o.ServiceName,
		Version:     o.Version,
		Tracing: observe.TracingConfig{
			Enabled:     o.TracesExporter != "none" && o.TracesExporter != "",
			Exporter:    o.TracesExporter,
			SampleRatio: o.SampleRatio,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  o.MetricsExporter != "none" && o.MetricsExporter != "",
			Exporter: o.MetricsExporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   o.LogLevel,
		},
		Exporter: exporters.Options{
			Endpoint: o.OTLPEndpoint,
			Insecure: o.OTLPInsecure,
		},
	}
}

// RequiredEnv names the variables a working deployment must set.
func RequiredEnv() []string {
	return []string{"DATABASE_URL", "LLM_PROVIDER", "LLM_API_KEY (not needed for ollama)", "LLM_CHOICE"}
}

type reader struct {
	ctx     context.Context
	lookup  LookupFunc
	secrets secretResolver
	err     error
}

// lookupResolved expands and resolves one variable. The first failure is
// kept in r.err and later lookups report the variable as unset.
func (r *reader) lookupResolved(key string) (string, bool) {
	if r.err != nil {
		return "", false
	}
	v, ok := r.lookup(key)
	if !ok || v == "" {
		return "", false
	}
	v, err := ExpandEnvStrict(v, r.lookup)
	if err != nil {
		r.err = fmt.Errorf("%s: %w", key, err)
		return "", false
	}
	v, err = r.secrets.resolve(r.ctx, key, v)
	if err != nil {
		r.err = err
		return "", false
	}
	return v, true
}

func (r *reader) str(key string, dst *string) {
	if v, ok := r.lookupResolved(key); ok {
		*dst = strings.TrimSpace(v)
	}
}

func (r *reader) int(key string, dst *int) {
	v, ok := r.lookupResolved(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		r.err = fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, key, v)
		return
	}
	*dst = n
}

func (r *reader) float(key string, dst *float64) {
	v, ok := r.lookupResolved(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		r.err = fmt.Errorf("%w: %s=%q is not a number", ErrInvalidConfig, key, v)
		return
	}
	*dst = f
}

func (r *reader) bool(key string, dst *bool) {
	v, ok := r.lookupResolved(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		r.err = fmt.Errorf("%w: %s=%q is not a boolean", ErrInvalidConfig, key, v)
		return
	}
	*dst = b
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
