package config

import (
    "os"
    "path/filepath"
    "strconv"
    "strings"
    "time"

    "github.com/joho/godotenv"
)

// Provider gives read-only access to the .envvar-service1 key/value file.
// Lookup precedence: process environment > section-scoped value > any-section
// value > fallback.
type Provider struct {
    sections map[string]map[string]string
    order    []string
}

// LoadProvider parses an INI-style env file. Section bodies are plain
// KEY=value lines; a missing file yields an empty provider (fallbacks apply).
func LoadProvider(path string) *Provider {
    p := &Provider{sections: map[string]map[string]string{}}
    data, err := os.ReadFile(path)
    if err != nil {
        return p
    }

    current := ""
    var body []string
    flush := func() {
        if len(body) == 0 {
            return
        }
        vals, err := godotenv.Unmarshal(strings.Join(body, "\n"))
        if err != nil {
            body = body[:0]
            return
        }
        sec, ok := p.sections[current]
        if !ok {
            sec = map[string]string{}
            p.sections[current] = sec
            p.order = append(p.order, current)
        }
        for k, v := range vals {
            sec[k] = v
        }
        body = body[:0]
    }

    for _, line := range strings.Split(string(data), "\n") {
        trimmed := strings.TrimSpace(line)
        if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
            flush()
            current = strings.TrimSuffix(strings.TrimPrefix(trimmed, "["), "]")
            continue
        }
        body = append(body, line)
    }
    flush()
    return p
}

// Get resolves a key. Environment variables with the same name win over the
// file so container deployments can override without editing it.
func (p *Provider) Get(key, section, fallback string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    if section != "" {
        if sec, ok := p.sections[section]; ok {
            if v, ok := sec[key]; ok {
                return v
            }
        }
    }
    for _, name := range p.order {
        if v, ok := p.sections[name][key]; ok {
            return v
        }
    }
    return fallback
}

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
    Level      string
    Pretty     bool
    File       string
    MaxSizeMB  int
    MaxBackups int
    MaxAgeDays int
    Compress   bool
}

// AxiomConfig holds Axiom logging configuration.
type AxiomConfig struct {
    Send          bool
    APIKey        string
    OrgID         string
    Dataset       string
    FlushInterval time.Duration
}

// DatabaseConfig holds the Service 1 Postgres connection settings.
type DatabaseConfig struct {
    Host     string
    Database string
    User     string
    Password string
    Port     string
}

// DSN renders a pgx-compatible connection string.
func (d DatabaseConfig) DSN() string {
    return "host=" + d.Host + " port=" + d.Port + " user=" + d.User +
        " password=" + d.Password + " dbname=" + d.Database + " sslmode=disable"
}

// Service2Config controls the downstream notify call.
type Service2Config struct {
    Enabled  bool
    BaseURL  string
    Endpoint string
    Timeout  time.Duration
}

// WorkerConfig defines batch parallelism.
type WorkerConfig struct {
    Concurrency int
}

// ExtractionConfig bounds per-document extraction.
type ExtractionConfig struct {
    MaxPages      int // 0 means no limit
    MinTextLength int
}

// Config is the top-level configuration.
type Config struct {
    Logging    LoggingConfig
    Axiom      AxiomConfig
    Database   DatabaseConfig
    Service2   Service2Config
    Worker     WorkerConfig
    Extraction ExtractionConfig

    DatalakeRoot       string
    OutputRoot         string
    DefaultPDFPassword string
    Port               string
}

// Load reads the .envvar-service1 file (path from SERVICE1_ENV_FILE, default
// "./.envvar-service1") and the environment.
func Load() (Config, *Provider) {
    envFile := getEnv("SERVICE1_ENV_FILE", ".envvar-service1")
    p := LoadProvider(envFile)

    cfg := Config{}

    cfg.Logging = LoggingConfig{
        Level:      getEnv("LOG_LEVEL", "info"),
        Pretty:     parseBool(getEnv("LOG_PRETTY", devDefaultPretty())),
        File:       getEnv("LOG_FILE", "logs/textextract.log"),
        MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "100"), 100),
        MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "10"), 10),
        MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "30"), 30),
        Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
    }

    baseDataset := getEnv("AXIOM_DATASET", "dev")
    cfg.Axiom = AxiomConfig{
        Send:          parseBool(getEnv("SEND_LOGS_TO_AXIOM", "0")),
        APIKey:        getEnv("AXIOM_API_KEY", ""),
        OrgID:         getEnv("AXIOM_ORG_ID", ""),
        Dataset:       baseDataset + "_textextract",
        FlushInterval: parseDuration(getEnv("AXIOM_FLUSH_INTERVAL", "10s"), 10*time.Second),
    }

    cfg.Database = DatabaseConfig{
        Host:     p.Get("G_POSTGRES_SERVICE1_HOST", "POSTGRES_SERVICE1", "localhost"),
        Database: p.Get("G_POSTGRES_SERVICE1_DATABASE", "POSTGRES_SERVICE1", "fcr001-text-extraction"),
        User:     p.Get("G_POSTGRES_SERVICE1_USER", "POSTGRES_SERVICE1", "postgres"),
        Password: p.Get("G_POSTGRES_SERVICE1_PASSWORD", "POSTGRES_SERVICE1", "postgres"),
        Port:     p.Get("G_POSTGRES_SERVICE1_PORT", "POSTGRES_SERVICE1", "5432"),
    }

    cfg.DatalakeRoot = expandHome(p.Get("G_AITHON_DATALAKE", "COMMON",
        "~/projects/aithon/aithon_output/datalake-fcr001"))

    // S3 roots keep the s3:// form; local roots get ~ expanded.
    rawOutput := p.Get("G_SERVICE1_OUTPUT_FOLDER", "COMMON",
        "~/projects/aithon/aithon_output/service1-extracted-text")
    if strings.HasPrefix(strings.ToLower(rawOutput), "s3://") {
        cfg.OutputRoot = rawOutput
    } else {
        cfg.OutputRoot = expandHome(rawOutput)
    }

    cfg.DefaultPDFPassword = p.Get("G_DEFAULT_PDF_PWD", "COMMON", "operations@PRI")

    cfg.Service2 = Service2Config{
        Enabled:  strings.EqualFold(p.Get("G_SERVICE2_ENABLED", "COMMON", "false"), "true"),
        BaseURL:  p.Get("G_SERVICE2_BASE_URL", "COMMON", "http://localhost:8006"),
        Endpoint: p.Get("G_SERVICE2_ENDPOINT", "COMMON", "/api/document-classification/classify"),
        Timeout:  time.Duration(parseInt(p.Get("G_SERVICE2_TIMEOUT", "COMMON", "30"), 30)) * time.Second,
    }

    cfg.Worker = WorkerConfig{
        Concurrency: parseInt(getEnv("SERVICE1_WORKERS", "4"), 4),
    }

    cfg.Extraction = ExtractionConfig{
        MaxPages:      parseInt(getEnv("SERVICE1_MAX_PAGES", "0"), 0),
        MinTextLength: parseInt(getEnv("SERVICE1_MIN_TEXT_LENGTH", "250"), 250),
    }

    cfg.Port = getEnv("SERVICE1_PORT", "8015")

    return cfg, p
}

// Helpers
func getEnv(key, def string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return def
}

func parseInt(s string, def int) int {
    if s == "" { return def }
    if n, err := strconv.Atoi(s); err == nil { return n }
    return def
}

func parseBool(s string) bool {
    v := strings.ToLower(strings.TrimSpace(s))
    return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseDuration(s string, def time.Duration) time.Duration {
    if s == "" { return def }
    if d, err := time.ParseDuration(s); err == nil { return d }
    return def
}

func devDefaultPretty() string {
    env := strings.ToLower(os.Getenv("ENVIRONMENT"))
    if env == "dev" || env == "development" || env == "local" { return "true" }
    return "false"
}

func expandHome(path string) string {
    if path == "~" || strings.HasPrefix(path, "~/") {
        if home, err := os.UserHomeDir(); err == nil {
            return filepath.Join(home, strings.TrimPrefix(path, "~"))
        }
    }
    return path
}
