package config

import (
    "os"
    "path/filepath"
    "testing"
)

func writeEnvFile(t *testing.T, content string) string {
    t.Helper()
    path := filepath.Join(t.TempDir(), ".envvar-service1")
    if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
        t.Fatal(err)
    }
    return path
}

const sampleFile = `[COMMON]
G_DEFAULT_PDF_PWD=common-pw
G_SERVICE2_ENABLED=true

[POSTGRES_SERVICE1]
G_POSTGRES_SERVICE1_HOST=db.internal
G_POSTGRES_SERVICE1_PORT=5433
`

func TestProvider_SectionScopedLookup(t *testing.T) {
    p := LoadProvider(writeEnvFile(t, sampleFile))

    if got := p.Get("G_POSTGRES_SERVICE1_HOST", "POSTGRES_SERVICE1", "localhost"); got != "db.internal" {
        t.Errorf("host = %q, want db.internal", got)
    }
    if got := p.Get("G_DEFAULT_PDF_PWD", "COMMON", "x"); got != "common-pw" {
        t.Errorf("default pwd = %q", got)
    }
}

func TestProvider_AnySectionFallback(t *testing.T) {
    p := LoadProvider(writeEnvFile(t, sampleFile))

    // Key lives in POSTGRES_SERVICE1 but is asked for under COMMON.
    if got := p.Get("G_POSTGRES_SERVICE1_PORT", "COMMON", "5432"); got != "5433" {
        t.Errorf("port = %q, want any-section value 5433", got)
    }
}

func TestProvider_EnvOverridesFile(t *testing.T) {
    p := LoadProvider(writeEnvFile(t, sampleFile))

    t.Setenv("G_DEFAULT_PDF_PWD", "env-pw")
    if got := p.Get("G_DEFAULT_PDF_PWD", "COMMON", "x"); got != "env-pw" {
        t.Errorf("env override lost, got %q", got)
    }
}

func TestProvider_FallbackOnMissing(t *testing.T) {
    p := LoadProvider(writeEnvFile(t, sampleFile))

    if got := p.Get("G_NOT_THERE", "COMMON", "fallback"); got != "fallback" {
        t.Errorf("fallback = %q", got)
    }
}

func TestProvider_MissingFile(t *testing.T) {
    p := LoadProvider(filepath.Join(t.TempDir(), "nope"))
    if got := p.Get("ANY", "", "fb"); got != "fb" {
        t.Errorf("missing file must yield fallbacks, got %q", got)
    }
}

func TestLoad_Defaults(t *testing.T) {
    t.Setenv("SERVICE1_ENV_FILE", filepath.Join(t.TempDir(), "absent"))

    cfg, _ := Load()
    if cfg.Port != "8015" {
        t.Errorf("port = %q, want 8015", cfg.Port)
    }
    if cfg.DefaultPDFPassword != "operations@PRI" {
        t.Errorf("default password = %q", cfg.DefaultPDFPassword)
    }
    if cfg.Worker.Concurrency != 4 {
        t.Errorf("workers = %d, want 4", cfg.Worker.Concurrency)
    }
    if cfg.Extraction.MinTextLength != 250 || cfg.Extraction.MaxPages != 0 {
        t.Errorf("extraction config: %+v", cfg.Extraction)
    }
    if cfg.Service2.Enabled {
        t.Error("downstream notify must default to disabled")
    }
    if cfg.Database.Host != "localhost" || cfg.Database.Database != "fcr001-text-extraction" {
        t.Errorf("database defaults: %+v", cfg.Database)
    }
}

func TestLoad_S3OutputRootKeptVerbatim(t *testing.T) {
    t.Setenv("SERVICE1_ENV_FILE", filepath.Join(t.TempDir(), "absent"))
    t.Setenv("G_SERVICE1_OUTPUT_FOLDER", "s3://my-bucket/extracted")

    cfg, _ := Load()
    if cfg.OutputRoot != "s3://my-bucket/extracted" {
        t.Errorf("s3 output root mangled: %q", cfg.OutputRoot)
    }
}

func TestDatabaseConfig_DSN(t *testing.T) {
    d := DatabaseConfig{Host: "h", Database: "db", User: "u", Password: "p", Port: "5432"}
    want := "host=h port=5432 user=u password=p dbname=db sslmode=disable"
    if got := d.DSN(); got != want {
        t.Errorf("DSN = %q, want %q", got, want)
    }
}
