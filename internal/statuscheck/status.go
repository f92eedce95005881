package statuscheck

import (
    "context"
    "errors"
    "net/http"
    "os"
    "os/exec"
    "path/filepath"
    "time"

    awscfg "github.com/aws/aws-sdk-go-v2/config"
    "github.com/aws/aws-sdk-go-v2/service/s3"
)

// DatabasePinger models the minimal database capability we need for status checks.
type DatabasePinger interface {
    Ping(ctx context.Context) error
}

// Checker aggregates health checks for the service's external dependencies.
type Checker struct {
    db           DatabasePinger
    s3Bucket     string
    datalakeRoot string
    outputRoot   string
    downstream   string
}

// Options configures the Checker. S3Bucket and OutputRoot are mutually
// exclusive depending on the configured storage backend.
type Options struct {
    DB           DatabasePinger
    S3Bucket     string
    DatalakeRoot string
    OutputRoot   string
    Downstream   string
}

// Status represents the readiness of a subsystem.
type Status struct {
    OK      bool   `json:"ok"`
    Message string `json:"message"`
}

// Summary bundles all subsystem statuses.
type Summary struct {
    Database   Status `json:"database"`
    Storage    Status `json:"storage"`
    Datalake   Status `json:"datalake"`
    Tesseract  Status `json:"tesseract"`
    Downstream Status `json:"downstream"`
}

// New creates a new Checker with the provided options.
func New(opts Options) *Checker {
    return &Checker{
        db:           opts.DB,
        s3Bucket:     opts.S3Bucket,
        datalakeRoot: opts.DatalakeRoot,
        outputRoot:   opts.OutputRoot,
        downstream:   opts.Downstream,
    }
}

// Summary returns the current status snapshot.
func (c *Checker) Summary(ctx context.Context) Summary {
    return Summary{
        Database:   c.checkDatabase(ctx),
        Storage:    c.checkStorage(ctx),
        Datalake:   c.checkDir(c.datalakeRoot),
        Tesseract:  c.checkTesseract(),
        Downstream: c.checkDownstream(ctx),
    }
}

func (c *Checker) checkDatabase(ctx context.Context) Status {
    if c.db == nil {
        return Status{OK: false, Message: "client unavailable"}
    }
    ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
    defer cancel()
    if err := c.db.Ping(ctx); err != nil {
        return Status{OK: false, Message: trimError(err)}
    }
    return Status{OK: true, Message: "Connected"}
}

func (c *Checker) checkStorage(ctx context.Context) Status {
    if c.s3Bucket != "" {
        return c.checkS3(ctx)
    }
    return c.checkDir(c.outputRoot)
}

func (c *Checker) checkS3(ctx context.Context) Status {
    ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
    defer cancel()
    cfg, err := awscfg.LoadDefaultConfig(ctx)
    if err != nil {
        return Status{OK: false, Message: trimError(err)}
    }
    cli := s3.NewFromConfig(cfg)
    if _, err := cli.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: &c.s3Bucket}); err != nil {
        return Status{OK: false, Message: trimError(err)}
    }
    return Status{OK: true, Message: "Connected"}
}

// checkDir probes that the directory exists and is writable.
func (c *Checker) checkDir(dir string) Status {
    if dir == "" {
        return Status{OK: false, Message: "Not configured"}
    }
    if err := os.MkdirAll(dir, 0o755); err != nil {
        return Status{OK: false, Message: trimError(err)}
    }
    probe := filepath.Join(dir, ".writecheck")
    if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
        return Status{OK: false, Message: trimError(err)}
    }
    os.Remove(probe)
    return Status{OK: true, Message: "Writable"}
}

func (c *Checker) checkDownstream(ctx context.Context) Status {
    if c.downstream == "" {
        return Status{OK: false, Message: "Not configured"}
    }
    ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
    defer cancel()
    req, _ := http.NewRequestWithContext(ctx, http.MethodGet, c.downstream, nil)
    resp, err := http.DefaultClient.Do(req)
    if err != nil {
        return Status{OK: false, Message: trimError(err)}
    }
    resp.Body.Close()
    return Status{OK: true, Message: "Reachable"}
}

func (c *Checker) checkTesseract() Status {
    if _, err := exec.LookPath("tesseract"); err != nil {
        return Status{OK: false, Message: "Binary not found"}
    }
    return Status{OK: true, Message: "Available"}
}

func trimError(err error) string {
    if err == nil {
        return ""
    }
    var netErr interface{ Timeout() bool }
    if errors.As(err, &netErr) && netErr.Timeout() {
        return "timeout"
    }
    msg := err.Error()
    if len(msg) > 120 {
        return msg[:120]
    }
    return msg
}
