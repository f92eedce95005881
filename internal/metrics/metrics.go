package metrics

import (
    "net/http"
    "time"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
    documentsProcessed = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "service1",
            Name:      "documents_processed_total",
            Help:      "Total documents processed by result (success, failed, locked)",
        },
        []string{"result"},
    )

    pagesExtracted = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "service1",
            Name:      "pages_extracted_total",
            Help:      "Total pages extracted by method (fitz, tesseract, failed)",
        },
        []string{"method"},
    )

    extractionDuration = prometheus.NewHistogram(
        prometheus.HistogramOpts{
            Namespace: "service1",
            Name:      "extraction_duration_seconds",
            Help:      "Per-document extraction duration from lock to notify",
            Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
        },
    )

    passwordAttempts = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "service1",
            Name:      "password_attempts_total",
            Help:      "Password authentication attempts by outcome",
        },
        []string{"outcome"},
    )

    notifyTotal = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "service1",
            Name:      "downstream_notify_total",
            Help:      "Service 2 notify calls by result",
        },
        []string{"result"},
    )

    batchesActive = prometheus.NewGauge(
        prometheus.GaugeOpts{
            Namespace: "service1",
            Name:      "batches_active",
            Help:      "Batches currently running",
        },
    )
)

// Init registers collectors.
func Init() {
    prometheus.MustRegister(documentsProcessed, pagesExtracted, extractionDuration, passwordAttempts, notifyTotal, batchesActive)
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler { return promhttp.Handler() }

func IncDocument(result string)          { documentsProcessed.WithLabelValues(result).Inc() }
func IncPage(method string)              { pagesExtracted.WithLabelValues(method).Inc() }
func ObserveExtraction(d time.Duration)  { extractionDuration.Observe(d.Seconds()) }
func IncPasswordAttempt(outcome string)  { passwordAttempts.WithLabelValues(outcome).Inc() }
func IncNotify(result string)            { notifyTotal.WithLabelValues(result).Inc() }
func BatchStarted()                      { batchesActive.Inc() }
func BatchFinished()                     { batchesActive.Dec() }
