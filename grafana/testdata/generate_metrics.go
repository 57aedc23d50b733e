// Package main generates sample lifecycled metrics data to test Grafana
// dashboards without running a real daemon.
package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics for testing dashboards. Names and labels mirror pkg/lifecycle so
// dashboards built against this generator work unchanged against a daemon.
var (
	passesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifecycle_passes_total",
			Help: "Total number of lifecycle passes",
		},
		[]string{"op", "outcome"},
	)
	passDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lifecycle_pass_duration_seconds",
			Help:    "Duration of full lifecycle passes in seconds",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"op"},
	)
	hookDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lifecycle_hook_duration_seconds",
			Help:    "Duration of individual observer hook invocations in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"phase", "group"},
	)
	hookFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifecycle_hook_failures_total",
			Help: "Total number of failed observer hook invocations",
		},
		[]string{"phase", "group"},
	)
	observers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "lifecycle_observers",
			Help: "Number of registered observers seen by the most recent pass",
		},
	)
)

var (
	ops         = []string{"start", "stop"}
	startPhases = []string{"preStart", "start", "postStart"}
	stopPhases  = []string{"preStop", "stop", "postStop"}
	groups      = []string{"datasource", "messaging", "server"}
)

func init() {
	prometheus.MustRegister(
		passesTotal,
		passDuration,
		hookDuration,
		hookFailures,
		observers,
	)
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "9090"
	}

	// Generate initial sample data
	generateSampleData()

	// Start background goroutine to continuously generate data
	ctx, cancel := context.WithCancel(context.Background())
	go generateContinuousData(ctx)

	// Serve metrics
	http.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:    ":" + port,
		Handler: nil,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		cancel()
		server.Shutdown(context.Background())
	}()

	fmt.Printf("Sample metrics server running on http://localhost:%s/metrics\n", port)
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println("\nTo use with Prometheus, add this to prometheus.yml:")
	fmt.Printf("  - job_name: 'lifecycled-test'\n    static_configs:\n      - targets: ['localhost:%s']\n", port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal(err)
	}
}

// generateSampleData seeds a plausible history: mostly healthy start/stop
// passes with the occasional failed hook.
func generateSampleData() {
	observers.Set(float64(rand.Intn(8) + 2))

	for i := 0; i < 40; i++ {
		recordPass(randomChoice(ops))
	}
	for i := 0; i < 4; i++ {
		phase := randomChoice(startPhases)
		if rand.Float64() > 0.5 {
			phase = randomChoice(stopPhases)
		}
		hookFailures.WithLabelValues(phase, randomChoice(groups)).Inc()
	}
}

// recordPass emits one full pass: a hook observation per phase and group,
// then the pass counter and duration. Roughly one pass in twelve fails.
func recordPass(op string) {
	phases := startPhases
	if op == "stop" {
		phases = stopPhases
	}

	var total float64
	for _, phase := range phases {
		for _, group := range groups {
			d := rand.Float64() * 0.2
			hookDuration.WithLabelValues(phase, group).Observe(d)
			total += d
		}
	}

	outcome := "ok"
	if rand.Intn(12) == 0 {
		outcome = "error"
		hookFailures.WithLabelValues(randomChoice(phases), randomChoice(groups)).Inc()
	}
	passesTotal.WithLabelValues(op, outcome).Inc()
	passDuration.WithLabelValues(op).Observe(total)
}

func generateContinuousData(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// A restart cycle now and then, plus observer churn
			if rand.Float64() > 0.6 {
				recordPass("stop")
				recordPass("start")
			}
			if rand.Float64() > 0.8 {
				observers.Set(float64(rand.Intn(8) + 2))
			}
		}
	}
}

func randomChoice(choices []string) string {
	return choices[rand.Intn(len(choices))]
}
