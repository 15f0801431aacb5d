package cmdutil

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type metricsConfig struct {
	listenAddr string
	pushURL    string
	pushJob    string
}

var metricsCfg = metricsConfig{
	listenAddr: "127.0.0.1:3030",
	pushJob:    "typecheck",
}

func RegisterMetricsFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(
		&metricsCfg.listenAddr,
		"metrics-listen-addr",
		metricsCfg.listenAddr,
		"Address for the metrics endpoint to listen to. Empty disables the endpoint.",
	)
	cmd.PersistentFlags().StringVar(
		&metricsCfg.pushURL,
		"metrics-push-url",
		metricsCfg.pushURL,
		"if set, URL of a Prometheus Pushgateway metrics are pushed to after each run",
	)
	cmd.PersistentFlags().StringVar(
		&metricsCfg.pushJob,
		"metrics-push-job",
		metricsCfg.pushJob,
		"job name metrics are pushed under",
	)
}

func MetricsServer(logger zerolog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := fmt.Fprint(w, "OK"); err != nil {
			logger.Err(err).Msgf("error writing to healthz")
		}
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func RunMetricsServer(logger zerolog.Logger) {
	if metricsCfg.listenAddr == "" {
		return
	}
	go func() {
		m := MetricsServer(logger)
		if err := http.ListenAndServe(metricsCfg.listenAddr, m); err != nil {
			logger.Err(err).Msgf("error exposing metrics endpoints")
		}
	}()
}

// PushMetrics pushes the default registry to the Pushgateway, if one is
// configured. Failures are logged.
func PushMetrics(logger zerolog.Logger) {
	if metricsCfg.pushURL == "" {
		return
	}
	if err := push.New(metricsCfg.pushURL, metricsCfg.pushJob).
		Gatherer(prometheus.DefaultGatherer).
		Push(); err != nil {
		logger.Err(err).Str("url", metricsCfg.pushURL).Msgf("error pushing metrics")
		return
	}
	logger.Debug().Str("url", metricsCfg.pushURL).Msgf("metrics pushed")
}
