package report

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cockroachdb/typecheck/notify"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

const SuccessEventName = "validation_success"

var (
	notificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "typecheck",
		Subsystem: "notify",
		Name:      "events_total",
		Help:      "Number of events sent to the notifier, by outcome.",
	}, []string{"outcome"})
)

// EventName is the notifier event name for a violation.
func EventName(v Violation) string {
	return fmt.Sprintf("validation_error_%s_%s", v.SafeString(), v.Column)
}

// NotifierReporter sends one event per violation and one event per success.
// Delivery is best effort: failures are logged and never surfaced.
type NotifierReporter struct {
	Notifier notify.Notifier
	Logger   zerolog.Logger
}

func (n NotifierReporter) Report(ctx context.Context, obj ReportableObject) {
	switch obj := obj.(type) {
	case Violation:
		n.send(ctx, notify.Event{Name: EventName(obj), Status: notify.StatusFailure})
	case Success:
		n.send(ctx, notify.Event{Name: SuccessEventName, Status: notify.StatusSuccess})
	}
}

func (n NotifierReporter) send(ctx context.Context, ev notify.Event) {
	code, err := n.Notifier.Notify(ctx, ev)
	if err != nil {
		notificationsSent.WithLabelValues("error").Inc()
		n.Logger.Error().Err(err).Str("event", ev.Name).Msgf("error sending event to notifier")
		return
	}
	if code < http.StatusOK || code >= http.StatusMultipleChoices {
		notificationsSent.WithLabelValues("rejected").Inc()
		n.Logger.Warn().Str("event", ev.Name).Int("status_code", code).Msgf("event rejected by notifier")
		return
	}
	notificationsSent.WithLabelValues("sent").Inc()
	n.Logger.Info().Str("event", ev.Name).Int("status_code", code).Msgf("event sent to notifier")
}

func (n NotifierReporter) Close() {
}
