package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConfigVerify(t *testing.T) {
	for _, tc := range []struct {
		desc          string
		cfg           Config
		expectedError string
	}{
		{desc: "default", cfg: DefaultConfig()},
		{desc: "no url", cfg: Config{}, expectedError: "notifier url must be set"},
		{
			desc:          "negative timeout",
			cfg:           Config{URL: "http://localhost", Timeout: -time.Second},
			expectedError: "notifier timeout must be >= 0, got -1s",
		},
		{
			desc:          "negative rate",
			cfg:           Config{URL: "http://localhost", EventsPerSecond: -1},
			expectedError: "notifier events per second must be >= 0, got -1",
		},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			err := tc.cfg.Verify()
			if tc.expectedError != "" {
				require.EqualError(t, err, tc.expectedError)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestHTTPNotifier(t *testing.T) {
	ctx := context.Background()
	var received []Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var ev Event
		require.NoError(t, json.NewDecoder(r.Body).Decode(&ev))
		received = append(received, ev)
		if ev.Status == StatusFailure {
			w.WriteHeader(http.StatusAccepted)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n, err := NewHTTPNotifier(Config{URL: srv.URL, Timeout: time.Second})
	require.NoError(t, err)

	code, err := n.Notify(ctx, Event{Name: "validation_success", Status: StatusSuccess})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, code)

	code, err = n.Notify(ctx, Event{Name: "validation_error_s.t_c", Status: StatusFailure})
	require.NoError(t, err)
	require.Equal(t, http.StatusAccepted, code)

	require.Equal(t, []Event{
		{Name: "validation_success", Status: StatusSuccess},
		{Name: "validation_error_s.t_c", Status: StatusFailure},
	}, received)
}

func TestHTTPNotifierPayload(t *testing.T) {
	b, err := json.Marshal(Event{Name: "validation_success", Status: StatusSuccess})
	require.NoError(t, err)
	require.JSONEq(t, `{"name": "validation_success", "status": 1}`, string(b))
}

func TestHTTPNotifierUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	n, err := NewHTTPNotifier(Config{URL: url, Timeout: time.Second})
	require.NoError(t, err)
	_, err = n.Notify(context.Background(), Event{Name: "validation_success", Status: StatusSuccess})
	require.Error(t, err)
	require.Contains(t, err.Error(), "error sending event validation_success")
}
