package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"oiflow/config"
	"oiflow/reader/nse"
)

type recordedMessage struct {
	text    string
	isError bool
}

// recordingNotifier captures delivered messages for assertions.
type recordingNotifier struct {
	mu       sync.Mutex
	messages []recordedMessage
	fail     bool
}

func (n *recordingNotifier) Notify(ctx context.Context, text string, isError bool) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return fmt.Errorf("simulated delivery failure")
	}
	n.messages = append(n.messages, recordedMessage{text: text, isError: isError})
	return nil
}

func (n *recordingNotifier) all() []recordedMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]recordedMessage, len(n.messages))
	copy(out, n.messages)
	return out
}

func chainPayload(cePchange float64) string {
	return fmt.Sprintf(`{
		"records": {
			"underlyingValue": 48000,
			"strikePrices": [47800, 47900, 48000, 48100, 48200],
			"data": [
				{"strikePrice": 47800, "CE": {"openInterest": 500, "pchangeinOpenInterest": 2, "impliedVolatility": 3}, "PE": {"openInterest": 450, "pchangeinOpenInterest": 1, "impliedVolatility": 3}},
				{"strikePrice": 47900, "CE": {"openInterest": 600, "pchangeinOpenInterest": 4, "impliedVolatility": 3}, "PE": {"openInterest": 520, "pchangeinOpenInterest": 3, "impliedVolatility": 3}},
				{"strikePrice": 48000, "CE": {"openInterest": 900, "pchangeinOpenInterest": 6, "impliedVolatility": 3}, "PE": {"openInterest": 880, "pchangeinOpenInterest": 5, "impliedVolatility": 3}},
				{"strikePrice": 48100, "CE": {"openInterest": 1200, "pchangeinOpenInterest": %.1f, "impliedVolatility": 3}, "PE": {"openInterest": 700, "pchangeinOpenInterest": 8, "impliedVolatility": 3}},
				{"strikePrice": 48200, "CE": {"openInterest": 400, "pchangeinOpenInterest": 9, "impliedVolatility": 3}, "PE": {"openInterest": 380, "pchangeinOpenInterest": 7, "impliedVolatility": 3}}
			]
		}
	}`, cePchange)
}

func historyPayload(closes ...float64) string {
	rows := make([]string, len(closes))
	for i, c := range closes {
		rows[i] = fmt.Sprintf(`{"CH_TIMESTAMP": "2026-08-%02d", "CH_CLOSING_PRICE": %.2f}`, i+1, c)
	}
	return fmt.Sprintf(`{"data": [%s]}`, strings.Join(rows, ","))
}

// newPipelineServer serves the handshake, chain and history endpoints. The
// chain and history handlers can be overridden per test.
func newPipelineServer(t *testing.T, chain, history http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/option-chain-indices", chain)
	mux.HandleFunc("/api/historical/cm/equity", history)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "nsit", Value: "abc"})
		w.WriteHeader(http.StatusOK)
	})
	return httptest.NewServer(mux)
}

func pipelineConfig(serverURL string) *config.Config {
	return &config.Config{
		Source: config.SourceConfig{
			Nse: config.NseSourceConfig{
				BaseURL:           serverURL,
				ChainURL:          serverURL + "/api/option-chain-indices",
				HistoryURL:        serverURL + "/api/historical/cm/equity",
				Symbols:           []string{"NIFTY"},
				HistoryWindowDays: 30,
			},
		},
		Reader: config.ReaderConfig{
			Timeout: 5 * time.Second,
			Retry: config.RetryConfig{
				MaxAttempts:       3,
				BaseDelay:         time.Millisecond,
				MaxDelay:          5 * time.Millisecond,
				BackoffMultiplier: 2,
			},
			RateLimit: config.RateLimitConfig{
				MinInterval: time.Millisecond,
				BurstSize:   1,
			},
		},
		Analysis: config.AnalysisConfig{
			OiThreshold:        30,
			VolSpreadThreshold: 5,
			WatchOffsets:       []float64{-200, -100, 0, 100, 200},
			Volatility:         true,
		},
	}
}

func newTestRunner(t *testing.T, server *httptest.Server, n *recordingNotifier) *Runner {
	t.Helper()
	cfg := pipelineConfig(server.URL)
	session, err := nse.NewSession(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	return NewRunner(session, cfg, n, nil)
}

func TestRunSurgeAlert(t *testing.T) {
	server := newPipelineServer(t,
		func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(chainPayload(35)))
		},
		func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(historyPayload(100, 100, 100, 100, 100)))
		})
	defer server.Close()

	n := &recordingNotifier{}
	r := newTestRunner(t, server, n)

	if err := r.Run(context.Background(), "NIFTY"); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	msgs := n.all()
	if len(msgs) != 1 {
		t.Fatalf("expected one notification, got %d", len(msgs))
	}
	if msgs[0].isError {
		t.Errorf("surge alert must not be flagged as error")
	}
	if !strings.Contains(msgs[0].text, "48100") {
		t.Errorf("alert missing surge strike: %s", msgs[0].text)
	}
	if !strings.Contains(msgs[0].text, "35") {
		t.Errorf("alert missing OI change percent: %s", msgs[0].text)
	}
}

func TestRunShortHistoryStillAlerts(t *testing.T) {
	server := newPipelineServer(t,
		func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(chainPayload(40)))
		},
		func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(historyPayload(100, 102)))
		})
	defer server.Close()

	n := &recordingNotifier{}
	r := newTestRunner(t, server, n)

	if err := r.Run(context.Background(), "NIFTY"); err != nil {
		t.Fatalf("Run must not fail when only the volatility check is impossible: %v", err)
	}

	msgs := n.all()
	if len(msgs) != 1 {
		t.Fatalf("expected the surge alert to survive, got %d messages", len(msgs))
	}
	if strings.Contains(msgs[0].text, "Spread") {
		t.Errorf("volatility signal should have been skipped: %s", msgs[0].text)
	}
}

func TestRunNoSignals(t *testing.T) {
	server := newPipelineServer(t,
		func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(chainPayload(10)))
		},
		func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(historyPayload(100, 100, 100, 100)))
		})
	defer server.Close()

	n := &recordingNotifier{}
	r := newTestRunner(t, server, n)

	if err := r.Run(context.Background(), "NIFTY"); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if msgs := n.all(); len(msgs) != 0 {
		t.Fatalf("expected no notifications, got %v", msgs)
	}
}

func TestRunAllIsolatesSymbolFailures(t *testing.T) {
	server := newPipelineServer(t,
		func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("symbol") == "BANKNIFTY" {
				w.Write([]byte("<html>blocked</html>"))
				return
			}
			w.Write([]byte(chainPayload(35)))
		},
		func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(historyPayload(100, 100, 100, 100)))
		})
	defer server.Close()

	n := &recordingNotifier{}
	r := newTestRunner(t, server, n)

	r.RunAll(context.Background(), []string{"BANKNIFTY", "NIFTY"})

	msgs := n.all()
	if len(msgs) != 2 {
		t.Fatalf("expected a failure report and a surge alert, got %d messages", len(msgs))
	}
	if !msgs[0].isError || !strings.Contains(msgs[0].text, "BANKNIFTY") {
		t.Errorf("expected BANKNIFTY failure report first, got %+v", msgs[0])
	}
	if msgs[1].isError || !strings.Contains(msgs[1].text, "NIFTY") {
		t.Errorf("expected NIFTY surge alert second, got %+v", msgs[1])
	}
}

func TestRunNotifierFailureIsNotFatal(t *testing.T) {
	server := newPipelineServer(t,
		func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(chainPayload(35)))
		},
		func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(historyPayload(100, 100, 100, 100)))
		})
	defer server.Close()

	n := &recordingNotifier{fail: true}
	r := newTestRunner(t, server, n)

	if err := r.Run(context.Background(), "NIFTY"); err != nil {
		t.Fatalf("notification failure must not fail the run: %v", err)
	}
}
