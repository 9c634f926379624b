package metrics

import (
	"sync"

	"wallet_session/internal/domain/entity"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ProviderCalls counts signing provider calls by JSON-RPC method and outcome code.
	ProviderCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wallet_session",
		Name:      "provider_calls_total",
		Help:      "Signing provider calls by method and outcome.",
	}, []string{"method", "outcome"})

	// TokenAdds counts add-token attempts by outcome code.
	TokenAdds = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wallet_session",
		Name:      "token_adds_total",
		Help:      "Add-token attempts by outcome.",
	}, []string{"outcome"})

	// HistoryFetches counts history service fetches by outcome code.
	HistoryFetches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wallet_session",
		Name:      "history_fetches_total",
		Help:      "History service fetches by outcome.",
	}, []string{"outcome"})

	// SessionState reports the current connection state as a number (see entity.ConnectionState).
	SessionState = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "wallet_session",
		Name:      "session_state",
		Help:      "Current wallet session connection state (0=disconnected,1=connecting,2=connected,3=failed).",
	})

	registerOnce sync.Once
)

// MustRegisterMetrics registers all collectors with the default registry. Safe to call more than once.
func MustRegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(ProviderCalls, TokenAdds, HistoryFetches, SessionState)
	})
}

// Outcome turns an error into a low-cardinality label value.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return entity.ErrorCode(err)
}
