package bkash

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/pathshala-labs/pathshala/internal/config"
	"github.com/pathshala-labs/pathshala/internal/metrics"
	paymentdomain "github.com/pathshala-labs/pathshala/internal/payment/domain"
	"github.com/pathshala-labs/pathshala/internal/payment/gateway"
	"go.uber.org/zap"
)

func testMetrics() *metrics.Metrics {
	return &metrics.Metrics{
		GatewayRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_requests_total",
		}, []string{"gateway", "result"}),
	}
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *metrics.Metrics) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	m := testMetrics()
	c := NewClient(config.BkashConfig{
		BaseURL:   srv.URL,
		Username:  "user",
		Password:  "pass",
		AppKey:    "key",
		AppSecret: "secret",
	}, zap.NewNop(), m)
	return c, m
}

func TestCreateSessionGrantsTokenThenCreates(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(grantTokenPath, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "user", r.Header.Get("username"))
		w.Write([]byte(`{"id_token":"tok"}`))
	})
	mux.HandleFunc(createPaymentPath, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Write([]byte(`{"paymentID":"TR001","bkashURL":"https://pay.example/TR001"}`))
	})
	c, m := newTestClient(t, mux)

	session, err := c.CreateSession(context.Background(), gateway.CreateSessionRequest{
		TransactionID: "txn-1",
		Amount:        decimal.NewFromInt(1000),
		Currency:      "BDT",
	})
	require.NoError(t, err)
	require.Equal(t, "TR001", session.GatewayPaymentID)
	require.Equal(t, "https://pay.example/TR001", session.RedirectURL)
	require.EqualValues(t, 2, testutil.ToFloat64(m.GatewayRequests.WithLabelValues(paymentdomain.GatewayBkash, "ok")))
}

func TestVerifyPaymentTrustsOnlyZeroStatusCode(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(grantTokenPath, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id_token":"tok"}`))
	})
	mux.HandleFunc(executePath, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"paymentID":"TR001","statusCode":"2023","trxID":""}`))
	})
	c, _ := newTestClient(t, mux)

	ok, err := c.VerifyPayment(context.Background(), "TR001")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestTokenGrantFailureCountsError(t *testing.T) {
	c, m := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := c.VerifyPayment(context.Background(), "TR001")
	require.ErrorIs(t, err, paymentdomain.ErrGatewayUnavailable)
	require.EqualValues(t, 1, testutil.ToFloat64(m.GatewayRequests.WithLabelValues(paymentdomain.GatewayBkash, "error")))
}
