package sslcommerz

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

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *metrics.Metrics) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	m := testMetrics()
	c := NewClient(config.SSLCommerzConfig{StoreID: "store", StorePassword: "pass"}, zap.NewNop(), m)
	c.baseURL = srv.URL
	return c, m
}

func TestCreateSessionReturnsRedirect(t *testing.T) {
	c, m := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "store", r.PostForm.Get("store_id"))
		w.Write([]byte(`{"status":"SUCCESS","sessionkey":"SK001","GatewayPageURL":"https://pay.example/SK001"}`))
	})

	session, err := c.CreateSession(context.Background(), gateway.CreateSessionRequest{
		TransactionID: "txn-1",
		Amount:        decimal.NewFromInt(500),
		Currency:      "BDT",
	})
	require.NoError(t, err)
	require.Equal(t, "https://pay.example/SK001", session.RedirectURL)
	require.Equal(t, "SK001", session.GatewayPaymentID)
	require.EqualValues(t, 1, testutil.ToFloat64(m.GatewayRequests.WithLabelValues(paymentdomain.GatewaySSLCommerz, "ok")))
}

func TestVerifyPaymentTrustsOnlyValidStatus(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"INVALID_TRANSACTION","tran_id":"txn-1","val_id":"val-1"}`))
	})

	ok, err := c.VerifyPayment(context.Background(), "val-1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestServerErrorCountsAndWraps(t *testing.T) {
	c, m := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.VerifyPayment(context.Background(), "val-1")
	require.ErrorIs(t, err, paymentdomain.ErrGatewayUnavailable)
	require.EqualValues(t, 1, testutil.ToFloat64(m.GatewayRequests.WithLabelValues(paymentdomain.GatewaySSLCommerz, "error")))
}
