package sslcommerz

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pathshala-labs/pathshala/internal/config"
	"github.com/pathshala-labs/pathshala/internal/metrics"
	"github.com/pathshala-labs/pathshala/internal/payment/domain"
	"github.com/pathshala-labs/pathshala/internal/payment/gateway"
	"go.uber.org/zap"
)

const (
	sandboxBaseURL    = "https://sandbox.sslcommerz.com"
	productionBaseURL = "https://securepay.sslcommerz.com"

	sessionPath   = "/gwprocess/v4/api.php"
	validatorPath = "/validator/api/validationserverAPI.php"
)

type Client struct {
	cfg     config.SSLCommerzConfig
	log     *zap.Logger
	client  *http.Client
	metrics *metrics.Metrics

	// baseURL is overridable in tests.
	baseURL string
}

func NewClient(cfg config.SSLCommerzConfig, log *zap.Logger, m *metrics.Metrics) *Client {
	base := productionBaseURL
	if cfg.Sandbox {
		base = sandboxBaseURL
	}
	return &Client{
		cfg:     cfg,
		log:     log.Named("gateway.sslcommerz"),
		client:  &http.Client{Timeout: 10 * time.Second},
		metrics: m,
		baseURL: base,
	}
}

func (c *Client) count(result string) {
	if c.metrics != nil {
		c.metrics.GatewayRequests.WithLabelValues(domain.GatewaySSLCommerz, result).Inc()
	}
}

func (c *Client) Name() string { return domain.GatewaySSLCommerz }

type sessionResponse struct {
	Status         string `json:"status"`
	SessionKey     string `json:"sessionkey"`
	GatewayPageURL string `json:"GatewayPageURL"`
	FailedReason   string `json:"failedreason"`
}

type validationResponse struct {
	Status string `json:"status"`
	TranID string `json:"tran_id"`
	ValID  string `json:"val_id"`
}

func (c *Client) CreateSession(ctx context.Context, req gateway.CreateSessionRequest) (gateway.Session, error) {
	values := url.Values{}
	values.Set("store_id", c.cfg.StoreID)
	values.Set("store_passwd", c.cfg.StorePassword)
	values.Set("total_amount", req.Amount.StringFixed(2))
	values.Set("currency", req.Currency)
	values.Set("tran_id", req.TransactionID)
	values.Set("success_url", c.cfg.SuccessURL)
	values.Set("fail_url", c.cfg.FailURL)
	values.Set("cancel_url", c.cfg.CancelURL)
	values.Set("ipn_url", c.cfg.IPNURL)
	values.Set("cus_name", req.PayerName)
	values.Set("cus_email", req.PayerEmail)
	values.Set("cus_add1", "N/A")
	values.Set("cus_city", "Dhaka")
	values.Set("cus_country", "Bangladesh")

	var session sessionResponse
	if err := c.postForm(ctx, sessionPath, values, &session); err != nil {
		return gateway.Session{}, err
	}
	if session.GatewayPageURL == "" {
		c.log.Warn("sslcommerz session rejected", zap.String("reason", session.FailedReason))
		return gateway.Session{}, fmt.Errorf("%w: missing GatewayPageURL", domain.ErrMalformedResponse)
	}

	return gateway.Session{
		RedirectURL:      session.GatewayPageURL,
		GatewayPaymentID: session.SessionKey,
	}, nil
}

// VerifyPayment asks the validator endpoint about a val_id carried in an IPN.
// Only an explicit VALID status is trusted; the caller-supplied status flag
// never is.
func (c *Client) VerifyPayment(ctx context.Context, reference string) (bool, error) {
	values := url.Values{}
	values.Set("val_id", reference)
	values.Set("store_id", c.cfg.StoreID)
	values.Set("store_passwd", c.cfg.StorePassword)
	values.Set("format", "json")

	var validation validationResponse
	if err := c.postForm(ctx, validatorPath, values, &validation); err != nil {
		return false, err
	}

	return strings.EqualFold(validation.Status, "VALID"), nil
}

func (c *Client) postForm(ctx context.Context, path string, values url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(values.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		c.count("error")
		return fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		c.count("error")
		return fmt.Errorf("%w: status %d", domain.ErrGatewayUnavailable, resp.StatusCode)
	}
	c.count("ok")

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	return nil
}
