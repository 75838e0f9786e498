package bkash

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pathshala-labs/pathshala/internal/config"
	"github.com/pathshala-labs/pathshala/internal/metrics"
	"github.com/pathshala-labs/pathshala/internal/payment/domain"
	"github.com/pathshala-labs/pathshala/internal/payment/gateway"
	"go.uber.org/zap"
)

const (
	grantTokenPath    = "/v1.2.0-beta/tokenized/checkout/token/grant"
	createPaymentPath = "/v1.2.0-beta/tokenized/checkout/create"
	executePath       = "/v1.2.0-beta/tokenized/checkout/execute"

	// statusCode the gateway reports for a completed payment.
	statusCodeOK = "0000"
)

type Client struct {
	cfg     config.BkashConfig
	log     *zap.Logger
	client  *http.Client
	metrics *metrics.Metrics
}

func NewClient(cfg config.BkashConfig, log *zap.Logger, m *metrics.Metrics) *Client {
	return &Client{
		cfg:     cfg,
		log:     log.Named("gateway.bkash"),
		client:  &http.Client{Timeout: 10 * time.Second},
		metrics: m,
	}
}

func (c *Client) count(result string) {
	if c.metrics != nil {
		c.metrics.GatewayRequests.WithLabelValues(domain.GatewayBkash, result).Inc()
	}
}

func (c *Client) Name() string { return domain.GatewayBkash }

type tokenResponse struct {
	IDToken string `json:"id_token"`
}

type createResponse struct {
	PaymentID string `json:"paymentID"`
	BkashURL  string `json:"bkashURL"`
}

type executeResponse struct {
	PaymentID  string `json:"paymentID"`
	StatusCode string `json:"statusCode"`
	TrxID      string `json:"trxID"`
}

// grantToken exchanges the app credentials for a short-lived bearer token.
// bKash requires a fresh token before each checkout call.
func (c *Client) grantToken(ctx context.Context) (string, error) {
	body, err := json.Marshal(map[string]string{
		"app_key":    c.cfg.AppKey,
		"app_secret": c.cfg.AppSecret,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+grantTokenPath, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("username", c.cfg.Username)
	req.Header.Set("password", c.cfg.Password)

	resp, err := c.client.Do(req)
	if err != nil {
		c.count("error")
		return "", fmt.Errorf("%w: token grant: %v", domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		c.count("error")
		return "", fmt.Errorf("%w: token grant status %d", domain.ErrGatewayUnavailable, resp.StatusCode)
	}
	c.count("ok")

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("%w: token grant body", domain.ErrMalformedResponse)
	}
	if strings.TrimSpace(token.IDToken) == "" {
		return "", fmt.Errorf("%w: empty id_token", domain.ErrMalformedResponse)
	}
	return token.IDToken, nil
}

func (c *Client) CreateSession(ctx context.Context, req gateway.CreateSessionRequest) (gateway.Session, error) {
	token, err := c.grantToken(ctx)
	if err != nil {
		return gateway.Session{}, err
	}

	payload := map[string]string{
		"mode":                  "0011",
		"payerReference":        req.PayerEmail,
		"callbackURL":           c.cfg.CallbackURL,
		"amount":                req.Amount.StringFixed(2),
		"currency":              req.Currency,
		"intent":                "sale",
		"merchantInvoiceNumber": req.TransactionID,
	}

	var created createResponse
	if err := c.post(ctx, createPaymentPath, token, payload, &created); err != nil {
		return gateway.Session{}, err
	}
	if created.PaymentID == "" || created.BkashURL == "" {
		return gateway.Session{}, fmt.Errorf("%w: missing paymentID or bkashURL", domain.ErrMalformedResponse)
	}

	return gateway.Session{
		RedirectURL:      created.BkashURL,
		GatewayPaymentID: created.PaymentID,
	}, nil
}

// VerifyPayment executes the tokenized payment and reports whether the gateway
// confirms it. Only an explicit "0000" status is trusted.
func (c *Client) VerifyPayment(ctx context.Context, reference string) (bool, error) {
	token, err := c.grantToken(ctx)
	if err != nil {
		return false, err
	}

	var executed executeResponse
	if err := c.post(ctx, executePath, token, map[string]string{"paymentID": reference}, &executed); err != nil {
		return false, err
	}

	return executed.StatusCode == statusCodeOK, nil
}

func (c *Client) post(ctx context.Context, path, token string, payload map[string]string, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-App-Key", c.cfg.AppKey)

	resp, err := c.client.Do(req)
	if err != nil {
		c.count("error")
		return fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		c.count("error")
		c.log.Warn("bkash request rejected",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
		return fmt.Errorf("%w: status %d", domain.ErrGatewayUnavailable, resp.StatusCode)
	}
	c.count("ok")

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	return nil
}
