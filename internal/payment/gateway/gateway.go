package gateway

import (
	"context"
	"strings"

	"github.com/pathshala-labs/pathshala/internal/payment/domain"
	"github.com/shopspring/decimal"
)

// CreateSessionRequest carries everything a gateway needs to open a hosted
// checkout. TransactionID is passed as the merchant reference so callbacks can
// be correlated before the gateway assigns its own id.
type CreateSessionRequest struct {
	TransactionID string
	Amount        decimal.Decimal
	Currency      string
	PayerName     string
	PayerEmail    string
}

type Session struct {
	RedirectURL      string
	GatewayPaymentID string
}

// Client is the shared contract over both payment providers. VerifyPayment is
// only meaningful for pull-style reconciliation; push-style gateways are
// verified by webhook signature instead.
type Client interface {
	Name() string
	CreateSession(ctx context.Context, req CreateSessionRequest) (Session, error)
	VerifyPayment(ctx context.Context, reference string) (bool, error)
}

type Registry struct {
	clients map[string]Client
}

func NewRegistry(clients ...Client) *Registry {
	registry := &Registry{clients: map[string]Client{}}
	for _, client := range clients {
		if client == nil {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(client.Name()))
		if name == "" {
			continue
		}
		registry.clients[name] = client
	}
	return registry
}

func (r *Registry) Get(name string) (Client, error) {
	if r == nil {
		return nil, domain.ErrUnknownGateway
	}
	client, ok := r.clients[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, domain.ErrUnknownGateway
	}
	return client, nil
}
