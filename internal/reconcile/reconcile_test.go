package reconcile

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"github.com/pathshala-labs/pathshala/internal/clock"
	"github.com/pathshala-labs/pathshala/internal/config"
	couponrepository "github.com/pathshala-labs/pathshala/internal/coupon/repository"
	enrollmentrepository "github.com/pathshala-labs/pathshala/internal/enrollment/repository"
	paymentdomain "github.com/pathshala-labs/pathshala/internal/payment/domain"
	"github.com/pathshala-labs/pathshala/internal/payment/gateway"
	paymentrepository "github.com/pathshala-labs/pathshala/internal/payment/repository"
	paymentservice "github.com/pathshala-labs/pathshala/internal/payment/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testSchema = `
CREATE TABLE coupon_usages (
	id INTEGER PRIMARY KEY,
	coupon_id INTEGER NOT NULL,
	user_id INTEGER NOT NULL,
	used_at DATETIME NOT NULL,
	CONSTRAINT uq_coupon_usage UNIQUE (coupon_id, user_id)
);
CREATE TABLE enrollments (
	id INTEGER PRIMARY KEY,
	user_id INTEGER NOT NULL,
	course_id INTEGER NOT NULL,
	enrolled_at DATETIME NOT NULL,
	completed_at DATETIME,
	revoked_at DATETIME,
	revocation_reason TEXT
);
CREATE UNIQUE INDEX uq_enrollment_active ON enrollments (user_id, course_id) WHERE revoked_at IS NULL;
CREATE TABLE payments (
	id INTEGER PRIMARY KEY,
	user_id INTEGER NOT NULL,
	course_id INTEGER NOT NULL,
	coupon_id INTEGER,
	amount NUMERIC NOT NULL,
	currency TEXT NOT NULL,
	gateway TEXT NOT NULL,
	transaction_id TEXT NOT NULL UNIQUE,
	gateway_payment_id TEXT,
	status TEXT NOT NULL DEFAULT 'pending',
	refunded_at DATETIME,
	refund_amount NUMERIC,
	refund_reason TEXT,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE TABLE gateway_events (
	id INTEGER PRIMARY KEY,
	gateway TEXT NOT NULL,
	kind TEXT NOT NULL,
	reference TEXT NOT NULL,
	payload TEXT,
	received_at DATETIME NOT NULL
);
`

const testSecret = "test-webhook-secret"

type fakeGateway struct {
	name      string
	verified  bool
	verifyErr error
}

func (f *fakeGateway) Name() string { return f.name }

func (f *fakeGateway) CreateSession(context.Context, gateway.CreateSessionRequest) (gateway.Session, error) {
	return gateway.Session{}, nil
}

func (f *fakeGateway) VerifyPayment(context.Context, string) (bool, error) {
	return f.verified, f.verifyErr
}

func newTestService(t *testing.T, cfg config.Config, gateways ...gateway.Client) (*Service, *gorm.DB) {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := conn.Exec(testSchema).Error; err != nil {
		t.Fatalf("create schema: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	fc := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	log := zap.NewNop()
	paymentRepo := paymentrepository.Provide()

	svc := NewService(Params{
		DB:     conn,
		Log:    log,
		Config: cfg,
		GenID:  node,
		Clock:  fc,
		PaymentRepo: paymentRepo,
		PaymentLedger: paymentservice.NewService(paymentservice.Params{
			DB: conn, Log: log, GenID: node, Clock: fc, Repo: paymentRepo,
		}),
		EnrollmentRepo: enrollmentrepository.Provide(),
		CouponRepo:     couponrepository.Provide(),
		Gateways:       gateway.NewRegistry(gateways...),
	})
	return svc, conn
}

func seedPayment(t *testing.T, conn *gorm.DB, id int64, txnID, gatewayName, status string) {
	t.Helper()
	err := conn.Exec(
		`INSERT INTO payments (id, user_id, course_id, amount, currency, gateway, transaction_id, gateway_payment_id, status, created_at, updated_at)
		 VALUES (?, 42, 100, 1000, 'BDT', ?, ?, 'GW-'||?, ?, ?, ?)`,
		id, gatewayName, txnID, id, status, time.Now(), time.Now(),
	).Error
	if err != nil {
		t.Fatalf("seed payment: %v", err)
	}
}

func sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestHandlePushSettlesAndEnrolls(t *testing.T) {
	svc, conn := newTestService(t, config.Config{WebhookSecret: testSecret})
	seedPayment(t, conn, 1, "txn-1", paymentdomain.GatewayInternal, paymentdomain.StatusPending)

	body := []byte(`{"transaction_id":"txn-1","status":"success"}`)
	result, err := svc.HandlePush(context.Background(), body, sign(body))
	require.NoError(t, err)
	require.False(t, result.AlreadyProcessed)
	require.True(t, result.Enrolled)

	var status string
	require.NoError(t, conn.Raw(`SELECT status FROM payments WHERE id = 1`).Scan(&status).Error)
	require.Equal(t, paymentdomain.StatusSuccess, status)

	var enrollments int64
	require.NoError(t, conn.Raw(`SELECT COUNT(1) FROM enrollments`).Scan(&enrollments).Error)
	require.EqualValues(t, 1, enrollments)

	var events int64
	require.NoError(t, conn.Raw(`SELECT COUNT(1) FROM gateway_events`).Scan(&events).Error)
	require.EqualValues(t, 1, events)
}

func TestHandlePushReplayIsNoOp(t *testing.T) {
	svc, conn := newTestService(t, config.Config{WebhookSecret: testSecret})
	seedPayment(t, conn, 1, "txn-1", paymentdomain.GatewayInternal, paymentdomain.StatusPending)

	body := []byte(`{"transaction_id":"txn-1","status":"success"}`)
	_, err := svc.HandlePush(context.Background(), body, sign(body))
	require.NoError(t, err)

	result, err := svc.HandlePush(context.Background(), body, sign(body))
	require.NoError(t, err)
	require.True(t, result.AlreadyProcessed)

	var enrollments int64
	require.NoError(t, conn.Raw(`SELECT COUNT(1) FROM enrollments`).Scan(&enrollments).Error)
	require.EqualValues(t, 1, enrollments, "replay must not create a second enrollment")
}

func TestHandlePushRejectsBadSignature(t *testing.T) {
	svc, conn := newTestService(t, config.Config{WebhookSecret: testSecret})
	seedPayment(t, conn, 1, "txn-1", paymentdomain.GatewayInternal, paymentdomain.StatusPending)

	body := []byte(`{"transaction_id":"txn-1","status":"success"}`)
	_, err := svc.HandlePush(context.Background(), body, "deadbeef")
	require.ErrorIs(t, err, paymentdomain.ErrInvalidSignature)

	var status string
	require.NoError(t, conn.Raw(`SELECT status FROM payments WHERE id = 1`).Scan(&status).Error)
	require.Equal(t, paymentdomain.StatusPending, status, "payment must stay pending")
}

func TestHandlePushMissingSecretFailsClosedInProduction(t *testing.T) {
	svc, _ := newTestService(t, config.Config{Environment: "production"})

	body := []byte(`{"transaction_id":"txn-1","status":"success"}`)
	_, err := svc.HandlePush(context.Background(), body, sign(body))
	require.ErrorIs(t, err, paymentdomain.ErrSecretMissing)
}

func TestHandlePushMissingSecretAllowsInDevelopment(t *testing.T) {
	svc, conn := newTestService(t, config.Config{Environment: "development"})
	seedPayment(t, conn, 1, "txn-1", paymentdomain.GatewayInternal, paymentdomain.StatusPending)

	body := []byte(`{"transaction_id":"txn-1","status":"success"}`)
	result, err := svc.HandlePush(context.Background(), body, "")
	require.NoError(t, err)
	require.True(t, result.Enrolled)
}

func TestHandlePushUnknownTransaction(t *testing.T) {
	svc, _ := newTestService(t, config.Config{WebhookSecret: testSecret})

	body := []byte(`{"transaction_id":"missing","status":"success"}`)
	_, err := svc.HandlePush(context.Background(), body, sign(body))
	require.ErrorIs(t, err, paymentdomain.ErrNotFound)
}

func TestHandlePushReportedFailureFailsPayment(t *testing.T) {
	svc, conn := newTestService(t, config.Config{WebhookSecret: testSecret})
	seedPayment(t, conn, 1, "txn-1", paymentdomain.GatewayInternal, paymentdomain.StatusPending)

	body := []byte(`{"transaction_id":"txn-1","status":"failed"}`)
	result, err := svc.HandlePush(context.Background(), body, sign(body))
	require.NoError(t, err)
	require.Equal(t, paymentdomain.StatusFailed, result.Status)

	var enrollments int64
	require.NoError(t, conn.Raw(`SELECT COUNT(1) FROM enrollments`).Scan(&enrollments).Error)
	require.EqualValues(t, 0, enrollments)
}

func TestHandleBkashVerifiedSettles(t *testing.T) {
	gw := &fakeGateway{name: paymentdomain.GatewayBkash, verified: true}
	svc, conn := newTestService(t, config.Config{WebhookSecret: testSecret}, gw)
	seedPayment(t, conn, 1, "txn-1", paymentdomain.GatewayBkash, paymentdomain.StatusPending)

	result, err := svc.HandleBkash(context.Background(), "GW-1", nil)
	require.NoError(t, err)
	require.True(t, result.Enrolled)

	var status string
	require.NoError(t, conn.Raw(`SELECT status FROM payments WHERE id = 1`).Scan(&status).Error)
	require.Equal(t, paymentdomain.StatusSuccess, status)
}

func TestHandleBkashCancelFailsPendingImmediately(t *testing.T) {
	svc, conn := newTestService(t, config.Config{WebhookSecret: testSecret})
	seedPayment(t, conn, 1, "txn-1", paymentdomain.GatewayBkash, paymentdomain.StatusPending)

	result, err := svc.HandleBkashCancel(context.Background(), "GW-1", nil)
	require.NoError(t, err)
	require.Equal(t, paymentdomain.StatusFailed, result.Status)

	var status string
	require.NoError(t, conn.Raw(`SELECT status FROM payments WHERE id = 1`).Scan(&status).Error)
	require.Equal(t, paymentdomain.StatusFailed, status, "abandoned checkout must not linger pending")
}

func TestHandleBkashCancelLeavesSettledPayment(t *testing.T) {
	svc, conn := newTestService(t, config.Config{WebhookSecret: testSecret})
	seedPayment(t, conn, 1, "txn-1", paymentdomain.GatewayBkash, paymentdomain.StatusSuccess)

	result, err := svc.HandleBkashCancel(context.Background(), "GW-1", nil)
	require.NoError(t, err)
	require.True(t, result.AlreadyProcessed)
	require.Equal(t, paymentdomain.StatusSuccess, result.Status)
}

func TestHandleBkashUnverifiedFails(t *testing.T) {
	gw := &fakeGateway{name: paymentdomain.GatewayBkash, verified: false}
	svc, conn := newTestService(t, config.Config{WebhookSecret: testSecret}, gw)
	seedPayment(t, conn, 1, "txn-1", paymentdomain.GatewayBkash, paymentdomain.StatusPending)

	result, err := svc.HandleBkash(context.Background(), "GW-1", nil)
	require.NoError(t, err)
	require.Equal(t, paymentdomain.StatusFailed, result.Status)
}

func TestHandleSSLCommerzInvalidValidation(t *testing.T) {
	gw := &fakeGateway{name: paymentdomain.GatewaySSLCommerz, verified: false}
	svc, conn := newTestService(t, config.Config{WebhookSecret: testSecret}, gw)
	seedPayment(t, conn, 1, "txn-1", paymentdomain.GatewaySSLCommerz, paymentdomain.StatusPending)

	_, err := svc.HandleSSLCommerz(context.Background(), "txn-1", "val-1", nil)
	require.ErrorIs(t, err, paymentdomain.ErrInvalidSignature)

	var status string
	require.NoError(t, conn.Raw(`SELECT status FROM payments WHERE id = 1`).Scan(&status).Error)
	require.Equal(t, paymentdomain.StatusFailed, status, "validator rejection must fail the payment")

	var enrollments int64
	require.NoError(t, conn.Raw(`SELECT COUNT(1) FROM enrollments`).Scan(&enrollments).Error)
	require.EqualValues(t, 0, enrollments)
}

func TestHandleSSLCommerzInvalidValidationNeverDowngradesSettled(t *testing.T) {
	gw := &fakeGateway{name: paymentdomain.GatewaySSLCommerz, verified: false}
	svc, conn := newTestService(t, config.Config{WebhookSecret: testSecret}, gw)
	seedPayment(t, conn, 1, "txn-1", paymentdomain.GatewaySSLCommerz, paymentdomain.StatusSuccess)

	result, err := svc.HandleSSLCommerz(context.Background(), "txn-1", "val-1", nil)
	require.NoError(t, err)
	require.True(t, result.AlreadyProcessed)

	var status string
	require.NoError(t, conn.Raw(`SELECT status FROM payments WHERE id = 1`).Scan(&status).Error)
	require.Equal(t, paymentdomain.StatusSuccess, status)
}

func TestRefundedPaymentNeverResettled(t *testing.T) {
	svc, conn := newTestService(t, config.Config{WebhookSecret: testSecret})
	seedPayment(t, conn, 1, "txn-1", paymentdomain.GatewayInternal, paymentdomain.StatusRefunded)

	body := []byte(`{"transaction_id":"txn-1","status":"success"}`)
	result, err := svc.HandlePush(context.Background(), body, sign(body))
	require.NoError(t, err)
	require.True(t, result.AlreadyProcessed)

	var status string
	require.NoError(t, conn.Raw(`SELECT status FROM payments WHERE id = 1`).Scan(&status).Error)
	require.Equal(t, paymentdomain.StatusRefunded, status, "refunded payment must keep its status")

	var enrollments int64
	require.NoError(t, conn.Raw(`SELECT COUNT(1) FROM enrollments`).Scan(&enrollments).Error)
	require.EqualValues(t, 0, enrollments)
}
