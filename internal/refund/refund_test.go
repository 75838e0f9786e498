package refund

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	certificatedomain "github.com/pathshala-labs/pathshala/internal/certificate/domain"
	"github.com/pathshala-labs/pathshala/internal/clock"
	enrollmentrepository "github.com/pathshala-labs/pathshala/internal/enrollment/repository"
	paymentdomain "github.com/pathshala-labs/pathshala/internal/payment/domain"
	paymentrepository "github.com/pathshala-labs/pathshala/internal/payment/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testSchema = `
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
`

type fakeCertificates struct {
	exists bool
}

func (f *fakeCertificates) Issue(context.Context, snowflake.ID, snowflake.ID) (*certificatedomain.Certificate, error) {
	return nil, certificatedomain.ErrNotEligible
}

func (f *fakeCertificates) VerifyByNumber(context.Context, string) (*certificatedomain.Certificate, error) {
	return nil, certificatedomain.ErrNotFound
}

func (f *fakeCertificates) Exists(context.Context, snowflake.ID, snowflake.ID) (bool, error) {
	return f.exists, nil
}

func newTestService(t *testing.T, certs certificatedomain.Service) (*Service, *gorm.DB) {
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

	svc := NewService(Params{
		DB:             conn,
		Log:            zap.NewNop(),
		Clock:          clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)),
		PaymentRepo:    paymentrepository.Provide(),
		EnrollmentRepo: enrollmentrepository.Provide(),
		CertificateSvc: certs,
	})
	return svc, conn
}

func seedSettledPurchase(t *testing.T, conn *gorm.DB, paymentID int64, status string) {
	t.Helper()
	err := conn.Exec(
		`INSERT INTO payments (id, user_id, course_id, amount, currency, gateway, transaction_id, status, created_at, updated_at)
		 VALUES (?, 42, 100, 1000, 'BDT', 'internal', 'txn-'||?, ?, ?, ?)`,
		paymentID, paymentID, status, time.Now(), time.Now(),
	).Error
	if err != nil {
		t.Fatalf("seed payment: %v", err)
	}
	err = conn.Exec(
		`INSERT INTO enrollments (id, user_id, course_id, enrolled_at) VALUES (?, 42, 100, ?)`,
		paymentID+1000, time.Now(),
	).Error
	if err != nil {
		t.Fatalf("seed enrollment: %v", err)
	}
}

func TestRefundRevokesEnrollment(t *testing.T) {
	svc, conn := newTestService(t, &fakeCertificates{})
	seedSettledPurchase(t, conn, 1, paymentdomain.StatusSuccess)

	payment, err := svc.Refund(context.Background(), Request{PaymentID: 1, Reason: "customer request"})
	require.NoError(t, err)
	require.Equal(t, paymentdomain.StatusRefunded, payment.Status)
	require.NotNil(t, payment.RefundedAt)

	var reason string
	require.NoError(t, conn.Raw(
		`SELECT revocation_reason FROM enrollments WHERE user_id = 42 AND course_id = 100 AND revoked_at IS NOT NULL`,
	).Scan(&reason).Error)
	require.Equal(t, "Refund issued", reason)
}

func TestRefundBlockedByCertificate(t *testing.T) {
	svc, conn := newTestService(t, &fakeCertificates{exists: true})
	seedSettledPurchase(t, conn, 1, paymentdomain.StatusSuccess)

	_, err := svc.Refund(context.Background(), Request{PaymentID: 1})
	require.ErrorIs(t, err, paymentdomain.ErrCertificateIssued)

	var status string
	require.NoError(t, conn.Raw(`SELECT status FROM payments WHERE id = 1`).Scan(&status).Error)
	require.Equal(t, paymentdomain.StatusSuccess, status, "blocked refund must leave the payment untouched")

	var active int64
	require.NoError(t, conn.Raw(
		`SELECT COUNT(1) FROM enrollments WHERE user_id = 42 AND course_id = 100 AND revoked_at IS NULL`,
	).Scan(&active).Error)
	require.EqualValues(t, 1, active)
}

func TestRefundPendingPaymentRejected(t *testing.T) {
	svc, conn := newTestService(t, &fakeCertificates{})
	seedSettledPurchase(t, conn, 1, paymentdomain.StatusPending)

	_, err := svc.Refund(context.Background(), Request{PaymentID: 1})
	require.ErrorIs(t, err, paymentdomain.ErrNotRefundable)
}

func TestRefundTwiceRejected(t *testing.T) {
	svc, conn := newTestService(t, &fakeCertificates{})
	seedSettledPurchase(t, conn, 1, paymentdomain.StatusSuccess)

	_, err := svc.Refund(context.Background(), Request{PaymentID: 1})
	require.NoError(t, err)

	_, err = svc.Refund(context.Background(), Request{PaymentID: 1})
	require.ErrorIs(t, err, paymentdomain.ErrNotRefundable)
}

func TestRefundUnknownPayment(t *testing.T) {
	svc, _ := newTestService(t, &fakeCertificates{})

	_, err := svc.Refund(context.Background(), Request{PaymentID: 99})
	require.ErrorIs(t, err, paymentdomain.ErrNotFound)
}
