package payment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/payflow/server/internal/module/payment/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mockRepository is an in-memory Repository with real compare-and-swap
// semantics, so conflict handling is exercised the way the database
// would behave.
type mockRepository struct {
	mu       sync.Mutex
	payments map[string]*domain.Payment

	createErr error
	// pendingConflicts makes the next N updates fail as lost updates,
	// each one simulating a rival writer by bumping the stored version.
	pendingConflicts int
	updateCalls      int
}

func newMockRepository() *mockRepository {
	return &mockRepository{payments: make(map[string]*domain.Payment)}
}

func clonePayment(p *domain.Payment) *domain.Payment {
	return domain.RestorePayment(
		p.ID(), p.MerchantID(), p.CustomerID(),
		p.Amount(), p.Currency(), p.Description(),
		p.Status(), p.Version(), p.CreatedAt(), p.UpdatedAt(),
	)
}

func (m *mockRepository) CreatePayment(ctx context.Context, p *domain.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if _, ok := m.payments[p.ID()]; ok {
		return ErrPaymentExists
	}
	m.payments[p.ID()] = clonePayment(p)
	return nil
}

func (m *mockRepository) GetPayment(ctx context.Context, id string) (*domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return nil, ErrPaymentNotFound
	}
	return clonePayment(p), nil
}

func (m *mockRepository) UpdatePaymentIfVersion(ctx context.Context, p *domain.Payment, expected int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++

	stored, ok := m.payments[p.ID()]
	if !ok {
		return ErrVersionConflict
	}
	if m.pendingConflicts > 0 {
		m.pendingConflicts--
		m.payments[p.ID()] = domain.RestorePayment(
			stored.ID(), stored.MerchantID(), stored.CustomerID(),
			stored.Amount(), stored.Currency(), stored.Description(),
			domain.StatusFailed, stored.Version()+1, stored.CreatedAt(), time.Now(),
		)
		return ErrVersionConflict
	}
	if stored.Version() != expected {
		return ErrVersionConflict
	}
	m.payments[p.ID()] = domain.RestorePayment(
		stored.ID(), stored.MerchantID(), stored.CustomerID(),
		stored.Amount(), stored.Currency(), stored.Description(),
		p.Status(), expected+1, stored.CreatedAt(), p.UpdatedAt(),
	)
	return nil
}

func (m *mockRepository) stored(id string) *domain.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return clonePayment(m.payments[id])
}

type mockNotifier struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (m *mockNotifier) NotifyPaymentSuccess(ctx context.Context, paymentID, customerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.calls = append(m.calls, paymentID)
	return nil
}

func (m *mockNotifier) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

type mockGateway struct {
	initiated chan ChargeInitiation
	err       error
}

func newMockGateway() *mockGateway {
	return &mockGateway{initiated: make(chan ChargeInitiation, 1)}
}

func (m *mockGateway) InitiateCharge(ctx context.Context, init ChargeInitiation) error {
	m.initiated <- init
	return m.err
}

type serviceFixture struct {
	service  *Service
	repo     *mockRepository
	notifier *mockNotifier
	gateway  *mockGateway
}

func newServiceFixture() *serviceFixture {
	repo := newMockRepository()
	notifier := &mockNotifier{}
	gateway := newMockGateway()
	return &serviceFixture{
		service: &Service{
			repo:     repo,
			notifier: notifier,
			gateway:  gateway,
			logger:   zap.NewNop(),
			runInTx: func(ctx context.Context, fn func(ctx context.Context) error) error {
				return fn(ctx)
			},
			conflictRetries: 3,
			initiateTimeout: time.Second,
		},
		repo:     repo,
		notifier: notifier,
		gateway:  gateway,
	}
}

func (f *serviceFixture) createPayment(t *testing.T, amount string) string {
	t.Helper()
	resp, err := f.service.CreatePayment(context.Background(), &CreatePaymentRequest{
		MerchantID:  "merchant-1",
		CustomerID:  "customer-1",
		Amount:      decimal.RequireFromString(amount),
		Currency:    "IDR",
		Description: "order #42",
	})
	require.NoError(t, err)
	f.waitForInitiation(t)
	return resp.PaymentID
}

func (f *serviceFixture) waitForInitiation(t *testing.T) ChargeInitiation {
	t.Helper()
	select {
	case init := <-f.gateway.initiated:
		return init
	case <-time.After(2 * time.Second):
		t.Fatal("gateway initiation was not dispatched")
		return ChargeInitiation{}
	}
}

func callback(paymentID, status, amount string) *PaymentCallbackRequest {
	return &PaymentCallbackRequest{
		PaymentID: paymentID,
		Status:    status,
		Amount:    decimal.RequireFromString(amount),
	}
}

func TestCreatePayment(t *testing.T) {
	f := newServiceFixture()

	resp, err := f.service.CreatePayment(context.Background(), &CreatePaymentRequest{
		MerchantID:  "merchant-1",
		CustomerID:  "customer-1",
		Amount:      decimal.RequireFromString("150.00"),
		Currency:    "USD",
		Description: "order #42",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, resp.PaymentID)
	assert.Equal(t, "merchant-1", resp.MerchantID)
	assert.Equal(t, "USD", resp.Currency)
	assert.Equal(t, domain.StatusInitiated, resp.Status)
	assert.True(t, resp.Amount.Equal(decimal.RequireFromString("150.00")))

	init := f.waitForInitiation(t)
	assert.Equal(t, resp.PaymentID, init.PaymentID)
	assert.True(t, init.Amount.Equal(resp.Amount))
}

func TestCreatePayment_DefaultsCurrency(t *testing.T) {
	f := newServiceFixture()

	resp, err := f.service.CreatePayment(context.Background(), &CreatePaymentRequest{
		MerchantID:  "merchant-1",
		CustomerID:  "customer-1",
		Amount:      decimal.RequireFromString("10.00"),
		Description: "order",
	})

	require.NoError(t, err)
	assert.Equal(t, DefaultCurrency, resp.Currency)
	f.waitForInitiation(t)
}

func TestCreatePayment_Validation(t *testing.T) {
	f := newServiceFixture()

	tests := []struct {
		name string
		req  *CreatePaymentRequest
	}{
		{"blank merchant", &CreatePaymentRequest{CustomerID: "c", Amount: decimal.RequireFromString("1"), Description: "d"}},
		{"blank customer", &CreatePaymentRequest{MerchantID: "m", Amount: decimal.RequireFromString("1"), Description: "d"}},
		{"blank description", &CreatePaymentRequest{MerchantID: "m", CustomerID: "c", Amount: decimal.RequireFromString("1")}},
		{"zero amount", &CreatePaymentRequest{MerchantID: "m", CustomerID: "c", Description: "d"}},
		{"negative amount", &CreatePaymentRequest{MerchantID: "m", CustomerID: "c", Amount: decimal.RequireFromString("-5"), Description: "d"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.CreatePayment(context.Background(), tt.req)
			require.Error(t, err)
		})
	}
	assert.Empty(t, f.repo.payments)
}

func TestCreatePayment_GatewayFailureDoesNotFailCreation(t *testing.T) {
	f := newServiceFixture()
	f.gateway.err = errors.New("gateway down")

	resp, err := f.service.CreatePayment(context.Background(), &CreatePaymentRequest{
		MerchantID:  "merchant-1",
		CustomerID:  "customer-1",
		Amount:      decimal.RequireFromString("10.00"),
		Description: "order",
	})

	require.NoError(t, err)
	f.waitForInitiation(t)
	assert.Equal(t, domain.StatusInitiated, f.repo.stored(resp.PaymentID).Status())
}

func TestGetPayment(t *testing.T) {
	f := newServiceFixture()
	id := f.createPayment(t, "150.00")

	resp, err := f.service.GetPayment(context.Background(), id)

	require.NoError(t, err)
	assert.Equal(t, id, resp.PaymentID)
	assert.Equal(t, domain.StatusInitiated, resp.Status)
	assert.False(t, resp.CreatedAt.IsZero())
}

func TestGetPayment_NotFound(t *testing.T) {
	f := newServiceFixture()

	_, err := f.service.GetPayment(context.Background(), "missing")

	require.ErrorIs(t, err, ErrPaymentNotFound)
}

func TestHandleCallback_Success(t *testing.T) {
	f := newServiceFixture()
	id := f.createPayment(t, "150.00")

	err := f.service.HandleCallback(context.Background(), callback(id, "SUCCESS", "150.00"))

	require.NoError(t, err)
	stored := f.repo.stored(id)
	assert.Equal(t, domain.StatusSuccess, stored.Status())
	assert.Equal(t, int64(1), stored.Version())
	assert.Equal(t, 1, f.notifier.count())
}

func TestHandleCallback_Failed(t *testing.T) {
	f := newServiceFixture()
	id := f.createPayment(t, "150.00")

	err := f.service.HandleCallback(context.Background(), callback(id, "FAILED", "150.00"))

	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, f.repo.stored(id).Status())
	assert.Zero(t, f.notifier.count())
}

func TestHandleCallback_UnrecognizedStatusBecomesUnknown(t *testing.T) {
	f := newServiceFixture()
	id := f.createPayment(t, "150.00")

	err := f.service.HandleCallback(context.Background(), callback(id, "SETTLED_MAYBE", "150.00"))

	require.NoError(t, err)
	assert.Equal(t, domain.StatusUnknown, f.repo.stored(id).Status())
	assert.Zero(t, f.notifier.count())
}

func TestHandleCallback_IdempotentReplay(t *testing.T) {
	f := newServiceFixture()
	id := f.createPayment(t, "150.00")

	require.NoError(t, f.service.HandleCallback(context.Background(), callback(id, "SUCCESS", "150.00")))
	require.NoError(t, f.service.HandleCallback(context.Background(), callback(id, "SUCCESS", "150.00")))

	stored := f.repo.stored(id)
	assert.Equal(t, domain.StatusSuccess, stored.Status())
	assert.Equal(t, int64(1), stored.Version())
	assert.Equal(t, 1, f.notifier.count())
}

func TestHandleCallback_ConflictingStatusAfterSuccessIsIgnored(t *testing.T) {
	f := newServiceFixture()
	id := f.createPayment(t, "150.00")
	require.NoError(t, f.service.HandleCallback(context.Background(), callback(id, "SUCCESS", "150.00")))

	err := f.service.HandleCallback(context.Background(), callback(id, "FAILED", "150.00"))

	require.NoError(t, err)
	stored := f.repo.stored(id)
	assert.Equal(t, domain.StatusSuccess, stored.Status())
	assert.Equal(t, int64(1), stored.Version())
	assert.Equal(t, 1, f.notifier.count())
}

func TestHandleCallback_FailedThenSuccess(t *testing.T) {
	f := newServiceFixture()
	id := f.createPayment(t, "150.00")

	require.NoError(t, f.service.HandleCallback(context.Background(), callback(id, "FAILED", "150.00")))
	require.NoError(t, f.service.HandleCallback(context.Background(), callback(id, "SUCCESS", "150.00")))

	stored := f.repo.stored(id)
	assert.Equal(t, domain.StatusSuccess, stored.Status())
	assert.Equal(t, int64(2), stored.Version())
	assert.Equal(t, 1, f.notifier.count())
}

func TestHandleCallback_AmountMismatch(t *testing.T) {
	f := newServiceFixture()
	id := f.createPayment(t, "150.00")

	err := f.service.HandleCallback(context.Background(), callback(id, "SUCCESS", "150.01"))

	require.ErrorIs(t, err, ErrAmountMismatch)
	stored := f.repo.stored(id)
	assert.Equal(t, domain.StatusInitiated, stored.Status())
	assert.Equal(t, int64(0), stored.Version())
	assert.Zero(t, f.notifier.count())
}

func TestHandleCallback_AmountMismatchBeforeReplayCheck(t *testing.T) {
	f := newServiceFixture()
	id := f.createPayment(t, "150.00")
	require.NoError(t, f.service.HandleCallback(context.Background(), callback(id, "SUCCESS", "150.00")))

	// A replayed status with a wrong amount is a mismatch, not a replay.
	err := f.service.HandleCallback(context.Background(), callback(id, "SUCCESS", "999.00"))

	require.ErrorIs(t, err, ErrAmountMismatch)
}

func TestHandleCallback_EquivalentDecimalRepresentationsMatch(t *testing.T) {
	f := newServiceFixture()
	id := f.createPayment(t, "150.00")

	err := f.service.HandleCallback(context.Background(), callback(id, "SUCCESS", "150.0000"))

	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuccess, f.repo.stored(id).Status())
}

func TestHandleCallback_NotFound(t *testing.T) {
	f := newServiceFixture()

	err := f.service.HandleCallback(context.Background(), callback("missing", "SUCCESS", "10.00"))

	require.ErrorIs(t, err, ErrPaymentNotFound)
}

func TestHandleCallback_Validation(t *testing.T) {
	f := newServiceFixture()

	assert.Error(t, f.service.HandleCallback(context.Background(), callback("", "SUCCESS", "10.00")))
	assert.Error(t, f.service.HandleCallback(context.Background(), callback("pay-1", "", "10.00")))
	assert.Error(t, f.service.HandleCallback(context.Background(), callback("pay-1", "SUCCESS", "-10.00")))
}

func TestHandleCallback_RetriesOnVersionConflict(t *testing.T) {
	f := newServiceFixture()
	id := f.createPayment(t, "150.00")
	f.repo.pendingConflicts = 1

	err := f.service.HandleCallback(context.Background(), callback(id, "SUCCESS", "150.00"))

	require.NoError(t, err)
	stored := f.repo.stored(id)
	assert.Equal(t, domain.StatusSuccess, stored.Status())
	assert.Equal(t, 2, f.repo.updateCalls)
	assert.Equal(t, 1, f.notifier.count())
}

func TestHandleCallback_ConflictSurfacesAfterRetriesExhausted(t *testing.T) {
	f := newServiceFixture()
	id := f.createPayment(t, "150.00")
	f.repo.pendingConflicts = 100

	err := f.service.HandleCallback(context.Background(), callback(id, "SUCCESS", "150.00"))

	require.ErrorIs(t, err, ErrVersionConflict)
	assert.Equal(t, 4, f.repo.updateCalls)
	assert.Zero(t, f.notifier.count())
}

func TestHandleCallback_NotifierFailureRollsBackTransition(t *testing.T) {
	f := newServiceFixture()
	id := f.createPayment(t, "150.00")
	f.notifier.err = errors.New("notifications table unavailable")

	// Mirror transactional semantics: restore the store snapshot when the
	// unit of work fails.
	f.service.runInTx = func(ctx context.Context, fn func(ctx context.Context) error) error {
		f.repo.mu.Lock()
		snapshot := clonePayment(f.repo.payments[id])
		f.repo.mu.Unlock()

		if err := fn(ctx); err != nil {
			f.repo.mu.Lock()
			f.repo.payments[id] = snapshot
			f.repo.mu.Unlock()
			return err
		}
		return nil
	}

	err := f.service.HandleCallback(context.Background(), callback(id, "SUCCESS", "150.00"))

	require.Error(t, err)
	stored := f.repo.stored(id)
	assert.Equal(t, domain.StatusInitiated, stored.Status())
	assert.Equal(t, int64(0), stored.Version())
}
