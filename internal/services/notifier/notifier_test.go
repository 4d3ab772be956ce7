package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/fitcoach/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/fitcoach/internal/lib/smtp"
	"github.com/magabrotheeeer/fitcoach/internal/models"
	"github.com/magabrotheeeer/fitcoach/internal/services/payment"
	"github.com/magabrotheeeer/fitcoach/internal/storage"
)

type MockAdmins struct {
	mock.Mock
}

func (m *MockAdmins) AdminByID(ctx context.Context, adminID string) (*models.Admin, error) {
	args := m.Called(ctx, adminID)
	a, _ := args.Get(0).(*models.Admin)
	return a, args.Error(1)
}

type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Connect(ctx context.Context) (smtp.Client, error) {
	args := m.Called(ctx)
	c, _ := args.Get(0).(smtp.Client)
	return c, args.Error(1)
}

func (m *MockTransport) GetSMTPUser() string {
	return m.Called().String(0)
}

type MockSMTPClient struct {
	mock.Mock
	body bytes.Buffer
}

func (m *MockSMTPClient) Mail(from string) error { return m.Called(from).Error(0) }
func (m *MockSMTPClient) Rcpt(to string) error   { return m.Called(to).Error(0) }
func (m *MockSMTPClient) Quit() error            { return m.Called().Error(0) }
func (m *MockSMTPClient) Close() error           { return m.Called().Error(0) }

func (m *MockSMTPClient) Data() (io.WriteCloser, error) {
	args := m.Called()
	if err := args.Error(0); err != nil {
		return nil, err
	}
	return nopWriteCloser{&m.body}, nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func newMocks(to string) (*MockTransport, *MockSMTPClient) {
	client := &MockSMTPClient{}
	client.On("Mail", "bot@example.com").Return(nil)
	client.On("Rcpt", to).Return(nil)
	client.On("Data").Return(nil)
	client.On("Quit").Return(nil)
	client.On("Close").Return(nil)

	tr := &MockTransport{}
	tr.On("GetSMTPUser").Return("bot@example.com")
	tr.On("Connect", mock.Anything).Return(client, nil)
	return tr, client
}

func newService(tr smtp.TransportInterface, admins AdminReader) *Service {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)), tr, admins)
}

func TestSubscriptionExpiring(t *testing.T) {
	tr, client := newMocks("coach@example.com")
	admins := &MockAdmins{}
	body, _ := json.Marshal(models.SubscriptionNotice{
		SubscriptionID: "sub-1",
		AdminID:        "adm-1",
		Email:          "coach@example.com",
		EndDate:        time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
	})

	err := newService(tr, admins).SubscriptionExpiring(context.Background(), body)

	require.NoError(t, err)
	assert.Contains(t, client.body.String(), "To: coach@example.com")
	assert.Contains(t, client.body.String(), "05/03/2026")
	admins.AssertNotCalled(t, "AdminByID", mock.Anything, mock.Anything)
	client.AssertExpectations(t)
}

func TestSubscriptionExpired_LooksUpEmail(t *testing.T) {
	tr, client := newMocks("coach@example.com")
	admins := &MockAdmins{}
	admins.On("AdminByID", mock.Anything, "adm-1").Return(&models.Admin{ID: "adm-1", Email: "coach@example.com"}, nil)
	body, _ := json.Marshal(models.SubscriptionNotice{SubscriptionID: "sub-1", AdminID: "adm-1"})

	err := newService(tr, admins).SubscriptionExpired(context.Background(), body)

	require.NoError(t, err)
	assert.Contains(t, client.body.String(), "expirou")
	admins.AssertExpectations(t)
}

func TestPayment(t *testing.T) {
	t.Run("order payment without admin is skipped", func(t *testing.T) {
		tr := &MockTransport{}
		body, _ := json.Marshal(payment.Event{OrderID: "o1", Status: "paid", OrderStatus: "paid"})

		require.NoError(t, newService(tr, &MockAdmins{}).Payment(context.Background(), body))
		tr.AssertNotCalled(t, "Connect", mock.Anything)
	})

	t.Run("active subscription", func(t *testing.T) {
		tr, client := newMocks("coach@example.com")
		admins := &MockAdmins{}
		admins.On("AdminByID", mock.Anything, "adm-1").Return(&models.Admin{ID: "adm-1", Email: "coach@example.com"}, nil)
		body, _ := json.Marshal(payment.Event{OrderID: "o1", Status: "paid", AdminID: "adm-1", SubscriptionStatus: "active"})

		require.NoError(t, newService(tr, admins).Payment(context.Background(), body))
		assert.Contains(t, client.body.String(), "o1")
	})

	t.Run("unknown admin is rejected", func(t *testing.T) {
		admins := &MockAdmins{}
		admins.On("AdminByID", mock.Anything, "adm-9").Return(nil, fmt.Errorf("storage.AdminByID: %w", storage.ErrNotFound))
		body, _ := json.Marshal(payment.Event{OrderID: "o1", AdminID: "adm-9", SubscriptionStatus: "active"})

		err := newService(&MockTransport{}, admins).Payment(context.Background(), body)
		assert.ErrorIs(t, err, rabbitmq.ErrReject)
	})
}

func TestMalformedMessageIsRejected(t *testing.T) {
	err := newService(&MockTransport{}, &MockAdmins{}).SubscriptionExpiring(context.Background(), []byte("{"))
	assert.ErrorIs(t, err, rabbitmq.ErrReject)
}

func TestSMTPFailureIsRetried(t *testing.T) {
	tr := &MockTransport{}
	tr.On("GetSMTPUser").Return("bot@example.com")
	tr.On("Connect", mock.Anything).Return(nil, errors.New("connection refused"))
	body, _ := json.Marshal(models.SubscriptionNotice{AdminID: "adm-1", Email: "coach@example.com"})

	err := newService(tr, &MockAdmins{}).SubscriptionExpired(context.Background(), body)

	require.Error(t, err)
	assert.NotErrorIs(t, err, rabbitmq.ErrReject)
}
