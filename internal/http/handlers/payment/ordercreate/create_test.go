package ordercreate_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/flagship-content/internal/http/handlers/payment/ordercreate"
	"github.com/magabrotheeeer/flagship-content/internal/services/payment"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) CreatePendingSignupOrder(ctx context.Context, req payment.SignupOrderRequest) (*payment.CheckoutInfo, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.CheckoutInfo), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestHandler(t *testing.T) {
	validBody := `{"plan_id":"monthly","name":"Test User","email":"new@example.com","password":"secret123"}`

	tests := []struct {
		name           string
		body           string
		setupMock      func(*ServiceMock)
		wantStatusCode int
		wantContains   string
	}{
		{
			name: "success",
			body: validBody,
			setupMock: func(s *ServiceMock) {
				s.On("CreatePendingSignupOrder", mock.Anything, mock.MatchedBy(func(r payment.SignupOrderRequest) bool {
					return r.PlanID == "monthly" && r.Email == "new@example.com"
				})).Return(&payment.CheckoutInfo{
					OrderID:  "order_123",
					KeyID:    "rzp_test_key",
					Amount:   49900,
					Currency: "INR",
					PlanName: "Monthly Subscription",
				}, nil).Once()
			},
			wantStatusCode: http.StatusOK,
			wantContains:   "order_123",
		},
		{
			name:           "invalid json",
			body:           "{not-json",
			setupMock:      func(*ServiceMock) {},
			wantStatusCode: http.StatusBadRequest,
			wantContains:   "invalid request body",
		},
		{
			name:           "validation failure on plan",
			body:           `{"plan_id":"weekly","name":"Test User","email":"new@example.com","password":"secret123"}`,
			setupMock:      func(*ServiceMock) {},
			wantStatusCode: http.StatusUnprocessableEntity,
			wantContains:   "PlanID",
		},
		{
			name: "email taken",
			body: validBody,
			setupMock: func(s *ServiceMock) {
				s.On("CreatePendingSignupOrder", mock.Anything, mock.Anything).
					Return(nil, payment.ErrEmailTaken).Once()
			},
			wantStatusCode: http.StatusConflict,
			wantContains:   "email already registered",
		},
		{
			name: "payment not configured",
			body: validBody,
			setupMock: func(s *ServiceMock) {
				s.On("CreatePendingSignupOrder", mock.Anything, mock.Anything).
					Return(nil, payment.ErrNotConfigured).Once()
			},
			wantStatusCode: http.StatusServiceUnavailable,
			wantContains:   "not configured",
		},
		{
			name: "provider failure",
			body: validBody,
			setupMock: func(s *ServiceMock) {
				s.On("CreatePendingSignupOrder", mock.Anything, mock.Anything).
					Return(nil, payment.ErrProviderOrder).Once()
			},
			wantStatusCode: http.StatusBadGateway,
			wantContains:   "failed to create payment order",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			serviceMock := new(ServiceMock)
			tt.setupMock(serviceMock)

			handler := ordercreate.New(newNoopLogger(), serviceMock)
			req := httptest.NewRequest(http.MethodPost, "/payment/create-order", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantContains)
			serviceMock.AssertExpectations(t)
		})
	}
}

func TestHandler_DoesNotEchoPassword(t *testing.T) {
	serviceMock := new(ServiceMock)
	serviceMock.On("CreatePendingSignupOrder", mock.Anything, mock.Anything).
		Return(&payment.CheckoutInfo{OrderID: "order_1", KeyID: "k", Amount: 49900, Currency: "INR"}, nil).Once()

	handler := ordercreate.New(newNoopLogger(), serviceMock)
	body := `{"plan_id":"monthly","name":"Test","email":"a@b.c","password":"super-secret-pass"}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/payment/create-order", bytes.NewBufferString(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "super-secret-pass")

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "OK", resp["status"])
}
