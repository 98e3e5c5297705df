package login_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/flagship-content/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/flagship-content/internal/models"
	"github.com/magabrotheeeer/flagship-content/internal/services/auth"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) Login(ctx context.Context, email, password string) (*auth.AuthResult, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.AuthResult), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestHandler(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		setupMock      func(*ServiceMock)
		wantStatusCode int
		wantContains   string
	}{
		{
			name: "success",
			body: `{"email":"user@example.com","password":"secret123"}`,
			setupMock: func(s *ServiceMock) {
				s.On("Login", mock.Anything, "user@example.com", "secret123").
					Return(&auth.AuthResult{
						AccessToken: "jwt-token",
						TokenType:   "bearer",
						User:        models.PublicUser{UID: "uid-1", Email: "user@example.com"},
					}, nil).Once()
			},
			wantStatusCode: http.StatusOK,
			wantContains:   "jwt-token",
		},
		{
			name:           "invalid json",
			body:           "{broken",
			setupMock:      func(*ServiceMock) {},
			wantStatusCode: http.StatusBadRequest,
			wantContains:   "invalid request body",
		},
		{
			name:           "not an email",
			body:           `{"email":"not-an-email","password":"secret123"}`,
			setupMock:      func(*ServiceMock) {},
			wantStatusCode: http.StatusUnprocessableEntity,
			wantContains:   "Email",
		},
		{
			name: "wrong credentials",
			body: `{"email":"user@example.com","password":"wrong1"}`,
			setupMock: func(s *ServiceMock) {
				s.On("Login", mock.Anything, "user@example.com", "wrong1").
					Return(nil, auth.ErrInvalidCredentials).Once()
			},
			wantStatusCode: http.StatusUnauthorized,
			wantContains:   "invalid credentials",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			serviceMock := new(ServiceMock)
			tt.setupMock(serviceMock)

			handler := login.New(newNoopLogger(), serviceMock)
			req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantContains)
			serviceMock.AssertExpectations(t)
		})
	}
}
