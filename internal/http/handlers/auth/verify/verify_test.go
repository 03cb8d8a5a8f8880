package verify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/lasetdev/laset-account/internal/http/middlewarectx"
	"github.com/lasetdev/laset-account/internal/lib/errs"
	"github.com/lasetdev/laset-account/internal/models"
)

type AuthServiceMock struct {
	mock.Mock
}

func (m *AuthServiceMock) Verify(ctx context.Context, uid int, rawHWID string) (*models.User, error) {
	args := m.Called(ctx, uid, rawHWID)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestVerifyHandler_ServeHTTP(t *testing.T) {
	authMock := new(AuthServiceMock)
	logger := newNoopLogger()

	handler := New(logger, authMock)

	okUser := &models.User{
		UID:      5,
		Nickname: "Player",
		Role:     models.RoleUser,
		Status:   models.StatusNormal,
	}

	tests := []struct {
		name           string
		requestBody    interface{}
		mockUser       *models.User
		mockErr        error
		wantStatusCode int
		wantError      string
		wantStatus     string
	}{
		{
			name:           "healthy account",
			requestBody:    Request{UID: 5, HWID: "machine-a"},
			mockUser:       okUser,
			wantStatusCode: http.StatusOK,
			wantStatus:     "OK",
		},
		{
			name:           "healthy account without hwid",
			requestBody:    Request{UID: 5},
			mockUser:       okUser,
			wantStatusCode: http.StatusOK,
			wantStatus:     "OK",
		},
		{
			name:           "invalid json body",
			requestBody:    "not a json",
			wantStatusCode: http.StatusBadRequest,
			wantError:      "invalid request body",
			wantStatus:     "Error",
		},
		{
			name:           "validation error - missing uid",
			requestBody:    Request{HWID: "machine-a"},
			wantStatusCode: http.StatusUnprocessableEntity,
			wantError:      "field UID is a required field",
			wantStatus:     "Error",
		},
		{
			name:           "account not found",
			requestBody:    Request{UID: 999},
			mockErr:        errs.ErrNotFound,
			wantStatusCode: http.StatusNotFound,
			wantError:      "account not found",
			wantStatus:     "Error",
		},
		{
			name:           "banned account",
			requestBody:    Request{UID: 5},
			mockErr:        errs.ErrBanned,
			wantStatusCode: http.StatusForbidden,
			wantError:      "account banned",
			wantStatus:     "Error",
		},
		{
			name:           "leaked account",
			requestBody:    Request{UID: 5},
			mockErr:        errs.ErrLeaked,
			wantStatusCode: http.StatusForbidden,
			wantError:      "account flagged as leaked",
			wantStatus:     "Error",
		},
		{
			name:           "hwid mismatch",
			requestBody:    Request{UID: 5, HWID: "machine-b"},
			mockErr:        errs.ErrHWIDMismatch,
			wantStatusCode: http.StatusForbidden,
			wantError:      "hwid mismatch",
			wantStatus:     "Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authMock.ExpectedCalls = nil
			authMock.Calls = nil

			if tt.mockUser != nil || tt.mockErr != nil {
				req := tt.requestBody.(Request)
				authMock.On("Verify", mock.Anything, req.UID, req.HWID).
					Return(tt.mockUser, tt.mockErr).Once()
			}

			var bodyBytes []byte
			var err error
			switch v := tt.requestBody.(type) {
			case string:
				bodyBytes = []byte(v)
			default:
				bodyBytes, err = json.Marshal(tt.requestBody)
				if err != nil {
					t.Fatal(err)
				}
			}

			req := httptest.NewRequest(http.MethodPost, "/verify", bytes.NewReader(bodyBytes))
			req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "reqid123"))

			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)

			var got map[string]any
			err = json.NewDecoder(rec.Body).Decode(&got)
			assert.NoError(t, err)

			assert.Equal(t, tt.wantStatus, got["status"])

			if tt.wantError != "" {
				errStr, ok := got["error"].(string)
				assert.True(t, ok)
				assert.Equal(t, tt.wantError, errStr)
			} else {
				data, ok := got["data"].(map[string]any)
				assert.True(t, ok)
				assert.Equal(t, float64(okUser.UID), data["uid"])
				assert.Equal(t, okUser.Role, data["role"])
				assert.Equal(t, false, data["subscription_active"])
			}

			if tt.mockUser != nil || tt.mockErr != nil {
				authMock.AssertExpectations(t)
			}
		})
	}
}

func TestVerifyTokenHandler_ServeHTTP(t *testing.T) {
	authMock := new(AuthServiceMock)
	handler := NewToken(newNoopLogger(), authMock)

	t.Run("uid from context", func(t *testing.T) {
		authMock.On("Verify", mock.Anything, 5, "machine-a").
			Return(&models.User{UID: 5, Nickname: "Player", Role: models.RoleUser, Status: models.StatusNormal}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/verify?hwid=machine-a", nil)
		req = req.WithContext(context.WithValue(req.Context(), middlewarectx.UID, 5))
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var got map[string]any
		assert.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
		data, ok := got["data"].(map[string]any)
		assert.True(t, ok)
		assert.Equal(t, float64(5), data["uid"])
		assert.Equal(t, "Player", data["nickname"])
		authMock.AssertExpectations(t)
	})

	t.Run("uid missing in context", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/verify", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
