package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/lasetdev/laset-account/internal/lib/errs"
	"github.com/lasetdev/laset-account/internal/lib/password"
	"github.com/lasetdev/laset-account/internal/models"
)

type AdminStoreMock struct {
	mock.Mock
}

func (m *AdminStoreMock) GetUserByUID(ctx context.Context, uid int) (*models.User, error) {
	args := m.Called(ctx, uid)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *AdminStoreMock) ListUsers(ctx context.Context) ([]*models.User, error) {
	args := m.Called(ctx)
	users, _ := args.Get(0).([]*models.User)
	return users, args.Error(1)
}

func (m *AdminStoreMock) UpdateRole(ctx context.Context, uid int, role string) error {
	args := m.Called(ctx, uid, role)
	return args.Error(0)
}

func (m *AdminStoreMock) UpdateBanned(ctx context.Context, uid int, banned bool) error {
	args := m.Called(ctx, uid, banned)
	return args.Error(0)
}

func (m *AdminStoreMock) UpdateStatus(ctx context.Context, uid int, status string) error {
	args := m.Called(ctx, uid, status)
	return args.Error(0)
}

func (m *AdminStoreMock) UpdateHWID(ctx context.Context, uid int, hash *string) error {
	args := m.Called(ctx, uid, hash)
	return args.Error(0)
}

func (m *AdminStoreMock) UpdateSubscription(ctx context.Context, uid int, subscriptionType string, expires time.Time) error {
	args := m.Called(ctx, uid, subscriptionType, expires)
	return args.Error(0)
}

func (m *AdminStoreMock) DeleteUser(ctx context.Context, uid int) error {
	args := m.Called(ctx, uid)
	return args.Error(0)
}

func (m *AdminStoreMock) DeleteLeakedUsers(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *AdminStoreMock) AppendAudit(ctx context.Context, entry models.AuditEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

const adminPassword = "admin_password"

func setupAdmin(t *testing.T, store *AdminStoreMock, uid int) {
	t.Helper()
	hash, err := password.Hash(adminPassword, bcrypt.MinCost)
	require.NoError(t, err)
	store.On("GetUserByUID", mock.Anything, uid).Return(&models.User{
		UID:          uid,
		Nickname:     "root",
		PasswordHash: hash,
		Role:         models.RoleAdmin,
	}, nil)
}

func TestAdminService_Authenticate(t *testing.T) {
	userHash, err := password.Hash("user_password", bcrypt.MinCost)
	require.NoError(t, err)

	tests := []struct {
		name     string
		setup    func(store *AdminStoreMock)
		password string
		wantErr  error
	}{
		{
			name: "caller not found",
			setup: func(store *AdminStoreMock) {
				store.On("GetUserByUID", mock.Anything, 1).Return(nil, errs.ErrNotFound)
			},
			password: adminPassword,
			wantErr:  errs.ErrNotAdmin,
		},
		{
			name: "caller is not admin",
			setup: func(store *AdminStoreMock) {
				store.On("GetUserByUID", mock.Anything, 1).Return(&models.User{
					UID: 1, Role: models.RoleUser, PasswordHash: userHash,
				}, nil)
			},
			password: "user_password",
			wantErr:  errs.ErrNotAdmin,
		},
		{
			name: "wrong admin password",
			setup: func(store *AdminStoreMock) {
				setupAdmin(t, store, 1)
			},
			password: "wrong",
			wantErr:  errs.ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(AdminStoreMock)
			svc := NewAdminService(store, newNoopLogger(), nil)
			tt.setup(store)

			_, err := svc.ListUsers(context.Background(), 1, tt.password)
			assert.ErrorIs(t, err, tt.wantErr)
			store.AssertNotCalled(t, "ListUsers", mock.Anything)
		})
	}
}

func TestAdminService_ListUsers(t *testing.T) {
	store := new(AdminStoreMock)
	svc := NewAdminService(store, newNoopLogger(), nil)
	setupAdmin(t, store, 1)

	store.On("ListUsers", mock.Anything).Return([]*models.User{
		{UID: 1, Nickname: "root"},
		{UID: 2, Nickname: "player"},
	}, nil)

	users, err := svc.ListUsers(context.Background(), 1, adminPassword)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestAdminService_SetRole(t *testing.T) {
	store := new(AdminStoreMock)
	svc := NewAdminService(store, newNoopLogger(), nil)
	setupAdmin(t, store, 1)

	store.On("UpdateRole", mock.Anything, 2, models.RoleVIP).Return(nil)
	store.On("AppendAudit", mock.Anything, mock.MatchedBy(func(e models.AuditEntry) bool {
		return e.AdminUID == 1 && e.Action == "SET_ROLE" && e.TargetUID == 2
	})).Return(nil)

	err := svc.SetRole(context.Background(), 1, adminPassword, 2, models.RoleVIP)
	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestAdminService_SetRole_InvalidRole(t *testing.T) {
	store := new(AdminStoreMock)
	svc := NewAdminService(store, newNoopLogger(), nil)

	err := svc.SetRole(context.Background(), 1, adminPassword, 2, "superuser")
	assert.ErrorIs(t, err, errs.ErrInvalidRole)
	store.AssertNotCalled(t, "UpdateRole", mock.Anything, mock.Anything, mock.Anything)
}

func TestAdminService_SetBanned(t *testing.T) {
	store := new(AdminStoreMock)
	svc := NewAdminService(store, newNoopLogger(), nil)
	setupAdmin(t, store, 1)

	store.On("GetUserByUID", mock.Anything, 2).Return(&models.User{
		UID: 2, Role: models.RoleUser,
	}, nil)
	store.On("UpdateBanned", mock.Anything, 2, true).Return(nil)
	store.On("AppendAudit", mock.Anything, mock.MatchedBy(func(e models.AuditEntry) bool {
		return e.Action == "BAN" && e.TargetUID == 2
	})).Return(nil)

	err := svc.SetBanned(context.Background(), 1, adminPassword, 2, true)
	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestAdminService_SetBanned_AdminTargetProtected(t *testing.T) {
	store := new(AdminStoreMock)
	svc := NewAdminService(store, newNoopLogger(), nil)
	setupAdmin(t, store, 1)

	store.On("GetUserByUID", mock.Anything, 2).Return(&models.User{
		UID: 2, Role: models.RoleAdmin,
	}, nil)

	err := svc.SetBanned(context.Background(), 1, adminPassword, 2, true)
	assert.ErrorIs(t, err, errs.ErrProtectedAdmin)
	store.AssertNotCalled(t, "UpdateBanned", mock.Anything, mock.Anything, mock.Anything)
}

func TestAdminService_Delete_AdminTargetProtected(t *testing.T) {
	store := new(AdminStoreMock)
	svc := NewAdminService(store, newNoopLogger(), nil)
	setupAdmin(t, store, 1)

	store.On("GetUserByUID", mock.Anything, 2).Return(&models.User{
		UID: 2, Role: models.RoleAdmin,
	}, nil)

	err := svc.Delete(context.Background(), 1, adminPassword, 2)
	assert.ErrorIs(t, err, errs.ErrProtectedAdmin)
	store.AssertNotCalled(t, "DeleteUser", mock.Anything, mock.Anything)
}

func TestAdminService_Delete(t *testing.T) {
	store := new(AdminStoreMock)
	svc := NewAdminService(store, newNoopLogger(), nil)
	setupAdmin(t, store, 1)

	store.On("GetUserByUID", mock.Anything, 2).Return(&models.User{
		UID: 2, Role: models.RoleUser,
	}, nil)
	store.On("DeleteUser", mock.Anything, 2).Return(nil)
	store.On("AppendAudit", mock.Anything, mock.MatchedBy(func(e models.AuditEntry) bool {
		return e.Action == "DELETE" && e.TargetUID == 2
	})).Return(nil)

	err := svc.Delete(context.Background(), 1, adminPassword, 2)
	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestAdminService_UpdateSubscription(t *testing.T) {
	store := new(AdminStoreMock)
	svc := NewAdminService(store, newNoopLogger(), nil)
	setupAdmin(t, store, 1)

	store.On("UpdateSubscription", mock.Anything, 2, "premium", mock.MatchedBy(func(expires time.Time) bool {
		want := time.Now().UTC().AddDate(0, 0, 30)
		return expires.Sub(want).Abs() < time.Minute
	})).Return(nil)
	store.On("AppendAudit", mock.Anything, mock.Anything).Return(nil)

	err := svc.UpdateSubscription(context.Background(), 1, adminPassword, 2, "premium", 30)
	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestAdminService_UpdateSubscription_Lifetime(t *testing.T) {
	store := new(AdminStoreMock)
	svc := NewAdminService(store, newNoopLogger(), nil)
	setupAdmin(t, store, 1)

	store.On("UpdateSubscription", mock.Anything, 2, models.SubscriptionLifetime, models.LifetimeExpiry).Return(nil)
	store.On("AppendAudit", mock.Anything, mock.Anything).Return(nil)

	err := svc.UpdateSubscription(context.Background(), 1, adminPassword, 2, models.SubscriptionLifetime, 0)
	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestAdminService_ResetHWID(t *testing.T) {
	store := new(AdminStoreMock)
	svc := NewAdminService(store, newNoopLogger(), nil)
	setupAdmin(t, store, 1)

	store.On("UpdateHWID", mock.Anything, 2, (*string)(nil)).Return(nil)
	store.On("AppendAudit", mock.Anything, mock.MatchedBy(func(e models.AuditEntry) bool {
		return e.Action == "RESET_HWID" && e.TargetUID == 2
	})).Return(nil)

	err := svc.ResetHWID(context.Background(), 1, adminPassword, 2)
	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestAdminService_ClearStatus(t *testing.T) {
	store := new(AdminStoreMock)
	svc := NewAdminService(store, newNoopLogger(), nil)
	setupAdmin(t, store, 1)

	store.On("UpdateStatus", mock.Anything, 2, models.StatusNormal).Return(nil)
	store.On("AppendAudit", mock.Anything, mock.Anything).Return(nil)

	err := svc.ClearStatus(context.Background(), 1, adminPassword, 2)
	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestAdminService_ClearLeaked(t *testing.T) {
	store := new(AdminStoreMock)
	svc := NewAdminService(store, newNoopLogger(), nil)
	setupAdmin(t, store, 1)

	store.On("DeleteLeakedUsers", mock.Anything).Return(int64(3), nil)
	store.On("AppendAudit", mock.Anything, mock.MatchedBy(func(e models.AuditEntry) bool {
		return e.Action == "CLEAR_LEAKED" && e.TargetUID == 0
	})).Return(nil)

	removed, err := svc.ClearLeaked(context.Background(), 1, adminPassword)
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)
	store.AssertExpectations(t)
}

func TestAdminService_AuditFailureDoesNotBlockMutation(t *testing.T) {
	store := new(AdminStoreMock)
	svc := NewAdminService(store, newNoopLogger(), nil)
	setupAdmin(t, store, 1)

	store.On("UpdateRole", mock.Anything, 2, models.RoleBeta).Return(nil)
	store.On("AppendAudit", mock.Anything, mock.Anything).Return(errors.New("audit storage down"))

	err := svc.SetRole(context.Background(), 1, adminPassword, 2, models.RoleBeta)
	assert.NoError(t, err)
}
