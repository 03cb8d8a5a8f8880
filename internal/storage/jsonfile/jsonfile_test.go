package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lasetdev/laset-account/internal/lib/errs"
	"github.com/lasetdev/laset-account/internal/models"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "users.json"))
	require.NoError(t, err)
	return s
}

func createTestUser(t *testing.T, s *Storage, email, nickname string) int {
	t.Helper()
	uid, err := s.CreateUser(context.Background(), models.User{
		Email:        email,
		Nickname:     nickname,
		PasswordHash: "hash",
		Role:         models.RoleUser,
		Status:       models.StatusNormal,
	})
	require.NoError(t, err)
	return uid
}

func TestStorage_CreateUser_AssignsSequentialUIDs(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	uid1 := createTestUser(t, s, "a@example.com", "alpha")
	uid2 := createTestUser(t, s, "b@example.com", "bravo")

	assert.Equal(t, 1, uid1)
	assert.Equal(t, 2, uid2)

	next, err := s.NextUID(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, next)
}

func TestStorage_CreateUser_UniquenessViolations(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	createTestUser(t, s, "a@example.com", "alpha")

	_, err := s.CreateUser(ctx, models.User{Email: "a@example.com", Nickname: "other"})
	assert.ErrorIs(t, err, errs.ErrEmailTaken)

	_, err = s.CreateUser(ctx, models.User{Email: "b@example.com", Nickname: "ALPHA"})
	assert.ErrorIs(t, err, errs.ErrNicknameTaken)
}

func TestStorage_GetUser(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	uid := createTestUser(t, s, "a@example.com", "Alpha")

	byUID, err := s.GetUserByUID(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", byUID.Email)

	byEmail, err := s.GetUserByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, uid, byEmail.UID)

	// Поиск по никнейму без учёта регистра.
	byNick, err := s.GetUserByNickname(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, uid, byNick.UID)

	_, err = s.GetUserByUID(ctx, 999)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestStorage_UpdateOperations(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	uid := createTestUser(t, s, "a@example.com", "alpha")

	require.NoError(t, s.UpdateRole(ctx, uid, models.RoleVIP))
	require.NoError(t, s.UpdateBanned(ctx, uid, true))
	require.NoError(t, s.UpdateStatus(ctx, uid, models.StatusLeaked))

	hash := "0123456789abcdef0123456789abcdef"
	require.NoError(t, s.UpdateHWID(ctx, uid, &hash))

	expires := time.Now().UTC().AddDate(0, 1, 0)
	require.NoError(t, s.UpdateSubscription(ctx, uid, "premium", expires))

	user, err := s.GetUserByUID(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, models.RoleVIP, user.Role)
	assert.True(t, user.Banned)
	assert.Equal(t, models.StatusLeaked, user.Status)
	require.NotNil(t, user.HWID)
	assert.Equal(t, hash, *user.HWID)
	require.NotNil(t, user.SubscriptionType)
	assert.Equal(t, "premium", *user.SubscriptionType)

	require.NoError(t, s.UpdateHWID(ctx, uid, nil))
	user, err = s.GetUserByUID(ctx, uid)
	require.NoError(t, err)
	assert.Nil(t, user.HWID)
}

func TestStorage_UpdateNickname_UniquenessPreserved(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	uid := createTestUser(t, s, "a@example.com", "alpha")
	createTestUser(t, s, "b@example.com", "bravo")

	err := s.UpdateNickname(ctx, uid, "BRAVO")
	assert.ErrorIs(t, err, errs.ErrNicknameTaken)

	require.NoError(t, s.UpdateNickname(ctx, uid, "charlie"))
	user, err := s.GetUserByUID(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, "charlie", user.Nickname)
}

func TestStorage_UpdateUnknownUID(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	assert.ErrorIs(t, s.UpdateRole(ctx, 42, models.RoleVIP), errs.ErrNotFound)
	assert.ErrorIs(t, s.DeleteUser(ctx, 42), errs.ErrNotFound)
}

func TestStorage_RecordLogin(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	uid := createTestUser(t, s, "a@example.com", "alpha")

	sessions, err := s.RecordLogin(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, 1, sessions)

	sessions, err = s.RecordLogin(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, 2, sessions)

	user, err := s.GetUserByUID(ctx, uid)
	require.NoError(t, err)
	require.NotNil(t, user.LastLogin)
	assert.WithinDuration(t, time.Now().UTC(), *user.LastLogin, time.Minute)
}

func TestStorage_ListUsers_OrderedByUID(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	createTestUser(t, s, "a@example.com", "alpha")
	createTestUser(t, s, "b@example.com", "bravo")
	createTestUser(t, s, "c@example.com", "charlie")

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 3)
	for i, u := range users {
		assert.Equal(t, i+1, u.UID)
	}
}

func TestStorage_DeleteLeakedUsers_SkipsAdmins(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	adminUID, err := s.CreateUser(ctx, models.User{
		Email: "root@example.com", Nickname: "root",
		Role: models.RoleAdmin, Status: models.StatusLeaked,
	})
	require.NoError(t, err)
	leaked := createTestUser(t, s, "a@example.com", "alpha")
	require.NoError(t, s.UpdateStatus(ctx, leaked, models.StatusLeaked))
	normal := createTestUser(t, s, "b@example.com", "bravo")

	removed, err := s.DeleteLeakedUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, err = s.GetUserByUID(ctx, leaked)
	assert.ErrorIs(t, err, errs.ErrNotFound)
	_, err = s.GetUserByUID(ctx, adminUID)
	assert.NoError(t, err)
	_, err = s.GetUserByUID(ctx, normal)
	assert.NoError(t, err)
}

func TestStorage_DeleteLeakedUsers_RollsBackOnSaveFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "users.json")
	s, err := New(path)
	require.NoError(t, err)
	ctx := context.Background()

	leaked := createTestUser(t, s, "a@example.com", "alpha")
	require.NoError(t, s.UpdateStatus(ctx, leaked, models.StatusLeaked))

	// Каталог на месте временного файла заставляет запись упасть.
	require.NoError(t, os.Mkdir(path+".tmp", 0o755))

	_, err = s.DeleteLeakedUsers(ctx)
	require.Error(t, err)

	user, err := s.GetUserByUID(ctx, leaked)
	require.NoError(t, err)
	assert.Equal(t, models.StatusLeaked, user.Status)

	require.NoError(t, os.Remove(path+".tmp"))

	removed, err := s.DeleteLeakedUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}

func TestStorage_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	s, err := New(path)
	require.NoError(t, err)
	ctx := context.Background()

	uid, err := s.CreateUser(ctx, models.User{
		Email: "a@example.com", Nickname: "alpha",
		Role: models.RoleUser, Status: models.StatusNormal,
	})
	require.NoError(t, err)
	details := "role changed to vip"
	require.NoError(t, s.AppendAudit(ctx, models.AuditEntry{
		AdminUID: 1, Action: "SET_ROLE", TargetUID: uid, Details: &details,
	}))

	reopened, err := New(path)
	require.NoError(t, err)

	user, err := reopened.GetUserByUID(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, "alpha", user.Nickname)

	count, err := reopened.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestStorage_ConcurrentRegistrationsKeepUniqueUIDs(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	const n = 20
	uids := make(chan int, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			uid, err := s.CreateUser(ctx, models.User{
				Email:    string(rune('a'+i)) + "@example.com",
				Nickname: "nick" + string(rune('a'+i)),
				Role:     models.RoleUser,
				Status:   models.StatusNormal,
			})
			if err == nil {
				uids <- uid
			}
		}(i)
	}
	wg.Wait()
	close(uids)

	seen := make(map[int]bool)
	for uid := range uids {
		assert.False(t, seen[uid], "uid %d assigned twice", uid)
		seen[uid] = true
	}
	assert.Len(t, seen, n)
}
