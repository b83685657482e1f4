package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"mentor-hub/backend/config"
	"mentor-hub/backend/internal/dto"
	"mentor-hub/backend/internal/model"
	"mentor-hub/backend/internal/permission"
	"mentor-hub/backend/pkg/jwt"
)

// fakeBlacklist 内存 Token 黑名单
type fakeBlacklist struct {
	revoked map[string]time.Duration
}

func newFakeBlacklist() *fakeBlacklist {
	return &fakeBlacklist{revoked: make(map[string]time.Duration)}
}

func (b *fakeBlacklist) BlacklistToken(_ context.Context, jti string, ttl time.Duration) error {
	b.revoked[jti] = ttl
	return nil
}

func (b *fakeBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	_, ok := b.revoked[jti]
	return ok, nil
}

func testAuthConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:       "test-secret-key-for-unit-testing-2026",
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: 7 * 24 * time.Hour,
		},
	}
}

func seedUser(t *testing.T, store *memStore, email, password, role string, active bool) *model.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("密码哈希失败: %v", err)
	}
	u := &model.User{
		UserID:       store.nextID("user"),
		Name:         "测试用户",
		Email:        email,
		ExternalID:   "EXT-" + email,
		PasswordHash: string(hash),
		Role:         role,
		IsActive:     active,
	}
	store.users[u.UserID] = u
	return u
}

func newTestAuthService(store *memStore, bl TokenBlacklist) (AuthService, *jwt.Manager) {
	cfg := testAuthConfig()
	mgr := jwt.NewManager(&cfg.Auth)
	return NewAuthService(cfg, store.repository(), mgr, bl, zap.NewNop()), mgr
}

func TestLogin_Success(t *testing.T) {
	store := newMemStore()
	user := seedUser(t, store, "mentor@example.com", "secret123", "mentor", true)
	svc, mgr := newTestAuthService(store, nil)

	resp, err := svc.Login(context.Background(), &dto.LoginRequest{Email: "mentor@example.com", Password: "secret123"})
	if err != nil {
		t.Fatalf("登录失败: %v", err)
	}
	if resp.User.ID != user.UserID {
		t.Errorf("期望用户 %s，实际 %s", user.UserID, resp.User.ID)
	}
	if resp.ExpiresIn != int((15 * time.Minute).Seconds()) {
		t.Errorf("ExpiresIn 不正确: %d", resp.ExpiresIn)
	}

	claims, err := mgr.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("解析 AccessToken 失败: %v", err)
	}
	if claims.Role != "mentor" || claims.ExternalID != user.ExternalID {
		t.Errorf("Token 身份不正确: %+v", claims.Identity())
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	store := newMemStore()
	seedUser(t, store, "a@example.com", "secret123", "admin", true)
	svc, _ := newTestAuthService(store, nil)

	_, err := svc.Login(context.Background(), &dto.LoginRequest{Email: "a@example.com", Password: "wrong"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("期望 ErrInvalidCredentials，实际: %v", err)
	}
}

func TestLogin_UnknownEmail(t *testing.T) {
	svc, _ := newTestAuthService(newMemStore(), nil)

	_, err := svc.Login(context.Background(), &dto.LoginRequest{Email: "nobody@example.com", Password: "x"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("期望 ErrInvalidCredentials，实际: %v", err)
	}
}

func TestLogin_Inactive(t *testing.T) {
	store := newMemStore()
	seedUser(t, store, "off@example.com", "secret123", "mentee", false)
	svc, _ := newTestAuthService(store, nil)

	_, err := svc.Login(context.Background(), &dto.LoginRequest{Email: "off@example.com", Password: "secret123"})
	if !errors.Is(err, ErrUserInactive) {
		t.Errorf("期望 ErrUserInactive，实际: %v", err)
	}
}

func TestRefresh_RotatesAndRevokesOldToken(t *testing.T) {
	store := newMemStore()
	seedUser(t, store, "m@example.com", "secret123", "mentor", true)
	bl := newFakeBlacklist()
	svc, mgr := newTestAuthService(store, bl)
	ctx := context.Background()

	login, err := svc.Login(ctx, &dto.LoginRequest{Email: "m@example.com", Password: "secret123"})
	if err != nil {
		t.Fatalf("登录失败: %v", err)
	}

	refreshed, err := svc.Refresh(ctx, &dto.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	if err != nil {
		t.Fatalf("刷新失败: %v", err)
	}
	if refreshed.AccessToken == "" || refreshed.RefreshToken == login.RefreshToken {
		t.Error("刷新后应签发新的 Token 对")
	}

	old, _ := mgr.ParseToken(login.RefreshToken)
	if _, ok := bl.revoked[old.ID]; !ok {
		t.Error("旧 RefreshToken 应加入黑名单")
	}

	// 旧 token 重放
	if _, err := svc.Refresh(ctx, &dto.RefreshTokenRequest{RefreshToken: login.RefreshToken}); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Errorf("重放旧 RefreshToken 期望 ErrInvalidRefreshToken，实际: %v", err)
	}
}

func TestRefresh_RejectsAccessToken(t *testing.T) {
	store := newMemStore()
	seedUser(t, store, "m@example.com", "secret123", "mentor", true)
	svc, _ := newTestAuthService(store, nil)
	ctx := context.Background()

	login, _ := svc.Login(ctx, &dto.LoginRequest{Email: "m@example.com", Password: "secret123"})
	if _, err := svc.Refresh(ctx, &dto.RefreshTokenRequest{RefreshToken: login.AccessToken}); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Errorf("期望 ErrInvalidRefreshToken，实际: %v", err)
	}
}

func TestLogout(t *testing.T) {
	bl := newFakeBlacklist()
	svc, _ := newTestAuthService(newMemStore(), bl)

	if err := svc.Logout(context.Background(), "jti-1", time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("登出失败: %v", err)
	}
	if _, ok := bl.revoked["jti-1"]; !ok {
		t.Error("jti 应加入黑名单")
	}

	// 无 Redis 时登出为空操作
	noop, _ := newTestAuthService(newMemStore(), nil)
	if err := noop.Logout(context.Background(), "jti-2", time.Now()); err != nil {
		t.Errorf("无黑名单时不应报错: %v", err)
	}
}

func TestMe_Capabilities(t *testing.T) {
	store := newMemStore()
	user := seedUser(t, store, "s@example.com", "secret123", "mentee", true)
	svc, _ := newTestAuthService(store, nil)

	me, err := svc.Me(context.Background(), user.UserID)
	if err != nil {
		t.Fatalf("Me 失败: %v", err)
	}
	if len(me.Capabilities) != 1 || me.Capabilities[0] != string(permission.SessionFeedback) {
		t.Errorf("学生能力不正确: %v", me.Capabilities)
	}

	if _, err := svc.Me(context.Background(), "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("期望 ErrUserNotFound，实际: %v", err)
	}
}
