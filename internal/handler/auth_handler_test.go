package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"app/internal/domain/model"
	"app/internal/middleware"
	"app/internal/oauth"
	"app/internal/repository"
	"app/internal/token"
	"app/internal/usecase/auth_usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// =====================
// インメモリfake一式
// =====================

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*model.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return repository.ErrEmailTaken
		}
	}
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *fakeUserRepo) FindByID(_ context.Context, userID uuid.UUID) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *fakeUserRepo) FindByFirebaseUID(_ context.Context, firebaseUID string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.FirebaseUID != nil && *u.FirebaseUID == firebaseUID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *fakeUserRepo) Update(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return repository.ErrUserNotFound
	}
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *fakeUserRepo) List(_ context.Context, limit, offset int) ([]model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, *u)
	}
	return out, nil
}

type fakeRefreshRepo struct {
	mu     sync.Mutex
	tokens map[string]*model.RefreshToken
}

func newFakeRefreshRepo() *fakeRefreshRepo {
	return &fakeRefreshRepo{tokens: make(map[string]*model.RefreshToken)}
}

func (r *fakeRefreshRepo) Create(_ context.Context, tok *model.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tokens[tok.Token]; ok {
		return repository.ErrDuplicateToken
	}
	cp := *tok
	r.tokens[tok.Token] = &cp
	return nil
}

func (r *fakeRefreshRepo) FindByToken(_ context.Context, tokenStr string) (*model.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tok, ok := r.tokens[tokenStr]
	if !ok {
		return nil, repository.ErrRefreshTokenNotFound
	}
	cp := *tok
	return &cp, nil
}

func (r *fakeRefreshRepo) DeleteByToken(_ context.Context, tokenStr string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tokens[tokenStr]; !ok {
		return false, nil
	}
	delete(r.tokens, tokenStr)
	return true, nil
}

func (r *fakeRefreshRepo) DeleteAllByUserID(_ context.Context, userID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for key, tok := range r.tokens {
		if tok.UserID == userID {
			delete(r.tokens, key)
			count++
		}
	}
	return count, nil
}

func (r *fakeRefreshRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for key, tok := range r.tokens {
		if !tok.ExpiresAt.After(now) {
			delete(r.tokens, key)
			count++
		}
	}
	return count, nil
}

func (r *fakeRefreshRepo) has(tokenStr string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.tokens[tokenStr]
	return ok
}

type fakeAccessRepo struct{}

func (fakeAccessRepo) Create(_ context.Context, _ *model.AccessToken) error { return nil }
func (fakeAccessRepo) FindByToken(_ context.Context, _ string) (*model.AccessToken, error) {
	return nil, repository.ErrAccessTokenNotFound
}
func (fakeAccessRepo) DeleteByToken(_ context.Context, _ string) (bool, error) { return false, nil }
func (fakeAccessRepo) DeleteAllByUserID(_ context.Context, _ uuid.UUID) (int64, error) {
	return 0, nil
}
func (fakeAccessRepo) DeleteExpired(_ context.Context, _ time.Time) (int64, error) { return 0, nil }

type fakeUserDataRepo struct {
	mu   sync.Mutex
	data map[uuid.UUID]*model.UserData
}

func newFakeUserDataRepo() *fakeUserDataRepo {
	return &fakeUserDataRepo{data: make(map[uuid.UUID]*model.UserData)}
}

func (r *fakeUserDataRepo) Create(_ context.Context, d *model.UserData) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *d
	r.data[d.UserID] = &cp
	return nil
}

func (r *fakeUserDataRepo) FindByUserID(_ context.Context, userID uuid.UUID) (*model.UserData, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.data[userID]
	if !ok {
		return nil, repository.ErrUserDataNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *fakeUserDataRepo) Update(_ context.Context, d *model.UserData) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *d
	r.data[d.UserID] = &cp
	return nil
}

type noopMailer struct{}

func (noopMailer) SendVerificationEmail(_ context.Context, _, _ string) error  { return nil }
func (noopMailer) SendPasswordResetEmail(_ context.Context, _, _ string) error { return nil }

// =====================
// テストサーバー組み立て
// =====================

type testEnv struct {
	echo        *echo.Echo
	userRepo    *fakeUserRepo
	refreshRepo *fakeRefreshRepo
	manager     *token.RefreshManager
	issuer      *token.Issuer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	userRepo := newFakeUserRepo()
	refreshRepo := newFakeRefreshRepo()
	userDataRepo := newFakeUserDataRepo()
	accessRepo := fakeAccessRepo{}

	issuer := token.NewIssuer("handler-test-secret", time.Hour, token.RealClock())
	manager := token.NewRefreshManager(refreshRepo, token.RealClock(), "refresh_token", true, http.SameSiteLaxMode)

	clock := auth_usecase.NewRealClock()
	hasher := auth_usecase.NewBcryptHasher()
	idGen := auth_usecase.NewUUIDGenerator()

	registerUC := auth_usecase.NewRegisterUserUsecase(
		userRepo, hasher, idGen, clock, issuer, noopMailer{}, 15*time.Minute, logger)
	loginUC := auth_usecase.NewLoginUsecase(userRepo, hasher, issuer, nil)
	refreshUC := auth_usecase.NewRefreshUsecase(userRepo, manager, issuer)
	logoutUC := auth_usecase.NewLogoutUsecase(manager, accessRepo, false)
	changePwUC := auth_usecase.NewChangePasswordUsecase(userRepo, hasher, manager, clock)
	verifyUC := auth_usecase.NewVerifyEmailUsecase(
		userRepo, userDataRepo, issuer, noopMailer{}, clock, 15*time.Minute, logger)
	passwordResetUC := auth_usecase.NewPasswordResetUsecase(
		userRepo, hasher, issuer, manager, noopMailer{}, clock, 15*time.Minute, logger)
	firebaseUC := auth_usecase.NewFirebaseLoginUsecase(
		userRepo, userDataRepo, oauth.DisabledVerifier{}, hasher, idGen, clock,
		issuer, manager, nil, 7*24*time.Hour, logger)

	authH := NewAuthHandler(
		registerUC, loginUC, refreshUC, logoutUC, changePwUC,
		verifyUC, passwordResetUC, firebaseUC, manager, false, logger)

	e := echo.New()
	authGuard := middleware.AuthJWT(issuer, userRepo)
	group := e.Group("/api/auth")
	group.POST("/register", authH.Register)
	group.POST("/login", authH.Login)
	group.POST("/refresh", authH.Refresh)
	group.POST("/logout", authH.Logout, authGuard)
	group.POST("/logout-all", authH.LogoutAll, authGuard)
	group.POST("/change-password", authH.ChangePassword, authGuard)
	group.POST("/verify", authH.Verify)
	group.POST("/firebase", authH.FirebaseLogin)

	return &testEnv{
		echo:        e,
		userRepo:    userRepo,
		refreshRepo: refreshRepo,
		manager:     manager,
		issuer:      issuer,
	}
}

func (env *testEnv) seedActiveUser(t *testing.T, email, password string) *model.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	assert.NoError(t, err)
	user := &model.User{
		ID:             uuid.New(),
		Email:          email,
		HashedPassword: string(hashed),
		IsActive:       true,
		IsVerified:     true,
	}
	assert.NoError(t, env.userRepo.Create(context.Background(), user))
	return user
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

// =====================
// Refresh
// =====================

func TestRefreshEndpoint_MissingCookie(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.echo.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "REFRESH_TOKEN_MISSING")
}

func TestRefreshEndpoint_InvalidCookie(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: "refresh_token", Value: "not-a-real-token"})
	rec := httptest.NewRecorder()
	env.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "REFRESH_TOKEN_INVALID")
}

func TestRefreshEndpoint_Success(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedActiveUser(t, "taro@example.com", "password-123456")

	refreshToken, err := env.manager.Issue(context.Background(), user.ID, 7*24*time.Hour)
	assert.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: "refresh_token", Value: refreshToken})
	rec := httptest.NewRecorder()
	env.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "access_token")
	assert.Contains(t, rec.Body.String(), "bearer")
}

func TestRefreshEndpoint_InactiveUser(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedActiveUser(t, "taro@example.com", "password-123456")

	refreshToken, err := env.manager.Issue(context.Background(), user.ID, 7*24*time.Hour)
	assert.NoError(t, err)

	//発行後に停止された
	user.IsActive = false
	assert.NoError(t, env.userRepo.Update(context.Background(), user))

	req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: "refresh_token", Value: refreshToken})
	rec := httptest.NewRecorder()
	env.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "USER_INACTIVE")
}

// =====================
// Logout
// =====================

func TestLogoutEndpoint_DeletesTokenAndClearsCookie(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedActiveUser(t, "taro@example.com", "password-123456")

	refreshToken, err := env.manager.Issue(context.Background(), user.ID, 7*24*time.Hour)
	assert.NoError(t, err)

	accessToken, err := env.issuer.Issue(user.ID)
	assert.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.AddCookie(&http.Cookie{Name: "refresh_token", Value: refreshToken})
	rec := httptest.NewRecorder()
	env.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Successfully logged out")
	assert.False(t, env.refreshRepo.has(refreshToken))

	cleared := findResponseCookie(rec.Result(), "refresh_token")
	assert.NotNil(t, cleared)
	assert.Equal(t, -1, cleared.MaxAge)
}

func TestLogoutEndpoint_NoCookieStillSucceeds(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedActiveUser(t, "taro@example.com", "password-123456")

	accessToken, err := env.issuer.Issue(user.ID)
	assert.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	rec := httptest.NewRecorder()
	env.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Successfully logged out")
}

func TestLogoutAllEndpoint_RevokesEverySession(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedActiveUser(t, "taro@example.com", "password-123456")

	for i := 0; i < 3; i++ {
		_, err := env.manager.Issue(context.Background(), user.ID, 7*24*time.Hour)
		assert.NoError(t, err)
	}

	accessToken, err := env.issuer.Issue(user.ID)
	assert.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout-all", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	rec := httptest.NewRecorder()
	env.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(),
		"Successfully logged out from all devices. Revoked 3 sessions.")
}

// =====================
// ChangePassword
// =====================

func TestChangePasswordEndpoint_WrongCurrent(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedActiveUser(t, "taro@example.com", "current-password-123")

	accessToken, err := env.issuer.Issue(user.ID)
	assert.NoError(t, err)

	req := jsonRequest(http.MethodPost, "/api/auth/change-password",
		`{"current_password":"wrong","new_password":"a-new-long-password"}`)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	rec := httptest.NewRecorder()
	env.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "CHANGE_PASSWORD_INVALID_CURRENT")
}

func TestChangePasswordEndpoint_Success(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedActiveUser(t, "taro@example.com", "current-password-123")

	//他のデバイスのセッション
	otherSession, err := env.manager.Issue(context.Background(), user.ID, 7*24*time.Hour)
	assert.NoError(t, err)

	accessToken, err := env.issuer.Issue(user.ID)
	assert.NoError(t, err)

	req := jsonRequest(http.MethodPost, "/api/auth/change-password",
		`{"current_password":"current-password-123","new_password":"a-new-long-password"}`)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	rec := httptest.NewRecorder()
	env.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	//他のセッションも失効している
	assert.False(t, env.refreshRepo.has(otherSession))
}

// =====================
// Register / Login
// =====================

func TestRegisterEndpoint_CreatesInactiveUser(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.echo.ServeHTTP(rec, jsonRequest(http.MethodPost, "/api/auth/register",
		`{"email":"hanako@example.com","password":"a-long-enough-password"}`))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"is_active":false`)
	assert.Contains(t, rec.Body.String(), `"is_verified":false`)
}

func TestLoginEndpoint_BadCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.seedActiveUser(t, "taro@example.com", "correct-password-123")

	form := "username=taro%40example.com&password=wrong"
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(form))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	env.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "LOGIN_BAD_CREDENTIALS")
}

func TestLoginEndpoint_Success(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedActiveUser(t, "taro@example.com", "correct-password-123")

	form := "username=taro%40example.com&password=correct-password-123"
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(form))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	env.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	//返ったaccess tokenは検証できてsubが一致する
	var body struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "bearer", body.TokenType)

	got, err := env.issuer.Verify(body.AccessToken)
	assert.NoError(t, err)
	assert.Equal(t, user.ID, got)
}

// =====================
// Firebase
// =====================

func TestFirebaseEndpoint_Disabled(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.echo.ServeHTTP(rec, jsonRequest(http.MethodPost, "/api/auth/firebase",
		`{"id_token":"whatever"}`))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "FIREBASE_AUTH_DISABLED")
}

// =====================
// helpers
// =====================

func findResponseCookie(res *http.Response, name string) *http.Cookie {
	for _, c := range res.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

