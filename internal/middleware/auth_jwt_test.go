package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"app/internal/domain/model"
	"app/internal/repository"
	"app/internal/token"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

// fake UserRepository
type memUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*model.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[uuid.UUID]*model.User)}
}

func (r *memUserRepo) Create(_ context.Context, user *model.User) error {
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

func (r *memUserRepo) FindByID(_ context.Context, userID uuid.UUID) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
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

func (r *memUserRepo) FindByFirebaseUID(_ context.Context, firebaseUID string) (*model.User, error) {
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

func (r *memUserRepo) Update(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return repository.ErrUserNotFound
	}
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *memUserRepo) List(_ context.Context, limit, offset int) ([]model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, *u)
	}
	return out, nil
}

func newAuthTestServer(userRepo repository.UserRepository, issuer *token.Issuer) *echo.Echo {
	e := echo.New()
	protected := e.Group("/api/users", AuthJWT(issuer, userRepo))
	protected.GET("/me", func(c echo.Context) error {
		user, _ := CurrentUser(c)
		return c.JSON(http.StatusOK, echo.Map{"email": user.Email})
	})

	admin := e.Group("/api/admin", AuthJWT(issuer, userRepo), RequireSuperuser())
	admin.GET("/users", func(c echo.Context) error {
		return c.JSON(http.StatusOK, []string{})
	})
	return e
}

func seedUser(repo *memUserRepo, active, superuser bool) *model.User {
	user := &model.User{
		ID:          uuid.New(),
		Email:       "user@example.com",
		IsActive:    active,
		IsSuperuser: superuser,
		IsVerified:  true,
	}
	_ = repo.Create(context.Background(), user)
	return user
}

func TestAuthJWT_ValidToken(t *testing.T) {
	repo := newMemUserRepo()
	issuer := token.NewIssuer("test-secret", time.Hour, token.RealClock())
	user := seedUser(repo, true, false)
	e := newAuthTestServer(repo, issuer)

	accessToken, err := issuer.Issue(user.ID)
	assert.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "user@example.com")
}

func TestAuthJWT_MissingHeader(t *testing.T) {
	repo := newMemUserRepo()
	issuer := token.NewIssuer("test-secret", time.Hour, token.RealClock())
	e := newAuthTestServer(repo, issuer)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users/me", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "UNAUTHORIZED")
}

func TestAuthJWT_BadToken(t *testing.T) {
	repo := newMemUserRepo()
	issuer := token.NewIssuer("test-secret", time.Hour, token.RealClock())
	seedUser(repo, true, false)
	e := newAuthTestServer(repo, issuer)

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthJWT_InactiveUser(t *testing.T) {
	repo := newMemUserRepo()
	issuer := token.NewIssuer("test-secret", time.Hour, token.RealClock())
	user := seedUser(repo, false, false)
	e := newAuthTestServer(repo, issuer)

	accessToken, err := issuer.Issue(user.ID)
	assert.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "USER_INACTIVE")
}

func TestRequireSuperuser(t *testing.T) {
	repo := newMemUserRepo()
	issuer := token.NewIssuer("test-secret", time.Hour, token.RealClock())
	user := seedUser(repo, true, false)
	e := newAuthTestServer(repo, issuer)

	accessToken, err := issuer.Issue(user.ID)
	assert.NoError(t, err)

	//一般ユーザーは403
	req := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	//superuserは通る
	admin := &model.User{ID: uuid.New(), Email: "admin@example.com", IsActive: true, IsSuperuser: true}
	_ = repo.Create(context.Background(), admin)
	adminToken, err := issuer.Issue(admin.ID)
	assert.NoError(t, err)

	req = httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
