package token

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"app/internal/domain/model"
	"app/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// テスト用のインメモリ実装
type fakeRefreshTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]*model.RefreshToken
}

func newFakeRefreshTokenRepo() *fakeRefreshTokenRepo {
	return &fakeRefreshTokenRepo{tokens: make(map[string]*model.RefreshToken)}
}

func (r *fakeRefreshTokenRepo) Create(_ context.Context, token *model.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tokens[token.Token]; ok {
		return repository.ErrDuplicateToken
	}
	cp := *token
	r.tokens[token.Token] = &cp
	return nil
}

func (r *fakeRefreshTokenRepo) FindByToken(_ context.Context, tokenStr string) (*model.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.tokens[tokenStr]
	if !ok {
		return nil, repository.ErrRefreshTokenNotFound
	}
	cp := *record
	return &cp, nil
}

func (r *fakeRefreshTokenRepo) DeleteByToken(_ context.Context, tokenStr string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tokens[tokenStr]; !ok {
		return false, nil
	}
	delete(r.tokens, tokenStr)
	return true, nil
}

func (r *fakeRefreshTokenRepo) DeleteAllByUserID(_ context.Context, userID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for key, record := range r.tokens {
		if record.UserID == userID {
			delete(r.tokens, key)
			count++
		}
	}
	return count, nil
}

func (r *fakeRefreshTokenRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for key, record := range r.tokens {
		if !record.ExpiresAt.After(now) {
			delete(r.tokens, key)
			count++
		}
	}
	return count, nil
}

func (r *fakeRefreshTokenRepo) has(tokenStr string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.tokens[tokenStr]
	return ok
}

// 固定時計
type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

func newTestManager(clock Clock) (*RefreshManager, *fakeRefreshTokenRepo) {
	repo := newFakeRefreshTokenRepo()
	return NewRefreshManager(repo, clock, "refresh_token", true, http.SameSiteLaxMode), repo
}

func TestGenerateRefreshToken_LengthAndUniqueness(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		tok, err := GenerateRefreshToken()
		assert.NoError(t, err)
		assert.Len(t, tok, 64)
		_, dup := seen[tok]
		assert.False(t, dup)
		seen[tok] = struct{}{}
	}
}

func TestRefreshManager_IssueAndValidate(t *testing.T) {
	clock := &fixedClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	mgr, _ := newTestManager(clock)
	userID := uuid.New()

	tok, err := mgr.Issue(context.Background(), userID, 7*24*time.Hour)
	assert.NoError(t, err)
	assert.Len(t, tok, 64)

	got, err := mgr.Validate(context.Background(), tok)
	assert.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestRefreshManager_ValidateUnknownToken(t *testing.T) {
	clock := &fixedClock{now: time.Now()}
	mgr, _ := newTestManager(clock)

	_, err := mgr.Validate(context.Background(), "no-such-token")
	assert.ErrorIs(t, err, ErrRefreshInvalid)
}

func TestRefreshManager_ValidateExpiredDeletesRow(t *testing.T) {
	clock := &fixedClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	mgr, repo := newTestManager(clock)
	userID := uuid.New()

	tok, err := mgr.Issue(context.Background(), userID, time.Hour)
	assert.NoError(t, err)

	//ちょうど期限切れの瞬間はinvalid
	clock.now = clock.now.Add(time.Hour)
	_, err = mgr.Validate(context.Background(), tok)
	assert.ErrorIs(t, err, ErrRefreshInvalid)

	//期限切れ検出時に行も消えている
	assert.False(t, repo.has(tok))
}

func TestRefreshManager_ValidateJustBeforeExpiry(t *testing.T) {
	clock := &fixedClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	mgr, _ := newTestManager(clock)
	userID := uuid.New()

	tok, err := mgr.Issue(context.Background(), userID, time.Hour)
	assert.NoError(t, err)

	clock.now = clock.now.Add(time.Hour - time.Second)
	got, err := mgr.Validate(context.Background(), tok)
	assert.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestRefreshManager_RevokeIsIdempotent(t *testing.T) {
	clock := &fixedClock{now: time.Now()}
	mgr, _ := newTestManager(clock)
	userID := uuid.New()

	tok, err := mgr.Issue(context.Background(), userID, time.Hour)
	assert.NoError(t, err)

	deleted, err := mgr.Revoke(context.Background(), tok)
	assert.NoError(t, err)
	assert.True(t, deleted)

	//2回目は何も消えないがエラーにもならない
	deleted, err = mgr.Revoke(context.Background(), tok)
	assert.NoError(t, err)
	assert.False(t, deleted)

	_, err = mgr.Validate(context.Background(), tok)
	assert.ErrorIs(t, err, ErrRefreshInvalid)
}

func TestRefreshManager_RevokeAllOnlyTargetsUser(t *testing.T) {
	clock := &fixedClock{now: time.Now()}
	mgr, _ := newTestManager(clock)
	targetUser := uuid.New()
	otherUser := uuid.New()

	var targetTokens, otherTokens []string
	for i := 0; i < 3; i++ {
		tok, err := mgr.Issue(context.Background(), targetUser, time.Hour)
		assert.NoError(t, err)
		targetTokens = append(targetTokens, tok)
	}
	for i := 0; i < 2; i++ {
		tok, err := mgr.Issue(context.Background(), otherUser, time.Hour)
		assert.NoError(t, err)
		otherTokens = append(otherTokens, tok)
	}

	count, err := mgr.RevokeAll(context.Background(), targetUser)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), count)

	for _, tok := range targetTokens {
		_, err := mgr.Validate(context.Background(), tok)
		assert.ErrorIs(t, err, ErrRefreshInvalid)
	}
	for _, tok := range otherTokens {
		got, err := mgr.Validate(context.Background(), tok)
		assert.NoError(t, err)
		assert.Equal(t, otherUser, got)
	}
}

func TestRefreshManager_CookieSettings(t *testing.T) {
	clock := &fixedClock{now: time.Now()}
	mgr, _ := newTestManager(clock)

	normal := mgr.CookieSettings(7 * 24 * time.Hour)
	rememberMe := mgr.CookieSettings(30 * 24 * time.Hour)

	assert.Equal(t, "refresh_token", normal.Name)
	assert.True(t, normal.HTTPOnly)
	assert.Equal(t, "/api/auth", normal.Path)
	assert.Equal(t, 604800, normal.MaxAge)
	assert.Equal(t, 2592000, rememberMe.MaxAge)
	assert.Greater(t, rememberMe.MaxAge, normal.MaxAge)

	//remember_meでもHttpOnlyは変わらない
	assert.True(t, rememberMe.HTTPOnly)
}

func TestRefreshManager_ClearCookie(t *testing.T) {
	clock := &fixedClock{now: time.Now()}
	mgr, _ := newTestManager(clock)

	cookie := mgr.ClearCookie()
	assert.Equal(t, "refresh_token", cookie.Name)
	assert.Equal(t, "", cookie.Value)
	assert.Equal(t, "/api/auth", cookie.Path)
	assert.Equal(t, -1, cookie.MaxAge)
	assert.True(t, cookie.HttpOnly)
}
