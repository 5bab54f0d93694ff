package userdata_usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"app/internal/domain/model"
	"app/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type memUserDataRepo struct {
	mu   sync.Mutex
	data map[uuid.UUID]*model.UserData
}

func newMemUserDataRepo() *memUserDataRepo {
	return &memUserDataRepo{data: make(map[uuid.UUID]*model.UserData)}
}

func (r *memUserDataRepo) Create(_ context.Context, d *model.UserData) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *d
	r.data[d.UserID] = &cp
	return nil
}

func (r *memUserDataRepo) FindByUserID(_ context.Context, userID uuid.UUID) (*model.UserData, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.data[userID]
	if !ok {
		return nil, repository.ErrUserDataNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *memUserDataRepo) Update(_ context.Context, d *model.UserData) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *d
	r.data[d.UserID] = &cp
	return nil
}

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

func TestGet_CreatesRowWhenMissing(t *testing.T) {
	repo := newMemUserDataRepo()
	clock := &fixedClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	uc := NewUsecase(repo, clock)
	userID := uuid.New()

	out, err := uc.Get(context.Background(), userID)
	assert.NoError(t, err)
	assert.Equal(t, userID.String(), out.UserID)
	assert.Equal(t, "", out.TextValue)

	//2回目は同じ行が返る
	out2, err := uc.Get(context.Background(), userID)
	assert.NoError(t, err)
	assert.Equal(t, out.UserID, out2.UserID)
}

func TestUpdate_OverwritesValue(t *testing.T) {
	repo := newMemUserDataRepo()
	clock := &fixedClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	uc := NewUsecase(repo, clock)
	userID := uuid.New()

	_, err := uc.Update(context.Background(), userID, "first value")
	assert.NoError(t, err)

	clock.now = clock.now.Add(time.Minute)
	out, err := uc.Update(context.Background(), userID, "second value")
	assert.NoError(t, err)
	assert.Equal(t, "second value", out.TextValue)
	assert.Equal(t, clock.now, out.UpdatedAt)

	got, err := uc.Get(context.Background(), userID)
	assert.NoError(t, err)
	assert.Equal(t, "second value", got.TextValue)
}
