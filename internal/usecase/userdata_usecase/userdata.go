package userdata_usecase

import (
	"context"
	"errors"
	"time"

	"app/internal/domain/model"
	"app/internal/repository"

	"github.com/google/uuid"
)

// 時刻取得を差し替え可能にする
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func NewRealClock() Clock { return realClock{} }

type Output struct {
	UserID    string
	TextValue string
	UpdatedAt time.Time
}

type Usecase struct {
	repo  repository.UserDataRepository
	clock Clock
}

func NewUsecase(repo repository.UserDataRepository, clock Clock) *Usecase {
	return &Usecase{repo: repo, clock: clock}
}

// 取得。行が無ければ空の行を作って返す。
func (u *Usecase) Get(ctx context.Context, userID uuid.UUID) (*Output, error) {
	data, err := u.repo.FindByUserID(ctx, userID)
	if errors.Is(err, repository.ErrUserDataNotFound) {
		now := u.clock.Now()
		data = &model.UserData{
			UserID:    userID,
			TextValue: "",
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := u.repo.Create(ctx, data); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	return &Output{
		UserID:    data.UserID.String(),
		TextValue: data.TextValue,
		UpdatedAt: data.UpdatedAt,
	}, nil
}

// 更新。行が無ければ作る。
func (u *Usecase) Update(ctx context.Context, userID uuid.UUID, textValue string) (*Output, error) {
	now := u.clock.Now()

	data, err := u.repo.FindByUserID(ctx, userID)
	if errors.Is(err, repository.ErrUserDataNotFound) {
		data = &model.UserData{
			UserID:    userID,
			TextValue: textValue,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := u.repo.Create(ctx, data); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	} else {
		data.TextValue = textValue
		data.UpdatedAt = now
		if err := u.repo.Update(ctx, data); err != nil {
			return nil, err
		}
	}

	return &Output{
		UserID:    data.UserID.String(),
		TextValue: data.TextValue,
		UpdatedAt: data.UpdatedAt,
	}, nil
}
