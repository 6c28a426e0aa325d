package usecase

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"pairtalk/infrastructure/cache"
	"pairtalk/internal/entity"
	"pairtalk/internal/repository"
)

type UserUsecase interface {
	Get(ctx context.Context, userId string) (entity.User, error)

	// Search finds users by username or display name. The caller is
	// excluded from the results.
	Search(ctx context.Context, query, selfId string) ([]entity.UserSummary, error)
}

type userUsecase struct {
	userRepo    repository.UserRepository
	cache       cache.Cache
	searchLimit int
	cacheTTL    time.Duration
}

func NewUserUsecase(userRepo repository.UserRepository, c cache.Cache, searchLimit int, cacheTTL time.Duration) UserUsecase {
	return &userUsecase{
		userRepo:    userRepo,
		cache:       c,
		searchLimit: searchLimit,
		cacheTTL:    cacheTTL,
	}
}

func (u *userUsecase) Get(ctx context.Context, userId string) (entity.User, error) {
	user, err := u.userRepo.Get(ctx, userId)
	if err != nil {
		return entity.User{}, err
	}

	user.Password = ""
	return user, nil
}

func (u *userUsecase) Search(ctx context.Context, query, selfId string) ([]entity.UserSummary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []entity.UserSummary{}, nil
	}

	// Cache key is query-only so results are shared across callers;
	// the self filter is applied after the cache.
	cacheKey := "usersearch:" + strings.ToLower(query)
	if cached, ok := u.cache.Get(ctx, cacheKey); ok {
		var summaries []entity.UserSummary
		if err := json.Unmarshal(cached, &summaries); err == nil {
			return filterSelf(summaries, selfId), nil
		}
	}

	users, err := u.userRepo.Search(ctx, query, u.searchLimit)
	if err != nil {
		return nil, err
	}

	summaries := make([]entity.UserSummary, 0, len(users))
	for _, user := range users {
		summaries = append(summaries, user.Summary())
	}

	if encoded, err := json.Marshal(summaries); err == nil {
		u.cache.Set(ctx, cacheKey, encoded, u.cacheTTL)
	}

	return filterSelf(summaries, selfId), nil
}

func filterSelf(summaries []entity.UserSummary, selfId string) []entity.UserSummary {
	out := make([]entity.UserSummary, 0, len(summaries))
	for _, s := range summaries {
		if s.Id != selfId {
			out = append(out, s)
		}
	}
	return out
}
