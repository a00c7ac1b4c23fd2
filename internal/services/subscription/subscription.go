// Package subscription содержит бизнес-логику жизненного цикла подписок:
// оформление, отмену, смену плана, чтение активной подписки и истории.
// Все записи, сохраняющие инвариант "не более одной активной подписки
// на пользователя", выполняются в хранилище одной транзакцией.
package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sublyhq/subly/internal/lib/sl"
	"github.com/sublyhq/subly/internal/models"
	"github.com/sublyhq/subly/internal/storage"
)

const (
	defaultPerPage = 10
	maxPerPage     = 100

	activeCacheTTL = 10 * time.Minute
)

// Repository определяет методы для работы с журналом подписок в хранилище.
type Repository interface {
	// Subscribe атомарно оформляет новую подписку.
	Subscribe(ctx context.Context, userUID string, planID int, now, end time.Time) (*models.SubscriptionReceipt, error)
	// CancelActiveSubscription отменяет активную подписку одним условным UPDATE.
	CancelActiveSubscription(ctx context.Context, userUID string, now time.Time) (bool, error)
	// Upgrade атомарно меняет план: отмена и вставка в одной транзакции.
	Upgrade(ctx context.Context, userUID string, planID int, now, end time.Time) (*models.SubscriptionReceipt, error)
	// GetActiveSubscription возвращает активную подписку и число подпавших под предикат строк.
	GetActiveSubscription(ctx context.Context, userUID string, now time.Time) (*models.SubscriptionDetail, int, error)
	// ListSubscriptionHistory возвращает страницу истории и общее число записей.
	ListSubscriptionHistory(ctx context.Context, userUID string, limit, offset int) ([]*models.SubscriptionDetail, int, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

// Service реализует жизненный цикл подписок поверх хранилища,
// кешируя активную подписку пользователя.
type Service struct {
	repo  Repository
	cache Cache
	log   *slog.Logger
}

// New создает новый экземпляр Service.
func New(repo Repository, cache Cache, log *slog.Logger) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

// Subscribe оформляет подписку пользователя на план сроком req.Duration
// месяцев (месяц считается как 30 дней, по умолчанию один месяц).
func (s *Service) Subscribe(ctx context.Context, userUID string, req models.SubscribeRequest) (*models.SubscriptionReceipt, error) {
	now := time.Now().UTC()
	end := now.AddDate(0, 0, 30*durationMonths(req.Duration))

	receipt, err := s.repo.Subscribe(ctx, userUID, req.PlanID, now, end)
	if err != nil {
		return nil, err
	}
	s.log.Info("created new subscription",
		slog.Int("id", receipt.ID), slog.String("plan", receipt.PlanName))
	if receipt.Deactivated > 0 {
		s.log.Info("deactivated stale subscriptions",
			slog.Int64("count", receipt.Deactivated))
	}

	s.invalidateActive(userUID)
	return receipt, nil
}

// Cancel отменяет активную подписку пользователя.
// Возвращает storage.ErrNoActiveSubscription, если отменять нечего:
// повторная отмена — ожидаемая ситуация, а не сбой.
func (s *Service) Cancel(ctx context.Context, userUID string) error {
	now := time.Now().UTC()
	ok, err := s.repo.CancelActiveSubscription(ctx, userUID, now)
	if err != nil {
		return err
	}
	if !ok {
		return storage.ErrNoActiveSubscription
	}
	s.log.Info("cancelled active subscription", slog.String("user_uid", userUID))

	s.invalidateActive(userUID)
	return nil
}

// Upgrade меняет план пользователя. Без активной подписки ведёт себя
// как Subscribe; смена на тот же план — storage.ErrSamePlan.
func (s *Service) Upgrade(ctx context.Context, userUID string, req models.SubscribeRequest) (*models.SubscriptionReceipt, error) {
	now := time.Now().UTC()
	end := now.AddDate(0, 0, 30*durationMonths(req.Duration))

	receipt, err := s.repo.Upgrade(ctx, userUID, req.PlanID, now, end)
	if err != nil {
		return nil, err
	}
	s.log.Info("switched subscription plan",
		slog.Int("id", receipt.ID), slog.String("plan", receipt.PlanName))
	if receipt.Deactivated > 1 {
		s.log.Warn("ledger inconsistency: multiple active subscriptions deactivated",
			slog.String("user_uid", userUID), slog.Int64("count", receipt.Deactivated))
	}

	s.invalidateActive(userUID)
	return receipt, nil
}

// GetActive возвращает активную и не истёкшую подписку пользователя,
// используя кеш или хранилище. Предикат активности вычисляется по текущим
// часам при каждом чтении.
func (s *Service) GetActive(ctx context.Context, userUID string) (*models.SubscriptionDetail, error) {
	cacheKey := activeCacheKey(userUID)
	var cached models.SubscriptionDetail
	found, err := s.cache.Get(cacheKey, &cached)
	if err != nil {
		s.log.Warn("failed to read active subscription from cache", sl.Err(err))
	}
	// Кешированная запись могла истечь после записи в кеш.
	if found && !cached.IsExpired(time.Now().UTC()) {
		return &cached, nil
	}

	detail, matches, err := s.repo.GetActiveSubscription(ctx, userUID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if matches > 1 {
		s.log.Warn("ledger inconsistency: multiple active subscriptions",
			slog.String("user_uid", userUID), slog.Int("count", matches))
	}
	if err := s.cache.Set(cacheKey, detail, activeCacheTTL); err != nil {
		s.log.Warn("failed to cache active subscription", sl.Err(err))
	}
	return detail, nil
}

// History возвращает страницу истории подписок пользователя, новые
// записи первыми. Номер страницы и размер нормализуются: page >= 1,
// per_page от 1 до maxPerPage (по умолчанию defaultPerPage).
func (s *Service) History(ctx context.Context, userUID string, page, perPage int) (*models.HistoryPage, error) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	offset := (page - 1) * perPage
	items, total, err := s.repo.ListSubscriptionHistory(ctx, userUID, perPage, offset)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*models.SubscriptionDetail{}
	}
	return &models.HistoryPage{
		Subscriptions: items,
		Total:         total,
		Page:          page,
		PerPage:       perPage,
		Pages:         (total + perPage - 1) / perPage,
	}, nil
}

func (s *Service) invalidateActive(userUID string) {
	cacheKey := activeCacheKey(userUID)
	if err := s.cache.Invalidate(cacheKey); err != nil {
		s.log.Warn("failed to invalidate active subscription cache",
			slog.String("key", cacheKey), sl.Err(err))
	}
}

func activeCacheKey(userUID string) string {
	return fmt.Sprintf("active_sub:%s", userUID)
}

func durationMonths(months int) int {
	if months <= 0 {
		return 1
	}
	return months
}
