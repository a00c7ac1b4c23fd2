// Package catalog содержит бизнес-логику каталога тарифных планов:
// список планов, создание нового плана администратором и начальное
// заполнение каталога при старте сервиса.
package catalog

import (
	"context"
	"log/slog"
	"time"

	"github.com/sublyhq/subly/internal/lib/sl"
	"github.com/sublyhq/subly/internal/models"
)

const plansCacheKey = "plans:all"

// DefaultPlans — тарифы, которыми заполняется пустой каталог.
var DefaultPlans = []models.Plan{
	{
		Name:        "Sandbox",
		Price:       0.00,
		Description: "Basic access with limited features",
		Features:    "Access to basic content;500 API calls per day;No premium features",
	},
	{
		Name:        "Startup",
		Price:       15.00,
		Description: "Standard access with more features",
		Features:    "All Free features;1 Million API calls;Standard support",
	},
	{
		Name:        "Pro",
		Price:       100.00,
		Description: "Full access with all features",
		Features:    "All Startup features;Unlimited API calls;Standard support;Advanced analytics",
	},
	{
		Name:        "Enterprise",
		Price:       300.00,
		Description: "Full access with all features",
		Features:    "All Pro features;Unlimited API calls;Priority support;Advanced analytics;BYOC",
	},
}

// PlanRepository определяет методы для работы с каталогом планов в хранилище.
type PlanRepository interface {
	// ListPlans возвращает все планы по возрастанию цены.
	ListPlans(ctx context.Context) ([]*models.Plan, error)
	// CreatePlan добавляет новый план и возвращает его ID.
	CreatePlan(ctx context.Context, plan models.Plan) (int, error)
	// SeedDefaultPlans заполняет пустой каталог планами по умолчанию.
	SeedDefaultPlans(ctx context.Context, plans []models.Plan) error
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

// Service реализует бизнес-логику каталога планов с кешированием списка.
type Service struct {
	repo  PlanRepository
	cache Cache
	log   *slog.Logger
}

// New создает новый экземпляр Service.
func New(repo PlanRepository, cache Cache, log *slog.Logger) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

// List возвращает все планы по возрастанию цены, используя кеш или хранилище.
func (s *Service) List(ctx context.Context) ([]*models.Plan, error) {
	var cached []*models.Plan
	found, err := s.cache.Get(plansCacheKey, &cached)
	if err != nil {
		s.log.Warn("failed to read plans from cache", sl.Err(err))
	}
	if found {
		return cached, nil
	}

	plans, err := s.repo.ListPlans(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(plansCacheKey, plans, time.Hour); err != nil {
		s.log.Warn("failed to cache plans", sl.Err(err))
	}
	return plans, nil
}

// Create добавляет новый тарифный план и сбрасывает кеш каталога.
// Уникальность имени обеспечивает хранилище.
func (s *Service) Create(ctx context.Context, req models.CreatePlanRequest) (int, error) {
	plan := models.Plan{
		Name:        req.Name,
		Price:       req.Price,
		Description: req.Description,
		Features:    req.Features,
	}
	id, err := s.repo.CreatePlan(ctx, plan)
	if err != nil {
		return 0, err
	}
	s.log.Info("created new plan", slog.Int("id", id), slog.String("name", plan.Name))

	if err := s.cache.Invalidate(plansCacheKey); err != nil {
		s.log.Warn("failed to invalidate plans cache", sl.Err(err))
	}
	return id, nil
}

// SeedDefaults заполняет пустой каталог тарифами по умолчанию.
func (s *Service) SeedDefaults(ctx context.Context) error {
	return s.repo.SeedDefaultPlans(ctx, DefaultPlans)
}
