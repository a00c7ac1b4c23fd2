package storage

import "errors"

// Ошибки бизнес-уровня, которые хранилище возвращает вместо "сырых"
// ошибок драйвера. Сервисы и обработчики сравнивают их через errors.Is;
// всё остальное считается ошибкой хранилища и наружу не раскрывается.
var (
	ErrUserExists               = errors.New("user already exists")
	ErrUserNotFound             = errors.New("user not found")
	ErrPlanExists               = errors.New("plan with this name already exists")
	ErrPlanNotFound             = errors.New("plan not found")
	ErrActiveSubscriptionExists = errors.New("user already has an active subscription")
	ErrNoActiveSubscription     = errors.New("no active subscription found")
	ErrSamePlan                 = errors.New("already subscribed to this plan")
)
