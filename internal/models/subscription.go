package models

import "time"

// Subscription представляет запись журнала подписок пользователя.
// Запись никогда не удаляется: при отмене проставляются is_active = false
// и end_date, сама строка остаётся историей.
// Поле EndDate может быть nil — подписка без даты окончания.
type Subscription struct {
	ID        int        // Идентификатор записи
	UserUID   string     // Идентификатор пользователя-владельца
	PlanID    int        // Идентификатор тарифного плана
	StartDate time.Time  // Дата начала подписки
	EndDate   *time.Time // Дата окончания, nil — бессрочная
	IsActive  bool       // Флаг активности (без учёта истечения срока)
	CreatedAt time.Time  // Дата создания записи
}

// IsExpired сообщает, истекла ли подписка к моменту now.
// Вычисляется по дате окончания, хранимый флаг is_active не учитывается.
func (s Subscription) IsExpired(now time.Time) bool {
	return s.EndDate != nil && !s.EndDate.After(now)
}

// SubscriptionDetail — запись журнала, дополненная данными плана
// для отображения пользователю.
type SubscriptionDetail struct {
	Subscription
	PlanName  string  // Название плана
	PlanPrice float64 // Цена плана
}

// SubscriptionReceipt — результат успешного оформления или смены подписки.
type SubscriptionReceipt struct {
	ID          int       // Идентификатор новой записи
	PlanName    string    // Название оформленного плана
	EndDate     time.Time // Рассчитанная дата окончания
	Deactivated int64     // Количество деактивированных при этом строк
}

// SubscribeRequest используется для приёма данных из JSON-запроса
// на оформление или смену подписки. Duration — срок в месяцах,
// по умолчанию один месяц.
type SubscribeRequest struct {
	PlanID   int `json:"plan_id" validate:"required,gt=0"`
	Duration int `json:"duration" validate:"omitempty,gt=0,lte=24"`
}

// HistoryPage — страница истории подписок пользователя вместе
// с данными для вычисления общего числа страниц.
type HistoryPage struct {
	Subscriptions []*SubscriptionDetail `json:"subscriptions"`
	Total         int                   `json:"total"`
	Page          int                   `json:"page"`
	PerPage       int                   `json:"per_page"`
	Pages         int                   `json:"pages"`
}
