package models

import "strings"

// Plan представляет тарифный план, доступный для оформления подписки.
// Справочные данные: создаются при старте сервиса или администратором,
// после создания не изменяются.
type Plan struct {
	ID          int     // Идентификатор плана
	Name        string  // Название плана (уникальное)
	Price       float64 // Цена плана, неотрицательная
	Description string  // Описание плана
	Features    string  // Список возможностей, разделённый точкой с запятой
}

// FeatureList разбирает поле Features на отдельные названия возможностей.
func (p Plan) FeatureList() []string {
	if p.Features == "" {
		return nil
	}
	parts := strings.Split(p.Features, ";")
	features := make([]string, 0, len(parts))
	for _, part := range parts {
		if f := strings.TrimSpace(part); f != "" {
			features = append(features, f)
		}
	}
	return features
}

// CreatePlanRequest используется для приёма данных администратора
// при создании нового тарифного плана.
type CreatePlanRequest struct {
	Name        string  `json:"name" validate:"required,min=2,max=64"`
	Price       float64 `json:"price" validate:"gte=0"`
	Description string  `json:"description"`
	Features    string  `json:"features"`
}
