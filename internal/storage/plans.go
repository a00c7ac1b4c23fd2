package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sublyhq/subly/internal/models"
)

// ListPlans возвращает все тарифные планы по возрастанию цены.
// Каталог мал и меняется редко, пагинация не нужна.
func (s *Storage) ListPlans(ctx context.Context) ([]*models.Plan, error) {
	const op = "storage.ListPlans"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, name, price, description, features
			  FROM subscription_plans
			  ORDER BY price ASC, id ASC`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	var result []*models.Plan
	for rows.Next() {
		var item models.Plan
		if err := rows.Scan(&item.ID, &item.Name, &item.Price,
			&item.Description, &item.Features); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// CreatePlan вставляет новый тарифный план и возвращает его ID.
// При совпадении имени возвращает ErrPlanExists.
func (s *Storage) CreatePlan(ctx context.Context, plan models.Plan) (int, error) {
	const op = "storage.CreatePlan"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var newID int
	query := `INSERT INTO subscription_plans (name, price, description, features)
			  VALUES ($1, $2, $3, $4)
			  ON CONFLICT (name) DO NOTHING
			  RETURNING id`
	err := s.DB.QueryRowContext(ctx, query,
		plan.Name, plan.Price, plan.Description, plan.Features).Scan(&newID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%s: %w", op, ErrPlanExists)
	}
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// GetPlan возвращает тарифный план по его ID.
func (s *Storage) GetPlan(ctx context.Context, id int) (*models.Plan, error) {
	const op = "storage.GetPlan"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, name, price, description, features
			  FROM subscription_plans
			  WHERE id = $1`
	p := &models.Plan{}
	err := s.DB.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.Price, &p.Description, &p.Features)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrPlanNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// SeedDefaultPlans вставляет тарифы по умолчанию, только если каталог пуст.
// Операция идемпотентна: безопасно вызывать при каждом старте процесса.
func (s *Storage) SeedDefaultPlans(ctx context.Context, plans []models.Plan) error {
	const op = "storage.SeedDefaultPlans"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = tx.Rollback() }()

	var count int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM subscription_plans`).Scan(&count); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if count > 0 {
		return nil
	}

	for _, plan := range plans {
		// ON CONFLICT страхует от гонки двух одновременно стартующих процессов.
		_, err := tx.ExecContext(ctx,
			`INSERT INTO subscription_plans (name, price, description, features)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (name) DO NOTHING`,
			plan.Name, plan.Price, plan.Description, plan.Features)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
