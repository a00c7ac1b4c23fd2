package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sublyhq/subly/internal/models"
)

// activePredicate — условие "активная и не истёкшая подписка".
// Хранимому флагу is_active в одиночку не доверяем: запись с прошедшей
// end_date считается неактивной, даже если флаг ещё не сброшен.
const activePredicate = `is_active AND (end_date IS NULL OR end_date > $2)`

// Subscribe оформляет новую подписку в одной транзакции:
// блокирует строку пользователя (сериализация конкурентных запросов
// одного пользователя), проверяет отсутствие активной подписки,
// деактивирует просроченные строки с невыставленным флагом и вставляет
// новую запись. Инвариант: у пользователя не более одной активной
// и не истёкшей подписки.
func (s *Storage) Subscribe(ctx context.Context, userUID string, planID int, now, end time.Time) (*models.SubscriptionReceipt, error) {
	const op = "storage.Subscribe"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := lockUser(ctx, tx, userUID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	planName, err := planNameForUpdate(ctx, tx, planID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var hasActive bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM user_subscriptions
			WHERE user_uid = $1 AND `+activePredicate+`)`,
		userUID, now).Scan(&hasActive)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if hasActive {
		return nil, fmt.Errorf("%s: %w", op, ErrActiveSubscriptionExists)
	}

	deactivated, err := deactivateStale(ctx, tx, userUID, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	newID, err := insertSubscription(ctx, tx, userUID, planID, now, end)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &models.SubscriptionReceipt{
		ID:          newID,
		PlanName:    planName,
		EndDate:     end,
		Deactivated: deactivated,
	}, nil
}

// CancelActiveSubscription отменяет активную подписку пользователя
// одним условным UPDATE. Возвращает false, если отменять нечего:
// два конкурентных запроса на отмену идемпотентны, второй просто
// не находит подходящих строк.
func (s *Storage) CancelActiveSubscription(ctx context.Context, userUID string, now time.Time) (bool, error) {
	const op = "storage.CancelActiveSubscription"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE user_subscriptions
			  SET is_active = false, end_date = $2
			  WHERE user_uid = $1 AND ` + activePredicate
	result, err := s.DB.ExecContext(ctx, query, userUID, now)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return rowsAffected > 0, nil
}

// Upgrade меняет тарифный план пользователя: отмена текущей подписки
// и вставка новой выполняются одной транзакцией, поэтому окна без
// активной подписки между шагами не существует. Если активной подписки
// нет, ведёт себя как Subscribe. Смена на тот же план — ErrSamePlan.
func (s *Storage) Upgrade(ctx context.Context, userUID string, planID int, now, end time.Time) (*models.SubscriptionReceipt, error) {
	const op = "storage.Upgrade"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := lockUser(ctx, tx, userUID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	planName, err := planNameForUpdate(ctx, tx, planID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// Инвариант обещает не более одной строки, но выборка обязана быть
	// устойчивой к нарушению: берём первую по возрастанию id.
	rows, err := tx.QueryContext(ctx,
		`SELECT id, plan_id FROM user_subscriptions
		 WHERE user_uid = $1 AND `+activePredicate+`
		 ORDER BY id`,
		userUID, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	type activeRow struct{ id, planID int }
	var active []activeRow
	for rows.Next() {
		var item activeRow
		if err := rows.Scan(&item.id, &item.planID); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		active = append(active, item)
	}
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var deactivated int64
	if len(active) == 0 {
		if deactivated, err = deactivateStale(ctx, tx, userUID, now); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	} else {
		if active[0].planID == planID {
			return nil, fmt.Errorf("%s: %w", op, ErrSamePlan)
		}
		result, err := tx.ExecContext(ctx,
			`UPDATE user_subscriptions
			 SET is_active = false, end_date = $2
			 WHERE user_uid = $1 AND `+activePredicate,
			userUID, now)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if deactivated, err = result.RowsAffected(); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if _, err = deactivateStale(ctx, tx, userUID, now); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	newID, err := insertSubscription(ctx, tx, userUID, planID, now, end)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &models.SubscriptionReceipt{
		ID:          newID,
		PlanName:    planName,
		EndDate:     end,
		Deactivated: deactivated,
	}, nil
}

// GetActiveSubscription возвращает активную подписку пользователя вместе
// с данными плана и количество строк, подпавших под предикат активности.
// Если таких строк больше одной, вызывающая сторона логирует
// рассогласование журнала; выбирается строка с наименьшим id.
func (s *Storage) GetActiveSubscription(ctx context.Context, userUID string, now time.Time) (*models.SubscriptionDetail, int, error) {
	const op = "storage.GetActiveSubscription"
	select {
	case <-ctx.Done():
		return nil, 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT us.id, us.user_uid, us.plan_id, us.start_date, us.end_date,
				  us.is_active, us.created_at, sp.name, sp.price
			  FROM user_subscriptions us
			  JOIN subscription_plans sp ON us.plan_id = sp.id
			  WHERE us.user_uid = $1
			      AND us.is_active
			      AND (us.end_date IS NULL OR us.end_date > $2)
			  ORDER BY us.id`
	rows, err := s.DB.QueryContext(ctx, query, userUID, now)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	var result []*models.SubscriptionDetail
	for rows.Next() {
		item, err := scanSubscriptionDetail(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	if len(result) == 0 {
		return nil, 0, fmt.Errorf("%s: %w", op, ErrNoActiveSubscription)
	}
	return result[0], len(result), nil
}

// ListSubscriptionHistory возвращает страницу истории подписок пользователя
// (включая отменённые и истёкшие), новые записи первыми, вместе с общим
// количеством записей для расчёта числа страниц.
func (s *Storage) ListSubscriptionHistory(ctx context.Context, userUID string, limit, offset int) ([]*models.SubscriptionDetail, int, error) {
	const op = "storage.ListSubscriptionHistory"
	select {
	case <-ctx.Done():
		return nil, 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT us.id, us.user_uid, us.plan_id, us.start_date, us.end_date,
				  us.is_active, us.created_at, sp.name, sp.price
			  FROM user_subscriptions us
			  JOIN subscription_plans sp ON us.plan_id = sp.id
			  WHERE us.user_uid = $1
			  ORDER BY us.created_at DESC, us.id DESC
			  LIMIT $2 OFFSET $3`
	rows, err := s.DB.QueryContext(ctx, query, userUID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	var result []*models.SubscriptionDetail
	for rows.Next() {
		item, err := scanSubscriptionDetail(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	var total int
	err = s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM user_subscriptions WHERE user_uid = $1`,
		userUID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	return result, total, nil
}

// lockUser берёт блокировку строки пользователя на время транзакции,
// сериализуя конкурентные Subscribe/Upgrade одного пользователя.
func lockUser(ctx context.Context, tx *sql.Tx, userUID string) error {
	var uid string
	err := tx.QueryRowContext(ctx,
		`SELECT uid FROM users WHERE uid = $1 FOR UPDATE`, userUID).Scan(&uid)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrUserNotFound
	}
	return err
}

func planNameForUpdate(ctx context.Context, tx *sql.Tx, planID int) (string, error) {
	var name string
	err := tx.QueryRowContext(ctx,
		`SELECT name FROM subscription_plans WHERE id = $1`, planID).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrPlanNotFound
	}
	return name, err
}

// deactivateStale сбрасывает флаг у строк, помеченных активными,
// чей срок уже прошёл. Фоновых задач по истечению нет, поэтому такие
// строки убираются попутно при следующей записи.
func deactivateStale(ctx context.Context, tx *sql.Tx, userUID string, now time.Time) (int64, error) {
	result, err := tx.ExecContext(ctx,
		`UPDATE user_subscriptions
		 SET is_active = false
		 WHERE user_uid = $1 AND is_active
		     AND end_date IS NOT NULL AND end_date <= $2`,
		userUID, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func insertSubscription(ctx context.Context, tx *sql.Tx, userUID string, planID int, start, end time.Time) (int, error) {
	var newID int
	err := tx.QueryRowContext(ctx,
		`INSERT INTO user_subscriptions (user_uid, plan_id, start_date, end_date, is_active, created_at)
		 VALUES ($1, $2, $3, $4, true, $3)
		 RETURNING id`,
		userUID, planID, start, end).Scan(&newID)
	return newID, err
}

func scanSubscriptionDetail(rows *sql.Rows) (*models.SubscriptionDetail, error) {
	var item models.SubscriptionDetail
	var endDate sql.NullTime
	if err := rows.Scan(&item.ID, &item.UserUID, &item.PlanID, &item.StartDate,
		&endDate, &item.IsActive, &item.CreatedAt, &item.PlanName, &item.PlanPrice); err != nil {
		return nil, err
	}
	if endDate.Valid {
		item.EndDate = &endDate.Time
	}
	return &item, nil
}
