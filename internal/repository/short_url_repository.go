package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/SergeiKhy/multidomain-shortener/internal/models"
	"github.com/jackc/pgx/v5"
)

type ShortURLRepository interface {
	Create(ctx context.Context, u *models.ShortURL) error
	GetByCode(ctx context.Context, domain, code string) (*models.ShortURL, error)
	Update(ctx context.Context, domain, code string, in models.UpdateShortURLInput) (*models.ShortURL, error)
	Deactivate(ctx context.Context, domain, code string) error
	List(ctx context.Context, filter models.ListShortURLsFilter) (*models.ShortURLPage, error)
}

type shortURLRepository struct {
	db *PostgresDB
}

func NewShortURLRepository(db *PostgresDB) ShortURLRepository {
	return &shortURLRepository{db: db}
}

const shortURLColumns = `id, short_code, domain, original_url, title, is_active, expires_at, clicks, created_at, updated_at`

func scanShortURL(row pgx.Row) (*models.ShortURL, error) {
	u := &models.ShortURL{}
	err := row.Scan(
		&u.ID,
		&u.ShortCode,
		&u.Domain,
		&u.OriginalURL,
		&u.Title,
		&u.IsActive,
		&u.ExpiresAt,
		&u.Clicks,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Create вставляет запись. Сама вставка резервирует код:
// конфликт определяется уникальным индексом (domain, short_code)
func (r *shortURLRepository) Create(ctx context.Context, u *models.ShortURL) error {
	query := `
		INSERT INTO short_urls (short_code, domain, original_url, title, is_active, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, clicks, created_at, updated_at
	`

	err := r.db.Pool.QueryRow(
		ctx,
		query,
		u.ShortCode,
		u.Domain,
		u.OriginalURL,
		u.Title,
		u.IsActive,
		u.ExpiresAt,
	).Scan(&u.ID, &u.Clicks, &u.CreatedAt, &u.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrCodeExists
		}
		return wrapErr("failed to create short url", err)
	}

	return nil
}

// GetByCode возвращает запись в любом состоянии (в т.ч. неактивную и истёкшую)
func (r *shortURLRepository) GetByCode(ctx context.Context, domain, code string) (*models.ShortURL, error) {
	query := `SELECT ` + shortURLColumns + ` FROM short_urls WHERE domain = $1 AND short_code = $2`

	u, err := scanShortURL(r.db.Pool.QueryRow(ctx, query, domain, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, wrapErr("failed to get short url", err)
	}

	return u, nil
}

func (r *shortURLRepository) Update(ctx context.Context, domain, code string, in models.UpdateShortURLInput) (*models.ShortURL, error) {
	sets := []string{"updated_at = NOW()"}
	args := []any{domain, code}

	if in.Title != nil {
		args = append(args, *in.Title)
		sets = append(sets, fmt.Sprintf("title = $%d", len(args)))
	}
	if in.IsActive != nil {
		args = append(args, *in.IsActive)
		sets = append(sets, fmt.Sprintf("is_active = $%d", len(args)))
	}
	if in.ExpiresAt.Set {
		// nil очищает срок действия
		args = append(args, in.ExpiresAt.Time)
		sets = append(sets, fmt.Sprintf("expires_at = $%d", len(args)))
	}

	query := `UPDATE short_urls SET ` + strings.Join(sets, ", ") +
		` WHERE domain = $1 AND short_code = $2 RETURNING ` + shortURLColumns

	u, err := scanShortURL(r.db.Pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, wrapErr("failed to update short url", err)
	}

	return u, nil
}

// Deactivate мягкое удаление. Повторный вызов не ошибка
func (r *shortURLRepository) Deactivate(ctx context.Context, domain, code string) error {
	query := `
		UPDATE short_urls
		SET is_active = FALSE,
			updated_at = CASE WHEN is_active THEN NOW() ELSE updated_at END
		WHERE domain = $1 AND short_code = $2
	`

	result, err := r.db.Pool.Exec(ctx, query, domain, code)
	if err != nil {
		return wrapErr("failed to deactivate short url", err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *shortURLRepository) List(ctx context.Context, filter models.ListShortURLsFilter) (*models.ShortURLPage, error) {
	conds := []string{"domain = $1"}
	args := []any{filter.Domain}

	if filter.IsActive != nil {
		args = append(args, *filter.IsActive)
		conds = append(conds, fmt.Sprintf("is_active = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+escapeLike(filter.Search)+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(title ILIKE $%d OR original_url ILIKE $%d)", n, n))
	}

	where := strings.Join(conds, " AND ")

	page := &models.ShortURLPage{Results: []models.ShortURL{}}

	err := pgx.BeginTxFunc(ctx, r.db.Pool, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	}, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM short_urls WHERE `+where, args...).Scan(&page.Count); err != nil {
			return err
		}

		listArgs := append(append([]any{}, args...), filter.Limit, filter.Offset)
		query := fmt.Sprintf(
			`SELECT %s FROM short_urls WHERE %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
			shortURLColumns, where, len(listArgs)-1, len(listArgs),
		)

		rows, err := tx.Query(ctx, query, listArgs...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			u, err := scanShortURL(rows)
			if err != nil {
				return err
			}
			page.Results = append(page.Results, *u)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, wrapErr("failed to list short urls", err)
	}

	return page, nil
}

// escapeLike экранирует спецсимволы LIKE, поиск идёт по подстроке
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
