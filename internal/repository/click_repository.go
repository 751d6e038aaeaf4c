package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/SergeiKhy/multidomain-shortener/internal/models"
	"github.com/jackc/pgx/v5"
)

type ClickRepository interface {
	// RecordClick атомарно увеличивает счётчик и пишет событие.
	// false означает, что ссылка уже не разрешается и ничего не записано
	RecordClick(ctx context.Context, click *models.ClickEvent) (bool, error)
	GetStats(ctx context.Context, shortURLID int64, q models.StatsQuery) (*models.ClickStats, error)
}

type clickRepository struct {
	db *PostgresDB
}

func NewClickRepository(db *PostgresDB) ClickRepository {
	return &clickRepository{db: db}
}

func (r *clickRepository) RecordClick(ctx context.Context, click *models.ClickEvent) (bool, error) {
	recorded := false

	err := pgx.BeginFunc(ctx, r.db.Pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE short_urls
			SET clicks = clicks + 1
			WHERE id = $1
				AND is_active
				AND (expires_at IS NULL OR expires_at > $2)
		`, click.ShortURLID, click.ClickedAt)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return nil
		}

		err = tx.QueryRow(ctx, `
			INSERT INTO click_analytics (short_url_id, clicked_at, ip_address, user_agent, referer, country)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`,
			click.ShortURLID,
			click.ClickedAt,
			click.IPAddress,
			click.UserAgent,
			click.Referer,
			click.Country,
		).Scan(&click.ID)
		if err != nil {
			return err
		}

		recorded = true
		return nil
	})
	if err != nil {
		return false, wrapErr("failed to record click", err)
	}

	return recorded, nil
}

// GetStats читает все агрегаты в одном снимке, поэтому clicks и total_clicks согласованы
func (r *clickRepository) GetStats(ctx context.Context, shortURLID int64, q models.StatsQuery) (*models.ClickStats, error) {
	stats := &models.ClickStats{
		RecentClicks:    []models.ClickEvent{},
		ClicksByDay:     map[string]int64{},
		ClicksByCountry: map[string]int64{},
	}

	err := pgx.BeginTxFunc(ctx, r.db.Pool, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	}, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			SELECT
				(SELECT COUNT(*) FROM click_analytics WHERE short_url_id = $1),
				clicks
			FROM short_urls
			WHERE id = $1
		`, shortURLID).Scan(&stats.TotalClicks, &stats.Clicks)
		if err != nil {
			return err
		}

		if err := r.recent(ctx, tx, shortURLID, q.RecentLimit, stats); err != nil {
			return err
		}

		// Пустые дни не возвращаются
		err = collect(ctx, tx, stats.ClicksByDay, `
			SELECT to_char(clicked_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day, COUNT(*)
			FROM click_analytics
			WHERE short_url_id = $1 AND clicked_at >= $2
			GROUP BY day
		`, shortURLID, q.Since)
		if err != nil {
			return err
		}

		return collect(ctx, tx, stats.ClicksByCountry, `
			SELECT country, COUNT(*)
			FROM click_analytics
			WHERE short_url_id = $1 AND country <> ''
			GROUP BY country
		`, shortURLID)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, wrapErr("failed to get click stats", err)
	}

	return stats, nil
}

func (r *clickRepository) recent(ctx context.Context, tx pgx.Tx, shortURLID int64, limit int, stats *models.ClickStats) error {
	if limit <= 0 {
		return nil
	}

	rows, err := tx.Query(ctx, `
		SELECT id, clicked_at, ip_address, user_agent, referer, country
		FROM click_analytics
		WHERE short_url_id = $1
		ORDER BY clicked_at DESC, id DESC
		LIMIT $2
	`, shortURLID, limit)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		c := models.ClickEvent{ShortURLID: shortURLID}
		if err := rows.Scan(&c.ID, &c.ClickedAt, &c.IPAddress, &c.UserAgent, &c.Referer, &c.Country); err != nil {
			return fmt.Errorf("failed to scan click: %w", err)
		}
		stats.RecentClicks = append(stats.RecentClicks, c)
	}

	return rows.Err()
}

func collect(ctx context.Context, tx pgx.Tx, dst map[string]int64, query string, args ...any) error {
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var count int64
		if err := rows.Scan(&key, &count); err != nil {
			return err
		}
		dst[key] = count
	}

	return rows.Err()
}
