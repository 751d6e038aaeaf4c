package repository

import (
	"context"
	"errors"

	"github.com/SergeiKhy/multidomain-shortener/internal/models"
	"github.com/jackc/pgx/v5"
)

type DomainRepository interface {
	Create(ctx context.Context, d *models.DomainConfiguration) error
	GetByDomain(ctx context.Context, domain string) (*models.DomainConfiguration, error)
	// Reactivate включает ранее отключённый домен, перезаписывая его параметры
	Reactivate(ctx context.Context, in models.ConfigureDomainInput) (*models.DomainConfiguration, error)
	SetActive(ctx context.Context, domain string, active bool) (*models.DomainConfiguration, error)
	Delete(ctx context.Context, domain string) error
	UpdateSSL(ctx context.Context, domain string, upd models.SSLStatusUpdate) (*models.DomainConfiguration, error)
	ListByAccount(ctx context.Context, accountID int64, activeOnly bool) ([]models.DomainConfiguration, error)
}

type domainRepository struct {
	db *PostgresDB
}

func NewDomainRepository(db *PostgresDB) DomainRepository {
	return &domainRepository{db: db}
}

const domainColumns = `id, domain, account_id, domain_type, is_verified, is_active, ssl_status,
	ssl_issued_at, ssl_expires_at, use_caddy, notes, configured_at, updated_at`

func scanDomain(row pgx.Row) (*models.DomainConfiguration, error) {
	d := &models.DomainConfiguration{}
	err := row.Scan(
		&d.ID,
		&d.Domain,
		&d.AccountID,
		&d.DomainType,
		&d.IsVerified,
		&d.IsActive,
		&d.SSLStatus,
		&d.SSLIssuedAt,
		&d.SSLExpiresAt,
		&d.UseCaddy,
		&d.Notes,
		&d.ConfiguredAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (r *domainRepository) one(ctx context.Context, op, query string, args ...any) (*models.DomainConfiguration, error) {
	d, err := scanDomain(r.db.Pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, wrapErr(op, err)
	}
	return d, nil
}

func (r *domainRepository) Create(ctx context.Context, d *models.DomainConfiguration) error {
	query := `
		INSERT INTO domain_configurations (domain, account_id, domain_type, is_verified, is_active, ssl_status, use_caddy, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, configured_at, updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		d.Domain,
		d.AccountID,
		d.DomainType,
		d.IsVerified,
		d.IsActive,
		d.SSLStatus,
		d.UseCaddy,
		d.Notes,
	).Scan(&d.ID, &d.ConfiguredAt, &d.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrDomainExists
		}
		return wrapErr("failed to create domain configuration", err)
	}

	return nil
}

func (r *domainRepository) GetByDomain(ctx context.Context, domain string) (*models.DomainConfiguration, error) {
	return r.one(ctx, "failed to get domain configuration",
		`SELECT `+domainColumns+` FROM domain_configurations WHERE domain = $1`, domain)
}

func (r *domainRepository) Reactivate(ctx context.Context, in models.ConfigureDomainInput) (*models.DomainConfiguration, error) {
	// Условие по is_active защищает от гонки с параллельной активацией
	d, err := r.one(ctx, "failed to reactivate domain configuration", `
		UPDATE domain_configurations
		SET is_active = TRUE,
			account_id = $2,
			domain_type = $3,
			use_caddy = $4,
			notes = $5,
			ssl_status = 'pending',
			updated_at = NOW()
		WHERE domain = $1 AND NOT is_active
		RETURNING `+domainColumns,
		in.Domain, in.AccountID, in.DomainType, in.UseCaddy, in.Notes)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrDomainExists
	}
	return d, err
}

func (r *domainRepository) SetActive(ctx context.Context, domain string, active bool) (*models.DomainConfiguration, error) {
	return r.one(ctx, "failed to update domain configuration", `
		UPDATE domain_configurations
		SET is_active = $2, updated_at = NOW()
		WHERE domain = $1
		RETURNING `+domainColumns, domain, active)
}

func (r *domainRepository) Delete(ctx context.Context, domain string) error {
	result, err := r.db.Pool.Exec(ctx, `DELETE FROM domain_configurations WHERE domain = $1`, domain)
	if err != nil {
		return wrapErr("failed to delete domain configuration", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateSSL обновляет статус сертификата. Пустые поля не меняются,
// статус active помечает домен проверенным
func (r *domainRepository) UpdateSSL(ctx context.Context, domain string, upd models.SSLStatusUpdate) (*models.DomainConfiguration, error) {
	return r.one(ctx, "failed to update ssl status", `
		UPDATE domain_configurations
		SET ssl_status = COALESCE(NULLIF($2::text, ''), ssl_status),
			ssl_issued_at = COALESCE($3::timestamptz, ssl_issued_at),
			ssl_expires_at = COALESCE($4::timestamptz, ssl_expires_at),
			is_verified = is_verified OR $2::text = 'active',
			updated_at = NOW()
		WHERE domain = $1
		RETURNING `+domainColumns,
		domain, string(upd.Status), upd.SSLIssuedAt, upd.SSLExpiresAt)
}

func (r *domainRepository) ListByAccount(ctx context.Context, accountID int64, activeOnly bool) ([]models.DomainConfiguration, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+domainColumns+`
		FROM domain_configurations
		WHERE account_id = $1 AND (is_active OR NOT $2)
		ORDER BY configured_at DESC, id DESC
	`, accountID, activeOnly)
	if err != nil {
		return nil, wrapErr("failed to list domain configurations", err)
	}
	defer rows.Close()

	domains := []models.DomainConfiguration{}
	for rows.Next() {
		d, err := scanDomain(rows)
		if err != nil {
			return nil, wrapErr("failed to scan domain configuration", err)
		}
		domains = append(domains, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, wrapErr("failed to list domain configurations", err)
	}

	return domains, nil
}
