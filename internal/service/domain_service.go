package service

import (
	"context"
	"errors"

	"github.com/SergeiKhy/multidomain-shortener/internal/models"
	"github.com/SergeiKhy/multidomain-shortener/internal/repository"
	"go.uber.org/zap"
)

// DomainService управляет доменами для on-demand TLS
type DomainService interface {
	// Configure создаёт домен или включает ранее отключённый. created == true для нового
	Configure(ctx context.Context, input models.ConfigureDomainInput) (cfg *models.DomainConfiguration, created bool, err error)
	Status(ctx context.Context, domain string) (*models.DomainConfiguration, error)
	Remove(ctx context.Context, domain string, hard bool) error
	UpdateSSLStatus(ctx context.Context, domain string, update models.SSLStatusUpdate) (*models.DomainConfiguration, error)
	ListByAccount(ctx context.Context, accountID int64, activeOnly bool) ([]models.DomainConfiguration, error)
	// AllowCertificate разрешает выпуск сертификата только для активного домена
	AllowCertificate(ctx context.Context, domain string) (*models.DomainConfiguration, bool, error)
}

type domainService struct {
	repo   repository.DomainRepository
	logger *zap.Logger
}

func NewDomainService(repo repository.DomainRepository, logger *zap.Logger) DomainService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &domainService{repo: repo, logger: logger}
}

func (s *domainService) Configure(ctx context.Context, input models.ConfigureDomainInput) (*models.DomainConfiguration, bool, error) {
	domain, err := NormalizeDomain(input.Domain)
	if err != nil {
		return nil, false, err
	}
	input.Domain = domain

	if input.AccountID <= 0 {
		return nil, false, invalid("account_id", "account_id must be positive", ErrInvalidInput)
	}
	if input.DomainType == "" {
		input.DomainType = models.DomainTypeForms
	}
	if !input.DomainType.Valid() {
		return nil, false, invalid("domain_type", "domain_type must be one of forms, payment, other", ErrInvalidInput)
	}

	d := &models.DomainConfiguration{
		Domain:     input.Domain,
		AccountID:  input.AccountID,
		DomainType: input.DomainType,
		IsActive:   true,
		SSLStatus:  models.SSLStatusPending,
		UseCaddy:   input.UseCaddy,
		Notes:      input.Notes,
	}

	err = withRetryErr(ctx, s.logger, "create_domain", func(ctx context.Context) error {
		return s.repo.Create(ctx, d)
	})
	if err == nil {
		s.logger.Info("Домен настроен",
			zap.String("domain", d.Domain),
			zap.Int64("account_id", d.AccountID),
		)
		return d, true, nil
	}
	if !errors.Is(err, repository.ErrDomainExists) {
		return nil, false, err
	}

	// Домен уже есть: включаем, если он был отключён
	d, err = withRetry(ctx, s.logger, "reactivate_domain", func(ctx context.Context) (*models.DomainConfiguration, error) {
		return s.repo.Reactivate(ctx, input)
	})
	if err != nil {
		if errors.Is(err, repository.ErrDomainExists) {
			return nil, false, ErrDomainExists
		}
		return nil, false, err
	}

	s.logger.Info("Домен повторно активирован",
		zap.String("domain", d.Domain),
		zap.Int64("account_id", d.AccountID),
	)
	return d, false, nil
}

func (s *domainService) Status(ctx context.Context, domain string) (*models.DomainConfiguration, error) {
	domain, err := NormalizeDomain(domain)
	if err != nil {
		return nil, ErrDomainNotFound
	}

	d, err := withRetry(ctx, s.logger, "get_domain", func(ctx context.Context) (*models.DomainConfiguration, error) {
		return s.repo.GetByDomain(ctx, domain)
	})
	return d, mapDomainErr(err)
}

// Remove по умолчанию только отключает домен, hard удаляет запись
func (s *domainService) Remove(ctx context.Context, domain string, hard bool) error {
	domain, err := NormalizeDomain(domain)
	if err != nil {
		return ErrDomainNotFound
	}

	if hard {
		err = withRetryErr(ctx, s.logger, "delete_domain", func(ctx context.Context) error {
			return s.repo.Delete(ctx, domain)
		})
	} else {
		_, err = withRetry(ctx, s.logger, "deactivate_domain", func(ctx context.Context) (*models.DomainConfiguration, error) {
			return s.repo.SetActive(ctx, domain, false)
		})
	}
	if err != nil {
		return mapDomainErr(err)
	}

	s.logger.Info("Домен удалён",
		zap.String("domain", domain),
		zap.Bool("hard_delete", hard),
	)
	return nil
}

func (s *domainService) UpdateSSLStatus(ctx context.Context, domain string, update models.SSLStatusUpdate) (*models.DomainConfiguration, error) {
	domain, err := NormalizeDomain(domain)
	if err != nil {
		return nil, ErrDomainNotFound
	}
	if update.Status != "" && !update.Status.Valid() {
		return nil, invalid("ssl_status", "ssl_status must be one of pending, active, failed, expired", ErrInvalidInput)
	}

	d, err := withRetry(ctx, s.logger, "update_domain_ssl", func(ctx context.Context) (*models.DomainConfiguration, error) {
		return s.repo.UpdateSSL(ctx, domain, update)
	})
	if err != nil {
		return nil, mapDomainErr(err)
	}

	s.logger.Info("Обновлён статус SSL",
		zap.String("domain", domain),
		zap.String("ssl_status", string(d.SSLStatus)),
	)
	return d, nil
}

func (s *domainService) ListByAccount(ctx context.Context, accountID int64, activeOnly bool) ([]models.DomainConfiguration, error) {
	return withRetry(ctx, s.logger, "list_domains", func(ctx context.Context) ([]models.DomainConfiguration, error) {
		return s.repo.ListByAccount(ctx, accountID, activeOnly)
	})
}

func (s *domainService) AllowCertificate(ctx context.Context, domain string) (*models.DomainConfiguration, bool, error) {
	d, err := s.Status(ctx, domain)
	if err != nil {
		if errors.Is(err, ErrDomainNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return d, d.IsActive, nil
}

func mapDomainErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrDomainNotFound
	}
	return err
}
