package customer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
)

type Service interface {
	CreateCustomer(ctx context.Context, tenantID string, in Input) (*Customer, error)
	GetCustomer(ctx context.Context, tenantID string, id uuid.UUID) (*Customer, error)
	ListCustomers(ctx context.Context, tenantID string) ([]*Customer, error)
	UpdateCustomer(ctx context.Context, tenantID string, id uuid.UUID, in Input) (*Customer, error)
	DeleteCustomer(ctx context.Context, tenantID string, id uuid.UUID) error
}

var _ Service = (*customerService)(nil)

type customerService struct {
	repo   Repository
	logger *slog.Logger
}

func NewCustomerService(repo Repository, logger *slog.Logger) Service {
	if repo == nil {
		panic("customer repository cannot be nil")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		logger.Warn("No logger provided to NewCustomerService, using default stderr handler")
	}
	return &customerService{
		repo:   repo,
		logger: logger.With(slog.String("component", "customerService")),
	}
}

func (s *customerService) CreateCustomer(ctx context.Context, tenantID string, in Input) (*Customer, error) {
	log := s.logger.With(slog.String("tenantID", tenantID))
	log.InfoContext(ctx, "Attempting to create new customer")

	c, err := NewCustomer(tenantID, in)
	if err != nil {
		log.WarnContext(ctx, "Customer validation failed", slog.Any("error", err))
		return nil, err
	}

	if err := s.repo.Create(ctx, c); err != nil {
		log.ErrorContext(ctx, "Repository failed to save new customer", slog.Any("error", err))
		return nil, fmt.Errorf("failed to save new customer: %w", err)
	}

	log.InfoContext(ctx, "Successfully created new customer", slog.String("customerID", c.ID.String()))
	return c, nil
}

func (s *customerService) GetCustomer(ctx context.Context, tenantID string, id uuid.UUID) (*Customer, error) {
	c, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.WarnContext(ctx, "Customer not found", slog.String("tenantID", tenantID), slog.String("customerID", id.String()))
			return nil, ErrNotFound
		}
		s.logger.ErrorContext(ctx, "Repository error finding customer", slog.Any("error", err))
		return nil, fmt.Errorf("failed to get customer %s: %w", id, err)
	}
	return c, nil
}

func (s *customerService) ListCustomers(ctx context.Context, tenantID string) ([]*Customer, error) {
	customers, err := s.repo.List(ctx, tenantID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Repository error listing customers", slog.Any("error", err))
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	s.logger.DebugContext(ctx, "Listed customers", slog.String("tenantID", tenantID), slog.Int("count", len(customers)))
	return customers, nil
}

func (s *customerService) UpdateCustomer(ctx context.Context, tenantID string, id uuid.UUID, in Input) (*Customer, error) {
	log := s.logger.With(slog.String("tenantID", tenantID), slog.String("customerID", id.String()))
	log.InfoContext(ctx, "Attempting to update customer")

	c, err := s.GetCustomer(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if err := c.Apply(in); err != nil {
		log.WarnContext(ctx, "Customer validation failed", slog.Any("error", err))
		return nil, err
	}

	if err := s.repo.Update(ctx, c); err != nil {
		if errors.Is(err, ErrNotFound) {
			log.WarnContext(ctx, "Customer disappeared before update completed")
			return nil, ErrNotFound
		}
		log.ErrorContext(ctx, "Repository failed to update customer", slog.Any("error", err))
		return nil, fmt.Errorf("failed to update customer %s: %w", id, err)
	}

	log.InfoContext(ctx, "Successfully updated customer")
	return c, nil
}

func (s *customerService) DeleteCustomer(ctx context.Context, tenantID string, id uuid.UUID) error {
	log := s.logger.With(slog.String("tenantID", tenantID), slog.String("customerID", id.String()))

	if err := s.repo.Delete(ctx, tenantID, id); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			log.WarnContext(ctx, "Customer not found for deletion")
			return ErrNotFound
		case errors.Is(err, ErrHasLoans):
			log.WarnContext(ctx, "Refusing to delete customer with loans")
			return ErrHasLoans
		}
		log.ErrorContext(ctx, "Repository failed to delete customer", slog.Any("error", err))
		return fmt.Errorf("failed to delete customer %s: %w", id, err)
	}

	log.InfoContext(ctx, "Successfully deleted customer")
	return nil
}
