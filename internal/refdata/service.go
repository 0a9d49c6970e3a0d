package refdata

import (
	"context"
	"fmt"
	"log/slog"

	"fiscal/internal/domain"
	"fiscal/pkg/platform/sentinel"
)

// ParamClient is the slice of the authority client the service needs to
// refresh reference data.
type ParamClient interface {
	ReceiptTypes(ctx context.Context, ticket domain.Ticket) ([]domain.ReceiptType, error)
	ConceptTypes(ctx context.Context, ticket domain.Ticket) ([]domain.ConceptType, error)
	DocumentTypes(ctx context.Context, ticket domain.Ticket) ([]domain.DocumentType, error)
	VatTypes(ctx context.Context, ticket domain.Ticket) ([]domain.VatType, error)
	TaxTypes(ctx context.Context, ticket domain.Ticket) ([]domain.TaxType, error)
	CurrencyTypes(ctx context.Context, ticket domain.Ticket) ([]domain.CurrencyType, error)
	PointsOfSales(ctx context.Context, ticket domain.Ticket) ([]domain.PointOfSales, error)
}

// Service exposes the locally cached authority reference data.
type Service struct {
	store  Store
	client ParamClient
	logger *slog.Logger
}

func NewService(store Store, client ParamClient, logger *slog.Logger) *Service {
	return &Service{store: store, client: client, logger: logger}
}

// LoadAll refreshes every reference table from the authority and replaces the
// local snapshot.
func (s *Service) LoadAll(ctx context.Context, ticket domain.Ticket) error {
	var (
		t   Tables
		err error
	)
	if t.ReceiptTypes, err = s.client.ReceiptTypes(ctx, ticket); err != nil {
		return fmt.Errorf("receipt types: %w", err)
	}
	if t.ConceptTypes, err = s.client.ConceptTypes(ctx, ticket); err != nil {
		return fmt.Errorf("concept types: %w", err)
	}
	if t.DocumentTypes, err = s.client.DocumentTypes(ctx, ticket); err != nil {
		return fmt.Errorf("document types: %w", err)
	}
	if t.VatTypes, err = s.client.VatTypes(ctx, ticket); err != nil {
		return fmt.Errorf("vat types: %w", err)
	}
	if t.TaxTypes, err = s.client.TaxTypes(ctx, ticket); err != nil {
		return fmt.Errorf("tax types: %w", err)
	}
	if t.Currencies, err = s.client.CurrencyTypes(ctx, ticket); err != nil {
		return fmt.Errorf("currencies: %w", err)
	}
	if t.PointsOfSales, err = s.client.PointsOfSales(ctx, ticket); err != nil {
		return fmt.Errorf("points of sales: %w", err)
	}

	if err := s.store.Replace(ctx, t); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "reference data refreshed",
		"receipt_types", len(t.ReceiptTypes),
		"currencies", len(t.Currencies),
		"points_of_sales", len(t.PointsOfSales),
	)
	return nil
}

// DefaultCurrency resolves the default currency as the row with the lowest
// code. The tie-break is deliberate and documented: selection must not depend
// on incidental row order.
func (s *Service) DefaultCurrency(ctx context.Context) (domain.CurrencyType, error) {
	t, err := s.store.Load(ctx)
	if err != nil {
		return domain.CurrencyType{}, err
	}
	if len(t.Currencies) == 0 {
		return domain.CurrencyType{}, fmt.Errorf("no currency records: %w", sentinel.ErrNotFound)
	}
	lowest := t.Currencies[0]
	for _, c := range t.Currencies[1:] {
		if c.Code < lowest.Code {
			lowest = c
		}
	}
	return lowest, nil
}

// ReceiptType looks up a receipt type by code.
func (s *Service) ReceiptType(ctx context.Context, code string) (domain.ReceiptType, error) {
	t, err := s.store.Load(ctx)
	if err != nil {
		return domain.ReceiptType{}, err
	}
	for _, rt := range t.ReceiptTypes {
		if rt.Code == code {
			return rt, nil
		}
	}
	return domain.ReceiptType{}, fmt.Errorf("receipt type %s: %w", code, sentinel.ErrNotFound)
}

// PointsOfSales returns the cached sales channels.
func (s *Service) PointsOfSales(ctx context.Context) ([]domain.PointOfSales, error) {
	t, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	return t.PointsOfSales, nil
}
