package refdata

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fiscal/internal/domain"
	"fiscal/pkg/platform/sentinel"
)

type fakeParamClient struct {
	tables Tables
	err    error
}

func (c *fakeParamClient) ReceiptTypes(context.Context, domain.Ticket) ([]domain.ReceiptType, error) {
	return c.tables.ReceiptTypes, c.err
}

func (c *fakeParamClient) ConceptTypes(context.Context, domain.Ticket) ([]domain.ConceptType, error) {
	return c.tables.ConceptTypes, c.err
}

func (c *fakeParamClient) DocumentTypes(context.Context, domain.Ticket) ([]domain.DocumentType, error) {
	return c.tables.DocumentTypes, c.err
}

func (c *fakeParamClient) VatTypes(context.Context, domain.Ticket) ([]domain.VatType, error) {
	return c.tables.VatTypes, c.err
}

func (c *fakeParamClient) TaxTypes(context.Context, domain.Ticket) ([]domain.TaxType, error) {
	return c.tables.TaxTypes, c.err
}

func (c *fakeParamClient) CurrencyTypes(context.Context, domain.Ticket) ([]domain.CurrencyType, error) {
	return c.tables.Currencies, c.err
}

func (c *fakeParamClient) PointsOfSales(context.Context, domain.Ticket) ([]domain.PointOfSales, error) {
	return c.tables.PointsOfSales, c.err
}

func newTestService(store Store, client ParamClient) *Service {
	return NewService(store, client, slog.New(slog.DiscardHandler))
}

func TestLoadAllReplacesSnapshot(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	client := &fakeParamClient{tables: Tables{
		ReceiptTypes:  []domain.ReceiptType{{Code: "11", Description: "Factura C"}},
		Currencies:    []domain.CurrencyType{{Code: "PES", Description: "Pesos Argentinos"}},
		PointsOfSales: []domain.PointOfSales{{Number: 1, IssuanceType: "CAE"}},
	}}
	svc := newTestService(store, client)

	require.NoError(t, svc.LoadAll(ctx, domain.Ticket{}))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded.ReceiptTypes, 1)
	assert.Equal(t, "11", loaded.ReceiptTypes[0].Code)
}

func TestLoadAllPropagatesClientError(t *testing.T) {
	store := NewInMemoryStore()
	client := &fakeParamClient{err: errors.New("boom")}
	svc := newTestService(store, client)

	err := svc.LoadAll(context.Background(), domain.Ticket{})
	assert.Error(t, err)
}

func TestDefaultCurrencyLowestCode(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	// Deliberately out of order; selection must not depend on row order.
	require.NoError(t, store.Replace(ctx, Tables{Currencies: []domain.CurrencyType{
		{Code: "2", Description: "second"},
		{Code: "1", Description: "first"},
		{Code: "3", Description: "third"},
	}}))
	svc := newTestService(store, &fakeParamClient{})

	c, err := svc.DefaultCurrency(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1", c.Code)
}

func TestDefaultCurrencyEmptyTable(t *testing.T) {
	svc := newTestService(NewInMemoryStore(), &fakeParamClient{})

	_, err := svc.DefaultCurrency(context.Background())
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestReceiptTypeLookup(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	require.NoError(t, store.Replace(ctx, Tables{ReceiptTypes: []domain.ReceiptType{
		{Code: "6", Description: "Factura B"},
		{Code: "11", Description: "Factura C"},
	}}))
	svc := newTestService(store, &fakeParamClient{})

	rt, err := svc.ReceiptType(ctx, "11")
	require.NoError(t, err)
	assert.Equal(t, "Factura C", rt.Description)

	_, err = svc.ReceiptType(ctx, "99")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}
