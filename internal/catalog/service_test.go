package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-dms/meridian-dms/internal/shared"
)

type memoryProductRepo struct {
	nextID   int64
	products map[int64]*Product
}

func newMemoryProductRepo() *memoryProductRepo {
	return &memoryProductRepo{nextID: 1, products: make(map[int64]*Product)}
}

func (r *memoryProductRepo) Create(_ context.Context, input CreateInput) (*Product, error) {
	p := &Product{
		ID: r.nextID, Name: input.Name, AgencyID: input.AgencyID, Category: input.Category,
		PriceCost: input.PriceCost, PriceSelling: input.PriceSelling,
		StockCurrent: input.StockCurrent, StockMinimum: input.StockMinimum, StockMaximum: input.StockMaximum,
		IsActive: true,
	}
	r.products[p.ID] = p
	r.nextID++
	clone := *p
	return &clone, nil
}

func (r *memoryProductRepo) Get(_ context.Context, id int64) (*Product, error) {
	p, ok := r.products[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	clone := *p
	return &clone, nil
}

func (r *memoryProductRepo) List(_ context.Context, filter ListFilter) ([]Product, int, error) {
	var out []Product
	for _, p := range r.products {
		if !p.IsActive {
			continue
		}
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (r *memoryProductRepo) Update(_ context.Context, id int64, input UpdateInput) (*Product, error) {
	p, ok := r.products[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	if input.Name != nil {
		p.Name = *input.Name
	}
	if input.PriceCost != nil {
		p.PriceCost = *input.PriceCost
	}
	if input.PriceSelling != nil {
		p.PriceSelling = *input.PriceSelling
	}
	clone := *p
	return &clone, nil
}

func (r *memoryProductRepo) SoftDelete(_ context.Context, id int64) error {
	p, ok := r.products[id]
	if !ok {
		return shared.ErrNotFound
	}
	p.IsActive = false
	return nil
}

func (r *memoryProductRepo) StatsOverview(context.Context) (*Overview, error) {
	return &Overview{}, nil
}

func TestStatusThresholds(t *testing.T) {
	cases := []struct {
		name     string
		current  float64
		minimum  float64
		maximum  float64
		expected string
	}{
		{"zero stock", 0, 10, 100, StockOut},
		{"negative guard", -1, 10, 100, StockOut},
		{"at minimum", 10, 10, 100, StockLow},
		{"below minimum", 5, 10, 100, StockLow},
		{"healthy", 50, 10, 100, StockOK},
		{"at maximum", 100, 10, 100, StockOver},
		{"no maximum configured", 500, 10, 0, StockOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := Product{StockCurrent: tc.current, StockMinimum: tc.minimum, StockMaximum: tc.maximum}
			require.Equal(t, tc.expected, p.Status())
		})
	}
}

func TestMargin(t *testing.T) {
	p := Product{PriceCost: 50, PriceSelling: 80}
	require.InDelta(t, 37.5, p.Margin(), 0.0001)

	free := Product{PriceCost: 10, PriceSelling: 0}
	require.Zero(t, free.Margin())
}

func TestCreateRejectsSellingBelowCost(t *testing.T) {
	svc := NewService(newMemoryProductRepo(), nil)
	_, err := svc.Create(context.Background(), CreateInput{
		Name: "Trail Mix", AgencyID: 1, Category: CategorySnacks, PriceCost: 80, PriceSelling: 50,
	}, 1)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateFillsDerivedFields(t *testing.T) {
	svc := NewService(newMemoryProductRepo(), nil)
	product, err := svc.Create(context.Background(), CreateInput{
		Name: "Trail Mix", AgencyID: 1, Category: CategorySnacks,
		PriceCost: 50, PriceSelling: 80, StockCurrent: 5, StockMinimum: 10,
	}, 1)
	require.NoError(t, err)
	require.Equal(t, StockLow, product.StockStatus)
	require.InDelta(t, 37.5, product.ProfitMargin, 0.0001)
}

func TestDeleteHidesProduct(t *testing.T) {
	repo := newMemoryProductRepo()
	svc := NewService(repo, nil)
	product, err := svc.Create(context.Background(), CreateInput{
		Name: "Trail Mix", AgencyID: 1, Category: CategorySnacks, PriceCost: 50, PriceSelling: 80,
	}, 1)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), product.ID, 1))
	products, _, err := svc.List(context.Background(), ListFilter{})
	require.NoError(t, err)
	require.Empty(t, products)
}
