package agencies

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-dms/meridian-dms/internal/shared"
)

type memoryAgencyRepo struct {
	nextID   int64
	agencies map[int64]*Agency
	stats    map[int64]*Stats
	statsAt  time.Time
}

func newMemoryAgencyRepo() *memoryAgencyRepo {
	return &memoryAgencyRepo{nextID: 1, agencies: make(map[int64]*Agency), stats: make(map[int64]*Stats)}
}

func (r *memoryAgencyRepo) List(context.Context) ([]Agency, error) {
	var out []Agency
	for _, a := range r.agencies {
		if a.IsActive {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *memoryAgencyRepo) Get(_ context.Context, id int64) (*Agency, error) {
	a, ok := r.agencies[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	clone := *a
	return &clone, nil
}

func (r *memoryAgencyRepo) Create(_ context.Context, input CreateInput) (*Agency, error) {
	for _, a := range r.agencies {
		if a.Name == input.Name {
			return nil, shared.ErrDuplicate
		}
	}
	agencyType := input.Type
	if agencyType == "" {
		agencyType = TypeAgency
	}
	a := &Agency{ID: r.nextID, Name: input.Name, Type: agencyType, ContactPerson: input.ContactPerson, Phone: input.Phone, IsActive: true}
	r.agencies[a.ID] = a
	r.nextID++
	clone := *a
	return &clone, nil
}

func (r *memoryAgencyRepo) Update(_ context.Context, id int64, input UpdateInput) (*Agency, error) {
	a, ok := r.agencies[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	if input.Name != nil {
		a.Name = *input.Name
	}
	if input.IsActive != nil {
		a.IsActive = *input.IsActive
	}
	clone := *a
	return &clone, nil
}

func (r *memoryAgencyRepo) SoftDelete(_ context.Context, id int64) error {
	a, ok := r.agencies[id]
	if !ok {
		return shared.ErrNotFound
	}
	a.IsActive = false
	return nil
}

func (r *memoryAgencyRepo) ListProducts(context.Context, int64) ([]ProductSummary, error) {
	return nil, nil
}

func (r *memoryAgencyRepo) RecentSales(context.Context, int64, int) ([]SaleSummary, error) {
	return nil, nil
}

func (r *memoryAgencyRepo) RecentMovements(context.Context, int64, int) ([]MovementSummary, error) {
	return nil, nil
}

func (r *memoryAgencyRepo) WindowedStats(_ context.Context, id int64, from time.Time) (*Stats, error) {
	r.statsAt = from
	if s, ok := r.stats[id]; ok {
		clone := *s
		return &clone, nil
	}
	return &Stats{From: from}, nil
}

func TestCreateDefaultsToAgencyType(t *testing.T) {
	svc := NewService(newMemoryAgencyRepo(), nil)
	agency, err := svc.Create(context.Background(), CreateInput{Name: "North Depot", ContactPerson: "Asha", Phone: "9876543210"}, 1)
	require.NoError(t, err)
	require.Equal(t, TypeAgency, agency.Type)
	require.True(t, agency.IsActive)
}

func TestDeleteHidesAgencyFromList(t *testing.T) {
	repo := newMemoryAgencyRepo()
	svc := NewService(repo, nil)
	agency, err := svc.Create(context.Background(), CreateInput{Name: "North Depot", ContactPerson: "Asha", Phone: "9876543210"}, 1)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), agency.ID, 1))
	list, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Empty(t, list)

	// Still retrievable by id for history views.
	detail, err := svc.Get(context.Background(), agency.ID)
	require.NoError(t, err)
	require.False(t, detail.Agency.IsActive)
}

func TestStatsRejectsUnknownPeriod(t *testing.T) {
	repo := newMemoryAgencyRepo()
	svc := NewService(repo, nil)
	agency, err := svc.Create(context.Background(), CreateInput{Name: "North Depot", ContactPerson: "Asha", Phone: "9876543210"}, 1)
	require.NoError(t, err)

	_, err = svc.Stats(context.Background(), agency.ID, "fortnight")
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestStatsWindowStarts(t *testing.T) {
	repo := newMemoryAgencyRepo()
	svc := NewService(repo, nil)
	agency, err := svc.Create(context.Background(), CreateInput{Name: "North Depot", ContactPerson: "Asha", Phone: "9876543210"}, 1)
	require.NoError(t, err)

	cases := map[string]int{"week": 7, "month": 30, "quarter": 90, "year": 365}
	for period, days := range cases {
		stats, err := svc.Stats(context.Background(), agency.ID, period)
		require.NoError(t, err)
		require.Equal(t, period, stats.Period)
		expected := time.Now().UTC().AddDate(0, 0, -days)
		require.WithinDuration(t, expected, repo.statsAt, time.Minute)
	}
}

func TestStatsUnknownAgency(t *testing.T) {
	svc := NewService(newMemoryAgencyRepo(), nil)
	_, err := svc.Stats(context.Background(), 42, "month")
	require.ErrorIs(t, err, shared.ErrNotFound)
}
