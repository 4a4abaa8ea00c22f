package usecases

import (
	"context"
	"io"
	"strings"
	"testing"

	"estate_crm/internal/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type catalogAreas struct {
	fakeAreas
}

func (f *catalogAreas) Create(_ context.Context, a *entities.Area) error {
	for _, existing := range f.areas {
		if strings.EqualFold(existing.Name, a.Name) {
			return entities.ErrConflict
		}
	}
	a.ID = len(f.areas) + 1
	f.areas = append(f.areas, *a)
	return nil
}

func (f *catalogAreas) Update(_ context.Context, a *entities.Area) error {
	for i := range f.areas {
		if f.areas[i].ID == a.ID {
			f.areas[i] = *a
			return nil
		}
	}
	return entities.ErrNotFound
}

type catalogUnitTypes struct {
	fakeUnitTypes
}

func (f *catalogUnitTypes) Create(_ context.Context, t *entities.UnitType) error {
	t.ID = len(f.types) + 1
	f.types = append(f.types, *t)
	return nil
}

type fakeUnits struct {
	UnitStore
	units    []entities.Unit
	imported string
}

func (f *fakeUnits) Create(_ context.Context, u *entities.Unit) error {
	u.ID = len(f.units) + 1
	f.units = append(f.units, *u)
	return nil
}

func (f *fakeUnits) GetByID(_ context.Context, id int) (*entities.Unit, error) {
	for _, u := range f.units {
		if u.ID == id {
			cp := u
			return &cp, nil
		}
	}
	return nil, entities.ErrNotFound
}

func (f *fakeUnits) Update(_ context.Context, u *entities.Unit) error {
	f.units[u.ID-1] = *u
	return nil
}

func (f *fakeUnits) ImportCSV(_ context.Context, data io.Reader) (int, error) {
	b, err := io.ReadAll(data)
	if err != nil {
		return 0, err
	}
	f.imported = string(b)
	return strings.Count(strings.TrimSpace(f.imported), "\n"), nil
}

type recordingCatalogIndexer struct {
	areas []string
	types []string
}

func (r *recordingCatalogIndexer) QueueArea(_ context.Context, a entities.Area) error {
	r.areas = append(r.areas, a.Name)
	return nil
}

func (r *recordingCatalogIndexer) QueueUnitType(_ context.Context, t entities.UnitType) error {
	r.types = append(r.types, t.Name)
	return nil
}

func newCatalogFixture() (*CatalogUsecase, *fakeUnits, *recordingCatalogIndexer) {
	areas := &catalogAreas{}
	types := &catalogUnitTypes{}
	units := &fakeUnits{}
	indexer := &recordingCatalogIndexer{}
	return NewCatalogUsecase(areas, types, units, indexer), units, indexer
}

func TestCatalogUsecase_AreasAreIndexed(t *testing.T) {
	uc, _, indexer := newCatalogFixture()
	ctx := context.Background()

	area, err := uc.CreateArea(ctx, AreaInput{Name: " New Cairo ", NameAr: "القاهرة الجديدة"})
	require.NoError(t, err)
	assert.Equal(t, "New Cairo", area.Name)
	assert.True(t, area.IsActive)

	_, err = uc.CreateArea(ctx, AreaInput{Name: "new cairo"})
	assert.ErrorIs(t, err, entities.ErrConflict)
	_, err = uc.CreateArea(ctx, AreaInput{Name: "  "})
	assert.ErrorIs(t, err, entities.ErrInvalidInput)

	// Description-only edits keep the embedding
	_, err = uc.UpdateArea(ctx, area.ID, AreaInput{Name: "New Cairo", NameAr: "القاهرة الجديدة", Description: "East"})
	require.NoError(t, err)
	_, err = uc.UpdateArea(ctx, area.ID, AreaInput{Name: "Fifth Settlement", NameAr: "التجمع الخامس"})
	require.NoError(t, err)
	assert.Equal(t, []string{"New Cairo", "Fifth Settlement"}, indexer.areas)

	_, err = uc.CreateUnitType(ctx, UnitTypeInput{Name: "Villa", NameAr: "فيلا"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Villa"}, indexer.types)
}

func TestCatalogUsecase_Units(t *testing.T) {
	uc, units, _ := newCatalogFixture()
	ctx := context.Background()
	area, err := uc.CreateArea(ctx, AreaInput{Name: "Maadi"})
	require.NoError(t, err)
	ut, err := uc.CreateUnitType(ctx, UnitTypeInput{Name: "Apartment"})
	require.NoError(t, err)

	unit, err := uc.CreateUnit(ctx, UnitInput{AreaID: area.ID, UnitTypeID: ut.ID, Title: "Nile view", Price: 3e6, Bedrooms: 3})
	require.NoError(t, err)
	assert.Equal(t, entities.UnitAvailable, unit.Status)

	_, err = uc.CreateUnit(ctx, UnitInput{AreaID: 99, UnitTypeID: ut.ID, Title: "Ghost"})
	assert.ErrorIs(t, err, entities.ErrInvalidInput)
	_, err = uc.CreateUnit(ctx, UnitInput{AreaID: area.ID, UnitTypeID: ut.ID, Title: "Bad", Status: "demolished"})
	assert.ErrorIs(t, err, entities.ErrInvalidInput)
	_, err = uc.CreateUnit(ctx, UnitInput{AreaID: area.ID, UnitTypeID: ut.ID, Title: "Bad", Price: -1})
	assert.ErrorIs(t, err, entities.ErrInvalidInput)

	updated, err := uc.UpdateUnit(ctx, unit.ID, UnitInput{AreaID: area.ID, UnitTypeID: ut.ID, Title: "Nile view", Price: 3e6, Status: entities.UnitSold})
	require.NoError(t, err)
	assert.Equal(t, entities.UnitSold, updated.Status)
	assert.Equal(t, entities.UnitSold, units.units[0].Status)

	_, err = uc.ListUnits(ctx, entities.UnitFilter{Status: "gone"})
	assert.ErrorIs(t, err, entities.ErrInvalidInput)

	n, err := uc.ImportUnits(ctx, strings.NewReader("area,unit_type,title\nMaadi,Apartment,A\nMaadi,Apartment,B\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
