package usecases

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"estate_crm/internal/entities"

	"github.com/rs/zerolog/log"
)

// Indexer schedules embedding updates for catalog entries
type Indexer interface {
	QueueArea(ctx context.Context, a entities.Area) error
	QueueUnitType(ctx context.Context, t entities.UnitType) error
}

type CatalogUsecase struct {
	areas     AreaStore
	unitTypes UnitTypeStore
	units     UnitStore
	indexer   Indexer
}

func NewCatalogUsecase(areas AreaStore, unitTypes UnitTypeStore, units UnitStore, indexer Indexer) *CatalogUsecase {
	return &CatalogUsecase{areas: areas, unitTypes: unitTypes, units: units, indexer: indexer}
}

type AreaInput struct {
	Name        string `json:"name" binding:"required"`
	NameAr      string `json:"name_ar"`
	Description string `json:"description"`
	IsActive    *bool  `json:"is_active"`
}

func (in AreaInput) apply(a *entities.Area) error {
	a.Name = strings.TrimSpace(in.Name)
	a.NameAr = strings.TrimSpace(in.NameAr)
	a.Description = strings.TrimSpace(in.Description)
	if in.IsActive != nil {
		a.IsActive = *in.IsActive
	}
	if a.Name == "" {
		return fmt.Errorf("%w: area name is required", entities.ErrInvalidInput)
	}
	return nil
}

func (uc *CatalogUsecase) ListAreas(ctx context.Context, activeOnly bool) ([]entities.Area, error) {
	return uc.areas.List(ctx, activeOnly)
}

func (uc *CatalogUsecase) GetArea(ctx context.Context, id int) (*entities.Area, error) {
	return uc.areas.GetByID(ctx, id)
}

func (uc *CatalogUsecase) CreateArea(ctx context.Context, in AreaInput) (*entities.Area, error) {
	a := &entities.Area{IsActive: true}
	if err := in.apply(a); err != nil {
		return nil, err
	}
	if err := uc.areas.Create(ctx, a); err != nil {
		return nil, err
	}
	uc.indexArea(ctx, *a)
	return a, nil
}

func (uc *CatalogUsecase) UpdateArea(ctx context.Context, id int, in AreaInput) (*entities.Area, error) {
	a, err := uc.areas.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	renamed := a.Name != strings.TrimSpace(in.Name) || a.NameAr != strings.TrimSpace(in.NameAr)
	if err := in.apply(a); err != nil {
		return nil, err
	}
	if err := uc.areas.Update(ctx, a); err != nil {
		return nil, err
	}
	if renamed {
		uc.indexArea(ctx, *a)
	}
	return a, nil
}

func (uc *CatalogUsecase) DeleteArea(ctx context.Context, id int) error {
	return uc.areas.Delete(ctx, id)
}

func (uc *CatalogUsecase) indexArea(ctx context.Context, a entities.Area) {
	if err := uc.indexer.QueueArea(ctx, a); err != nil {
		log.Warn().Err(err).Int("area_id", a.ID).Msg("area embedding not queued")
	}
}

type UnitTypeInput struct {
	Name   string `json:"name" binding:"required"`
	NameAr string `json:"name_ar"`
}

func (uc *CatalogUsecase) ListUnitTypes(ctx context.Context) ([]entities.UnitType, error) {
	return uc.unitTypes.List(ctx)
}

func (uc *CatalogUsecase) CreateUnitType(ctx context.Context, in UnitTypeInput) (*entities.UnitType, error) {
	t := &entities.UnitType{Name: strings.TrimSpace(in.Name), NameAr: strings.TrimSpace(in.NameAr)}
	if t.Name == "" {
		return nil, fmt.Errorf("%w: unit type name is required", entities.ErrInvalidInput)
	}
	if err := uc.unitTypes.Create(ctx, t); err != nil {
		return nil, err
	}
	if err := uc.indexer.QueueUnitType(ctx, *t); err != nil {
		log.Warn().Err(err).Int("unit_type_id", t.ID).Msg("unit type embedding not queued")
	}
	return t, nil
}

type UnitInput struct {
	AreaID     int     `json:"area_id" binding:"required"`
	UnitTypeID int     `json:"unit_type_id" binding:"required"`
	Title      string  `json:"title" binding:"required"`
	Price      float64 `json:"price"`
	Bedrooms   int     `json:"bedrooms"`
	Bathrooms  int     `json:"bathrooms"`
	SizeSqm    float64 `json:"size_sqm"`
	Status     string  `json:"status"`
}

func (uc *CatalogUsecase) unitFromInput(ctx context.Context, u *entities.Unit, in UnitInput) error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: title is required", entities.ErrInvalidInput)
	}
	if in.Price < 0 || in.Bedrooms < 0 || in.Bathrooms < 0 || in.SizeSqm < 0 {
		return fmt.Errorf("%w: numeric fields must not be negative", entities.ErrInvalidInput)
	}
	status := in.Status
	if status == "" {
		status = entities.UnitAvailable
	}
	if !entities.ValidUnitStatus(status) {
		return fmt.Errorf("%w: unknown unit status %q", entities.ErrInvalidInput, status)
	}
	if _, err := uc.areas.GetByID(ctx, in.AreaID); err != nil {
		return asInvalid(err, "unknown area %d", in.AreaID)
	}
	if _, err := uc.unitTypes.GetByID(ctx, in.UnitTypeID); err != nil {
		return asInvalid(err, "unknown unit type %d", in.UnitTypeID)
	}

	u.AreaID = in.AreaID
	u.UnitTypeID = in.UnitTypeID
	u.Title = strings.TrimSpace(in.Title)
	u.Price = in.Price
	u.Bedrooms = in.Bedrooms
	u.Bathrooms = in.Bathrooms
	u.SizeSqm = in.SizeSqm
	u.Status = status
	return nil
}

func (uc *CatalogUsecase) ListUnits(ctx context.Context, f entities.UnitFilter) ([]entities.Unit, error) {
	if f.Status != "" && !entities.ValidUnitStatus(f.Status) {
		return nil, fmt.Errorf("%w: unknown unit status %q", entities.ErrInvalidInput, f.Status)
	}
	return uc.units.List(ctx, f)
}

func (uc *CatalogUsecase) CreateUnit(ctx context.Context, in UnitInput) (*entities.Unit, error) {
	u := &entities.Unit{}
	if err := uc.unitFromInput(ctx, u, in); err != nil {
		return nil, err
	}
	if err := uc.units.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (uc *CatalogUsecase) UpdateUnit(ctx context.Context, id int, in UnitInput) (*entities.Unit, error) {
	u, err := uc.units.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := uc.unitFromInput(ctx, u, in); err != nil {
		return nil, err
	}
	if err := uc.units.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// ImportUnits loads a CSV sheet; either every row is stored or none
func (uc *CatalogUsecase) ImportUnits(ctx context.Context, data io.Reader) (int, error) {
	n, err := uc.units.ImportCSV(ctx, data)
	if err != nil {
		return 0, err
	}
	log.Info().Int("units", n).Msg("units imported")
	return n, nil
}

// asInvalid reports a missing referenced record as bad input
func asInvalid(err error, format string, args ...any) error {
	if errors.Is(err, entities.ErrNotFound) {
		return fmt.Errorf("%w: "+format, append([]any{entities.ErrInvalidInput}, args...)...)
	}
	return err
}
