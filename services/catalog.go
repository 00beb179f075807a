package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-pos/models"
)

// CatalogReader is the read side of the menu catalog. Snapshot is taken before the
// write transaction starts; Verify re-reads the same rows inside it so prices that
// moved in between are caught instead of silently snapshotted.
type CatalogReader interface {
	Snapshot(ctx context.Context, outletID string, productIDs []string) (*CatalogSnapshot, error)
	Verify(tx *gorm.DB, snap *CatalogSnapshot) error
	ListProducts(ctx context.Context, outletID string, activeOnly bool) ([]models.Product, error)
}

type VariantRef struct {
	Variant   models.Variant
	Group     models.VariantGroup
	ProductID string
}

type ModifierRef struct {
	Modifier  models.Modifier
	Group     models.ModifierGroup
	ProductID string
}

// CatalogSnapshot is an immutable view of the products referenced by one request.
type CatalogSnapshot struct {
	OutletID  string
	Products  map[string]models.Product
	Variants  map[string]VariantRef
	Modifiers map[string]ModifierRef
}

func newSnapshot(outletID string, products []models.Product) *CatalogSnapshot {
	snap := &CatalogSnapshot{
		OutletID:  outletID,
		Products:  make(map[string]models.Product, len(products)),
		Variants:  make(map[string]VariantRef),
		Modifiers: make(map[string]ModifierRef),
	}
	for _, p := range products {
		snap.Products[p.ID] = p
		for _, g := range p.VariantGroups {
			for _, v := range g.Variants {
				snap.Variants[v.ID] = VariantRef{Variant: v, Group: g, ProductID: p.ID}
			}
		}
		for _, g := range p.ModifierGroups {
			for _, m := range g.Modifiers {
				snap.Modifiers[m.ID] = ModifierRef{Modifier: m, Group: g, ProductID: p.ID}
			}
		}
	}
	return snap
}

type GormCatalog struct {
	DB *gorm.DB
}

func NewGormCatalog(db *gorm.DB) *GormCatalog {
	return &GormCatalog{DB: db}
}

func loadProducts(db *gorm.DB, outletID string, productIDs []string) ([]models.Product, error) {
	var products []models.Product
	err := db.
		Preload("VariantGroups.Variants").
		Preload("ModifierGroups.Modifiers").
		Where("outlet_id = ? AND id IN ?", outletID, productIDs).
		Find(&products).Error
	return products, err
}

func (c *GormCatalog) Snapshot(ctx context.Context, outletID string, productIDs []string) (*CatalogSnapshot, error) {
	if len(productIDs) == 0 {
		return newSnapshot(outletID, nil), nil
	}
	products, err := loadProducts(c.DB.WithContext(ctx), outletID, productIDs)
	if err != nil {
		return nil, wrapStoreErr("catalog snapshot", err)
	}
	return newSnapshot(outletID, products), nil
}

func (c *GormCatalog) Verify(tx *gorm.DB, snap *CatalogSnapshot) error {
	ids := make([]string, 0, len(snap.Products))
	for id := range snap.Products {
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil
	}
	products, err := loadProducts(tx, snap.OutletID, ids)
	if err != nil {
		return err
	}
	fresh := newSnapshot(snap.OutletID, products)

	for id, p := range snap.Products {
		f, ok := fresh.Products[id]
		if !ok || f.IsActive != p.IsActive || !f.BasePrice.Equal(p.BasePrice) {
			return conflictErr("catalog changed for product "+id+", retry the request", "", "")
		}
	}
	for id, v := range snap.Variants {
		f, ok := fresh.Variants[id]
		if !ok || f.Variant.IsActive != v.Variant.IsActive || !f.Variant.PriceAdjustment.Equal(v.Variant.PriceAdjustment) {
			return conflictErr("catalog changed for variant "+id+", retry the request", "", "")
		}
	}
	for id, m := range snap.Modifiers {
		f, ok := fresh.Modifiers[id]
		if !ok || f.Modifier.IsActive != m.Modifier.IsActive || !f.Modifier.Price.Equal(m.Modifier.Price) {
			return conflictErr("catalog changed for modifier "+id+", retry the request", "", "")
		}
	}
	return nil
}

func (c *GormCatalog) ListProducts(ctx context.Context, outletID string, activeOnly bool) ([]models.Product, error) {
	var products []models.Product
	q := c.DB.WithContext(ctx).
		Preload("VariantGroups.Variants").
		Preload("ModifierGroups.Modifiers").
		Where("outlet_id = ?", outletID)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	if err := q.Order("name asc").Find(&products).Error; err != nil {
		return nil, wrapStoreErr("list products", err)
	}
	return products, nil
}
