package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/ginoconcreto/estoque_backend/config"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrStoreUnavailable wraps any failure to reach the backing store. Read
// paths degrade to the zero-filled fallback state; write paths abort the
// operation before any history entry is appended.
var ErrStoreUnavailable = errors.New("Banco de dados indisponível. Verifique a conexão.")

// StockItem is one row per (usina, material). A usina's snapshot is the
// join of its six rows; should duplicates exist for the same pair, the most
// recently updated row wins.
type StockItem struct {
	ID        int             `gorm:"primary_key" json:"id"`
	Usina     string          `gorm:"size:100;not null;index:idx_stock_items_usina_material,priority:1" json:"usina"`
	Material  string          `gorm:"size:100;not null;index:idx_stock_items_usina_material,priority:2" json:"material"`
	Quantity  decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"quantity"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// StockSnapshot maps every material to its current quantity in kg. Always
// total: all six keys are present, zero-filled where no row exists.
type StockSnapshot map[Material]decimal.Decimal

func NewZeroSnapshot() StockSnapshot {
	snapshot := make(StockSnapshot, len(Materials))
	for _, m := range Materials {
		snapshot[m] = decimal.Zero
	}
	return snapshot
}

// ListStockItems returns every stock row across all usinas. Filtering is
// done locally by the callers (store contract).
func ListStockItems(ctx context.Context) ([]*StockItem, error) {
	db := config.GetDB()
	if db == nil {
		return nil, ErrStoreUnavailable
	}
	var items []*StockItem
	if err := db.WithContext(ctx).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return items, nil
}

func CreateStockItem(ctx context.Context, usina Usina, material Material, quantity decimal.Decimal) (*StockItem, error) {
	db := config.GetDB()
	if db == nil {
		return nil, ErrStoreUnavailable
	}
	item := StockItem{
		Usina:    string(usina),
		Material: string(material),
		Quantity: quantity,
	}
	if err := db.WithContext(ctx).Create(&item).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return &item, nil
}

// OverwriteStockItemQty unconditionally sets the stored quantity.
func OverwriteStockItemQty(ctx context.Context, id int, quantity decimal.Decimal) error {
	db := config.GetDB()
	if db == nil {
		return ErrStoreUnavailable
	}
	err := db.WithContext(ctx).Model(&StockItem{}).Where("id = ?", id).
		Update("quantity", quantity).Error
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// IncrementStockItemQty applies the delta as an atomic in-store compute so
// two concurrent entries on the same row cannot lose each other's update.
func IncrementStockItemQty(ctx context.Context, id int, delta decimal.Decimal) error {
	db := config.GetDB()
	if db == nil {
		return ErrStoreUnavailable
	}
	err := db.WithContext(ctx).Model(&StockItem{}).Where("id = ?", id).
		Update("quantity", gorm.Expr("quantity + ?", delta)).Error
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// DeductStockItemQty subtracts the deduction clamped at zero, evaluated at
// the store for the same reason as IncrementStockItemQty.
func DeductStockItemQty(ctx context.Context, id int, deduction decimal.Decimal) error {
	db := config.GetDB()
	if db == nil {
		return ErrStoreUnavailable
	}
	err := db.WithContext(ctx).Model(&StockItem{}).Where("id = ?", id).
		Update("quantity", gorm.Expr("GREATEST(quantity - ?, 0)", deduction)).Error
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// latestStockItem resolves duplicate (usina, material) rows: the most
// recently updated row wins, falling back to the highest id on ties.
func latestStockItem(items []*StockItem, usina Usina, material Material) *StockItem {
	var latest *StockItem
	for _, item := range items {
		if item.Usina != string(usina) || item.Material != string(material) {
			continue
		}
		if latest == nil ||
			item.UpdatedAt.After(latest.UpdatedAt) ||
			(item.UpdatedAt.Equal(latest.UpdatedAt) && item.ID > latest.ID) {
			latest = item
		}
	}
	return latest
}

// SnapshotFromItems builds one usina's total snapshot from a full row list.
func SnapshotFromItems(items []*StockItem, usina Usina) StockSnapshot {
	snapshot := NewZeroSnapshot()
	for _, m := range Materials {
		if item := latestStockItem(items, usina, m); item != nil {
			snapshot[m] = item.Quantity
		}
	}
	return snapshot
}

// AllSnapshots builds the full inventory view, one snapshot per usina.
func AllSnapshots(items []*StockItem) map[Usina]StockSnapshot {
	inventory := make(map[Usina]StockSnapshot, len(Usinas))
	for _, u := range Usinas {
		inventory[u] = SnapshotFromItems(items, u)
	}
	return inventory
}
