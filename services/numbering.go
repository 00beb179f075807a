package services

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yeremiapane/restaurant-pos/models"
)

// NumberingService allocates per-outlet, per-day order numbers. Allocation must run
// inside the order-creation transaction: the upsert holds the sequence row lock
// until commit, so concurrent creators for the same outlet and day are serialized.
type NumberingService struct {
	loc *time.Location
}

func NewNumberingService(loc *time.Location) *NumberingService {
	if loc == nil {
		loc = time.UTC
	}
	return &NumberingService{loc: loc}
}

func (n *NumberingService) Location() *time.Location {
	return n.loc
}

// BusinessDate -> tanggal kalender outlet (bukan UTC)
func (n *NumberingService) BusinessDate(at time.Time) string {
	return at.In(n.loc).Format("2006-01-02")
}

type OrderNumber struct {
	Sequence     int
	Number       string
	BusinessDate string
}

// upsertSequence inserts the first number of the day or bumps the existing row.
// The increment must stay table-qualified for the MySQL and Postgres upserts.
func upsertSequence(tx *gorm.DB, outletID, date string) *gorm.DB {
	next := gorm.Expr("? + 1", clause.Column{Table: clause.CurrentTable, Name: "last_seq"})
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "outlet_id"}, {Name: "business_date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"last_seq": next}),
	}).Create(&models.OrderSequence{
		OutletID:     outletID,
		BusinessDate: date,
		LastSeq:      1,
	})
}

func (n *NumberingService) Next(tx *gorm.DB, outletID string, at time.Time) (OrderNumber, error) {
	date := n.BusinessDate(at)

	if err := upsertSequence(tx, outletID, date).Error; err != nil {
		return OrderNumber{}, fmt.Errorf("allocate order sequence: %w", err)
	}

	var seq models.OrderSequence
	if err := tx.Where("outlet_id = ? AND business_date = ?", outletID, date).First(&seq).Error; err != nil {
		return OrderNumber{}, fmt.Errorf("read order sequence: %w", err)
	}

	return OrderNumber{
		Sequence:     seq.LastSeq,
		Number:       FormatOrderNumber(date, seq.LastSeq),
		BusinessDate: date,
	}, nil
}

// FormatOrderNumber: 2026-10-16 + 3 -> ORD-20261016-003
func FormatOrderNumber(businessDate string, seq int) string {
	return fmt.Sprintf("ORD-%s-%03d", strings.ReplaceAll(businessDate, "-", ""), seq)
}
