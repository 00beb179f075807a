package models

// OrderSequence holds the last allocated order number per outlet and business day.
// The row is incremented inside the order-creation transaction.
type OrderSequence struct {
	OutletID     string `gorm:"type:varchar(36);primaryKey"`
	BusinessDate string `gorm:"type:varchar(10);primaryKey"`
	LastSeq      int    `gorm:"column:last_seq;not null"`
}
