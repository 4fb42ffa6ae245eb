package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceRecord is one daily closing price for an instrument. Date carries the
// trading day reported by the provider; CollectedAt is the capture timestamp
// shared by every row of one successful fetch.
type PriceRecord struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Date        time.Time       `gorm:"column:date;index" json:"date"`
	Close       decimal.Decimal `gorm:"column:close_price;type:decimal(18,6)" json:"close_price"`
	Ticker      string          `gorm:"column:ticker;not null" json:"ticker"`
	CollectedAt time.Time       `gorm:"column:collected_at" json:"collected_at"`
}
