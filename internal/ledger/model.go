package ledger

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type tradeModel struct {
	ID         int64   `gorm:"column:id;primaryKey"`
	TradeUUID  string  `gorm:"column:trade_uuid;uniqueIndex"`
	Timestamp  int64   `gorm:"column:timestamp;index"`
	Code       string  `gorm:"column:etf_code;index"`
	Action     string  `gorm:"column:action"`
	Price      float64 `gorm:"column:price"`
	Quantity   float64 `gorm:"column:quantity"`
	GrossValue float64 `gorm:"column:value"`
	Cost       float64 `gorm:"column:cost"`
	CashAfter  float64 `gorm:"column:cash_after"`
	Note       string  `gorm:"column:note"`
}

func (tradeModel) TableName() string { return "trades" }

func newTradeModel(t Trade) tradeModel {
	if strings.TrimSpace(t.ID) == "" {
		t.ID = uuid.NewString()
	}
	return tradeModel{
		TradeUUID:  t.ID,
		Timestamp:  t.Timestamp.UnixMilli(),
		Code:       strings.TrimSpace(t.Code),
		Action:     strings.ToLower(string(t.Action)),
		Price:      t.Price,
		Quantity:   t.Quantity,
		GrossValue: t.GrossValue,
		Cost:       t.Cost,
		CashAfter:  t.CashAfter,
		Note:       t.Note,
	}
}

func tradeModelToRecord(m tradeModel) Trade {
	return Trade{
		ID:         m.TradeUUID,
		Timestamp:  time.UnixMilli(m.Timestamp),
		Code:       strings.TrimSpace(m.Code),
		Action:     Action(strings.ToLower(strings.TrimSpace(m.Action))),
		Price:      m.Price,
		Quantity:   m.Quantity,
		GrossValue: m.GrossValue,
		Cost:       m.Cost,
		CashAfter:  m.CashAfter,
		Note:       m.Note,
	}
}
