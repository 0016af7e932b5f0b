package models

import "time"

// InstrumentStatus tracks a graduated instrument on the simulated board.
type InstrumentStatus string

const (
	InstrumentStatusPreTrading InstrumentStatus = "pre-trading"
	InstrumentStatusActive     InstrumentStatus = "active"
	InstrumentStatusSuspended  InstrumentStatus = "suspended"
)

// TradingInstrument is minted from a workflow that passed the fulfillment
// checklist. It never points back into the mutable aggregate.
type TradingInstrument struct {
	ID            string           `json:"id"`
	WorkflowID    string           `json:"workflow_id"`
	Symbol        string           `json:"symbol"`
	ISIN          string           `json:"isin,omitempty"`
	CompanyName   string           `json:"company_name"`
	Type          InstrumentType   `json:"type"`
	Currency      string           `json:"currency"`
	IssuePrice    float64          `json:"issue_price"`
	BidPrice      float64          `json:"bid_price,omitempty"`
	AskPrice      float64          `json:"ask_price,omitempty"`
	LastPrice     float64          `json:"last_price,omitempty"`
	SharesOffered int64            `json:"shares_offered,omitempty"`
	Status        InstrumentStatus `json:"status"`
	ListedAt      *time.Time       `json:"listed_at,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}

// OrderSide is the direction of a simulated order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderStatus tracks a simulated order. There is no matching engine behind
// this; fills are decorative.
type OrderStatus string

const (
	OrderStatusPending  OrderStatus = "pending"
	OrderStatusFilled   OrderStatus = "filled"
	OrderStatusRejected OrderStatus = "rejected"
)

// Order is a placeholder order record for the trading simulation.
type Order struct {
	ID           string      `json:"id"`
	InstrumentID string      `json:"instrument_id"`
	UserID       string      `json:"user_id"`
	Side         OrderSide   `json:"side"     validate:"required,oneof=buy sell"`
	Quantity     int64       `json:"quantity" validate:"required,gt=0"`
	Price        float64     `json:"price"    validate:"required,gt=0"`
	Status       OrderStatus `json:"status"`
	FilledPrice  float64     `json:"filled_price,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}

// MarketMaker records a broker granted elevated status based on
// cross-workflow history.
type MarketMaker struct {
	UserID             string    `json:"user_id"`
	Institution        string    `json:"institution,omitempty"`
	CompletedWorkflows int       `json:"completed_workflows"`
	GrantedAt          time.Time `json:"granted_at"`
}
