package model

import "time"

// PartnerStats is the derived per-(partner, direction) aggregate. It is
// rebuilt from a filtered record set on every analysis call and never
// mutated in place; a re-run supersedes it entirely.
type PartnerStats struct {
	PartnerID            string         `json:"partner_id"`
	Direction            string         `json:"direction"`
	TotalOrders          int            `json:"total_orders"`
	UniqueSKUs           int            `json:"unique_skus"`
	UniqueWarehouses     int            `json:"unique_warehouses"`
	AvgOrdersPerDay      float64        `json:"avg_orders_per_day"`
	MedianOrdersPerDay   float64        `json:"median_orders_per_day"`
	OrderFrequencyDays   float64        `json:"order_frequency_days"`
	Volatility           float64        `json:"volatility"`
	FirstOrderDate       time.Time      `json:"first_order_date"`
	LastOrderDate        time.Time      `json:"last_order_date"`
	DaysSinceLastOrder   int            `json:"days_since_last_order"`
	IsActive             bool           `json:"is_active"`
	IsChurned            bool           `json:"is_churned"`
	ChurnRisk            float64        `json:"churn_risk"`
	DiversificationScore float64        `json:"diversification_score"`
	FulfillmentScore     float64        `json:"fulfillment_score"`
	Alerts               []AnomalyAlert `json:"alerts,omitempty"`
}

// SKUStats is the PartnerStats shape scoped to a (SKU, partner, direction)
// triple.
type SKUStats struct {
	SKU                string         `json:"sku"`
	PartnerID          string         `json:"partner_id"`
	Direction          string         `json:"direction"`
	TotalOrders        int            `json:"total_orders"`
	AvgOrdersPerDay    float64        `json:"avg_orders_per_day"`
	MedianOrdersPerDay float64        `json:"median_orders_per_day"`
	OrderFrequencyDays float64        `json:"order_frequency_days"`
	Volatility         float64        `json:"volatility"`
	FirstOrderDate     time.Time      `json:"first_order_date"`
	LastOrderDate      time.Time      `json:"last_order_date"`
	DaysSinceLastOrder int            `json:"days_since_last_order"`
	Alerts             []AnomalyAlert `json:"alerts,omitempty"`
}
