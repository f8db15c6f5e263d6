// Package model defines the canonical order record and the derived value
// types produced by the analytics engine.
package model

// ReportData holds the report-side enrichment joined onto an order by the
// ingestion service. It is absent (nil) when the order had no matching
// report row.
type ReportData struct {
	Weight    float64 `json:"weight"`
	Quantity  int     `json:"quantity"`
	Warehouse string  `json:"warehouse"`
	Status    string  `json:"status"`
	Timestamp string  `json:"timestamp"`
}

// OrderRecord is one fulfillment event from the canonical dataset produced
// by the ingestion collaborator. PartnerID and a parsable OrderDate are
// required for a record to participate in any aggregate; records missing
// either are skipped, never errored.
type OrderRecord struct {
	PartnerID   string  `json:"partner_id"`
	OrderID     string  `json:"order_id"`
	OrderType   string  `json:"order_type"`
	ItemCount   int     `json:"item_count"`
	TotalWeight float64 `json:"total_weight"`
	Warehouse   string  `json:"warehouse"`
	Status      string  `json:"status"`
	OrderDate   string  `json:"order_date"`
	Marketplace string  `json:"marketplace"`
	SKU         string  `json:"sku"`

	// Report is the optional report-side sub-structure; nil for unmatched rows.
	Report *ReportData `json:"report,omitempty"`

	Direction           string `json:"direction"`
	ComputedMarketplace string `json:"computed_marketplace"`
	SourceFile          string `json:"source_file"`
	UpdatedAt           string `json:"updated_at"`
}

// directionOverrides maps partners whose channel is fixed regardless of the
// computed direction on the record.
var directionOverrides = map[string]string{
	"VSROK": "VSROK",
}

// EffectiveDirection resolves the logistics channel for a record: a partner
// override wins, otherwise the record's own computed direction is used.
func (r OrderRecord) EffectiveDirection() string {
	if d, ok := directionOverrides[r.PartnerID]; ok {
		return d
	}
	return r.Direction
}
