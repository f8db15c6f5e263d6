// Package dataset loads the canonical order dataset produced by the
// ingestion pipeline, plus benchmark snapshot files. Loaders map file rows
// onto model.OrderRecord; they do not re-derive raw upload parsing.
package dataset

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/cargoflow/partner-pulse/internal/model"
)

// orderRow mirrors the canonical dataset header set. Report-side columns stay
// strings so an all-empty report block can be told apart from a zero one.
type orderRow struct {
	PartnerID   string  `csv:"partner_id"`
	OrderID     string  `csv:"order_id"`
	OrderType   string  `csv:"order_type"`
	ItemCount   int     `csv:"item_count"`
	TotalWeight float64 `csv:"total_weight"`
	Warehouse   string  `csv:"warehouse"`
	Status      string  `csv:"status"`
	OrderDate   string  `csv:"order_date"`
	Marketplace string  `csv:"marketplace"`
	SKU         string  `csv:"sku"`

	ReportWeight    string `csv:"report_weight"`
	ReportQuantity  string `csv:"report_quantity"`
	ReportWarehouse string `csv:"report_warehouse"`
	ReportStatus    string `csv:"report_status"`
	ReportTimestamp string `csv:"report_timestamp"`

	Direction           string `csv:"direction"`
	ComputedMarketplace string `csv:"computed_marketplace"`
	SourceFile          string `csv:"source_file"`
	UpdatedAt           string `csv:"updated_at"`
}

func (row orderRow) toRecord() model.OrderRecord {
	rec := model.OrderRecord{
		PartnerID:           row.PartnerID,
		OrderID:             row.OrderID,
		OrderType:           row.OrderType,
		ItemCount:           row.ItemCount,
		TotalWeight:         row.TotalWeight,
		Warehouse:           row.Warehouse,
		Status:              row.Status,
		OrderDate:           row.OrderDate,
		Marketplace:         row.Marketplace,
		SKU:                 row.SKU,
		Direction:           row.Direction,
		ComputedMarketplace: row.ComputedMarketplace,
		SourceFile:          row.SourceFile,
		UpdatedAt:           row.UpdatedAt,
	}

	if row.ReportWeight != "" || row.ReportQuantity != "" || row.ReportWarehouse != "" ||
		row.ReportStatus != "" || row.ReportTimestamp != "" {
		weight, _ := strconv.ParseFloat(row.ReportWeight, 64)
		quantity, _ := strconv.Atoi(row.ReportQuantity)
		rec.Report = &model.ReportData{
			Weight:    weight,
			Quantity:  quantity,
			Warehouse: row.ReportWarehouse,
			Status:    row.ReportStatus,
			Timestamp: row.ReportTimestamp,
		}
	}
	return rec
}

// LoadCSV decodes the canonical dataset from CSV. Rows with report columns
// all empty come back with a nil Report.
func LoadCSV(r io.Reader) ([]model.OrderRecord, error) {
	dec, err := csvutil.NewDecoder(csv.NewReader(r))
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, eris.Wrap(err, "dataset: read csv header")
	}

	var out []model.OrderRecord
	for {
		var row orderRow
		if err := dec.Decode(&row); err == io.EOF {
			break
		} else if err != nil {
			return nil, eris.Wrap(err, "dataset: decode csv row")
		}
		out = append(out, row.toRecord())
	}
	return out, nil
}
