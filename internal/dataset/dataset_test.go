package dataset

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/cargoflow/partner-pulse/internal/model"
)

const canonicalHeader = "partner_id,order_id,order_type,item_count,total_weight,warehouse,status,order_date,marketplace,sku," +
	"report_weight,report_quantity,report_warehouse,report_status,report_timestamp," +
	"direction,computed_marketplace,source_file,updated_at"

func TestLoadCSV_Basic(t *testing.T) {
	data := canonicalHeader + "\n" +
		"ACME,O-1,delivery,3,1.5,W1,shipped,2026-07-30,ozon,SKU-1," +
		"1.4,3,W1,delivered,2026-07-31T10:00:00Z," +
		"FBO,ozon,orders_jul.xlsx,2026-08-01\n" +
		"BETA,O-2,delivery,1,0.2,W2,shipped,2026-07-29,wb,SKU-9," +
		",,,,," +
		"FBS,wb,orders_jul.xlsx,2026-08-01\n"

	records, err := LoadCSV(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, records, 2)

	acme := records[0]
	assert.Equal(t, "ACME", acme.PartnerID)
	assert.Equal(t, "O-1", acme.OrderID)
	assert.Equal(t, 3, acme.ItemCount)
	assert.Equal(t, 1.5, acme.TotalWeight)
	assert.Equal(t, "2026-07-30", acme.OrderDate)
	assert.Equal(t, "FBO", acme.Direction)
	require.NotNil(t, acme.Report)
	assert.Equal(t, 1.4, acme.Report.Weight)
	assert.Equal(t, 3, acme.Report.Quantity)
	assert.Equal(t, "delivered", acme.Report.Status)

	// All report columns empty means no report join happened.
	assert.Nil(t, records[1].Report)
}

func TestLoadCSV_PartialReportColumns(t *testing.T) {
	data := canonicalHeader + "\n" +
		"ACME,O-1,delivery,1,0.5,W1,shipped,2026-07-30,ozon,SKU-1," +
		",,W3,,," +
		"FBO,ozon,src,2026-08-01\n"

	records, err := LoadCSV(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.NotNil(t, records[0].Report)
	assert.Equal(t, "W3", records[0].Report.Warehouse)
	assert.Equal(t, 0.0, records[0].Report.Weight)
}

func TestLoadCSV_Empty(t *testing.T) {
	records, err := LoadCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, records)

	records, err = LoadCSV(strings.NewReader(canonicalHeader + "\n"))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func createDatasetXLSX(t *testing.T, sheetName string, rows [][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	require.NoError(t, err)
	for _, rowData := range rows {
		row := sheet.AddRow()
		for _, cellData := range rowData {
			row.AddCell().SetString(cellData)
		}
	}
	path := filepath.Join(t.TempDir(), "dataset.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestLoadXLSX_Basic(t *testing.T) {
	header := strings.Split(canonicalHeader, ",")
	path := createDatasetXLSX(t, "orders", [][]string{
		header,
		{"ACME", "O-1", "delivery", "2", "0.8", "W1", "shipped", "2026-07-30", "ozon", "SKU-1",
			"0.7", "2", "W1", "delivered", "2026-07-31T10:00:00Z",
			"FBO", "ozon", "orders_jul.xlsx", "2026-08-01"},
		// Trailing empty cells dropped by the writer; loader pads them back.
		{"BETA", "O-2", "delivery", "1", "0.2", "W2", "shipped", "2026-07-29", "wb", "SKU-9"},
	})

	records, err := LoadXLSX(path, XLSXOptions{})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "ACME", records[0].PartnerID)
	assert.Equal(t, 2, records[0].ItemCount)
	require.NotNil(t, records[0].Report)
	assert.Equal(t, 2, records[0].Report.Quantity)

	assert.Equal(t, "BETA", records[1].PartnerID)
	assert.Nil(t, records[1].Report)
	assert.Empty(t, records[1].Direction)
}

func TestLoadXLSX_SheetByName(t *testing.T) {
	header := strings.Split(canonicalHeader, ",")
	path := createDatasetXLSX(t, "canonical", [][]string{
		header,
		{"ACME", "O-1", "delivery", "1", "0.5", "W1", "shipped", "2026-07-30", "ozon", "SKU-1",
			"", "", "", "", "", "FBO", "ozon", "src", "2026-08-01"},
	})

	records, err := LoadXLSX(path, XLSXOptions{SheetName: "canonical"})
	require.NoError(t, err)
	require.Len(t, records, 1)

	_, err = LoadXLSX(path, XLSXOptions{SheetName: "missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestLoadXLSX_SheetIndexOutOfRange(t *testing.T) {
	path := createDatasetXLSX(t, "orders", [][]string{strings.Split(canonicalHeader, ",")})

	_, err := LoadXLSX(path, XLSXOptions{SheetIndex: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestLoadBenchmarksYAML(t *testing.T) {
	data := `
benchmarks:
  ACME:
    metric: orders_per_day
    period: 30d
    value: 0.33
    captured_at: 2026-08-01T00:00:00Z
  BETA:
    metric: orders_per_day
    period: 30d
    value: 1.2
    captured_at: 2026-08-01T00:00:00Z
`
	benchmarks, err := LoadBenchmarksYAML(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, benchmarks, 2)

	acme := benchmarks["ACME"]
	assert.Equal(t, model.MetricOrdersPerDay, acme.Metric)
	assert.Equal(t, model.Timeframe30d, acme.Period)
	assert.InDelta(t, 0.33, acme.Value, 1e-9)
	assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), acme.CapturedAt.UTC())
}

func TestLoadBenchmarksYAML_Invalid(t *testing.T) {
	_, err := LoadBenchmarksYAML(strings.NewReader("benchmarks: ["))
	require.Error(t, err)
}

func TestLoadBenchmarksYAML_Empty(t *testing.T) {
	benchmarks, err := LoadBenchmarksYAML(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, benchmarks)
}
