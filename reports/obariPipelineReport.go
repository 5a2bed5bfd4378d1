package reports

import (
	"context"
	"fmt"
	"net/http"

	"github.com/coraeos/obari_backend/config"
	"github.com/coraeos/obari_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// PipelineRow aggregates the OBARI pipeline per deal: the paired order
// volumes, the buy/sell totals and the number of transport bookings.
type PipelineRow struct {
	DealRef      string          `json:"deal_ref"`
	OrderCount   int             `json:"order_count"`
	TotalBuy     decimal.Decimal `json:"total_buy"`
	TotalSell    decimal.Decimal `json:"total_sell"`
	Margin       decimal.Decimal `json:"margin"`
	BookingCount int             `json:"booking_count"`
}

// GetObariPipelineReport runs the aggregation. Raw SQL bypasses the org
// guard plugin, so org_id is included manually.
func GetObariPipelineReport(ctx context.Context) ([]*PipelineRow, error) {
	orgId, ok := utils.GetOrgIdFromContext(ctx)
	if !ok || orgId == "" {
		return nil, fmt.Errorf("org id is required")
	}

	sql := `
SELECT
    agg.deal_ref,
    agg.order_count,
    agg.total_buy,
    agg.total_sell,
    agg.total_sell - agg.total_buy AS margin,
    COALESCE(bk.booking_count, 0) AS booking_count
FROM
    (
        SELECT
            deal_ref,
            COUNT(id) AS order_count,
            SUM(CASE WHEN direction = 'PURCHASE' THEN qty * unit_price ELSE 0 END) AS total_buy,
            SUM(CASE WHEN direction = 'SALES' THEN qty * unit_price ELSE 0 END) AS total_sell
        FROM
            trade_orders
        WHERE
            org_id = ?
        GROUP BY
            deal_ref
    ) AS agg
    LEFT JOIN (
        SELECT
            trade_orders.deal_ref,
            COUNT(transport_bookings.id) AS booking_count
        FROM
            transport_bookings
            JOIN trade_orders ON trade_orders.id = transport_bookings.order_id
        WHERE
            transport_bookings.org_id = ?
        GROUP BY
            trade_orders.deal_ref
    ) AS bk ON bk.deal_ref = agg.deal_ref
ORDER BY
    agg.deal_ref;
`

	var rows []*PipelineRow
	db := config.GetDB()
	if err := db.WithContext(ctx).Raw(sql, orgId, orgId).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// WritePipelineExcel streams the pipeline report as an .xlsx attachment.
func WritePipelineExcel(w http.ResponseWriter, rows []*PipelineRow) {
	f := excelize.NewFile()
	const sheet = "Sheet1"
	if _, err := f.NewSheet(sheet); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// Add headers
	f.SetCellValue(sheet, "A1", "DealRef")
	f.SetCellValue(sheet, "B1", "Orders")
	f.SetCellValue(sheet, "C1", "TotalBuy")
	f.SetCellValue(sheet, "D1", "TotalSell")
	f.SetCellValue(sheet, "E1", "Margin")
	f.SetCellValue(sheet, "F1", "Bookings")

	// Add data
	for i, r := range rows {
		f.SetCellValue(sheet, "A"+fmt.Sprint(i+2), r.DealRef)
		f.SetCellValue(sheet, "B"+fmt.Sprint(i+2), r.OrderCount)
		f.SetCellValue(sheet, "C"+fmt.Sprint(i+2), r.TotalBuy.StringFixed(2))
		f.SetCellValue(sheet, "D"+fmt.Sprint(i+2), r.TotalSell.StringFixed(2))
		f.SetCellValue(sheet, "E"+fmt.Sprint(i+2), r.Margin.StringFixed(2))
		f.SetCellValue(sheet, "F"+fmt.Sprint(i+2), r.BookingCount)
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=obari-pipeline.xlsx")
	if err := f.Write(w); err != nil {
		http.Error(w, "Failed to write file", http.StatusInternalServerError)
	}
}
