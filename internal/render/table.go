package render

// Items table layout constants, in page units. The description column is
// the only one that wraps; the numeric columns always fit a single line.
const (
	descColumnFraction   = 0.50
	qtyColumnFraction    = 0.15
	rateColumnFraction   = 0.175
	amountColumnFraction = 0.175

	descColumnPad  = 4.0
	minRowHeight   = 15.0
	rowLineHeight  = 5.0
	rowVerticalPad = 6.0
)

// TableMetrics is the measured geometry of the items table body. It is the
// single source of truth every later section's placement derives from.
type TableMetrics struct {
	TotalHeight float64
	RowHeights  []float64
}

// MeasureItemTable computes per-row heights and the total body height for
// the given rows at the given table width. Pure function: identical inputs
// always produce identical results, so callers may invoke it from any
// stage without caching drift. An empty row slice yields a zero total.
func MeasureItemTable(items []ItemRow, tableWidth float64, measure Measure) TableMetrics {
	metrics := TableMetrics{RowHeights: make([]float64, 0, len(items))}
	descWidth := tableWidth*descColumnFraction - descColumnPad
	for _, item := range items {
		lines := WrapText(item.Description, descWidth, measure)
		height := float64(len(lines))*rowLineHeight + rowVerticalPad
		if height < minRowHeight {
			height = minRowHeight
		}
		metrics.RowHeights = append(metrics.RowHeights, height)
		metrics.TotalHeight += height
	}
	return metrics
}

// columnWidths splits the table width into the four fixed column widths.
func columnWidths(tableWidth float64) [4]float64 {
	return [4]float64{
		tableWidth * descColumnFraction,
		tableWidth * qtyColumnFraction,
		tableWidth * rateColumnFraction,
		tableWidth * amountColumnFraction,
	}
}
