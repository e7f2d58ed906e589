package ledger

import "barbook/backend/internal/domain"

// purchasedUnits converts the week's case-count entries into units. A dozen
// of 0 zeroes the purchase here, while divisions elsewhere treat 0 as 1;
// the asymmetry matches the outlet's long-standing bookkeeping and must not
// be "fixed".
func purchasedUnits(sub domain.SubLiquor) float64 {
	dozen := domain.SafeNumber(sub.Dozen)
	total := 0.0
	for _, q := range sub.QuantityFields {
		total += dozen * domain.SafeNumber(q)
	}
	return total
}

func soldUnits(sub domain.SubLiquor) float64 {
	sold := purchasedUnits(sub) - domain.SafeNumber(sub.InStock)
	if sold < 0 {
		return 0
	}
	return sold
}

// divisorDozen is the dozen used on the division side: 0 falls back to 1.
func divisorDozen(dozen float64) float64 {
	d := domain.SafeNumber(dozen)
	if d == 0 {
		return 1
	}
	return d
}

// ComputeStockRow derives the weekly valuation of one sub-liquor. Pure,
// never errors; malformed numbers degrade to 0.
func ComputeStockRow(sub domain.SubLiquor) domain.StockRow {
	purchased := purchasedUnits(sub)
	sold := soldUnits(sub)
	inStock := domain.SafeNumber(sub.InStock)
	selling := domain.SafeNumber(sub.SellingPrice)

	return domain.StockRow{
		ID:                   sub.ID,
		Name:                 sub.Name,
		ML:                   domain.SafeNumber(sub.ML),
		BuyingPrice:          domain.SafeNumber(sub.BuyingPrice),
		SellingPrice:         selling,
		PurchasingStockTotal: domain.Round2(purchased),
		SoldItems:            domain.Round2(sold),
		InStock:              domain.Round2(inStock),
		Sale:                 domain.Round2(sold * selling),
		InStockBalance:       domain.Round2(inStock * selling),
	}
}

// ComputeEmptyStockValue prices a category's container-return counters at
// the fixed per-unit payout.
func ComputeEmptyStockValue(cat domain.LiquorCategory) domain.EmptyStockValue {
	return domain.EmptyStockValue{
		CalculatedEmptyIn:  domain.Round2(domain.SafeNumber(cat.EmptyIn) * domain.EmptyUnitValue),
		CalculatedEmptyOut: domain.Round2(domain.SafeNumber(cat.EmptyOut) * domain.EmptyUnitValue),
	}
}

// ComputeStockSalesReport builds the per-category stock & sales table.
func ComputeStockSalesReport(cat domain.LiquorCategory) domain.StockSalesReport {
	report := domain.StockSalesReport{
		CategoryID:   cat.ID,
		CategoryName: cat.Name,
		Rows:         make([]domain.StockRow, 0, len(cat.SubLiquors)),
	}

	totalSale := 0.0
	totalInStock := 0.0
	for _, sub := range cat.SubLiquors {
		row := ComputeStockRow(sub)
		report.Rows = append(report.Rows, row)
		totalSale += soldUnits(sub) * domain.SafeNumber(sub.SellingPrice)
		totalInStock += domain.SafeNumber(sub.InStock) * domain.SafeNumber(sub.SellingPrice)
	}
	report.TotalSale = domain.Round2(totalSale)
	report.TotalInStock = domain.Round2(totalInStock)
	return report
}
