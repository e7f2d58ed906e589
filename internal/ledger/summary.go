package ledger

import "barbook/backend/internal/domain"

// ComputeWeeklySummary aggregates the whole week into its profit figures.
// Pure and idempotent: calling it never changes the state it reads.
func ComputeWeeklySummary(state domain.WeekState) domain.Summary {
	totalDeposit := 0.0
	for _, dep := range state.BankDeposits {
		totalDeposit += domain.SafeNumber(dep.Amount)
	}

	totalExpenses := 0.0
	for _, exp := range state.OtherExpenses {
		totalExpenses += domain.SafeNumber(exp.Amount)
	}

	totalSale := 0.0
	totalSellingProfit := 0.0
	totalEmptyStock := 0.0
	for _, cat := range state.LiquorItems {
		for _, sub := range cat.SubLiquors {
			sold := soldUnits(sub)
			selling := domain.SafeNumber(sub.SellingPrice)
			buying := domain.SafeNumber(sub.BuyingPrice)
			totalSale += sold * selling
			totalSellingProfit += sold * (selling - buying)
		}
		totalEmptyStock += (domain.SafeNumber(cat.EmptyIn) + domain.SafeNumber(cat.EmptyOut)) * domain.EmptyUnitValue
	}

	salary := domain.SafeNumber(state.Salary)
	locker := domain.SafeNumber(state.Locker)
	finalProfit := totalSellingProfit + totalEmptyStock - salary - totalExpenses - locker

	return domain.Summary{
		TotalDeposit:       domain.Round2(totalDeposit),
		TotalExpenses:      domain.Round2(totalExpenses),
		TotalSale:          domain.Round2(totalSale),
		TotalSellingProfit: domain.Round2(totalSellingProfit),
		TotalEmptyStock:    domain.Round2(totalEmptyStock),
		Salary:             domain.Round2(salary),
		Locker:             domain.Round2(locker),
		FinalProfit:        domain.Round2(finalProfit),
	}
}

// Summary computes the live week's summary.
func (s *Store) Summary() domain.Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ComputeWeeklySummary(s.state)
}
