package ledger

import (
	"fmt"
	"time"

	"barbook/backend/internal/blob"
	"barbook/backend/internal/domain"
	"barbook/backend/internal/xid"
)

// CloseWeek archives the week in progress and resets the working state.
//
// The close runs in two phases under one lock. Phase 1 builds the snapshot
// entirely into locals: deep copies of deposits, expenses and inventory
// with the computed valuation figures frozen in, a fresh record id and
// timestamp. Phase 2 then resets the live state: deposits and expenses are
// cleared, salary/locker and the empty counters are zeroed, and each
// sub-liquor carries its leftover stock forward as next week's opening
// quantity entry before its count is zeroed. Any snapshot failure aborts
// before Phase 2 touches anything, so the live week is never half-cleared.
func (s *Store) CloseWeek(now time.Time) (domain.WeeklyRecord, error) {
	if now.IsZero() {
		now = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Phase 1: snapshot.
	archived := make([]domain.ArchivedCategory, 0, len(s.state.LiquorItems))
	for _, cat := range s.state.LiquorItems {
		if cat.ID == "" {
			return domain.WeeklyRecord{}, fmt.Errorf("%w: category %q has no id", ErrCorruptState, cat.Name)
		}
		cpCat := domain.ArchivedCategory{
			ID:         cat.ID,
			Name:       cat.Name,
			SubLiquors: make([]domain.ArchivedSubLiquor, 0, len(cat.SubLiquors)),
			EmptyIn:    cat.EmptyIn,
			EmptyOut:   cat.EmptyOut,
		}
		for _, sub := range cat.SubLiquors {
			if sub.ID == "" {
				return domain.WeeklyRecord{}, fmt.Errorf("%w: item %q in category %q has no id", ErrCorruptState, sub.Name, cat.Name)
			}
			row := ComputeStockRow(sub)
			cpCat.SubLiquors = append(cpCat.SubLiquors, domain.ArchivedSubLiquor{
				SubLiquor:            cloneSubLiquor(sub),
				PurchasingStockTotal: row.PurchasingStockTotal,
				SoldItems:            row.SoldItems,
				Sale:                 row.Sale,
				InStockBalance:       row.InStockBalance,
			})
		}
		archived = append(archived, cpCat)
	}

	record := domain.WeeklyRecord{
		ID:            xid.New("rec"),
		DateCleared:   now.UTC(),
		BankDeposits:  cloneDeposits(s.state.BankDeposits),
		LiquorItems:   archived,
		OtherExpenses: cloneExpenses(s.state.OtherExpenses),
		Salary:        s.state.Salary,
		Locker:        s.state.Locker,
	}

	newRecords := make([]domain.WeeklyRecord, 0, len(s.records)+1)
	newRecords = append(newRecords, record)
	newRecords = append(newRecords, s.records...)

	// Phase 2: reset.
	s.records = newRecords
	s.state.BankDeposits = []domain.Deposit{}
	s.state.OtherExpenses = []domain.Expense{}
	s.state.Salary = 0
	s.state.Locker = 0
	for i := range s.state.LiquorItems {
		cat := &s.state.LiquorItems[i]
		cat.EmptyIn = 0
		cat.EmptyOut = 0
		for j := range cat.SubLiquors {
			sub := &cat.SubLiquors[j]
			carry := domain.SafeNumber(sub.InStock) / divisorDozen(sub.Dozen)
			sub.QuantityFields = []float64{carry}
			sub.InStock = 0
		}
	}

	s.persist(blob.KeyPreviousRecords, s.records)
	s.persist(blob.KeyBankDeposits, s.state.BankDeposits)
	s.persist(blob.KeyOtherExpenses, s.state.OtherExpenses)
	s.persist(blob.KeyLiquorItems, s.state.LiquorItems)
	s.persist(blob.KeySalary, s.state.Salary)
	s.persist(blob.KeyLocker, s.state.Locker)

	return cloneRecord(record), nil
}
