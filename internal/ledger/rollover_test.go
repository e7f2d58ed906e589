package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"barbook/backend/internal/blob/memory"
	"barbook/backend/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(context.Background(), memory.New())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}

func seedWeek(t *testing.T, s *Store) (catID string, subID string) {
	t.Helper()

	s.AddDeposit(domain.Deposit{Date: "2026-02-02", Bank: "HNB", Amount: 5000})
	s.AddExpense(domain.Expense{Date: "2026-02-03", Amount: 300})
	s.SetSalary(1500)
	s.SetLocker(200)

	cat := s.AddCategory("Beer")
	sub, err := s.AddSubLiquor(cat.ID, domain.SubLiquor{
		Name:           "Lager",
		ML:             625,
		Dozen:          12,
		QuantityFields: []float64{2, 3},
		BuyingPrice:    80,
		SellingPrice:   100,
		InStock:        24,
	})
	if err != nil {
		t.Fatalf("add sub: %v", err)
	}
	if _, err := s.SetEmpties(cat.ID, 3, 2); err != nil {
		t.Fatalf("set empties: %v", err)
	}
	return cat.ID, sub.ID
}

func TestCloseWeekArchivesAndResets(t *testing.T) {
	s := newTestStore(t)
	catID, subID := seedWeek(t, s)

	record, err := s.CloseWeek(time.Date(2026, 2, 8, 21, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("close week: %v", err)
	}

	if len(record.BankDeposits) != 1 || record.BankDeposits[0].Amount != 5000 {
		t.Fatalf("record deposits: %+v", record.BankDeposits)
	}
	if len(record.OtherExpenses) != 1 || record.OtherExpenses[0].Amount != 300 {
		t.Fatalf("record expenses: %+v", record.OtherExpenses)
	}
	if record.Salary != 1500 || record.Locker != 200 {
		t.Fatalf("record salary/locker: %v/%v", record.Salary, record.Locker)
	}
	if len(record.LiquorItems) != 1 {
		t.Fatalf("record categories: %d", len(record.LiquorItems))
	}
	archived := record.LiquorItems[0]
	if archived.EmptyIn != 3 || archived.EmptyOut != 2 {
		t.Fatalf("archived empties: %v/%v", archived.EmptyIn, archived.EmptyOut)
	}
	frozen := archived.SubLiquors[0]
	if frozen.PurchasingStockTotal != 60 || frozen.SoldItems != 36 || frozen.Sale != 3600 || frozen.InStockBalance != 2400 {
		t.Fatalf("frozen figures: %+v", frozen)
	}

	// Live state reset.
	state := s.WeekState()
	if len(state.BankDeposits) != 0 || len(state.OtherExpenses) != 0 {
		t.Fatalf("deposits/expenses not cleared: %+v", state)
	}
	if state.Salary != 0 || state.Locker != 0 {
		t.Fatalf("salary/locker not zeroed: %v/%v", state.Salary, state.Locker)
	}
	cat, err := s.GetCategory(catID)
	if err != nil {
		t.Fatalf("get category: %v", err)
	}
	if cat.EmptyIn != 0 || cat.EmptyOut != 0 {
		t.Fatalf("empties not zeroed: %v/%v", cat.EmptyIn, cat.EmptyOut)
	}
	sub := cat.SubLiquors[0]
	if sub.ID != subID || sub.Name != "Lager" || sub.ML != 625 || sub.BuyingPrice != 80 || sub.SellingPrice != 100 {
		t.Fatalf("identity fields changed: %+v", sub)
	}
	// 24 leftover units over a case size of 12 carries 2 cases forward.
	if len(sub.QuantityFields) != 1 || sub.QuantityFields[0] != 2 {
		t.Fatalf("carry-forward: %+v", sub.QuantityFields)
	}
	if sub.InStock != 0 {
		t.Fatalf("in stock not zeroed: %v", sub.InStock)
	}
}

func TestCloseWeekCarryForwardWithZeroDozen(t *testing.T) {
	s := newTestStore(t)
	cat := s.AddCategory("Arrack")
	if _, err := s.AddSubLiquor(cat.ID, domain.SubLiquor{Name: "Local", Dozen: 0, InStock: 7}); err != nil {
		t.Fatalf("add sub: %v", err)
	}

	if _, err := s.CloseWeek(time.Now()); err != nil {
		t.Fatalf("close week: %v", err)
	}

	got, err := s.GetCategory(cat.ID)
	if err != nil {
		t.Fatalf("get category: %v", err)
	}
	sub := got.SubLiquors[0]
	if len(sub.QuantityFields) != 1 || sub.QuantityFields[0] != 7 {
		t.Fatalf("zero case size should divide by 1: %+v", sub.QuantityFields)
	}
}

func TestCloseWeekPrependsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	seedWeek(t, s)

	first, err := s.CloseWeek(time.Date(2026, 2, 8, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("first close: %v", err)
	}
	s.AddDeposit(domain.Deposit{Date: "2026-02-09", Bank: "BOC", Amount: 900})
	second, err := s.CloseWeek(time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("second close: %v", err)
	}

	records := s.ListRecords()
	if len(records) != 2 {
		t.Fatalf("records: %d", len(records))
	}
	if records[0].ID != second.ID || records[1].ID != first.ID {
		t.Fatalf("not newest-first: %s then %s", records[0].ID, records[1].ID)
	}
}

func TestCloseWeekAbortsOnCorruptStateWithoutMutation(t *testing.T) {
	s := newTestStore(t)
	seedWeek(t, s)

	// Inject an inventory entry with no id so the snapshot cannot be built.
	s.mu.Lock()
	s.state.LiquorItems = append(s.state.LiquorItems, domain.LiquorCategory{Name: "orphan"})
	s.mu.Unlock()

	before := s.WeekState()
	if _, err := s.CloseWeek(time.Now()); !errors.Is(err, ErrCorruptState) {
		t.Fatalf("expected corrupt-state error, got %v", err)
	}

	after := s.WeekState()
	if len(after.BankDeposits) != len(before.BankDeposits) ||
		len(after.OtherExpenses) != len(before.OtherExpenses) ||
		after.Salary != before.Salary || after.Locker != before.Locker {
		t.Fatalf("state mutated by failed close: before=%+v after=%+v", before, after)
	}
	if len(s.ListRecords()) != 0 {
		t.Fatalf("record created by failed close")
	}
}

func TestArchivedRecordImmuneToLaterMutation(t *testing.T) {
	s := newTestStore(t)
	catID, subID := seedWeek(t, s)

	record, err := s.CloseWeek(time.Now())
	if err != nil {
		t.Fatalf("close week: %v", err)
	}

	if _, err := s.RenameCategory(catID, "Renamed"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if _, err := s.SetStockSales(catID, subID, 1, 2, 3); err != nil {
		t.Fatalf("set stock: %v", err)
	}
	s.AddDeposit(domain.Deposit{Bank: "NSB", Amount: 1})

	stored, err := s.GetRecord(record.ID)
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if stored.LiquorItems[0].Name != "Beer" {
		t.Fatalf("archived name changed: %s", stored.LiquorItems[0].Name)
	}
	if stored.LiquorItems[0].SubLiquors[0].SellingPrice != 100 {
		t.Fatalf("archived price changed: %v", stored.LiquorItems[0].SubLiquors[0].SellingPrice)
	}
	if len(stored.BankDeposits) != 1 {
		t.Fatalf("archived deposits changed: %d", len(stored.BankDeposits))
	}
}

func TestDeleteRecordRemovesOnlyThatRecord(t *testing.T) {
	s := newTestStore(t)
	seedWeek(t, s)

	first, err := s.CloseWeek(time.Date(2026, 2, 8, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("first close: %v", err)
	}
	s.AddDeposit(domain.Deposit{Bank: "BOC", Amount: 900})
	second, err := s.CloseWeek(time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("second close: %v", err)
	}
	s.AddDeposit(domain.Deposit{Bank: "HNB", Amount: 777})

	if err := s.DeleteRecord(first.ID); err != nil {
		t.Fatalf("delete record: %v", err)
	}

	records := s.ListRecords()
	if len(records) != 1 || records[0].ID != second.ID {
		t.Fatalf("wrong records left: %+v", records)
	}
	if err := s.DeleteRecord(first.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
	state := s.WeekState()
	if len(state.BankDeposits) != 1 || state.BankDeposits[0].Amount != 777 {
		t.Fatalf("live state disturbed: %+v", state.BankDeposits)
	}
}
