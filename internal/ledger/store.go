// Package ledger owns the live week state (deposits, expenses, liquor
// inventory, salary, locker), the closed-week history, and the derived
// weekly figures. State is held in memory and written through the blob
// store after every mutation.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"barbook/backend/internal/blob"
	"barbook/backend/internal/domain"
	"barbook/backend/internal/xid"
)

var (
	ErrNotFound     = errors.New("ledger: not found")
	ErrInvalidInput = errors.New("ledger: invalid input")

	// ErrCorruptState aborts a week close when the snapshot cannot be
	// built from the current state (an inventory entry without an id).
	ErrCorruptState = errors.New("ledger: corrupt week state")
)

// Store is the single owner of the week in progress. All reads and
// mutations go through its mutex; persistence happens asynchronously after
// each mutation and is awaited via Flush.
type Store struct {
	blobs blob.Store

	mu      sync.RWMutex
	state   domain.WeekState
	records []domain.WeeklyRecord
	users   []domain.UserAccount

	saves sync.WaitGroup
}

// New loads all state slices from the blob store. A key that was never
// written yields its empty default; a key holding unreadable JSON is an
// error rather than a silent reset.
func New(ctx context.Context, blobs blob.Store) (*Store, error) {
	s := &Store{blobs: blobs}
	s.state = domain.WeekState{
		BankDeposits:  []domain.Deposit{},
		LiquorItems:   []domain.LiquorCategory{},
		OtherExpenses: []domain.Expense{},
	}
	s.records = []domain.WeeklyRecord{}
	s.users = []domain.UserAccount{}

	if err := loadKey(ctx, blobs, blob.KeyBankDeposits, &s.state.BankDeposits); err != nil {
		return nil, err
	}
	if err := loadKey(ctx, blobs, blob.KeyLiquorItems, &s.state.LiquorItems); err != nil {
		return nil, err
	}
	if err := loadKey(ctx, blobs, blob.KeyOtherExpenses, &s.state.OtherExpenses); err != nil {
		return nil, err
	}
	if err := loadKey(ctx, blobs, blob.KeyPreviousRecords, &s.records); err != nil {
		return nil, err
	}
	if err := loadKey(ctx, blobs, blob.KeySalary, &s.state.Salary); err != nil {
		return nil, err
	}
	if err := loadKey(ctx, blobs, blob.KeyLocker, &s.state.Locker); err != nil {
		return nil, err
	}
	if err := loadKey(ctx, blobs, blob.KeyUsers, &s.users); err != nil {
		return nil, err
	}

	s.state.Salary = domain.SafeNumber(s.state.Salary)
	s.state.Locker = domain.SafeNumber(s.state.Locker)

	return s, nil
}

func loadKey(ctx context.Context, blobs blob.Store, key string, dest any) error {
	data, found, err := blobs.Load(ctx, key)
	if err != nil {
		return fmt.Errorf("load %s: %w", key, err)
	}
	if !found {
		return nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// persist writes one key in the background. Callers marshal while holding
// the store lock so the payload is a consistent snapshot.
func (s *Store) persist(key string, value any) {
	payload, err := json.Marshal(value)
	if err != nil {
		log.Printf("[ledger] encode %s: %v", key, err)
		return
	}

	s.saves.Add(1)
	go func() {
		defer s.saves.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.blobs.Save(ctx, key, payload); err != nil {
			log.Printf("[ledger] save %s: %v", key, err)
		}
	}()
}

// Flush waits for all in-flight background saves. Called at shutdown and
// by tests before asserting on persisted state.
func (s *Store) Flush() {
	s.saves.Wait()
}

// Ping proxies to the underlying blob backend.
func (s *Store) Ping(ctx context.Context) error {
	return s.blobs.Ping(ctx)
}

// ---- deposits ----

func (s *Store) ListDeposits() []domain.Deposit {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneDeposits(s.state.BankDeposits)
}

func (s *Store) AddDeposit(dep domain.Deposit) domain.Deposit {
	if dep.ID == "" {
		dep.ID = xid.New("dep")
	}
	dep.Amount = domain.SafeNumber(dep.Amount)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.BankDeposits = append(s.state.BankDeposits, dep)
	s.persist(blob.KeyBankDeposits, s.state.BankDeposits)
	return dep
}

func (s *Store) UpdateDeposit(id string, apply func(*domain.Deposit)) (domain.Deposit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.state.BankDeposits {
		if s.state.BankDeposits[i].ID != id {
			continue
		}
		apply(&s.state.BankDeposits[i])
		s.state.BankDeposits[i].Amount = domain.SafeNumber(s.state.BankDeposits[i].Amount)
		s.persist(blob.KeyBankDeposits, s.state.BankDeposits)
		return s.state.BankDeposits[i], nil
	}
	return domain.Deposit{}, ErrNotFound
}

func (s *Store) DeleteDeposit(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.state.BankDeposits {
		if s.state.BankDeposits[i].ID == id {
			s.state.BankDeposits = append(s.state.BankDeposits[:i], s.state.BankDeposits[i+1:]...)
			s.persist(blob.KeyBankDeposits, s.state.BankDeposits)
			return nil
		}
	}
	return ErrNotFound
}

// ---- expenses ----

func (s *Store) ListExpenses() []domain.Expense {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneExpenses(s.state.OtherExpenses)
}

func (s *Store) AddExpense(exp domain.Expense) domain.Expense {
	if exp.ID == "" {
		exp.ID = xid.New("exp")
	}
	exp.Amount = domain.SafeNumber(exp.Amount)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.OtherExpenses = append(s.state.OtherExpenses, exp)
	s.persist(blob.KeyOtherExpenses, s.state.OtherExpenses)
	return exp
}

func (s *Store) UpdateExpense(id string, apply func(*domain.Expense)) (domain.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.state.OtherExpenses {
		if s.state.OtherExpenses[i].ID != id {
			continue
		}
		apply(&s.state.OtherExpenses[i])
		s.state.OtherExpenses[i].Amount = domain.SafeNumber(s.state.OtherExpenses[i].Amount)
		s.persist(blob.KeyOtherExpenses, s.state.OtherExpenses)
		return s.state.OtherExpenses[i], nil
	}
	return domain.Expense{}, ErrNotFound
}

func (s *Store) DeleteExpense(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.state.OtherExpenses {
		if s.state.OtherExpenses[i].ID == id {
			s.state.OtherExpenses = append(s.state.OtherExpenses[:i], s.state.OtherExpenses[i+1:]...)
			s.persist(blob.KeyOtherExpenses, s.state.OtherExpenses)
			return nil
		}
	}
	return ErrNotFound
}

// ---- liquor categories ----

func (s *Store) ListCategories() []domain.LiquorCategory {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneCategories(s.state.LiquorItems)
}

func (s *Store) GetCategory(id string) (domain.LiquorCategory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.state.LiquorItems {
		if s.state.LiquorItems[i].ID == id {
			return cloneCategory(s.state.LiquorItems[i]), nil
		}
	}
	return domain.LiquorCategory{}, ErrNotFound
}

func (s *Store) AddCategory(name string) domain.LiquorCategory {
	cat := domain.LiquorCategory{
		ID:         xid.New("cat"),
		Name:       name,
		SubLiquors: []domain.SubLiquor{},
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.LiquorItems = append(s.state.LiquorItems, cat)
	s.persist(blob.KeyLiquorItems, s.state.LiquorItems)
	return cloneCategory(cat)
}

func (s *Store) RenameCategory(id string, name string) (domain.LiquorCategory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.state.LiquorItems {
		if s.state.LiquorItems[i].ID != id {
			continue
		}
		s.state.LiquorItems[i].Name = name
		s.persist(blob.KeyLiquorItems, s.state.LiquorItems)
		return cloneCategory(s.state.LiquorItems[i]), nil
	}
	return domain.LiquorCategory{}, ErrNotFound
}

func (s *Store) DeleteCategory(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.state.LiquorItems {
		if s.state.LiquorItems[i].ID == id {
			s.state.LiquorItems = append(s.state.LiquorItems[:i], s.state.LiquorItems[i+1:]...)
			s.persist(blob.KeyLiquorItems, s.state.LiquorItems)
			return nil
		}
	}
	return ErrNotFound
}

// SetEmpties replaces both container-return counters of a category.
func (s *Store) SetEmpties(id string, emptyIn float64, emptyOut float64) (domain.LiquorCategory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.state.LiquorItems {
		if s.state.LiquorItems[i].ID != id {
			continue
		}
		s.state.LiquorItems[i].EmptyIn = domain.SafeNumber(emptyIn)
		s.state.LiquorItems[i].EmptyOut = domain.SafeNumber(emptyOut)
		s.persist(blob.KeyLiquorItems, s.state.LiquorItems)
		return cloneCategory(s.state.LiquorItems[i]), nil
	}
	return domain.LiquorCategory{}, ErrNotFound
}

// ---- sub-liquors ----

func (s *Store) AddSubLiquor(categoryID string, sub domain.SubLiquor) (domain.SubLiquor, error) {
	if sub.ID == "" {
		sub.ID = xid.New("liq")
	}
	sub.QuantityFields = filterZeroQuantities(sub.QuantityFields)

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.state.LiquorItems {
		if s.state.LiquorItems[i].ID != categoryID {
			continue
		}
		s.state.LiquorItems[i].SubLiquors = append(s.state.LiquorItems[i].SubLiquors, sub)
		s.persist(blob.KeyLiquorItems, s.state.LiquorItems)
		return cloneSubLiquor(sub), nil
	}
	return domain.SubLiquor{}, ErrNotFound
}

// UpdateSubLiquorInfo edits the purchasing surface (name, ml, dozen,
// quantity entries). Zero quantity entries are dropped on save.
func (s *Store) UpdateSubLiquorInfo(categoryID string, subID string, apply func(*domain.SubLiquor)) (domain.SubLiquor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, err := s.updateSubLocked(categoryID, subID, func(target *domain.SubLiquor) {
		apply(target)
		target.QuantityFields = filterZeroQuantities(target.QuantityFields)
	})
	if err != nil {
		return domain.SubLiquor{}, err
	}
	return sub, nil
}

// SetStockSales edits the sales surface (prices and on-hand count) without
// touching the purchasing fields.
func (s *Store) SetStockSales(categoryID string, subID string, buyingPrice, sellingPrice, inStock float64) (domain.SubLiquor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.updateSubLocked(categoryID, subID, func(target *domain.SubLiquor) {
		target.BuyingPrice = domain.SafeNumber(buyingPrice)
		target.SellingPrice = domain.SafeNumber(sellingPrice)
		target.InStock = domain.SafeNumber(inStock)
	})
}

func (s *Store) updateSubLocked(categoryID string, subID string, apply func(*domain.SubLiquor)) (domain.SubLiquor, error) {
	for i := range s.state.LiquorItems {
		if s.state.LiquorItems[i].ID != categoryID {
			continue
		}
		subs := s.state.LiquorItems[i].SubLiquors
		for j := range subs {
			if subs[j].ID != subID {
				continue
			}
			apply(&subs[j])
			s.persist(blob.KeyLiquorItems, s.state.LiquorItems)
			return cloneSubLiquor(subs[j]), nil
		}
		return domain.SubLiquor{}, ErrNotFound
	}
	return domain.SubLiquor{}, ErrNotFound
}

func (s *Store) DeleteSubLiquor(categoryID string, subID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.state.LiquorItems {
		if s.state.LiquorItems[i].ID != categoryID {
			continue
		}
		subs := s.state.LiquorItems[i].SubLiquors
		for j := range subs {
			if subs[j].ID == subID {
				s.state.LiquorItems[i].SubLiquors = append(subs[:j], subs[j+1:]...)
				s.persist(blob.KeyLiquorItems, s.state.LiquorItems)
				return nil
			}
		}
		return ErrNotFound
	}
	return ErrNotFound
}

// ---- salary / locker ----

func (s *Store) SetSalary(amount float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Salary = domain.SafeNumber(amount)
	s.persist(blob.KeySalary, s.state.Salary)
	return s.state.Salary
}

func (s *Store) SetLocker(amount float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Locker = domain.SafeNumber(amount)
	s.persist(blob.KeyLocker, s.state.Locker)
	return s.state.Locker
}

// WeekState returns a deep copy of the live week.
func (s *Store) WeekState() domain.WeekState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneWeekState(s.state)
}

// ---- closed-week history ----

func (s *Store) ListRecords() []domain.WeeklyRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneRecords(s.records)
}

func (s *Store) GetRecord(id string) (domain.WeeklyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.records {
		if s.records[i].ID == id {
			return cloneRecord(s.records[i]), nil
		}
	}
	return domain.WeeklyRecord{}, ErrNotFound
}

func (s *Store) DeleteRecord(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.records {
		if s.records[i].ID == id {
			s.records = append(s.records[:i], s.records[i+1:]...)
			s.persist(blob.KeyPreviousRecords, s.records)
			return nil
		}
	}
	return ErrNotFound
}

// ---- users ----

func (s *Store) ListUsers() []domain.UserAccount {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.UserAccount, len(s.users))
	copy(out, s.users)
	return out
}

func (s *Store) FindUser(username string) (domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			return u, nil
		}
	}
	return domain.UserAccount{}, ErrNotFound
}

// UpsertUser inserts or replaces an account by username.
func (s *Store) UpsertUser(account domain.UserAccount) domain.UserAccount {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.users {
		if strings.EqualFold(s.users[i].Username, account.Username) {
			s.users[i] = account
			s.persist(blob.KeyUsers, s.users)
			return account
		}
	}
	s.users = append(s.users, account)
	s.persist(blob.KeyUsers, s.users)
	return account
}

// SeedUsers installs the given accounts only when no accounts exist yet.
func (s *Store) SeedUsers(accounts []domain.UserAccount) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.users) > 0 {
		return false
	}
	s.users = append(s.users, accounts...)
	s.persist(blob.KeyUsers, s.users)
	return true
}

// ---- clone helpers ----

func cloneDeposits(in []domain.Deposit) []domain.Deposit {
	out := make([]domain.Deposit, len(in))
	copy(out, in)
	return out
}

func cloneExpenses(in []domain.Expense) []domain.Expense {
	out := make([]domain.Expense, len(in))
	copy(out, in)
	return out
}

func cloneSubLiquor(in domain.SubLiquor) domain.SubLiquor {
	out := in
	out.QuantityFields = make([]float64, len(in.QuantityFields))
	copy(out.QuantityFields, in.QuantityFields)
	return out
}

func cloneCategory(in domain.LiquorCategory) domain.LiquorCategory {
	out := in
	out.SubLiquors = make([]domain.SubLiquor, len(in.SubLiquors))
	for i := range in.SubLiquors {
		out.SubLiquors[i] = cloneSubLiquor(in.SubLiquors[i])
	}
	return out
}

func cloneCategories(in []domain.LiquorCategory) []domain.LiquorCategory {
	out := make([]domain.LiquorCategory, len(in))
	for i := range in {
		out[i] = cloneCategory(in[i])
	}
	return out
}

func cloneWeekState(in domain.WeekState) domain.WeekState {
	return domain.WeekState{
		BankDeposits:  cloneDeposits(in.BankDeposits),
		LiquorItems:   cloneCategories(in.LiquorItems),
		OtherExpenses: cloneExpenses(in.OtherExpenses),
		Salary:        in.Salary,
		Locker:        in.Locker,
	}
}

func cloneRecord(in domain.WeeklyRecord) domain.WeeklyRecord {
	out := in
	out.BankDeposits = cloneDeposits(in.BankDeposits)
	out.OtherExpenses = cloneExpenses(in.OtherExpenses)
	out.LiquorItems = make([]domain.ArchivedCategory, len(in.LiquorItems))
	for i, cat := range in.LiquorItems {
		archived := cat
		archived.SubLiquors = make([]domain.ArchivedSubLiquor, len(cat.SubLiquors))
		for j, sub := range cat.SubLiquors {
			cp := sub
			cp.QuantityFields = make([]float64, len(sub.QuantityFields))
			copy(cp.QuantityFields, sub.QuantityFields)
			archived.SubLiquors[j] = cp
		}
		out.LiquorItems[i] = archived
	}
	return out
}

func cloneRecords(in []domain.WeeklyRecord) []domain.WeeklyRecord {
	out := make([]domain.WeeklyRecord, len(in))
	for i := range in {
		out[i] = cloneRecord(in[i])
	}
	return out
}

func filterZeroQuantities(in []float64) []float64 {
	out := make([]float64, 0, len(in))
	for _, q := range in {
		q = domain.SafeNumber(q)
		if q != 0 {
			out = append(out, q)
		}
	}
	return out
}
