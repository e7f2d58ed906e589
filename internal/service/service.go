// Package service validates requests and orchestrates ledger operations.
// Role checks happen here via the actor carried in the request context.
package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"barbook/backend/internal/domain"
	"barbook/backend/internal/ledger"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	ledger *ledger.Store
}

func New(store *ledger.Store) *Service {
	return &Service{ledger: store}
}

// Ping reports whether the persistence backend is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.ledger.Ping(ctx)
}

func requireActor(ctx context.Context) (domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.Actor{}, fmt.Errorf("authentication required")
	}
	return actor, nil
}

func requireAdmin(ctx context.Context) (domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return domain.Actor{}, fmt.Errorf("admin role required")
	}
	return actor, nil
}

// ---- deposits ----

func (s *Service) ListDeposits(ctx context.Context) ([]domain.Deposit, error) {
	if _, err := requireActor(ctx); err != nil {
		return nil, err
	}
	return s.ledger.ListDeposits(), nil
}

func (s *Service) CreateDeposit(ctx context.Context, req domain.DepositCreateRequest) (domain.Deposit, error) {
	if _, err := requireActor(ctx); err != nil {
		return domain.Deposit{}, err
	}

	date := strings.TrimSpace(req.Date)
	bank := strings.TrimSpace(req.Bank)
	amount := req.Amount.Float()
	if date == "" || bank == "" {
		return domain.Deposit{}, ledger.ErrInvalidInput
	}
	if amount < 0 {
		return domain.Deposit{}, ledger.ErrInvalidInput
	}

	return s.ledger.AddDeposit(domain.Deposit{Date: date, Bank: bank, Amount: amount}), nil
}

func (s *Service) UpdateDeposit(ctx context.Context, id string, req domain.DepositUpdateRequest) (domain.Deposit, error) {
	if _, err := requireActor(ctx); err != nil {
		return domain.Deposit{}, err
	}
	if strings.TrimSpace(id) == "" {
		return domain.Deposit{}, ledger.ErrInvalidInput
	}
	if req.Date != nil && strings.TrimSpace(*req.Date) == "" {
		return domain.Deposit{}, ledger.ErrInvalidInput
	}
	if req.Bank != nil && strings.TrimSpace(*req.Bank) == "" {
		return domain.Deposit{}, ledger.ErrInvalidInput
	}
	if req.Amount != nil && req.Amount.Float() < 0 {
		return domain.Deposit{}, ledger.ErrInvalidInput
	}

	return s.ledger.UpdateDeposit(id, func(d *domain.Deposit) {
		if req.Date != nil {
			d.Date = strings.TrimSpace(*req.Date)
		}
		if req.Bank != nil {
			d.Bank = strings.TrimSpace(*req.Bank)
		}
		if req.Amount != nil {
			d.Amount = req.Amount.Float()
		}
	})
}

func (s *Service) DeleteDeposit(ctx context.Context, id string) error {
	if _, err := requireActor(ctx); err != nil {
		return err
	}
	return s.ledger.DeleteDeposit(id)
}

// ---- expenses ----

func (s *Service) ListExpenses(ctx context.Context) ([]domain.Expense, error) {
	if _, err := requireActor(ctx); err != nil {
		return nil, err
	}
	return s.ledger.ListExpenses(), nil
}

func (s *Service) CreateExpense(ctx context.Context, req domain.ExpenseCreateRequest) (domain.Expense, error) {
	if _, err := requireActor(ctx); err != nil {
		return domain.Expense{}, err
	}

	date := strings.TrimSpace(req.Date)
	amount := req.Amount.Float()
	if date == "" || amount < 0 {
		return domain.Expense{}, ledger.ErrInvalidInput
	}

	return s.ledger.AddExpense(domain.Expense{Date: date, Amount: amount}), nil
}

func (s *Service) UpdateExpense(ctx context.Context, id string, req domain.ExpenseUpdateRequest) (domain.Expense, error) {
	if _, err := requireActor(ctx); err != nil {
		return domain.Expense{}, err
	}
	if strings.TrimSpace(id) == "" {
		return domain.Expense{}, ledger.ErrInvalidInput
	}
	if req.Date != nil && strings.TrimSpace(*req.Date) == "" {
		return domain.Expense{}, ledger.ErrInvalidInput
	}
	if req.Amount != nil && req.Amount.Float() < 0 {
		return domain.Expense{}, ledger.ErrInvalidInput
	}

	return s.ledger.UpdateExpense(id, func(e *domain.Expense) {
		if req.Date != nil {
			e.Date = strings.TrimSpace(*req.Date)
		}
		if req.Amount != nil {
			e.Amount = req.Amount.Float()
		}
	})
}

func (s *Service) DeleteExpense(ctx context.Context, id string) error {
	if _, err := requireActor(ctx); err != nil {
		return err
	}
	return s.ledger.DeleteExpense(id)
}

// ---- liquor inventory ----

func (s *Service) ListCategories(ctx context.Context) ([]domain.LiquorCategory, error) {
	if _, err := requireActor(ctx); err != nil {
		return nil, err
	}
	return s.ledger.ListCategories(), nil
}

func (s *Service) GetCategory(ctx context.Context, id string) (domain.LiquorCategory, error) {
	if _, err := requireActor(ctx); err != nil {
		return domain.LiquorCategory{}, err
	}
	return s.ledger.GetCategory(id)
}

func (s *Service) CreateCategory(ctx context.Context, req domain.CategoryCreateRequest) (domain.LiquorCategory, error) {
	if _, err := requireActor(ctx); err != nil {
		return domain.LiquorCategory{}, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.LiquorCategory{}, ledger.ErrInvalidInput
	}
	return s.ledger.AddCategory(name), nil
}

func (s *Service) RenameCategory(ctx context.Context, id string, req domain.CategoryRenameRequest) (domain.LiquorCategory, error) {
	if _, err := requireActor(ctx); err != nil {
		return domain.LiquorCategory{}, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.LiquorCategory{}, ledger.ErrInvalidInput
	}
	return s.ledger.RenameCategory(id, name)
}

func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	if _, err := requireAdmin(ctx); err != nil {
		return err
	}
	return s.ledger.DeleteCategory(id)
}

func (s *Service) SetEmpties(ctx context.Context, id string, req domain.EmptiesUpdateRequest) (domain.LiquorCategory, error) {
	if _, err := requireActor(ctx); err != nil {
		return domain.LiquorCategory{}, err
	}
	emptyIn := req.EmptyIn.Float()
	emptyOut := req.EmptyOut.Float()
	if emptyIn < 0 || emptyOut < 0 {
		return domain.LiquorCategory{}, ledger.ErrInvalidInput
	}
	return s.ledger.SetEmpties(id, emptyIn, emptyOut)
}

func (s *Service) CreateSubLiquor(ctx context.Context, categoryID string, req domain.SubLiquorCreateRequest) (domain.SubLiquor, error) {
	if _, err := requireActor(ctx); err != nil {
		return domain.SubLiquor{}, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.SubLiquor{}, ledger.ErrInvalidInput
	}

	return s.ledger.AddSubLiquor(categoryID, domain.SubLiquor{
		Name:           name,
		ML:             req.ML.Float(),
		Dozen:          req.Dozen.Float(),
		QuantityFields: numericSlice(req.QuantityFields),
	})
}

func (s *Service) UpdateSubLiquorInfo(ctx context.Context, categoryID string, subID string, req domain.SubLiquorInfoUpdateRequest) (domain.SubLiquor, error) {
	if _, err := requireActor(ctx); err != nil {
		return domain.SubLiquor{}, err
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return domain.SubLiquor{}, ledger.ErrInvalidInput
	}

	return s.ledger.UpdateSubLiquorInfo(categoryID, subID, func(sub *domain.SubLiquor) {
		if req.Name != nil {
			sub.Name = strings.TrimSpace(*req.Name)
		}
		if req.ML != nil {
			sub.ML = req.ML.Float()
		}
		if req.Dozen != nil {
			sub.Dozen = req.Dozen.Float()
		}
		if req.QuantityFields != nil {
			sub.QuantityFields = numericSlice(req.QuantityFields)
		}
	})
}

func (s *Service) DeleteSubLiquor(ctx context.Context, categoryID string, subID string) error {
	if _, err := requireActor(ctx); err != nil {
		return err
	}
	return s.ledger.DeleteSubLiquor(categoryID, subID)
}

func (s *Service) SetStockSales(ctx context.Context, categoryID string, subID string, req domain.StockSalesUpdateRequest) (domain.SubLiquor, error) {
	if _, err := requireActor(ctx); err != nil {
		return domain.SubLiquor{}, err
	}
	return s.ledger.SetStockSales(categoryID, subID, req.BuyingPrice.Float(), req.SellingPrice.Float(), req.InStock.Float())
}

// StockSalesReport returns the computed per-item valuation table for one
// category.
func (s *Service) StockSalesReport(ctx context.Context, categoryID string) (domain.StockSalesReport, error) {
	if _, err := requireActor(ctx); err != nil {
		return domain.StockSalesReport{}, err
	}
	cat, err := s.ledger.GetCategory(categoryID)
	if err != nil {
		return domain.StockSalesReport{}, err
	}
	return ledger.ComputeStockSalesReport(cat), nil
}

func (s *Service) EmptyStockValue(ctx context.Context, categoryID string) (domain.EmptyStockValue, error) {
	if _, err := requireActor(ctx); err != nil {
		return domain.EmptyStockValue{}, err
	}
	cat, err := s.ledger.GetCategory(categoryID)
	if err != nil {
		return domain.EmptyStockValue{}, err
	}
	return ledger.ComputeEmptyStockValue(cat), nil
}

// ---- summary / salary / locker ----

func (s *Service) WeeklySummary(ctx context.Context) (domain.Summary, error) {
	if _, err := requireActor(ctx); err != nil {
		return domain.Summary{}, err
	}
	return s.ledger.Summary(), nil
}

func (s *Service) SetSalary(ctx context.Context, req domain.AmountUpdateRequest) (float64, error) {
	if _, err := requireActor(ctx); err != nil {
		return 0, err
	}
	amount := req.Amount.Float()
	if amount < 0 {
		return 0, ledger.ErrInvalidInput
	}
	return s.ledger.SetSalary(amount), nil
}

func (s *Service) SetLocker(ctx context.Context, req domain.AmountUpdateRequest) (float64, error) {
	if _, err := requireActor(ctx); err != nil {
		return 0, err
	}
	amount := req.Amount.Float()
	if amount < 0 {
		return 0, ledger.ErrInvalidInput
	}
	return s.ledger.SetLocker(amount), nil
}

// ---- rollover and history ----

func (s *Service) CloseWeek(ctx context.Context) (domain.WeeklyRecord, error) {
	actor, err := requireAdmin(ctx)
	if err != nil {
		return domain.WeeklyRecord{}, err
	}

	record, err := s.ledger.CloseWeek(time.Now())
	if err != nil {
		return domain.WeeklyRecord{}, err
	}
	logWeekClosed(actor.Username, record)
	return record, nil
}

func (s *Service) ListRecords(ctx context.Context) ([]domain.WeeklyRecord, error) {
	if _, err := requireActor(ctx); err != nil {
		return nil, err
	}
	return s.ledger.ListRecords(), nil
}

func (s *Service) GetRecord(ctx context.Context, id string) (domain.WeeklyRecord, error) {
	if _, err := requireActor(ctx); err != nil {
		return domain.WeeklyRecord{}, err
	}
	return s.ledger.GetRecord(id)
}

func (s *Service) DeleteRecord(ctx context.Context, id string) error {
	if _, err := requireAdmin(ctx); err != nil {
		return err
	}
	return s.ledger.DeleteRecord(id)
}

func logWeekClosed(username string, record domain.WeeklyRecord) {
	log.Printf("[service] week closed by %s: record=%s deposits=%d expenses=%d categories=%d",
		username, record.ID, len(record.BankDeposits), len(record.OtherExpenses), len(record.LiquorItems))
}

func numericSlice(in []domain.Numeric) []float64 {
	out := make([]float64, 0, len(in))
	for _, n := range in {
		out = append(out, n.Float())
	}
	return out
}
