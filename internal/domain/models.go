package domain

import "time"

// EmptyUnitValue is the fixed payout per returned empty container unit.
// This is a business rule of the outlet, not a configurable setting.
const EmptyUnitValue = 100.0

type Deposit struct {
	ID     string  `json:"id"`
	Date   string  `json:"date"`
	Bank   string  `json:"bank"`
	Amount float64 `json:"amount"`
}

type Expense struct {
	ID     string  `json:"id"`
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
}

// SubLiquor is a stock-keeping unit inside a category. The quantityFields
// slice holds case-count purchase entries made during the week; dozen is the
// units-per-case conversion factor.
type SubLiquor struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	ML             float64   `json:"ml"`
	Dozen          float64   `json:"dozen"`
	QuantityFields []float64 `json:"quantity_fields"`
	BuyingPrice    float64   `json:"buying_price"`
	SellingPrice   float64   `json:"selling_price"`
	InStock        float64   `json:"in_stock"`
}

type LiquorCategory struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	SubLiquors []SubLiquor `json:"sub_liquors"`
	EmptyIn    float64     `json:"empty_in"`
	EmptyOut   float64     `json:"empty_out"`
}

// StockRow is the derived valuation of one SubLiquor for the current week.
type StockRow struct {
	ID                   string  `json:"id"`
	Name                 string  `json:"name"`
	ML                   float64 `json:"ml"`
	BuyingPrice          float64 `json:"buying_price"`
	SellingPrice         float64 `json:"selling_price"`
	PurchasingStockTotal float64 `json:"purchasing_stock_total"`
	SoldItems            float64 `json:"sold_items"`
	InStock              float64 `json:"in_stock"`
	Sale                 float64 `json:"sale"`
	InStockBalance       float64 `json:"in_stock_balance"`
}

type EmptyStockValue struct {
	CalculatedEmptyIn  float64 `json:"calculated_empty_in"`
	CalculatedEmptyOut float64 `json:"calculated_empty_out"`
}

// ArchivedSubLiquor is a SubLiquor with its weekly valuation frozen in at
// rollover time.
type ArchivedSubLiquor struct {
	SubLiquor
	PurchasingStockTotal float64 `json:"purchasing_stock_total"`
	SoldItems            float64 `json:"sold_items"`
	Sale                 float64 `json:"sale"`
	InStockBalance       float64 `json:"in_stock_balance"`
}

type ArchivedCategory struct {
	ID         string              `json:"id"`
	Name       string              `json:"name"`
	SubLiquors []ArchivedSubLiquor `json:"sub_liquors"`
	EmptyIn    float64             `json:"empty_in"`
	EmptyOut   float64             `json:"empty_out"`
}

// WeeklyRecord is the immutable snapshot of a closed week. Records are kept
// newest-first and are only ever removed one at a time by explicit deletion.
type WeeklyRecord struct {
	ID            string             `json:"id"`
	DateCleared   time.Time          `json:"date_cleared"`
	BankDeposits  []Deposit          `json:"bank_deposits"`
	LiquorItems   []ArchivedCategory `json:"liquor_items"`
	OtherExpenses []Expense          `json:"other_expenses"`
	Salary        float64            `json:"salary"`
	Locker        float64            `json:"locker"`
}

// WeekState is the live mutable aggregate for the week in progress. There is
// exactly one instance per process, owned by the ledger store.
type WeekState struct {
	BankDeposits  []Deposit        `json:"bank_deposits"`
	LiquorItems   []LiquorCategory `json:"liquor_items"`
	OtherExpenses []Expense        `json:"other_expenses"`
	Salary        float64          `json:"salary"`
	Locker        float64          `json:"locker"`
}

type Summary struct {
	TotalDeposit       float64 `json:"total_deposit"`
	TotalExpenses      float64 `json:"total_expenses"`
	TotalSale          float64 `json:"total_sale"`
	TotalSellingProfit float64 `json:"total_selling_profit"`
	TotalEmptyStock    float64 `json:"total_empty_stock"`
	Salary             float64 `json:"salary"`
	Locker             float64 `json:"locker"`
	FinalProfit        float64 `json:"final_profit"`
}

type StockSalesReport struct {
	CategoryID   string     `json:"category_id"`
	CategoryName string     `json:"category_name"`
	Rows         []StockRow `json:"rows"`
	TotalSale    float64    `json:"total_sale"`
	TotalInStock float64    `json:"total_in_stock"`
}

type DepositCreateRequest struct {
	Date   string  `json:"date"`
	Bank   string  `json:"bank"`
	Amount Numeric `json:"amount"`
}

type DepositUpdateRequest struct {
	Date   *string  `json:"date,omitempty"`
	Bank   *string  `json:"bank,omitempty"`
	Amount *Numeric `json:"amount,omitempty"`
}

type ExpenseCreateRequest struct {
	Date   string  `json:"date"`
	Amount Numeric `json:"amount"`
}

type ExpenseUpdateRequest struct {
	Date   *string  `json:"date,omitempty"`
	Amount *Numeric `json:"amount,omitempty"`
}

type CategoryCreateRequest struct {
	Name string `json:"name"`
}

type CategoryRenameRequest struct {
	Name string `json:"name"`
}

// EmptiesUpdateRequest sets the container-return counters of a category.
type EmptiesUpdateRequest struct {
	EmptyIn  Numeric `json:"empty_in"`
	EmptyOut Numeric `json:"empty_out"`
}

// SubLiquorCreateRequest and SubLiquorInfoUpdateRequest cover the "liquor
// info" edit surface (name/ml/dozen/quantity entries).
type SubLiquorCreateRequest struct {
	Name           string    `json:"name"`
	ML             Numeric   `json:"ml"`
	Dozen          Numeric   `json:"dozen"`
	QuantityFields []Numeric `json:"quantity_fields"`
}

type SubLiquorInfoUpdateRequest struct {
	Name           *string   `json:"name,omitempty"`
	ML             *Numeric  `json:"ml,omitempty"`
	Dozen          *Numeric  `json:"dozen,omitempty"`
	QuantityFields []Numeric `json:"quantity_fields,omitempty"`
}

// StockSalesUpdateRequest covers the independent "stock & sales" edit
// surface (prices and on-hand count).
type StockSalesUpdateRequest struct {
	BuyingPrice  Numeric `json:"buying_price"`
	SellingPrice Numeric `json:"selling_price"`
	InStock      Numeric `json:"in_stock"`
}

type AmountUpdateRequest struct {
	Amount Numeric `json:"amount"`
}

type CloseWeekResponse struct {
	Record WeeklyRecord `json:"record"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type StaffCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type StaffUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string    `json:"username"`
	Password  string    `json:"password"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)
