package core

import (
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	KindIncome  Kind = "Income"
	KindExpense Kind = "Expense"
)

const (
	Food           ExpenseCategory = "Food"
	Rent           ExpenseCategory = "Rent"
	Transportation ExpenseCategory = "Transportation"
	Utilities      ExpenseCategory = "Utilities"
	Groceries      ExpenseCategory = "Groceries"
	HealthFitness  ExpenseCategory = "Health & Fitness"
	Entertainment  ExpenseCategory = "Entertainment"
	Shopping       ExpenseCategory = "Shopping"
	Travel         ExpenseCategory = "Travel"
	Education      ExpenseCategory = "Education"
	Miscellaneous  ExpenseCategory = "Miscellaneous"
)

const (
	Salary       IncomeCategory = "Salary"
	Freelance    IncomeCategory = "Business/Freelance"
	Investments  IncomeCategory = "Investments"
	RentalIncome IncomeCategory = "Rental Income"
	Gifts        IncomeCategory = "Gifts"
	OtherIncome  IncomeCategory = "Other"
)

const (
	dateLayout      = "2006-01-02"
	yearMonthLayout = "2006-01"
)

type (
	// Kind is the persisted transaction type, either Income or Expense.
	Kind string

	ExpenseCategory string
	IncomeCategory  string

	// Classification couples a transaction type with a category drawn from
	// that type's own list. Build it with Income, Expense or ParseClassification.
	Classification struct {
		kind     Kind
		category string
	}

	// Date is a calendar date in YYYY-MM-DD form.
	Date string

	// YearMonth is a calendar month in YYYY-MM form.
	YearMonth string

	User struct {
		Email string
		Name  string
	}

	Transaction struct {
		ID        int64
		UserEmail string
		Class     Classification
		Amount    float64
		Date      Date
		Note      string
	}
)

var (
	expenseCategories = []ExpenseCategory{
		Food, Rent, Transportation, Utilities, Groceries, HealthFitness,
		Entertainment, Shopping, Travel, Education, Miscellaneous,
	}
	incomeCategories = []IncomeCategory{
		Salary, Freelance, Investments, RentalIncome, Gifts, OtherIncome,
	}
)

// Income classifies a transaction as income in category c.
func Income(c IncomeCategory) Classification {
	return Classification{kind: KindIncome, category: string(c)}
}

// Expense classifies a transaction as an expense in category c.
func Expense(c ExpenseCategory) Classification {
	return Classification{kind: KindExpense, category: string(c)}
}

// ParseClassification validates a free-text type/category pair coming from a caller.
func ParseClassification(kind, category string) (Classification, error) {
	c := Classification{kind: Kind(strings.TrimSpace(kind)), category: strings.TrimSpace(category)}
	if err := c.Validate(); err != nil {
		return Classification{}, err
	}
	return c, nil
}

// RestoreClassification rebuilds a classification from a persisted row. Category
// membership is not checked here: the store never enforced it, so older rows may
// carry categories outside the current lists.
func RestoreClassification(kind, category string) Classification {
	return Classification{kind: Kind(kind), category: category}
}

func (c Classification) Kind() Kind       { return c.kind }
func (c Classification) Category() string { return c.category }
func (c Classification) IsIncome() bool   { return c.kind == KindIncome }
func (c Classification) IsExpense() bool  { return c.kind == KindExpense }

func (c Classification) String() string {
	return fmt.Sprintf("%s/%s", c.kind, c.category)
}

func (c Classification) Validate() error {
	switch c.kind {
	case KindIncome:
		for _, v := range incomeCategories {
			if string(v) == c.category {
				return nil
			}
		}
	case KindExpense:
		for _, v := range expenseCategories {
			if string(v) == c.category {
				return nil
			}
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidKind, c.kind)
	}
	return fmt.Errorf("%w: %q is not a %s category", ErrInvalidCategory, c.category, c.kind)
}

func (k Kind) Validate() error {
	if k != KindIncome && k != KindExpense {
		return fmt.Errorf("%w: %q", ErrInvalidKind, string(k))
	}
	return nil
}

// ExpenseCategories returns the expense categories in display order.
func ExpenseCategories() []ExpenseCategory {
	return append([]ExpenseCategory(nil), expenseCategories...)
}

// IncomeCategories returns the income categories in display order.
func IncomeCategories() []IncomeCategory {
	return append([]IncomeCategory(nil), incomeCategories...)
}

// CategoriesFor returns the category names allowed for kind.
func CategoriesFor(kind Kind) []string {
	var out []string
	switch kind {
	case KindIncome:
		for _, c := range incomeCategories {
			out = append(out, string(c))
		}
	case KindExpense:
		for _, c := range expenseCategories {
			out = append(out, string(c))
		}
	}
	return out
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	return Date(t.Format(dateLayout))
}

// ParseDate accepts only the zero-padded YYYY-MM-DD form.
func ParseDate(s string) (Date, error) {
	d := Date(strings.TrimSpace(s))
	if err := d.Validate(); err != nil {
		return "", err
	}
	return d, nil
}

func (d Date) Validate() error {
	t, err := time.Parse(dateLayout, string(d))
	if err != nil || t.Format(dateLayout) != string(d) {
		return fmt.Errorf("%w: %q (want YYYY-MM-DD)", ErrInvalidDate, string(d))
	}
	return nil
}

// Time interprets a persisted date. Rows written outside this package may hold
// anything, so a failure is reported as ErrParseFault.
func (d Date) Time() (time.Time, error) {
	t, err := time.Parse(dateLayout, string(d))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q", ErrParseFault, string(d))
	}
	return t, nil
}

// YearMonth returns the month prefix of the date.
func (d Date) YearMonth() YearMonth {
	if len(d) < 7 {
		return YearMonth(d)
	}
	return YearMonth(d[:7])
}

func (d Date) String() string { return string(d) }

// NewYearMonth formats year and month as YYYY-MM.
func NewYearMonth(year, month int) YearMonth {
	return YearMonth(fmt.Sprintf("%04d-%02d", year, month))
}

// MonthOf returns the calendar month containing t.
func MonthOf(t time.Time) YearMonth {
	return YearMonth(t.Format(yearMonthLayout))
}

// ParseYearMonth accepts only the zero-padded YYYY-MM form.
func ParseYearMonth(s string) (YearMonth, error) {
	ym := YearMonth(strings.TrimSpace(s))
	if err := ym.Validate(); err != nil {
		return "", err
	}
	return ym, nil
}

func (ym YearMonth) Validate() error {
	t, err := time.Parse(yearMonthLayout, string(ym))
	if err != nil || t.Format(yearMonthLayout) != string(ym) {
		return fmt.Errorf("%w: %q (want YYYY-MM)", ErrInvalidYearMonth, string(ym))
	}
	return nil
}

func (ym YearMonth) String() string { return string(ym) }

func ValidateAmount(amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return fmt.Errorf("%w: %v (must be greater than zero)", ErrInvalidAmount, amount)
	}
	return nil
}

// Validate checks every field a caller supplies; the ID is assigned by the store.
func (t Transaction) Validate() error {
	if strings.TrimSpace(t.UserEmail) == "" {
		return ErrEmptyEmail
	}
	return t.ValidateDetails()
}

// ValidateDetails checks the fields an update may replace.
func (t Transaction) ValidateDetails() error {
	if err := t.Class.Validate(); err != nil {
		return err
	}
	if err := ValidateAmount(t.Amount); err != nil {
		return err
	}
	return t.Date.Validate()
}
