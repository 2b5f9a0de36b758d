package http

import (
	"time"

	"billbook/internal/core"
)

type categoryRef struct {
	ID   string        `json:"_id"`
	Name string        `json:"name"`
	Type core.BillType `json:"type"`
}

func newCategoryRef(c *core.Category) *categoryRef {
	if c == nil {
		return nil
	}
	return &categoryRef{ID: c.ID, Name: c.Name, Type: c.Type}
}

type categoryView struct {
	ID        string        `json:"_id"`
	Name      string        `json:"name"`
	Type      core.BillType `json:"type"`
	Icon      string        `json:"icon"`
	CreatedAt time.Time     `json:"createdAt"`
}

func newCategoryView(c core.Category) categoryView {
	return categoryView{ID: c.ID, Name: c.Name, Type: c.Type, Icon: c.Icon, CreatedAt: c.CreatedAt}
}

type billView struct {
	ID         string        `json:"_id"`
	Amount     core.Money    `json:"amount"`
	Type       core.BillType `json:"type"`
	CategoryID string        `json:"categoryId"`
	Category   *categoryRef  `json:"category"`
	Date       time.Time     `json:"date"`
	Note       string        `json:"note"`
	CreatedAt  time.Time     `json:"createdAt"`
}

func newBillView(b core.Bill) billView {
	return billView{
		ID:         b.ID,
		Amount:     b.Amount,
		Type:       b.Type,
		CategoryID: b.CategoryID,
		Category:   newCategoryRef(b.Category),
		Date:       b.Date,
		Note:       b.Note,
		CreatedAt:  b.CreatedAt,
	}
}

func newBillViews(bills []core.Bill) []billView {
	out := make([]billView, len(bills))
	for i, b := range bills {
		out[i] = newBillView(b)
	}
	return out
}

type paginationView struct {
	Current  int `json:"current"`
	PageSize int `json:"pageSize"`
	Total    int `json:"total"`
}

type statsView struct {
	TotalIncome  core.Money `json:"totalIncome"`
	TotalExpense core.Money `json:"totalExpense"`
}

type billListView struct {
	List       []billView     `json:"list"`
	Pagination paginationView `json:"pagination"`
	Stats      statsView      `json:"stats"`
}

func newBillListView(p core.BillPage) billListView {
	return billListView{
		List:       newBillViews(p.Bills),
		Pagination: paginationView{Current: p.Page.Page, PageSize: p.Page.Limit, Total: p.Total},
		Stats:      statsView{TotalIncome: p.Totals.Income, TotalExpense: p.Totals.Expense},
	}
}

type summaryView struct {
	Income  core.Money `json:"income"`
	Expense core.Money `json:"expense"`
	Balance core.Money `json:"balance"`
}

type userView struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	Token    string `json:"token,omitempty"`
}

type budgetView struct {
	ID          string       `json:"_id"`
	CategoryID  string       `json:"categoryId"`
	Category    *categoryRef `json:"category"`
	Amount      core.Money   `json:"amount"`
	Period      core.Period  `json:"period"`
	StartDate   time.Time    `json:"startDate"`
	EndDate     time.Time    `json:"endDate"`
	Description string       `json:"description"`
	CreatedAt   time.Time    `json:"createdAt"`
}

func newBudgetView(b core.Budget) budgetView {
	return budgetView{
		ID:          b.ID,
		CategoryID:  b.CategoryID,
		Category:    newCategoryRef(b.Category),
		Amount:      b.Amount,
		Period:      b.Period,
		StartDate:   b.StartDate,
		EndDate:     b.EndDate,
		Description: b.Description,
		CreatedAt:   b.CreatedAt,
	}
}

type budgetStatusView struct {
	Budget      budgetView `json:"budget"`
	WindowStart time.Time  `json:"windowStart"`
	WindowEnd   time.Time  `json:"windowEnd"`
	Active      bool       `json:"active"`
	Spent       core.Money `json:"spent"`
	Remaining   core.Money `json:"remaining"`
	Percentage  float64    `json:"percentage"`
}

func newBudgetStatusView(s core.BudgetStatus) budgetStatusView {
	return budgetStatusView{
		Budget:      newBudgetView(s.Budget),
		WindowStart: s.WindowStart,
		WindowEnd:   s.WindowEnd,
		Active:      s.Active,
		Spent:       s.Spent,
		Remaining:   s.Remaining,
		Percentage:  s.Percentage,
	}
}
