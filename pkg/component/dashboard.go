package component

import "sort"

// DashboardDisplay renders the member's balances per account.
type DashboardDisplay struct {
	display
}

// NewDashboardDisplay creates a DashboardDisplay.
func NewDashboardDisplay() *DashboardDisplay {
	return &DashboardDisplay{display{kind: KindDashboardDisplay}}
}

func (c *DashboardDisplay) Validate(value any) Result {
	return c.render(value, func(data *dashboardData) (View, int, *Result) {
		if len(data.Accounts) == 0 {
			r := Failure("no accounts to show", "accounts", nil)
			return View{}, 0, &r
		}

		rows := [][]string{}
		for _, acc := range data.Accounts {
			name := acc.Name
			if name == "" {
				name = acc.AccountID
			}
			codes := make([]string, 0, len(acc.Balances))
			for code := range acc.Balances {
				codes = append(codes, code)
			}
			sort.Strings(codes)
			for _, code := range codes {
				rows = append(rows, []string{name, code, formatAmount(acc.Balances[code], code)})
			}
		}

		title := "Account summary"
		if data.Member.Handle != "" {
			title += " for @" + data.Member.Handle
		}
		return View{
			Format:  FormatTable,
			Title:   title,
			Columns: []string{"Account", "Denomination", "Balance"},
			Rows:    rows,
		}, len(rows), nil
	})
}
