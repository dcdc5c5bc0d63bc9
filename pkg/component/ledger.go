package component

import "time"

// LedgerDisplay renders recent ledger entries, newest first as sent upstream.
type LedgerDisplay struct {
	display
}

// NewLedgerDisplay creates a LedgerDisplay.
func NewLedgerDisplay() *LedgerDisplay {
	return &LedgerDisplay{display{kind: KindLedgerDisplay}}
}

func (c *LedgerDisplay) Validate(value any) Result {
	return c.render(value, func(data *dashboardData) (View, int, *Result) {
		if len(data.Ledger) == 0 {
			r := Failure("no ledger entries", "ledger", nil)
			return View{}, 0, &r
		}

		rows := make([][]string, 0, len(data.Ledger))
		for _, e := range data.Ledger {
			date := e.Timestamp
			if ts, err := time.Parse(time.RFC3339, e.Timestamp); err == nil {
				date = ts.Format("2006-01-02")
			}
			counterparty := ""
			if e.Counterparty != "" {
				counterparty = "@" + e.Counterparty
			}
			rows = append(rows, []string{date, e.Type, formatAmount(e.Amount, e.Denomination), counterparty})
		}
		return View{
			Format:  FormatTable,
			Title:   "Ledger",
			Columns: []string{"Date", "Type", "Amount", "Counterparty"},
			Rows:    rows,
		}, len(rows), nil
	})
}
