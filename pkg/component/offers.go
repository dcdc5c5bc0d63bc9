package component

import "fmt"

// OfferListDisplay lists pending offers.
type OfferListDisplay struct {
	display
}

// NewOfferListDisplay creates an OfferListDisplay.
func NewOfferListDisplay() *OfferListDisplay {
	return &OfferListDisplay{display{kind: KindOfferListDisplay}}
}

func (c *OfferListDisplay) Validate(value any) Result {
	return c.render(value, func(data *dashboardData) (View, int, *Result) {
		if len(data.PendingOffers) == 0 {
			r := Failure("no pending offers", "pendingOffers", nil)
			return View{}, 0, &r
		}

		items := make([]string, 0, len(data.PendingOffers))
		for _, o := range data.PendingOffers {
			prep := "from"
			if o.Direction == "outgoing" {
				prep = "to"
			}
			items = append(items, fmt.Sprintf("%s: %s %s @%s", o.OfferID, formatAmount(o.Amount, o.Denomination), prep, o.Counterparty))
		}
		return View{Format: FormatList, Title: "Pending offers", Items: items}, len(items), nil
	})
}
