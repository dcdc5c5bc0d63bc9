package component_test

import (
	"fmt"
	"math"
	"testing"

	"github.com/aretw0/ledgerchat/pkg/component"
	"github.com/aretw0/ledgerchat/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dashboardSession(offers int) *domain.Session {
	pending := make([]any, 0, offers)
	ledger := make([]any, 0, offers)
	for i := 0; i < offers; i++ {
		pending = append(pending, map[string]any{
			"offerID":            fmt.Sprintf("off-%d", i+1),
			"amount":             1234.5,
			"denomination":       "USD",
			"counterpartyHandle": "bob",
			"direction":          "outgoing",
		})
		ledger = append(ledger, map[string]any{
			"timestamp":          "2026-03-01T10:00:00Z",
			"type":               "transfer",
			"amount":             "10",
			"denomination":       "CAD",
			"counterpartyHandle": "carol",
		})
	}

	s := domain.NewSession("c1")
	s.Dashboard = map[string]any{
		"member": map[string]any{"memberID": "m-1", "memberHandle": "alice"},
		"accounts": []any{
			map[string]any{
				"accountID":   "acc-1",
				"accountName": "Personal",
				"balances":    map[string]any{"USD": 1500.0, "CAD": 2.5},
			},
		},
		"pendingOffers": pending,
		"ledger":        ledger,
	}
	return s
}

func TestDashboardDisplay(t *testing.T) {
	sess := dashboardSession(0)
	c := component.NewDashboardDisplay()
	c.Bind(component.SessionReader{Session: sess})

	res := c.Validate(nil)
	require.True(t, res.Valid, res.Message)
	view := res.Value.(component.View)
	assert.Equal(t, component.FormatTable, view.Format)
	assert.Equal(t, "Account summary for @alice", view.Title)
	assert.Equal(t, [][]string{
		{"Personal", "CAD", "2.50 CAD"},
		{"Personal", "USD", "1,500.00 USD"},
	}, view.Rows)
	assert.Equal(t, 1, view.Pages)
	assert.True(t, view.LastPage())
	assert.Equal(t, map[string]any{"page": 1}, c.ToVerifiedData(nil))
}

func TestOfferListDisplay_Paginates(t *testing.T) {
	c := component.NewOfferListDisplay()
	c.Bind(component.SessionReader{Session: dashboardSession(7)})

	res := c.Validate(nil)
	require.True(t, res.Valid)
	view := res.Value.(component.View)
	assert.Equal(t, component.FormatList, view.Format)
	assert.Len(t, view.Items, component.PageSize)
	assert.Equal(t, 2, view.Pages)
	assert.Equal(t, 7, view.Total)
	assert.Equal(t, "off-1: 1,234.50 USD to @bob", view.Items[0])
	assert.False(t, view.LastPage())

	res = c.Validate("2")
	require.True(t, res.Valid)
	view = res.Value.(component.View)
	assert.Len(t, view.Items, 2)
	assert.True(t, view.LastPage())

	res = c.Validate(3)
	require.False(t, res.Valid)
	assert.Equal(t, "page out of range", res.Message)

	res = c.Validate("first")
	require.False(t, res.Valid)
	assert.Equal(t, "page", res.Field)
}

func TestOfferListDisplay_RejectsUnusablePageNumbers(t *testing.T) {
	c := component.NewOfferListDisplay()
	c.Bind(component.SessionReader{Session: dashboardSession(7)})

	for _, page := range []any{float64(1e19), -0.0, float64(-3), 1.5, math.Inf(1), math.NaN(), -2, "-1"} {
		var res component.Result
		require.NotPanics(t, func() { res = c.Validate(page) }, "page %v", page)
		assert.False(t, res.Valid, "page %v", page)
		assert.Equal(t, "page", res.Field, "page %v", page)
	}

	res := c.Validate(float64(2))
	require.True(t, res.Valid)
	assert.Equal(t, 2, res.Value.(component.View).Page)
}

func TestLedgerDisplay(t *testing.T) {
	c := component.NewLedgerDisplay()
	c.Bind(component.SessionReader{Session: dashboardSession(1)})

	res := c.Validate(nil)
	require.True(t, res.Valid, res.Message)
	view := res.Value.(component.View)
	assert.Equal(t, []string{"2026-03-01", "transfer", "10.00 CAD", "@carol"}, view.Rows[0])
}

func TestDisplay_Failures(t *testing.T) {
	t.Run("no reader", func(t *testing.T) {
		res := component.NewDashboardDisplay().Validate(nil)
		require.False(t, res.Valid)
		assert.Equal(t, "state", res.Field)
	})

	t.Run("untrusted dashboard", func(t *testing.T) {
		sess := dashboardSession(1)
		sess.Dashboard["member"] = map[string]any{"memberID": ""}
		c := component.NewLedgerDisplay()
		c.Bind(component.SessionReader{Session: sess})
		res := c.Validate(nil)
		require.False(t, res.Valid)
		assert.Equal(t, domain.KeyDashboard, res.Field)
	})

	t.Run("no data for context", func(t *testing.T) {
		c := component.NewOfferListDisplay()
		c.Bind(component.SessionReader{Session: dashboardSession(0)})
		res := c.Validate(nil)
		require.False(t, res.Valid)
		assert.Equal(t, "no pending offers", res.Message)
		assert.Equal(t, "OfferListDisplay", res.Component)
	})
}

func TestDisplay_DoesNotMutateSession(t *testing.T) {
	sess := dashboardSession(3)
	before, err := sess.ToMap()
	require.NoError(t, err)

	c := component.NewOfferListDisplay()
	c.Bind(component.SessionReader{Session: sess})
	c.Validate(nil)

	after, err := sess.ToMap()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}
