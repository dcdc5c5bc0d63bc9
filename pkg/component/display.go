package component

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/aretw0/ledgerchat/pkg/domain"
)

// PageSize is the number of rows or items per display page.
const PageSize = 5

// Format is the rendering hint attached to a View.
type Format string

const (
	FormatTable Format = "table"
	FormatList  Format = "list"
	FormatText  Format = "text"
)

// View is the success value of a Display.
type View struct {
	Format  Format     `json:"format"`
	Title   string     `json:"title"`
	Columns []string   `json:"columns,omitempty"`
	Rows    [][]string `json:"rows,omitempty"`
	Items   []string   `json:"items,omitempty"`
	Page    int        `json:"page"`
	Pages   int        `json:"pages"`
	Total   int        `json:"total"`
}

// LastPage reports whether the view shows the final page.
func (v View) LastPage() bool {
	return v.Page >= v.Pages
}

// dashboardData is the part of the upstream dashboard the displays read.
type dashboardData struct {
	Member struct {
		MemberID  string `mapstructure:"memberID"`
		Handle    string `mapstructure:"memberHandle"`
		FirstName string `mapstructure:"firstname"`
	} `mapstructure:"member"`
	Accounts      []accountData `mapstructure:"accounts"`
	PendingOffers []offerData   `mapstructure:"pendingOffers"`
	Ledger        []ledgerEntry `mapstructure:"ledger"`
}

type accountData struct {
	AccountID string             `mapstructure:"accountID"`
	Name      string             `mapstructure:"accountName"`
	Balances  map[string]float64 `mapstructure:"balances"`
}

type offerData struct {
	OfferID      string  `mapstructure:"offerID"`
	Amount       float64 `mapstructure:"amount"`
	Denomination string  `mapstructure:"denomination"`
	Counterparty string  `mapstructure:"counterpartyHandle"`
	Direction    string  `mapstructure:"direction"`
}

type ledgerEntry struct {
	Timestamp    string  `mapstructure:"timestamp"`
	Type         string  `mapstructure:"type"`
	Amount       float64 `mapstructure:"amount"`
	Denomination string  `mapstructure:"denomination"`
	Counterparty string  `mapstructure:"counterpartyHandle"`
}

var printer = message.NewPrinter(language.English)

func formatAmount(amount float64, denomination string) string {
	return printer.Sprintf("%.2f %s", amount, denomination)
}

// display carries what every Display shares.
type display struct {
	kind   Kind
	reader StateReader
}

func (d *display) Kind() Kind             { return d.kind }
func (d *display) Capability() Capability { return CapabilityDisplay }
func (d *display) Bind(r StateReader)     { d.reader = r }

func (d *display) ToVerifiedData(value any) map[string]any {
	page, ok := parsePage(value)
	if !ok {
		return nil
	}
	return map[string]any{"page": page}
}

// dashboard decodes the bound session's dashboard. It fails when there is no
// reader or the dashboard is not trusted yet.
func (d *display) dashboard() (*dashboardData, *Result) {
	if d.reader == nil {
		r := Failure("no session state available", "state", nil)
		return nil, &r
	}
	sess := d.reader.Snapshot()
	if sess == nil || !sess.Trusted() {
		r := Failure("account details are not available yet", domain.KeyDashboard, nil)
		return nil, &r
	}

	var data dashboardData
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &data,
	})
	if err == nil {
		err = decoder.Decode(sess.Dashboard)
	}
	if err != nil {
		r := Failure("account details could not be read", domain.KeyDashboard, map[string]any{"error": err.Error()})
		return nil, &r
	}
	return &data, nil
}

// render runs the shared page handling around build.
func (d *display) render(value any, build func(*dashboardData) (View, int, *Result)) Result {
	page, ok := parsePage(value)
	if !ok {
		return d.finish(Failure("page must be a positive number", "page", map[string]any{"input": fmt.Sprint(value)}))
	}

	data, fail := d.dashboard()
	if fail != nil {
		return d.finish(*fail)
	}

	view, total, fail := build(data)
	if fail != nil {
		return d.finish(*fail)
	}

	view.Total = total
	view.Pages = max(1, int(math.Ceil(float64(total)/PageSize)))
	if page < 1 || page > view.Pages {
		return d.finish(Failure("page out of range", "page", map[string]any{"page": page, "pages": view.Pages}))
	}
	view.Page = page
	lo, hi := pageBounds(page, total)
	if view.Rows != nil {
		view.Rows = view.Rows[lo:hi]
	}
	if view.Items != nil {
		view.Items = view.Items[lo:hi]
	}
	return d.finish(Success(view))
}

func (d *display) finish(r Result) Result {
	r.Component = d.kind.String()
	return r
}

func pageBounds(page, total int) (int, int) {
	lo := (page - 1) * PageSize
	hi := min(lo+PageSize, total)
	if lo > total {
		lo = total
	}
	return lo, hi
}

// parsePage accepts nil (first page), a positive integer or its text form.
func parsePage(value any) (int, bool) {
	switch v := value.(type) {
	case nil:
		return 1, true
	case int:
		return v, v > 0
	case float64:
		if v < 1 || v > math.MaxInt32 || v != math.Trunc(v) {
			return 0, false
		}
		return int(v), true
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 1, true
		}
		n, err := strconv.Atoi(s)
		return n, err == nil && n > 0
	}
	return 0, false
}

func typeName(v any) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprintf("%T", v)
}
