package component

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/currency"
)

// DefaultDenomination is used when the user types a bare number.
const DefaultDenomination = "USD"

// Denominations the ledger accepts. CXX is the ledger's own unit and has no
// ISO code.
var Denominations = []string{"USD", "CAD", "XAU", "ZWG", "CXX"}

// plainDecimal is the only number notation accepted. ParseFloat alone would
// also take exponents, hex floats and "Inf".
var plainDecimal = regexp.MustCompile(`^-?(\d+(\.\d*)?|\.\d+)$`)

// Amount is the value accepted by AmountInput.
type Amount struct {
	Value    float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// AmountInput accepts "100 USD", "USD 100" or a bare "100".
type AmountInput struct {
	input
}

// NewAmountInput creates an AmountInput.
func NewAmountInput() *AmountInput {
	return &AmountInput{input{kind: KindAmountInput}}
}

func (c *AmountInput) Validate(value any) Result {
	return c.run(value, checkAmount)
}

func (c *AmountInput) ToVerifiedData(value any) map[string]any {
	if a, ok := value.(Amount); ok {
		return map[string]any{"amount": a.Value, "currency": a.Currency}
	}
	res := checkAmount(value)
	if !res.Valid {
		return nil
	}
	return c.ToVerifiedData(res.Value)
}

func checkAmount(value any) Result {
	var raw string
	switch v := value.(type) {
	case string:
		raw = strings.TrimSpace(v)
	case float64:
		raw = strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		raw = strconv.Itoa(v)
	case Amount:
		raw = strconv.FormatFloat(v.Value, 'f', -1, 64) + " " + v.Currency
	default:
		return Failure("amount must be text or a number", "amount", map[string]any{"type": typeName(value)})
	}
	if raw == "" {
		return Failure("amount is required", "amount", nil)
	}

	number, code, ok := splitAmount(raw)
	if !ok {
		return Failure("enter an amount like 100 USD", "amount", map[string]any{"input": raw})
	}

	if !plainDecimal.MatchString(number) {
		return Failure("amount must be a number", "amount", map[string]any{"input": number})
	}
	amount, err := strconv.ParseFloat(number, 64)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return Failure("amount must be a number", "amount", map[string]any{"input": number})
	}
	if amount <= 0 {
		return Failure("amount must be greater than zero", "amount", map[string]any{"min_exclusive": 0, "actual": amount})
	}
	if decimals(number) > 2 {
		return Failure("amount can have at most two decimal places", "amount", map[string]any{"max_decimals": 2, "actual_decimals": decimals(number)})
	}

	if code == "" {
		code = DefaultDenomination
	}
	code = strings.ToUpper(code)
	if !supported(code) {
		details := map[string]any{"supported": Denominations, "actual": code}
		if _, err := currency.ParseISO(code); err != nil {
			return Failure("not a currency code", "currency", details)
		}
		return Failure("denomination not supported", "currency", details)
	}

	return Success(Amount{Value: amount, Currency: code})
}

// splitAmount separates the number from an optional denomination on either side.
func splitAmount(raw string) (number, code string, ok bool) {
	fields := strings.Fields(strings.ReplaceAll(raw, ",", ""))
	switch len(fields) {
	case 1:
		return fields[0], "", true
	case 2:
		if isNumeric(fields[0]) {
			return fields[0], fields[1], true
		}
		return fields[1], fields[0], true
	}
	return "", "", false
}

func isNumeric(s string) bool {
	return plainDecimal.MatchString(s)
}

func decimals(number string) int {
	if i := strings.IndexByte(number, '.'); i >= 0 {
		return len(number) - i - 1
	}
	return 0
}

func supported(code string) bool {
	for _, d := range Denominations {
		if d == code {
			return true
		}
	}
	return false
}
