package component

import (
	"fmt"
	"strings"
)

// Kind identifies a component variant.
type Kind int

const (
	KindUnknown Kind = iota
	KindAmountInput
	KindHandleInput
	KindConfirmInput
	KindOfferSelectInput
	KindDashboardDisplay
	KindOfferListDisplay
	KindLedgerDisplay
)

var kindNames = map[Kind]string{
	KindAmountInput:      "AmountInput",
	KindHandleInput:      "HandleInput",
	KindConfirmInput:     "ConfirmInput",
	KindOfferSelectInput: "OfferSelectInput",
	KindDashboardDisplay: "DashboardDisplay",
	KindOfferListDisplay: "OfferListDisplay",
	KindLedgerDisplay:    "LedgerDisplay",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// Capability reports whether k consumes input or renders state.
func (k Kind) Capability() Capability {
	switch k {
	case KindDashboardDisplay, KindOfferListDisplay, KindLedgerDisplay:
		return CapabilityDisplay
	case KindUnknown:
		return CapabilityNone
	}
	return CapabilityInput
}

// MarshalText renders the kind name, so flow tables serialize readably.
func (k Kind) MarshalText() ([]byte, error) {
	if k == KindUnknown {
		return nil, fmt.Errorf("component: cannot marshal unknown kind")
	}
	return []byte(k.String()), nil
}

// UnmarshalText resolves a kind name through ParseKind.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseKind resolves a component name. Matching ignores case.
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return k, nil
		}
	}
	return KindUnknown, fmt.Errorf("unknown component %q", name)
}

// Kinds lists every known kind in declaration order.
func Kinds() []Kind {
	return []Kind{
		KindAmountInput, KindHandleInput, KindConfirmInput, KindOfferSelectInput,
		KindDashboardDisplay, KindOfferListDisplay, KindLedgerDisplay,
	}
}

// Capability is the Input / Display marker.
type Capability int

const (
	CapabilityNone Capability = iota
	CapabilityInput
	CapabilityDisplay
)

func (c Capability) String() string {
	switch c {
	case CapabilityInput:
		return "input"
	case CapabilityDisplay:
		return "display"
	}
	return "none"
}

// New returns a fresh component for k.
func New(k Kind) (Component, error) {
	switch k {
	case KindAmountInput:
		return NewAmountInput(), nil
	case KindHandleInput:
		return NewHandleInput(), nil
	case KindConfirmInput:
		return NewConfirmInput(), nil
	case KindOfferSelectInput:
		return NewOfferSelectInput(), nil
	case KindDashboardDisplay:
		return NewDashboardDisplay(), nil
	case KindOfferListDisplay:
		return NewOfferListDisplay(), nil
	case KindLedgerDisplay:
		return NewLedgerDisplay(), nil
	}
	return nil, fmt.Errorf("no component for kind %d", int(k))
}
