package component

import (
	"regexp"
	"strings"
)

// OfferIDMaxLength bounds offer ids.
const OfferIDMaxLength = 64

var offerIDPattern = regexp.MustCompile(`^[A-Za-z0-9-]+$`)

// OfferSelectInput accepts the id of a pending offer.
type OfferSelectInput struct {
	input
}

// NewOfferSelectInput creates an OfferSelectInput.
func NewOfferSelectInput() *OfferSelectInput {
	return &OfferSelectInput{input{kind: KindOfferSelectInput}}
}

func (c *OfferSelectInput) Validate(value any) Result {
	return c.run(value, checkOfferID)
}

func (c *OfferSelectInput) ToVerifiedData(value any) map[string]any {
	res := checkOfferID(value)
	if !res.Valid {
		return nil
	}
	return map[string]any{"offer_id": res.Value}
}

func checkOfferID(value any) Result {
	s, ok := value.(string)
	if !ok {
		return Failure("offer id must be text", "offer_id", map[string]any{"type": typeName(value)})
	}
	id := strings.TrimSpace(s)
	if id == "" {
		return Failure("offer id is required", "offer_id", nil)
	}
	if len(id) > OfferIDMaxLength {
		return Failure("offer id is too long", "offer_id", map[string]any{
			"max_length":    OfferIDMaxLength,
			"actual_length": len(id),
		})
	}
	if !offerIDPattern.MatchString(id) {
		return Failure("offer id can only contain letters, numbers and dashes", "offer_id", map[string]any{
			"pattern": offerIDPattern.String(),
		})
	}
	return Success(id)
}
