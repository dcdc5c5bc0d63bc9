package component

import "strings"

var (
	yesWords = map[string]bool{"yes": true, "y": true, "confirm": true, "ok": true, "1": true}
	noWords  = map[string]bool{"no": true, "n": true, "cancel": true, "2": true}
)

// ConfirmInput accepts a yes or no answer. A "no" is a valid answer, the
// engine treats it as cancellation.
type ConfirmInput struct {
	input
}

// NewConfirmInput creates a ConfirmInput.
func NewConfirmInput() *ConfirmInput {
	return &ConfirmInput{input{kind: KindConfirmInput}}
}

func (c *ConfirmInput) Validate(value any) Result {
	return c.run(value, checkConfirm)
}

func (c *ConfirmInput) ToVerifiedData(value any) map[string]any {
	res := checkConfirm(value)
	if !res.Valid {
		return nil
	}
	return map[string]any{"confirmed": res.Value}
}

func checkConfirm(value any) Result {
	switch v := value.(type) {
	case bool:
		return Success(v)
	case string:
		word := strings.ToLower(strings.TrimSpace(v))
		switch {
		case word == "":
			return Failure("please answer yes or no", "confirmed", nil)
		case yesWords[word]:
			return Success(true)
		case noWords[word]:
			return Success(false)
		}
		return Failure("please answer yes or no", "confirmed", map[string]any{"input": word})
	}
	return Failure("confirmation must be text", "confirmed", map[string]any{"type": typeName(value)})
}
