package component

import (
	"regexp"
	"strings"
)

// Handle length bounds.
const (
	HandleMinLength = 3
	HandleMaxLength = 30
)

var handlePattern = regexp.MustCompile(`^[a-z0-9._]+$`)

// HandleInput accepts a counterparty handle. A leading "@" is dropped and the
// handle is lower-cased. Whether the handle exists is for the upstream to say.
type HandleInput struct {
	input
}

// NewHandleInput creates a HandleInput.
func NewHandleInput() *HandleInput {
	return &HandleInput{input{kind: KindHandleInput}}
}

func (c *HandleInput) Validate(value any) Result {
	return c.run(value, checkHandle)
}

func (c *HandleInput) ToVerifiedData(value any) map[string]any {
	res := checkHandle(value)
	if !res.Valid {
		return nil
	}
	return map[string]any{"handle": res.Value}
}

func checkHandle(value any) Result {
	s, ok := value.(string)
	if !ok {
		return Failure("handle must be text", "handle", map[string]any{"type": typeName(value)})
	}
	handle := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "@"))
	if handle == "" {
		return Failure("handle is required", "handle", nil)
	}

	n := len([]rune(handle))
	if n < HandleMinLength || n > HandleMaxLength {
		return Failure("handle must be between 3 and 30 characters", "handle", map[string]any{
			"min_length":    HandleMinLength,
			"max_length":    HandleMaxLength,
			"actual_length": n,
		})
	}
	if !handlePattern.MatchString(handle) {
		return Failure("handle can only contain letters, numbers, dots and underscores", "handle", map[string]any{
			"pattern": handlePattern.String(),
		})
	}
	return Success(handle)
}
