package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/aretw0/ledgerchat/pkg/ports"
)

// Mask replaces redacted values.
const Mask = "***"

// DefaultPIIPatterns match the session fields that must not be shown to operators.
var DefaultPIIPatterns = []string{`(?i)jwt`, `(?i)token`, `(?i)password`, `(?i)phone`, `(?i)email`}

type piiMiddleware struct {
	next     ports.Cache
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a read-side redaction view: values whose keys match
// one of the patterns are masked on Get. Writes pass through untouched.
func NewPIIMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid pii pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.Cache) ports.Cache {
		return &piiMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *piiMiddleware) Get(ctx context.Context, key string) ([]byte, error) {
	raw, err := m.next.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode value for redaction: %w", err)
	}
	return json.Marshal(maskValue(doc, m.patterns))
}

func (m *piiMiddleware) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return m.next.Set(ctx, key, value, ttl)
}

func (m *piiMiddleware) Delete(ctx context.Context, key string) error {
	return m.next.Delete(ctx, key)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

// maskValue walks freshly decoded JSON, so it can mask in place.
func maskValue(v any, patterns []*regexp.Regexp) any {
	switch t := v.(type) {
	case map[string]any:
		for k, sub := range t {
			if matchesAny(k, patterns) {
				t[k] = Mask
				continue
			}
			t[k] = maskValue(sub, patterns)
		}
	case []any:
		for i, sub := range t {
			t[i] = maskValue(sub, patterns)
		}
	}
	return v
}

func matchesAny(key string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}
