package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Validation is the diagnostic envelope the state store attaches to every
// session it reads or writes. It is not authoritative application data.
type Validation struct {
	InProgress  bool      `json:"in_progress"`
	Attempts    int       `json:"attempts"`
	LastAttempt time.Time `json:"last_attempt"`
	Error       *string   `json:"error"`
}

// Failed reports whether the recorded attempt ended in an error.
func (v Validation) Failed() bool {
	return v.Error != nil
}

// FlowData tracks the flow in progress for a channel.
type FlowData struct {
	ID   string         `json:"id"`
	Step string         `json:"step"`
	Data map[string]any `json:"data"`
	// RequestID is fixed when the flow starts and sent upstream as the
	// idempotency key, so a redelivered final message submits only once.
	RequestID string `json:"request_id,omitempty"`
}

// Action is the last operation outcome reported by the upstream service.
type Action struct {
	Type      string         `json:"type"`
	Timestamp string         `json:"timestamp"`
	Actor     string         `json:"actor"`
	Details   map[string]any `json:"details"`
	Message   string         `json:"message,omitempty"`
}

// Session is the full persisted state for one channel identifier.
type Session struct {
	ChannelID      string         `json:"channel_id"`
	Profile        map[string]any `json:"profile,omitempty"`
	CurrentAccount map[string]any `json:"current_account,omitempty"`
	Dashboard      map[string]any `json:"dashboard,omitempty"`
	Action         *Action        `json:"action,omitempty"`
	FlowData       *FlowData      `json:"flow_data,omitempty"`
	JWTToken       string         `json:"jwt_token,omitempty"`
	Authenticated  bool           `json:"authenticated,omitempty"`

	// Validation is filled in by the state store on every read and write.
	Validation *Validation `json:"_validation,omitempty"`
}

// NewSession creates the empty shell used for a channel seen for the first time.
func NewSession(channelID string) *Session {
	return &Session{ChannelID: channelID}
}

// InFlow reports whether a flow is in progress.
func (s *Session) InFlow() bool {
	return s.FlowData != nil && s.FlowData.ID != ""
}

// MemberID returns dashboard.member.memberID, or "" when absent.
func (s *Session) MemberID() string {
	member, ok := s.Dashboard["member"].(map[string]any)
	if !ok {
		return ""
	}
	id, _ := member["memberID"].(string)
	return id
}

// Trusted reports whether the dashboard snapshot can be relied upon.
func (s *Session) Trusted() bool {
	return s.MemberID() != ""
}

// ClearFlow removes flow bookkeeping only.
func (s *Session) ClearFlow() {
	s.FlowData = nil
}

// ClearAll removes everything except the channel identity.
func (s *Session) ClearAll() {
	*s = Session{ChannelID: s.ChannelID}
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	doc, err := s.ToMap()
	if err != nil {
		// Sessions only hold JSON values, marshaling cannot fail for them.
		cp := *s
		return &cp
	}
	cp, err := SessionFromMap(doc)
	if err != nil {
		cp := *s
		return &cp
	}
	return cp
}

// ToMap renders the session as the flat JSON document stored in the cache.
func (s *Session) ToMap() (map[string]any, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode session document: %w", err)
	}
	return doc, nil
}

// SessionFromMap decodes a session document produced by ToMap (or received
// from any JSON source) into a Session.
func SessionFromMap(doc map[string]any) (*Session, error) {
	var s Session
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:    "json",
		Result:     &s,
		DecodeHook: mapstructure.StringToTimeHookFunc(time.RFC3339),
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(doc); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &s, nil
}
