package ports

import (
	"context"
)

// Submission is a completed flow handed to the upstream ledger service.
type Submission struct {
	FlowID         string         `json:"flow_id"`
	ChannelID      string         `json:"channel_id"`
	MemberID       string         `json:"member_id,omitempty"`
	AccountID      string         `json:"account_id,omitempty"`
	Data           map[string]any `json:"data"`
	Token          string         `json:"-"`
	IdempotencyKey string         `json:"-"`
}

// Upstream is the external ledger collaborator. Implementations return the
// decoded response body as is. A well-formed body is shaped
// {data: {dashboard: ..., action: ...}}; the merger rejects anything else.
type Upstream interface {
	Submit(ctx context.Context, sub Submission) (any, error)
}
