package domain

import (
	"reflect"
)

// SessionDiff represents the changes between two snapshots of a session.
// It is serialized to JSON for webhook responses and debug logs.
type SessionDiff struct {
	ChannelID string `json:"channel_id"`

	// Step is set when the flow or step changed. An empty string means the
	// flow was cleared.
	Step *string `json:"step,omitempty"`

	// Data contains only changed, added or deleted flow data keys.
	// Deleted keys are present with a nil value.
	Data map[string]any `json:"data,omitempty"`

	// Sections lists top-level sections replaced wholesale (dashboard, action...).
	Sections []string `json:"sections,omitempty"`
}

// Diff calculates the difference between oldSession and newSession.
// If oldSession is nil, the diff describes the entire newSession.
func Diff(oldSession, newSession *Session) *SessionDiff {
	if newSession == nil {
		return nil
	}
	if oldSession == nil {
		oldSession = &Session{}
	}

	diff := &SessionDiff{ChannelID: newSession.ChannelID}

	if stepKey(oldSession) != stepKey(newSession) {
		step := ""
		if newSession.FlowData != nil {
			step = newSession.FlowData.Step
		}
		diff.Step = &step
	}

	diff.Data = diffData(flowData(oldSession), flowData(newSession))
	diff.Sections = diffSections(oldSession, newSession)

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *SessionDiff) IsEmpty() bool {
	return d.Step == nil && len(d.Data) == 0 && len(d.Sections) == 0
}

func stepKey(s *Session) string {
	if s.FlowData == nil {
		return ""
	}
	return s.FlowData.ID + "/" + s.FlowData.Step
}

func flowData(s *Session) map[string]any {
	if s.FlowData == nil {
		return nil
	}
	return s.FlowData.Data
}

func diffData(old, new map[string]any) map[string]any {
	delta := make(map[string]any)

	for k, newVal := range new {
		oldVal, exists := old[k]
		if !exists || !reflect.DeepEqual(oldVal, newVal) {
			delta[k] = newVal
		}
	}
	for k := range old {
		if _, exists := new[k]; !exists {
			delta[k] = nil
		}
	}

	if len(delta) == 0 {
		return nil
	}
	return delta
}

func diffSections(old, new *Session) []string {
	var sections []string
	if !reflect.DeepEqual(old.Profile, new.Profile) {
		sections = append(sections, KeyProfile)
	}
	if !reflect.DeepEqual(old.CurrentAccount, new.CurrentAccount) {
		sections = append(sections, KeyCurrentAccount)
	}
	if !reflect.DeepEqual(old.Dashboard, new.Dashboard) {
		sections = append(sections, KeyDashboard)
	}
	if !reflect.DeepEqual(old.Action, new.Action) {
		sections = append(sections, KeyAction)
	}
	if old.JWTToken != new.JWTToken || old.Authenticated != new.Authenticated {
		sections = append(sections, KeyJWTToken)
	}
	return sections
}
