// Package status models the project status-tracking registry carried inside
// the latest status_tracking artifact. The registry is a flat map of elements
// forming an implicit tree: system_feature → system_requirement →
// architecture_requirement / function. Only the two innermost types are
// schedulable leaves.
package status

import (
	"encoding/json"
	"fmt"
)

// ElementStatus is the closed three-state progress enumeration.
// The wire format uses the literal Chinese strings of the tracking registry;
// translation happens only at (de)serialization time.
//
// There is no "blocked" state: blocked work is indistinguishable from
// not-started in the queue. 上游未定义第四状态，这里不自行发明。
type ElementStatus int

const (
	// StatusUnknown is the zero value for unrecognized or absent wire strings.
	StatusUnknown ElementStatus = iota
	StatusNotStarted
	StatusInProgress
	StatusDone
)

// Wire representations of ElementStatus.
const (
	wireNotStarted = "未开始"
	wireInProgress = "进行中"
	wireDone       = "已完成"
)

// String returns the wire representation.
func (s ElementStatus) String() string {
	switch s {
	case StatusNotStarted:
		return wireNotStarted
	case StatusInProgress:
		return wireInProgress
	case StatusDone:
		return wireDone
	default:
		return ""
	}
}

// MarshalJSON encodes the status as its wire string.
func (s ElementStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a wire string. Unrecognized strings map to
// StatusUnknown rather than failing, so a registry written by a newer
// producer still decodes.
func (s *ElementStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("element status: %w", err)
	}
	*s = ParseStatus(raw)
	return nil
}

// ParseStatus converts a wire string to an ElementStatus.
func ParseStatus(raw string) ElementStatus {
	switch raw {
	case wireNotStarted:
		return StatusNotStarted
	case wireInProgress:
		return StatusInProgress
	case wireDone:
		return StatusDone
	default:
		return StatusUnknown
	}
}
