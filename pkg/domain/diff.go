package domain

// SessionDiff represents the changes between two session snapshots.
// It is serialized to JSON for partial updates on a client.
type SessionDiff struct {
	// SessionID is always present to identify the target.
	SessionID string `json:"session_id"`

	CurrentNodeID *string `json:"current_node_id,omitempty"`
	Phase         *Phase  `json:"phase,omitempty"`

	// FlagsAdded lists flags set since the old snapshot. Flags are only
	// removed by a restart, which is reported through Reset.
	FlagsAdded []string `json:"flags_added,omitempty"`

	History *HistoryDelta `json:"history,omitempty"`

	// Reset is true when the new snapshot is not a continuation of the old
	// one (history shrank). Clients should replace their state.
	Reset bool `json:"reset,omitempty"`
}

// HistoryDelta holds choice ids appended to the history.
type HistoryDelta struct {
	Appended []string `json:"appended"`
}

// Diff calculates the difference between oldSession and newSession.
// If oldSession is nil, the diff represents the entire newSession.
// It returns nil when nothing changed.
func Diff(oldSession, newSession *Session) *SessionDiff {
	if newSession == nil {
		return nil
	}

	diff := &SessionDiff{SessionID: newSession.ID}

	if oldSession == nil || oldSession.CurrentNodeID != newSession.CurrentNodeID {
		diff.CurrentNodeID = &newSession.CurrentNodeID
	}
	if oldSession == nil || oldSession.Phase != newSession.Phase {
		diff.Phase = &newSession.Phase
	}

	if oldSession != nil && len(newSession.History) < len(oldSession.History) {
		diff.Reset = true
		oldSession = nil
	}

	diff.FlagsAdded = diffFlags(oldSession, newSession)
	diff.History = diffHistory(oldSession, newSession)

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func diffFlags(old, new *Session) []string {
	var added []string
	for _, f := range new.ActiveFlags() {
		if old == nil || !old.Flags[f] {
			added = append(added, f)
		}
	}
	return added
}

// diffHistory assumes append-only history between two snapshots of one run.
func diffHistory(old, new *Session) *HistoryDelta {
	if len(new.History) == 0 {
		return nil
	}
	if old == nil {
		return &HistoryDelta{Appended: cloneSlice(new.History)}
	}
	if len(new.History) > len(old.History) {
		return &HistoryDelta{Appended: cloneSlice(new.History[len(old.History):])}
	}
	return nil
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *SessionDiff) IsEmpty() bool {
	return d.CurrentNodeID == nil &&
		d.Phase == nil &&
		len(d.FlagsAdded) == 0 &&
		d.History == nil &&
		!d.Reset
}
