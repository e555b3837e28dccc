// Package channel holds the per-channel deployment state: one Record per
// Slack channel, mapping environment names to the last deployment seen there.
package channel

import "time"

// Slot is the last known deployment of one environment.
type Slot struct {
	Branch     string    `json:"branch"`
	Deployer   string    `json:"deployer,omitempty"`
	DeployedAt time.Time `json:"deployed_at,omitzero"`
	Commit     string    `json:"commit,omitempty"`
}

// IsEmpty reports whether nothing was ever deployed to the slot.
func (s Slot) IsEmpty() bool {
	return s.Branch == "" && s.Deployer == "" && s.DeployedAt.IsZero() && s.Commit == ""
}

// Record is the persisted state for one channel.
type Record struct {
	Channel   string          `json:"channel"`
	Slots     map[string]Slot `json:"slots"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewRecord creates a record with an empty slot for each environment.
func NewRecord(channelID string, environments []string) *Record {
	r := &Record{
		Channel: channelID,
		Slots:   make(map[string]Slot, len(environments)),
	}
	r.EnsureSlots(environments)
	return r
}

// EnsureSlots adds empty slots for environments the record does not track
// yet, so adding an environment to the configuration needs no migration.
func (r *Record) EnsureSlots(environments []string) {
	if r.Slots == nil {
		r.Slots = make(map[string]Slot, len(environments))
	}
	for _, env := range environments {
		if _, ok := r.Slots[env]; !ok {
			r.Slots[env] = Slot{}
		}
	}
}

// Slot returns the slot for env and whether the record tracks it.
func (r *Record) Slot(env string) (Slot, bool) {
	s, ok := r.Slots[env]
	return s, ok
}

// Update overwrites the slot for env. It returns false, leaving the record
// untouched, when env is not tracked.
func (r *Record) Update(env string, slot Slot) bool {
	if _, ok := r.Slots[env]; !ok {
		return false
	}
	r.Slots[env] = slot
	return true
}

// Clear empties the slot for env.
func (r *Record) Clear(env string) bool {
	return r.Update(env, Slot{})
}

// Retain drops slots for environments outside the given list. Stored slots
// of environments removed from the configuration stay in the database but
// are never loaded into the working record.
func (r *Record) Retain(environments []string) {
	keep := make(map[string]bool, len(environments))
	for _, env := range environments {
		keep[env] = true
	}
	for env := range r.Slots {
		if !keep[env] {
			delete(r.Slots, env)
		}
	}
}
