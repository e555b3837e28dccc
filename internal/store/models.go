package store

import "time"

// Outcomes recorded for each deployment notification.
const (
	OutcomePosted     = "posted"     // slot updated, summary posted
	OutcomeIgnored    = "ignored"    // environment not tracked, summary posted
	OutcomeSuppressed = "suppressed" // suppressed environment, nothing posted
)

// DeploymentRecord represents a single deployment notification in the history
type DeploymentRecord struct {
	ID          int64     `json:"id"`
	Channel     string    `json:"channel"`
	Environment string    `json:"environment"`
	Branch      string    `json:"branch"`
	Deployer    string    `json:"deployer,omitempty"`
	Title       string    `json:"title,omitempty"`
	Outcome     string    `json:"outcome"`
	ReceivedAt  time.Time `json:"received_at"`
}
