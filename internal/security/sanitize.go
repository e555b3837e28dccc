package security

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// Slack conversation IDs: public (C), private (G) and direct (D) channels
	channelPattern     = regexp.MustCompile(`^[CGD][A-Z0-9]{2,}$`)
	environmentPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)
	branchPattern      = regexp.MustCompile(`^[a-zA-Z0-9/_.+-]+$`)
)

// MaxEnvironmentNameLength bounds environment names stored as slot keys.
const MaxEnvironmentNameLength = 64

// ValidateChannelID ensures a Slack channel identifier is well formed.
func ValidateChannelID(id string) error {
	if id == "" {
		return fmt.Errorf("channel ID cannot be empty")
	}
	if !channelPattern.MatchString(id) {
		return fmt.Errorf("channel ID %q is not a Slack conversation ID (expected e.g. C0123ABCD)", id)
	}
	return nil
}

// ValidateEnvironmentName ensures an environment name is safe to use as a
// slot key, a database value and a mrkdwn label.
func ValidateEnvironmentName(name string) error {
	if name == "" {
		return fmt.Errorf("environment name cannot be empty")
	}
	if len(name) > MaxEnvironmentNameLength {
		return fmt.Errorf("environment name too long (maximum %d characters)", MaxEnvironmentNameLength)
	}
	if !environmentPattern.MatchString(name) {
		return fmt.Errorf("environment name contains invalid characters (only a-z, A-Z, 0-9, _, ., - allowed)")
	}
	return nil
}

// ValidateBranchPrefix ensures a mainline prefix looks like the start of a
// git branch name.
func ValidateBranchPrefix(prefix string) error {
	if prefix == "" {
		return fmt.Errorf("branch prefix cannot be empty")
	}
	if strings.HasPrefix(prefix, "-") {
		return fmt.Errorf("branch prefix cannot start with '-'")
	}
	if !branchPattern.MatchString(prefix) {
		return fmt.Errorf("branch prefix contains invalid characters")
	}
	return nil
}
