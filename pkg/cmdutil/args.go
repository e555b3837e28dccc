// Package cmdutil tokenises chat command text.
package cmdutil

import (
	"fmt"
	"strings"

	"github.com/kballard/go-shellquote"
)

// ParseArgs splits shell-quoted command text into arguments.
//
// Example:
//
//	`history "team mobile" 3` -> ["history", "team mobile", "3"]
func ParseArgs(text string) ([]string, error) {
	// Slack sends typographic quotes when smart quotes are enabled
	text = smartQuotes.Replace(text)

	parts, err := shellquote.Split(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse command: %w", err)
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty command")
	}
	return parts, nil
}

var smartQuotes = strings.NewReplacer("“", `"`, "”", `"`, "‘", "'", "’", "'")

// FormatArgs formats arguments into a readable string for logging.
// Example: ["history", "team mobile"] -> "history 'team mobile'"
func FormatArgs(args []string) string {
	if len(args) == 0 {
		return "<empty command>"
	}

	quoted := make([]string, len(args))
	for i, arg := range args {
		if strings.ContainsAny(arg, " \t\n\"'") {
			quoted[i] = shellquote.Join(arg)
		} else {
			quoted[i] = arg
		}
	}

	return strings.Join(quoted, " ")
}
