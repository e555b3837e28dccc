package cmdutil

import (
	"strings"
	"testing"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr bool
	}{
		{
			"simple command",
			"status",
			[]string{"status"},
			false,
		},
		{
			"command with arguments",
			"history staging 3",
			[]string{"history", "staging", "3"},
			false,
		},
		{
			"double quoted argument",
			`clear "team mobile"`,
			[]string{"clear", "team mobile"},
			false,
		},
		{
			"single quoted argument",
			"clear 'team mobile'",
			[]string{"clear", "team mobile"},
			false,
		},
		{
			"smart quotes",
			"clear “team mobile”",
			[]string{"clear", "team mobile"},
			false,
		},
		{
			"unterminated quote",
			`clear "staging`,
			nil,
			true,
		},
		{
			"empty string",
			"",
			nil,
			true,
		},
		{
			"whitespace only",
			"   ",
			nil,
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseArgs(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseArgs() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && !equalStringSlices(got, tt.want) {
				t.Errorf("ParseArgs() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFormatArgs(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  string
	}{
		{"simple command", []string{"status"}, "status"},
		{"argument with space", []string{"clear", "team mobile"}, "clear 'team mobile'"},
		{"empty command", []string{}, "<empty command>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatArgs(tt.input)
			if len(tt.input) > 0 && !strings.HasPrefix(got, tt.input[0]) {
				t.Errorf("FormatArgs() = %v, should start with %v", got, tt.input[0])
			}
			if len(tt.input) == 0 && got != tt.want {
				t.Errorf("FormatArgs() = %v, want %v", got, tt.want)
			}
		})
	}
}

func equalStringSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
