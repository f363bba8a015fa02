package main

import (
	"testing"

	"github.com/spf13/cobra"
)

func newFlagCmd() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Flags().Bool("hooks", true, "")
	cmd.Flags().Bool("no-hooks", false, "")
	cmd.Flags().Bool("gh", false, "")
	cmd.Flags().Bool("no-gh", false, "")
	return cmd
}

func TestHooksEnabled(t *testing.T) {
	tests := []struct {
		name    string
		hooks   bool
		noHooks bool
		want    bool
	}{
		{"default enabled", true, false, true},
		{"explicitly enabled", true, false, true},
		{"no-hooks overrides hooks", true, true, false},
		{"hooks off without override", false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newFlagCmd()
			_ = cmd.Flags().Set("hooks", boolStr(tt.hooks))
			_ = cmd.Flags().Set("no-hooks", boolStr(tt.noHooks))
			if got := hooksEnabled(cmd); got != tt.want {
				t.Errorf("hooksEnabled() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGhOverride(t *testing.T) {
	tests := []struct {
		name         string
		gh, noGh     bool
		wantEnabled  bool
		wantDisabled bool
	}{
		{"neither set", false, false, false, false},
		{"gh set", true, false, true, false},
		{"no-gh set", false, true, false, true},
		{"both set", true, true, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newFlagCmd()
			_ = cmd.Flags().Set("gh", boolStr(tt.gh))
			_ = cmd.Flags().Set("no-gh", boolStr(tt.noGh))
			enabled, disabled := ghOverride(cmd)
			if enabled != tt.wantEnabled || disabled != tt.wantDisabled {
				t.Errorf("ghOverride() = (%v, %v), want (%v, %v)", enabled, disabled, tt.wantEnabled, tt.wantDisabled)
			}
		})
	}
}

func boolStr(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

func TestDisplayPath(t *testing.T) {
	a := &appContext{repoRoot: "/repo"}

	fullPath = false
	defer func() { fullPath = false }()

	if got := a.displayPath("/repo/wt/feature"); got != "wt/feature" {
		t.Errorf("displayPath() = %q, want %q", got, "wt/feature")
	}
	if got := a.displayPath(""); got != "" {
		t.Errorf("displayPath(\"\") = %q, want empty", got)
	}

	fullPath = true
	if got := a.displayPath("/repo/wt/feature"); got != "/repo/wt/feature" {
		t.Errorf("displayPath() with --full-path = %q, want unchanged absolute path", got)
	}
}
