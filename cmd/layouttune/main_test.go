package main

import (
	"bytes"
	"testing"

	"github.com/matzehuels/layouttune/internal/cli"
)

func TestVerboseFlagSetsDebugLevel(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"grid"}, "info"},
		{[]string{"-v", "grid"}, "debug"},
	}
	for _, tt := range tests {
		var logs bytes.Buffer
		c := cli.New(&logs, cli.LogInfo)
		c.Out = &bytes.Buffer{}
		root := newRootCommand(c)
		root.SetArgs(tt.args)
		if err := root.Execute(); err != nil {
			t.Fatalf("Execute(%v) error = %v", tt.args, err)
		}
		if got := c.Logger.GetLevel().String(); got != tt.want {
			t.Errorf("Execute(%v) level = %q, want %q", tt.args, got, tt.want)
		}
	}
}
