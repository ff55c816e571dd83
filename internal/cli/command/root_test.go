package command

import (
	"errors"
	"testing"

	"github.com/urfave/cli/v2"
)

func TestApp(t *testing.T) {
	app := App()
	if app.Name != "gosession" {
		t.Errorf("Name = %q, want %q", app.Name, "gosession")
	}

	commandNames := make(map[string]bool)
	for _, cmd := range app.Commands {
		commandNames[cmd.Name] = true
	}
	for _, name := range []string{"key", "encode", "decode", "config", "ring", "bench"} {
		if !commandNames[name] {
			t.Errorf("missing required command: %s", name)
		}
	}

	flagNames := make(map[string]bool)
	for _, flag := range app.Flags {
		flagNames[flag.Names()[0]] = true
	}
	for _, name := range []string{"config", "output", "log-level", "log-format"} {
		if !flagNames[name] {
			t.Errorf("missing required flag: %s", name)
		}
	}
}

func TestApp_RejectsUnknownOutput(t *testing.T) {
	res := run(t, "", "-o", "table", "key", "generate")
	if res.err == nil {
		t.Fatal("Run() expected error for unknown output format")
	}
}

func TestApp_ConfigRequired(t *testing.T) {
	res := run(t, "", "encode")
	if got := ExitCode(res.err); got != 2 {
		t.Errorf("ExitCode() = %d, want 2 (err = %v)", got, res.err)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"plain", errors.New("boom"), 1},
		{"exit coder", cli.Exit("usage", 2), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}
