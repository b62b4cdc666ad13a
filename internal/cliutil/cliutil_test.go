package cliutil

import "testing"

func TestFlagSetParsesLongShortAndEqualsForms(t *testing.T) {
	fs := NewFlagSet("lamac")
	var out string
	var verbose bool
	fs.String(&out, "output", "o", "", "output file", "file")
	fs.Bool(&verbose, "verbose", "v", false, "verbose")

	if err := fs.Parse([]string{"--output=prog", "-v", "in.ast.json"}); err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if out != "prog" {
		t.Errorf("output = %q, want %q", out, "prog")
	}
	if !verbose {
		t.Error("verbose flag not set")
	}
	if got, want := fs.Args(), []string{"in.ast.json"}; len(got) != 1 || got[0] != want[0] {
		t.Errorf("Args() = %v, want %v", got, want)
	}
}

func TestFlagSetShorthandTakesSeparateArgument(t *testing.T) {
	fs := NewFlagSet("lamac")
	var out string
	fs.String(&out, "output", "o", "", "output file", "file")

	if err := fs.Parse([]string{"-o", "prog"}); err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if out != "prog" {
		t.Errorf("output = %q, want %q", out, "prog")
	}
}

func TestAddFlagGroupRegistersEnableAndDisablePair(t *testing.T) {
	// Mirrors how pkg/config wires -W<name>/-Wno-<name> pairs for its
	// Warning toggles: AddFlagGroup must register both halves of the pair
	// so Parse recognizes them.
	fs := NewFlagSet("lamac")
	enabled, disabled := new(bool), new(bool)
	fs.AddFlagGroup("Warnings", "Toggle optional diagnostics.", "warning", "Available warnings:", []FlagGroupEntry{
		{Name: "shadow", Prefix: "W", Usage: "warn on shadowing", Enabled: enabled, Disabled: disabled},
	})

	if err := fs.Parse([]string{"-Wshadow"}); err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if !*enabled {
		t.Error("-Wshadow did not set the Enabled flag")
	}

	fs2 := NewFlagSet("lamac")
	enabled2, disabled2 := new(bool), new(bool)
	fs2.AddFlagGroup("Warnings", "Toggle optional diagnostics.", "warning", "Available warnings:", []FlagGroupEntry{
		{Name: "shadow", Prefix: "W", Usage: "warn on shadowing", Enabled: enabled2, Disabled: disabled2},
	})
	if err := fs2.Parse([]string{"-Wno-shadow"}); err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if !*disabled2 {
		t.Error("-Wno-shadow did not set the Disabled flag")
	}
}

func TestUnknownFlagIsAnError(t *testing.T) {
	fs := NewFlagSet("lamac")
	if err := fs.Parse([]string{"--bogus"}); err == nil {
		t.Fatal("expected an error for an unregistered flag")
	}
}

func TestAppRunInvokesActionWithPositionalArgs(t *testing.T) {
	app := NewApp("lamac")
	var got []string
	app.Action = func(args []string) error {
		got = args
		return nil
	}
	if err := app.Run([]string{"a.ast.json", "b.ast.json"}); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(got) != 2 || got[0] != "a.ast.json" || got[1] != "b.ast.json" {
		t.Errorf("Action args = %v, want [a.ast.json b.ast.json]", got)
	}
}

func TestAppRunHandlesHelpWithoutInvokingAction(t *testing.T) {
	app := NewApp("lamac")
	invoked := false
	app.Action = func(args []string) error {
		invoked = true
		return nil
	}
	if err := app.Run([]string{"--help"}); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if invoked {
		t.Error("--help should not invoke Action")
	}
}
