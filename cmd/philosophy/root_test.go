package main

import (
	"testing"
)

// TestNewRootCmd tests the root command creation.
func TestNewRootCmd(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "philosophy" {
			t.Errorf("expected use 'philosophy', got %q", cmd.Use)
		}
	})

	t.Run("has descriptions", func(t *testing.T) {
		t.Parallel()
		if cmd.Short == "" {
			t.Error("expected non-empty short description")
		}
		if cmd.Long == "" {
			t.Error("expected non-empty long description")
		}
	})

	t.Run("has version", func(t *testing.T) {
		t.Parallel()
		if cmd.Version == "" {
			t.Error("expected non-empty version")
		}
	})

	t.Run("has verbose flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.PersistentFlags().Lookup("verbose")
		if flag == nil {
			t.Fatal("expected verbose flag")
		}
		if flag.Shorthand != "v" {
			t.Errorf("expected shorthand 'v', got %q", flag.Shorthand)
		}
		if flag.DefValue != "false" {
			t.Errorf("expected default 'false', got %q", flag.DefValue)
		}
	})

	t.Run("has log-json flag", func(t *testing.T) {
		t.Parallel()
		if cmd.PersistentFlags().Lookup("log-json") == nil {
			t.Fatal("expected log-json flag")
		}
	})

	t.Run("has subcommands", func(t *testing.T) {
		t.Parallel()
		want := map[string]bool{"walk": false, "check": false, "history": false, "init": false, "version": false}
		for _, sub := range cmd.Commands() {
			if _, ok := want[sub.Name()]; ok {
				want[sub.Name()] = true
			}
		}
		for name, found := range want {
			if !found {
				t.Errorf("expected %s subcommand", name)
			}
		}
	})

	t.Run("silences usage and errors", func(t *testing.T) {
		t.Parallel()
		if !cmd.SilenceUsage {
			t.Error("expected SilenceUsage to be true")
		}
		if !cmd.SilenceErrors {
			t.Error("expected SilenceErrors to be true")
		}
	})
}

func TestGetGlobalBool(t *testing.T) {
	t.Parallel()

	root := NewRootCmd()
	if err := root.PersistentFlags().Set("log-json", "true"); err != nil {
		t.Fatalf("failed to set flag: %v", err)
	}

	walk, _, err := root.Find([]string{"walk"})
	if err != nil {
		t.Fatalf("failed to find walk: %v", err)
	}

	if !getGlobalBool(walk, "log-json") {
		t.Error("expected log-json from the root command")
	}
	if getGlobalBool(walk, "verbose") {
		t.Error("expected verbose to default to false")
	}
	if getGlobalBool(walk, "no-such-flag") {
		t.Error("expected unknown flag to be false")
	}
}
