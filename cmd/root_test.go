package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func TestVersionCommand(t *testing.T) {
	SetVersion("1.2.3")

	var out bytes.Buffer
	cmd := newVersionCmd()
	cmd.SetOut(&out)
	cmd.Run(cmd, nil)

	got := out.String()
	if !strings.Contains(got, "spotify-mcp version 1.2.3") {
		t.Errorf("version output = %q, want it to contain %q", got, "spotify-mcp version 1.2.3")
	}
}

func TestServeFailsFastWithoutConfiguration(t *testing.T) {
	t.Setenv("SPOTIFY_CLIENT_ID", "")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "")
	t.Setenv("SPOTIFY_REDIRECT_URI", "")

	err := runServe(false, "")
	if err == nil {
		t.Fatal("expected startup failure with missing configuration")
	}
	if !strings.Contains(err.Error(), "SPOTIFY_CLIENT_ID") {
		t.Errorf("error should name the missing variables, got: %v", err)
	}
}

func TestAuthCommandIsRegistered(t *testing.T) {
	for _, name := range []string{"serve", "auth", "version"} {
		found := false
		for _, c := range rootCmd.Commands() {
			if c.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("command %q not registered", name)
		}
	}
}
