package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rakshitha2207/spotify-mcp/internal/auth"
	"github.com/rakshitha2207/spotify-mcp/internal/config"
	"github.com/rakshitha2207/spotify-mcp/internal/logging"
)

func newAuthCmd() *cobra.Command {
	var debugMode bool

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Run the interactive Spotify authorization flow",
		Long: `Authorize spotify-mcp against your Spotify account.

Opens the Spotify consent page in your browser and waits for the
authorization to complete via the local callback listener. Requires
SPOTIFY_CLIENT_ID, SPOTIFY_CLIENT_SECRET and SPOTIFY_REDIRECT_URI to
be set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuth(cmd, debugMode)
		},
	}

	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	return cmd
}

func runAuth(cmd *cobra.Command, debugMode bool) error {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Setup(debugMode || cfg.Debug)

	manager, err := auth.NewManager(auth.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURI:  cfg.RedirectURI,
		Scopes:       auth.DefaultScopes,
		OpenBrowser:  auth.OpenBrowser,
	})
	if err != nil {
		return fmt.Errorf("failed to create credential manager: %w", err)
	}

	if _, err := manager.InteractiveGrant(ctx); err != nil {
		return fmt.Errorf("authorization failed: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Authorization successful.")
	return nil
}
