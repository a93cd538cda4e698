package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/v0xg/credbridge/internal/config"
	"github.com/v0xg/credbridge/internal/logging"
	"github.com/v0xg/credbridge/internal/vault"
)

var (
	configPath string
	vaultPath  string
	width      int
	height     int
	headless   bool
	profile    string
	verbose    bool

	settings config.Settings
	logger   *logging.Logger
)

func main() {
	// Load .env file if present (silently ignore if not found)
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "credbridge",
		Short: "Capture and autofill login forms from an encrypted vault",
		Long: `credbridge drives a Chromium page, detects username/password field pairs in
its forms, records credentials submitted through them into an encrypted vault,
and fills stored logins back into the first matching form.

Example:
  credbridge watch "https://myapp.com/login"
  credbridge fill "https://myapp.com/login" --screenshot filled.png`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				logger.Close()
			}
		},
	}

	defaultConfig, _ := config.DefaultPath()
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfig, "Settings file")
	rootCmd.PersistentFlags().StringVar(&vaultPath, "vault", "", "Vault file (default: from settings)")
	rootCmd.PersistentFlags().IntVar(&width, "width", 0, "Viewport width (default: from settings)")
	rootCmd.PersistentFlags().IntVar(&height, "height", 0, "Viewport height (default: from settings)")
	rootCmd.PersistentFlags().BoolVar(&headless, "headless", false, "Run the browser without a window")
	rootCmd.PersistentFlags().StringVar(&profile, "profile", "", "Chrome/Chromium profile directory for authenticated sessions (close browser first)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed progress")

	rootCmd.AddCommand(newScanCmd(), newWatchCmd(), newFillCmd(), newVaultCmd(), newConfigCmd())
	return rootCmd
}

// setup resolves settings (file, then environment, then flags) and opens the log
func setup(cmd *cobra.Command, args []string) error {
	var err error
	settings, err = config.Load(configPath)
	if err != nil {
		return err
	}
	if err := settings.ApplyEnv(); err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("vault") {
		settings.VaultPath = vaultPath
	}
	if flags.Changed("width") {
		settings.Width = width
	}
	if flags.Changed("height") {
		settings.Height = height
	}
	if flags.Changed("headless") {
		settings.Headless = headless
	}
	if flags.Changed("profile") {
		settings.ProfileDir = profile
	}

	var extra []io.Writer
	if verbose {
		extra = append(extra, os.Stderr)
	}
	dir, err := logging.DefaultDir()
	if err != nil {
		logger = logging.New(io.MultiWriter(append(extra, io.Discard)...), "credbridge")
		return nil
	}
	logger, _ = logging.Open(dir, "credbridge", extra...)
	logger.Debugf("settings: %s vault=%s autofill=%t", configPath, settings.VaultPath, settings.AutofillEnabled)
	return nil
}

// openVault unlocks the configured vault, asking for the master password
// unless CREDBRIDGE_MASTER_PASSWORD is set
func openVault() (*vault.Vault, error) {
	master := os.Getenv("CREDBRIDGE_MASTER_PASSWORD")
	if master == "" {
		var err error
		if master, err = askPassword("Master password:"); err != nil {
			return nil, fmt.Errorf("master password required: %w", err)
		}
	}

	v, err := vault.Open(settings.VaultPath, master)
	if errors.Is(err, vault.ErrWrongPassword) {
		return nil, fmt.Errorf("cannot unlock %s: %w", settings.VaultPath, err)
	}
	if err != nil {
		return nil, err
	}
	logger.Infof("vault unlocked: %s (%d logins)", v.Path(), len(v.Logins()))
	return v, nil
}

func logVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Printf(format+"\n", args...)
	}
}
