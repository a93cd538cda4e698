package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/v0xg/credbridge/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("settings:   %s\n", configPath)
			fmt.Printf("vault:      %s\n", settings.VaultPath)
			fmt.Printf("autofill:   %s\n", onOff(settings.AutofillEnabled))
			fmt.Printf("headless:   %s\n", onOff(settings.Headless))
			fmt.Printf("viewport:   %dx%d\n", settings.Width, settings.Height)
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:       "autofill <on|off>",
		Short:     "Enable or disable recording and autofill",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE:      runConfigAutofill,
	})
	return cmd
}

func runConfigAutofill(cmd *cobra.Command, args []string) error {
	enabled, err := parseOnOff(args[0])
	if err != nil {
		return err
	}

	// Persist only the file's values, not environment or flag overrides
	stored, err := config.Load(configPath)
	if err != nil {
		return err
	}
	stored.AutofillEnabled = enabled
	if err := stored.Save(configPath); err != nil {
		return err
	}
	fmt.Printf("✓ Autofill %s\n", onOff(enabled))
	return nil
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	default:
		return false, fmt.Errorf("expected on or off, got %q", s)
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
