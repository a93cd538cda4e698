package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/v0xg/credbridge/internal/browser"
	"github.com/v0xg/credbridge/internal/formfill"
	"github.com/v0xg/credbridge/internal/vault"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <url>",
		Short: "Open a page, record submitted logins and autofill stored ones",
		Long: `watch opens the page in a browser window and keeps it bridged to the vault
until interrupted. After every page load it observes the login forms present
at that moment; credentials submitted through them are stored under the
page's URL. When autofill is enabled the most recent login stored for the
page's origin is filled into the first login form.`,
		Args: cobra.ExactArgs(1),
		RunE: runWatch,
	}
}

func runWatch(cmd *cobra.Command, args []string) error {
	url := args[0]

	v, err := openVault()
	if err != nil {
		return err
	}

	fmt.Printf("→ Opening %s... ", url)
	b, err := browser.Launch(url, browserOptions(false))
	if err != nil {
		fmt.Println("failed")
		return err
	}
	defer b.Close()
	fmt.Println("done")

	var session *browser.Session
	recorder := &vault.Recorder{
		Vault:   v,
		PageURL: func() string { return session.URL() },
		Enabled: settings.AutofillEnabled,
	}

	session, err = browser.NewSession(b, recorder, browser.SessionOptions{
		Logger:    logger.With("formfill"),
		OnCapture: reportCapture,
		OnReady: func(s *browser.Session, pageURL string) {
			logVerbose("  attached to %s (%d login forms)", pageURL, len(s.Observed()))
			if settings.AutofillEnabled {
				autofillStored(s, v, pageURL)
			}
		},
	})
	if err != nil {
		return err
	}
	defer session.Close()

	if !settings.AutofillEnabled {
		fmt.Println("⚠ Autofill disabled, submitted logins will not be recorded")
	}
	fmt.Println("→ Watching (Ctrl+C to stop)...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := session.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	fmt.Println("✓ Stopped")
	return nil
}

func reportCapture(res formfill.CaptureResult) {
	switch {
	case res.Err != nil:
		fmt.Printf("  ✗ form %d: %v\n", res.Form, res.Err)
		logger.Warnf("capture on form %d failed: %v", res.Form, res.Err)
	case res.Captured:
		fmt.Printf("  ✓ recorded login for %q (form %d)\n", res.Credential.Username, res.Form)
	default:
		logVerbose("  form %d submitted with an empty field, skipped", res.Form)
	}
}

func autofillStored(s *browser.Session, v *vault.Vault, pageURL string) {
	login, ok := v.Lookup(pageURL)
	if !ok {
		return
	}
	pair, err := s.Autofill(login.Username, login.Password)
	switch {
	case err != nil:
		fmt.Printf("  ✗ autofill failed: %v\n", err)
		logger.Warnf("autofill on %s failed: %v", pageURL, err)
	case pair != nil:
		fmt.Printf("  ✓ filled %q into %s\n", login.Username, describe(pair.Username))
	}
}
