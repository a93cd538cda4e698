package main

import (
	"fmt"
	"image"

	"github.com/spf13/cobra"
	"github.com/v0xg/credbridge/internal/browser"
	"github.com/v0xg/credbridge/internal/formfill"
	"github.com/v0xg/credbridge/internal/page"
	"github.com/v0xg/credbridge/internal/snapshot"
)

var (
	fillUsername   string
	fillPassword   string
	screenshotPath string
	maxWidth       uint
)

func newFillCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fill <url>",
		Short: "Fill a login into the first login form of a page",
		Long: `fill loads the page and writes a username and password into the first form,
in document order, that has a username/password field pair. Without
--username and --password the most recent vault login for the page's origin
is used.`,
		Args: cobra.ExactArgs(1),
		RunE: runFill,
	}

	cmd.Flags().StringVar(&fillUsername, "username", "", "Username to fill (default: from vault)")
	cmd.Flags().StringVar(&fillPassword, "password", "", "Password to fill (default: from vault)")
	cmd.Flags().StringVar(&screenshotPath, "screenshot", "", "Write a PNG of the filled page with the fields outlined")
	cmd.Flags().UintVar(&maxWidth, "max-width", 800, "Maximum screenshot width")
	return cmd
}

func runFill(cmd *cobra.Command, args []string) error {
	url := args[0]

	fmt.Printf("→ Loading %s... ", url)
	b, err := browser.Launch(url, browserOptions(screenshotPath != ""))
	if err != nil {
		fmt.Println("failed")
		return err
	}
	defer b.Close()
	fmt.Println("done")

	cred := page.Credential{Username: fillUsername, Password: fillPassword}
	if cred.Empty() {
		v, err := openVault()
		if err != nil {
			return err
		}
		login, ok := v.Lookup(b.URL())
		if !ok {
			return fmt.Errorf("no stored login for %s", b.URL())
		}
		cred = page.Credential{Username: login.Username, Password: login.Password}
	}

	m := formfill.New(b.Document(), formfill.Options{Logger: logger.With("formfill")})
	pair, err := m.Autofill(cred.Username, cred.Password)
	if err != nil {
		return fmt.Errorf("autofill failed: %w", err)
	}
	if pair == nil {
		fmt.Println("✗ No login form found")
		return nil
	}
	fmt.Printf("✓ Filled %q into %s / %s\n", cred.Username, describe(pair.Username), describe(pair.Password))

	if screenshotPath == "" {
		return nil
	}

	fmt.Printf("→ Capturing screenshot... ")
	size, err := writeScreenshot(b, pair)
	if err != nil {
		fmt.Println("failed")
		return fmt.Errorf("screenshot failed: %w", err)
	}
	fmt.Println("done")
	fmt.Printf("✓ Saved to %s (%.1f KB)\n", screenshotPath, float64(size)/1024)
	return nil
}

func writeScreenshot(b *browser.Browser, pair *page.FieldPair) (int64, error) {
	data, err := b.Screenshot()
	if err != nil {
		return 0, err
	}
	frame, err := snapshot.Decode(data)
	if err != nil {
		return 0, err
	}

	var boxes []image.Rectangle
	for _, in := range []page.Input{pair.Username, pair.Password} {
		box, err := browser.Bounds(in)
		if err != nil {
			logger.Warnf("no bounds for %s: %v", describe(in), err)
			continue
		}
		boxes = append(boxes, box)
	}

	img := snapshot.Resize(snapshot.Annotate(frame, boxes), maxWidth)
	return snapshot.WritePNG(screenshotPath, img)
}
