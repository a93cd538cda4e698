package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/v0xg/credbridge/internal/browser"
	"github.com/v0xg/credbridge/internal/htmldoc"
	"github.com/v0xg/credbridge/internal/page"
	"github.com/v0xg/credbridge/internal/scanner"
)

func newScanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan <url|file.html>",
		Short: "List forms and their detected username/password fields",
		Args:  cobra.ExactArgs(1),
		RunE:  runScan,
	}
}

func runScan(cmd *cobra.Command, args []string) error {
	target := args[0]

	var doc page.Document
	if isLocalFile(target) {
		fmt.Printf("→ Parsing %s... ", target)
		d, err := htmldoc.Load(target)
		if err != nil {
			fmt.Println("failed")
			return fmt.Errorf("parse failed: %w", err)
		}
		fmt.Println("done")
		doc = d
	} else {
		fmt.Printf("→ Loading %s... ", target)
		b, err := browser.Launch(target, browserOptions(true))
		if err != nil {
			fmt.Println("failed")
			return err
		}
		defer b.Close()
		fmt.Println("done")
		doc = b.Document()
	}

	forms, err := doc.Forms()
	if err != nil {
		return err
	}
	fmt.Printf("→ %d forms\n", len(forms))

	qualifying := 0
	for i, form := range forms {
		inputs, err := form.Inputs()
		if err != nil {
			fmt.Printf("  [%d] ✗ (%v)\n", i, err)
			continue
		}
		pair := scanner.Pair(inputs)
		if pair == nil {
			fmt.Printf("  [%d] %d inputs, no login fields\n", i, len(inputs))
			continue
		}
		qualifying++
		fmt.Printf("  [%d] username=%s password=%s\n", i, describe(pair.Username), describe(pair.Password))
		for _, in := range inputs {
			logVerbose("        %-8s %s", in.Type(), describe(in))
		}
	}

	if qualifying == 0 {
		fmt.Println("✗ No login form found")
		return nil
	}
	fmt.Printf("✓ %d login form(s); autofill targets form %d\n", qualifying, firstQualifying(forms))
	return nil
}

func firstQualifying(forms []page.Form) int {
	for i, form := range forms {
		if pair, err := scanner.Scan(form); err == nil && pair != nil {
			return i
		}
	}
	return -1
}

// describe renders an input the way a CSS selector would address it
func describe(in page.Input) string {
	switch {
	case in.ID() != "":
		return "#" + in.ID()
	case in.Name() != "":
		return fmt.Sprintf(`[name="%s"]`, in.Name())
	default:
		return "input[type=" + in.Type() + "]"
	}
}

func isLocalFile(target string) bool {
	if strings.Contains(target, "://") {
		return false
	}
	_, err := os.Stat(target)
	return err == nil
}

func browserOptions(forceHeadless bool) browser.Options {
	return browser.Options{
		Width:      settings.Width,
		Height:     settings.Height,
		Headless:   forceHeadless || settings.Headless,
		ProfileDir: settings.ProfileDir,
	}
}
