package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"
	"github.com/v0xg/credbridge/internal/vault"
)

var (
	reveal      bool
	addPassword string
	addKey      string
	assumeYes   bool
)

// errAuthFailed is returned when the master password is re-entered wrongly
var errAuthFailed = errors.New("incorrect master password")

// askPassword prompts for a secret without echo
var askPassword = func(message string) (string, error) {
	var answer string
	prompt := &survey.Password{Message: message}
	if err := survey.AskOne(prompt, &answer, survey.WithValidator(survey.Required)); err != nil {
		return "", err
	}
	return answer, nil
}

// askConfirm asks a yes/no question, defaulting to no
var askConfirm = func(message string) (bool, error) {
	confirmed := false
	if err := survey.AskOne(&survey.Confirm{Message: message}, &confirmed); err != nil {
		return false, err
	}
	return confirmed, nil
}

// authorizeReveal asks for the master password again before secrets are
// printed
func authorizeReveal(v *vault.Vault) error {
	password, err := askPassword("Master password to reveal:")
	if err != nil {
		return err
	}
	if !v.Verify(password) {
		return errAuthFailed
	}
	return nil
}

func newVaultCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vault",
		Short: "Manage stored logins",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List stored logins",
		Args:  cobra.NoArgs,
		RunE:  runVaultList,
	}
	list.Flags().BoolVar(&reveal, "reveal", false, "Show passwords (asks for the master password)")

	add := &cobra.Command{
		Use:   "add <url> <username>",
		Short: "Store a login",
		Args:  cobra.ExactArgs(2),
		RunE:  runVaultAdd,
	}
	add.Flags().StringVar(&addPassword, "password", "", "Password (prompted when omitted)")

	del := &cobra.Command{
		Use:   "delete <index>",
		Short: "Delete a stored login",
		Args:  cobra.ExactArgs(1),
		RunE:  runVaultDelete,
	}
	del.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Do not ask for confirmation")

	cmd.AddCommand(list, add, del, newKeysCmd())
	return cmd
}

func newKeysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage stored API keys",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List stored API keys",
		Args:  cobra.NoArgs,
		RunE:  runKeysList,
	}
	list.Flags().BoolVar(&reveal, "reveal", false, "Show keys (asks for the master password)")

	add := &cobra.Command{
		Use:   "add <service>",
		Short: "Store an API key",
		Args:  cobra.ExactArgs(1),
		RunE:  runKeysAdd,
	}
	add.Flags().StringVar(&addKey, "key", "", "API key (prompted when omitted)")

	del := &cobra.Command{
		Use:   "delete <index>",
		Short: "Delete a stored API key",
		Args:  cobra.ExactArgs(1),
		RunE:  runKeysDelete,
	}
	del.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Do not ask for confirmation")

	cmd.AddCommand(list, add, del)
	return cmd
}

func runVaultList(cmd *cobra.Command, args []string) error {
	v, err := openVault()
	if err != nil {
		return err
	}

	logins := v.Logins()
	if len(logins) == 0 {
		fmt.Println("No stored logins")
		return nil
	}
	if reveal {
		if err := authorizeReveal(v); err != nil {
			return err
		}
	}
	for i, l := range logins {
		fmt.Printf("  [%d] %s  %s  %s\n", i, l.URL, l.Username, maskPassword(l.Password, reveal))
	}
	return nil
}

func runVaultAdd(cmd *cobra.Command, args []string) error {
	v, err := openVault()
	if err != nil {
		return err
	}

	password := addPassword
	if password == "" {
		if password, err = askPassword(fmt.Sprintf("Password for %s:", args[1])); err != nil {
			return err
		}
	}

	if err := v.AddLogin(vault.Login{URL: args[0], Username: args[1], Password: password}); err != nil {
		return err
	}
	fmt.Printf("✓ Stored login for %q on %s\n", args[1], args[0])
	return nil
}

func runVaultDelete(cmd *cobra.Command, args []string) error {
	index, err := parseIndex(args[0])
	if err != nil {
		return err
	}

	v, err := openVault()
	if err != nil {
		return err
	}

	logins := v.Logins()
	if index < 0 || index >= len(logins) {
		return fmt.Errorf("%w: %d", vault.ErrNotFound, index)
	}

	if !assumeYes {
		confirmed, err := askConfirm(fmt.Sprintf("Delete login %q for %s?", logins[index].Username, logins[index].URL))
		if err != nil || !confirmed {
			return err
		}
	}

	removed, err := v.DeleteLogin(index)
	if err != nil {
		return err
	}
	fmt.Printf("✓ Deleted login %q for %s\n", removed.Username, removed.URL)
	return nil
}

func runKeysList(cmd *cobra.Command, args []string) error {
	v, err := openVault()
	if err != nil {
		return err
	}

	keys := v.APIKeys()
	if len(keys) == 0 {
		fmt.Println("No stored API keys")
		return nil
	}
	if reveal {
		if err := authorizeReveal(v); err != nil {
			return err
		}
	}
	for i, k := range keys {
		fmt.Printf("  [%d] %s  %s\n", i, k.Service, maskPassword(k.Key, reveal))
	}
	return nil
}

func runKeysAdd(cmd *cobra.Command, args []string) error {
	v, err := openVault()
	if err != nil {
		return err
	}

	key := addKey
	if key == "" {
		if key, err = askPassword(fmt.Sprintf("API key for %s:", args[0])); err != nil {
			return err
		}
	}

	if err := v.AddAPIKey(vault.APIKey{Service: args[0], Key: key}); err != nil {
		return err
	}
	fmt.Printf("✓ Stored API key for %s\n", args[0])
	return nil
}

func runKeysDelete(cmd *cobra.Command, args []string) error {
	index, err := parseIndex(args[0])
	if err != nil {
		return err
	}

	v, err := openVault()
	if err != nil {
		return err
	}

	keys := v.APIKeys()
	if index < 0 || index >= len(keys) {
		return fmt.Errorf("%w: %d", vault.ErrNotFound, index)
	}

	if !assumeYes {
		confirmed, err := askConfirm(fmt.Sprintf("Delete API key for %s?", keys[index].Service))
		if err != nil || !confirmed {
			return err
		}
	}

	removed, err := v.DeleteAPIKey(index)
	if err != nil {
		return err
	}
	fmt.Printf("✓ Deleted API key for %s\n", removed.Service)
	return nil
}

func parseIndex(s string) (int, error) {
	index, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid index %q", s)
	}
	return index, nil
}

func maskPassword(password string, show bool) string {
	if show {
		return password
	}
	return strings.Repeat("*", 8)
}
