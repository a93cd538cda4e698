package scanner

import (
	"fmt"
	"strings"

	"github.com/v0xg/credbridge/internal/page"
)

// usernameHints are matched as substrings of the lowercased name and id
var usernameHints = []string{"user", "email", "login"}

// Scan classifies the inputs of form and returns its username/password pair,
// or nil when the form has no password input or no qualifying username input
func Scan(form page.Form) (*page.FieldPair, error) {
	inputs, err := form.Inputs()
	if err != nil {
		return nil, fmt.Errorf("failed to list form inputs: %w", err)
	}
	return Pair(inputs), nil
}

// Pair runs a single pass over inputs. When several inputs qualify for the
// same role the last one in document order wins.
//
// TODO: last-wins pairs a sign-up form's "confirm password" field; try a
// first-match or adjacency-scored policy.
func Pair(inputs []page.Input) *page.FieldPair {
	var username, password page.Input

	for _, in := range inputs {
		switch in.Type() {
		case "password":
			password = in
		case "email", "text", "tel":
			if IsUsernameField(in) {
				username = in
			}
		}
	}

	if username == nil || password == nil {
		return nil
	}
	return &page.FieldPair{Username: username, Password: password}
}

// IsUsernameField reports whether the input's name or id contains one of the
// username hints, ignoring case. The input type is not checked.
func IsUsernameField(in page.Input) bool {
	name := strings.ToLower(in.Name())
	id := strings.ToLower(in.ID())
	for _, hint := range usernameHints {
		if strings.Contains(name, hint) || strings.Contains(id, hint) {
			return true
		}
	}
	return false
}
