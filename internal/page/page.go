package page

import "strings"

// Document is a rendered page holding forms in document order
type Document interface {
	Forms() ([]Form, error)
}

// Form is a form element of a Document
type Form interface {
	// Inputs returns the form's input elements in document order
	Inputs() ([]Input, error)
	// OnSubmit registers fn to run on every submission of this form.
	// Observers cannot cancel the native submission.
	OnSubmit(fn func()) error
}

// Input is an <input> element. Type, Name and ID are read when the input is
// enumerated; Value is read live.
type Input interface {
	Type() string
	Name() string
	ID() string
	Value() (string, error)
	SetValue(v string) error
}

// FieldPair associates the username and password inputs of a single form
type FieldPair struct {
	Username Input
	Password Input
}

// Credential is a username/password pair
type Credential struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Empty reports whether either half of the credential is empty
func (c Credential) Empty() bool {
	return c.Username == "" || c.Password == ""
}

// Input types with a meaning of their own. Anything else reflects as "text".
var inputTypes = map[string]bool{
	"button": true, "checkbox": true, "color": true, "date": true,
	"datetime-local": true, "email": true, "file": true, "hidden": true,
	"image": true, "month": true, "number": true, "password": true,
	"radio": true, "range": true, "reset": true, "search": true,
	"submit": true, "tel": true, "text": true, "time": true,
	"url": true, "week": true,
}

// NormalizeType maps a raw type attribute to the value a browser reports
// for input.type: lowercased, with missing or unknown types as "text".
func NormalizeType(raw string) string {
	t := strings.ToLower(strings.TrimSpace(raw))
	if !inputTypes[t] {
		return "text"
	}
	return t
}
