// Package htmldoc is an in-memory page.Document built from static HTML.
//
// Input values start from the markup's value attributes and are mutable.
// Submit plays the role of a user submitting a form: it runs the registered
// observers in registration order.
package htmldoc

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/v0xg/credbridge/internal/page"
)

// ErrNoSuchForm is returned for a form index outside the document
var ErrNoSuchForm = errors.New("no such form")

// Document is a static page
type Document struct {
	Title string
	forms []*Form
}

// Form is a form of a static page
type Form struct {
	Index     int
	ID        string
	Action    string
	inputs    []*Input
	observers []func()
	submits   int
}

// Input is an input element of a static page
type Input struct {
	typ   string
	name  string
	id    string
	value string
}

// Parse reads an HTML document
func Parse(r io.Reader) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	d := &Document{Title: strings.TrimSpace(doc.Find("title").First().Text())}
	d.addForms(doc.Selection)
	return d, nil
}

// ParseString parses an HTML string
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// Load parses an HTML file
func Load(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// AppendForms parses markup and appends its forms to the end of the document,
// the way a script inserting forms after load would
func (d *Document) AppendForms(markup string) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return fmt.Errorf("failed to parse HTML: %w", err)
	}
	d.addForms(doc.Selection)
	return nil
}

func (d *Document) addForms(root *goquery.Selection) {
	root.Find("form").Each(func(_ int, s *goquery.Selection) {
		f := &Form{
			Index:  len(d.forms),
			ID:     s.AttrOr("id", ""),
			Action: s.AttrOr("action", ""),
		}
		s.Find("input").Each(func(_ int, in *goquery.Selection) {
			f.inputs = append(f.inputs, &Input{
				typ:   page.NormalizeType(in.AttrOr("type", "")),
				name:  in.AttrOr("name", ""),
				id:    in.AttrOr("id", ""),
				value: in.AttrOr("value", ""),
			})
		})
		d.forms = append(d.forms, f)
	})
}

// Forms returns the document's forms in document order
func (d *Document) Forms() ([]page.Form, error) {
	forms := make([]page.Form, len(d.forms))
	for i, f := range d.forms {
		forms[i] = f
	}
	return forms, nil
}

// Form returns the i-th form
func (d *Document) Form(i int) (*Form, error) {
	if i < 0 || i >= len(d.forms) {
		return nil, fmt.Errorf("%w: %d", ErrNoSuchForm, i)
	}
	return d.forms[i], nil
}

// Submit submits the i-th form
func (d *Document) Submit(i int) error {
	f, err := d.Form(i)
	if err != nil {
		return err
	}
	f.Submit()
	return nil
}

// Inputs returns the form's inputs in document order
func (f *Form) Inputs() ([]page.Input, error) {
	inputs := make([]page.Input, len(f.inputs))
	for i, in := range f.inputs {
		inputs[i] = in
	}
	return inputs, nil
}

// OnSubmit registers a submission observer
func (f *Form) OnSubmit(fn func()) error {
	f.observers = append(f.observers, fn)
	return nil
}

// Observers returns the number of registered submission observers
func (f *Form) Observers() int {
	return len(f.observers)
}

// Submit runs every observer and counts the submission. A panicking observer
// does not stop the submission or the remaining observers.
func (f *Form) Submit() {
	for _, fn := range f.observers {
		runObserver(fn)
	}
	f.submits++
}

// Submissions returns how many times the form was submitted
func (f *Form) Submissions() int {
	return f.submits
}

// Lookup returns the first input whose id or name equals key
func (f *Form) Lookup(key string) *Input {
	for _, in := range f.inputs {
		if in.id == key {
			return in
		}
	}
	for _, in := range f.inputs {
		if in.name == key {
			return in
		}
	}
	return nil
}

func runObserver(fn func()) {
	defer func() { _ = recover() }()
	fn()
}

func (in *Input) Type() string { return in.typ }
func (in *Input) Name() string { return in.name }
func (in *Input) ID() string   { return in.id }

func (in *Input) Value() (string, error) {
	return in.value, nil
}

func (in *Input) SetValue(v string) error {
	in.value = v
	return nil
}

// Set changes the value the way typing into the field would
func (in *Input) Set(v string) {
	in.value = v
}

// Get returns the current value
func (in *Input) Get() string {
	return in.value
}
