package browser

import (
	"fmt"
	"sync"

	"github.com/go-rod/rod"
	"github.com/v0xg/credbridge/internal/page"
)

// Document is a page.Document over the live page. A Document belongs to one
// page load; submissions reported for another load are ignored.
type Document struct {
	page    *rod.Page
	gen     int
	binding string

	mu       sync.Mutex
	observed map[int]*form
}

type form struct {
	doc   *Document
	index int
	el    *rod.Element

	mu        sync.Mutex
	observers []func()
	snapshot  []string
}

type input struct {
	form  *form
	index int
	el    *rod.Element
	typ   string
	name  string
	id    string
}

func newDocument(p *rod.Page, gen int, binding string) *Document {
	return &Document{
		page:     p,
		gen:      gen,
		binding:  binding,
		observed: make(map[int]*form),
	}
}

// Document returns a Document over the page as currently loaded, not tied
// to any Session. Submissions of its forms are never reported.
func (b *Browser) Document() *Document {
	return newDocument(b.page, 0, bindingName)
}

// Forms returns the page's forms in document order
func (d *Document) Forms() ([]page.Form, error) {
	els, err := d.page.Elements("form")
	if err != nil {
		return nil, fmt.Errorf("failed to query forms: %w", err)
	}

	forms := make([]page.Form, len(els))
	for i, el := range els {
		forms[i] = &form{doc: d, index: i, el: el}
	}
	return forms, nil
}

// Inputs reads the type, name and id of every input in one evaluation each
func (f *form) Inputs() ([]page.Input, error) {
	els, err := f.el.Elements("input")
	if err != nil {
		return nil, fmt.Errorf("failed to query inputs: %w", err)
	}

	inputs := make([]page.Input, 0, len(els))
	for i, el := range els {
		res, err := el.Eval(`() => ({type: this.type, name: this.name || '', id: this.id || ''})`)
		if err != nil {
			return nil, fmt.Errorf("failed to read input %d: %w", i, err)
		}
		inputs = append(inputs, &input{
			form:  f,
			index: i,
			el:    el,
			typ:   page.NormalizeType(res.Value.Get("type").Str()),
			name:  res.Value.Get("name").Str(),
			id:    res.Value.Get("id").Str(),
		})
	}
	return inputs, nil
}

// OnSubmit installs a page-side submit listener that reports the form's
// input values through the session binding, then runs fn in Go
func (f *form) OnSubmit(fn func()) error {
	f.mu.Lock()
	first := len(f.observers) == 0
	f.observers = append(f.observers, fn)
	f.mu.Unlock()

	if !first {
		return nil
	}

	if _, err := f.el.Eval(submitListener, f.doc.binding, f.doc.gen, f.index); err != nil {
		f.mu.Lock()
		f.observers = nil
		f.mu.Unlock()
		return fmt.Errorf("failed to attach submit listener: %w", err)
	}

	f.doc.mu.Lock()
	f.doc.observed[f.index] = f
	f.doc.mu.Unlock()
	return nil
}

// submitListener never calls preventDefault; the native submission goes on
const submitListener = `(binding, gen, index) => {
	this.addEventListener('submit', () => {
		const values = Array.from(this.querySelectorAll('input')).map(i => i.value);
		window[binding]({gen: gen, form: index, values: values});
	});
}`

// dispatch runs the observers of a submitted form. While they run, input
// values come from the snapshot taken by the page when the submit event
// fired, since the page may already be unloading.
func (d *Document) dispatch(index int, values []string) {
	d.mu.Lock()
	f := d.observed[index]
	d.mu.Unlock()

	if f == nil {
		return
	}

	f.mu.Lock()
	observers := append([]func(){}, f.observers...)
	f.snapshot = values
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.snapshot = nil
		f.mu.Unlock()
	}()

	for _, fn := range observers {
		fn()
	}
}

func (in *input) Type() string { return in.typ }
func (in *input) Name() string { return in.name }
func (in *input) ID() string   { return in.id }

func (in *input) Value() (string, error) {
	in.form.mu.Lock()
	snapshot := in.form.snapshot
	in.form.mu.Unlock()

	if snapshot != nil && in.index < len(snapshot) {
		return snapshot[in.index], nil
	}

	v, err := in.el.Property("value")
	if err != nil {
		return "", fmt.Errorf("failed to read value: %w", err)
	}
	return v.Str(), nil
}

func (in *input) SetValue(v string) error {
	if _, err := in.el.Eval(`(v) => { this.value = v }`, v); err != nil {
		return fmt.Errorf("failed to set value: %w", err)
	}
	return nil
}
