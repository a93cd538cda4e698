package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-rod/rod/lib/proto"
	"github.com/v0xg/credbridge/internal/formfill"
	"github.com/v0xg/credbridge/internal/page"
	"github.com/ysmood/gson"
)

// bindingName is the window function the submit listeners report through
const bindingName = "__credbridgeSubmit"

// SessionOptions configures a Session
type SessionOptions struct {
	Logger formfill.Logger
	// OnCapture receives every capture result
	OnCapture func(formfill.CaptureResult)
	// OnReady runs after each page load once capture is initialized
	OnReady func(s *Session, url string)
}

// Session keeps a formfill.Manager bound to whatever document the page has
// loaded and routes page-side submit events to it
type Session struct {
	browser *Browser
	host    formfill.Bridge
	opts    SessionOptions
	stop    func() error

	mu      sync.Mutex
	gen     int
	url     string
	docs    map[int]*Document // current and previous generation
	manager *formfill.Manager
}

// submission is the payload sent by submitListener
type submission struct {
	Gen    int
	Form   int
	Values []string
}

// NewSession exposes the submission binding on the page. host receives the
// captured credentials.
func NewSession(b *Browser, host formfill.Bridge, opts SessionOptions) (*Session, error) {
	if host == nil {
		return nil, formfill.ErrNoBridge
	}

	s := &Session{browser: b, host: host, opts: opts, docs: make(map[int]*Document)}

	stop, err := b.page.Expose(bindingName, s.onBinding)
	if err != nil {
		return nil, fmt.Errorf("failed to expose submission binding: %w", err)
	}
	s.stop = stop
	return s, nil
}

// Close removes the binding
func (s *Session) Close() error {
	if s.stop == nil {
		return nil
	}
	return s.stop()
}

func (s *Session) onBinding(req gson.JSON) (interface{}, error) {
	sub, err := decodeSubmission(req)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	doc := s.docs[sub.Gen]
	current := s.gen
	s.mu.Unlock()

	// A submit that unloads the page can be delivered after the next
	// load's Attach; the previous generation's document still handles it.
	if doc == nil {
		logDebug(s.opts.Logger, "dropped submission of form %d from generation %d (current %d)", sub.Form, sub.Gen, current)
		return nil, nil
	}
	doc.dispatch(sub.Form, sub.Values)
	return nil, nil
}

// decodeSubmission reads the object passed to the binding by submitListener
func decodeSubmission(req gson.JSON) (submission, error) {
	if !req.Has("form") {
		return submission{}, errors.New("submission without form index")
	}

	sub := submission{
		Gen:  req.Get("gen").Int(),
		Form: req.Get("form").Int(),
	}
	for _, v := range req.Get("values").Arr() {
		sub.Values = append(sub.Values, v.Str())
	}
	return sub, nil
}

// Attach starts a new document generation for the page as loaded now and
// initializes capture on it. The handshake completes once the page has
// finished loading, which is when the binding is reachable from its scripts.
func (s *Session) Attach(ctx context.Context) error {
	s.mu.Lock()
	s.gen++
	s.url = s.browser.URL()
	doc := newDocument(s.browser.page, s.gen, bindingName)
	manager := formfill.New(doc, formfill.Options{
		Logger:    s.opts.Logger,
		OnCapture: s.opts.OnCapture,
	})
	s.docs[s.gen] = doc
	delete(s.docs, s.gen-2)
	s.manager = manager
	url := s.url
	s.mu.Unlock()

	handshake := func(ctx context.Context) (formfill.Bridge, error) {
		if err := s.browser.page.Context(ctx).WaitLoad(); err != nil {
			return nil, err
		}
		return s.host, nil
	}

	if err := <-manager.InitializeAsync(ctx, handshake); err != nil {
		return fmt.Errorf("failed to initialize capture on %s: %w", url, err)
	}

	if s.opts.OnReady != nil {
		s.opts.OnReady(s, url)
	}
	return nil
}

// Autofill fills the first qualifying form of the current document
func (s *Session) Autofill(username, password string) (*page.FieldPair, error) {
	s.mu.Lock()
	manager := s.manager
	s.mu.Unlock()

	if manager == nil {
		return nil, errors.New("no document attached")
	}
	return manager.Autofill(username, password)
}

// URL returns the URL of the attached document
func (s *Session) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url
}

// Observed returns the indexes of the forms being observed
func (s *Session) Observed() []int {
	s.mu.Lock()
	manager := s.manager
	s.mu.Unlock()

	if manager == nil {
		return nil
	}
	return manager.Observed()
}

// Watch re-attaches after every page load until ctx is done
func (s *Session) Watch(ctx context.Context) error {
	loads := make(chan struct{}, 1)

	wait := s.browser.page.Context(ctx).EachEvent(func(e *proto.PageLoadEventFired) {
		select {
		case loads <- struct{}{}:
		default:
		}
	})
	go wait()

	if err := s.Attach(ctx); err != nil && ctx.Err() == nil {
		logWarn(s.opts.Logger, "%v", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-loads:
			if err := s.Attach(ctx); err != nil && ctx.Err() == nil {
				logWarn(s.opts.Logger, "%v", err)
			}
		}
	}
}

func logDebug(l formfill.Logger, format string, args ...interface{}) {
	if l != nil {
		l.Debugf(format, args...)
	}
}

func logWarn(l formfill.Logger, format string, args ...interface{}) {
	if l != nil {
		l.Warnf(format, args...)
	}
}
