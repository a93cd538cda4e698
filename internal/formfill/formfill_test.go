package formfill

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/v0xg/credbridge/internal/htmldoc"
	"github.com/v0xg/credbridge/internal/page"
)

const twoLogins = `<html><body>
<form id="newsletter"><input name="subscribe_email" type="email"></form>
<form id="first">
  <input name="username">
  <input type="password" name="password">
</form>
<form id="second">
  <input type="email" id="login_email">
  <input type="password" id="pass">
</form>
</body></html>`

type recorder struct {
	calls []page.Credential
	err   error
}

func (r *recorder) CaptureCredentials(username, password string) error {
	r.calls = append(r.calls, page.Credential{Username: username, Password: password})
	return r.err
}

func setup(t *testing.T, markup string, opts Options) (*htmldoc.Document, *Manager) {
	t.Helper()
	doc, err := htmldoc.ParseString(markup)
	require.NoError(t, err)
	return doc, New(doc, opts)
}

func form(t *testing.T, doc *htmldoc.Document, i int) *htmldoc.Form {
	t.Helper()
	f, err := doc.Form(i)
	require.NoError(t, err)
	return f
}

func TestInitialize_ObservesQualifyingForms(t *testing.T) {
	doc, m := setup(t, twoLogins, Options{})
	require.NoError(t, m.Initialize(&recorder{}))

	assert.True(t, m.Initialized())
	assert.Equal(t, []int{1, 2}, m.Observed())
	assert.Equal(t, 0, form(t, doc, 0).Observers())
	assert.Equal(t, 1, form(t, doc, 1).Observers())
	assert.Equal(t, 1, form(t, doc, 2).Observers())
}

func TestInitialize_Errors(t *testing.T) {
	_, m := setup(t, twoLogins, Options{})
	assert.ErrorIs(t, m.Initialize(nil), ErrNoBridge)
	assert.False(t, m.Initialized())

	require.NoError(t, m.Initialize(&recorder{}))
	assert.ErrorIs(t, m.Initialize(&recorder{}), ErrAlreadyInitialized)
}

func TestInitialize_IgnoresLaterForms(t *testing.T) {
	doc, m := setup(t, `<form><input name="q"></form>`, Options{})
	bridge := &recorder{}
	require.NoError(t, m.Initialize(bridge))

	require.NoError(t, doc.AppendForms(`<form><input name="user"><input type="password"></form>`))
	late := form(t, doc, 1)
	late.Lookup("user").Set("alice")
	late.Submit()

	assert.Equal(t, 0, late.Observers())
	assert.Empty(t, bridge.calls)
}

func TestCapture_ForwardsSubmittedValues(t *testing.T) {
	var results []CaptureResult
	doc, m := setup(t, twoLogins, Options{OnCapture: func(r CaptureResult) { results = append(results, r) }})
	bridge := &recorder{}
	require.NoError(t, m.Initialize(bridge))

	f := form(t, doc, 1)
	f.Lookup("username").Set("alice")
	f.Lookup("password").Set("secret")
	f.Submit()

	require.Len(t, bridge.calls, 1)
	assert.Equal(t, page.Credential{Username: "alice", Password: "secret"}, bridge.calls[0])
	require.Len(t, results, 1)
	assert.True(t, results[0].Captured)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, 1, results[0].Form)
	assert.Equal(t, 1, f.Submissions())
}

func TestCapture_EmptyFieldsAreSkipped(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
	}{
		{"empty password", "alice", ""},
		{"empty username", "", "secret"},
		{"both empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var results []CaptureResult
			doc, m := setup(t, twoLogins, Options{OnCapture: func(r CaptureResult) { results = append(results, r) }})
			bridge := &recorder{}
			require.NoError(t, m.Initialize(bridge))

			f := form(t, doc, 1)
			f.Lookup("username").Set(tt.username)
			f.Lookup("password").Set(tt.password)
			f.Submit()

			assert.Empty(t, bridge.calls)
			require.Len(t, results, 1)
			assert.False(t, results[0].Captured)
			assert.NoError(t, results[0].Err)
			assert.Equal(t, 1, f.Submissions())
		})
	}
}

func TestCapture_ReadsValuesAtSubmission(t *testing.T) {
	doc, m := setup(t, twoLogins, Options{})
	bridge := &recorder{}
	require.NoError(t, m.Initialize(bridge))

	f := form(t, doc, 2)
	f.Lookup("login_email").Set("a@example.com")
	f.Lookup("pass").Set("one")
	f.Submit()
	f.Lookup("pass").Set("two")
	f.Submit()

	assert.Equal(t, []page.Credential{
		{Username: "a@example.com", Password: "one"},
		{Username: "a@example.com", Password: "two"},
	}, bridge.calls)
}

func TestCapture_BridgeFailureIsReportedNotRetried(t *testing.T) {
	boom := errors.New("host gone")
	var results []CaptureResult
	doc, m := setup(t, twoLogins, Options{OnCapture: func(r CaptureResult) { results = append(results, r) }})
	bridge := &recorder{err: boom}
	require.NoError(t, m.Initialize(bridge))

	f := form(t, doc, 1)
	f.Lookup("username").Set("alice")
	f.Lookup("password").Set("secret")
	f.Submit()

	assert.Len(t, bridge.calls, 1)
	assert.Equal(t, 1, f.Submissions())
	require.Len(t, results, 1)
	assert.False(t, results[0].Captured)
	assert.ErrorIs(t, results[0].Err, ErrCaptureFailed)
	assert.ErrorIs(t, results[0].Err, boom)
}

func TestCapture_BridgePanicIsContained(t *testing.T) {
	var results []CaptureResult
	doc, m := setup(t, twoLogins, Options{OnCapture: func(r CaptureResult) { results = append(results, r) }})
	require.NoError(t, m.Initialize(BridgeFunc(func(string, string) error { panic("nil bridge") })))

	f := form(t, doc, 1)
	f.Lookup("username").Set("alice")
	f.Lookup("password").Set("secret")
	f.Submit()

	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, ErrCaptureFailed)
	assert.Equal(t, 1, f.Submissions())

	// the manager is still usable afterwards
	pair, err := m.Autofill("bob", "pw")
	require.NoError(t, err)
	assert.NotNil(t, pair)
}

func TestAutofill_FillsOnlyFirstQualifyingForm(t *testing.T) {
	doc, m := setup(t, twoLogins, Options{})

	pair, err := m.Autofill("alice", "secret")
	require.NoError(t, err)
	require.NotNil(t, pair)

	first := form(t, doc, 1)
	assert.Same(t, first.Lookup("username"), pair.Username)
	assert.Equal(t, "alice", first.Lookup("username").Get())
	assert.Equal(t, "secret", first.Lookup("password").Get())

	second := form(t, doc, 2)
	assert.Empty(t, second.Lookup("login_email").Get())
	assert.Empty(t, second.Lookup("pass").Get())

	assert.Empty(t, form(t, doc, 0).Lookup("subscribe_email").Get())
}

func TestAutofill_OverwritesSameTarget(t *testing.T) {
	doc, m := setup(t, twoLogins, Options{})

	first, err := m.Autofill("alice", "secret")
	require.NoError(t, err)
	again, err := m.Autofill("bob", "hunter2")
	require.NoError(t, err)

	assert.Same(t, first.Username, again.Username)
	assert.Same(t, first.Password, again.Password)

	f := form(t, doc, 1)
	assert.Equal(t, "bob", f.Lookup("username").Get())
	assert.Equal(t, "hunter2", f.Lookup("password").Get())
	assert.Empty(t, form(t, doc, 2).Lookup("pass").Get())
}

func TestAutofill_NoQualifyingForm(t *testing.T) {
	doc, m := setup(t, `<form><input name="q"><input type="password"></form>`, Options{})

	pair, err := m.Autofill("alice", "secret")
	require.NoError(t, err)
	assert.Nil(t, pair)

	inputs, err := form(t, doc, 0).Inputs()
	require.NoError(t, err)
	for _, in := range inputs {
		v, err := in.Value()
		require.NoError(t, err)
		assert.Empty(t, v)
	}
}

func TestAutofill_SeesFormsAddedAfterInitialize(t *testing.T) {
	doc, m := setup(t, `<form><input name="q"></form>`, Options{})
	require.NoError(t, m.Initialize(&recorder{}))

	require.NoError(t, doc.AppendForms(`<form><input name="user"><input type="password" name="pw"></form>`))
	pair, err := m.Autofill("alice", "secret")
	require.NoError(t, err)
	require.NotNil(t, pair)
	assert.Equal(t, "alice", form(t, doc, 1).Lookup("user").Get())
}

func TestAutofill_ThenCapture(t *testing.T) {
	doc, m := setup(t, twoLogins, Options{})
	bridge := &recorder{}
	require.NoError(t, m.Initialize(bridge))

	_, err := m.Autofill("alice", "secret")
	require.NoError(t, err)
	form(t, doc, 1).Submit()

	assert.Equal(t, []page.Credential{{Username: "alice", Password: "secret"}}, bridge.calls)
}

func TestInitializeAsync(t *testing.T) {
	doc, m := setup(t, twoLogins, Options{})
	bridge := &recorder{}

	done := m.InitializeAsync(context.Background(), func(ctx context.Context) (Bridge, error) {
		return bridge, nil
	})

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("initialization did not complete")
	}
	_, open := <-done
	assert.False(t, open)

	assert.True(t, m.Initialized())
	assert.Equal(t, 1, form(t, doc, 1).Observers())
}

func TestInitializeAsync_HandshakeError(t *testing.T) {
	_, m := setup(t, twoLogins, Options{})
	boom := errors.New("no transport")

	err := <-m.InitializeAsync(context.Background(), func(context.Context) (Bridge, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, m.Initialized())
}

func TestInitializeAsync_Canceled(t *testing.T) {
	_, m := setup(t, twoLogins, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	release := make(chan struct{})
	defer close(release)

	done := m.InitializeAsync(ctx, func(context.Context) (Bridge, error) {
		<-release
		return &recorder{}, nil
	})
	cancel()

	assert.ErrorIs(t, <-done, context.Canceled)
	assert.False(t, m.Initialized())
}
