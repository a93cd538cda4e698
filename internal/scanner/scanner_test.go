package scanner

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/v0xg/credbridge/internal/page"
)

type fakeInput struct {
	typ, name, id, value string
}

func (f *fakeInput) Type() string            { return f.typ }
func (f *fakeInput) Name() string            { return f.name }
func (f *fakeInput) ID() string              { return f.id }
func (f *fakeInput) Value() (string, error)  { return f.value, nil }
func (f *fakeInput) SetValue(v string) error { f.value = v; return nil }

type fakeForm struct {
	inputs []page.Input
	err    error
}

func (f *fakeForm) Inputs() ([]page.Input, error) { return f.inputs, f.err }
func (f *fakeForm) OnSubmit(func()) error         { return nil }

func inputs(in ...*fakeInput) []page.Input {
	out := make([]page.Input, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

func TestPair_MatchesHintsInAnyCase(t *testing.T) {
	tests := []struct {
		name string
		user *fakeInput
	}{
		{"name user", &fakeInput{typ: "text", name: "username"}},
		{"id email", &fakeInput{typ: "email", id: "EmailAddress"}},
		{"name login mixed case", &fakeInput{typ: "tel", name: "LoGiN_phone"}},
		{"substring", &fakeInput{typ: "text", name: "superuser_handle"}},
		{"id only", &fakeInput{typ: "text", name: "q", id: "user-field"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pw := &fakeInput{typ: "password", name: "pw"}
			pair := Pair(inputs(tt.user, pw))
			require.NotNil(t, pair)
			assert.Same(t, tt.user, pair.Username)
			assert.Same(t, pw, pair.Password)
		})
	}
}

func TestPair_NoPassword(t *testing.T) {
	pair := Pair(inputs(
		&fakeInput{typ: "text", name: "username"},
		&fakeInput{typ: "email", name: "email"},
		&fakeInput{typ: "hidden", name: "password"},
	))
	assert.Nil(t, pair)
}

func TestPair_NoUsername(t *testing.T) {
	tests := []struct {
		name  string
		other *fakeInput
	}{
		{"no hint", &fakeInput{typ: "text", name: "search", id: "q"}},
		{"wrong type", &fakeInput{typ: "number", name: "user_id"}},
		{"hidden", &fakeInput{typ: "hidden", name: "login"}},
		{"checkbox", &fakeInput{typ: "checkbox", name: "remember_user"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pair := Pair(inputs(tt.other, &fakeInput{typ: "password", name: "pw"}))
			assert.Nil(t, pair)
		})
	}
}

func TestPair_LastPasswordWins(t *testing.T) {
	user := &fakeInput{typ: "text", name: "user"}
	first := &fakeInput{typ: "password", name: "password"}
	second := &fakeInput{typ: "password", name: "confirm"}

	pair := Pair(inputs(first, user, second))
	require.NotNil(t, pair)
	assert.Same(t, second, pair.Password)
	assert.Same(t, user, pair.Username)
}

func TestPair_LastUsernameWins(t *testing.T) {
	first := &fakeInput{typ: "email", name: "email"}
	pw := &fakeInput{typ: "password", name: "password"}
	second := &fakeInput{typ: "text", id: "login"}

	pair := Pair(inputs(first, pw, second))
	require.NotNil(t, pair)
	assert.Same(t, second, pair.Username)
}

func TestPair_Empty(t *testing.T) {
	assert.Nil(t, Pair(nil))
}

func TestScan(t *testing.T) {
	user := &fakeInput{typ: "text", name: "user"}
	pw := &fakeInput{typ: "password"}

	pair, err := Scan(&fakeForm{inputs: inputs(user, pw)})
	require.NoError(t, err)
	require.NotNil(t, pair)
	assert.Same(t, user, pair.Username)

	pair, err = Scan(&fakeForm{inputs: inputs(pw)})
	require.NoError(t, err)
	assert.Nil(t, pair)
}

func TestScan_InputsError(t *testing.T) {
	boom := errors.New("boom")
	pair, err := Scan(&fakeForm{err: boom})
	assert.Nil(t, pair)
	assert.ErrorIs(t, err, boom)
}
