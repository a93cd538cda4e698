package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/v0xg/credbridge/internal/htmldoc"
	"github.com/v0xg/credbridge/internal/page"
	"github.com/v0xg/credbridge/internal/vault"
)

const loginPage = `<html><body>
<form id="search"><input name="q"></form>
<form>
  <input id="email" type="email" name="user_email">
  <input name="pass" type="password">
  <input type="submit">
</form>
</body></html>`

func TestDescribe(t *testing.T) {
	doc, err := htmldoc.ParseString(loginPage)
	require.NoError(t, err)

	form, err := doc.Form(1)
	require.NoError(t, err)
	inputs, err := form.Inputs()
	require.NoError(t, err)
	require.Len(t, inputs, 3)

	assert.Equal(t, "#email", describe(inputs[0]))
	assert.Equal(t, `[name="pass"]`, describe(inputs[1]))
	assert.Equal(t, "input[type=submit]", describe(inputs[2]))
}

func TestFirstQualifying(t *testing.T) {
	doc, err := htmldoc.ParseString(loginPage)
	require.NoError(t, err)
	forms, err := doc.Forms()
	require.NoError(t, err)

	assert.Equal(t, 1, firstQualifying(forms))
	assert.Equal(t, -1, firstQualifying(forms[:1]))
	assert.Equal(t, -1, firstQualifying([]page.Form{}))
}

func TestIsLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "login.html")
	require.NoError(t, os.WriteFile(path, []byte(loginPage), 0644))

	assert.True(t, isLocalFile(path))
	assert.False(t, isLocalFile(filepath.Join(t.TempDir(), "missing.html")))
	assert.False(t, isLocalFile("https://example.com/login"))
}

func TestParseOnOff(t *testing.T) {
	for _, s := range []string{"on", "ON", "true", "yes", "1"} {
		v, err := parseOnOff(s)
		require.NoError(t, err, s)
		assert.True(t, v, s)
	}
	for _, s := range []string{"off", "Off", "false", "no", "0"} {
		v, err := parseOnOff(s)
		require.NoError(t, err, s)
		assert.False(t, v, s)
	}

	_, err := parseOnOff("maybe")
	assert.Error(t, err)
}

func TestMaskPassword(t *testing.T) {
	assert.Equal(t, "hunter2", maskPassword("hunter2", true))
	assert.Equal(t, "********", maskPassword("hunter2", false))
	assert.Equal(t, "********", maskPassword("a-much-longer-password", false))
}

func stubPassword(t *testing.T, answer string) *[]string {
	t.Helper()
	var asked []string
	orig := askPassword
	askPassword = func(message string) (string, error) {
		asked = append(asked, message)
		return answer, nil
	}
	t.Cleanup(func() { askPassword = orig })
	return &asked
}

func TestAuthorizeReveal(t *testing.T) {
	v, err := vault.Open(filepath.Join(t.TempDir(), "credentials.vault"), "master")
	require.NoError(t, err)

	asked := stubPassword(t, "master")
	require.NoError(t, authorizeReveal(v))
	assert.Len(t, *asked, 1)

	stubPassword(t, "guess")
	assert.ErrorIs(t, authorizeReveal(v), errAuthFailed)
}

func TestParseIndex(t *testing.T) {
	i, err := parseIndex("2")
	require.NoError(t, err)
	assert.Equal(t, 2, i)

	_, err = parseIndex("two")
	assert.Error(t, err)
}
