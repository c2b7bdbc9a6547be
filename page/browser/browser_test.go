package browser

import (
	"errors"
	"testing"

	"github.com/playwright-community/playwright-go"
	assert_ "github.com/stretchr/testify/assert"
)

func TestMatchURL(t *testing.T) {
	assert := assert_.New(t)
	assert.True(MatchURL("https://music.example.com/#/player", "https://music.example.com"))
	assert.True(MatchURL("about:blank", ""))
	assert.False(MatchURL("https://other.example.com/", "https://music.example.com"))
}

func TestEvalStrings(t *testing.T) {
	assert := assert_.New(t)
	assert.Equal([]string{"a", "b"}, EvalStrings([]interface{}{"a", 1, "b", nil}))
	assert.Nil(EvalStrings("not an array"))
	assert.Empty(EvalStrings([]interface{}{}))
}

func TestToHTTPCookies(t *testing.T) {
	assert := assert_.New(t)
	cookies := ToHTTPCookies([]playwright.Cookie{
		{Name: "sid", Value: "abc", Domain: ".example.com", Path: "/", Expires: 1700000000, Secure: true, HttpOnly: true},
		{Name: "session", Value: "x", Domain: "music.example.com", Path: "/", Expires: -1},
	})
	if assert.Len(cookies, 2) {
		assert.Equal("sid", cookies[0].Name)
		assert.Equal(".example.com", cookies[0].Domain)
		assert.Equal(int64(1700000000), cookies[0].Expires.Unix())
		assert.True(cookies[0].Secure)
		assert.True(cookies[1].Expires.IsZero())
	}
}

func TestCloseAll(t *testing.T) {
	assert := assert_.New(t)
	assert.NoError(closeAll(func() error { return nil }, func() error { return nil }))

	browserErr := errors.New("browser gone")
	driverErr := errors.New("driver stuck")
	stopped := false
	err := closeAll(
		func() error { return browserErr },
		func() error { stopped = true; return driverErr },
	)
	assert.True(stopped)
	assert.ErrorIs(err, browserErr)
	assert.ErrorIs(err, driverErr)
}
