package server_test

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/hal9ai/h9login/loginsession"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// channelBridge forwards user emissions to a channel so tests can wait on
// them.
func channelBridge(userCh chan *string) loginsession.BridgeFuncs {
	return loginsession.BridgeFuncs{
		SetUserFunc: func(user *string) {
			if user == nil {
				userCh <- nil
				return
			}
			v := *user
			userCh <- &v
		},
	}
}

func waitForUser(t *testing.T, userCh chan *string) *string {
	t.Helper()
	select {
	case u := <-userCh:
		return u
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a bridge emission")
		return nil
	}
}

// TestWidgetHandshake runs the real session against the real service:
// request a login, sign in through the served form, and watch the identity
// arrive over the long poll.
func TestWidgetHandshake(t *testing.T) {
	f := setupTestFixture(t)

	userCh := make(chan *string, 4)
	openedCh := make(chan string, 1)

	client := loginsession.NewClient(
		loginsession.WithBaseURL(f.ts.URL),
		loginsession.WithRetryDelay(5*time.Millisecond),
		loginsession.WithClientLogger(zerolog.Nop()),
	)
	store := loginsession.NewMemoryTokenStore()
	session, err := loginsession.New(client, store, channelBridge(userCh),
		loginsession.WithLogger(zerolog.Nop()),
		loginsession.WithPageOpener(func(pageURL string) error {
			openedCh <- pageURL
			return nil
		}),
	)
	require.NoError(t, err)
	defer session.Close()

	session.RequestLogin(context.Background())
	require.Nil(t, waitForUser(t, userCh), "login starts by clearing the user")

	var openedURL string
	select {
	case openedURL = <-openedCh:
	case <-time.After(5 * time.Second):
		t.Fatal("login page was never opened")
	}

	parsed, err := url.Parse(openedURL)
	require.NoError(t, err)
	token := parsed.Query().Get("token")
	require.NotEmpty(t, token)
	require.Equal(t, "/login", parsed.Path)

	// The user signs in through the page the widget opened.
	resp := f.submitLogin(t, token, testUserEmail, testUserPassword)
	require.Equal(t, 200, resp.StatusCode)

	resolved := waitForUser(t, userCh)
	require.NotNil(t, resolved)
	require.Equal(t, testUserName, *resolved)
	require.Equal(t, loginsession.LoggedIn, session.State())

	identity, ok := session.Identity()
	require.True(t, ok)
	require.Equal(t, testUserPhoto, identity.Photo)
}

// TestWidgetHandshakeAcrossLifetimes covers a page reload mid-login: the
// first session mints the token and dies, a second session restores it from
// the store and still resolves.
func TestWidgetHandshakeAcrossLifetimes(t *testing.T) {
	f := setupTestFixture(t)

	store := loginsession.NewMemoryTokenStore()
	client := loginsession.NewClient(
		loginsession.WithBaseURL(f.ts.URL),
		loginsession.WithRetryDelay(5*time.Millisecond),
		loginsession.WithClientLogger(zerolog.Nop()),
	)

	firstCh := make(chan *string, 4)
	first, err := loginsession.New(client, store, channelBridge(firstCh),
		loginsession.WithLogger(zerolog.Nop()),
		loginsession.WithPageOpener(func(string) error { return nil }),
	)
	require.NoError(t, err)

	first.RequestLogin(context.Background())
	require.Nil(t, waitForUser(t, firstCh))
	first.Close()

	token, err := store.Load()
	require.NoError(t, err)
	require.NotEmpty(t, token)

	secondCh := make(chan *string, 4)
	second, err := loginsession.New(client, store, channelBridge(secondCh),
		loginsession.WithLogger(zerolog.Nop()),
	)
	require.NoError(t, err)
	defer second.Close()

	second.Restore(context.Background())

	resp := f.submitLogin(t, token, testUserEmail, testUserPassword)
	require.Equal(t, 200, resp.StatusCode)

	resolved := waitForUser(t, secondCh)
	require.NotNil(t, resolved)
	require.Equal(t, testUserName, *resolved)
}
