package loginsession_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hal9ai/h9login/loginsession"
	"github.com/stretchr/testify/require"
)

const testRetryDelay = 5 * time.Millisecond

// scriptedServer answers GET /api/login with a fixed sequence of responses,
// repeating the last one once the script runs out.
type scriptedServer struct {
	*httptest.Server
	getCalls  atomic.Int64
	postCalls atomic.Int64
}

type scriptedResponse struct {
	status int
	body   string
}

func newScriptedServer(t *testing.T, token string, script []scriptedResponse) *scriptedServer {
	t.Helper()

	s := &scriptedServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", func(w http.ResponseWriter, r *http.Request) {
		s.postCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"token": token})
	})
	mux.HandleFunc("GET /api/login", func(w http.ResponseWriter, r *http.Request) {
		n := int(s.getCalls.Add(1)) - 1
		if n >= len(script) {
			n = len(script) - 1
		}
		resp := script[n]
		if resp.status != http.StatusOK {
			w.WriteHeader(resp.status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(resp.body))
	})

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func newTestClient(baseURL string) *loginsession.Client {
	return loginsession.NewClient(
		loginsession.WithBaseURL(baseURL),
		loginsession.WithRetryDelay(testRetryDelay),
	)
}

func TestRequestToken(t *testing.T) {
	ts := newScriptedServer(t, "abc", nil)
	client := newTestClient(ts.URL)

	token, err := client.RequestToken(context.Background())
	require.NoError(t, err)
	require.Equal(t, "abc", token)
	require.EqualValues(t, 1, ts.postCalls.Load())
}

func TestRequestTokenMalformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing token field", body: `{"other":"x"}`},
		{name: "non-string token", body: `{"token":5}`},
		{name: "empty token", body: `{"token":""}`},
		{name: "not json", body: `nope`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tc.body))
			}))
			defer ts.Close()

			client := newTestClient(ts.URL)
			_, err := client.RequestToken(context.Background())
			require.ErrorIs(t, err, loginsession.ProtocolErr)
		})
	}
}

func TestSubscribeLoginInfoRetriesUntilResolved(t *testing.T) {
	ts := newScriptedServer(t, "abc", []scriptedResponse{
		{status: http.StatusBadGateway},
		{status: http.StatusBadGateway},
		{status: http.StatusOK, body: `{"done":false}`},
		{status: http.StatusOK, body: `{"user":"alice","photo":"http://x/p.png"}`},
	})
	client := newTestClient(ts.URL)

	identity, err := client.SubscribeLoginInfo(context.Background(), "abc")
	require.NoError(t, err)
	require.Equal(t, loginsession.Identity{User: "alice", Photo: "http://x/p.png"}, identity)
	require.EqualValues(t, 4, ts.getCalls.Load())
}

func TestSubscribeLoginInfoRetriesOnServerError(t *testing.T) {
	ts := newScriptedServer(t, "abc", []scriptedResponse{
		{status: http.StatusInternalServerError},
		{status: http.StatusNotFound},
		{status: http.StatusOK, body: `{"user":"bob","photo":"http://x/b.png"}`},
	})
	client := newTestClient(ts.URL)

	identity, err := client.SubscribeLoginInfo(context.Background(), "abc")
	require.NoError(t, err)
	require.Equal(t, "bob", identity.User)
	require.EqualValues(t, 3, ts.getCalls.Load())
}

func TestSubscribeLoginInfoMissingPhoto(t *testing.T) {
	ts := newScriptedServer(t, "bad", []scriptedResponse{
		{status: http.StatusOK, body: `{"user":"x"}`},
	})
	client := newTestClient(ts.URL)

	_, err := client.SubscribeLoginInfo(context.Background(), "bad")
	require.ErrorIs(t, err, loginsession.ProtocolErr)
	require.EqualValues(t, 1, ts.getCalls.Load())
}

func TestSubscribeLoginInfoIdempotentResolution(t *testing.T) {
	ts := newScriptedServer(t, "abc", []scriptedResponse{
		{status: http.StatusOK, body: `{"user":"alice","photo":"http://x/p.png"}`},
	})
	client := newTestClient(ts.URL)

	first, err := client.SubscribeLoginInfo(context.Background(), "abc")
	require.NoError(t, err)
	second, err := client.SubscribeLoginInfo(context.Background(), "abc")
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestSubscribeLoginInfoHonorsCancellation(t *testing.T) {
	ts := newScriptedServer(t, "abc", []scriptedResponse{
		{status: http.StatusOK, body: `{"done":false}`},
	})
	client := newTestClient(ts.URL)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := client.SubscribeLoginInfo(ctx, "abc")
		errCh <- err
	}()

	cancel()
	select {
	case err := <-errCh:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("subscription did not stop on cancellation")
	}
}

func TestLoginPageURL(t *testing.T) {
	client := loginsession.NewClient(loginsession.WithBaseURL("https://api.hal9.com"))
	require.Equal(t, "https://api.hal9.com/login?token=abc", client.LoginPageURL("abc"))
}
