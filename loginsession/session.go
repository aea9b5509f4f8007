package loginsession

import (
	"context"
	"errors"
	"sync"

	"github.com/hal9ai/h9login/internal/utils"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// State is the session's position in the login handshake.
type State int

const (
	LoggedOut State = iota
	Pending
	LoggedIn
)

func (s State) String() string {
	switch s {
	case LoggedOut:
		return "logged_out"
	case Pending:
		return "pending"
	case LoggedIn:
		return "logged_in"
	}
	return "unknown"
}

// Session drives the client-side login handshake: it mints a token, opens
// the external login page, and long-polls until an identity resolves. There
// is exactly one Session per widget lifetime; a new RequestLogin supersedes
// and cancels any in-flight subscription.
type Session struct {
	client   *Client
	store    TokenStore
	bridge   Bridge
	openPage func(url string) error
	log      zerolog.Logger

	mu       sync.Mutex
	state    State
	token    string
	identity *Identity
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithPageOpener sets the callback that opens the external login page in a
// new browsing context. The default only logs the URL, which suits headless
// hosts where the surrounding application handles navigation.
func WithPageOpener(open func(url string) error) SessionOption {
	return func(s *Session) {
		s.openPage = open
	}
}

// WithLogger sets the session logger.
func WithLogger(logger zerolog.Logger) SessionOption {
	return func(s *Session) {
		s.log = logger
	}
}

// New creates a Session. All three collaborators are required.
func New(client *Client, store TokenStore, bridge Bridge, options ...SessionOption) (*Session, error) {
	if client == nil {
		return nil, errors.New("[loginsession.New] client is required")
	}
	if store == nil {
		return nil, errors.New("[loginsession.New] token store is required")
	}
	if bridge == nil {
		return nil, errors.New("[loginsession.New] bridge is required")
	}

	s := &Session{
		client: client,
		store:  store,
		bridge: bridge,
		log:    log.Logger,
	}
	s.openPage = func(url string) error {
		s.log.Info().Str("url", url).Msg("open the login page to continue")
		return nil
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// RequestLogin starts a fresh login attempt. It immediately drops any
// current identity (emitting user = nil to the bridge), requests a new
// token, persists it, opens the login page, and subscribes for completion.
// Every failure along the way is logged and swallowed: the session simply
// stays logged out and the user retries.
func (s *Session) RequestLogin(ctx context.Context) {
	s.mu.Lock()
	s.stopSubscriptionLocked()
	s.identity = nil
	s.state = LoggedOut
	s.token = ""
	s.mu.Unlock()

	s.bridge.SetUser(nil)

	token, err := s.client.RequestToken(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("login token request failed")
		return
	}
	if err := s.store.Save(token); err != nil {
		s.log.Error().Err(err).Msg("failed to persist login token")
		return
	}
	if err := s.openPage(s.client.LoginPageURL(token)); err != nil {
		s.log.Error().Err(err).Msg("failed to open login page")
		return
	}

	s.startSubscription(ctx, token)
}

// Restore resumes a login attempt left by a previous lifetime. With no
// stored token it does nothing: no network call, no bridge emission. With a
// token it subscribes directly, without minting a new token or reopening
// the login page.
func (s *Session) Restore(ctx context.Context) {
	token, err := s.store.Load()
	if err != nil {
		s.log.Error().Err(err).Msg("failed to load stored login token")
		return
	}
	if token == "" {
		return
	}
	s.startSubscription(ctx, token)
}

// ReportFrameHeight tells the host frame how tall the rendered widget is.
// Called after every render pass.
func (s *Session) ReportFrameHeight(px int) {
	s.bridge.SetFrameHeight(px)
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Identity returns the resolved identity, if the session is logged in.
func (s *Session) Identity() (Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return Identity{}, false
	}
	return *s.identity, true
}

// Close abandons any in-flight subscription. Called on widget teardown.
func (s *Session) Close() {
	s.mu.Lock()
	s.stopSubscriptionLocked()
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Session) startSubscription(ctx context.Context, token string) {
	loopCtx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.stopSubscriptionLocked()
	s.token = token
	s.state = Pending
	s.cancel = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.subscribe(loopCtx, token)
	}()
}

// subscribe runs the long-poll loop and commits the resolution. The token
// comparison guards against a stale loop clobbering a newer attempt's state
// even if its cancellation has not landed yet.
func (s *Session) subscribe(ctx context.Context, token string) {
	identity, err := s.client.SubscribeLoginInfo(ctx, token)
	if err != nil {
		if ctx.Err() != nil {
			return // superseded or torn down
		}
		// A ProtocolErr here means the server broke the wire contract.
		// The attempt stays pending; there is nothing the user can do
		// but start over.
		s.log.Error().Err(err).Str("token", token).Msg("login subscription aborted")
		return
	}

	s.mu.Lock()
	if s.token != token {
		s.mu.Unlock()
		return
	}
	s.state = LoggedIn
	s.identity = utils.Ptr(identity)
	s.mu.Unlock()

	s.bridge.SetUser(utils.Ptr(identity.User))
}

func (s *Session) stopSubscriptionLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}
