package server

import (
	"context"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/hal9ai/h9login/internal/config"
	"github.com/hal9ai/h9login/server/attempts"
	"github.com/hal9ai/h9login/users"
	"golang.org/x/oauth2"
)

type OidcConfig struct {
	OidcProvider *oidc.Provider
	OAuth2Config *oauth2.Config
	OidcVerifier *oidc.IDTokenVerifier
}

type Server struct {
	env      string // Environment (e.g., "DEV", "PROD")
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	attempts attempts.Repo
	users    users.Repo
	pollHold time.Duration

	oidc        *OidcConfig // nil when federated login is not configured
	stateSigner *StateSigner
	successTmpl *template.Template
}

func New(config config.Config, attemptRepo attempts.Repo, userRepo users.Repo) (*Server, error) {
	if attemptRepo == nil {
		return nil, fmt.Errorf("[Server New] attempt repo is required")
	}
	if userRepo == nil {
		return nil, fmt.Errorf("[Server New] user repo is required")
	}

	s := &Server{
		mux:      http.NewServeMux(),
		config:   config,
		attempts: attemptRepo,
		users:    userRepo,
		pollHold: config.GetPollHold(),
	}
	s.env = config.GetEnv()

	successTmpl, err := lookupTemplate("success.html")
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to parse success template: %w", err)
	}
	s.successTmpl = successTmpl

	if err := s.initOidc(config); err != nil {
		return nil, fmt.Errorf("[Server New] failed to initialise federated login: %w", err)
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

// initOidc wires the upstream identity provider when the OIDC_* vars are
// present. Without them the service runs with password login only.
func (s *Server) initOidc(config config.Config) error {
	issuer := config.GetOidcIssuer()
	clientID := config.GetOidcClientID()
	clientSecret := config.GetOidcClientSecret()
	signingKey := config.GetStateSigningKey()
	if issuer == "" || clientID == "" || clientSecret == "" {
		return nil
	}
	if signingKey == "" {
		return fmt.Errorf("STATE_SIGNING_KEY is required when OIDC is configured")
	}

	provider, err := oidc.NewProvider(context.Background(), issuer)
	if err != nil {
		return fmt.Errorf("oidc.NewProvider: %w", err)
	}

	oauth2Config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     provider.Endpoint(),
		RedirectURL:  config.GetBaseURL() + RouteLoginCallback,
		Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
	}

	s.oidc = &OidcConfig{
		OidcProvider: provider,
		OAuth2Config: oauth2Config,
		OidcVerifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
	}
	s.stateSigner = NewStateSigner([]byte(signingKey))
	return nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + resetColor
	} else {
		displayMethod = gray + paddedMethod + resetColor
	}
	log.Printf("[%-19s] %s\n", displayMethod, path)
}
