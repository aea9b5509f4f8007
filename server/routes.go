package server

func (s *Server) initRoutes() {
	// Widget API
	s.RegisterRouteHandler("POST "+RouteAPILogin, ChainMiddleware(s.IssueTokenHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAPILogin, ChainMiddleware(s.PollLoginHandler(), s.APIMiddleware()...))

	// Login page
	s.RegisterRouteHandler("GET "+RouteLogin, ChainMiddleware(s.LoginPageHandler(), s.HTMLMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteLogin, ChainMiddleware(s.LoginSubmissionHandler(), s.HTMLMiddleware()...))

	// Federated login (only when an upstream provider is configured)
	if s.oidc != nil {
		s.RegisterRouteHandler("GET "+RouteLoginOIDC, ChainMiddleware(s.OIDCRedirectHandler(), s.HTMLMiddleware()...))
		s.RegisterRouteHandler("GET "+RouteLoginCallback, ChainMiddleware(s.OIDCCallbackHandler(), s.HTMLMiddleware()...))
	}
}
