package server

const (
	// API routes consumed by the login widget
	RouteAPILogin = "/api/login"

	// Browser-facing login pages
	RouteLogin         = "/login"
	RouteLoginOIDC     = "/login/oidc"
	RouteLoginCallback = "/login/callback"
)
