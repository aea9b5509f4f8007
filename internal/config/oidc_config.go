package config

type OidcConfig interface {
	GetOidcIssuer() string
	GetOidcClientID() string
	GetOidcClientSecret() string
}

type Oidc struct{}

var _ OidcConfig = Oidc{}

// Federated login is enabled only when all three OIDC_* vars are set.
func (Oidc) GetOidcIssuer() string {
	return GetEnv("OIDC_ISSUER", "")
}

func (Oidc) GetOidcClientID() string {
	return GetEnv("OIDC_CLIENT_ID", "")
}

func (Oidc) GetOidcClientSecret() string {
	return GetEnv("OIDC_CLIENT_SECRET", "")
}
