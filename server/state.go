package server

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/hal9ai/h9login/internal/errors"
)

const stateLifetime = 15 * time.Minute

// stateClaims bind the OAuth2 state parameter to the widget's login token
// and carry the OIDC nonce, so the callback needs no server-side storage.
type stateClaims struct {
	LoginToken string `json:"login_token"`
	Nonce      string `json:"nonce"`
	jwt.RegisteredClaims
}

// StateSigner signs and verifies the federated-login state parameter with
// an HMAC key.
type StateSigner struct {
	key     []byte
	nowTime func() time.Time // nowTime function (injectable for testing)
}

func NewStateSigner(key []byte) *StateSigner {
	return &StateSigner{key: key, nowTime: time.Now}
}

// Sign produces a state value for a login token, with a fresh nonce.
func (ss *StateSigner) Sign(loginToken string) (state, nonce string, err error) {
	nonce = uuid.New().String()
	now := ss.nowTime()

	claims := stateClaims{
		LoginToken: loginToken,
		Nonce:      nonce,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(stateLifetime)),
		},
	}

	state, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ss.key)
	if err != nil {
		return "", "", errors.Wrapf(err, "sign state")
	}
	return state, nonce, nil
}

// Verify checks the state signature and expiry and returns the bound login
// token and nonce.
func (ss *StateSigner) Verify(state string) (loginToken, nonce string, err error) {
	var claims stateClaims
	_, err = jwt.ParseWithClaims(state, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.ErrInvalidState
		}
		return ss.key, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithTimeFunc(ss.nowTime))
	if err != nil {
		return "", "", errors.Wrapf(errors.ErrInvalidState, "parse state (%v)", err)
	}
	if claims.LoginToken == "" || claims.Nonce == "" {
		return "", "", errors.ErrInvalidState
	}
	return claims.LoginToken, claims.Nonce, nil
}
