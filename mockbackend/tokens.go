package mockbackend

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	tokenIssuerName    = "saverr-mock"
	tokenAudience      = "saverr-app"
	refreshTokenLength = 32
)

var errInvalidRefreshToken = errors.New("invalid refresh token")

type storedRefreshToken struct {
	Token  string
	UserID string
	Iat    time.Time
}

// tokenIssuer signs HS256 access tokens and keeps one opaque refresh token per
// user. Callers hold the server lock.
type tokenIssuer struct {
	key        []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
	refresh    map[string]storedRefreshToken
}

func newTokenIssuer() *tokenIssuer {
	key := make([]byte, 32)
	_, _ = rand.Read(key)
	return &tokenIssuer{
		key:        key,
		accessTTL:  defaultAccessTokenTTL,
		refreshTTL: defaultRefreshTokenTTL,
		now:        time.Now,
		refresh:    make(map[string]storedRefreshToken),
	}
}

// issue creates an access token and replaces the user's refresh token.
func (t *tokenIssuer) issue(u *user) (access, refresh string, err error) {
	access, err = t.accessToken(u)
	if err != nil {
		return "", "", err
	}
	refresh, err = t.createRefreshToken(u.ID)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func (t *tokenIssuer) accessToken(u *user) (string, error) {
	now := t.now()
	claims := jwtlib.MapClaims{
		"iss":   tokenIssuerName,
		"aud":   tokenAudience,
		"sub":   u.ID,
		"email": u.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(t.accessTTL).Unix(),
		"jti":   uuid.NewString(),
	}
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(t.key)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token with HMAC")
	}
	return signed, nil
}

// subject verifies an access token and returns the user ID it was issued to.
func (t *tokenIssuer) subject(raw string) (string, error) {
	token, err := jwtlib.Parse(raw, func(token *jwtlib.Token) (any, error) {
		return t.key, nil
	},
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithIssuer(tokenIssuerName),
		jwtlib.WithAudience(tokenAudience),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithTimeFunc(t.now),
	)
	if err != nil {
		return "", errors.Wrap(err, "[tokenIssuer.subject] parse")
	}
	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", errors.New("[tokenIssuer.subject] token has no subject")
	}
	return sub, nil
}

func (t *tokenIssuer) createRefreshToken(userID string) (string, error) {
	t.revokeUser(userID)

	tokenBytes := make([]byte, refreshTokenLength)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", errors.Wrap(err, "failed to generate random bytes")
	}
	token := hex.EncodeToString(tokenBytes)
	t.refresh[token] = storedRefreshToken{Token: token, UserID: userID, Iat: t.now()}
	return token, nil
}

// redeem consumes a refresh token. A token can be redeemed once.
func (t *tokenIssuer) redeem(token string) (string, error) {
	rt, ok := t.refresh[token]
	if !ok {
		return "", errInvalidRefreshToken
	}
	delete(t.refresh, token)
	if t.now().Sub(rt.Iat) > t.refreshTTL {
		return "", errInvalidRefreshToken
	}
	return rt.UserID, nil
}

func (t *tokenIssuer) revokeUser(userID string) {
	for token, rt := range t.refresh {
		if rt.UserID == userID {
			delete(t.refresh, token)
		}
	}
}
