package security

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned for any verification failure: bad signature,
	// expired, malformed, or wrong token kind. Callers must not distinguish
	// failure modes to avoid oracle attacks.
	ErrInvalidToken = errors.New("invalid token")
)

// Kind discriminates token types sharing the same keypair.
type Kind string

const (
	// KindAccess is a short-lived end-user access token.
	KindAccess Kind = "access"
	// KindRefresh is a long-lived rotating refresh token.
	KindRefresh Kind = "refresh"
	// KindAdminAccess is an administrator-panel access token.
	KindAdminAccess Kind = "admin_access"
)

// Claims is the signed claim set carried by every token. Kind is serialized
// as "type" on the wire; Role is set on user access tokens only.
type Claims struct {
	jwt.RegisteredClaims
	Kind Kind   `json:"type"`
	Role string `json:"role,omitempty"`
}

// Codec issues and verifies kind-discriminated JWTs using RS256 or ES256
// (private key signs, public key verifies). One codec serves user and
// administrator tokens; the Kind claim keeps them apart.
type Codec struct {
	privateKey crypto.Signer
	publicKey  crypto.PublicKey
	issuer     string
}

// NewCodec returns a Codec that signs with the given private key (RSA or ECDSA)
// and verifies with the given public key. issuer is set and checked on every token.
func NewCodec(privateKey crypto.Signer, publicKey crypto.PublicKey, issuer string) *Codec {
	return &Codec{
		privateKey: privateKey,
		publicKey:  publicKey,
		issuer:     issuer,
	}
}

// Issue signs a token of the given kind for subjectID with the given ttl.
// role is embedded only when non-empty (user access tokens). The jti claim is
// 16 random bytes hex so every issued token is unique even for identical
// subject/ttl inputs.
func (c *Codec) Issue(kind Kind, subjectID, role string, ttl time.Duration) (token string, expiresAt time.Time, err error) {
	jti, err := generateJTI()
	if err != nil {
		return "", time.Time{}, err
	}
	now := time.Now().UTC()
	expiresAt = now.Add(ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   subjectID,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Kind: kind,
		Role: role,
	}
	token, err = c.sign(claims)
	return token, expiresAt, err
}

func (c *Codec) sign(claims jwt.Claims) (string, error) {
	var method jwt.SigningMethod
	switch c.privateKey.Public().(type) {
	case *rsa.PublicKey:
		method = jwt.SigningMethodRS256
	case *ecdsa.PublicKey:
		method = jwt.SigningMethodES256
	default:
		return "", ErrInvalidToken
	}
	t := jwt.NewWithClaims(method, claims)
	return t.SignedString(c.privateKey)
}

// Verify parses the token and checks signature, expiry, issuer, and that its
// kind equals expected. Any failure returns ErrInvalidToken.
func (c *Codec) Verify(tokenString string, expected Kind) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); ok {
			return c.publicKey, nil
		}
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); ok {
			return c.publicKey, nil
		}
		return nil, ErrInvalidToken
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Issuer != c.issuer {
		return nil, ErrInvalidToken
	}
	if claims.Kind != expected {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
