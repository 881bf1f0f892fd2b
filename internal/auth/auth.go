// Package auth implements the bearer-token adapter for the HTTP surface
// (C8): parsing and validating the caller's JWT, either against a shared
// secret (local HMAC verification) or against a remote JWKS document
// fetched over HTTP.
//
// It mirrors the teacher's exchange.Auth: one struct holding the
// credentials/keys needed to verify a request, with a logger threaded
// through for the same structured-logging texture as the rest of the core.
package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"

	"scoremarket/internal/apperr"
	"scoremarket/internal/config"
)

// jwksCacheTTL bounds how long a fetched JWKS document is reused before a
// new kid triggers a refetch.
const jwksCacheTTL = 10 * time.Minute

// Claims is the subset of the bearer token's claims the core relies on.
type Claims struct {
	jwt.RegisteredClaims
	UID string `json:"uid"`
}

// Verifier validates bearer tokens for incoming HTTP requests.
type Verifier struct {
	sharedSecret []byte
	adminSecret  string
	jwksURL      string
	http         *resty.Client
	logger       *slog.Logger

	mu      sync.Mutex
	jwksAt  time.Time
	jwksDoc jwksDoc
}

// New builds a Verifier from the auth config. When cfg.JWKSURL is set the
// verifier fetches (and caches for 10 minutes) the remote signing keys;
// otherwise it verifies locally against cfg.SharedSecret.
func New(cfg config.AuthConfig, logger *slog.Logger) *Verifier {
	return &Verifier{
		sharedSecret: []byte(cfg.SharedSecret),
		adminSecret:  cfg.AdminSecret,
		jwksURL:      cfg.JWKSURL,
		http: resty.New().
			SetTimeout(5 * time.Second).
			SetRetryCount(2).
			SetRetryWaitTime(200 * time.Millisecond),
		logger: logger.With("component", "auth"),
	}
}

// Verify parses and validates a bearer token, returning the caller's uid.
func (v *Verifier) Verify(ctx context.Context, bearer string) (string, error) {
	if bearer == "" {
		return "", apperr.New(apperr.Unauthorized, "missing bearer token")
	}

	keyfunc := v.localKeyfunc
	if v.jwksURL != "" {
		keyfunc = v.jwksKeyfunc(ctx)
	}

	var claims Claims
	token, err := jwt.ParseWithClaims(bearer, &claims, keyfunc)
	if err != nil {
		return "", apperr.Wrap(apperr.Unauthorized, "invalid bearer token", err)
	}
	if !token.Valid {
		return "", apperr.New(apperr.Unauthorized, "invalid bearer token")
	}
	if claims.UID == "" {
		return "", apperr.New(apperr.Unauthorized, "token missing uid claim")
	}
	return claims.UID, nil
}

// VerifyAdmin validates the shared-secret admin header used by the
// bootstrap endpoints (/init_redis, /update_b).
func (v *Verifier) VerifyAdmin(header string) error {
	if v.adminSecret == "" || header != v.adminSecret {
		return apperr.New(apperr.Unauthorized, "invalid admin secret")
	}
	return nil
}

func (v *Verifier) localKeyfunc(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return v.sharedSecret, nil
}

// jwksDoc is the minimal shape of a JWKS document needed to resolve a kid to
// a verification key (RSA keys only, matching every pack example that ships
// a JWKS-based auth flow).
type jwksDoc struct {
	Keys []struct {
		Kid string `json:"kid"`
		N   string `json:"n"`
		E   string `json:"e"`
	} `json:"keys"`
}

// jwksKeyfunc fetches (and caches for 10 minutes) the JWKS document, then
// resolves the token's kid to an RSA public key.
func (v *Verifier) jwksKeyfunc(ctx context.Context) jwt.Keyfunc {
	return func(token *jwt.Token) (any, error) {
		kid, _ := token.Header["kid"].(string)
		key, err := v.resolveKey(ctx, kid)
		if err != nil {
			return nil, err
		}
		return key, nil
	}
}

func (v *Verifier) resolveKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	doc, err := v.fetchJWKS(ctx, kid)
	if err != nil {
		return nil, err
	}
	for _, k := range doc.Keys {
		if k.Kid != kid {
			continue
		}
		return rsaPublicKeyFromJWK(k.N, k.E)
	}
	return nil, fmt.Errorf("no matching jwks key for kid %q", kid)
}

// fetchJWKS returns the cached JWKS document if it already carries kid and
// is within jwksCacheTTL, otherwise refetches it from jwksURL.
func (v *Verifier) fetchJWKS(ctx context.Context, kid string) (jwksDoc, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if time.Since(v.jwksAt) < jwksCacheTTL && hasKid(v.jwksDoc, kid) {
		return v.jwksDoc, nil
	}

	var doc jwksDoc
	resp, err := v.http.R().
		SetContext(ctx).
		SetResult(&doc).
		Get(v.jwksURL)
	if err != nil {
		return jwksDoc{}, fmt.Errorf("fetch jwks: %w", err)
	}
	if resp.IsError() {
		return jwksDoc{}, fmt.Errorf("fetch jwks: status %d", resp.StatusCode())
	}

	v.jwksDoc = doc
	v.jwksAt = time.Now()
	return doc, nil
}

func hasKid(doc jwksDoc, kid string) bool {
	for _, k := range doc.Keys {
		if k.Kid == kid {
			return true
		}
	}
	return false
}

// rsaPublicKeyFromJWK decodes the base64url-encoded modulus (n) and
// exponent (e) fields of a JWK RSA key into a *rsa.PublicKey.
func rsaPublicKeyFromJWK(n, e string) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(n)
	if err != nil {
		return nil, fmt.Errorf("decode jwk modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(e)
	if err != nil {
		return nil, fmt.Errorf("decode jwk exponent: %w", err)
	}

	modulus := new(big.Int).SetBytes(nBytes)
	exponent := new(big.Int).SetBytes(eBytes)

	return &rsa.PublicKey{N: modulus, E: int(exponent.Int64())}, nil
}
