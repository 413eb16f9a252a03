package middleware

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// IdentityConfig holds AWS Cognito configuration for JWT validation.
type IdentityConfig struct {
	Region     string
	UserPoolID string
	ClientID   string // app client id for audience validation

	// JWKSURL overrides the well-known Cognito JWKS endpoint. Tests use it
	// to point at a local server.
	JWKSURL string
}

// IdentityClaims are the verified claims attached to admin requests.
type IdentityClaims struct {
	jwt.RegisteredClaims
	Email    string   `json:"email"`
	Groups   []string `json:"cognito:groups"`
	TokenUse string   `json:"token_use"`
	ClientID string   `json:"client_id"`
	Username string   `json:"cognito:username"`
}

type contextKey string

const identityClaimsKey contextKey = "identityClaims"

// jwksCache caches the JWKS keys per issuer.
type jwksCache struct {
	mu      sync.RWMutex
	keys    map[string]*rsa.PublicKey
	expires time.Time
}

var (
	jwksCaches   = make(map[string]*jwksCache)
	jwksCachesMu sync.RWMutex
)

// IdentityJWT validates bearer JWTs issued by AWS Cognito and attaches the
// verified claims to the request context. It accepts both ID tokens and
// access tokens. An unconfigured pool rejects every request.
func IdentityJWT(cfg IdentityConfig) func(http.Handler) http.Handler {
	if cfg.Region == "" || cfg.UserPoolID == "" {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeAuthError(w, http.StatusUnauthorized, "identity verification not configured")
			})
		}
	}

	issuer := fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", cfg.Region, cfg.UserPoolID)
	jwksURL := cfg.JWKSURL
	if jwksURL == "" {
		jwksURL = issuer + "/.well-known/jwks.json"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
				writeAuthError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}
			tokenString := strings.TrimPrefix(auth, "Bearer ")

			token, _, err := jwt.NewParser().ParseUnverified(tokenString, &IdentityClaims{})
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "invalid token format")
				return
			}
			kid, ok := token.Header["kid"].(string)
			if !ok {
				writeAuthError(w, http.StatusUnauthorized, "missing key id in token")
				return
			}

			pubKey, err := getPublicKey(jwksURL, kid, issuer)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "unable to verify token signature")
				return
			}

			claims := &IdentityClaims{}
			validated, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return pubKey, nil
			}, jwt.WithIssuer(issuer), jwt.WithExpirationRequired())
			if err != nil || !validated.Valid {
				writeAuthError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			if cfg.ClientID != "" {
				switch claims.TokenUse {
				case "id":
					aud, _ := claims.GetAudience()
					found := false
					for _, a := range aud {
						if a == cfg.ClientID {
							found = true
							break
						}
					}
					if !found {
						writeAuthError(w, http.StatusUnauthorized, "invalid audience")
						return
					}
				case "access":
					if claims.ClientID != cfg.ClientID {
						writeAuthError(w, http.StatusUnauthorized, "invalid client_id")
						return
					}
				}
			}

			ctx := context.WithValue(r.Context(), identityClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext retrieves verified identity claims, if any.
func IdentityFromContext(ctx context.Context) (*IdentityClaims, bool) {
	claims, ok := ctx.Value(identityClaimsKey).(*IdentityClaims)
	return claims, ok
}

func getPublicKey(jwksURL, kid, issuer string) (*rsa.PublicKey, error) {
	jwksCachesMu.RLock()
	cache, exists := jwksCaches[issuer]
	jwksCachesMu.RUnlock()

	if exists {
		cache.mu.RLock()
		if time.Now().Before(cache.expires) {
			if key, ok := cache.keys[kid]; ok {
				cache.mu.RUnlock()
				return key, nil
			}
		}
		cache.mu.RUnlock()
	}

	keys, err := fetchJWKS(jwksURL)
	if err != nil {
		return nil, err
	}

	jwksCachesMu.Lock()
	jwksCaches[issuer] = &jwksCache{
		keys:    keys,
		expires: time.Now().Add(1 * time.Hour),
	}
	jwksCachesMu.Unlock()

	key, ok := keys[kid]
	if !ok {
		return nil, fmt.Errorf("key %s not found in JWKS", kid)
	}
	return key, nil
}

type jwksResponse struct {
	Keys []jwkKey `json:"keys"`
}

type jwkKey struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

func fetchJWKS(url string) (map[string]*rsa.PublicKey, error) {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JWKS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("JWKS request failed with status %d", resp.StatusCode)
	}

	var jwks jwksResponse
	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		return nil, fmt.Errorf("failed to decode JWKS: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey)
	for _, key := range jwks.Keys {
		if key.Kty != "RSA" {
			continue
		}
		pubKey, err := parseRSAPublicKey(key.N, key.E)
		if err != nil {
			continue
		}
		keys[key.Kid] = pubKey
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("no valid RSA keys found in JWKS")
	}
	return keys, nil
}

func parseRSAPublicKey(nStr, eStr string) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(nStr)
	if err != nil {
		return nil, fmt.Errorf("failed to decode modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(eStr)
	if err != nil {
		return nil, fmt.Errorf("failed to decode exponent: %w", err)
	}

	n := new(big.Int).SetBytes(nBytes)
	e := 0
	for _, b := range eBytes {
		e = e<<8 + int(b)
	}
	return &rsa.PublicKey{N: n, E: e}, nil
}

func writeAuthError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{"ok": false, "error": msg})
}
