package service

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

const (
	appleIssuer   = "https://appleid.apple.com"
	appleAuthURL  = "https://appleid.apple.com/auth/authorize"
	appleTokenURL = "https://appleid.apple.com/auth/token"
	appleKeysURL  = "https://appleid.apple.com/auth/keys"

	appleKeysTTL = 24 * time.Hour
	// appleKeysMinRefresh limits refetches triggered by unknown key ids
	appleKeysMinRefresh = time.Minute
)

var ErrInvalidAppleToken = errors.New("invalid Apple identity token")

// AppleConfig configures Sign in with Apple
type AppleConfig struct {
	ClientID     string
	ClientSecret string
	KeysURL      string
	TokenURL     string
}

// AppleIdentity is the verified content of an Apple identity token
type AppleIdentity struct {
	Subject string
	Email   string
}

type appleTokenClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	EmailVerified any    `json:"email_verified"`
	Nonce         string `json:"nonce"`
}

type appleJWK struct {
	Keys []appleJWKKey `json:"keys"`
}

type appleJWKKey struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// AppleVerifier checks Apple identity tokens against Apple's published keys
type AppleVerifier struct {
	clientID string
	keysURL  string
	client   *http.Client
	oauth    *oauth2.Config

	mu        sync.Mutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

// NewAppleVerifier creates a verifier. A nil client uses http.DefaultClient.
func NewAppleVerifier(cfg AppleConfig, client *http.Client) *AppleVerifier {
	if client == nil {
		client = http.DefaultClient
	}
	if cfg.KeysURL == "" {
		cfg.KeysURL = appleKeysURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = appleTokenURL
	}
	return &AppleVerifier{
		clientID: cfg.ClientID,
		keysURL:  cfg.KeysURL,
		client:   client,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:   appleAuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
			Scopes: []string{"name", "email"},
		},
	}
}

// ExchangeCode redeems an authorization code and returns the identity token it carries
func (v *AppleVerifier) ExchangeCode(ctx context.Context, code string) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, v.client)
	token, err := v.oauth.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("failed to exchange Apple authorization code: %w", err)
	}
	idToken, _ := token.Extra("id_token").(string)
	if idToken == "" {
		return "", fmt.Errorf("%w: token response has no id_token", ErrInvalidAppleToken)
	}
	return idToken, nil
}

// Verify parses and validates an identity token
func (v *AppleVerifier) Verify(ctx context.Context, idToken string) (*AppleIdentity, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithIssuer(appleIssuer),
		jwt.WithAudience(v.clientID),
		jwt.WithExpirationRequired(),
	)
	claims := &appleTokenClaims{}

	_, err := parser.ParseWithClaims(idToken, claims, func(token *jwt.Token) (interface{}, error) {
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing key id")
		}
		return v.publicKey(ctx, kid)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAppleToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidAppleToken)
	}

	return &AppleIdentity{Subject: claims.Subject, Email: claims.Email}, nil
}

func (v *AppleVerifier) publicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	stale := time.Since(v.fetchedAt) > appleKeysTTL
	if key, ok := v.keys[kid]; ok && !stale {
		return key, nil
	}
	if !stale && time.Since(v.fetchedAt) < appleKeysMinRefresh {
		return nil, errors.New("Apple public key not found")
	}

	keys, err := v.fetchKeys(ctx)
	if err != nil {
		return nil, err
	}
	v.keys = keys
	v.fetchedAt = time.Now()

	key, ok := keys[kid]
	if !ok {
		return nil, errors.New("Apple public key not found")
	}
	return key, nil
}

func (v *AppleVerifier) fetchKeys(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, v.keysURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := v.client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch Apple public keys: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch Apple public keys: status %d", resp.StatusCode)
	}

	var jwk appleJWK
	if err := json.NewDecoder(resp.Body).Decode(&jwk); err != nil {
		return nil, fmt.Errorf("failed to decode Apple public keys: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(jwk.Keys))
	for _, key := range jwk.Keys {
		if key.Kty != "RSA" {
			continue
		}
		modulusBytes, err := base64.RawURLEncoding.DecodeString(key.N)
		if err != nil {
			return nil, err
		}
		exponentBytes, err := base64.RawURLEncoding.DecodeString(key.E)
		if err != nil {
			return nil, err
		}
		exponent := 0
		for _, b := range exponentBytes {
			exponent = exponent*256 + int(b)
		}
		keys[key.Kid] = &rsa.PublicKey{
			N: new(big.Int).SetBytes(modulusBytes),
			E: exponent,
		}
	}
	return keys, nil
}
