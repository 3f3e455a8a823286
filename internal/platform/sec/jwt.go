// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (hashing, token signing) from
// the domain logic. Services receive a [TokenService] and a [Hasher] through
// their constructors and never touch key material directly.
package sec

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenExpired is returned by [TokenService.Verify] for well-formed tokens past their expiry.
	ErrTokenExpired = errors.New("sec: token expired")
	// ErrTokenInvalid is returned by [TokenService.Verify] for every other rejection.
	ErrTokenInvalid = errors.New("sec: token invalid")
)

// AuthClaims represents the payload embedded inside a session token.
//
// The standard "iat" claim has one-second resolution. IssuedAtMilli carries the
// issue time in milliseconds so a password change in the same second as a login
// can still be ordered against it.
type AuthClaims struct {
	jwt.RegisteredClaims

	// Custom application claims are abbreviated to keep the JWT payload small.
	UserID        string `json:"uid"`
	IssuedAtMilli int64  `json:"iatm,omitempty"`
}

// IssuedAt returns the most precise issue time available in the claims.
func (claims *AuthClaims) IssuedAt() time.Time {
	if claims.IssuedAtMilli > 0 {
		return time.UnixMilli(claims.IssuedAtMilli)
	}
	if claims.RegisteredClaims.IssuedAt != nil {
		return claims.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// TokenService handles generation and verification of session tokens using RS256.
type TokenService struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	issuer     string
	timeToLive time.Duration
	now        func() time.Time
}

// NewTokenService creates a [TokenService] from PEM-encoded RSA keys.
func NewTokenService(privateKeyPEM, publicKeyPEM []byte, issuer string, timeToLive time.Duration) (*TokenService, error) {
	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to parse private key: %w", err)
	}

	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to parse public key: %w", err)
	}

	return &TokenService{
		privateKey: privateKey,
		publicKey:  publicKey,
		issuer:     issuer,
		timeToLive: timeToLive,
		now:        time.Now,
	}, nil
}

// LoadTokenService reads the RSA key pair from the filesystem and builds a [TokenService].
func LoadTokenService(privateKeyPath, publicKeyPath, issuer string, timeToLive time.Duration) (*TokenService, error) {
	privateKeyData, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to read private key from %s: %w", privateKeyPath, err)
	}

	publicKeyData, err := os.ReadFile(publicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to read public key from %s: %w", publicKeyPath, err)
	}

	return NewTokenService(privateKeyData, publicKeyData, issuer, timeToLive)
}

// TimeToLive returns the configured token lifetime.
func (service *TokenService) TimeToLive() time.Duration {
	return service.timeToLive
}

// Issue creates a signed token naming principalID as its subject.
func (service *TokenService) Issue(principalID string) (string, error) {
	currentTime := service.now()
	claims := AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principalID,
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(service.timeToLive)),
		},
		UserID:        principalID,
		IssuedAtMilli: currentTime.UnixMilli(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signedToken, err := token.SignedString(service.privateKey)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign token: %w", err)
	}

	return signedToken, nil
}

// Verify checks the signature, algorithm, issuer and expiry of a token string.
//
// Returns:
//   - [ErrTokenExpired] when the token is authentic but expired
//   - [ErrTokenInvalid] for any other failure
func (service *TokenService) Verify(tokenString string) (*AuthClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AuthClaims{},
		func(token *jwt.Token) (any, error) {
			return service.publicKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(service.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(service.now),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*AuthClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, fmt.Errorf("%w: missing claims", ErrTokenInvalid)
	}

	return claims, nil
}
