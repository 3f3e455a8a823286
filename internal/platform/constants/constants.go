// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package constants holds the fixed values shared across layers: server timing,
request guard settings, session cookie names and header names. Anything an
operator may want to tune belongs in config instead.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "trailhead-api"
	AppVersion = "0.1.0-dev"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout is the deadline for the entire request lifecycle.
	GlobalRequestTimeout = 30 * time.Second

	// ShutdownTimeout is how long we wait for in-flight requests to complete during shutdown.
	ShutdownTimeout = 10 * time.Second
)

// # Rate Limiting

const (
	// RateLimitCleanupInterval is how often idle client buckets are evicted from memory.
	RateLimitCleanupInterval = 1 * time.Minute

	// RateLimitMessage is returned once a client IP exhausts its bucket.
	RateLimitMessage = "Too many requests from this IP, please try again in an hour!"
)

// PollutionWhitelist lists query parameters that may legitimately repeat
// (e.g. ?duration=5&duration=9). All other repeated parameters collapse to the last value.
var PollutionWhitelist = []string{
	"duration",
	"ratingsCount",
	"ratingsAverage",
	"maxGroupSize",
	"difficulty",
	"price",
}

// # Authentication

const (
	// AuthIssuer is the standard 'iss' claim in session tokens.
	AuthIssuer = "trailhead.app"

	// SessionCookieName is the cookie carrying the session token.
	SessionCookieName = "jwt"

	// LoggedOutCookieValue replaces the session token on logout.
	LoggedOutCookieValue = "loggedout"

	// LoggedOutCookieTTL is how long the logout placeholder cookie lives.
	LoggedOutCookieTTL = 10 * time.Second

	// PasswordResetTTL is how long a password reset token stays valid.
	PasswordResetTTL = 10 * time.Minute
)

// # HTTP Headers

const (
	HeaderXRequestID    = "X-Request-ID"
	HeaderOrigin        = "Origin"
	HeaderAuthorization = "Authorization"
	HeaderRetryAfter    = "Retry-After"
)

// # Redis Prefixes

const (
	RedisPrefixRateLimit = "ratelimit:"
)
