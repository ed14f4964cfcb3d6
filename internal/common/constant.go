// Package common contains shared constants and sentinel errors used across
// LMS components.
package common

// AuthorizationHeaderName is the HTTP header and gRPC metadata key carrying
// the bearer access token on inbound requests.
const AuthorizationHeaderName = "authorization"

// BearerScheme is the scheme prefix expected in AuthorizationHeaderName.
const BearerScheme = "Bearer"
