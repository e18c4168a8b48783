// Package auth provides optional bearer-token authentication for the
// query endpoints.
//
// # Tokens
//
// Tokens are JWTs signed with HS256 using the configured jwt_secret. The
// subject ("sub") claim names the caller; expiry is enforced. Tokens are
// minted with the sibyl-gateway token subcommand.
//
// # Middleware
//
// Middleware wraps a handler and rejects requests without a valid
// Authorization: Bearer header. When no jwt_secret is configured the
// gateway skips the middleware entirely and logs a warning.
package auth
