// Package auth provides bearer token authentication for the blueprint API.
//
// It implements a 2-tier role model (viewer → editor) with:
//   - HS256-signed JWT service tokens, validated by signature only
//   - Static role checks (compile-time, no database lookup)
//
// Tokens are minted out of band with the shared secret; the service never
// stores accounts or sessions. The token subject names the client and is
// recorded against every mutation in the audit trail.
package auth
