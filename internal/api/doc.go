// Package api provides the HTTP surface for Hearth Core.
//
// It exposes account signup/login, session logout, device listing,
// device commands, and user preferences to browsers and API clients.
// Browser clients authenticate with an HttpOnly session cookie; API
// clients use Authorization: Bearer with the same JWT.
//
// The server follows the same lifecycle pattern as other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
