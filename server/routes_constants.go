package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// OAuth connect flow. The callback path is also the default redirect URI
	// registered with each provider.
	RouteAuthorize = "/oauth/{provider}/authorize"
	RouteCallback  = "/oauth/{provider}/callback"

	// Integration status (read-only, never returns tokens)
	RouteIntegrationStatus = "/integrations/{service}/status"

	RouteHealth = "/healthz"
)
