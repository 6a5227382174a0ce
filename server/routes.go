package server

func (s *Server) initRoutes() {
	s.RegisterRouteHandler("GET "+RouteHealth, ChainMiddleware(s.Health(), s.APIMiddleware()...))

	// The provider redirects the browser back with GET, or POST for form_post
	s.RegisterRouteHandler("GET "+RouteAuthorize, ChainMiddleware(s.Authorize(), s.BrowserMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteCallback, ChainMiddleware(s.Callback(), s.BrowserMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteCallback, ChainMiddleware(s.Callback(), s.BrowserMiddleware()...))

	if s.integrations != nil {
		s.RegisterRouteHandler("GET "+RouteIntegrationStatus, ChainMiddleware(s.IntegrationStatus(), s.APIMiddleware()...))
	}
}
