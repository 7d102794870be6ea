package server

// setupRoutes registers all API routes.
func (s *Server) setupRoutes() {
	s.router.Post("/generate/stream", s.handleGenerateStream)
	s.router.Post("/generate/image", s.handleGenerateImage)
	s.router.Get("/models", s.handleListModels)

	s.router.Post("/scrape", s.handleScrape)
	s.router.Post("/search", s.handleSearch)
}
