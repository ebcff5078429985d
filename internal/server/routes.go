package server

import (
	"net/http"

	"github.com/ternarybob/horarium/internal/handlers"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// API routes - Job management
	mux.HandleFunc("/api/jobs", s.handleJobsCollection)  // GET (list), POST (create)
	mux.HandleFunc("/api/jobs/", s.handleJobItem)        // GET/PUT/DELETE /{id}

	// API routes - Operational
	mux.HandleFunc("/api/health", s.app.StatusHandler.HealthHandler)
	mux.HandleFunc("/api/version", s.app.StatusHandler.VersionHandler)

	// Unknown API paths get a JSON 404 rather than the mux default
	mux.HandleFunc("/api/", s.handleAPINotFound)

	return mux
}

// handleJobsCollection routes /api/jobs
func (s *Server) handleJobsCollection(w http.ResponseWriter, r *http.Request) {
	RouteResourceCollection(w, r,
		s.app.JobHandler.ListJobsHandler,
		s.app.JobHandler.CreateJobHandler,
	)
}

// handleJobItem routes /api/jobs/{id}
func (s *Server) handleJobItem(w http.ResponseWriter, r *http.Request) {
	RouteResourceItem(w, r,
		s.app.JobHandler.GetJobHandler,
		s.app.JobHandler.UpdateJobHandler,
		s.app.JobHandler.DeleteJobHandler,
	)
}

// handleAPINotFound returns a JSON 404 for unmatched API routes
func (s *Server) handleAPINotFound(w http.ResponseWriter, r *http.Request) {
	handlers.WriteError(w, http.StatusNotFound, "Not found: "+r.URL.Path)
}
