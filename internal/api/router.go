// internal/api/router.go

// Package api exposes the portal's HTTP surface: the wizard endpoints, the
// permit read views, account operations and the operational probes.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires all routes onto a mux router.
func NewRouter(h *Handlers) *mux.Router {
	r := mux.NewRouter()

	r.Use(h.logRequests)

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/wizard", h.StartWizard).Methods(http.MethodPost)
	api.HandleFunc("/wizard/renewal", h.StartRenewal).Methods(http.MethodPost)
	api.HandleFunc("/wizard/{sessionId}", h.GetWizard).Methods(http.MethodGet)
	api.HandleFunc("/wizard/{sessionId}", h.DropWizard).Methods(http.MethodDelete)
	api.HandleFunc("/wizard/{sessionId}/advance", h.Advance).Methods(http.MethodPost)
	api.HandleFunc("/wizard/{sessionId}/retreat", h.Retreat).Methods(http.MethodPost)
	api.HandleFunc("/wizard/{sessionId}/jump", h.Jump).Methods(http.MethodPost)
	api.HandleFunc("/wizard/{sessionId}/submit", h.Submit).Methods(http.MethodPost)

	api.HandleFunc("/permits", h.ListPermits).Methods(http.MethodGet)
	api.HandleFunc("/permits/{id}", h.GetPermit).Methods(http.MethodGet)
	api.HandleFunc("/permits/{id}/documents/{type}", h.DownloadDocument).Methods(http.MethodGet)

	api.HandleFunc("/account/deletion", h.RequestDeletion).Methods(http.MethodPost)
	api.HandleFunc("/account/export", h.ExportData).Methods(http.MethodGet)

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/ready", h.Ready).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return r
}
