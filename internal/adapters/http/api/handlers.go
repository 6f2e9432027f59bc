package api

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/evently/internal/domain/model"
	"github.com/okian/evently/pkg/metrics"
)

type healthResponse struct {
	Status string `json:"status"`
}

type sessionResponse struct {
	LoggedIn bool   `json:"logged_in"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
	Initials string `json:"initials,omitempty"`
}

type teamsResponse struct {
	EventID int64        `json:"event_id"`
	Message string       `json:"message,omitempty"`
	Teams   []model.Team `json:"teams"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.GetStats())
}

// handleSession reports who is logged in. Opaque login fields are not exposed.
func (s *Server) handleSession(w http.ResponseWriter, _ *http.Request) {
	sess, ok := s.deps.Profile()
	if !ok {
		writeJSON(w, http.StatusOK, sessionResponse{})
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		LoggedIn: true,
		Name:     sess.Name,
		Email:    sess.Email,
		Avatar:   sess.Avatar,
		Initials: sess.Initials(),
	})
}

func (s *Server) handleTeams(w http.ResponseWriter, _ *http.Request) {
	teams := s.teams.Teams()
	if teams == nil {
		teams = []model.Team{}
	}
	writeJSON(w, http.StatusOK, teamsResponse{
		EventID: s.teams.LastEvent(),
		Message: s.teams.Message(),
		Teams:   teams,
	})
}

func metricsHandler() http.Handler {
	return promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
