package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	gocmd "github.com/goliatone/go-command"
	goerrors "github.com/goliatone/go-errors"
	notifycommand "github.com/goliatone/go-order-notify/command"
	"github.com/goliatone/go-order-notify/core"
	notifyquery "github.com/goliatone/go-order-notify/query"
)

type rootResponse struct {
	Status        string `json:"status"`
	Service       string `json:"service"`
	Timestamp     string `json:"timestamp"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	PID           int    `json:"pid"`
}

type actionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Report  any    `json:"report,omitempty"`
}

func pingHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("pong"))
}

func (s *Server) rootHandler(w http.ResponseWriter, _ *http.Request) {
	now := s.now()
	writeJSON(w, http.StatusOK, rootResponse{
		Status:        "online",
		Service:       s.serviceName,
		Timestamp:     now.Format("2006-01-02T15:04:05Z07:00"),
		UptimeSeconds: int64(now.Sub(s.startedAt).Seconds()),
		PID:           s.pid,
	})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	report, err := s.facade.Queries().Health.Query(r.Context(), notifyquery.HealthMessage{})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	report, err := s.facade.Queries().Status.Query(r.Context(), notifyquery.StatusMessage{})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) logsHandler(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(r.URL.Query().Get("limit"))
	if !ok {
		s.writeError(w, r, goerrors.NewValidation("limit must be a number",
			goerrors.FieldError{Field: "limit", Message: "must be a number"},
		).WithTextCode(core.ErrorBadInput))
		return
	}
	entries, err := s.facade.Queries().Logs.Query(r.Context(), notifyquery.LogsMessage{Limit: limit})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": entries})
}

func (s *Server) orderHandler(w http.ResponseWriter, r *http.Request) {
	view, err := s.facade.Queries().Order.Query(r.Context(), notifyquery.OrderMessage{ID: chi.URLParam(r, "id")})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) checkNowHandler(w http.ResponseWriter, r *http.Request) {
	report, err := execute[notifycommand.RunCycleMessage, core.CycleReport](r.Context(), s.facade.Commands().RunCycle, notifycommand.RunCycleMessage{Source: notifycommand.SourceHTTP})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	message := "check completed"
	if report.Skipped {
		message = "check skipped: " + report.Reason
	}
	writeJSON(w, http.StatusOK, actionResponse{Success: true, Message: message, Report: report})
}

func (s *Server) processQueueHandler(w http.ResponseWriter, r *http.Request) {
	report, err := execute[notifycommand.DrainPendingMessage, core.DrainReport](r.Context(), s.facade.Commands().DrainPending, notifycommand.DrainPendingMessage{Source: notifycommand.SourceHTTP})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, actionResponse{Success: true, Message: "queue processed", Report: report})
}

func (s *Server) testMessageHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.facade.Commands().SendTest.Execute(r.Context(), notifycommand.SendTestMessage{Source: notifycommand.SourceHTTP}); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, actionResponse{Success: true, Message: "test message sent"})
}

func (s *Server) cleanupHandler(w http.ResponseWriter, r *http.Request) {
	report, err := execute[notifycommand.CleanupMessage, core.CleanupReport](r.Context(), s.facade.Commands().Cleanup, notifycommand.CleanupMessage{Source: notifycommand.SourceHTTP})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, actionResponse{Success: true, Message: "cleanup completed", Report: report})
}

// execute runs cmd with a result collector and returns what it stored.
func execute[T any, R any](ctx context.Context, cmd gocmd.Commander[T], msg T) (R, error) {
	collector := gocmd.NewResult[R]()
	if err := cmd.Execute(gocmd.ContextWithResult(ctx, collector), msg); err != nil {
		var zero R
		return zero, err
	}
	report, _ := collector.Load()
	return report, nil
}
