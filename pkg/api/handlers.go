package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"client-manager/pkg/reminders"
)

func (s *Server) handleBusinessAnalytics(w http.ResponseWriter, r *http.Request) {
	summary, err := s.analytics.Summary(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleCheckReminders(w http.ResponseWriter, r *http.Request) {
	candidates, err := s.reminders.Check(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if candidates == nil {
		candidates = []reminders.Candidate{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"eligible_clients": candidates,
		"total_count":      len(candidates),
	})
}

type sendRequest struct {
	ClientIDs []int64 `json:"client_ids"`
}

func (s *Server) handleSendReminders(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	// An empty body sends to every eligible client.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.fail(w, r, fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err))
		return
	}
	report, err := s.reminders.Send(r.Context(), req.ClientIDs)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleReminderHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.reminders.History(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if history == nil {
		writeJSON(w, http.StatusOK, []struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleReminderStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.reminders.Stats(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	p, err := s.clients.GetClientProject(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := s.documents.Invoice(&buf, p); err != nil {
		s.fail(w, r, err)
		return
	}
	writeHTML(w, buf.Bytes())
}

func (s *Server) handleReceipt(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	p, err := s.clients.GetClientProject(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var buf bytes.Buffer
	issued, err := s.documents.Receipt(&buf, p)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !issued {
		s.logger.Debug("Receipt requested for unpaid project", zap.Int64("client_id", id))
	}
	writeHTML(w, buf.Bytes())
}

func writeHTML(w http.ResponseWriter, page []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(page)
}

func (s *Server) handleRunRecurring(w http.ResponseWriter, r *http.Request) {
	if err := s.jobs.RunRecurring(r.Context()); err != nil {
		s.logger.Error("Recurring job failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"message": "Recurring tasks completed successfully",
	})
}

func (s *Server) handleRunReminders(w http.ResponseWriter, r *http.Request) {
	report, err := s.jobs.RunReminders(r.Context())
	if err != nil {
		s.logger.Error("Reminder job failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	message := fmt.Sprintf("Processed %d reminder(s) successfully", report.TotalSent)
	if report.TotalSent == 0 && len(report.Failed) == 0 {
		message = "No reminders needed at this time"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":                true,
		"message":           message,
		"reminders_sent":    report.TotalSent,
		"processed_clients": report.Sent,
		"failed_clients":    report.Failed,
	})
}
