package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/alph853/IoT-smartOffice/internal/automation"
	"github.com/alph853/IoT-smartOffice/internal/history"
)

// handleGetAutomationMode returns the active automation mode.
func (s *Server) handleGetAutomationMode(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"mode": s.automation.Mode()})
}

// handleSetAutomationMode switches the automation mode and returns the
// transitions the switch caused.
func (s *Server) handleSetAutomationMode(w http.ResponseWriter, r *http.Request) {
	var req SetModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	mode, err := automation.ParseMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
		return
	}

	transitions := s.automation.SetMode(r.Context(), mode)
	if transitions == nil {
		transitions = []automation.Transition{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"mode":        s.automation.Mode(),
		"transitions": transitions,
	})
}

// handleGetThresholds returns the threshold table keyed by device type.
func (s *Server) handleGetThresholds(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"thresholds": s.automation.Thresholds()})
}

// handleAutomationHistory returns the most recent journal entries.
// ?limit= bounds each list.
func (s *Server) handleAutomationHistory(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeUnavailable(w, "history journal is disabled")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeBadRequest(w, "invalid limit: "+raw)
			return
		}
		limit = n
	}

	transitions, err := s.journal.RecentTransitions(r.Context(), limit)
	if err != nil {
		s.logger.Error("reading transition history failed", "error", err)
		writeInternalError(w, "failed to read transition history")
		return
	}
	commands, err := s.journal.RecentCommands(r.Context(), limit)
	if err != nil {
		s.logger.Error("reading command history failed", "error", err)
		writeInternalError(w, "failed to read command history")
		return
	}
	if transitions == nil {
		transitions = []history.TransitionEntry{}
	}
	if commands == nil {
		commands = []history.CommandEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"transitions": transitions,
		"commands":    commands,
	})
}
