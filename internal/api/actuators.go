package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/alph853/IoT-smartOffice/internal/command"
	"github.com/alph853/IoT-smartOffice/internal/store"
)

// SetStateRequest is the body of POST /actuators/{id}/state.
type SetStateRequest struct {
	On *bool `json:"on"`
}

// SetModeRequest is the body of PUT /actuators/{id}/mode and
// PUT /automation/mode.
type SetModeRequest struct {
	Mode string `json:"mode"`
}

// SetColorRequest is the body of POST /actuators/{id}/color.
type SetColorRequest struct {
	Color string `json:"color"`
}

// handleSetActuatorState switches an actuator on or off.
func (s *Server) handleSetActuatorState(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req SetStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.On == nil {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "on is required")
		return
	}

	if err := s.commands.SetActuatorState(r.Context(), id, *req.On); err != nil {
		s.writeCommandError(w, err)
		return
	}
	s.writeDevice(w, id)
}

// handleSetActuatorMode changes an actuator's mode.
func (s *Server) handleSetActuatorMode(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req SetModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.commands.SetMode(r.Context(), id, req.Mode); err != nil {
		s.writeCommandError(w, err)
		return
	}
	s.writeDevice(w, id)
}

// handleSetActuatorColor turns a light on with a named colour.
func (s *Server) handleSetActuatorColor(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req SetColorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.commands.SetLightColor(r.Context(), id, req.Color); err != nil {
		s.writeCommandError(w, err)
		return
	}
	s.writeDevice(w, id)
}

func (s *Server) writeDevice(w http.ResponseWriter, actuatorID int) {
	dev, ok := s.stores.Actuators.Device(actuatorID)
	if !ok {
		writeNotFound(w, "actuator not found")
		return
	}
	writeJSON(w, http.StatusOK, dev)
}

// writeCommandError maps dispatcher errors to HTTP responses. Backend
// failures carry the dispatcher's user-facing message.
func (s *Server) writeCommandError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, command.ErrActuatorNotFound):
		writeNotFound(w, "actuator not found")
	case errors.Is(err, store.ErrMCUNotFound):
		writeNotFound(w, "mcu not found")
	case errors.Is(err, command.ErrInvalidMode), errors.Is(err, command.ErrUnknownColor):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case errors.Is(err, command.ErrDebounced):
		writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, command.ErrNotDelivered):
		writeError(w, http.StatusServiceUnavailable, ErrCodeNotDelivered, err.Error())
	default:
		s.logger.Warn("command failed", "error", err)
		writeError(w, http.StatusBadGateway, ErrCodeBackend, err.Error())
	}
}
