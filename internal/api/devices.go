package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hearthwire/hearth-core/internal/audit"
	"github.com/hearthwire/hearth-core/internal/device"
)

// handleListDevices returns every known device record.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.devices.ListDevices(r.Context())
	if err != nil {
		if errors.Is(err, device.ErrStoreUnavailable) {
			writeError(w, http.StatusInternalServerError, ErrCodeStoreUnavailable, "StoreUnavailable")
			return
		}
		s.logger.Error("listing devices failed", "error", err)
		writeInternalError(w, "ListFailed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"devices": devices,
		"count":   len(devices),
	})
}

// controlRequest is the body for POST /device/{id}.
type controlRequest struct {
	Status string `json:"status"`
}

// handleControlDevice publishes a command to one device.
func (s *Server) handleControlDevice(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "id")

	var req controlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "MalformedRequest")
		return
	}

	ack, err := s.devices.ControlDevice(r.Context(), deviceID, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, device.ErrMissingStatus):
			writeBadRequest(w, "MissingStatus")
		case errors.Is(err, device.ErrInvalidDeviceID):
			writeBadRequest(w, "InvalidDeviceID")
		case errors.Is(err, device.ErrBridgeUnavailable):
			writeError(w, http.StatusInternalServerError, ErrCodeBridgeDown, "BridgeUnavailable")
		default:
			s.logger.Error("device command failed", "device_id", deviceID, "error", err)
			writeInternalError(w, "CommandFailed")
		}
		return
	}

	var userID string
	if claims := sessionFromContext(r.Context()); claims != nil {
		userID = claims.Subject
	}
	s.recordActivity(r.Context(), audit.Entry{
		Action:   audit.ActionCommand,
		UserID:   userID,
		DeviceID: deviceID,
		Details:  map[string]any{"status": req.Status},
	})

	writeJSON(w, http.StatusOK, ack)
}

// preferencesRequest is the body for POST /preferences.
type preferencesRequest struct {
	UserID      string         `json:"user_id"`
	Preferences map[string]any `json:"preferences"`
}

// handleSavePreferences upserts a user's preference document.
func (s *Server) handleSavePreferences(w http.ResponseWriter, r *http.Request) {
	var req preferencesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "MalformedRequest")
		return
	}

	// Default to the caller's own account when no user_id is given.
	if req.UserID == "" {
		if claims := sessionFromContext(r.Context()); claims != nil {
			req.UserID = claims.Subject
		}
	}

	err := s.devices.SavePreferences(r.Context(), req.UserID, req.Preferences)
	if err != nil {
		switch {
		case errors.Is(err, device.ErrMissingUserID):
			writeBadRequest(w, "MissingUserID")
		case errors.Is(err, device.ErrMissingPreferences):
			writeBadRequest(w, "MissingPreferences")
		case errors.Is(err, device.ErrStoreUnavailable):
			writeError(w, http.StatusInternalServerError, ErrCodeStoreUnavailable, "StoreUnavailable")
		default:
			s.logger.Error("saving preferences failed", "error", err)
			writeInternalError(w, "SaveFailed")
		}
		return
	}

	s.recordActivity(r.Context(), audit.Entry{
		Action:  audit.ActionPreferences,
		UserID:  req.UserID,
		Details: map[string]any{"keys": len(req.Preferences)},
	})

	writeJSON(w, http.StatusOK, map[string]any{"message": "Preferences saved"})
}

// handleGetPreferences returns a user's stored preference document.
func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	doc, err := s.devices.GetPreferences(r.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, device.ErrDeviceNotFound):
			writeNotFound(w, "PreferencesNotFound")
		case errors.Is(err, device.ErrMissingUserID):
			writeBadRequest(w, "MissingUserID")
		case errors.Is(err, device.ErrStoreUnavailable):
			writeError(w, http.StatusInternalServerError, ErrCodeStoreUnavailable, "StoreUnavailable")
		default:
			s.logger.Error("getting preferences failed", "error", err)
			writeInternalError(w, "GetFailed")
		}
		return
	}

	writeJSON(w, http.StatusOK, doc)
}
