package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/alph853/IoT-smartOffice/internal/domain"
	"github.com/alph853/IoT-smartOffice/internal/store"
)

// RoomView is a room with its devices and latest readings.
type RoomView struct {
	domain.Room
	Devices  []domain.Device    `json:"control_devices"`
	Readings map[string]float64 `json:"readings"`
}

// UpdateMCURequest is the body of PATCH /mcus/{id}. Absent fields keep
// their current value.
type UpdateMCURequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	FWVersion   *string `json:"fw_version"`
	Model       *string `json:"model"`
}

func (s *Server) roomView(room domain.Room, devices []domain.Device) RoomView {
	if devices == nil {
		devices = []domain.Device{}
	}
	return RoomView{
		Room:     room,
		Devices:  devices,
		Readings: s.automation.Readings(room.ID).Map(),
	}
}

// handleListRooms returns every room with its MCUs.
func (s *Server) handleListRooms(w http.ResponseWriter, _ *http.Request) {
	var rooms []domain.Room
	devices := make(map[int][]domain.Device)
	s.stores.View(func(v store.View) {
		rooms = v.Rooms()
		for _, room := range rooms {
			devices[room.ID] = v.DevicesForRoom(room.ID)
		}
	})

	views := make([]RoomView, 0, len(rooms))
	for _, room := range rooms {
		views = append(views, s.roomView(room, devices[room.ID]))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"rooms": views,
		"count": len(views),
	})
}

// handleGetRoom returns one room.
func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var (
		room    domain.Room
		devices []domain.Device
		found   bool
	)
	s.stores.View(func(v store.View) {
		if room, found = v.Room(id); found {
			devices = v.DevicesForRoom(id)
		}
	})
	if !found {
		writeNotFound(w, "room not found")
		return
	}
	writeJSON(w, http.StatusOK, s.roomView(room, devices))
}

// handleListDevices returns the device projections, optionally for one
// room (?room_id=).
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	var devices []domain.Device
	if raw := r.URL.Query().Get("room_id"); raw != "" {
		roomID, err := strconv.Atoi(raw)
		if err != nil {
			writeBadRequest(w, "invalid room_id: "+raw)
			return
		}
		devices = s.stores.Actuators.DevicesForRoom(roomID)
	} else {
		devices = s.stores.Actuators.Devices()
	}
	if devices == nil {
		devices = []domain.Device{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"devices": devices,
		"count":   len(devices),
	})
}

// handleUpdateMCU edits the descriptive fields of an MCU.
func (s *Server) handleUpdateMCU(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req UpdateMCURequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	mcu, _, found := s.stores.Rooms.FindMCU(id)
	if !found {
		writeNotFound(w, "mcu not found")
		return
	}

	if req.Name != nil {
		if *req.Name == "" {
			writeError(w, http.StatusBadRequest, ErrCodeValidation, "name must not be empty")
			return
		}
		mcu.Name = *req.Name
	}
	if req.Description != nil {
		mcu.Description = *req.Description
	}
	if req.FWVersion != nil {
		mcu.FWVersion = *req.FWVersion
	}
	if req.Model != nil {
		mcu.Model = *req.Model
	}

	if err := s.commands.UpdateMCU(r.Context(), mcu); err != nil {
		s.writeCommandError(w, err)
		return
	}
	updated, _, _ := s.stores.Rooms.FindMCU(id)
	writeJSON(w, http.StatusOK, updated)
}

// handleEnableMCU enables an MCU.
func (s *Server) handleEnableMCU(w http.ResponseWriter, r *http.Request) {
	s.switchMCU(w, r, true)
}

// handleDisableMCU disables an MCU.
func (s *Server) handleDisableMCU(w http.ResponseWriter, r *http.Request) {
	s.switchMCU(w, r, false)
}

func (s *Server) switchMCU(w http.ResponseWriter, r *http.Request, enable bool) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if _, _, found := s.stores.Rooms.FindMCU(id); !found {
		writeNotFound(w, "mcu not found")
		return
	}

	var err error
	if enable {
		err = s.commands.EnableMCU(r.Context(), id)
	} else {
		err = s.commands.DisableMCU(r.Context(), id)
	}
	if err != nil {
		s.writeCommandError(w, err)
		return
	}
	mcu, _, _ := s.stores.Rooms.FindMCU(id)
	writeJSON(w, http.StatusOK, mcu)
}
