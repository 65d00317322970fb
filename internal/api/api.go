// Package api is the HTTP surface the panel UI calls into. It exposes the
// mode state machine, the named cycles, and the pressure sensor; it renders
// nothing and holds no state of its own.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/vst-systems/gm-controller/internal/controllers/cyclecontroller"
	"github.com/vst-systems/gm-controller/internal/controllers/modecontroller"
	"github.com/vst-systems/gm-controller/internal/model"
	"github.com/vst-systems/gm-controller/internal/pressure"
)

type Server struct {
	modes    *modecontroller.Controller
	cycles   *cyclecontroller.Scheduler
	sensor   *pressure.Sensor
	readings *pressure.Service
}

type StatusResponse struct {
	Mode     string          `json:"mode"`
	Pins     model.PinValues `json:"pins"`
	Pressure *float64        `json:"pressure,omitempty"`
}

type ModeRequest struct {
	Mode string `json:"mode"`
}

type PressureResponse struct {
	Pressure float64 `json:"pressure"`
}

type CalibrateResponse struct {
	ADCZero float64 `json:"adc_zero"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func NewServer(modes *modecontroller.Controller, cycles *cyclecontroller.Scheduler, sensor *pressure.Sensor, readings *pressure.Service) *Server {
	return &Server{
		modes:    modes,
		cycles:   cycles,
		sensor:   sensor,
		readings: readings,
	}
}

func (s *Server) Start(port int) error {
	addr := fmt.Sprintf("0.0.0.0:%d", port)
	log.Info().Str("address", addr).Msg("Starting REST API server")
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/mode", s.handleMode)
	mux.HandleFunc("/api/cycles/", s.handleCycleOperations)
	mux.HandleFunc("/api/pressure", s.handlePressure)
	mux.HandleFunc("/api/pressure/calibrate", s.handleCalibrate)

	// CORS middleware so the touchscreen UI can call from its own origin
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		mux.ServeHTTP(w, r)
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	values, err := s.modes.Values()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read pin values: "+err.Error())
		return
	}

	resp := StatusResponse{
		Mode: string(s.modes.Mode()),
		Pins: values,
	}
	if reading, ok := s.readings.Latest(); ok {
		resp.Pressure = &reading
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req ModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	mode := model.Mode(req.Mode)
	if _, ok := model.ModeAssignments[mode]; !ok {
		writeError(w, http.StatusBadRequest, "unknown mode: "+req.Mode)
		return
	}

	s.cycles.SetMode(mode)
	writeJSON(w, http.StatusAccepted, map[string]string{"mode": req.Mode})
}

func (s *Server) handleCycleOperations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/api/cycles/")
	switch name {
	case "run_cycle":
		s.cycles.RunCycle()
	case "functionality_test":
		s.cycles.FunctionalityTest()
	case "test_mode":
		s.cycles.TestMode()
	case "leak_test":
		s.cycles.LeakTest()
	case "stop":
		s.cycles.Stop()
	default:
		writeError(w, http.StatusNotFound, "unknown cycle: "+name)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"cycle": name})
}

func (s *Server) handlePressure(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	reading := s.sensor.Sample()
	if reading == pressure.SensorUnavailable {
		writeError(w, http.StatusServiceUnavailable, "pressure sensor unavailable")
		return
	}
	writeJSON(w, http.StatusOK, PressureResponse{Pressure: reading})
}

func (s *Server) handleCalibrate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	zero, err := s.sensor.Calibrate()
	if err != nil {
		if errors.Is(err, pressure.ErrHardwareUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "pressure sensor unavailable")
			return
		}
		writeError(w, http.StatusInternalServerError, "calibration failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, CalibrateResponse{ADCZero: zero})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode API response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
