package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aGallea/smart-phone/internal/service"
	"github.com/aGallea/smart-phone/pkg/provider/llm"
	"github.com/aGallea/smart-phone/pkg/provider/tts"
)

// statusResponse is the body returned by GET /api/status.
type statusResponse struct {
	Services map[string]service.Availability `json:"services"`
	Config   map[string]any                  `json:"config"`
	System   systemStats                     `json:"system"`
	UptimeS  float64                         `json:"uptime_seconds"`
}

// systemStats carries host-level metrics for the status endpoint.
type systemStats struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	MemoryUsedMB  uint64  `json:"memory_used_mb"`
	MemoryTotalMB uint64  `json:"memory_total_mb"`
	HostUptimeS   uint64  `json:"host_uptime_seconds"`
	Goroutines    int     `json:"goroutines"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats := systemStats{Goroutines: runtime.NumGoroutine()}
	if percents, err := cpu.PercentWithContext(r.Context(), 0, false); err == nil && len(percents) > 0 {
		stats.CPUPercent = percents[0]
	}
	if vm, err := mem.VirtualMemoryWithContext(r.Context()); err == nil {
		stats.MemoryPercent = vm.UsedPercent
		stats.MemoryUsedMB = vm.Used >> 20
		stats.MemoryTotalMB = vm.Total >> 20
	}
	if uptime, err := host.UptimeWithContext(r.Context()); err == nil {
		stats.HostUptimeS = uptime
	}

	writeJSON(w, http.StatusOK, statusResponse{
		Services: map[string]service.Availability{
			"stt": s.stt.Status(),
			"tts": s.tts.Status(),
			"llm": s.llm.Status(),
		},
		Config:  s.cfg.Sanitized(),
		System:  stats,
		UptimeS: time.Since(s.started).Seconds(),
	})
}

func (s *Server) handleSTT(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("parse multipart form: %w", err))
		return
	}
	file, _, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New(`missing "audio" form file`))
		return
	}
	defer file.Close()

	wav, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("read audio: %w", err))
		return
	}
	if len(wav) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("empty audio payload"))
		return
	}

	text, err := s.stt.Invoke(r.Context(), wav)
	if errors.Is(err, service.ErrServiceUnavailable) {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, STTResponse{Text: text})
}

func (s *Server) handleTTS(w http.ResponseWriter, r *http.Request) {
	var req TTSRequest
	if !s.decode(w, r, &req) {
		return
	}

	wav, err := s.tts.Invoke(r.Context(), tts.Request{Text: req.Text, Voice: req.Voice})
	if errors.Is(err, service.ErrServiceUnavailable) {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if len(wav) == 0 {
		writeError(w, http.StatusBadGateway, errors.New("synthesis produced no audio"))
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Disposition", `attachment; filename="speech.wav"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(wav)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if !s.decode(w, r, &req) {
		return
	}

	reply, err := s.llm.Invoke(r.Context(), llm.Request{
		UserInput: req.UserInput,
		Context:   req.Context,
	})
	if errors.Is(err, service.ErrServiceUnavailable) {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, GenerateResponse{Response: reply})
}

func (s *Server) handleConfigGet(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.Sanitized())
}

func (s *Server) handleConfigUpdate(w http.ResponseWriter, r *http.Request) {
	var req ConfigUpdateRequest
	if !s.decode(w, r, &req) {
		return
	}

	if err := s.cfg.Set(req.Key, req.Value); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.Reinitialize(r.Context(), req.Key)

	writeJSON(w, http.StatusOK, map[string]any{
		"updated": req.Key,
		"config":  s.cfg.Sanitized(),
	})
}

// decode parses and validates a JSON request body, writing the error
// response itself. Returns false when the request was rejected.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request body: %w", err))
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"encoding failed"}`, http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
