package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/nanocore-vm/nanocore/nanocore"
)

// errNanocoreStatus maps an embedding API Status to a Go error for
// callers (like SessionManager) that want a plain error value.
func errNanocoreStatus(status nanocore.Status) error {
	return fmt.Errorf("nanocore status %d", status)
}

// httpStatusFor maps an embedding API Status to an HTTP status code.
func httpStatusFor(status nanocore.Status) int {
	switch status {
	case nanocore.StatusOK:
		return http.StatusOK
	case nanocore.StatusEINVAL:
		return http.StatusBadRequest
	case nanocore.StatusENOMEM:
		return http.StatusInsufficientStorage
	case nanocore.StatusEINIT:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeNanocoreError(w http.ResponseWriter, status nanocore.Status, context string) {
	writeError(w, httpStatusFor(status), fmt.Sprintf("%s: status %d", context, status))
}

// handleCreateSession handles POST /api/v1/session
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req SessionCreateRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	session, err := s.sessions.CreateSession(req, s.cfg.Execution.DefaultMemorySize)
	if err != nil {
		if err == ErrSessionLimitReached {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to create session: %v", err))
		return
	}

	writeJSON(w, http.StatusCreated, SessionCreateResponse{
		SessionID: session.ID,
		CreatedAt: session.CreatedAt,
	})
}

// handleListSessions handles GET /api/v1/session
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	ids := s.sessions.ListSessions()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": ids,
		"count":    len(ids),
	})
}

// handleGetState handles GET /api/v1/session/{id}/state
func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	session, err := s.sessions.GetSession(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	snap, status := s.sessions.API().VMGetState(session.Handle)
	if status != nanocore.StatusOK {
		s.writeNanocoreError(w, status, "get state")
		return
	}

	writeJSON(w, http.StatusOK, stateToResponse(snap))
}

// handleDestroySession handles DELETE /api/v1/session/{id}
func (s *Server) handleDestroySession(w http.ResponseWriter, r *http.Request, sessionID string) {
	if err := s.sessions.DestroySession(sessionID); err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	writeJSON(w, http.StatusOK, SuccessResponse{Success: true, Message: "Session destroyed"})
}

// handleLoadProgram handles POST /api/v1/session/{id}/load
func (s *Server) handleLoadProgram(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	session, err := s.sessions.GetSession(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	var req LoadProgramRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	status := s.sessions.API().VMLoadProgram(session.Handle, req.Data, req.Address)
	if status != nanocore.StatusOK {
		s.writeNanocoreError(w, status, "load program")
		return
	}

	writeJSON(w, http.StatusOK, SuccessResponse{Success: true, Message: "Program loaded"})
}

// handleStep handles POST /api/v1/session/{id}/step
func (s *Server) handleStep(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	session, err := s.sessions.GetSession(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	event, status := s.sessions.API().VMStep(session.Handle)
	if status != nanocore.StatusOK {
		s.writeNanocoreError(w, status, "step")
		return
	}

	writeJSON(w, http.StatusOK, s.stepResult(sessionID, session, event))
}

// handleRun handles POST /api/v1/session/{id}/run
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	session, err := s.sessions.GetSession(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	var req RunRequest
	_ = readJSON(r, &req) // a missing/empty body means "use the server default"

	maxSteps := req.MaxSteps
	if maxSteps == 0 {
		maxSteps = s.cfg.Execution.MaxInstructions
	}

	event, status := s.sessions.API().VMRun(session.Handle, maxSteps)
	if status != nanocore.StatusOK {
		s.writeNanocoreError(w, status, "run")
		return
	}

	writeJSON(w, http.StatusOK, s.stepResult(sessionID, session, event))
}

// stepResult assembles a StepResponse and broadcasts the resulting state
// to any subscribed WebSocket clients (spec.md §6.6).
func (s *Server) stepResult(sessionID string, session *Session, event nanocore.EventCode) StepResponse {
	snap, _ := s.sessions.API().VMGetState(session.Handle)
	resp := StepResponse{
		Event: eventToResponse(int(event)),
		State: stateToResponse(snap),
	}
	s.broadcastStateChange(sessionID, resp)
	return resp
}

// handleReset handles POST /api/v1/session/{id}/reset
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	session, err := s.sessions.GetSession(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	if status := s.sessions.API().VMReset(session.Handle); status != nanocore.StatusOK {
		s.writeNanocoreError(w, status, "reset")
		return
	}

	writeJSON(w, http.StatusOK, SuccessResponse{Success: true, Message: "VM reset"})
}

// handleRegister handles GET/PUT /api/v1/session/{id}/register/{index}
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request, sessionID, indexStr string) {
	session, err := s.sessions.GetSession(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	index, err := strconv.Atoi(indexStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid register index")
		return
	}

	switch r.Method {
	case http.MethodGet:
		value, status := s.sessions.API().VMGetRegister(session.Handle, index)
		if status != nanocore.StatusOK {
			s.writeNanocoreError(w, status, "get register")
			return
		}
		writeJSON(w, http.StatusOK, RegisterResponse{Index: uint8(index), Value: value}) // #nosec G115 -- index validated above

	case http.MethodPut:
		var req SetRegisterRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if status := s.sessions.API().VMSetRegister(session.Handle, index, req.Value); status != nanocore.StatusOK {
			s.writeNanocoreError(w, status, "set register")
			return
		}
		writeJSON(w, http.StatusOK, SuccessResponse{Success: true})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleMemory handles GET/PUT /api/v1/session/{id}/memory
func (s *Server) handleMemory(w http.ResponseWriter, r *http.Request, sessionID string) {
	session, err := s.sessions.GetSession(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		query := r.URL.Query()
		address, err := parseHexOrDec(query.Get("address"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid address parameter")
			return
		}
		length, err := strconv.ParseUint(query.Get("length"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid length parameter")
			return
		}
		const maxMemoryRead = 1 << 20
		if length > maxMemoryRead {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Length too large (max %d bytes)", maxMemoryRead))
			return
		}

		data, status := s.sessions.API().VMReadMemory(session.Handle, address, length)
		if status != nanocore.StatusOK {
			s.writeNanocoreError(w, status, "read memory")
			return
		}
		writeJSON(w, http.StatusOK, MemoryReadResponse{Address: address, Data: data})

	case http.MethodPut:
		var req MemoryWriteRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if status := s.sessions.API().VMWriteMemory(session.Handle, req.Address, req.Data); status != nanocore.StatusOK {
			s.writeNanocoreError(w, status, "write memory")
			return
		}
		writeJSON(w, http.StatusOK, SuccessResponse{Success: true})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleBreakpoint handles POST/DELETE /api/v1/session/{id}/breakpoint
func (s *Server) handleBreakpoint(w http.ResponseWriter, r *http.Request, sessionID string) {
	session, err := s.sessions.GetSession(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	var req BreakpointRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	switch r.Method {
	case http.MethodPost:
		if status := s.sessions.API().VMSetBreakpoint(session.Handle, req.Address); status != nanocore.StatusOK {
			s.writeNanocoreError(w, status, "set breakpoint")
			return
		}
		writeJSON(w, http.StatusOK, SuccessResponse{Success: true, Message: "Breakpoint added"})

	case http.MethodDelete:
		if status := s.sessions.API().VMClearBreakpoint(session.Handle, req.Address); status != nanocore.StatusOK {
			s.writeNanocoreError(w, status, "clear breakpoint")
			return
		}
		writeJSON(w, http.StatusOK, SuccessResponse{Success: true, Message: "Breakpoint removed"})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleListBreakpoints handles GET /api/v1/session/{id}/breakpoints
func (s *Server) handleListBreakpoints(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	session, err := s.sessions.GetSession(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	addrs, status := s.sessions.API().VMListBreakpoints(session.Handle)
	if status != nanocore.StatusOK {
		s.writeNanocoreError(w, status, "list breakpoints")
		return
	}

	writeJSON(w, http.StatusOK, BreakpointsResponse{Addresses: addrs})
}

// handlePerfCounter handles GET /api/v1/session/{id}/perfcounter/{slot}
func (s *Server) handlePerfCounter(w http.ResponseWriter, r *http.Request, sessionID, slotStr string) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	session, err := s.sessions.GetSession(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	slot, err := strconv.Atoi(slotStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid counter slot")
		return
	}

	value, status := s.sessions.API().VMGetPerfCounter(session.Handle, slot)
	if status != nanocore.StatusOK {
		s.writeNanocoreError(w, status, "get perf counter")
		return
	}

	writeJSON(w, http.StatusOK, PerfCounterResponse{Slot: uint8(slot), Value: value}) // #nosec G115 -- slot validated above
}

// parseHexOrDec parses a string as either hexadecimal (0x prefix) or decimal.
func parseHexOrDec(s string) (uint64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty string")
	}
	if len(s) > 2 && s[:2] == "0x" {
		return strconv.ParseUint(s[2:], 16, 64)
	}
	return strconv.ParseUint(s, 10, 64)
}

// broadcastStateChange broadcasts VM state changes to WebSocket clients.
func (s *Server) broadcastStateChange(sessionID string, resp StepResponse) {
	if s.broadcaster == nil {
		return
	}

	s.broadcaster.BroadcastState(sessionID, map[string]interface{}{
		"event":        resp.Event,
		"pc":           resp.State.PC,
		"sp":           resp.State.SP,
		"flags":        resp.State.Flags,
		"registers":    resp.State.Registers,
		"perfCounters": resp.State.PerfCounters,
	})

	if resp.Event.Code != int(nanocore.EventNone) {
		s.broadcaster.BroadcastExecutionEvent(sessionID, resp.Event.Name, map[string]interface{}{
			"pc": resp.State.PC,
		})
	}
}
