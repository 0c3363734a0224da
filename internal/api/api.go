package api

import (
	"net/http"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"

	"github.com/souravmenon1999/usdt-scanner/internal/controller"
	"github.com/souravmenon1999/usdt-scanner/internal/scanner"
	"github.com/souravmenon1999/usdt-scanner/internal/types"
)

var json = jsoniter.ConfigFastest

// Server is the HTTP presentation boundary: a JSON API the dashboard polls
// for status and candidate rows, plus the controller verbs.
type Server struct {
	ctrl *controller.Controller
	mux  *http.ServeMux
}

// NewServer wires the API routes over the controller.
func NewServer(ctrl *controller.Controller) *Server {
	s := &Server{ctrl: ctrl, mux: http.NewServeMux()}
	s.mux.HandleFunc("/status", s.handleStatus)
	s.mux.HandleFunc("/candidates", s.handleCandidates)
	s.mux.HandleFunc("/near-low", s.handleNearLow)
	s.mux.HandleFunc("/start", s.handleStart)
	s.mux.HandleFunc("/stop", s.handleStop)
	s.mux.HandleFunc("/refresh", s.handleRefresh)
	return s
}

// Handler returns the routed handler, usable directly with httptest.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe blocks serving the API on addr.
func (s *Server) ListenAndServe(addr string) error {
	log.Info().Str("addr", addr).Msg("API listening")
	return http.ListenAndServe(addr, s.mux)
}

// statusResponse mirrors controller.Status for JSON consumers, with the
// age indicator precomputed so staleness is legible in the dashboard.
type statusResponse struct {
	State           string  `json:"state"`
	FailureReason   string  `json:"failure_reason,omitempty"`
	SessionID       string  `json:"session_id,omitempty"`
	Mode            string  `json:"mode"`
	LastUpdateAt    string  `json:"last_update_at,omitempty"`
	AgeSeconds      float64 `json:"age_seconds,omitempty"`
	UniverseSize    int     `json:"universe_size"`
	CacheTTLSeconds int     `json:"cache_ttl_seconds"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.ctrl.Status()
	resp := statusResponse{
		State:           st.State.String(),
		FailureReason:   st.FailureReason,
		SessionID:       st.SessionID,
		Mode:            st.Mode.String(),
		UniverseSize:    st.UniverseSize,
		CacheTTLSeconds: int(st.CacheTTL.Seconds()),
	}
	if !st.LastUpdateAt.IsZero() {
		resp.LastUpdateAt = st.LastUpdateAt.Format(time.RFC3339)
		resp.AgeSeconds = time.Since(st.LastUpdateAt).Seconds()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCandidates(w http.ResponseWriter, r *http.Request) {
	policy, err := policyFromQuery(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	rows := s.ctrl.Candidates(policy)
	writeJSON(w, http.StatusOK, scanner.FormatRows(rows))
}

func (s *Server) handleNearLow(w http.ResponseWriter, r *http.Request) {
	pol := scanner.NearLowPolicy()
	rows := s.ctrl.Candidates(&pol)
	writeJSON(w, http.StatusOK, scanner.FormatRows(rows))
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	mode, ok := types.ParseMode(r.URL.Query().Get("mode"))
	if r.URL.Query().Get("mode") == "" {
		mode, ok = s.ctrl.Status().Mode, true
	}
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "mode must be pull or push"})
		return
	}
	info, _ := s.ctrl.Start(mode)
	writeJSON(w, http.StatusOK, map[string]string{"info": info})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	info, _ := s.ctrl.Stop()
	writeJSON(w, http.StatusOK, map[string]string{"info": info})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	info, err := s.ctrl.Refresh()
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"info": info})
}

// policyFromQuery builds a policy override from p_min/p_max/l_max query
// parameters. Nil means no override was requested.
func policyFromQuery(r *http.Request) (*scanner.Policy, error) {
	q := r.URL.Query()
	if q.Get("p_min") == "" && q.Get("p_max") == "" && q.Get("l_max") == "" {
		return nil, nil
	}
	pol := scanner.DefaultPolicy()
	if v := q.Get("p_min"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, err
		}
		pol.PMinPct = f
	}
	if v := q.Get("p_max"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, err
		}
		pol.PMaxPct = f
	}
	if v := q.Get("l_max"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, err
		}
		pol.LMaxPct = f
	}
	return &pol, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}
