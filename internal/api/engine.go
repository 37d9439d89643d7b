package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/MikeSquared-Agency/delex/internal/corpus"
	"github.com/MikeSquared-Agency/delex/internal/dialogue"
	"github.com/MikeSquared-Agency/delex/internal/kb"
	"github.com/MikeSquared-Agency/delex/internal/matcher"
	"github.com/MikeSquared-Agency/delex/internal/vocab"
)

const maxBodyBytes = 8 << 20

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return false
	}
	return true
}

// MatchRequest is the body of the mask and label endpoints. Without
// candidates the server's entity vocabulary is used.
type MatchRequest struct {
	Text        string   `json:"text"`
	Candidates  []string `json:"candidates,omitempty"`
	Placeholder string   `json:"placeholder,omitempty"`
}

func (s *Server) candidates(req MatchRequest) []matcher.Candidate {
	if len(req.Candidates) == 0 {
		s.mu.RLock()
		defer s.mu.RUnlock()
		return matcher.Vocabulary(s.vocab)
	}
	sorted := make([]string, len(req.Candidates))
	copy(sorted, req.Candidates)
	vocab.SortLongestFirst(sorted)
	return matcher.Vocabulary(sorted)
}

type MaskResponse struct {
	Text     string   `json:"text"`
	Entities []string `json:"entities"`
}

// mask handles POST /api/v1/delex/mask
func (s *Server) mask(w http.ResponseWriter, r *http.Request) {
	var req MatchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	ph := req.Placeholder
	if ph == "" {
		ph = matcher.Placeholder
	}
	text, found := matcher.Extract(req.Text, s.candidates(req), ph)
	if found == nil {
		found = []string{}
	}
	writeJSON(w, http.StatusOK, MaskResponse{Text: text, Entities: found})
}

type LabelMatch struct {
	Text string `json:"text"`
	Key  string `json:"key"`
	Pos  int    `json:"pos"`
}

type LabelResponse struct {
	Labels  string       `json:"labels"`
	Matches []LabelMatch `json:"matches"`
}

// label handles POST /api/v1/delex/label
func (s *Server) label(w http.ResponseWriter, r *http.Request) {
	var req MatchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	cands := s.candidates(req)
	found := matcher.Find(req.Text, cands)
	matches := make([]LabelMatch, len(found))
	for i, m := range found {
		matches[i] = LabelMatch{Text: m.Text, Key: m.Key, Pos: m.Pos}
	}
	writeJSON(w, http.StatusOK, LabelResponse{Labels: matcher.Label(req.Text, cands), Matches: matches})
}

type CanonicalizeRequest struct {
	KB        *corpus.KB `json:"kb"`
	Utterance string     `json:"utterance"`
}

type CanonicalizeResponse struct {
	Canonical     string   `json:"utterance_canonical"`
	CanonicalKeys string   `json:"canonical_keys"`
	Applied       []string `json:"applied"`
	Collisions    int      `json:"collisions"`
}

// canonicalize handles POST /api/v1/delex/canonicalize
func (s *Server) canonicalize(w http.ResponseWriter, r *http.Request) {
	var req CanonicalizeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res := kb.Canonicalize(req.KB)
	cands := dialogue.CanonicalCandidates(res)
	text, applied := matcher.Substitute(req.Utterance, cands)
	if applied == nil {
		applied = []string{}
	}
	writeJSON(w, http.StatusOK, CanonicalizeResponse{
		Canonical:     text,
		CanonicalKeys: matcher.Label(req.Utterance, cands),
		Applied:       applied,
		Collisions:    res.Collisions,
	})
}

type StatsResponse struct {
	Substitutions int `json:"substitutions"`
	Collisions    int `json:"collisions"`
	Collapsed     int `json:"collapsed"`
}

type DialogueResponse struct {
	Dialogue corpus.Dialogue `json:"dialogue"`
	Stats    StatsResponse   `json:"stats"`
}

func boolParam(r *http.Request, name string, fallback bool) bool {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// transformDialogue handles POST /api/v1/delex/dialogue?mode=delexicalize|canonicalize|preprocess
func (s *Server) transformDialogue(w http.ResponseWriter, r *http.Request) {
	var d corpus.Dialogue
	if !decodeBody(w, r, &d) {
		return
	}
	opts := dialogue.Options{
		Placeholder:      r.URL.Query().Get("placeholder"),
		RewriteUtterance: boolParam(r, "rewrite_utterance", false),
		Lowercase:        boolParam(r, "lowercase", false),
	}

	var (
		out corpus.Dialogue
		st  dialogue.Stats
	)
	switch mode := r.URL.Query().Get("mode"); mode {
	case "", "delexicalize":
		out, st = dialogue.Delexicalize(d, opts)
	case "canonicalize":
		out, st = dialogue.Canonicalize(d, opts)
	case "preprocess":
		s.mu.RLock()
		v := s.vocab
		s.mu.RUnlock()
		if len(v) == 0 {
			writeError(w, http.StatusServiceUnavailable, "no entity vocabulary loaded")
			return
		}
		out, st = dialogue.Preprocess(d, v)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown mode %q", mode))
		return
	}

	writeJSON(w, http.StatusOK, DialogueResponse{
		Dialogue: out,
		Stats: StatsResponse{
			Substitutions: st.Substitutions,
			Collisions:    st.Collisions,
			Collapsed:     st.Collapsed,
		},
	})
}

// listRuns handles GET /api/v1/delex/runs
func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	runs := s.runs
	s.mu.RUnlock()
	if runs == nil {
		writeError(w, http.StatusServiceUnavailable, "run store not configured")
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	list, err := runs.ListRuns(r.Context(), limit)
	if err != nil {
		s.logger.Error("list runs failed", "error", err)
		writeError(w, http.StatusInternalServerError, "list runs failed")
		return
	}

	type runJSON struct {
		ID            string   `json:"id"`
		Mode          string   `json:"mode"`
		SourceDir     string   `json:"source_dir"`
		TargetDir     string   `json:"target_dir"`
		Dialogues     int      `json:"dialogues"`
		Substitutions int      `json:"substitutions"`
		Collisions    int      `json:"collisions"`
		Collapsed     int      `json:"collapsed"`
		Errors        []string `json:"errors"`
		StartedAt     string   `json:"started_at"`
		FinishedAt    string   `json:"finished_at"`
	}
	out := make([]runJSON, len(list))
	for i, run := range list {
		out[i] = runJSON{
			ID:            run.ID.String(),
			Mode:          run.Mode,
			SourceDir:     run.SourceDir,
			TargetDir:     run.TargetDir,
			Dialogues:     run.Dialogues,
			Substitutions: run.Substitutions,
			Collisions:    run.Collisions,
			Collapsed:     run.Collapsed,
			Errors:        run.Errors,
			StartedAt:     run.StartedAt.Format(time.RFC3339),
			FinishedAt:    run.FinishedAt.Format(time.RFC3339),
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": out, "count": len(out)})
}
