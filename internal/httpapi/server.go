package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/keithneurodog/az-dcm-poc-sub000/internal/catalog"
	"github.com/keithneurodog/az-dcm-poc-sub000/internal/logger"
	"github.com/keithneurodog/az-dcm-poc-sub000/internal/matching"
	"github.com/keithneurodog/az-dcm-poc-sub000/internal/observability"
	"github.com/keithneurodog/az-dcm-poc-sub000/internal/report"
	"github.com/keithneurodog/az-dcm-poc-sub000/internal/requestflow"
)

const defaultCatalogURL = "/v1/datasets"

type Config struct {
	Sessions *requestflow.SessionStore
	Matcher  *matching.Matcher
	// Metrics is optional. When set, /metrics is served and every route is
	// instrumented.
	Metrics *observability.Metrics
	// PDF is optional; without it format=pdf reports are unavailable.
	PDF         report.PDFRenderer
	ReportStyle string
	CatalogURL  string
	Logger      *logger.Logger
	Clock       func() time.Time
}

type Server struct {
	sessions *requestflow.SessionStore
	matcher  *matching.Matcher
	metrics  *observability.Metrics
	pdf      report.PDFRenderer
	style    string
	catURL   string
	log      *logger.Logger
	clock    func() time.Time
}

func NewServer(cfg Config) http.Handler {
	s := &Server{
		sessions: cfg.Sessions,
		matcher:  cfg.Matcher,
		metrics:  cfg.Metrics,
		pdf:      cfg.PDF,
		style:    cfg.ReportStyle,
		catURL:   cfg.CatalogURL,
		log:      cfg.Logger,
		clock:    cfg.Clock,
	}
	if s.log == nil {
		s.log = logger.Nop()
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.catURL == "" {
		s.catURL = defaultCatalogURL
	}

	mux := http.NewServeMux()
	s.route(mux, "/v1/health", s.handleHealth)
	s.route(mux, "/v1/datasets", s.handleDatasets)
	s.route(mux, "/v1/selection", s.handleSelection)
	s.route(mux, "/v1/sessions", s.handleCreateSession)
	s.route(mux, "/v1/sessions/", s.handleSession)
	s.route(mux, "/v1/requests/", s.handleRequest)
	s.route(mux, "/v1/match", s.handleMatch)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics.Handler())
	}
	return mux
}

func (s *Server) catalog() catalog.Reader {
	return s.matcher.Catalog()
}

// route registers h under pattern, recording status and latency per pattern
// when metrics are enabled.
func (s *Server) route(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	if s.metrics == nil {
		mux.HandleFunc(pattern, h)
		return
	}
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		s.metrics.ObserveHTTP(pattern, rec.status, time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	if fe, ok := requestflow.AsError(err); ok {
		body := map[string]any{
			"code":    fe.Code,
			"message": fe.Message,
		}
		if fe.Field != "" {
			body["field"] = fe.Field
		}
		writeJSON(w, fe.Status, map[string]any{"ok": false, "error": body})
		return
	}
	writeJSON(w, 500, map[string]any{
		"ok": false,
		"error": map[string]any{
			"code":    requestflow.CodeInternal,
			"message": err.Error(),
		},
	})
}

func invalidJSON(err error) error {
	return requestflow.NewValidationError("body", "invalid JSON: "+err.Error())
}

func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return []byte("{}"), nil
	}
	blob, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	if len(blob) == 0 {
		blob = []byte("{}")
	}
	return blob, nil
}

func decodeJSONBytes(blob []byte, dst any) error {
	return json.Unmarshal(blob, dst)
}

// decodeBody reads and decodes a JSON request body, writing the error
// response itself on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	blob, err := readBody(r)
	if err != nil {
		writeError(w, invalidJSON(err))
		return false
	}
	if err := decodeJSONBytes(blob, dst); err != nil {
		writeError(w, invalidJSON(err))
		return false
	}
	return true
}

func methodOnly(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, 200, map[string]any{
		"ok":       true,
		"datasets": len(s.catalog().All()),
		"sessions": s.sessions.Len(),
		"time":     s.clock().UTC(),
	})
}

func (s *Server) handleDatasets(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, 200, map[string]any{
		"datasets":          s.catalog().All(),
		"default_selection": s.catalog().DefaultSelection(),
	})
}

// handleSelection reads or replaces the persisted catalog selection for the
// scope given in the query string.
func (s *Server) handleSelection(w http.ResponseWriter, r *http.Request) {
	scope := strings.TrimSpace(r.URL.Query().Get("scope"))
	store := s.sessions.Selection()
	switch r.Method {
	case http.MethodGet:
		ids, found, err := store.Load(r.Context(), scope)
		if err != nil {
			writeError(w, requestflow.NewInternalError(err.Error()))
			return
		}
		if ids == nil {
			ids = []string{}
		}
		writeJSON(w, 200, map[string]any{"scope": scope, "found": found, "dataset_ids": ids})
	case http.MethodPut:
		var req struct {
			DatasetIDs []string `json:"dataset_ids"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		if req.DatasetIDs == nil {
			req.DatasetIDs = []string{}
		}
		if err := store.Save(r.Context(), scope, req.DatasetIDs); err != nil {
			writeError(w, requestflow.NewInternalError(err.Error()))
			return
		}
		writeJSON(w, 200, map[string]any{"ok": true, "scope": scope, "dataset_ids": req.DatasetIDs})
	case http.MethodDelete:
		if err := store.Clear(r.Context(), scope); err != nil {
			writeError(w, requestflow.NewInternalError(err.Error()))
			return
		}
		writeJSON(w, 200, map[string]any{"ok": true})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodPost) {
		return
	}
	var req struct {
		Scope string `json:"scope"`
		// A missing or null list loads the stored selection; an explicit
		// empty list starts an empty session.
		DatasetIDs *[]string `json:"dataset_ids"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	in := requestflow.CreateInput{Scope: strings.TrimSpace(req.Scope)}
	if req.DatasetIDs != nil {
		in.DatasetIDs = *req.DatasetIDs
		if in.DatasetIDs == nil {
			in.DatasetIDs = []string{}
		}
	}
	sess, err := s.sessions.Create(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, 201, map[string]any{"ok": true, "session": s.snapshot(sess)})
}

// handleSession dispatches /v1/sessions/{id}[/{action}].
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/sessions/"), "/")
	id, action, _ := strings.Cut(path, "/")
	if id == "" || strings.Contains(action, "/") {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if action == "" && r.Method == http.MethodDelete {
		if !s.sessions.Delete(id) {
			writeError(w, requestflow.NewNotFoundError("session", "session not found"))
			return
		}
		writeJSON(w, 200, map[string]any{"ok": true})
		return
	}

	sess, ok := s.sessions.Get(id)
	if !ok {
		writeError(w, requestflow.NewNotFoundError("session", "session not found"))
		return
	}

	switch action {
	case "":
		if !methodOnly(w, r, http.MethodGet) {
			return
		}
		writeJSON(w, 200, map[string]any{"ok": true, "session": s.snapshot(sess)})
	case "intent":
		if !methodOnly(w, r, http.MethodPut) {
			return
		}
		var in matching.Intent
		if !decodeBody(w, r, &in) {
			return
		}
		s.mutate(w, sess, sess.UpdateIntent(in))
	case "remove", "restore", "add":
		if !methodOnly(w, r, http.MethodPost) {
			return
		}
		var req struct {
			DatasetID string `json:"dataset_id"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		id := strings.TrimSpace(req.DatasetID)
		var err error
		switch action {
		case "remove":
			err = sess.RemoveDataset(id)
		case "restore":
			err = sess.RestoreDataset(id)
		default:
			err = sess.AddDataset(id)
		}
		s.mutate(w, sess, err)
	case "swap":
		if !methodOnly(w, r, http.MethodPost) {
			return
		}
		var req struct {
			RemoveDatasetID string `json:"remove_dataset_id"`
			AddDatasetID    string `json:"add_dataset_id"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		s.mutate(w, sess, sess.SwapDataset(strings.TrimSpace(req.RemoveDatasetID), strings.TrimSpace(req.AddDatasetID)))
	case "next":
		if !methodOnly(w, r, http.MethodPost) {
			return
		}
		s.mutate(w, sess, sess.GoNext())
	case "back":
		if !methodOnly(w, r, http.MethodPost) {
			return
		}
		s.mutate(w, sess, sess.GoBack())
	case "preview":
		s.handlePreview(w, r, sess)
	case "submit":
		s.handleSubmit(w, r, sess)
	case "report":
		s.handleReport(w, r, sess)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (s *Server) mutate(w http.ResponseWriter, sess *requestflow.Session, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true, "session": s.snapshot(sess)})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request, sess *requestflow.Session) {
	switch r.Method {
	case http.MethodPut:
		var in matching.Intent
		if !decodeBody(w, r, &in) {
			return
		}
		res := sess.SetPreviewIntent(r.Context(), in)
		writeJSON(w, 200, map[string]any{"ok": true, "intent": in, "result": res})
	case http.MethodDelete:
		sess.ClearPreview()
		writeJSON(w, 200, map[string]any{"ok": true})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request, sess *requestflow.Session) {
	if !methodOnly(w, r, http.MethodPost) {
		return
	}
	var req struct {
		AgreedToTerms bool   `json:"agreed_to_terms"`
		Requester     string `json:"requester"`
		Notes         string `json:"notes"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	out, err := sess.Submit(r.Context(), requestflow.SubmitInput{
		AgreedToTerms: req.AgreedToTerms,
		Requester:     req.Requester,
		Notes:         req.Notes,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, 201, map[string]any{
		"ok":             true,
		"request_id":     out.ID,
		"request":        out,
		"overall_status": out.OverallStatus(),
	})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request, sess *requestflow.Session) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	res := sess.ActiveResult()
	md := report.Markdown(res, report.Meta{
		SessionID:   sess.ID(),
		RequestID:   sess.SubmittedRequestID(),
		GeneratedAt: s.clock(),
		Intent:      sess.Intent(),
		Removed:     sess.RemovedIDs(),
	})

	switch format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format"))); format {
	case "", "md", "markdown":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(200)
		_, _ = io.WriteString(w, md)
	case "html":
		doc, err := report.RenderHTML(md, res, s.style)
		if err != nil {
			writeError(w, requestflow.NewInternalError(err.Error()))
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(200)
		_, _ = io.WriteString(w, doc)
	case "pdf":
		if s.pdf == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"ok":    false,
				"error": map[string]any{"code": requestflow.CodeUnavailable, "message": "pdf rendering is not configured"},
			})
			return
		}
		pdf, err := s.pdf.Render(r.Context(), md, res)
		if err != nil {
			s.log.Error("render pdf report", "session_id", sess.ID(), "error", err)
			writeError(w, requestflow.NewInternalError(err.Error()))
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="access-timeline.pdf"`)
		w.WriteHeader(200)
		_, _ = w.Write(pdf)
	default:
		writeError(w, requestflow.NewValidationError("format", "format must be md, html or pdf"))
	}
}

// handleRequest dispatches /v1/requests/{id}[/actions].
func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/requests/"), "/")
	id, action, _ := strings.Cut(path, "/")
	if id == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	requests := s.sessions.Requests()

	switch action {
	case "":
		if !methodOnly(w, r, http.MethodGet) {
			return
		}
		req, ok := requests.Get(id)
		if !ok {
			writeError(w, requestflow.NewNotFoundError("request", "request not found"))
			return
		}
		writeJSON(w, 200, map[string]any{"ok": true, "request": req, "overall_status": req.OverallStatus()})
	case "actions":
		if !methodOnly(w, r, http.MethodPost) {
			return
		}
		var act requestflow.ApprovalAction
		if !decodeBody(w, r, &act) {
			return
		}
		req, err := requests.Act(r.Context(), id, act)
		if err != nil {
			writeError(w, err)
			return
		}
		if s.metrics != nil {
			s.metrics.ApprovalRecorded(string(act.Decision))
		}
		writeJSON(w, 200, map[string]any{"ok": true, "request": req, "overall_status": req.OverallStatus()})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// handleMatch runs a stateless match for the given ids and intent. Unknown
// ids are reported back and left out of the match.
func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodPost) {
		return
	}
	var req struct {
		DatasetIDs []string        `json:"dataset_ids"`
		Intent     matching.Intent `json:"intent"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	datasets := s.catalog().Resolve(req.DatasetIDs)
	unknown := []string{}
	for _, id := range req.DatasetIDs {
		if _, ok := s.catalog().Get(id); !ok {
			unknown = append(unknown, id)
		}
	}
	res := s.matcher.Match(r.Context(), datasets, req.Intent)
	writeJSON(w, 200, map[string]any{"ok": true, "result": res, "unknown_ids": unknown})
}

type previewView struct {
	Intent matching.Intent  `json:"intent"`
	Result *matching.Result `json:"result"`
}

type sessionView struct {
	ID                 string            `json:"id"`
	Step               requestflow.Step  `json:"step"`
	Intent             matching.Intent   `json:"intent"`
	ActiveDatasets     []catalog.Dataset `json:"active_datasets"`
	RemovedIDs         []string          `json:"removed_ids"`
	Result             *matching.Result  `json:"result"`
	IsMatching         bool              `json:"is_matching"`
	Preview            *previewView      `json:"preview,omitempty"`
	SubmittedRequestID string            `json:"submitted_request_id,omitempty"`
	Empty              bool              `json:"empty"`
	Message            string            `json:"message,omitempty"`
	CatalogURL         string            `json:"catalog_url,omitempty"`
}

func (s *Server) snapshot(sess *requestflow.Session) sessionView {
	v := sessionView{
		ID:                 sess.ID(),
		Step:               sess.Step(),
		Intent:             sess.Intent(),
		ActiveDatasets:     sess.ActiveDatasets(),
		RemovedIDs:         sess.RemovedIDs(),
		Result:             sess.ActiveResult(),
		IsMatching:         sess.IsMatching(),
		SubmittedRequestID: sess.SubmittedRequestID(),
	}
	if v.ActiveDatasets == nil {
		v.ActiveDatasets = []catalog.Dataset{}
	}
	if v.RemovedIDs == nil {
		v.RemovedIDs = []string{}
	}
	if in, res := sess.Preview(); in != nil {
		v.Preview = &previewView{Intent: *in, Result: res}
	}
	if len(v.ActiveDatasets) == 0 && v.Step != requestflow.StepConfirmation {
		v.Empty = true
		v.Message = "No datasets are selected. Browse the catalog to add datasets."
		v.CatalogURL = s.catURL
	}
	return v
}
