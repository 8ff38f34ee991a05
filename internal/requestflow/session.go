package requestflow

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/keithneurodog/az-dcm-poc-sub000/internal/catalog"
	"github.com/keithneurodog/az-dcm-poc-sub000/internal/logger"
	"github.com/keithneurodog/az-dcm-poc-sub000/internal/matching"
)

type Step string

const (
	StepIntent       Step = "intent"
	StepReview       Step = "review"
	StepConfirmation Step = "confirmation"
)

// Observer receives session lifecycle events. Implementations must be safe
// for concurrent use.
type Observer interface {
	SessionOpened()
	SessionClosed()
	RequestSubmitted(datasets int)
}

type Config struct {
	Matcher   *matching.Matcher
	Selection SelectionStore
	Requests  *RequestStore
	// RecomputeDelay debounces intent edits made during review. Zero
	// recomputes inline.
	RecomputeDelay time.Duration
	SubmitLatency  time.Duration
	Clock          func() time.Time
	Logger         *logger.Logger
	Observer       Observer
}

func (c Config) withDefaults() Config {
	if c.Clock == nil {
		c.Clock = time.Now
	}
	if c.Logger == nil {
		c.Logger = logger.Nop()
	}
	if c.Selection == nil {
		c.Selection = NewMemorySelectionStore()
	}
	if c.Requests == nil {
		c.Requests = NewRequestStore(c.Clock, 0)
	}
	return c
}

// Session is one request flow: a committed selection, a committed intent,
// the set of datasets removed from it and the last full match. The active
// view is always derived from those.
type Session struct {
	id    string
	scope string
	cfg   Config
	log   *logger.Logger
	rc    *recomputer

	mu            sync.RWMutex
	step          Step
	selected      []catalog.Dataset
	removed       map[string]struct{}
	intent        matching.Intent
	result        *matching.Result
	resultIntent  matching.Intent
	matching      bool
	previewIntent *matching.Intent
	previewResult *matching.Result
	submittedID   string
	lastActive    time.Time
	closed        bool
}

func newSession(id, scope string, selected []catalog.Dataset, cfg Config) *Session {
	return &Session{
		id:         id,
		scope:      scope,
		cfg:        cfg,
		log:        cfg.Logger.With("session_id", id),
		rc:         newRecomputer(cfg.RecomputeDelay),
		step:       StepIntent,
		selected:   selected,
		removed:    map[string]struct{}{},
		lastActive: cfg.Clock(),
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) Step() Step {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.step
}

func (s *Session) Intent() matching.Intent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.intent
}

func (s *Session) IsMatching() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.matching
}

func (s *Session) SubmittedRequestID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.submittedID
}

// ActiveDatasets is the committed selection minus the removed set, in
// selection order.
func (s *Session) ActiveDatasets() []catalog.Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeLocked()
}

func (s *Session) activeLocked() []catalog.Dataset {
	out := make([]catalog.Dataset, 0, len(s.selected))
	for _, ds := range s.selected {
		if _, gone := s.removed[ds.ID]; !gone {
			out = append(out, ds)
		}
	}
	return out
}

// RemovedIDs lists removed datasets in selection order.
func (s *Session) RemovedIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for _, ds := range s.selected {
		if _, gone := s.removed[ds.ID]; gone {
			out = append(out, ds.ID)
		}
	}
	return out
}

// MatchingResult is the last full match, unfiltered. Nil until the first
// recompute or when the selection was empty.
func (s *Session) MatchingResult() *matching.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.result
}

// ActiveResult projects the last full match onto the current removed set.
// Retained datasets keep the timeline and suggestions of that match until
// the next recompute.
func (s *Session) ActiveResult() *matching.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.result.Exclude(s.removed)
}

// UpdateIntent replaces the committed intent. During review it schedules a
// recompute against the active datasets; during intent editing the match
// is deferred to GoNext.
func (s *Session) UpdateIntent(in matching.Intent) error {
	s.mu.Lock()
	if s.step == StepConfirmation {
		s.mu.Unlock()
		return errInvalidStep("update intent", s.step)
	}
	s.intent = in
	s.touchLocked()
	review := s.step == StepReview
	if review {
		s.matching = true
	}
	s.mu.Unlock()

	if review {
		gen := s.rc.schedule(s.recompute)
		s.log.Debug("recompute scheduled", "generation", gen)
	}
	return nil
}

// RemoveDataset marks a selected dataset removed. It never recomputes.
func (s *Session) RemoveDataset(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutableLocked("remove dataset"); err != nil {
		return err
	}
	if !s.selectedLocked(id) {
		return NewNotFoundError("dataset_id", "dataset is not in the selection")
	}
	s.removed[id] = struct{}{}
	s.touchLocked()
	return nil
}

// RestoreDataset clears a removal. Restoring a dataset that is not removed
// is a no-op.
func (s *Session) RestoreDataset(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutableLocked("restore dataset"); err != nil {
		return err
	}
	delete(s.removed, id)
	s.touchLocked()
	return nil
}

// AddDataset appends a catalog dataset to the committed selection. Adding a
// dataset already selected is a no-op. The new dataset has no match until
// the next full recompute.
func (s *Session) AddDataset(id string) error {
	ds, ok := s.catalog().Get(strings.TrimSpace(id))
	if !ok {
		return NewNotFoundError("dataset_id", "dataset not found in catalog")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutableLocked("add dataset"); err != nil {
		return err
	}
	s.addLocked(ds)
	s.touchLocked()
	return nil
}

// SwapDataset removes one selected dataset and adds a catalog dataset in
// its place, typically one of the suggested alternatives. No recompute.
func (s *Session) SwapDataset(removeID, addID string) error {
	ds, ok := s.catalog().Get(strings.TrimSpace(addID))
	if !ok {
		return NewNotFoundError("add_dataset_id", "dataset not found in catalog")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutableLocked("swap dataset"); err != nil {
		return err
	}
	if !s.selectedLocked(removeID) {
		return NewNotFoundError("remove_dataset_id", "dataset is not in the selection")
	}
	s.removed[removeID] = struct{}{}
	s.addLocked(ds)
	s.touchLocked()
	return nil
}

// GoNext moves from intent to review, running the full match inline first.
func (s *Session) GoNext() error {
	s.mu.Lock()
	if s.step != StepIntent {
		step := s.step
		s.mu.Unlock()
		return errInvalidStep("next", step)
	}
	s.matching = true
	s.touchLocked()
	s.mu.Unlock()

	s.rc.runNow(s.recompute)

	// An intent edit that landed while the match ran saw the intent step and
	// scheduled nothing, so the result may belong to the previous intent.
	s.mu.Lock()
	if s.step != StepIntent {
		s.mu.Unlock()
		return nil
	}
	s.step = StepReview
	stale := s.resultIntent != s.intent
	if stale {
		s.matching = true
	}
	s.mu.Unlock()

	if stale {
		gen := s.rc.schedule(s.recompute)
		s.log.Debug("intent changed during transition, recompute scheduled", "generation", gen)
	}
	return nil
}

// GoBack returns from review to intent editing. Submitted requests cannot
// go back.
func (s *Session) GoBack() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step != StepReview {
		return errInvalidStep("back", s.step)
	}
	s.step = StepIntent
	s.touchLocked()
	return nil
}

type SubmitInput struct {
	AgreedToTerms bool
	Requester     string
	Notes         string
}

// Submit files the request for the active datasets. It does not
// recompute; datasets added since the last match are filed as pending.
func (s *Session) Submit(ctx context.Context, in SubmitInput) (*Request, error) {
	s.mu.RLock()
	step := s.step
	active := s.activeLocked()
	intent := s.intent
	res := s.result.Exclude(s.removed)
	s.mu.RUnlock()

	if step != StepReview {
		return nil, errInvalidStep("submit", step)
	}
	if !in.AgreedToTerms {
		return nil, NewValidationError("terms", "you must agree to the terms before submitting")
	}
	if len(active) == 0 {
		return nil, NewValidationError("datasets", "select at least one dataset before submitting")
	}
	if err := sleepCtx(ctx, s.cfg.SubmitLatency); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.step != StepReview {
		step := s.step
		s.mu.Unlock()
		return nil, errInvalidStep("submit", step)
	}
	req := s.cfg.Requests.Create(RequestInput{
		SessionID: s.id,
		Requester: strings.TrimSpace(in.Requester),
		Notes:     strings.TrimSpace(in.Notes),
		Intent:    intent,
		Datasets:  active,
		Result:    res,
	})
	s.step = StepConfirmation
	s.submittedID = req.ID
	s.matching = false
	s.touchLocked()
	s.mu.Unlock()

	s.rc.stop()
	if err := s.cfg.Selection.Clear(ctx, s.scope); err != nil {
		s.log.Warn("clear selection after submit failed", "error", err)
	}
	if s.cfg.Observer != nil {
		s.cfg.Observer.RequestSubmitted(len(active))
	}
	s.log.Info("request submitted", "request_id", req.ID, "datasets", len(active))
	return req, nil
}

// SetPreviewIntent computes a what-if match for the active datasets. The
// committed intent and result are untouched.
func (s *Session) SetPreviewIntent(ctx context.Context, in matching.Intent) *matching.Result {
	s.mu.RLock()
	active := s.activeLocked()
	s.mu.RUnlock()

	res := s.cfg.Matcher.Match(ctx, active, in)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.previewIntent = &in
	s.previewResult = res
	s.touchLocked()
	return res
}

func (s *Session) ClearPreview() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.previewIntent = nil
	s.previewResult = nil
	s.touchLocked()
}

// Preview returns the current what-if intent and its match, if any.
func (s *Session) Preview() (*matching.Intent, *matching.Result) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.previewIntent == nil {
		return nil, nil
	}
	in := *s.previewIntent
	return &in, s.previewResult
}

// PreviewResult is the what-if match, or nil when no preview is set.
func (s *Session) PreviewResult() *matching.Result {
	_, res := s.Preview()
	return res
}

// WaitIdle blocks until no debounced recompute is pending.
func (s *Session) WaitIdle() {
	s.rc.wait()
}

func (s *Session) recompute(ctx context.Context, gen uint64) {
	s.mu.RLock()
	active := s.activeLocked()
	in := s.intent
	s.mu.RUnlock()

	res := s.cfg.Matcher.Match(ctx, active, in)

	s.mu.Lock()
	defer s.mu.Unlock()
	if ctx.Err() != nil || !s.rc.current(gen) || s.closed {
		s.log.Debug("superseded recompute dropped", "generation", gen)
		return
	}
	s.result = res
	s.resultIntent = in
	s.matching = false
}

func (s *Session) close() {
	s.rc.stop()
	s.mu.Lock()
	s.closed = true
	s.matching = false
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActive
}

func (s *Session) catalog() catalog.Reader {
	return s.cfg.Matcher.Catalog()
}

func (s *Session) mutableLocked(op string) error {
	if s.step == StepConfirmation {
		return errInvalidStep(op, s.step)
	}
	return nil
}

func (s *Session) selectedLocked(id string) bool {
	for _, ds := range s.selected {
		if ds.ID == id {
			return true
		}
	}
	return false
}

func (s *Session) addLocked(ds catalog.Dataset) {
	if s.selectedLocked(ds.ID) {
		return
	}
	s.selected = append(s.selected, ds)
}

func (s *Session) touchLocked() {
	s.lastActive = s.cfg.Clock()
}

func newSessionID() string {
	return uuid.NewString()
}
