package requestflow

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/keithneurodog/az-dcm-poc-sub000/internal/catalog"
	"github.com/keithneurodog/az-dcm-poc-sub000/internal/matching"
)

type DatasetStatus string

const (
	StatusPending       DatasetStatus = "pending"
	StatusApproved      DatasetStatus = "approved"
	StatusRejected      DatasetStatus = "rejected"
	StatusInfoRequested DatasetStatus = "info_requested"
)

type Decision string

const (
	DecisionApprove     Decision = "approve"
	DecisionReject      Decision = "reject"
	DecisionRequestInfo Decision = "request_info"
)

func (d Decision) status() (DatasetStatus, bool) {
	switch d {
	case DecisionApprove:
		return StatusApproved, true
	case DecisionReject:
		return StatusRejected, true
	case DecisionRequestInfo:
		return StatusInfoRequested, true
	default:
		return "", false
	}
}

type ActionRecord struct {
	Decision Decision  `json:"decision"`
	Comment  string    `json:"comment"`
	Actor    string    `json:"actor,omitempty"`
	At       time.Time `json:"at"`
}

type DatasetRequest struct {
	DatasetID      string            `json:"dataset_id"`
	Code           string            `json:"code"`
	Category       matching.Category `json:"access_category,omitempty"`
	EstimatedWeeks int               `json:"estimated_weeks"`
	Status         DatasetStatus     `json:"status"`
	History        []ActionRecord    `json:"history"`
}

// Request is a submitted data-access request and its per-dataset approval
// state.
type Request struct {
	ID        string            `json:"id"`
	SessionID string            `json:"session_id"`
	Requester string            `json:"requester,omitempty"`
	Notes     string            `json:"notes,omitempty"`
	Intent    matching.Intent   `json:"intent"`
	CreatedAt time.Time         `json:"created_at"`
	Summary   *matching.Summary `json:"summary,omitempty"`
	Datasets  []*DatasetRequest `json:"datasets"`
}

// OverallStatus aggregates the per-dataset statuses.
func (r *Request) OverallStatus() string {
	allApproved := true
	anyApproved := false
	for _, d := range r.Datasets {
		if d.Status == StatusRejected {
			return "rejected"
		}
		if d.Status == StatusApproved {
			anyApproved = true
		} else {
			allApproved = false
		}
	}
	if allApproved && len(r.Datasets) > 0 {
		return "approved"
	}
	if anyApproved {
		return "partial"
	}
	return "pending"
}

func (r *Request) clone() *Request {
	out := *r
	if r.Summary != nil {
		s := *r.Summary
		out.Summary = &s
	}
	out.Datasets = make([]*DatasetRequest, len(r.Datasets))
	for i, d := range r.Datasets {
		cp := *d
		cp.History = append([]ActionRecord(nil), d.History...)
		out.Datasets[i] = &cp
	}
	return &out
}

type RequestInput struct {
	SessionID string
	Requester string
	Notes     string
	Intent    matching.Intent
	Datasets  []catalog.Dataset
	// Result is the active match at submit time. Datasets without a match
	// start pending.
	Result *matching.Result
}

// ApprovalAction is one reviewer decision on one dataset of a request.
type ApprovalAction struct {
	DatasetID string   `json:"dataset_id"`
	Decision  Decision `json:"decision"`
	Comment   string   `json:"comment"`
	Actor     string   `json:"actor"`
}

type RequestStore struct {
	mu            sync.RWMutex
	requests      map[string]*Request
	clock         func() time.Time
	actionLatency time.Duration
}

func NewRequestStore(clock func() time.Time, actionLatency time.Duration) *RequestStore {
	if clock == nil {
		clock = time.Now
	}
	return &RequestStore{
		requests:      make(map[string]*Request),
		clock:         clock,
		actionLatency: actionLatency,
	}
}

// Create records a request. Datasets classified immediate are already open
// to the requester and start approved.
func (s *RequestStore) Create(in RequestInput) *Request {
	req := &Request{
		ID:        uuid.NewString(),
		SessionID: in.SessionID,
		Requester: in.Requester,
		Notes:     in.Notes,
		Intent:    in.Intent,
		CreatedAt: s.clock().UTC(),
	}
	if in.Result != nil {
		sum := in.Result.Summary
		req.Summary = &sum
	}
	for _, ds := range in.Datasets {
		d := &DatasetRequest{DatasetID: ds.ID, Code: ds.Code, Status: StatusPending}
		if in.Result != nil {
			if m, ok := in.Result.Find(ds.ID); ok {
				d.Category = m.Category
				d.EstimatedWeeks = m.EstimatedWeeks
				if m.Category == matching.CategoryImmediate {
					d.Status = StatusApproved
				}
			}
		}
		req.Datasets = append(req.Datasets, d)
	}
	s.mu.Lock()
	s.requests[req.ID] = req
	s.mu.Unlock()
	return req.clone()
}

func (s *RequestStore) Get(id string) (*Request, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.requests[id]
	if !ok {
		return nil, false
	}
	return req.clone(), true
}

// Act applies a reviewer decision. A comment is required for every
// decision; the action is blocked before any simulated delay when it is
// missing.
func (s *RequestStore) Act(ctx context.Context, requestID string, action ApprovalAction) (*Request, error) {
	comment := strings.TrimSpace(action.Comment)
	if comment == "" {
		return nil, NewValidationError("comment", "a comment is required for approval actions")
	}
	status, ok := action.Decision.status()
	if !ok {
		return nil, NewValidationError("decision", "decision must be approve, reject or request_info")
	}
	if _, ok := s.lookup(requestID, action.DatasetID); !ok {
		return nil, NewNotFoundError("dataset_id", "request or dataset not found")
	}
	if err := sleepCtx(ctx, s.actionLatency); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	req := s.requests[requestID]
	for _, d := range req.Datasets {
		if d.DatasetID != action.DatasetID {
			continue
		}
		d.Status = status
		d.History = append(d.History, ActionRecord{
			Decision: action.Decision,
			Comment:  comment,
			Actor:    strings.TrimSpace(action.Actor),
			At:       s.clock().UTC(),
		})
	}
	return req.clone(), nil
}

func (s *RequestStore) lookup(requestID, datasetID string) (*DatasetRequest, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.requests[requestID]
	if !ok {
		return nil, false
	}
	for _, d := range req.Datasets {
		if d.DatasetID == datasetID {
			return d, true
		}
	}
	return nil, false
}

// sleepCtx waits d or until ctx is done. Simulated network calls go through
// it so callers can abandon them.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		if err := ctx.Err(); err != nil {
			return abandoned(err)
		}
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return abandoned(ctx.Err())
	case <-t.C:
		return nil
	}
}

func abandoned(err error) error {
	return newError(CodeUnavailable, "", "request abandoned: "+err.Error())
}
