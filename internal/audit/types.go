package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// ActionKind is the semantic category bound to a route when it is
// registered. It is never derived from the HTTP verb.
type ActionKind string

const (
	ActionCreate ActionKind = "CREATE"
	ActionUpdate ActionKind = "UPDATE"
	ActionDelete ActionKind = "DELETE"
	ActionView   ActionKind = "VIEW"
)

// Valid reports whether k is one of the four known kinds.
func (k ActionKind) Valid() bool {
	switch k {
	case ActionCreate, ActionUpdate, ActionDelete, ActionView:
		return true
	}
	return false
}

// CapturesBody reports whether records of this kind keep the request body.
func (k ActionKind) CapturesBody() bool {
	return k == ActionCreate || k == ActionUpdate
}

// Detail describes the request that produced a record.
type Detail struct {
	Method    string          `json:"method"`
	Path      string          `json:"path"`
	Body      json.RawMessage `json:"body"`
	Timestamp time.Time       `json:"timestamp"`
}

// Record is one immutable audit log entry.
type Record struct {
	ID               string     `json:"id"`
	ActorID          string     `json:"actorId"`
	AffectedEntityID *string    `json:"affectedEntityId"`
	Action           ActionKind `json:"action"`
	Detail           Detail     `json:"detail"`
	SourceAddress    *string    `json:"sourceAddress"`
	ClientAgent      *string    `json:"clientAgent"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// Query selects a page of records, most recent first. Empty filters match
// everything.
type Query struct {
	ActorID          string
	AffectedEntityID string
	Page             int
	Limit            int
}

// Normalize clamps Page to at least 1 and Limit to (0, maxLimit],
// substituting defaultLimit when Limit is unset. Page is also capped so
// that Offset cannot overflow.
func (q Query) Normalize(defaultLimit, maxLimit int) Query {
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	if q.Limit > maxLimit {
		q.Limit = maxLimit
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit > 0 && q.Page > math.MaxInt/q.Limit {
		q.Page = math.MaxInt / q.Limit
	}
	return q
}

// Offset is the number of records skipped before the page starts. It
// saturates at math.MaxInt instead of overflowing.
func (q Query) Offset() int {
	if q.Page <= 1 || q.Limit <= 0 {
		return 0
	}
	if q.Page-1 > math.MaxInt/q.Limit {
		return math.MaxInt
	}
	return (q.Page - 1) * q.Limit
}

func (q Query) matches(r *Record) bool {
	if q.ActorID != "" && r.ActorID != q.ActorID {
		return false
	}
	if q.AffectedEntityID != "" && (r.AffectedEntityID == nil || *r.AffectedEntityID != q.AffectedEntityID) {
		return false
	}
	return true
}

// Page is one slice of a listing together with the unpaginated total.
type Page struct {
	Records []Record `json:"records"`
	Total   int      `json:"total"`
	Page    int      `json:"page"`
	Limit   int      `json:"limit"`
}

// Store persists records. Append is only ever called from the recorder's
// worker, List from any goroutine.
type Store interface {
	Name() string
	Append(ctx context.Context, rec *Record) error
	List(ctx context.Context, q Query) (*Page, error)
	Close() error
}

func validateForAppend(rec *Record) error {
	if rec.ID == "" {
		return fmt.Errorf("audit record has no id")
	}
	if rec.ActorID == "" {
		return fmt.Errorf("audit record %s has no actor", rec.ID)
	}
	if !rec.Action.Valid() {
		return fmt.Errorf("audit record %s has unknown action %q", rec.ID, rec.Action)
	}
	return nil
}
