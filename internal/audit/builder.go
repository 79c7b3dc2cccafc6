package audit

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	ErrNoActor       = errors.New("audit record requires an actor")
	ErrUnknownAction = errors.New("unknown audit action")
)

// Request is the inbound side of an audited operation, copied out of the
// transport before the handler's buffers are recycled.
type Request struct {
	Method      string
	OriginalURL string
	Body        []byte
	// EntityParam is the value of the route parameter naming the
	// affected entity, empty when the route has none.
	EntityParam string
	// SourceCandidates are remote address readings in decreasing order of
	// preference; the first non-empty one wins.
	SourceCandidates []string
	UserAgent        string
}

// Outcome is what the handler produced.
type Outcome struct {
	Status int
	Body   []byte
}

// Succeeded reports whether the outcome should be audited.
func (o Outcome) Succeeded() bool {
	return o.Status >= 200 && o.Status < 300
}

// BuildOptions tune record construction.
type BuildOptions struct {
	AgentMaxLength int
}

// Build assembles the record for a successful operation. now is the
// trigger time stored in the record detail. Build does not check the
// outcome status, callers decide whether to audit via Outcome.Succeeded.
func Build(actorID string, kind ActionKind, req Request, out Outcome, now time.Time, opts BuildOptions) (*Record, error) {
	if actorID == "" {
		return nil, ErrNoActor
	}
	if !kind.Valid() {
		return nil, ErrUnknownAction
	}

	detail := Detail{
		Method:    req.Method,
		Path:      req.OriginalURL,
		Timestamp: now.UTC(),
	}
	if kind.CapturesBody() {
		detail.Body = snapshotBody(req.Body)
	}

	return &Record{
		ActorID:          actorID,
		AffectedEntityID: ResolveEntityID(req.EntityParam, out.Body),
		Action:           kind,
		Detail:           detail,
		SourceAddress:    firstNonEmpty(req.SourceCandidates),
		ClientAgent:      capAgent(req.UserAgent, opts.AgentMaxLength),
	}, nil
}

// ResolveEntityID picks the affected entity: the route parameter, then
// data.id of the response envelope, then a top-level id. Only string and
// numeric ids are accepted.
func ResolveEntityID(param string, responseBody []byte) *string {
	if param != "" {
		return &param
	}
	if len(responseBody) == 0 {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(responseBody))
	dec.UseNumber()

	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return nil
	}

	if data, ok := payload["data"].(map[string]any); ok {
		if id, ok := idString(data["id"]); ok {
			return &id
		}
	}
	if id, ok := idString(payload["id"]); ok {
		return &id
	}
	return nil
}

func idString(v any) (string, bool) {
	switch id := v.(type) {
	case string:
		return id, id != ""
	case json.Number:
		return id.String(), true
	default:
		return "", false
	}
}

// snapshotBody keeps JSON bodies as-is and wraps anything else in a JSON
// string. Empty bodies are recorded as null. JSON carrying invalid UTF-8 or
// an escaped NUL is stored as a cleaned string instead.
func snapshotBody(body []byte) json.RawMessage {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if json.Valid(body) && utf8.Valid(body) && !bytes.Contains(body, []byte(`\u0000`)) {
		return append(json.RawMessage(nil), body...)
	}
	quoted, err := json.Marshal(cleanText(string(body)))
	if err != nil {
		return nil
	}
	return quoted
}

func firstNonEmpty(values []string) *string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return &v
		}
	}
	return nil
}

func capAgent(agent string, max int) *string {
	agent = cleanText(agent)
	if max > 0 && len(agent) > max {
		for max > 0 && !utf8.RuneStart(agent[max]) {
			max--
		}
		agent = agent[:max]
	}
	if agent == "" {
		return nil
	}
	return &agent
}

// cleanText replaces invalid UTF-8 and drops NUL bytes, neither of which
// text and jsonb columns accept.
func cleanText(s string) string {
	return strings.ReplaceAll(strings.ToValidUTF8(s, "\uFFFD"), "\x00", "")
}
