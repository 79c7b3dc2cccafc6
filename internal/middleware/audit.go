package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/neogan74/catalog/internal/audit"
	"github.com/neogan74/catalog/internal/logger"
	"github.com/valyala/fasthttp"
)

// AuditSubmitter accepts records without waiting for them to be persisted.
type AuditSubmitter interface {
	Submit(rec *audit.Record) error
}

// AuditOptions tune how records are built from requests.
type AuditOptions struct {
	// EntityParam names the route parameter holding the affected entity id.
	EntityParam    string
	AgentMaxLength int
}

// AuditOperation records the outcome of the wrapped handler as an audit
// record of the given kind. Only 2xx responses are recorded. Building and
// submitting happen after the handler has produced its response and never
// change it.
func AuditOperation(recorder AuditSubmitter, kind audit.ActionKind, opts AuditOptions) fiber.Handler {
	if opts.EntityParam == "" {
		opts.EntityParam = "id"
	}

	return func(c *fiber.Ctx) error {
		if err := c.Next(); err != nil {
			// The error handler decides the status later, nothing succeeded.
			return err
		}

		outcome := audit.Outcome{
			Status: c.Response().StatusCode(),
			Body:   c.Response().Body(),
		}
		if !outcome.Succeeded() {
			return nil
		}

		recordOutcome(c, recorder, kind, outcome, opts)
		return nil
	}
}

func recordOutcome(c *fiber.Ctx, recorder AuditSubmitter, kind audit.ActionKind, outcome audit.Outcome, opts AuditOptions) {
	log := GetLogger(c)
	defer func() {
		if p := recover(); p != nil {
			log.Error("Audit recording panicked",
				logger.String("action", string(kind)),
				logger.Error(fmt.Errorf("%v", p)))
		}
	}()

	identity := GetIdentity(c)
	if identity == nil {
		log.Warn("Audited route reached without an identity",
			logger.String("action", string(kind)),
			logger.String("path", c.Path()))
		return
	}

	// fasthttp recycles request buffers once the handler chain returns.
	req := audit.Request{
		Method:           utils.CopyString(c.Method()),
		OriginalURL:      utils.CopyString(c.OriginalURL()),
		Body:             c.Body(),
		EntityParam:      utils.CopyString(c.Params(opts.EntityParam)),
		SourceCandidates: sourceCandidates(c.IP(), c.Context()),
		UserAgent:        utils.CopyString(c.Get(fiber.HeaderUserAgent)),
	}

	rec, err := audit.Build(identity.ID, kind, req, outcome, time.Now(), audit.BuildOptions{
		AgentMaxLength: opts.AgentMaxLength,
	})
	if err != nil {
		log.Error("Failed to build audit record", logger.String("action", string(kind)), logger.Error(err))
		return
	}

	if err := recorder.Submit(rec); err != nil {
		log.Warn("Audit record not submitted",
			logger.String("action", string(kind)),
			logger.String("actor_id", rec.ActorID),
			logger.Error(err))
	}
}

// sourceCandidates lists the peer address as fiber reports it, then the
// connection's remote IP and finally the raw socket address.
func sourceCandidates(peer string, ctx *fasthttp.RequestCtx) []string {
	out := []string{utils.CopyString(peer)}
	if ctx == nil {
		return out
	}
	if ip := ctx.RemoteIP(); ip != nil && !ip.IsUnspecified() {
		out = append(out, ip.String())
	}
	if addr := ctx.RemoteAddr(); addr != nil {
		out = append(out, addr.String())
	}
	return out
}
