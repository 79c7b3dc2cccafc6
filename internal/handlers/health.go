package handlers

import (
	"runtime"
	"time"

	"github.com/gofiber/fiber/v2"
)

// HealthStatus represents the health status of the service
type HealthStatus struct {
	Status    string       `json:"status"`
	Version   string       `json:"version"`
	Uptime    string       `json:"uptime"`
	Timestamp time.Time    `json:"timestamp"`
	Storage   string       `json:"storage"`
	Audit     AuditHealth  `json:"audit"`
	System    SystemHealth `json:"system"`
}

type AuditHealth struct {
	Enabled bool `json:"enabled"`
}

type SystemHealth struct {
	Goroutines  int    `json:"goroutines"`
	MemoryAlloc uint64 `json:"memory_alloc_bytes"`
	MemorySys   uint64 `json:"memory_sys_bytes"`
	NumGC       uint32 `json:"num_gc"`
}

// HealthHandler handles health check operations
type HealthHandler struct {
	version      string
	storage      string
	auditEnabled bool
	startTime    time.Time
}

func NewHealthHandler(version, storage string, auditEnabled bool) *HealthHandler {
	return &HealthHandler{
		version:      version,
		storage:      storage,
		auditEnabled: auditEnabled,
		startTime:    time.Now(),
	}
}

// Check returns the service health
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return c.JSON(HealthStatus{
		Status:    "healthy",
		Version:   h.version,
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Timestamp: time.Now().UTC(),
		Storage:   h.storage,
		Audit:     AuditHealth{Enabled: h.auditEnabled},
		System: SystemHealth{
			Goroutines:  runtime.NumGoroutine(),
			MemoryAlloc: m.Alloc,
			MemorySys:   m.Sys,
			NumGC:       m.NumGC,
		},
	})
}
