package pipeline

import (
	"encoding/json"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/nimbusworks/platform-api/internal/core/domain"
)

// Context keys owned by the pipeline. Typed accessors below are the only
// supported way to read them.
const (
	principalKey = "pipeline.principal"
	inputKey     = "pipeline.input"
	startKey     = "pipeline.start"
	dataKey      = "pipeline.data"
)

// Meta is attached to every envelope.
type Meta struct {
	DurationMs int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

// Envelope is the uniform response shape. Error is always the generic
// taxonomy message; the caller's role and the requirements that failed are
// never disclosed here.
type Envelope struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data,omitempty"`
	Error   string              `json:"error,omitempty"`
	Errors  []domain.FieldError `json:"errors,omitempty"`
	Meta    Meta                `json:"meta"`
}

// Principal returns the resolved principal, if the auth stage ran.
func Principal(c echo.Context) (domain.Principal, bool) {
	p, ok := c.Get(principalKey).(domain.Principal)
	return p, ok
}

// Input returns the bound, sanitized and validated request payload for
// endpoints configured with NewInput.
func Input[T any](c echo.Context) (T, bool) {
	v, ok := c.Get(inputKey).(T)
	return v, ok
}

// OK writes the success envelope. The marshaled data is also stashed so the
// cache stage can store it without re-running the handler.
func OK(c echo.Context, status int, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	c.Set(dataKey, raw)
	return c.JSON(status, Envelope{
		Success: true,
		Data:    raw,
		Meta:    metaFor(c),
	})
}

// NoContent writes a success envelope without data.
func NoContent(c echo.Context, status int) error {
	return c.JSON(status, Envelope{Success: true, Meta: metaFor(c)})
}

func metaFor(c echo.Context) Meta {
	now := time.Now().UTC()
	m := Meta{Timestamp: now}
	if start, ok := c.Get(startKey).(time.Time); ok {
		m.DurationMs = now.Sub(start).Milliseconds()
	}
	return m
}
