package eventsink

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"

	"github.com/nao1215/swiftguard/internal/model"
)

// DefaultSubjectPrefix is the subject root for family events.
const DefaultSubjectPrefix = "families"

// NATS is a Sink that publishes JSON events on a NATS connection.
type NATS struct {
	nc       *nats.Conn
	prefix   string
	identity Identity
	now      func() time.Time
}

// NewNATS creates a sink. An empty prefix selects DefaultSubjectPrefix.
func NewNATS(nc *nats.Conn, prefix string, identity Identity) *NATS {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &NATS{nc: nc, prefix: prefix, identity: identity, now: time.Now}
}

// Subject returns the subject events for familyID are published on.
func (s *NATS) Subject(familyID string) string {
	return s.prefix + "." + familyID + ".events"
}

// Emit implements Sink. It fills in the event id, source and timestamp and
// waits until the server has received the event.
func (s *NATS) Emit(ctx context.Context, enrollment model.Enrollment, ev Event) error {
	if !enrollment.Enrolled() {
		return ErrNotEnrolled
	}
	if familyID := enrollment.FamilyID; strings.ContainsAny(familyID, " \t\r\n.*>") {
		return fmt.Errorf("%w: %q", ErrInvalidFamilyID, familyID)
	}
	if err := ensureSignedIn(ctx, s.identity, enrollment.FamilyUserID); err != nil {
		return err
	}

	ev.ID = uuid.NewString()
	ev.Src = enrollment.FamilyUserID
	ev.Timestamp = s.now().UTC()

	if err := publish(ctx, s.nc, s.Subject(enrollment.FamilyID), ev); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	if err := s.nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("failed to flush event: %w", err)
	}
	return nil
}

// headerCarrier adapts nats.Msg headers for OTel propagation.
type headerCarrier nats.Msg

func (c *headerCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *headerCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *headerCarrier) Keys() []string {
	if c.Header == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}

// publish serializes v as JSON and injects the trace context from ctx.
func publish[T any](ctx context.Context, nc *nats.Conn, subject string, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	msg := &nats.Msg{Subject: subject, Data: data}
	otel.GetTextMapPropagator().Inject(ctx, (*headerCarrier)(msg))
	return nc.PublishMsg(msg)
}
