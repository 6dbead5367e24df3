package eventsink

import (
	"context"
	"sync"
	"time"

	"github.com/nao1215/swiftguard/internal/model"
)

// EventType names an event kind.
type EventType string

const (
	// TypeDistressDetected is emitted for a flagged chatbot message.
	TypeDistressDetected EventType = "distress_detected"
	// TypeSocialMediaFlagged is emitted for a flagged photo post.
	TypeSocialMediaFlagged EventType = "social_media_flagged"
)

// Event is one record appended to a family's event log.
type Event struct {
	ID             string    `json:"id"`
	Src            string    `json:"src"`
	Type           EventType `json:"type"`
	Platform       string    `json:"platform"`
	URL            string    `json:"url,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	MessagePreview string    `json:"messagePreview"`
	Summary        string    `json:"summary,omitempty"`
	Analysis       string    `json:"analysis"`
	Reasoning      string    `json:"reasoning,omitempty"`
	Flagged        bool      `json:"flagged"`
}

// Sink appends events for an enrolled family member.
type Sink interface {
	Emit(ctx context.Context, enrollment model.Enrollment, ev Event) error
}

// Identity reports the currently authenticated user.
type Identity interface {
	CurrentUID(ctx context.Context) (string, error)
}

// SessionIdentity is an Identity set by the settings page after sign-in.
type SessionIdentity struct {
	mu  sync.RWMutex
	uid string
}

// NewSessionIdentity returns an identity signed in as uid; "" means signed out.
func NewSessionIdentity(uid string) *SessionIdentity {
	return &SessionIdentity{uid: uid}
}

// SignIn records uid as the authenticated user.
func (s *SessionIdentity) SignIn(uid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uid = uid
}

// SignOut forgets the authenticated user.
func (s *SessionIdentity) SignOut() {
	s.SignIn("")
}

// CurrentUID implements Identity.
func (s *SessionIdentity) CurrentUID(context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.uid == "" {
		return "", ErrAuthFailure
	}
	return s.uid, nil
}

// ensureSignedIn checks that the authenticated user is the enrolled member.
func ensureSignedIn(ctx context.Context, id Identity, familyUserID string) error {
	if id == nil {
		return ErrAuthFailure
	}
	uid, err := id.CurrentUID(ctx)
	if err != nil {
		return err
	}
	if uid != familyUserID {
		return ErrAuthFailure
	}
	return nil
}
