package messages

import (
	"context"
	"encoding/gob"

	"github.com/alexedwards/scs/v2"
)

// Level is the severity of a message shown to the user.
type Level int

const (
	Info Level = iota
	Success
	Warning
	Error
)

// Tag returns the CSS class the level is rendered with.
func (l Level) Tag() string {
	switch l {
	case Info:
		return "info"
	case Success:
		return "success"
	case Warning:
		return "warning"
	case Error:
		return "danger"
	default:
		return "info"
	}
}

type Message struct {
	Level Level
	Text  string
}

const sessionKey = "messages"

func init() {
	gob.Register([]Message{})
}

// Sink receives human readable outcomes for the presentation layer.
type Sink interface {
	Add(ctx context.Context, level Level, text string)
}

// SessionSink keeps messages in the session until the next page render pops them.
type SessionSink struct {
	sessions *scs.SessionManager
}

func NewSessionSink(sessions *scs.SessionManager) *SessionSink {
	return &SessionSink{sessions: sessions}
}

func (s *SessionSink) Add(ctx context.Context, level Level, text string) {
	if text == "" {
		return
	}
	pending, _ := s.sessions.Get(ctx, sessionKey).([]Message)
	s.sessions.Put(ctx, sessionKey, append(pending, Message{Level: level, Text: text}))
}

func (s *SessionSink) Pop(ctx context.Context) []Message {
	pending, _ := s.sessions.Pop(ctx, sessionKey).([]Message)
	return pending
}
