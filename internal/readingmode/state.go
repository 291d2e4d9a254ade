package readingmode

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// SessionKey is the session entry holding a persisted reading mode override.
const SessionKey = "readingMode"

// Session is the slice of a session store the reading state needs.
type Session interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Delete(key string)
}

// MemorySession is a Session backed by a map.
type MemorySession struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemorySession() *MemorySession {
	return &MemorySession{values: map[string]string{}}
}

func (s *MemorySession) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *MemorySession) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

func (s *MemorySession) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}

// State holds the reading mode of one request or command. A State must not
// be shared between concurrent requests; give each its own via NewContext.
type State struct {
	mu          sync.Mutex
	mode        string
	defaultMode string
	session     Session
}

// NewState returns an unset State whose default is DefaultMode.
func NewState() *State {
	return &State{defaultMode: DefaultMode}
}

// NewStateWithSession is NewState with a session consulted by Effective
// and cleared by Reset.
func NewStateWithSession(session Session) *State {
	s := NewState()
	s.session = session
	return s
}

// Set stores mode. When prependStage is true a non-empty mode is treated as a
// stage name and stored as "Stage.<mode>"; otherwise it is stored verbatim,
// which is how fully qualified archive modes are installed. An empty mode
// clears the state.
func (s *State) Set(mode string, prependStage bool) error {
	if mode != "" && prependStage {
		mode = string(KindStage) + "." + mode
	}
	if mode != "" {
		if _, err := Parse(mode); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.mode = mode
	s.mu.Unlock()
	return nil
}

// SetStage stores "Stage.<stage>".
func (s *State) SetStage(stage Stage) error {
	return s.Set(string(stage), true)
}

// SetWithArchiveDate stores "Archive.<date>.<stage>".
func (s *State) SetWithArchiveDate(date time.Time, stage Stage) error {
	if err := ValidateStage(stage); err != nil {
		return err
	}
	s.mu.Lock()
	s.mode = ArchiveMode(date, stage).String()
	s.mu.Unlock()
	return nil
}

// Get returns the raw stored mode, "" when unset.
func (s *State) Get() string {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Default returns the fallback mode, DefaultMode for a nil State.
func (s *State) Default() string {
	if s == nil {
		return DefaultMode
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.defaultMode
}

// SetDefault replaces the fallback mode.
func (s *State) SetDefault(mode string) error {
	if _, err := Parse(mode); err != nil {
		return err
	}
	s.mu.Lock()
	s.defaultMode = mode
	s.mu.Unlock()
	return nil
}

// Effective returns the stored mode, else a persisted session override,
// else the default.
func (s *State) Effective() string {
	if s == nil {
		return DefaultMode
	}
	if mode := s.Get(); mode != "" {
		return mode
	}
	if s.session != nil {
		if mode, ok := s.session.Get(SessionKey); ok && mode != "" {
			if _, err := Parse(mode); err == nil {
				return mode
			}
		}
	}
	return s.Default()
}

// EffectiveMode is Effective parsed.
func (s *State) EffectiveMode() Mode {
	mode, err := Parse(s.Effective())
	if err != nil {
		return StageMode(StageLive)
	}
	return mode
}

// Persist stores the current mode as the session override.
func (s *State) Persist() {
	if s.session == nil {
		return
	}
	if mode := s.Get(); mode != "" {
		s.session.Set(SessionKey, mode)
	}
}

// Reset clears the stored mode and any persisted override.
func (s *State) Reset() {
	s.mu.Lock()
	s.mode = ""
	s.mu.Unlock()
	if s.session != nil {
		s.session.Delete(SessionKey)
	}
}

// With installs mode (verbatim) for the duration of fn and restores the
// previous value afterwards, including when fn fails or panics.
func (s *State) With(mode string, fn func() error) error {
	previous := s.Get()
	if err := s.Set(mode, false); err != nil {
		return err
	}
	defer func() {
		s.mu.Lock()
		s.mode = previous
		s.mu.Unlock()
	}()
	return fn()
}

// WithStage is With for "Stage.<stage>".
func (s *State) WithStage(stage Stage, fn func() error) error {
	if err := ValidateStage(stage); err != nil {
		return err
	}
	return s.With(StageMode(stage).String(), fn)
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying state.
func NewContext(ctx context.Context, state *State) context.Context {
	return context.WithValue(ctx, contextKey{}, state)
}

// FromContext returns the State carried by ctx, or nil.
func FromContext(ctx context.Context) *State {
	if ctx == nil {
		return nil
	}
	state, _ := ctx.Value(contextKey{}).(*State)
	return state
}

// Current returns the raw mode of the State in ctx, "" if there is none.
func Current(ctx context.Context) string {
	return FromContext(ctx).Get()
}

// Active returns the effective mode of the State in ctx, "" when ctx
// carries no State. Defaults and session overrides count as active.
func Active(ctx context.Context) string {
	state := FromContext(ctx)
	if state == nil {
		return ""
	}
	return state.Effective()
}

// Describe renders a mode for humans, e.g. "archive of Live at 2024-01-01".
func Describe(m Mode) string {
	if m.IsArchive() {
		return fmt.Sprintf("archive of %s at %s", m.Stage, m.Date)
	}
	return string(m.Stage)
}

// Resolve builds the State of one request from its stage and archive
// parameters. A non-empty archiveDate selects the archive of archiveStage,
// falling back to stage and then Draft. Without parameters the state holds
// defaultMode, so the mode is always concrete.
func Resolve(defaultMode string, stage Stage, archiveDate string, archiveStage Stage) (*State, error) {
	return ResolveWithSession(nil, defaultMode, stage, archiveDate, archiveStage)
}

// ResolveWithSession is Resolve for a State backed by session. Without
// parameters a persisted override wins over defaultMode.
func ResolveWithSession(session Session, defaultMode string, stage Stage, archiveDate string, archiveStage Stage) (*State, error) {
	s := NewStateWithSession(session)
	if defaultMode != "" {
		if err := s.SetDefault(defaultMode); err != nil {
			return nil, err
		}
	}

	switch {
	case archiveDate != "":
		date, err := ParseDate(archiveDate)
		if err != nil {
			return nil, err
		}
		if archiveStage == "" {
			archiveStage = stage
		}
		if archiveStage == "" {
			archiveStage = StageDraft
		}
		if err := s.SetWithArchiveDate(date, archiveStage); err != nil {
			return nil, err
		}
	case stage != "":
		if err := s.SetStage(stage); err != nil {
			return nil, err
		}
	default:
		if err := s.Set(s.Effective(), false); err != nil {
			return nil, err
		}
	}
	return s, nil
}
