// Package session drives the sidebar workflow as an explicit state machine:
// analyze fields, pick a project, request an AI mapping, fill the page. Every
// asynchronous step either lands in the next stable state or rolls back to
// the previous one with a user-facing message; the workflow is never left
// stuck mid-transition.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-formguide/pkg/bus"
	"github.com/goliatone/go-formguide/pkg/field"
)

// State is one stage of the analyze → select → fill sequence.
type State string

const (
	StateIdle             State = "idle"
	StateFieldsAnalyzing  State = "fields_analyzing"
	StateFieldsAnalyzed   State = "fields_analyzed"
	StateProjectSelecting State = "project_selecting"
	StateProjectSelected  State = "project_selected"
	StateAutoFilling      State = "auto_filling"
	StateFilled           State = "filled"
)

var (
	// ErrBusy means another analyze/auto-fill operation is still in flight;
	// the UI disables triggering actions while pending for the same reason.
	ErrBusy = errors.New("session: operation already in flight")
	// ErrNoFields is the informational empty state: the page has nothing to
	// fill. Not a failure dialog.
	ErrNoFields = errors.New("session: no fillable fields found on this page")
	// ErrNotReady means the requested transition is not legal from the
	// current state (e.g. auto-fill before a project is selected).
	ErrNotReady = errors.New("session: workflow not ready for this action")
)

// Content is the channel to the content runtime living alongside the page.
type Content interface {
	DetectForms(ctx context.Context) (int, error)
	DetectedFields(ctx context.Context) ([]field.LogicalField, error)
	ApplyValues(ctx context.Context, values field.ValueMap) (int, error)
	StoreSelection(ctx context.Context, project field.Project) error
}

// Injector attaches a content runtime to the page on demand. Detection is
// declared for a fixed set of URL patterns and may not cover the active page;
// when the first detect request times out unanswered, the session injects and
// retries once.
type Injector interface {
	Inject(ctx context.Context) error
}

// Backend is the slice of the HTTP backend the workflow consumes.
type Backend interface {
	AnalyzeFields(ctx context.Context, analysis field.PageAnalysis) error
	Projects(ctx context.Context) ([]field.Project, error)
	AutoFill(ctx context.Context, fields []field.LogicalField, project field.Project) (field.ValueMap, error)
}

// Session holds one sidebar session's workflow state. Detection results are
// values threaded through the machine, not ambient detector state.
type Session struct {
	mu       sync.Mutex
	state    State
	inflight bool
	lastErr  string

	fields  []field.LogicalField
	project *field.Project

	pageURL   string
	pageTitle string

	content  Content
	injector Injector
	backend  Backend
	samples  []SampleEntry
	logger   *zap.Logger
}

// Option customises a Session.
type Option func(*Session)

// WithLogger attaches a logger; the default is a nop.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithInjector enables the on-demand content runtime injection fallback.
func WithInjector(inj Injector) Option {
	return func(s *Session) {
		s.injector = inj
	}
}

// WithPage records the active page identity used in analysis uploads.
func WithPage(url, title string) Option {
	return func(s *Session) {
		s.pageURL = url
		s.pageTitle = title
	}
}

// WithSampleData overrides the degraded-mode sample dictionary. Order is the
// match priority.
func WithSampleData(samples []SampleEntry) Option {
	return func(s *Session) {
		s.samples = samples
	}
}

// New builds an idle Session over a content channel and a backend.
func New(content Content, backend Backend, options ...Option) *Session {
	s := &Session{
		state:   StateIdle,
		content: content,
		backend: backend,
		samples: DefaultSampleData(),
		logger:  zap.NewNop(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s
}

// SetPage updates the active page identity after construction, e.g. when the
// sidebar follows the user to another tab.
func (s *Session) SetPage(url, title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pageURL = url
	s.pageTitle = title
}

// State returns the current workflow state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Fields returns a copy of the last detection result.
func (s *Session) Fields() []field.LogicalField {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]field.LogicalField, len(s.fields))
	copy(out, s.fields)
	return out
}

// Project returns the selected project, or nil.
func (s *Session) Project() *field.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.project == nil {
		return nil
	}
	p := *s.project
	return &p
}

// LastError returns the most recent user-facing failure message, empty when
// the last operation succeeded.
func (s *Session) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// AnalyzeFields runs a detection pass against the active page. A fresh pass
// is allowed from any stable state; its result supersedes the previous one.
// Zero fields is the informational empty state, rolled back to Idle.
func (s *Session) AnalyzeFields(ctx context.Context) (int, error) {
	prev, err := s.begin(StateFieldsAnalyzing)
	if err != nil {
		return 0, err
	}

	count, err := s.detectWithInjection(ctx)
	if err != nil {
		return 0, s.fail(prev, fmt.Errorf("session: analyze fields: %w", err))
	}
	s.logger.Debug("detection pass finished", zap.Int("fieldsCount", count))

	fields, err := s.content.DetectedFields(ctx)
	if err != nil {
		return 0, s.fail(prev, fmt.Errorf("session: collect fields: %w", err))
	}
	if len(fields) == 0 {
		s.rollback(StateIdle, ErrNoFields.Error())
		return 0, ErrNoFields
	}

	s.mu.Lock()
	s.fields = fields
	s.project = nil
	s.mu.Unlock()

	// analytics push; its response carries nothing the workflow needs
	if err := s.backend.AnalyzeFields(ctx, field.PageAnalysis{
		URL:       s.pageURL,
		Title:     s.pageTitle,
		Timestamp: time.Now().UTC(),
		Fields:    fields,
	}); err != nil {
		s.logger.Warn("field analysis upload failed", zap.Error(err))
	}

	s.complete(StateFieldsAnalyzed)
	return len(fields), nil
}

func (s *Session) detectWithInjection(ctx context.Context) (int, error) {
	count, err := s.content.DetectForms(ctx)
	if err == nil || s.injector == nil || !errors.Is(err, bus.ErrNoResponder) {
		return count, err
	}

	s.logger.Info("no content runtime answered, injecting")
	if injErr := s.injector.Inject(ctx); injErr != nil {
		return 0, fmt.Errorf("inject content runtime: %w", injErr)
	}
	return s.content.DetectForms(ctx)
}

// Projects fetches the project list for selection. Read-only; a transport
// failure rolls back to the prior state.
func (s *Session) Projects(ctx context.Context) ([]field.Project, error) {
	s.mu.Lock()
	if s.inflight {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	if len(s.fields) == 0 {
		s.mu.Unlock()
		return nil, ErrNotReady
	}
	prev := s.state
	s.state = StateProjectSelecting
	s.inflight = true
	s.mu.Unlock()

	projects, err := s.backend.Projects(ctx)
	if err != nil {
		return nil, s.fail(prev, fmt.Errorf("session: fetch projects: %w", err))
	}

	s.mu.Lock()
	s.inflight = false
	s.lastErr = ""
	s.mu.Unlock()
	return projects, nil
}

// SelectProject records the user's choice and persists it alongside the
// page's detection state.
func (s *Session) SelectProject(ctx context.Context, project field.Project) error {
	s.mu.Lock()
	if s.inflight {
		s.mu.Unlock()
		return ErrBusy
	}
	if len(s.fields) == 0 {
		s.mu.Unlock()
		return ErrNotReady
	}
	s.project = &project
	s.state = StateProjectSelected
	s.lastErr = ""
	s.mu.Unlock()

	if err := s.content.StoreSelection(ctx, project); err != nil {
		s.logger.Warn("storing selected project failed", zap.Error(err))
	}
	return nil
}

// AutoFill requests an AI mapping for the detected fields and applies it to
// the page. An empty mapping activates the deterministic sample-data
// dictionary instead of failing outright.
func (s *Session) AutoFill(ctx context.Context) (int, error) {
	s.mu.Lock()
	if s.inflight {
		s.mu.Unlock()
		return 0, ErrBusy
	}
	if s.project == nil || len(s.fields) == 0 {
		s.mu.Unlock()
		return 0, ErrNotReady
	}
	prev := s.state
	fields := s.fields
	project := *s.project
	s.state = StateAutoFilling
	s.inflight = true
	s.mu.Unlock()

	values, err := s.backend.AutoFill(ctx, fields, project)
	if err != nil {
		return 0, s.fail(prev, fmt.Errorf("session: auto fill: %w", err))
	}
	if !hasFillable(values) {
		s.logger.Info("mapping service returned no values, using sample data")
		values = SampleValues(s.samples, fields)
	}

	filled, err := s.content.ApplyValues(ctx, values)
	if err != nil {
		return 0, s.fail(prev, fmt.Errorf("session: apply values: %w", err))
	}

	s.complete(StateFilled)
	s.logger.Info("auto-fill finished", zap.Int("filled", filled))
	return filled, nil
}

func hasFillable(values field.ValueMap) bool {
	for key := range values {
		if values.Fillable(key) {
			return true
		}
	}
	return false
}

// begin guards against re-entrant operations and enters a pending state,
// returning the state to roll back to on failure.
func (s *Session) begin(pending State) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight {
		return "", ErrBusy
	}
	prev := s.state
	s.state = pending
	s.inflight = true
	return prev, nil
}

// fail rolls back to the prior stable state and surfaces the error message.
func (s *Session) fail(prev State, err error) error {
	s.rollback(prev, err.Error())
	s.logger.Warn("workflow step failed", zap.String("rolledBackTo", string(prev)), zap.Error(err))
	return err
}

func (s *Session) rollback(to State, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = to
	s.inflight = false
	s.lastErr = message
}

func (s *Session) complete(next State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = next
	s.inflight = false
	s.lastErr = ""
}
