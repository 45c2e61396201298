// Package content is the runtime that lives alongside the page, the way a
// content script lives inside a tab: it owns the current document, answers
// detect/apply requests off the bus, and re-runs detection whenever the page
// structure changes underneath it.
package content

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	cache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/goliatone/go-formguide/pkg/apply"
	"github.com/goliatone/go-formguide/pkg/bus"
	"github.com/goliatone/go-formguide/pkg/detect"
	"github.com/goliatone/go-formguide/pkg/field"
	"github.com/goliatone/go-formguide/pkg/page"
)

// Local storage keys, mirroring the extension's chrome.storage.local layout.
const (
	StorageKeyFields        = "detectedFields"
	StorageKeySelection     = "selectedProject"
	StorageKeyLastDetection = "lastDetectionTime"
)

// Runtime serves content requests for one page document.
type Runtime struct {
	bus      *bus.Bus
	detector *detect.Detector
	applier  *apply.Applier
	storage  *cache.Cache
	logger   *zap.Logger

	mu      sync.Mutex
	doc     *page.Document
	pageURL string
	reload  func() (*page.Document, error)

	startOnce sync.Once
	started   chan struct{}
}

// Option customises the Runtime.
type Option func(*Runtime)

// WithDetector injects a custom detector.
func WithDetector(d *detect.Detector) Option {
	return func(r *Runtime) {
		if d != nil {
			r.detector = d
		}
	}
}

// WithLogger attaches a logger; the default is a nop.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runtime) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New builds a Runtime bound to a bus. Call SetDocument before Start, or use
// the facade which wires both.
func New(b *bus.Bus, options ...Option) (*Runtime, error) {
	r := &Runtime{
		bus:     b,
		applier: apply.New(),
		storage: cache.New(1*time.Hour, 10*time.Minute),
		logger:  zap.NewNop(),
		started: make(chan struct{}),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}
	if r.detector == nil {
		d, err := detect.New()
		if err != nil {
			return nil, err
		}
		r.detector = d
	}
	return r, nil
}

// SetDocument swaps the live document, superseding any prior detection state.
func (r *Runtime) SetDocument(doc *page.Document, pageURL string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.doc = doc
	r.pageURL = pageURL
	r.storage.Delete(StorageKeyFields)
	r.storage.Delete(StorageKeyLastDetection)
}

// Document returns the live document.
func (r *Runtime) Document() *page.Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.doc
}

// Start subscribes the runtime to its topics and begins serving. It is
// idempotent, which is what makes it usable as the session's injection
// fallback: injecting an already-running runtime is a no-op.
func (r *Runtime) Start(ctx context.Context) error {
	var startErr error
	r.startOnce.Do(func() {
		requests, err := r.bus.Subscribe(ctx, bus.TopicContentRequest)
		if err != nil {
			startErr = err
			return
		}
		mutations, err := r.bus.Subscribe(ctx, bus.TopicPageMutated)
		if err != nil {
			startErr = err
			return
		}
		go r.serve(ctx, requests, mutations)
		close(r.started)
	})
	if startErr != nil {
		return startErr
	}
	select {
	case <-r.started:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Inject satisfies the session's Injector contract.
func (r *Runtime) Inject(ctx context.Context) error {
	return r.Start(ctx)
}

func (r *Runtime) serve(ctx context.Context, requests, mutations <-chan *message.Message) {
	for {
		select {
		case msg, ok := <-requests:
			if !ok {
				return
			}
			r.handleRequest(msg)
			msg.Ack()
		case msg, ok := <-mutations:
			if !ok {
				return
			}
			r.handleMutation()
			msg.Ack()
		case <-ctx.Done():
			return
		}
	}
}

func (r *Runtime) handleRequest(msg *message.Message) {
	var req bus.Request
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		r.logger.Warn("undecodable content request", zap.Error(err))
		r.reply(msg, bus.Response{Success: false, Message: "undecodable request"})
		return
	}

	resp := bus.Response{Success: true, Seq: req.Seq}
	switch req.Action {
	case bus.ActionDetectForms:
		resp.FieldsCount = len(r.detectAndStore())
	case bus.ActionGetFields:
		resp.Fields = r.storedFields()
	case bus.ActionApplyValues:
		doc := r.Document()
		if doc == nil {
			resp.Success = false
			resp.Message = "no active page"
			break
		}
		resp.Filled = r.applier.Apply(doc, req.Values)
	case bus.ActionStoreSelection:
		if req.Project != nil {
			raw, _ := json.Marshal(req.Project)
			r.storage.Set(StorageKeySelection, raw, cache.DefaultExpiration)
		}
	default:
		resp.Success = false
		resp.Message = "unknown action: " + req.Action
	}
	r.reply(msg, resp)
}

// SetReloader installs a callback that re-parses the page source before a
// mutation-triggered re-detection. Without one, the runtime re-scans the
// in-memory document, which is correct when callers mutate it in place.
func (r *Runtime) SetReloader(fn func() (*page.Document, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reload = fn
}

// handleMutation re-runs detection after a structural page change; the fresh
// result simply supersedes the stored one.
func (r *Runtime) handleMutation() {
	r.mu.Lock()
	reload := r.reload
	r.mu.Unlock()

	if reload != nil {
		doc, err := reload()
		if err != nil {
			r.logger.Warn("reload page source", zap.Error(err))
		} else {
			r.mu.Lock()
			r.doc = doc
			r.mu.Unlock()
		}
	}

	fields := r.detectAndStore()
	r.logger.Debug("re-detection after page mutation", zap.Int("fields", len(fields)))
}

func (r *Runtime) detectAndStore() []field.LogicalField {
	doc := r.Document()
	if doc == nil {
		return nil
	}
	fields := r.detector.Detect(doc)

	raw, err := json.Marshal(fields)
	if err != nil {
		r.logger.Warn("marshal detected fields", zap.Error(err))
		return fields
	}
	r.storage.Set(StorageKeyFields, raw, cache.DefaultExpiration)
	r.storage.Set(StorageKeyLastDetection, time.Now().UTC().Format(time.RFC3339), cache.DefaultExpiration)
	return fields
}

// storedFields returns the last persisted detection result, running a fresh
// pass when nothing is stored yet.
func (r *Runtime) storedFields() []field.LogicalField {
	if raw, found := r.storage.Get(StorageKeyFields); found {
		var fields []field.LogicalField
		if err := json.Unmarshal(raw.([]byte), &fields); err == nil {
			return fields
		}
	}
	return r.detectAndStore()
}

// SelectedProject reads the persisted project selection, if any.
func (r *Runtime) SelectedProject() (field.Project, bool) {
	raw, found := r.storage.Get(StorageKeySelection)
	if !found {
		return field.Project{}, false
	}
	var project field.Project
	if err := json.Unmarshal(raw.([]byte), &project); err != nil {
		return field.Project{}, false
	}
	return project, true
}

// LastDetectionTime reads the persisted last-detection timestamp.
func (r *Runtime) LastDetectionTime() (time.Time, bool) {
	raw, found := r.storage.Get(StorageKeyLastDetection)
	if !found {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339, raw.(string))
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

func (r *Runtime) reply(msg *message.Message, resp bus.Response) {
	raw, err := json.Marshal(resp)
	if err != nil {
		r.logger.Warn("marshal content response", zap.Error(err))
		return
	}
	if err := r.bus.Reply(msg, raw); err != nil {
		r.logger.Warn("reply to content request", zap.Error(err))
	}
}
