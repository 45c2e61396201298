package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/goliatone/go-formguide/pkg/field"
)

// Actions the content runtime handles.
const (
	ActionDetectForms    = "detectForms"
	ActionGetFields      = "getDetectedFields"
	ActionApplyValues    = "applyValues"
	ActionStoreSelection = "storeSelectedProject"
)

// Request is the envelope for every content-runtime message. Seq is a
// monotonic counter the runtime echoes back; responses carrying a stale
// sequence are discarded rather than applied.
type Request struct {
	Action  string         `json:"action"`
	Seq     uint64         `json:"seq"`
	Values  field.ValueMap `json:"values,omitempty"`
	Project *field.Project `json:"project,omitempty"`
}

// Response is the envelope the content runtime answers with. Fields is only
// populated for getDetectedFields.
type Response struct {
	Success     bool                 `json:"success"`
	Seq         uint64               `json:"seq"`
	FieldsCount int                  `json:"fieldsCount,omitempty"`
	Fields      []field.LogicalField `json:"fields,omitempty"`
	Filled      int                  `json:"filled,omitempty"`
	Message     string               `json:"message,omitempty"`
}

// DefaultRequestTimeout bounds how long a content request waits before the
// session concludes no content runtime is attached to the page.
const DefaultRequestTimeout = 5 * time.Second

// ContentClient speaks the request envelope over the bus, one sequence number
// per request.
type ContentClient struct {
	bus     *Bus
	timeout time.Duration
	seq     atomic.Uint64
}

// NewContentClient builds a client with the default request timeout.
func NewContentClient(b *Bus) *ContentClient {
	return &ContentClient{bus: b, timeout: DefaultRequestTimeout}
}

// WithTimeout overrides the per-request timeout and returns the client.
func (c *ContentClient) WithTimeout(d time.Duration) *ContentClient {
	if d > 0 {
		c.timeout = d
	}
	return c
}

// DetectForms triggers a detection pass and returns the detected field count.
func (c *ContentClient) DetectForms(ctx context.Context) (int, error) {
	resp, err := c.roundTrip(ctx, Request{Action: ActionDetectForms})
	if err != nil {
		return 0, err
	}
	return resp.FieldsCount, nil
}

// DetectedFields fetches the fields from the runtime's last detection pass.
func (c *ContentClient) DetectedFields(ctx context.Context) ([]field.LogicalField, error) {
	resp, err := c.roundTrip(ctx, Request{Action: ActionGetFields})
	if err != nil {
		return nil, err
	}
	return resp.Fields, nil
}

// ApplyValues asks the runtime to fill the page and returns the filled count.
func (c *ContentClient) ApplyValues(ctx context.Context, values field.ValueMap) (int, error) {
	resp, err := c.roundTrip(ctx, Request{Action: ActionApplyValues, Values: values})
	if err != nil {
		return 0, err
	}
	return resp.Filled, nil
}

// StoreSelection persists the chosen project in the runtime's local storage.
func (c *ContentClient) StoreSelection(ctx context.Context, project field.Project) error {
	_, err := c.roundTrip(ctx, Request{Action: ActionStoreSelection, Project: &project})
	return err
}

func (c *ContentClient) roundTrip(ctx context.Context, req Request) (Response, error) {
	req.Seq = c.seq.Add(1)

	payload, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("bus: marshal %s request: %w", req.Action, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := c.bus.Request(ctx, TopicContentRequest, payload)
	if err != nil {
		return Response{}, err
	}

	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Response{}, fmt.Errorf("bus: decode %s response: %w", req.Action, err)
	}
	if resp.Seq != req.Seq {
		return Response{}, fmt.Errorf("bus: stale %s response (seq %d, want %d)", req.Action, resp.Seq, req.Seq)
	}
	if !resp.Success {
		return Response{}, fmt.Errorf("bus: %s failed: %s", req.Action, resp.Message)
	}
	return resp, nil
}
