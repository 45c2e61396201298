package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/goliatone/go-formguide/pkg/bus"
	"github.com/goliatone/go-formguide/pkg/field"
)

type fakeContent struct {
	mu sync.Mutex

	fields []field.LogicalField

	detectErr     error
	detectErrOnce bool
	detectCalls   int

	applied   field.ValueMap
	applyErr  error
	selection *field.Project
}

func (c *fakeContent) DetectForms(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.detectCalls++
	if c.detectErr != nil {
		err := c.detectErr
		if c.detectErrOnce {
			c.detectErr = nil
		}
		return 0, err
	}
	return len(c.fields), nil
}

func (c *fakeContent) DetectedFields(ctx context.Context) ([]field.LogicalField, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fields, nil
}

func (c *fakeContent) ApplyValues(ctx context.Context, values field.ValueMap) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.applyErr != nil {
		return 0, c.applyErr
	}
	c.applied = values
	count := 0
	for key := range values {
		if values.Fillable(key) {
			count++
		}
	}
	return count, nil
}

func (c *fakeContent) StoreSelection(ctx context.Context, project field.Project) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selection = &project
	return nil
}

type fakeBackend struct {
	projects    []field.Project
	projectsErr error

	values      field.ValueMap
	autoFillErr error

	analyses int
}

func (b *fakeBackend) AnalyzeFields(ctx context.Context, analysis field.PageAnalysis) error {
	b.analyses++
	return nil
}

func (b *fakeBackend) Projects(ctx context.Context) ([]field.Project, error) {
	return b.projects, b.projectsErr
}

func (b *fakeBackend) AutoFill(ctx context.Context, fields []field.LogicalField, project field.Project) (field.ValueMap, error) {
	return b.values, b.autoFillErr
}

type fakeInjector struct {
	calls int
	err   error
}

func (i *fakeInjector) Inject(ctx context.Context) error {
	i.calls++
	return i.err
}

func permitFields() []field.LogicalField {
	return []field.LogicalField{
		{
			ID: "program", Name: "program", Kind: field.KindRadioGroup,
			Label: "Program",
			Options: []field.RadioOption{
				{Value: "simple_solar", Label: "Simple Solar PV"},
				{Value: "complex_self", Label: "Complex Self Generation"},
			},
		},
		{ID: "customer_name", Name: "customer_name", Kind: field.KindText, Semantic: field.SemanticName, Label: "Customer Name"},
		{ID: "project_address", Name: "project_address", Kind: field.KindText, Semantic: field.SemanticAddress, Label: "Project Address"},
	}
}

func sampleProject() field.Project {
	return field.Project{ID: "7", Name: "Smith Residence"}
}

func TestAnalyzeFieldsHappyPath(t *testing.T) {
	content := &fakeContent{fields: permitFields()}
	backend := &fakeBackend{}
	s := New(content, backend, WithPage("https://permits.example.gov/apply", "Permit Application"))

	count, err := s.AnalyzeFields(context.Background())
	if err != nil {
		t.Fatalf("AnalyzeFields: %v", err)
	}
	if count != 3 {
		t.Fatalf("count = %d, want 3", count)
	}
	if got := s.State(); got != StateFieldsAnalyzed {
		t.Fatalf("state = %q, want %q", got, StateFieldsAnalyzed)
	}
	if backend.analyses != 1 {
		t.Fatalf("analysis uploads = %d, want 1", backend.analyses)
	}
	if s.LastError() != "" {
		t.Fatalf("lastErr = %q, want empty", s.LastError())
	}
}

func TestAnalyzeFieldsZeroFieldsRollsBackToIdle(t *testing.T) {
	s := New(&fakeContent{}, &fakeBackend{})

	_, err := s.AnalyzeFields(context.Background())
	if !errors.Is(err, ErrNoFields) {
		t.Fatalf("err = %v, want ErrNoFields", err)
	}
	if got := s.State(); got != StateIdle {
		t.Fatalf("state = %q, want idle", got)
	}
}

func TestAnalyzeFieldsRollsBackOnDetectError(t *testing.T) {
	content := &fakeContent{detectErr: errors.New("boom")}
	s := New(content, &fakeBackend{})

	if _, err := s.AnalyzeFields(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if got := s.State(); got != StateIdle {
		t.Fatalf("state = %q, want idle", got)
	}
	if s.LastError() == "" {
		t.Fatal("lastErr should carry the failure message")
	}

	// the session recovers; a later pass is allowed again
	content.mu.Lock()
	content.detectErr = nil
	content.fields = permitFields()
	content.mu.Unlock()
	if _, err := s.AnalyzeFields(context.Background()); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
}

func TestAnalyzeFieldsInjectsWhenNoResponder(t *testing.T) {
	content := &fakeContent{
		fields:        permitFields(),
		detectErr:     bus.ErrNoResponder,
		detectErrOnce: true,
	}
	inj := &fakeInjector{}
	s := New(content, &fakeBackend{}, WithInjector(inj))

	count, err := s.AnalyzeFields(context.Background())
	if err != nil {
		t.Fatalf("AnalyzeFields: %v", err)
	}
	if count != 3 {
		t.Fatalf("count = %d, want 3", count)
	}
	if inj.calls != 1 {
		t.Fatalf("inject calls = %d, want 1", inj.calls)
	}
	if content.detectCalls != 2 {
		t.Fatalf("detect calls = %d, want 2", content.detectCalls)
	}
}

func TestAnalyzeFieldsWithoutInjectorSurfacesNoResponder(t *testing.T) {
	content := &fakeContent{detectErr: bus.ErrNoResponder}
	s := New(content, &fakeBackend{})

	_, err := s.AnalyzeFields(context.Background())
	if !errors.Is(err, bus.ErrNoResponder) {
		t.Fatalf("err = %v, want ErrNoResponder", err)
	}
}

func TestAnalyzeFieldsSupersedesSelection(t *testing.T) {
	content := &fakeContent{fields: permitFields()}
	s := New(content, &fakeBackend{projects: []field.Project{sampleProject()}})
	ctx := context.Background()

	if _, err := s.AnalyzeFields(ctx); err != nil {
		t.Fatalf("AnalyzeFields: %v", err)
	}
	if err := s.SelectProject(ctx, sampleProject()); err != nil {
		t.Fatalf("SelectProject: %v", err)
	}
	if _, err := s.AnalyzeFields(ctx); err != nil {
		t.Fatalf("second AnalyzeFields: %v", err)
	}
	if s.Project() != nil {
		t.Fatal("re-analysis should clear the selected project")
	}
}

func TestProjectsRequiresFields(t *testing.T) {
	s := New(&fakeContent{}, &fakeBackend{})
	if _, err := s.Projects(context.Background()); !errors.Is(err, ErrNotReady) {
		t.Fatalf("err = %v, want ErrNotReady", err)
	}
}

func TestProjectsRollsBackOnTransportError(t *testing.T) {
	content := &fakeContent{fields: permitFields()}
	backend := &fakeBackend{projectsErr: errors.New("backend down")}
	s := New(content, backend)
	ctx := context.Background()

	if _, err := s.AnalyzeFields(ctx); err != nil {
		t.Fatalf("AnalyzeFields: %v", err)
	}
	if _, err := s.Projects(ctx); err == nil {
		t.Fatal("expected error")
	}
	if got := s.State(); got != StateFieldsAnalyzed {
		t.Fatalf("state = %q, want %q", got, StateFieldsAnalyzed)
	}
}

func TestSelectProjectStoresSelection(t *testing.T) {
	content := &fakeContent{fields: permitFields()}
	s := New(content, &fakeBackend{})
	ctx := context.Background()

	if _, err := s.AnalyzeFields(ctx); err != nil {
		t.Fatalf("AnalyzeFields: %v", err)
	}
	if err := s.SelectProject(ctx, sampleProject()); err != nil {
		t.Fatalf("SelectProject: %v", err)
	}
	if got := s.State(); got != StateProjectSelected {
		t.Fatalf("state = %q, want %q", got, StateProjectSelected)
	}
	if content.selection == nil || content.selection.ID != "7" {
		t.Fatalf("selection not stored: %+v", content.selection)
	}
}

func TestAutoFillRequiresProject(t *testing.T) {
	content := &fakeContent{fields: permitFields()}
	s := New(content, &fakeBackend{})
	ctx := context.Background()

	if _, err := s.AutoFill(ctx); !errors.Is(err, ErrNotReady) {
		t.Fatalf("err = %v, want ErrNotReady", err)
	}
	if _, err := s.AnalyzeFields(ctx); err != nil {
		t.Fatalf("AnalyzeFields: %v", err)
	}
	if _, err := s.AutoFill(ctx); !errors.Is(err, ErrNotReady) {
		t.Fatalf("err after analyze = %v, want ErrNotReady", err)
	}
}

func TestAutoFillAppliesMappedValues(t *testing.T) {
	content := &fakeContent{fields: permitFields()}
	backend := &fakeBackend{values: field.ValueMap{
		"program":       "Complex Self Generation",
		"customer_name": "John Smith",
	}}
	s := New(content, backend)
	ctx := context.Background()

	if _, err := s.AnalyzeFields(ctx); err != nil {
		t.Fatalf("AnalyzeFields: %v", err)
	}
	if err := s.SelectProject(ctx, sampleProject()); err != nil {
		t.Fatalf("SelectProject: %v", err)
	}

	filled, err := s.AutoFill(ctx)
	if err != nil {
		t.Fatalf("AutoFill: %v", err)
	}
	if filled != 2 {
		t.Fatalf("filled = %d, want 2", filled)
	}
	if got := s.State(); got != StateFilled {
		t.Fatalf("state = %q, want %q", got, StateFilled)
	}
	if content.applied["customer_name"] != "John Smith" {
		t.Fatalf("applied map = %+v", content.applied)
	}
}

func TestAutoFillFallsBackToSampleData(t *testing.T) {
	content := &fakeContent{fields: permitFields()}
	backend := &fakeBackend{values: field.ValueMap{}}
	s := New(content, backend)
	ctx := context.Background()

	if _, err := s.AnalyzeFields(ctx); err != nil {
		t.Fatalf("AnalyzeFields: %v", err)
	}
	if err := s.SelectProject(ctx, sampleProject()); err != nil {
		t.Fatalf("SelectProject: %v", err)
	}

	filled, err := s.AutoFill(ctx)
	if err != nil {
		t.Fatalf("AutoFill: %v", err)
	}
	if filled == 0 {
		t.Fatal("sample fallback should fill at least one field")
	}
	if content.applied["customer_name"] != "John Smith" {
		t.Fatalf("applied map = %+v", content.applied)
	}
}

func TestAutoFillTreatsAllNoDataAsEmpty(t *testing.T) {
	content := &fakeContent{fields: permitFields()}
	backend := &fakeBackend{values: field.ValueMap{
		"customer_name":   field.NoData,
		"project_address": "",
	}}
	s := New(content, backend)
	ctx := context.Background()

	if _, err := s.AnalyzeFields(ctx); err != nil {
		t.Fatalf("AnalyzeFields: %v", err)
	}
	if err := s.SelectProject(ctx, sampleProject()); err != nil {
		t.Fatalf("SelectProject: %v", err)
	}

	if _, err := s.AutoFill(ctx); err != nil {
		t.Fatalf("AutoFill: %v", err)
	}
	if content.applied["customer_name"] != "John Smith" {
		t.Fatalf("expected sample fallback, applied = %+v", content.applied)
	}
}

func TestAutoFillRollsBackOnApplyError(t *testing.T) {
	content := &fakeContent{fields: permitFields(), applyErr: errors.New("page gone")}
	backend := &fakeBackend{values: field.ValueMap{"customer_name": "John Smith"}}
	s := New(content, backend)
	ctx := context.Background()

	if _, err := s.AnalyzeFields(ctx); err != nil {
		t.Fatalf("AnalyzeFields: %v", err)
	}
	if err := s.SelectProject(ctx, sampleProject()); err != nil {
		t.Fatalf("SelectProject: %v", err)
	}
	if _, err := s.AutoFill(ctx); err == nil {
		t.Fatal("expected error")
	}
	if got := s.State(); got != StateProjectSelected {
		t.Fatalf("state = %q, want %q", got, StateProjectSelected)
	}
}

func TestInFlightGuardRejectsReentry(t *testing.T) {
	s := New(&fakeContent{fields: permitFields()}, &fakeBackend{})

	if _, err := s.begin(StateFieldsAnalyzing); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := s.AnalyzeFields(context.Background()); !errors.Is(err, ErrBusy) {
		t.Fatalf("err = %v, want ErrBusy", err)
	}
	if _, err := s.Projects(context.Background()); !errors.Is(err, ErrBusy) {
		t.Fatalf("Projects err = %v, want ErrBusy", err)
	}
	if _, err := s.AutoFill(context.Background()); !errors.Is(err, ErrBusy) {
		t.Fatalf("AutoFill err = %v, want ErrBusy", err)
	}
}

func TestSampleValuesMatchesByPriority(t *testing.T) {
	fields := []field.LogicalField{
		{ID: "applicant_email", Name: "applicant_email", Label: "Applicant Email"},
		{ID: "site_city", Name: "site_city", Label: "City"},
		{ID: "parcel", Name: "parcel", Label: "Parcel Number"},
	}

	values := SampleValues(DefaultSampleData(), fields)
	if values["applicant_email"] != "john.smith@example.com" {
		t.Fatalf("email sample = %q", values["applicant_email"])
	}
	if values["site_city"] != "San Diego" {
		t.Fatalf("city sample = %q", values["site_city"])
	}
	if _, ok := values["parcel"]; ok {
		t.Fatal("parcel should have no sample value")
	}
}

func TestSampleValuesSkipsRadioGroupsWithoutMatchingOption(t *testing.T) {
	fields := []field.LogicalField{
		{
			ID: "owner_state", Name: "owner_state", Kind: field.KindRadioGroup, Label: "State",
			Options: []field.RadioOption{
				{Value: "in_state", Label: "In State"},
				{Value: "out_of_state", Label: "Out of State"},
			},
		},
		{
			ID: "installer_state", Name: "installer_state", Kind: field.KindRadioGroup, Label: "State",
			Options: []field.RadioOption{
				{Value: "CA", Label: "California"},
				{Value: "NV", Label: "Nevada"},
			},
		},
	}

	values := SampleValues(DefaultSampleData(), fields)
	if _, ok := values["owner_state"]; ok {
		t.Fatal("group without a CA option should be skipped")
	}
	if values["installer_state"] != "CA" {
		t.Fatalf("installer_state = %q, want CA", values["installer_state"])
	}
}
