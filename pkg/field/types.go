package field

import "time"

// Kind is the structural control kind a logical field was detected as.
type Kind string

const (
	KindText       Kind = "text"
	KindEmail      Kind = "email"
	KindPhone      Kind = "tel"
	KindDate       Kind = "date"
	KindNumber     Kind = "number"
	KindURL        Kind = "url"
	KindSelect     Kind = "select"
	KindTextarea   Kind = "textarea"
	KindRadioGroup Kind = "radio-group"
	KindCheckbox   Kind = "checkbox"
)

// SemanticType is the classifier's best guess at what a field means. Values
// mirror the keyword table in pkg/classify; Unknown is the zero outcome, not
// an error.
type SemanticType string

const (
	SemanticName               SemanticType = "name"
	SemanticEmail              SemanticType = "email"
	SemanticPhone              SemanticType = "phone"
	SemanticAddress            SemanticType = "address"
	SemanticCity               SemanticType = "city"
	SemanticState              SemanticType = "state"
	SemanticZip                SemanticType = "zip"
	SemanticDate               SemanticType = "date"
	SemanticDescription        SemanticType = "description"
	SemanticValue              SemanticType = "value"
	SemanticArea               SemanticType = "area"
	SemanticPermitType         SemanticType = "permit_type"
	SemanticProjectDescription SemanticType = "project_description"
	SemanticCompany            SemanticType = "company"
	SemanticTitle              SemanticType = "title"
	SemanticWebsite            SemanticType = "website"
	SemanticPassword           SemanticType = "password"
	SemanticUsername           SemanticType = "username"
	SemanticNumber             SemanticType = "number"
	SemanticCheckbox           SemanticType = "checkbox"
	SemanticRadio              SemanticType = "radio"
	SemanticUnknown            SemanticType = "unknown"
)

// RadioOption is one member of an aggregated radio group.
type RadioOption struct {
	Value   string `json:"value"`
	Label   string `json:"label"`
	Checked bool   `json:"checked"`
}

// LogicalField models a single fillable unit on a page: one control, or one
// aggregated radio group. Struct tags match the wire shape the backend's
// /api/analyze-fields and /api/auto-fill endpoints consume.
type LogicalField struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Kind        Kind          `json:"type"`
	Semantic    SemanticType  `json:"fieldType"`
	Label       string        `json:"label"`
	Placeholder string        `json:"placeholder,omitempty"`
	Required    bool          `json:"required"`
	Confidence  float64       `json:"confidence"`
	Value       string        `json:"value"`
	Locator     string        `json:"locator,omitempty"`
	Options     []RadioOption `json:"options,omitempty"`
}

// IsRadioGroup reports whether the field aggregates a radio group.
func (f LogicalField) IsRadioGroup() bool { return f.Kind == KindRadioGroup }

// CheckedOption returns the currently checked option and true, or the zero
// option and false when nothing is checked or the field is not a radio group.
func (f LogicalField) CheckedOption() (RadioOption, bool) {
	for _, opt := range f.Options {
		if opt.Checked {
			return opt, true
		}
	}
	return RadioOption{}, false
}

// Project is the backend-owned entity a preparer fills forms for. The core
// only ever reads it; planset and utility bill text arrive pre-extracted.
type Project struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	CreatedAt       string `json:"created_at"`
	PlansetText     string `json:"planset_text,omitempty"`
	UtilityBillText string `json:"utility_bill_text,omitempty"`
}

// ValueMap maps a LogicalField.ID to the value the AI mapping service
// proposed for it. Empty strings and the "N/A" sentinel both mean "no data".
type ValueMap map[string]string

// NoData is the sentinel the mapping service uses for fields it could not
// derive a value for.
const NoData = "N/A"

// Fillable reports whether the mapped value for key should be applied.
func (m ValueMap) Fillable(key string) bool {
	v, ok := m[key]
	return ok && v != "" && v != NoData
}

// PageAnalysis is one detection pass result together with the page identity,
// as uploaded to /api/analyze-fields.
type PageAnalysis struct {
	URL       string         `json:"url"`
	Title     string         `json:"title"`
	Timestamp time.Time      `json:"timestamp"`
	Fields    []LogicalField `json:"fields"`
}
