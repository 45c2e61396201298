// Package field defines the logical field model shared by the detector, the
// value applier, the session workflow, and the backend client. A LogicalField
// is one fillable unit on a page: a single control, or a radio group
// aggregated into one choice field.
package field
