// Package detect scans a page document for logical form fields: a form-scoped
// pass, a standalone-control pass, and a container-heuristic pass for forms
// built without a <form> tag. Radio controls sharing a name collapse into one
// radio-group field; hidden, disabled, and non-fillable controls never make
// it into the output.
package detect
