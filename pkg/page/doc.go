// Package page models the live page DOM for the rest of the module: parsing,
// control lookup, value and checked-state mutation, synthetic event dispatch,
// and XPath-style locator synthesis. It is the only package that touches
// golang.org/x/net/html nodes directly.
package page
