// Package placeholder implements the placeholder engine used by blueprint
// documents.
//
// A placeholder is referenced inside a document as a string value of the
// form "!input <name>". Extract collects every distinct name referenced
// anywhere in a nested document tree; Substitute produces a new tree with
// every reference replaced by a caller-supplied value.
//
// The engine is a generic visitor over the three semantic container kinds
// (mapping, sequence, scalar), so it works for any templated document, not
// just blueprints. Substitution never mutates its input.
package placeholder
