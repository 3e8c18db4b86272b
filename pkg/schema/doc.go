// Package schema models declarative multi-page form definitions: an ordered
// list of partitions, each holding typed fields, that all write into one flat
// result map keyed by field name.
//
// Parse never fails. Malformed payloads produce an empty, Invalid Result so
// the rest of the engine degrades to "no fields to render".
package schema
