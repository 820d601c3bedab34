// Package ntuple is the public entry point to the field engine (spec.md
// §6): it wires a field.Field tree to a concrete storage.PageSink or
// storage.PageSource and maintains the on-disk field directory a
// Descriptor needs at connect-to-source time. The field package itself
// never allocates storage or assigns on-disk field IDs — that bookkeeping
// lives here, the way hivekit's pkg/hive layer sits above internal/reader
// and internal/edit.
package ntuple
