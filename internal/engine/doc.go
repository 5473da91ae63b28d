// Package engine implements the calendar synchronization core: the filter
// pipeline, identity derivation, the three-way reconciliation against a
// destination calendar's tracked events, and idempotent application of the
// resulting plan.
//
// The engine holds no state between runs. All continuity lives in the
// destination store itself, as SOURCE_ID tag lines embedded in event notes;
// every run re-derives what it needs from the source and destination
// calendars. Repeated runs against unchanged inputs therefore produce no
// further mutations.
package engine
