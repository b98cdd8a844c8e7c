// Package syncer runs watermark-driven incremental sync cycles.
//
// Every cycle reads its partition's watermark from the store, fetches only
// what lies beyond it, normalizes the rows and appends them. Because the
// watermark is derived from stored records, a cycle that fails or is
// interrupted leaves nothing to repair: the next run resumes from whatever
// was committed.
//
// Cycles run one at a time. Contracts commit once per underlying, daily
// bars once per day, minute bars once per contract.
package syncer
