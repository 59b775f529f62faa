package iter

import (
	"time"

	"github.com/ftengine/ftengine/internal/invidx"
)

// TermReader walks one inverted index's postings in doc-id order. On
// each block crossing it compares the index's gcMarker to the one it
// last saw; if GC moved blocks underneath it, it re-locates by
// binary-searching for the block containing lastDocID (spec.md §4.4).
type TermReader struct {
	idx      *invidx.InvertedIndex
	filter   func(invidx.Record) bool // nil disables filtering
	deadline Deadline

	savedMarker uint64
	blockIdx    int
	recs        []invidx.Record
	recPos      int

	lastID  uint64
	current *Result
	aborted bool
}

// NewTermReader creates a reader over idx. fieldMask, if non-zero,
// restricts results to postings whose FieldMask intersects it (spec.md
// §4.6: "applies field-mask filter at the term-reader level").
func NewTermReader(idx *invidx.InvertedIndex, fieldMask uint64, dl Deadline) *TermReader {
	var filter func(invidx.Record) bool
	if fieldMask != 0 {
		filter = func(rec invidx.Record) bool { return rec.FieldMask&fieldMask != 0 }
	}
	return &TermReader{idx: idx, filter: filter, deadline: dl, savedMarker: idx.GCMarker()}
}

// NewNumericReader creates a reader over a numeric-leaf inverted index,
// filtering to values within [min, max] (spec.md §4.4: "like term reader
// but decoder filters by [rangeMin, rangeMax]").
func NewNumericReader(idx *invidx.InvertedIndex, min, max float64, dl Deadline) *TermReader {
	filter := func(rec invidx.Record) bool { return rec.Numeric >= min && rec.Numeric <= max }
	return &TermReader{idx: idx, filter: filter, deadline: dl, savedMarker: idx.GCMarker()}
}

func (r *TermReader) reopenIfStale() {
	marker := r.idx.GCMarker()
	if marker == r.savedMarker {
		return
	}
	r.savedMarker = marker
	if r.lastID == 0 {
		r.blockIdx, r.recs, r.recPos = 0, nil, 0
		return
	}
	// The first block whose LastID >= lastID, whether or not lastID itself
	// survived GC; loadBlock skips anything <= lastID.
	r.blockIdx, _ = r.idx.BlockContaining(r.lastID)
	r.recs, r.recPos = nil, 0
}

func (r *TermReader) matches(rec invidx.Record) bool {
	if r.filter == nil {
		return true
	}
	return r.filter(rec)
}

// loadBlock decodes block blockIdx into r.recs, skipping entries whose
// doc-id is <= lastID (relevant right after a stale reopen) and entries
// that don't pass the field mask.
func (r *TermReader) loadBlock() bool {
	for r.blockIdx < len(r.idx.Blocks) {
		blk := r.idx.Blocks[r.blockIdx]
		decode := r.idx.GetDecoder()
		var recs []invidx.Record
		_ = decode(blk, func(rec invidx.Record) bool {
			if rec.DocID > r.lastID && r.matches(rec) {
				recs = append(recs, rec)
			}
			return true
		})
		r.blockIdx++
		if len(recs) > 0 {
			r.recs, r.recPos = recs, 0
			return true
		}
	}
	return false
}

func (r *TermReader) Read() (Status, *Result) {
	if r.aborted {
		return StatusEOF, nil
	}
	if r.deadline.Expired(time.Now()) {
		return StatusTimeout, nil
	}
	r.reopenIfStale()
	for r.recPos >= len(r.recs) {
		if !r.loadBlock() {
			return StatusEOF, nil
		}
	}
	rec := r.recs[r.recPos]
	r.recPos++
	r.lastID = rec.DocID
	r.current = recordToResult(rec)
	return StatusOK, r.current
}

func recordToResult(rec invidx.Record) *Result {
	return &Result{
		DocID:     rec.DocID,
		Freq:      rec.Freq,
		FieldMask: rec.FieldMask,
		Offsets:   rec.Offsets,
		Numeric:   rec.Numeric,
	}
}

// SkipTo binary-searches for the block containing target, then decodes
// linearly within it to land on the first matching id >= target.
func (r *TermReader) SkipTo(target uint64) (Status, *Result) {
	if r.aborted {
		return StatusEOF, nil
	}
	if r.deadline.Expired(time.Now()) {
		return StatusTimeout, nil
	}
	if target <= r.lastID && r.lastID != 0 {
		return StatusOK, r.current
	}
	r.reopenIfStale()

	bi, _ := r.idx.BlockContaining(target)
	if bi >= len(r.idx.Blocks) {
		r.blockIdx = len(r.idx.Blocks)
		r.recs, r.recPos = nil, 0
		return StatusEOF, nil
	}
	r.blockIdx = bi
	blk := r.idx.Blocks[bi]
	decode := r.idx.GetDecoder()
	var recs []invidx.Record
	_ = decode(blk, func(rec invidx.Record) bool {
		if r.matches(rec) {
			recs = append(recs, rec)
		}
		return true
	})
	r.blockIdx++

	for i, rec := range recs {
		if rec.DocID >= target {
			r.recs, r.recPos = recs[i:], 1
			r.lastID = rec.DocID
			r.current = recordToResult(rec)
			if rec.DocID == target {
				return StatusOK, r.current
			}
			return StatusNotFound, r.current
		}
	}
	// Nothing in this block reaches target; fall through block by block.
	for r.loadBlock() {
		rec := r.recs[0]
		if rec.DocID >= target {
			r.recPos = 1
			r.lastID = rec.DocID
			r.current = recordToResult(rec)
			if rec.DocID == target {
				return StatusOK, r.current
			}
			return StatusNotFound, r.current
		}
	}
	return StatusEOF, nil
}

func (r *TermReader) LastDocID() uint64    { return r.lastID }
func (r *TermReader) NumEstimated() uint64 { return r.idx.NumEntries }
func (r *TermReader) Rewind() {
	r.blockIdx, r.recs, r.recPos, r.lastID, r.current = 0, nil, 0, 0, nil
	r.savedMarker = r.idx.GCMarker()
}
func (r *TermReader) Abort() { r.aborted = true }
func (r *TermReader) Free()  { r.recs = nil; r.current = nil }
func (r *TermReader) Current() *Result { return r.current }
