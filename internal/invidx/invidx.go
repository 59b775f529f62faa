// Package invidx implements the inverted index (C3): an ordered sequence
// of delta-encoded blocks holding postings for one term, tag value, or
// numeric-tree leaf.
package invidx

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/ftengine/ftengine/internal/buffer"
	"github.com/ftengine/ftengine/internal/codec"
)

func mathFloat64bits(f float64) uint64     { return math.Float64bits(f) }
func mathFloat64frombits(b uint64) float64 { return math.Float64frombits(b) }

// Flags select the posting codec an inverted index uses, per spec.md §3.
type Flags uint32

const (
	FlagStoreFreqs Flags = 1 << iota
	FlagStoreFieldMask
	FlagStoreTermOffsets
	FlagStoreNumeric
	FlagDocIDsOnly
	FlagWideSchema
	FlagMultiValue
)

// Block entry-count caps, per spec.md §3 ("bounded by a compile-time
// constant such as 100 for text, 1000 for doc-ids-only").
const (
	TextBlockCap      = 100
	DocIDsOnlyBlockCap = 1000
)

// Errors returned by WriteEntry / Repair.
var (
	// ErrOrdering is returned when a caller attempts to write a doc-id
	// that is not strictly greater (or, for multi-value indexes, not
	// greater-or-equal) than the index's lastId.
	ErrOrdering = errors.New("invidx: doc-id out of order")
	// ErrCorrupt is returned by Repair when a block's postings cannot be
	// decoded.
	ErrCorrupt = errors.New("invidx: corrupt block")
	// ErrUnsupported is returned by operations the engine intentionally
	// leaves unencodable. See DESIGN.md's AttributeIndex_Encode decision.
	ErrUnsupported = errors.New("invidx: unsupported encoding")
)

// Record is one decoded posting.
type Record struct {
	DocID     uint64
	Freq      uint32
	FieldMask uint64
	Offsets   []uint32
	Numeric   float64
}

// IndexBlock is a bounded run of postings sharing delta-encoded doc-ids.
type IndexBlock struct {
	FirstID    uint64
	LastID     uint64
	NumEntries uint16
	Data       []byte
}

// IndexError is one entry in an index's bounded error ring, the
// index_error.c-derived supplemented feature (SPEC_FULL.md §5).
type IndexError struct {
	Message string
	DocID   uint64
}

// InvertedIndex is the ordered sequence of blocks for one term/tag
// value/numeric leaf.
type InvertedIndex struct {
	mu sync.RWMutex

	Flags      Flags
	Blocks     []*IndexBlock
	NumDocs    uint64
	NumEntries uint64
	LastID     uint64
	GcMarker   uint64
	FieldMask  uint64

	errLog []IndexError
}

// New creates an empty inverted index with the given posting flags.
func New(flags Flags) *InvertedIndex {
	return &InvertedIndex{Flags: flags}
}

func (ii *InvertedIndex) blockCap() int {
	if ii.Flags&FlagDocIDsOnly != 0 {
		return DocIDsOnlyBlockCap
	}
	return TextBlockCap
}

// WriteEntry appends a record to the last block, splitting into a new
// block when the current one is full or doesn't exist yet.
func (ii *InvertedIndex) WriteEntry(docID uint64, rec Record) error {
	ii.mu.Lock()
	defer ii.mu.Unlock()

	multi := ii.Flags&FlagMultiValue != 0
	if ii.NumDocs > 0 || ii.LastID != 0 {
		if multi {
			if docID < ii.LastID {
				return ErrOrdering
			}
		} else if docID <= ii.LastID {
			return ErrOrdering
		}
	}

	var blk *IndexBlock
	if len(ii.Blocks) > 0 {
		blk = ii.Blocks[len(ii.Blocks)-1]
	}
	if blk == nil || int(blk.NumEntries) >= ii.blockCap() {
		blk = &IndexBlock{FirstID: docID, LastID: docID}
		ii.Blocks = append(ii.Blocks, blk)
	}

	prev := blk.LastID
	if blk.NumEntries == 0 {
		prev = blk.FirstID
	}
	delta := docID - prev
	if blk.NumEntries == 0 {
		delta = 0
	}

	blk.Data = encodeRecord(blk.Data, ii.Flags, delta, rec)
	blk.NumEntries++
	blk.LastID = docID

	ii.LastID = docID
	ii.NumDocs++
	ii.NumEntries++
	if ii.Flags&FlagStoreFieldMask != 0 {
		ii.FieldMask |= rec.FieldMask
	}
	return nil
}

func encodeRecord(buf []byte, flags Flags, delta uint64, rec Record) []byte {
	buf = codec.PutUvarint(buf, delta)
	switch {
	case flags&FlagDocIDsOnly != 0:
		// nothing more to store
	case flags&FlagStoreNumeric != 0:
		bits := mathFloat64bits(rec.Numeric)
		hi := uint32(bits >> 32)
		lo := uint32(bits)
		buf = codec.EncodeQInt4(buf, hi, lo, 0, 0)
	default:
		buf = codec.PutUvarint(buf, uint64(rec.Freq))
		if flags&FlagStoreFieldMask != 0 {
			buf = codec.PutUvarint(buf, rec.FieldMask)
		}
		if flags&FlagStoreTermOffsets != 0 {
			buf = codec.PutUvarint(buf, uint64(len(rec.Offsets)))
			var prevOff uint32
			for _, o := range rec.Offsets {
				buf = codec.PutUvarint(buf, uint64(o-prevOff))
				prevOff = o
			}
		}
	}
	return buf
}

// decodeRecord decodes one record starting at buf, returning the record,
// the absolute doc-id it belongs to (prevID + its delta), and the number
// of bytes consumed. err is codec.ErrTruncated (wrapped so callers can
// still errors.Is against it) when buf ends mid-record.
func decodeRecord(buf []byte, flags Flags, prevID uint64) (rec Record, n int, err error) {
	delta, dn := codec.Uvarint(buf)
	if dn <= 0 {
		return Record{}, 0, codec.ErrTruncated
	}
	off := dn
	docID := prevID + delta
	rec.DocID = docID

	switch {
	case flags&FlagDocIDsOnly != 0:
		// nothing more
	case flags&FlagStoreNumeric != 0:
		hi, lo, _, _, qn := codec.DecodeQInt4(buf[off:])
		if qn <= 0 {
			return Record{}, 0, codec.ErrTruncated
		}
		bits := uint64(hi)<<32 | uint64(lo)
		rec.Numeric = mathFloat64frombits(bits)
		off += qn
	default:
		freq, fn := codec.Uvarint(buf[off:])
		if fn <= 0 {
			return Record{}, 0, codec.ErrTruncated
		}
		rec.Freq = uint32(freq)
		off += fn
		if flags&FlagStoreFieldMask != 0 {
			fm, fmn := codec.Uvarint(buf[off:])
			if fmn <= 0 {
				return Record{}, 0, codec.ErrTruncated
			}
			rec.FieldMask = fm
			off += fmn
		}
		if flags&FlagStoreTermOffsets != 0 {
			cnt, cn := codec.Uvarint(buf[off:])
			if cn <= 0 {
				return Record{}, 0, codec.ErrTruncated
			}
			off += cn
			offsets := make([]uint32, 0, cnt)
			var prevOff uint32
			for i := uint64(0); i < cnt; i++ {
				d, on := codec.Uvarint(buf[off:])
				if on <= 0 {
					return Record{}, 0, codec.ErrTruncated
				}
				off += on
				prevOff += uint32(d)
				offsets = append(offsets, prevOff)
			}
			rec.Offsets = offsets
		}
	}
	return rec, off, nil
}

// GetDecoder returns a function that decodes the block's full record run
// in order, given a callback invoked per record.
func (ii *InvertedIndex) GetDecoder() func(blk *IndexBlock, cb func(Record) bool) error {
	flags := ii.Flags
	return func(blk *IndexBlock, cb func(Record) bool) error {
		r := buffer.NewReader(blk.Data)
		prev := blk.FirstID
		for !r.AtEnd() {
			rec, n, err := decodeRecord(r.Remaining(), flags, prev)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrCorrupt, err)
			}
			prev = rec.DocID
			r.Seek(r.Offset() + n)
			if !cb(rec) {
				break
			}
		}
		return nil
	}
}

// RepairParams controls Repair's bookkeeping.
type RepairParams struct {
	IsDeleted func(docID uint64) bool
	Cb        func(Record)

	BytesBefore   int
	BytesAfter    int
	Collected     int
}

// Repair walks a block, drops records whose doc-id is deleted, and
// rewrites the surviving tail in place (i.e. into a fresh buffer that
// replaces blk.Data), preserving delta continuity. Returns the number of
// surviving entries, or ErrCorrupt.
func (ii *InvertedIndex) Repair(blk *IndexBlock, params *RepairParams) (int, error) {
	decode := ii.GetDecoder()
	params.BytesBefore = len(blk.Data)

	var survivors []Record
	err := decode(blk, func(rec Record) bool {
		if params.IsDeleted != nil && params.IsDeleted(rec.DocID) {
			params.Collected++
			return true
		}
		survivors = append(survivors, rec)
		if params.Cb != nil {
			params.Cb(rec)
		}
		return true
	})
	if err != nil {
		return 0, err
	}

	if len(survivors) == 0 {
		blk.Data = nil
		blk.NumEntries = 0
		params.BytesAfter = 0
		return 0, nil
	}

	var out []byte
	prev := survivors[0].DocID
	blk.FirstID = survivors[0].DocID
	for i, rec := range survivors {
		delta := uint64(0)
		if i > 0 {
			delta = rec.DocID - prev
		}
		out = encodeRecordDelta(out, ii.Flags, delta, rec)
		prev = rec.DocID
	}
	blk.Data = out
	blk.NumEntries = uint16(len(survivors))
	blk.LastID = survivors[len(survivors)-1].DocID
	params.BytesAfter = len(out)
	return len(survivors), nil
}

// encodeRecordDelta is encodeRecord but takes a pre-computed delta (used
// by Repair, which must preserve delta continuity across dropped
// records rather than recomputing from block.LastID).
func encodeRecordDelta(buf []byte, flags Flags, delta uint64, rec Record) []byte {
	return encodeRecord(buf, flags, delta, rec)
}

// BumpGCMarker increments the generation counter; called by the parent
// index after any structural edit made by GC (spec.md §4.2).
func (ii *InvertedIndex) BumpGCMarker() {
	ii.mu.Lock()
	ii.GcMarker++
	ii.mu.Unlock()
}

// Lock / Unlock / RLock / RUnlock expose the index's rw-lock to callers
// that need to hold it across multiple operations (writers, GC commit).
func (ii *InvertedIndex) Lock()    { ii.mu.Lock() }
func (ii *InvertedIndex) Unlock()  { ii.mu.Unlock() }
func (ii *InvertedIndex) RLock()   { ii.mu.RLock() }
func (ii *InvertedIndex) RUnlock() { ii.mu.RUnlock() }

// GCMarker returns the current generation counter.
func (ii *InvertedIndex) GCMarker() uint64 {
	ii.mu.RLock()
	defer ii.mu.RUnlock()
	return ii.GcMarker
}

// BlockContaining binary-searches ii.Blocks for the first block whose
// LastID >= target and returns its index, or len(ii.Blocks) and false
// when there is none. The bool is true when that block's FirstID <=
// target, and always true for block 0.
func (ii *InvertedIndex) BlockContaining(target uint64) (int, bool) {
	ii.mu.RLock()
	defer ii.mu.RUnlock()
	n := len(ii.Blocks)
	idx := sort.Search(n, func(i int) bool {
		return ii.Blocks[i].LastID >= target
	})
	if idx >= n {
		return n, false
	}
	return idx, ii.Blocks[idx].FirstID <= target || idx == 0
}

// LogError appends to the bounded error ring (SPEC_FULL.md §5's
// index_error.c-derived supplement), keeping at most maxIndexErrors.
const maxIndexErrors = 64

func (ii *InvertedIndex) LogError(docID uint64, msg string) {
	ii.mu.Lock()
	defer ii.mu.Unlock()
	ii.errLog = append(ii.errLog, IndexError{Message: msg, DocID: docID})
	if len(ii.errLog) > maxIndexErrors {
		ii.errLog = ii.errLog[len(ii.errLog)-maxIndexErrors:]
	}
}

// Errors returns a copy of the bounded error ring.
func (ii *InvertedIndex) Errors() []IndexError {
	ii.mu.RLock()
	defer ii.mu.RUnlock()
	out := make([]IndexError, len(ii.errLog))
	copy(out, ii.errLog)
	return out
}

// EncodeAttribute is the engine's resolution of the AttributeIndex_Encode
// Open Question (spec.md §9, SPEC_FULL.md §5/§6): rather than silently
// returning nothing, it reports that attribute-index encoding is not yet
// implemented.
func (ii *InvertedIndex) EncodeAttribute([]byte) ([]byte, error) {
	return nil, ErrUnsupported
}
