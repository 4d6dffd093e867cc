package indexer

// span is an inclusive completed version range.
type span struct {
	start, end uint64
}

// Watermark tracks completed version intervals across out-of-order workers
// and exposes the largest version v such that every version up to and
// including v has completed. The persisted cursor only ever advances to
// this value, never past a gap.
type Watermark struct {
	first   uint64 // the version the pipeline resumed from
	next    uint64 // lowest version not yet known complete
	pending []span // completed ranges above next; sorted, disjoint
}

// NewWatermark creates a watermark that treats every version below start as
// already complete.
func NewWatermark(start uint64) *Watermark {
	return &Watermark{first: start, next: start}
}

// Complete records an inclusive completed range and advances the contiguous
// frontier as far as the recorded ranges allow. It reports whether this call
// moved the frontier, so callers persist the cursor only when there is a new
// value to persist.
func (w *Watermark) Complete(startVersion, endVersion uint64) bool {
	if endVersion < w.next {
		return false
	}
	if startVersion < w.next {
		startVersion = w.next
	}
	w.insert(span{startVersion, endVersion})

	before := w.next
	for len(w.pending) > 0 && w.pending[0].start <= w.next {
		if w.pending[0].end >= w.next {
			w.next = w.pending[0].end + 1
		}
		w.pending = w.pending[1:]
	}
	return w.next != before
}

// Value returns the highest contiguously completed version. ok is false
// until the first range at the resume point completes.
func (w *Watermark) Value() (uint64, bool) {
	if w.next == w.first {
		return 0, false
	}
	return w.next - 1, true
}

// PendingCount returns how many completed ranges are stuck behind a gap.
func (w *Watermark) PendingCount() int {
	return len(w.pending)
}

// insert keeps pending sorted by start and merges touching or overlapping
// neighbors.
func (w *Watermark) insert(s span) {
	pos := len(w.pending)
	for i, p := range w.pending {
		if s.start < p.start {
			pos = i
			break
		}
	}
	w.pending = append(w.pending, span{})
	copy(w.pending[pos+1:], w.pending[pos:])
	w.pending[pos] = s

	merged := w.pending[:1]
	for _, p := range w.pending[1:] {
		last := &merged[len(merged)-1]
		if p.start <= last.end+1 {
			if p.end > last.end {
				last.end = p.end
			}
			continue
		}
		merged = append(merged, p)
	}
	w.pending = merged
}
