package index

import (
	"github.com/RoaringBitmap/roaring/v2"
)

// snapshotReader serves queries from one published segment. The segment is
// immutable, so the reader needs no locking and Close only marks the handle
// unusable.
type snapshotReader struct {
	seg    *segment
	closed bool
}

var _ Reader = (*snapshotReader)(nil)

var emptyBitmap = roaring.New()

func (r *snapshotReader) Postings(field, term string) *roaring.Bitmap {
	p, ok := r.seg.postings[termKey{field: field, term: term}]
	if !ok {
		return emptyBitmap
	}
	return p.docs
}

func (r *snapshotReader) FieldDocs(field string) *roaring.Bitmap {
	b, ok := r.seg.fields[field]
	if !ok {
		return emptyBitmap
	}
	return b
}

func (r *snapshotReader) Live() *roaring.Bitmap {
	return r.seg.live
}

func (r *snapshotReader) Positions(field, term string, doc uint32) []uint32 {
	p, ok := r.seg.postings[termKey{field: field, term: term}]
	if !ok {
		return nil
	}
	return p.positions[doc]
}

func (r *snapshotReader) Stored(doc uint32) (*StoredDoc, bool) {
	d, ok := r.seg.docs[doc]
	return d, ok
}

func (r *snapshotReader) DocCount() uint64 {
	return r.seg.live.GetCardinality()
}

func (r *snapshotReader) Close() error {
	r.closed = true
	return nil
}
