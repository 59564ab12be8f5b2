package index

import (
	"github.com/RoaringBitmap/roaring/v2"
)

type termKey struct {
	field string
	term  string
}

// posting holds the documents containing one term and the token positions
// per document. Postings are treated as immutable once published in a
// segment; mutation goes through copies.
type posting struct {
	docs      *roaring.Bitmap
	positions map[uint32][]uint32
}

func (p *posting) clone() *posting {
	c := &posting{
		docs:      p.docs.Clone(),
		positions: make(map[uint32][]uint32, len(p.positions)),
	}
	for d, pos := range p.positions {
		c.positions[d] = pos
	}
	return c
}

// segment is an immutable snapshot of the index. Commit publishes a new
// segment derived from the previous one; readers hold a segment pointer and
// never observe later mutations.
type segment struct {
	postings map[termKey]*posting
	fields   map[string]*roaring.Bitmap
	docs     map[uint32]*StoredDoc
	live     *roaring.Bitmap
	nextID   uint32
}

func newSegment() *segment {
	return &segment{
		postings: make(map[termKey]*posting),
		fields:   make(map[string]*roaring.Bitmap),
		docs:     make(map[uint32]*StoredDoc),
		live:     roaring.New(),
	}
}

// derive makes a shallow copy sharing postings with the parent. Entries are
// copied before mutation, so the parent stays valid for open readers.
func (s *segment) derive() *segment {
	d := &segment{
		postings: make(map[termKey]*posting, len(s.postings)),
		fields:   make(map[string]*roaring.Bitmap, len(s.fields)),
		docs:     make(map[uint32]*StoredDoc, len(s.docs)),
		live:     s.live.Clone(),
		nextID:   s.nextID,
	}
	for k, p := range s.postings {
		d.postings[k] = p
	}
	for f, b := range s.fields {
		d.fields[f] = b
	}
	for id, doc := range s.docs {
		d.docs[id] = doc
	}
	return d
}

// addDoc assigns the next document id and indexes all terms. Only valid on
// a derived, not yet published segment.
func (s *segment) addDoc(doc *document) uint32 {
	id := s.nextID
	s.nextID++
	s.docs[id] = doc.stored
	s.live.Add(id)

	for field, terms := range doc.terms {
		if len(terms) == 0 {
			continue
		}
		fb, ok := s.fields[field]
		if !ok {
			fb = roaring.New()
		} else {
			fb = fb.Clone()
		}
		fb.Add(id)
		s.fields[field] = fb

		seen := make(map[string]bool, len(terms))
		for pos, term := range terms {
			k := termKey{field: field, term: term}
			p, ok := s.postings[k]
			if !ok {
				p = &posting{docs: roaring.New(), positions: make(map[uint32][]uint32)}
			} else if !seen[term] {
				p = p.clone()
			}
			seen[term] = true
			p.docs.Add(id)
			p.positions[id] = append(p.positions[id], uint32(pos))
			s.postings[k] = p
		}
	}
	return id
}

// deleteTerm removes from the live set every document containing term in
// field. The postings themselves are left in place; readers filter on live.
func (s *segment) deleteTerm(field, term string) {
	p, ok := s.postings[termKey{field: field, term: term}]
	if !ok {
		return
	}
	s.live.AndNot(p.docs)
}
