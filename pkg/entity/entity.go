package entity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// DefaultGraph is the graph identifier used for entities extracted from the
// default graph of the host store.
const DefaultGraph = "urn:x-arq:DefaultGraphNode"

// Field is one searchable field extracted from an entity.
type Field struct {
	Name  string
	Value string
}

// Entity is a record of searchable fields extracted from one subject/graph
// pair in the host store. The identifier and graph are fixed at construction;
// fields are added by the document producer before the entity is handed to
// the index and the record is discarded after indexing.
type Entity struct {
	id       string
	graph    string
	lang     string
	datatype string

	fields []Field
	byName map[string]int
}

// New creates an entity for the given subject identifier and graph. An empty
// graph is recorded as DefaultGraph.
func New(id, graph string) *Entity {
	if graph == "" {
		graph = DefaultGraph
	}
	return &Entity{
		id:     id,
		graph:  graph,
		byName: make(map[string]int),
	}
}

// ID returns the subject identifier.
func (e *Entity) ID() string { return e.id }

// Graph returns the owning graph identifier.
func (e *Entity) Graph() string { return e.graph }

// Lang returns the language tag of the literal value, if any.
func (e *Entity) Lang() string { return e.lang }

// SetLang records the language tag of the literal value.
func (e *Entity) SetLang(lang string) { e.lang = lang }

// Datatype returns the literal datatype URI, if any.
func (e *Entity) Datatype() string { return e.datatype }

// SetDatatype records the literal datatype URI.
func (e *Entity) SetDatatype(uri string) { e.datatype = uri }

// Put adds or replaces a field value. Insertion order is preserved.
func (e *Entity) Put(name, value string) {
	if i, ok := e.byName[name]; ok {
		e.fields[i].Value = value
		return
	}
	e.byName[name] = len(e.fields)
	e.fields = append(e.fields, Field{Name: name, Value: value})
}

// Get returns the value of a field and whether it is present.
func (e *Entity) Get(name string) (string, bool) {
	i, ok := e.byName[name]
	if !ok {
		return "", false
	}
	return e.fields[i].Value, true
}

// Fields returns the fields in insertion order. The returned slice must not
// be modified.
func (e *Entity) Fields() []Field { return e.fields }

// Len returns the number of fields.
func (e *Entity) Len() int { return len(e.fields) }

// Checksum computes the dedup key for one field/value pair of this entity.
// The caller supplies the pair explicitly; it is never reconstructed from
// field iteration order.
func (e *Entity) Checksum(field, value string) string {
	key := e.graph + "-" + e.id + "-" + field + "-" + value
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

func (e *Entity) String() string {
	var b strings.Builder
	for i, f := range e.fields {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=%q", f.Name, f.Value)
	}
	return e.id + " : {" + b.String() + "}"
}
