package index

import (
	"github.com/semantalytics/jena-temporal/pkg/entity"
)

// document is the analyzed form of an entity, ready to be applied to a
// segment.
type document struct {
	stored *StoredDoc
	// terms holds, per indexed field, the terms in position order.
	terms map[string][]string
}

// storedFromEntity captures the stored (unanalyzed) form of an entity: the
// entity and graph identifiers, each field's lexical value, the language tag
// or datatype marker, and one dedup checksum per field when a uid field is
// configured.
func storedFromEntity(def *entity.Definition, e *entity.Entity) *StoredDoc {
	stored := &StoredDoc{
		Entity: e.ID(),
		Graph:  e.Graph(),
		Values: make(map[string]string),
	}

	if def.LangField != "" {
		if lang := e.Lang(); lang != "" {
			stored.Lang = lang
		} else if dt := e.Datatype(); dt != "" && dt != XSDString {
			// Non-string datatypes keep their URI in the language field
			// behind a marker prefix.
			stored.Lang = DatatypePrefix + dt
		}
	}

	for _, f := range e.Fields() {
		stored.Values[f.Name] = f.Value
		if def.UIDField != "" {
			stored.UIDs = append(stored.UIDs, e.Checksum(f.Name, f.Value))
		}
	}
	return stored
}

// analyze turns a stored document back into its indexed terms. Used both
// for fresh writes and for replaying the durable log at open, so the two
// paths cannot drift apart.
func analyze(def *entity.Definition, keyword, text Analyzer, stored *StoredDoc) *document {
	doc := &document{
		stored: stored,
		terms:  make(map[string][]string),
	}

	doc.terms[def.EntityField] = keyword.Tokens(stored.Entity)
	if def.GraphField != "" {
		doc.terms[def.GraphField] = keyword.Tokens(stored.Graph)
	}
	if def.LangField != "" && stored.Lang != "" {
		doc.terms[def.LangField] = keyword.Tokens(stored.Lang)
	}
	if def.UIDField != "" && len(stored.UIDs) > 0 {
		doc.terms[def.UIDField] = stored.UIDs
	}

	lang := ""
	if !isDatatypeMarker(stored.Lang) {
		lang = stored.Lang
	}

	for name, value := range stored.Values {
		doc.terms[name] = text.Tokens(value)
		if def.Multilingual && lang != "" {
			doc.terms[name+"_"+lang] = text.Tokens(value)
			for _, aux := range def.AuxTags(lang) {
				doc.terms[name+"_"+aux] = text.Tokens(value)
			}
		}
	}
	return doc
}

func isDatatypeMarker(lang string) bool {
	return len(lang) >= len(DatatypePrefix) && lang[:len(DatatypePrefix)] == DatatypePrefix
}
