package entity

// Definition maps between host-store predicates and index fields, and names
// the reserved fields the index maintains alongside the text fields.
type Definition struct {
	// EntityField is the stored field holding the subject identifier.
	EntityField string
	// PrimaryField is the default text field searched when no predicate is
	// given.
	PrimaryField string
	// GraphField is the stored field holding the owning graph, empty to
	// disable graph scoping.
	GraphField string
	// LangField is the stored field holding the language tag or datatype
	// marker, empty to disable.
	LangField string
	// UIDField is the stored field holding the per-field dedup checksum,
	// empty to disable deletion support.
	UIDField string

	// Multilingual enables per-language-tag field variants (field_tag).
	Multilingual bool

	// SearchFor maps a query language tag to the set of tags a query should
	// fan out across ("search-for" expansion). Only consulted in
	// multilingual mode.
	SearchFor map[string][]string

	// AuxIndexes maps an indexing language tag to auxiliary tags whose
	// field variants are also populated at indexing time.
	AuxIndexes map[string][]string

	fieldByPredicate map[string]string
	fields           []string
}

// NewDefinition creates a definition with the given entity and primary
// fields. The primary field is registered as a field with no predicate
// mapping.
func NewDefinition(entityField, primaryField string) *Definition {
	d := &Definition{
		EntityField:      entityField,
		PrimaryField:     primaryField,
		fieldByPredicate: make(map[string]string),
	}
	d.fields = append(d.fields, primaryField)
	return d
}

// Map registers a predicate URI to index field mapping.
func (d *Definition) Map(predicate, field string) {
	if _, known := d.fieldByPredicate[predicate]; !known {
		seen := false
		for _, f := range d.fields {
			if f == field {
				seen = true
				break
			}
		}
		if !seen {
			d.fields = append(d.fields, field)
		}
	}
	d.fieldByPredicate[predicate] = field
}

// Field resolves a predicate URI to its index field, or "" if unmapped.
func (d *Definition) Field(predicate string) string {
	return d.fieldByPredicate[predicate]
}

// Fields returns all mapped text fields, primary field first.
func (d *Definition) Fields() []string { return d.fields }

// SearchForTags returns the fan-out tags for a query language tag, nil when
// search-for expansion does not apply.
func (d *Definition) SearchForTags(lang string) []string {
	if !d.Multilingual || lang == "" || lang == "none" {
		return nil
	}
	return d.SearchFor[lang]
}

// AuxTags returns the auxiliary indexing tags for a language tag.
func (d *Definition) AuxTags(lang string) []string {
	if !d.Multilingual {
		return nil
	}
	return d.AuxIndexes[lang]
}
