package query

import (
	"strings"

	"github.com/semantalytics/jena-temporal/pkg/entity"
)

// buildQueryString assembles the executable query for a request and returns
// it together with the resolved base text field (without any language
// variant suffix) and whether search-for expansion was applied.
//
// Precedence: search-for expansion fans the text out across the configured
// per-tag field variants; otherwise a language clause is conjoined (the
// LangNone sentinel negates the language field's existence instead); a graph
// scope is always the outermost conjunct, its URI escaped like free text.
func buildQueryString(def *entity.Definition, req Request) (qs, textField string, usingSearchFor bool) {
	textField = def.Field(req.Predicate)
	fieldGiven := textField != ""
	if !fieldGiven {
		textField = def.PrimaryField
	}

	var textClause string
	searchForTags := def.SearchForTags(req.Lang)
	usingSearchFor = len(searchForTags) > 0

	if usingSearchFor {
		clauses := make([]string, 0, len(searchForTags))
		for _, tag := range searchForTags {
			clauses = append(clauses, textField+"_"+tag+":("+req.Text+")")
		}
		textClause = strings.Join(clauses, " ")
	} else {
		searchField := textField
		if def.Multilingual && req.Lang != "" && req.Lang != LangNone {
			searchField += "_" + req.Lang
		}

		if fieldGiven {
			textClause = searchField + ":(" + req.Text + ")"
		} else {
			textClause = req.Text
		}

		if def.LangField != "" && req.Lang != "" {
			var langClause string
			if req.Lang != LangNone {
				langClause = def.LangField + ":" + req.Lang
			} else {
				langClause = "-" + def.LangField + ":*"
			}
			textClause = "(" + textClause + ") AND " + langClause
		}
	}

	qs = textClause
	if req.GraphURI != "" && def.GraphField != "" {
		qs = "(" + qs + ") AND " + def.GraphField + ":" + Escape(req.GraphURI)
	}
	return qs, textField, usingSearchFor
}
