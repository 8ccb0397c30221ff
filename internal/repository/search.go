package repository

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInvalidSearchField is returned when a search names a field outside the
// entity's allow-list.
var ErrInvalidSearchField = errors.New("field is not searchable")

const searchLimit = 5

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// searchSpec describes which columns of a table may be searched and how rows
// are selected. Field names map to column names; nothing outside the map
// ever reaches the SQL text.
type searchSpec struct {
	table   string
	columns string
	orderBy string
	fields  map[string]string
}

var (
	subjectSearch = searchSpec{
		table:   "subjects",
		columns: "id, name, created_at, updated_at",
		orderBy: "name",
		fields:  map[string]string{"name": "name"},
	}
	classSearch = searchSpec{
		table:   "classes",
		columns: "id, name, created_at, updated_at",
		orderBy: "name",
		fields:  map[string]string{"name": "name"},
	}
)

// Fields returns the allow-listed field names in sorted order.
func (s searchSpec) Fields() []string {
	names := make([]string, 0, len(s.fields))
	for name := range s.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// build returns a case-insensitive substring query over one field, or over
// every allow-listed field when field is empty.
func (s searchSpec) build(field, keyword string) (string, []any, error) {
	var targets []string
	if field == "" {
		for _, name := range s.Fields() {
			targets = append(targets, s.fields[name])
		}
	} else {
		column, ok := s.fields[field]
		if !ok {
			return "", nil, fmt.Errorf("%w: %q", ErrInvalidSearchField, field)
		}
		targets = []string{column}
	}

	conds := make([]string, len(targets))
	for i, column := range targets {
		conds[i] = column + " ILIKE $1"
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY %s LIMIT %d",
		s.columns, s.table, strings.Join(conds, " OR "), s.orderBy, searchLimit)
	return query, []any{"%" + likeEscaper.Replace(keyword) + "%"}, nil
}
