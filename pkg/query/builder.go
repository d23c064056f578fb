package query

import (
	"reflect"
	"strconv"
	"strings"
)

// SortField is one ORDER BY term. Field is a view name resolved through
// the projection.
type SortField struct {
	Field      string
	Descending bool
}

// ParseSortFields reads "recording,-verified_at" style lists. A leading
// "-" sorts descending. Blank input yields nil.
func ParseSortFields(s string) []SortField {
	var fields []SortField
	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, desc := strings.CutPrefix(part, "-")
		fields = append(fields, SortField{Field: name, Descending: desc})
	}
	return fields
}

// params numbers positional arguments as they are bound.
type params struct {
	args []any
}

func (p *params) bind(v any) string {
	p.args = append(p.args, v)
	return "$" + strconv.Itoa(len(p.args))
}

// condition renders one WHERE term, binding its values as it goes.
type condition func(p *params) string

// Builder assembles SELECT statements over a ProjectionMap. Where methods
// ignore nil or empty values so optional filters can be chained directly.
type Builder struct {
	projection  *ProjectionMap
	conditions  []condition
	sort        []SortField
	defaultSort []SortField
}

func NewBuilder(projection *ProjectionMap, defaultSort ...SortField) *Builder {
	return &Builder{projection: projection, defaultSort: defaultSort}
}

// Build returns the ordered SELECT with every condition applied.
func (b *Builder) Build() (string, []any) {
	where, args := b.where()
	return b.selectFrom() + where + b.orderBy(), args
}

// BuildCount returns SELECT COUNT(*) with every condition applied.
func (b *Builder) BuildCount() (string, []any) {
	where, args := b.where()
	return "SELECT COUNT(*) FROM " + b.projection.From() + where, args
}

// BuildAggregate selects exprs under the current conditions, grouped by
// groupBy when it is non-empty.
func (b *Builder) BuildAggregate(exprs, groupBy string) (string, []any) {
	where, args := b.where()
	sql := "SELECT " + exprs + " FROM " + b.projection.From() + where
	if groupBy != "" {
		sql += " GROUP BY " + groupBy
	}
	return sql, args
}

// BuildPage returns the ordered SELECT limited to one 1-based page.
func (b *Builder) BuildPage(page, pageSize int) (string, []any) {
	where, args := b.where()
	offset := max(page-1, 0) * pageSize
	return b.selectFrom() + where + b.orderBy() +
		" LIMIT " + strconv.Itoa(pageSize) +
		" OFFSET " + strconv.Itoa(offset), args
}

// BuildSingle selects the row whose idField equals id. Other conditions
// are ignored.
func (b *Builder) BuildSingle(idField string, id any) (string, []any) {
	return b.selectFrom() + " WHERE " + b.projection.Column(idField) + " = $1", []any{id}
}

// BuildSingleOrNull selects at most one row matching the conditions.
func (b *Builder) BuildSingleOrNull() (string, []any) {
	where, args := b.where()
	return b.selectFrom() + where + " LIMIT 1", args
}

// OrderByFields replaces the default sort. An empty list keeps the default.
func (b *Builder) OrderByFields(fields []SortField) *Builder {
	b.sort = fields
	return b
}

// WhereContains matches field case-insensitively against a substring.
// LIKE wildcards in value are matched literally.
func (b *Builder) WhereContains(field string, value *string) *Builder {
	if value == nil || *value == "" {
		return b
	}
	return b.WhereSearch(value, field)
}

// WhereEquals adds field = value.
func (b *Builder) WhereEquals(field string, value any) *Builder {
	return b.compare(field, "=", value)
}

// WhereAtLeast adds field >= value.
func (b *Builder) WhereAtLeast(field string, value any) *Builder {
	return b.compare(field, ">=", value)
}

// WhereBefore adds field < value.
func (b *Builder) WhereBefore(field string, value any) *Builder {
	return b.compare(field, "<", value)
}

// WhereIn adds field IN (values...).
func (b *Builder) WhereIn(field string, values []any) *Builder {
	if len(values) == 0 {
		return b
	}
	col := b.projection.Column(field)
	b.conditions = append(b.conditions, func(p *params) string {
		placeholders := make([]string, len(values))
		for i, v := range values {
			placeholders[i] = p.bind(v)
		}
		return col + " IN (" + strings.Join(placeholders, ", ") + ")"
	})
	return b
}

// WhereNullable adds field = value, or field IS NULL when value is nil.
func (b *Builder) WhereNullable(field string, value any) *Builder {
	if isNil(value) {
		col := b.projection.Column(field)
		b.conditions = append(b.conditions, func(*params) string { return col + " IS NULL" })
		return b
	}
	return b.compare(field, "=", value)
}

// WhereSearch matches search case-insensitively against any of fields.
// A single field is rendered without parentheses.
func (b *Builder) WhereSearch(search *string, fields ...string) *Builder {
	if search == nil || *search == "" || len(fields) == 0 {
		return b
	}

	pattern := "%" + escapeLike(*search) + "%"
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = b.projection.Column(f)
	}

	b.conditions = append(b.conditions, func(p *params) string {
		terms := make([]string, len(cols))
		for i, col := range cols {
			terms[i] = col + " ILIKE " + p.bind(pattern)
		}
		if len(terms) == 1 {
			return terms[0]
		}
		return "(" + strings.Join(terms, " OR ") + ")"
	})
	return b
}

func (b *Builder) compare(field, op string, value any) *Builder {
	if isNil(value) {
		return b
	}
	col := b.projection.Column(field)
	b.conditions = append(b.conditions, func(p *params) string {
		return col + " " + op + " " + p.bind(value)
	})
	return b
}

func (b *Builder) selectFrom() string {
	return "SELECT " + b.projection.Columns() + " FROM " + b.projection.From()
}

func (b *Builder) where() (string, []any) {
	if len(b.conditions) == 0 {
		return "", nil
	}

	var p params
	terms := make([]string, len(b.conditions))
	for i, c := range b.conditions {
		terms[i] = c(&p)
	}
	return " WHERE " + strings.Join(terms, " AND "), p.args
}

func (b *Builder) orderBy() string {
	fields := b.sort
	if len(fields) == 0 {
		fields = b.defaultSort
	}
	if len(fields) == 0 {
		return ""
	}

	terms := make([]string, len(fields))
	for i, f := range fields {
		dir := " ASC"
		if f.Descending {
			dir = " DESC"
		}
		terms[i] = b.projection.Column(f.Field) + dir
	}
	return " ORDER BY " + strings.Join(terms, ", ")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func isNil(value any) bool {
	if value == nil {
		return true
	}
	switch v := reflect.ValueOf(value); v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		return v.IsNil()
	}
	return false
}
