// Package query maps API field names onto SQL columns and assembles
// filtered, sorted, paged SELECT statements over them.
package query

import "strings"

// source is a table reference in a FROM clause. The base table has no
// kind or condition.
type source struct {
	kind   string
	schema string
	table  string
	alias  string
	on     string
}

func (s source) String() string {
	ref := s.schema + "." + s.table + " " + s.alias
	if s.kind == "" {
		return ref
	}
	return s.kind + " " + ref + " ON " + s.on
}

// ProjectionMap binds API field names to alias-qualified columns over a
// base table and its joins. Columns keep the order they were projected in.
type ProjectionMap struct {
	base    source
	joins   []source
	columns map[string]string
	order   []string
}

func NewProjectionMap(schema, table, alias string) *ProjectionMap {
	return &ProjectionMap{
		base:    source{schema: schema, table: table, alias: alias},
		columns: make(map[string]string),
	}
}

// Project exposes a base table column as field.
func (p *ProjectionMap) Project(column, field string) *ProjectionMap {
	return p.ProjectFrom(p.base.alias, column, field)
}

// ProjectFrom exposes a column of the table joined under alias as field.
func (p *ProjectionMap) ProjectFrom(alias, column, field string) *ProjectionMap {
	qualified := alias + "." + column
	p.columns[field] = qualified
	p.order = append(p.order, qualified)
	return p
}

func (p *ProjectionMap) Join(schema, table, alias, on string) *ProjectionMap {
	return p.join("JOIN", schema, table, alias, on)
}

func (p *ProjectionMap) LeftJoin(schema, table, alias, on string) *ProjectionMap {
	return p.join("LEFT JOIN", schema, table, alias, on)
}

func (p *ProjectionMap) join(kind, schema, table, alias, on string) *ProjectionMap {
	p.joins = append(p.joins, source{kind: kind, schema: schema, table: table, alias: alias, on: on})
	return p
}

func (p *ProjectionMap) Alias() string {
	return p.base.alias
}

// Table is the base table as "schema.table alias".
func (p *ProjectionMap) Table() string {
	return p.base.String()
}

// From is the base table followed by every join, ready for a FROM clause.
func (p *ProjectionMap) From() string {
	parts := make([]string, 0, len(p.joins)+1)
	parts = append(parts, p.base.String())
	for _, j := range p.joins {
		parts = append(parts, j.String())
	}
	return strings.Join(parts, " ")
}

// Column resolves field to its qualified column. Unmapped names pass
// through unchanged.
func (p *ProjectionMap) Column(field string) string {
	if col, ok := p.columns[field]; ok {
		return col
	}
	return field
}

func (p *ProjectionMap) Columns() string {
	return strings.Join(p.order, ", ")
}

func (p *ProjectionMap) ColumnList() []string {
	return p.order
}
