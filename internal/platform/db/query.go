package db

import (
	"fmt"
	"strings"
)

// Query builds the filtered SELECT/COUNT pair behind every list endpoint.
// Clauses use "?" for arguments; they are numbered in order of addition.
type Query struct {
	table   string
	cols    string
	where   string
	args    []interface{}
	orderBy string
}

func NewQuery(table, cols string) *Query {
	return &Query{table: table, cols: cols}
}

// Add appends a WHERE fragment (without leading "AND").
func (q *Query) Add(clause string, args ...interface{}) *Query {
	for _, a := range args {
		q.args = append(q.args, a)
		clause = strings.Replace(clause, "?", fmt.Sprintf("$%d", len(q.args)), 1)
	}
	q.where += " AND " + clause
	return q
}

// AddEq adds column = value.
func (q *Query) AddEq(column string, value interface{}) *Query {
	return q.Add(column+" = ?", value)
}

// AddContains matches value as a case-insensitive substring of any of the
// columns. Blank values are ignored.
func (q *Query) AddContains(value string, columns ...string) *Query {
	value = strings.TrimSpace(value)
	if value == "" || len(columns) == 0 {
		return q
	}
	q.args = append(q.args, ContainsPattern(value))
	idx := len(q.args)
	parts := make([]string, len(columns))
	for i, c := range columns {
		parts[i] = fmt.Sprintf("%s ILIKE $%d", c, idx)
	}
	q.where += " AND (" + strings.Join(parts, " OR ") + ")"
	return q
}

func (q *Query) OrderBy(orderBy string) *Query {
	q.orderBy = orderBy
	return q
}

func (q *Query) CountSQL() string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE 1=1%s", q.table, q.where)
}

func (q *Query) Args() []interface{} {
	return q.args
}

// SQL returns the unpaged data query.
func (q *Query) SQL() string {
	sql := fmt.Sprintf("SELECT %s FROM %s WHERE 1=1%s", q.cols, q.table, q.where)
	if q.orderBy != "" {
		sql += " ORDER BY " + q.orderBy
	}
	return sql
}

// DataSQL returns the data query with LIMIT/OFFSET appended.
func (q *Query) DataSQL() string {
	return q.SQL() + fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(q.args)+1, len(q.args)+2)
}

// DataArgs returns the filter arguments followed by limit and offset.
func (q *Query) DataArgs(limit, offset int) []interface{} {
	result := make([]interface{}, len(q.args)+2)
	copy(result, q.args)
	result[len(q.args)] = limit
	result[len(q.args)+1] = offset
	return result
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ContainsPattern turns value into an escaped ILIKE substring pattern.
func ContainsPattern(value string) string {
	return "%" + escapeLike(strings.TrimSpace(value)) + "%"
}

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
