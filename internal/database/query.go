package database

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/vandreio/tourbook/internal/constants"
	"github.com/vandreio/tourbook/internal/utils"
)

// ResourceSchema describes which query-string names a resource exposes and
// the database column each maps to. The maps double as an allow-list: names
// outside them are rejected, so client input never reaches SQL directly.
type ResourceSchema struct {
	// Filterable maps filter names to columns.
	Filterable map[string]string
	// Sortable maps sort names to columns.
	Sortable map[string]string
	// Selectable maps projection names to columns.
	Selectable map[string]string
	// DefaultSort is the ORDER BY expression used when no sort is given.
	DefaultSort string
}

// Comparison operators accepted in bracketed filter keys, e.g. price[lte]=1500.
var filterOperators = map[string]string{
	"gte": ">=",
	"gt":  ">",
	"lte": "<=",
	"lt":  "<",
	"ne":  "<>",
}

// condition is a single WHERE predicate against one column.
type condition struct {
	column string
	op     string
	values []string
}

// ListQuery is the parsed form of a collection request's query string.
// Reserved parameters (page, sort, limit, fields) control shaping; every
// other parameter becomes a filter condition.
type ListQuery struct {
	conditions []condition
	orderBy    string
	fields     []string

	Page         int
	Limit        int
	PageExplicit bool
}

// ParseListQuery interprets the query string of a list request against the
// given schema. Unknown filter, sort or projection names and malformed
// pagination values yield a validation error.
func ParseListQuery(values url.Values, schema ResourceSchema) (*ListQuery, error) {
	q := &ListQuery{
		Page:  constants.DefaultPage,
		Limit: constants.DefaultPageLimit,
	}

	if err := q.parsePagination(values); err != nil {
		return nil, err
	}
	if err := q.parseSort(values.Get(constants.QueryParamSort), schema); err != nil {
		return nil, err
	}
	if err := q.parseFields(values.Get(constants.QueryParamFields), schema); err != nil {
		return nil, err
	}
	if err := q.parseFilters(values, schema); err != nil {
		return nil, err
	}

	return q, nil
}

func (q *ListQuery) parsePagination(values url.Values) error {
	if raw := values.Get(constants.QueryParamPage); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return utils.NewValidationError(constants.QueryParamPage, "Page must be a positive integer")
		}
		q.Page = page
		q.PageExplicit = true
	}

	if raw := values.Get(constants.QueryParamLimit); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return utils.NewValidationError(constants.QueryParamLimit, "Limit must be a positive integer")
		}
		if limit > constants.MaxPageLimit {
			limit = constants.MaxPageLimit
		}
		q.Limit = limit
	}

	return nil
}

func (q *ListQuery) parseSort(raw string, schema ResourceSchema) error {
	if raw == "" {
		q.orderBy = schema.DefaultSort
		return nil
	}

	var clauses []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		direction := "ASC"
		if strings.HasPrefix(part, "-") {
			direction = "DESC"
			part = part[1:]
		}

		column, ok := schema.Sortable[part]
		if !ok {
			return utils.NewValidationError(constants.QueryParamSort,
				fmt.Sprintf("Cannot sort by '%s'", part))
		}
		clauses = append(clauses, column+" "+direction)
	}

	if len(clauses) == 0 {
		q.orderBy = schema.DefaultSort
		return nil
	}
	q.orderBy = strings.Join(clauses, ", ")
	return nil
}

func (q *ListQuery) parseFields(raw string, schema ResourceSchema) error {
	if raw == "" {
		return nil
	}

	var include, exclude []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.HasPrefix(part, "-") {
			name := part[1:]
			if _, ok := schema.Selectable[name]; !ok {
				return utils.NewValidationError(constants.QueryParamFields,
					fmt.Sprintf("Unknown field '%s'", name))
			}
			exclude = append(exclude, name)
			continue
		}
		if _, ok := schema.Selectable[part]; !ok {
			return utils.NewValidationError(constants.QueryParamFields,
				fmt.Sprintf("Unknown field '%s'", part))
		}
		include = append(include, part)
	}

	// An exclusion list means "all fields except these"
	if len(include) == 0 && len(exclude) > 0 {
		excluded := make(map[string]bool, len(exclude))
		for _, name := range exclude {
			excluded[name] = true
		}
		for _, name := range sortedNames(schema.Selectable) {
			if !excluded[name] {
				include = append(include, name)
			}
		}
	}

	if len(include) > 0 {
		q.fields = include
	}
	return nil
}

// Fields returns the projected field names as they appear in JSON, or nil
// when the request carried no projection.
func (q *ListQuery) Fields() []string {
	return q.fields
}

func (q *ListQuery) parseFilters(values url.Values, schema ResourceSchema) error {
	// Iterate keys in stable order so generated SQL is deterministic
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		switch key {
		case constants.QueryParamPage, constants.QueryParamSort,
			constants.QueryParamLimit, constants.QueryParamFields:
			continue
		}

		name, op := splitFilterKey(key)
		column, ok := schema.Filterable[name]
		if !ok {
			return utils.NewValidationError(name, fmt.Sprintf("Cannot filter by '%s'", name))
		}

		if op == "" {
			q.conditions = append(q.conditions, condition{
				column: column,
				op:     "=",
				values: values[key],
			})
			continue
		}

		sqlOp, ok := filterOperators[op]
		if !ok {
			return utils.NewValidationError(name, fmt.Sprintf("Unknown filter operator '%s'", op))
		}
		for _, v := range values[key] {
			q.conditions = append(q.conditions, condition{
				column: column,
				op:     sqlOp,
				values: []string{v},
			})
		}
	}
	return nil
}

// splitFilterKey separates "price[lte]" into ("price", "lte"). A key
// without brackets has an empty operator.
func splitFilterKey(key string) (name, op string) {
	open := strings.IndexByte(key, '[')
	if open == -1 || !strings.HasSuffix(key, "]") {
		return key, ""
	}
	return key[:open], key[open+1 : len(key)-1]
}

// WhereClause renders the filter conditions as SQL starting at placeholder
// $startIdx, returning the clause (without the WHERE keyword) and its
// arguments. An empty clause means no filters were given.
func (q *ListQuery) WhereClause(startIdx int) (string, []interface{}) {
	if len(q.conditions) == 0 {
		return "", nil
	}

	var (
		parts []string
		args  []interface{}
		idx   = startIdx
	)
	for _, cond := range q.conditions {
		if cond.op == "=" && len(cond.values) > 1 {
			placeholders := make([]string, len(cond.values))
			for i, v := range cond.values {
				placeholders[i] = fmt.Sprintf("$%d", idx)
				args = append(args, v)
				idx++
			}
			parts = append(parts, fmt.Sprintf("%s IN (%s)", cond.column, strings.Join(placeholders, ", ")))
			continue
		}
		for _, v := range cond.values {
			parts = append(parts, fmt.Sprintf("%s %s $%d", cond.column, cond.op, idx))
			args = append(args, v)
			idx++
		}
	}
	return strings.Join(parts, " AND "), args
}

// OrderBy returns the ORDER BY expression for the request.
func (q *ListQuery) OrderBy() string {
	return q.orderBy
}

// Offset returns the number of rows to skip for the requested page.
func (q *ListQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

func sortedNames(m map[string]string) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
