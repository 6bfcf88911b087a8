package echoapi

import (
	"fmt"
	"sort"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/kampus/core"
)

const (
	sortParam  = "ordering"
	queryField = "query"
)

// listQuery is what list endpoints read from the query string: the filter
// struct echo binds, plus a comma separated "ordering" such as "-credits,code".
type listQuery struct {
	sortable map[string]string
	Ordering []core.DBOrdering
}

func newListQuery(sortable map[string]string) *listQuery {
	return &listQuery{sortable: sortable}
}

// bind fills filter from the query string and parses the ordering.
// A malformed filter or an unknown sort field is a validation error.
func (lq *listQuery) bind(ctx echo.Context, filter interface{}) error {
	if filter != nil {
		if err := ctx.Bind(filter); err != nil {
			return core.NewValidationError(nil, core.FieldError{Field: queryField, Error: "malformed query string"})
		}
	}

	raw := strings.TrimSpace(ctx.QueryParam(sortParam))
	if raw == "" {
		return nil
	}
	seen := make(map[string]bool)
	for _, field := range strings.Split(raw, ",") {
		field = strings.TrimSpace(field)
		asc := !strings.HasPrefix(field, "-")
		field = strings.TrimPrefix(field, "-")
		if field == "" || seen[field] {
			continue
		}
		if _, ok := lq.sortable[field]; !ok {
			return core.NewValidationError(
				fmt.Errorf("cannot sort by %q", field),
				core.FieldError{Field: sortParam, Error: "must be one of: " + strings.Join(lq.fields(), ", ")},
			)
		}
		seen[field] = true
		lq.Ordering = append(lq.Ordering, core.DBOrdering{Field: field, Ascending: asc})
	}
	return nil
}

func (lq *listQuery) fields() []string {
	names := make([]string, 0, len(lq.sortable))
	for name := range lq.sortable {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
