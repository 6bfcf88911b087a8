package course

import (
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/kampus/core"
)

var (
	suggestMinRatio = .6
	suggestLimit    = 5
)

type QueryFilter struct {
	Search   string   `query:"search"`
	Types    []string `query:"type"`
	Day      string   `query:"day"`
	OnlyOpen bool     `query:"open"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Day = core.CleanString(qf.Day)
}

// Match reports whether c satisfies every set field of the filter.
// Search does a case-insensitive match on one of Course.Code, Course.Name or Course.Faculty.
func (qf *QueryFilter) Match(c Course) bool {
	if qf.Search != "" &&
		!(core.ContainsFold(c.Code, qf.Search) || core.ContainsFold(c.Name, qf.Search) || core.ContainsFold(c.Faculty, qf.Search)) {
		return false
	}
	if len(qf.Types) > 0 {
		var ok bool
		for _, typ := range qf.Types {
			if strings.EqualFold(typ, string(c.Type)) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if qf.Day != "" && !c.MeetsOn(qf.Day) {
		return false
	}
	if qf.OnlyOpen && c.IsFull() {
		return false
	}
	return true
}

// Filter returns the courses matching filter, ordered by code then ID.
// The result only depends on its inputs.
func Filter(courses []Course, filter *QueryFilter) []Course {
	matched := make([]Course, 0, len(courses))
	for _, c := range courses {
		if filter == nil || filter.Match(c) {
			matched = append(matched, c)
		}
	}
	SortByCode(matched)
	return matched
}

func SortByCode(courses []Course) {
	sort.SliceStable(courses, func(i, j int) bool {
		if courses[i].Code == courses[j].Code {
			return courses[i].ID < courses[j].ID
		}
		return courses[i].Code < courses[j].Code
	})
}

// Suggest returns up to 5 courses whose code or name look like query, most similar first.
func Suggest(courses []Course, query string) []Course {
	query = strings.ToLower(core.CleanString(query))
	if query == "" {
		return []Course{}
	}

	type scored struct {
		course Course
		ratio  float64
	}
	var candidates []scored
	for _, c := range courses {
		ratio := similarity(query, strings.ToLower(c.Code))
		if r := similarity(query, strings.ToLower(c.Name)); r > ratio {
			ratio = r
		}
		if ratio >= suggestMinRatio {
			candidates = append(candidates, scored{course: c, ratio: ratio})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].ratio == candidates[j].ratio {
			return candidates[i].course.Code < candidates[j].course.Code
		}
		return candidates[i].ratio > candidates[j].ratio
	})

	suggestions := make([]Course, 0, suggestLimit)
	for i := 0; i < len(candidates) && i < suggestLimit; i++ {
		suggestions = append(suggestions, candidates[i].course)
	}
	return suggestions
}

func similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	return difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, "")).Ratio()
}
