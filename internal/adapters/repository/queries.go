package repository

import (
	"strings"

	"github.com/okian/pythians/internal/domain/catalog"
)

// projectionQuery is the fixed SQL behind one projection. Column order in
// the SELECT list must match the projection schema's Columns.
type projectionQuery struct {
	selectFrom string
	// key is the projection column a by-id filter names; keyExpr is its SQL.
	key     string
	keyExpr string
	orderBy string
}

func (q projectionQuery) build(d Dialect, filtered bool) string {
	var b strings.Builder
	b.WriteString(q.selectFrom)
	if filtered {
		b.WriteString("\nWHERE ")
		b.WriteString(q.keyExpr)
		b.WriteString(" = ")
		b.WriteString(d.Placeholder(1))
	}
	if q.orderBy != "" {
		b.WriteString("\nORDER BY ")
		b.WriteString(q.orderBy)
	}
	return b.String()
}

var projections = map[string]projectionQuery{
	catalog.Years: {
		selectFrom: `SELECT DISTINCT y.id, y.year, y.type, c.name, e.id, e.name
FROM years y
LEFT JOIN countries c ON c.id = y.host_id
LEFT JOIN medals m ON m.year_id = y.id
LEFT JOIN events e ON e.id = m.event_id`,
		key:     "year_id",
		keyExpr: "y.id",
		orderBy: "y.id, e.id",
	},
	catalog.Countries: {
		selectFrom: `SELECT c.id, c.name, y.year, a.id, a.name
FROM countries c
LEFT JOIN years y ON y.host_id = c.id
LEFT JOIN athletes a ON a.country_id = c.id`,
		key:     "country_id",
		keyExpr: "c.id",
		orderBy: "c.id, a.id, y.year",
	},
	catalog.Events: {
		selectFrom: `SELECT DISTINCT e.id, e.name, y.id, y.year
FROM events e
LEFT JOIN medals m ON m.event_id = e.id
LEFT JOIN years y ON y.id = m.year_id`,
		key:     "event_id",
		keyExpr: "e.id",
		orderBy: "e.id, y.id",
	},
	// Representation is joined on the medal's year so each medal carries the
	// country the athlete represented at those games.
	catalog.Athletes: {
		selectFrom: `SELECT a.id, a.name, oc.name, m.id, m.rank, e.name, y.year, rc.name
FROM athletes a
JOIN countries oc ON oc.id = a.country_id
LEFT JOIN medals m ON m.athlete_id = a.id
LEFT JOIN events e ON e.id = m.event_id
LEFT JOIN years y ON y.id = m.year_id
LEFT JOIN year_representing yr ON yr.athlete_id = a.id AND yr.year_id = m.year_id
LEFT JOIN countries rc ON rc.id = yr.country_id`,
		key:     "athlete_id",
		keyExpr: "a.id",
		orderBy: "a.id, m.id",
	},
}
