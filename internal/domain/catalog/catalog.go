// Package catalog holds the projection schemas served by the scrape API.
// Each resource is folded from one fixed projection; the by-id variant is
// the same projection filtered on the primary key column.
package catalog

import (
	"sort"

	"github.com/okian/pythians/internal/domain/denorm"
)

// Resource names.
const (
	Years     = "years"
	Countries = "countries"
	Events    = "events"
	Athletes  = "athletes"
)

// Resource binds a public resource name to its projection schema.
type Resource struct {
	Name   string
	Schema *denorm.Schema
}

// KeyColumn returns the projection column the by-id filter applies to.
func (r Resource) KeyColumn() string { return r.Schema.PrimaryKey }

var resources = map[string]Resource{
	Years:     {Name: Years, Schema: YearsSchema()},
	Countries: {Name: Countries, Schema: CountriesSchema()},
	Events:    {Name: Events, Schema: EventsSchema()},
	Athletes:  {Name: Athletes, Schema: AthletesSchema()},
}

// Lookup returns the resource registered under name.
func Lookup(name string) (Resource, bool) {
	r, ok := resources[name]
	return r, ok
}

// Names returns the registered resource names, sorted.
func Names() []string {
	names := make([]string, 0, len(resources))
	for n := range resources {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// YearsSchema folds games with their host country name and the events
// that awarded medals that year.
func YearsSchema() *denorm.Schema {
	return &denorm.Schema{
		Name:       Years,
		Columns:    []string{"year_id", "year", "type", "host", "event_id", "event_name"},
		PrimaryKey: "year_id",
		Scalars: []denorm.Field{
			{Name: "id", Column: "year_id"},
			{Name: "year", Column: "year"},
			{Name: "type", Column: "type"},
			{Name: "host", Column: "host"},
		},
		Collections: []denorm.Collection{{
			Name:     "events",
			Presence: "event_id",
			Dedup:    denorm.ByIdentity,
			Items: []denorm.Field{
				{Name: "id", Column: "event_id"},
				{Name: "name", Column: "event_name"},
			},
		}},
	}
}

// CountriesSchema folds countries with the years they hosted and the
// athletes originating from them. Hosted years and origin athletes are
// joined independently, so both collections see the cross product.
func CountriesSchema() *denorm.Schema {
	return &denorm.Schema{
		Name:       Countries,
		Columns:    []string{"country_id", "name", "hosted_year", "athlete_id", "athlete_name"},
		PrimaryKey: "country_id",
		Scalars: []denorm.Field{
			{Name: "id", Column: "country_id"},
			{Name: "name", Column: "name"},
		},
		Collections: []denorm.Collection{
			{
				Name:     "years-hosted",
				Presence: "hosted_year",
				Dedup:    denorm.ByValueSet,
				Items:    []denorm.Field{{Name: "year", Column: "hosted_year"}},
			},
			{
				Name:     "origin-athletes",
				Presence: "athlete_id",
				Dedup:    denorm.ByIdentity,
				Items: []denorm.Field{
					{Name: "id", Column: "athlete_id"},
					{Name: "name", Column: "athlete_name"},
				},
			},
		},
	}
}

// EventsSchema folds events with the games in which they awarded medals.
func EventsSchema() *denorm.Schema {
	return &denorm.Schema{
		Name:       Events,
		Columns:    []string{"event_id", "name", "year_id", "year"},
		PrimaryKey: "event_id",
		Scalars: []denorm.Field{
			{Name: "id", Column: "event_id"},
			{Name: "name", Column: "name"},
		},
		Collections: []denorm.Collection{{
			Name:     "years",
			Presence: "year_id",
			Dedup:    denorm.ByIdentity,
			Items: []denorm.Field{
				{Name: "id", Column: "year_id"},
				{Name: "name", Column: "year"},
			},
		}},
	}
}

// AthletesSchema folds athletes with their medals. Each medal carries the
// event name, the games year and the country represented in that year.
func AthletesSchema() *denorm.Schema {
	return &denorm.Schema{
		Name:       Athletes,
		Columns:    []string{"athlete_id", "name", "origin", "medal_id", "rank", "event", "year", "repr"},
		PrimaryKey: "athlete_id",
		Scalars: []denorm.Field{
			{Name: "id", Column: "athlete_id"},
			{Name: "name", Column: "name"},
			{Name: "origin", Column: "origin"},
		},
		Collections: []denorm.Collection{{
			Name:     "medals",
			Presence: "medal_id",
			Dedup:    denorm.ByIdentity,
			Items: []denorm.Field{
				{Name: "id", Column: "medal_id"},
				{Name: "rank", Column: "rank"},
				{Name: "event", Column: "event"},
				{Name: "year", Column: "year"},
				{Name: "repr", Column: "repr"},
			},
		}},
	}
}
