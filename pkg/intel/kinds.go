package intel

import (
	"fmt"
	"strings"
)

// Kind identifies one of the four entity tables.
type Kind string

const (
	KindPerson       Kind = "person"
	KindOrganisation Kind = "organisation"
	KindLocation     Kind = "location"
	KindCountry      Kind = "country"
)

// kindSpec carries everything that varies per entity kind: the entity
// table, the columns exposed by search, and the join-table wiring.
// Keeping this a closed table means no table or column name is ever
// assembled from request input.
type kindSpec struct {
	Table         string
	SearchColumns []string
	DetailColumns []string
	NewsJoinTable string
	NewsFK        string
	StoryJoinTable string
	// StoryFK is the join column in the story join table. For
	// location the upstream schema uses location_id here while the
	// news-item join uses the kind FK; the asymmetry is intentional
	// and mirrors the stored schema, so it is kept rather than
	// normalized away.
	StoryFK string
}

var kindSpecs = map[Kind]kindSpec{
	KindPerson: {
		Table:          "entity_person",
		SearchColumns:  []string{"id", "name", "role", "created"},
		DetailColumns:  []string{"id", "name", "role"},
		NewsJoinTable:  "news_item_entity_person",
		NewsFK:         "person_id",
		StoryJoinTable: "story_entity_person",
		StoryFK:        "person_id",
	},
	KindOrganisation: {
		Table:          "entity_organisation",
		SearchColumns:  []string{"id", "name", "org_type", "created"},
		DetailColumns:  []string{"id", "name", "org_type"},
		NewsJoinTable:  "news_item_entity_organisation",
		NewsFK:         "organisation_id",
		StoryJoinTable: "story_entity_organisation",
		StoryFK:        "organisation_id",
	},
	KindLocation: {
		Table:          "entity_location",
		SearchColumns:  []string{"id", "name", "lat", "lon", "country_code", "location_type"},
		DetailColumns:  []string{"id", "name", "lat", "lon", "country_code"},
		NewsJoinTable:  "news_item_entity_location",
		NewsFK:         "location_id",
		StoryJoinTable: "story_entity_location",
		StoryFK:        "location_id",
	},
	KindCountry: {
		Table:          "entity_country",
		SearchColumns:  []string{"id", "name", "official_name", "iso_alpha2", "region", "flag_emoji", "mention_count"},
		DetailColumns:  []string{"id", "name", "official_name", "iso_alpha2"},
		NewsJoinTable:  "news_item_entity_country",
		NewsFK:         "country_id",
		StoryJoinTable: "story_entity_country",
		StoryFK:        "country_id",
	},
}

// allKinds is the stable search/merge order for entity_type=all.
var allKinds = []Kind{KindPerson, KindOrganisation, KindLocation, KindCountry}

// storyDetailKinds are the kinds resolved for story detail. Country
// linkage sits above story granularity and is not walked there.
var storyDetailKinds = []Kind{KindPerson, KindOrganisation, KindLocation}

// ParseKind validates a caller-supplied entity type string.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := kindSpecs[k]; !ok {
		return "", fmt.Errorf("%w: invalid entity type %q, must be one of: country, location, organisation, person", ErrInvalidArgument, s)
	}
	return k, nil
}
