package models

// EntityType classifies a registry entity. Closed set: adding a new type is a
// code change, not a configuration value.
type EntityType string

const (
	EntityTypeCompany   EntityType = "company"
	EntityTypeCountry   EntityType = "country"
	EntityTypeCommodity EntityType = "commodity"
	EntityTypeCurrency  EntityType = "currency"
	EntityTypeOrg       EntityType = "organization"
	EntityTypePerson    EntityType = "person"
)

// ValidEntityTypes lists every accepted entity type.
var ValidEntityTypes = []EntityType{
	EntityTypeCompany,
	EntityTypeCountry,
	EntityTypeCommodity,
	EntityTypeCurrency,
	EntityTypeOrg,
	EntityTypePerson,
}

// IsValid reports whether t is a known entity type.
func (t EntityType) IsValid() bool {
	for _, v := range ValidEntityTypes {
		if t == v {
			return true
		}
	}
	return false
}

// EntityRecord is one entry of the static knowledge base. Loaded once at
// startup from the registry directory and never mutated afterwards.
// For country entities the ID is the ISO 3166-1 alpha-2 code.
type EntityRecord struct {
	ID          string     `json:"id" toml:"id" yaml:"id" validate:"required"`
	DisplayName string     `json:"display_name" toml:"display_name" yaml:"display_name" validate:"required"`
	Type        EntityType `json:"type" toml:"type" yaml:"type" validate:"required"`
	Aliases     []string   `json:"aliases" toml:"aliases" yaml:"aliases"`
	Keywords    []string   `json:"keywords" toml:"keywords" yaml:"keywords"`
	Sector      string     `json:"sector" toml:"sector" yaml:"sector"`
	RelatedIDs  []string   `json:"related_ids" toml:"related_ids" yaml:"related_ids"`
}
