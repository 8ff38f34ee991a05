package catalog

// AccessBreakdown splits a dataset's records by how far they are from being
// accessible. The four percentages are expected to sum to 100.
type AccessBreakdown struct {
	AlreadyOpen     int `json:"already_open" yaml:"already_open" db:"already_open"`
	ReadyToGrant    int `json:"ready_to_grant" yaml:"ready_to_grant" db:"ready_to_grant"`
	NeedsApproval   int `json:"needs_approval" yaml:"needs_approval" db:"needs_approval"`
	MissingLocation int `json:"missing_location" yaml:"missing_location" db:"missing_location"`
}

func (b AccessBreakdown) Total() int {
	return b.AlreadyOpen + b.ReadyToGrant + b.NeedsApproval + b.MissingLocation
}

// Valid reports whether the breakdown sums to 100 with no negative parts.
func (b AccessBreakdown) Valid() bool {
	if b.AlreadyOpen < 0 || b.ReadyToGrant < 0 || b.NeedsApproval < 0 || b.MissingLocation < 0 {
		return false
	}
	return b.Total() == 100
}

// AOTMetadata holds the usage restrictions recorded against a dataset's
// agreements of terms.
type AOTMetadata struct {
	RestrictML          bool   `json:"restrict_ml" yaml:"restrict_ml" db:"restrict_ml"`
	RestrictSoftwareDev bool   `json:"restrict_software_dev" yaml:"restrict_software_dev" db:"restrict_software_dev"`
	RestrictPublication bool   `json:"restrict_publication" yaml:"restrict_publication" db:"restrict_publication"`
	Reason              string `json:"reason,omitempty" yaml:"reason" db:"restriction_reason"`
}

type Dataset struct {
	ID              string          `json:"id" yaml:"id"`
	Code            string          `json:"code" yaml:"code"`
	Name            string          `json:"name" yaml:"name"`
	Description     string          `json:"description,omitempty" yaml:"description"`
	TherapeuticArea []string        `json:"therapeutic_area" yaml:"therapeutic_area"`
	Phase           string          `json:"phase" yaml:"phase"`
	PatientCount    int             `json:"patient_count" yaml:"patient_count"`
	AccessBreakdown AccessBreakdown `json:"access_breakdown" yaml:"access_breakdown"`
	Categories      []string        `json:"categories" yaml:"categories"`
	AOT             *AOTMetadata    `json:"aot_metadata,omitempty" yaml:"aot_metadata"`
}

// Collection is an existing bundle of datasets that has already been
// provisioned for some group of users.
type Collection struct {
	ID         string   `json:"id" yaml:"id"`
	Name       string   `json:"name" yaml:"name"`
	DatasetIDs []string `json:"dataset_ids" yaml:"dataset_ids"`
}

// CollectionRef is the advisory pointer attached to match results.
type CollectionRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
