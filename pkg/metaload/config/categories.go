package config

// DefaultCategories returns the built-in category table. Each call returns a
// fresh copy.
func DefaultCategories() []Category {
	return []Category{
		{
			Name:          "diseases",
			SemanticTypes: []string{"T019", "T020", "T037", "T046", "T047", "T048", "T049", "T050", "T190", "T191"},
			Sources:       []string{"SNOMEDCT_US", "MSH", "ICD10CM", "MEDLINEPLUS", "NCI"},
		},
		{
			Name:          "medications",
			SemanticTypes: []string{"T121", "T200", "T195", "T109"},
			Sources:       []string{"RXNORM", "MSH", "SNOMEDCT_US", "DRUGBANK"},
			TermTypes:     []string{"IN", "PIN", "BN", "SCD", "PT", "SY"},
		},
		{
			Name:          "symptoms",
			SemanticTypes: []string{"T184", "T033"},
			Sources:       []string{"SNOMEDCT_US", "MSH", "MEDLINEPLUS", "NCI"},
		},
		{
			Name:          "procedures",
			SemanticTypes: []string{"T060", "T061", "T058"},
			Sources:       []string{"SNOMEDCT_US", "MSH", "ICD10PCS", "CPT", "NCI"},
		},
		{
			Name:          "anatomy",
			SemanticTypes: []string{"T017", "T023", "T029", "T030", "T022", "T024", "T025", "T026"},
			Sources:       []string{"FMA", "SNOMEDCT_US", "MSH", "UWDA"},
		},
		{
			Name:          "biological_functions",
			SemanticTypes: []string{"T038", "T039", "T040", "T041", "T042", "T043", "T044", "T045"},
			Sources:       []string{"GO", "MSH", "SNOMEDCT_US", "NCI"},
		},
		{
			Name:          "lab_tests",
			SemanticTypes: []string{"T059", "T034"},
			Sources:       []string{"LNC", "SNOMEDCT_US", "MSH"},
			TermTypes:     []string{"PT", "LN", "LC", "SY"},
		},
		{
			Name:          "risk_factors",
			SemanticTypes: []string{"T053", "T054", "T055", "T056"},
			Sources:       []string{"SNOMEDCT_US", "MSH", "NCI"},
		},
	}
}

// CategoryNames lists the names of cats in order
func CategoryNames(cats []Category) []string {
	out := make([]string, len(cats))
	for i, c := range cats {
		out[i] = c.Name
	}
	return out
}
