package eligibility

import "strings"

// MCO is one managed-care organization the practice recognizes.
type MCO struct {
	// Name is the canonical display name.
	Name string
	// PayerIDs are clearinghouse identifiers seen in NM109.
	PayerIDs []string
	// NameFragments match NM103 free text when the id is unrecognized.
	NameFragments []string
}

// knownMCOs is the registry of managed-care organizations whose enrollment
// restricts which network a patient may book into.
var knownMCOs = []MCO{
	{
		Name:          "Molina Healthcare",
		PayerIDs:      []string{"MOLINAIL", "20934"},
		NameFragments: []string{"MOLINA"},
	},
	{
		Name:          "Meridian Health Plan",
		PayerIDs:      []string{"MERIDIANIL", "13189"},
		NameFragments: []string{"MERIDIAN"},
	},
	{
		Name:          "CountyCare Health Plan",
		PayerIDs:      []string{"COUNTYCARE", "06541"},
		NameFragments: []string{"COUNTYCARE", "COUNTY CARE"},
	},
	{
		Name:          "Blue Cross Community Health Plan",
		PayerIDs:      []string{"BCCHPIL", "G8A"},
		NameFragments: []string{"BLUE CROSS COMMUNITY", "BCCHP"},
	},
	{
		Name:          "Aetna Better Health",
		PayerIDs:      []string{"ABHIL", "26337"},
		NameFragments: []string{"AETNA BETTER HEALTH"},
	},
	{
		Name:          "UnitedHealthcare Community Plan",
		PayerIDs:      []string{"UHCCP", "87726"},
		NameFragments: []string{"UNITEDHEALTHCARE COMMUNITY", "UHC COMMUNITY"},
	},
}

// KnownMCO reports whether a payer id belongs to a recognized managed-care
// organization. Used at offer time, before any live eligibility response
// exists for the patient.
func KnownMCO(payerID string) (MCO, bool) {
	return lookupMCO(payerID, "")
}

// lookupMCO matches by payer id first, then by name fragment.
func lookupMCO(payerID, name string) (MCO, bool) {
	id := strings.ToUpper(strings.TrimSpace(payerID))
	if id != "" {
		for _, m := range knownMCOs {
			for _, candidate := range m.PayerIDs {
				if id == candidate {
					return m, true
				}
			}
		}
	}
	upper := strings.ToUpper(name)
	if upper == "" {
		return MCO{}, false
	}
	for _, m := range knownMCOs {
		for _, fragment := range m.NameFragments {
			if strings.Contains(upper, fragment) {
				return m, true
			}
		}
	}
	return MCO{}, false
}
