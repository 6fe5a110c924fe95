package eligibility

import (
	"fmt"
	"strings"
)

// Organization identifies a coordinating managed-care payer found in a
// response.
type Organization struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// ManagedCareInfo is the classifier verdict. A nil result means
// fee-for-service: the patient may book any in-network provider.
type ManagedCareInfo struct {
	IsManagedCare bool `json:"is_managed_care"`
	// Organizations lists every MCO signal found; when more than one appears
	// the first encountered is treated as primary. The full list is always
	// returned so callers can surface the ambiguity.
	Organizations        []Organization `json:"organizations,omitempty"`
	PrimaryOrganization  *Organization  `json:"primary_organization,omitempty"`
	PlanTypeText         string         `json:"plan_type_text,omitempty"`
	RequiresNetworkCheck bool           `json:"requires_network_check"`
}

// PlanInfo is a human-readable classification for the booking flow.
type PlanInfo struct {
	Classification string           `json:"classification"`
	Warning        string           `json:"warning,omitempty"`
	ManagedCare    *ManagedCareInfo `json:"managed_care,omitempty"`
}

// DetectManagedCare scans raw 271 eligibility-response text for managed-care
// enrollment. It is purely functional: it only produces a warning object and
// never gates booking by itself.
func DetectManagedCare(responseText string) *ManagedCareInfo {
	segments := ParseSegments(responseText)

	var (
		orgs         []Organization
		planTypeText string
		seenBenefit  bool
		inOtherLoop  bool
	)
	for _, seg := range segments {
		switch seg.ID {
		case "LS":
			inOtherLoop = true
		case "LE":
			inOtherLoop = false
		case "EB":
			seenBenefit = true
			if planTypeText == "" {
				planTypeText = healthMaintenanceIndicator(seg)
			}
		case "NM1":
			// Other-payer loops (2120) only appear inside LS/LE or after
			// benefit segments; the information-source NM1 at the top of the
			// response is the payer we queried, not a coordinating MCO.
			if seg.Element(1) != "PR" || !(inOtherLoop || seenBenefit) {
				continue
			}
			name := seg.Element(3)
			id := seg.Element(9)
			mco, ok := lookupMCO(id, name)
			if !ok {
				continue
			}
			org := Organization{ID: strings.ToUpper(strings.TrimSpace(id)), Name: mco.Name}
			if !containsOrg(orgs, org) {
				orgs = append(orgs, org)
			}
		}
	}

	if len(orgs) > 0 {
		return &ManagedCareInfo{
			IsManagedCare:        true,
			Organizations:        orgs,
			PrimaryOrganization:  &orgs[0],
			PlanTypeText:         planTypeText,
			RequiresNetworkCheck: true,
		}
	}
	if planTypeText != "" {
		// Secondary signal: an HM plan type with no named coordinating payer.
		return &ManagedCareInfo{
			IsManagedCare:        true,
			PlanTypeText:         planTypeText,
			RequiresNetworkCheck: true,
		}
	}
	// Some partners return plain-text denials or notes instead of segments;
	// fall back to substring scanning before declaring fee-for-service.
	return detectFromFreeText(responseText)
}

// ExtractPlanInfo derives the display classification and warning string the
// booking flow shows next to the payer selection.
func ExtractPlanInfo(responseText string) PlanInfo {
	info := DetectManagedCare(responseText)
	if info == nil {
		return PlanInfo{Classification: "fee-for-service"}
	}
	if info.PrimaryOrganization != nil {
		name := info.PrimaryOrganization.Name
		return PlanInfo{
			Classification: fmt.Sprintf("managed care (%s)", name),
			Warning: fmt.Sprintf(
				"Patient appears to be enrolled with %s. Verify the provider participates in the %s network before booking.",
				name, name,
			),
			ManagedCare: info,
		}
	}
	return PlanInfo{
		Classification: "managed care",
		Warning:        "Plan type indicates a health maintenance organization. Verify the patient's network before booking.",
		ManagedCare:    info,
	}
}

// healthMaintenanceIndicator reports the EB segment's plan-type text when it
// marks an HMO: insurance type code HM (EB04) or a plan description naming
// health maintenance (EB05).
func healthMaintenanceIndicator(seg Segment) string {
	if strings.EqualFold(seg.Element(4), "HM") {
		if desc := seg.Element(5); desc != "" {
			return desc
		}
		return "HM"
	}
	if desc := seg.Element(5); strings.Contains(strings.ToUpper(desc), "HEALTH MAINTENANCE") {
		return desc
	}
	return ""
}

// detectFromFreeText is the tolerant fallback for responses that are not
// segment-structured at all; substring scanning only.
func detectFromFreeText(text string) *ManagedCareInfo {
	upper := strings.ToUpper(text)
	if upper == "" {
		return nil
	}
	for _, m := range knownMCOs {
		for _, fragment := range m.NameFragments {
			if strings.Contains(upper, fragment) {
				org := Organization{Name: m.Name}
				return &ManagedCareInfo{
					IsManagedCare:        true,
					Organizations:        []Organization{org},
					PrimaryOrganization:  &org,
					RequiresNetworkCheck: true,
				}
			}
		}
	}
	if strings.Contains(upper, "HEALTH MAINTENANCE") {
		return &ManagedCareInfo{
			IsManagedCare:        true,
			PlanTypeText:         "HEALTH MAINTENANCE",
			RequiresNetworkCheck: true,
		}
	}
	return nil
}

func containsOrg(orgs []Organization, org Organization) bool {
	for _, o := range orgs {
		if o.Name == org.Name {
			return true
		}
	}
	return false
}
