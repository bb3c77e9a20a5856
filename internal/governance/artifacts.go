// Package governance holds the static legal artifacts of the platform:
// constitution templates and the system perimeter document. Artifacts are
// immutable process-wide values; their canonical hashes ride along in
// every export so exported copies can later be proven unchanged.
package governance

// ConstitutionTemplate is a reusable pool constitution
type ConstitutionTemplate struct {
	Key      string   `json:"key"`
	Title    string   `json:"title"`
	Version  string   `json:"version"`
	Articles []string `json:"articles"`
}

// SystemPerimeter defines the legal boundary of the platform. Any change
// must be versioned; the canonical hash of this document is part of every
// export bundle.
type SystemPerimeter struct {
	Version             string   `json:"version"`
	Classification      string   `json:"classification"`
	StatutoryAlignment  string   `json:"statutory_alignment"`
	LegalExclusions     []string `json:"legal_exclusions"`
	GovernanceSupremacy string   `json:"governance_supremacy"`
	EvidenceStandard    string   `json:"evidence_standard"`
}

// Perimeter is the current system perimeter document
var Perimeter = SystemPerimeter{
	Version:            "2025.1.0",
	Classification:     "Non-Custodial Community Governance Facilitator",
	StatutoryAlignment: "South African Stokvel exemption (1990), ECTA (2002)",
	LegalExclusions: []string{
		"NOT_A_BANK: no deposit-taking or credit extension from own balance sheet",
		"NOT_A_CIS: no collective investment scheme; beneficial ownership is individual",
		"NOT_A_FINANCIAL_INTERMEDIARY: platform does not act as an agent of funds",
		"NOT_A_CUSTODIAN: zero beneficial ownership of member assets",
	},
	GovernanceSupremacy: "operational logic is governed by the hash-chained event store",
	EvidenceStandard:    "the event log is the authoritative record for all disputes",
}

// Templates returns the constitution templates keyed by short name
func Templates() map[string]ConstitutionTemplate {
	return map[string]ConstitutionTemplate{
		"family_wealth": {
			Key:     "family_wealth",
			Title:   "Family Wealth Circle Agreement",
			Version: "1.2",
			Articles: []string{
				"Members contribute the agreed amount on the agreed schedule.",
				"Payouts rotate in the order fixed at pool creation.",
				"Amendments require a two-thirds majority vote recorded in the event log.",
			},
		},
		"sme_bulk_buying": {
			Key:     "sme_bulk_buying",
			Title:   "SME Bulk Buying Round Agreement",
			Version: "1.1",
			Articles: []string{
				"Contributions fund joint procurement only.",
				"Every purchase order requires a recorded approval event.",
				"Surplus from a buying round is returned pro rata.",
			},
		},
		"stokvel": {
			Key:     "stokvel",
			Title:   "Stokvel Constitution",
			Version: "2.0",
			Articles: []string{
				"The stokvel operates as a rotating savings and credit association.",
				"Contribution amount, rotation order and penalty terms are fixed by vote.",
				"The signed constitution's canonical hash is recorded with the signing event.",
			},
		},
	}
}
