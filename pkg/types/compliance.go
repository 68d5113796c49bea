package types

// ComplianceKind separates proposal-response rules from post-award obligations
type ComplianceKind string

const (
	ComplianceResponse    ComplianceKind = "proposal_response"
	CompliancePerformance ComplianceKind = "project_performance"
)

// ComplianceItem is one mandatory requirement pulled from a solicitation
type ComplianceItem struct {
	Kind        ComplianceKind `json:"kind"`
	Type        string         `json:"type"`
	Requirement string         `json:"requirement"`
	Source      string         `json:"source"`
	FragmentID  string         `json:"chunk_id"`
}
