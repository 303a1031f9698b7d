package crm

// Pipeline stages, in board order
const (
	StageLead        = "Lead"
	StageQualified   = "Qualified"
	StageProposal    = "Proposal"
	StageNegotiation = "Negotiation"
	StageWon         = "Won"
)

// Stages lists the pipeline stages in board order.
var Stages = []string{StageLead, StageQualified, StageProposal, StageNegotiation, StageWon}

// ValidStage reports whether s is a known pipeline stage (exact match).
func ValidStage(s string) bool {
	for _, stage := range Stages {
		if s == stage {
			return true
		}
	}
	return false
}
