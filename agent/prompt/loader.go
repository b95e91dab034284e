package prompt

import (
	_ "embed"
	"fmt"
	"strings"
)

//go:embed template/system.txt
var systemRaw string

// PromptSet holds loaded prompt content.
type PromptSet struct {
	System string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
func LoadPromptSet() PromptSet {
	return PromptSet{
		System: strings.TrimSpace(systemRaw),
	}
}

// WithMemberID appends the known member id to the system instructions.
func (p PromptSet) WithMemberID(memberID string) string {
	memberID = strings.TrimSpace(memberID)
	if memberID == "" {
		return p.System
	}
	return p.System + "\n\n" + fmt.Sprintf(
		"The member ID established earlier in this conversation is %s. Use it when a tool needs member_id unless the user gives a different one.",
		memberID,
	)
}
