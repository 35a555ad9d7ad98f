package workspace

import (
	"strings"
)

const (
	agentsHeader      = "# Agents"
	agentsNotice      = "> This file is generated from the AGENT_*.md files in this workspace. Do not edit it by hand."
	agentsPlaceholder = "_No agents defined yet. Create an AGENT_<name>.md file to add one._"
	agentsSeparator   = "---"
)

// agentSection is one primary agent file as rendered into AGENTS.md.
type agentSection struct {
	Name     string
	Content  string
	SubFiles []string
}

// renderAgentsMD builds the aggregate document. Output depends only on
// sections, so identical inputs give byte-identical documents.
func renderAgentsMD(sections []agentSection) string {
	var b strings.Builder

	b.WriteString(agentsHeader + "\n\n")
	b.WriteString(agentsNotice + "\n\n")

	if len(sections) == 0 {
		b.WriteString(agentsPlaceholder + "\n")
		return b.String()
	}

	for _, s := range sections {
		b.WriteString("## " + s.Name + "\n\n")

		if content := strings.TrimRight(s.Content, "\r\n"); content != "" {
			b.WriteString(content + "\n\n")
		}

		if len(s.SubFiles) > 0 {
			b.WriteString("**Sub-files:** " + strings.Join(s.SubFiles, ", ") + "\n\n")
		}

		b.WriteString(agentsSeparator + "\n\n")
	}

	return b.String()
}
