package workspace

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"
)

//go:embed templates/*.md
var templateFS embed.FS

var seedTemplates = template.Must(template.ParseFS(templateFS, "templates/*.md"))

const (
	soulTemplate      = "soul.md"
	agentTemplate     = "agent.md"
	memoryTemplate    = "memory.md"
	heartbeatTemplate = "heartbeat.md"
)

// agentTemplateData is passed to the agent stub templates.
type agentTemplateData struct {
	Name          string
	Slug          string
	FileName      string
	MemoryFile    string
	HeartbeatFile string
}

func newAgentTemplateData(slug string) agentTemplateData {
	return agentTemplateData{
		Name:          HumanizeSlug(slug),
		Slug:          slug,
		FileName:      PrimaryFileName(slug),
		MemoryFile:    MemoryFileName(slug),
		HeartbeatFile: HeartbeatFileName(slug),
	}
}

func renderTemplate(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := seedTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.String(), nil
}
