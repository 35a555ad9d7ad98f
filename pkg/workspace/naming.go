package workspace

import (
	"regexp"
	"strings"
)

// AgentFileKind classifies a workspace filename.
type AgentFileKind int

const (
	KindUnclassified AgentFileKind = iota
	KindPrimary
	KindMemory
	KindHeartbeat
)

// String returns the kind name.
func (k AgentFileKind) String() string {
	switch k {
	case KindPrimary:
		return "primary"
	case KindMemory:
		return "memory"
	case KindHeartbeat:
		return "heartbeat"
	default:
		return "unclassified"
	}
}

// IsSubFile reports whether k is a MEMORY or HEARTBEAT sub-file.
func (k AgentFileKind) IsSubFile() bool {
	return k == KindMemory || k == KindHeartbeat
}

// AgentFileName is the parsed form of a workspace filename.
type AgentFileName struct {
	Kind AgentFileKind
	Slug string
}

const (
	agentPrefix     = "AGENT_"
	memorySuffix    = "_MEMORY"
	heartbeatSuffix = "_HEARTBEAT"
	markdownExt     = ".md"

	// AgentsFileName is the generated aggregate document.
	AgentsFileName = "AGENTS.md"
	// SoulFileName is the seed identity document.
	SoulFileName = "SOUL.md"
)

var (
	subFilePattern     = regexp.MustCompile(`(?i)^AGENT_([A-Za-z0-9_]+)_(MEMORY|HEARTBEAT)\.md$`)
	primaryFilePattern = regexp.MustCompile(`(?i)^AGENT_([A-Za-z0-9_]+)\.md$`)
	subSuffixPattern   = regexp.MustCompile(`(?i)_(MEMORY|HEARTBEAT)\.md$`)
	slugSeparators     = regexp.MustCompile(`[^a-z0-9]+`)
)

// ParseAgentFileName classifies a bare filename. Matching is case-insensitive
// and a name that reads as both a sub-file and a primary file is a sub-file.
func ParseAgentFileName(name string) AgentFileName {
	if m := subFilePattern.FindStringSubmatch(name); m != nil {
		kind := KindMemory
		if strings.EqualFold(m[2], "HEARTBEAT") {
			kind = KindHeartbeat
		}
		return AgentFileName{Kind: kind, Slug: m[1]}
	}

	// AGENT_MEMORY.md carries no slug but still ends in a sub-file suffix;
	// it is neither a primary nor a sub-file.
	if subSuffixPattern.MatchString(name) {
		return AgentFileName{Kind: KindUnclassified}
	}

	if m := primaryFilePattern.FindStringSubmatch(name); m != nil {
		return AgentFileName{Kind: KindPrimary, Slug: m[1]}
	}

	return AgentFileName{Kind: KindUnclassified}
}

// IsAgentFile reports whether name is a primary agent file.
func IsAgentFile(name string) bool {
	return ParseAgentFileName(name).Kind == KindPrimary
}

// AgentSlug extracts the slug from a primary agent filename.
func AgentSlug(name string) (string, bool) {
	parsed := ParseAgentFileName(name)
	if parsed.Kind != KindPrimary {
		return "", false
	}
	return parsed.Slug, true
}

// ParentAgentFile maps a sub-file name to its primary filename. The primary
// file does not need to exist.
func ParentAgentFile(name string) (string, bool) {
	parsed := ParseAgentFileName(name)
	if !parsed.Kind.IsSubFile() {
		return "", false
	}
	return PrimaryFileName(parsed.Slug), true
}

// PrimaryFileName builds AGENT_<slug>.md.
func PrimaryFileName(slug string) string {
	return agentPrefix + slug + markdownExt
}

// MemoryFileName builds AGENT_<slug>_MEMORY.md.
func MemoryFileName(slug string) string {
	return agentPrefix + slug + memorySuffix + markdownExt
}

// HeartbeatFileName builds AGENT_<slug>_HEARTBEAT.md.
func HeartbeatFileName(slug string) string {
	return agentPrefix + slug + heartbeatSuffix + markdownExt
}

// NormalizeSlug lowercases a display name and collapses every run of
// characters outside [a-z0-9] into a single underscore.
func NormalizeSlug(displayName string) (string, bool) {
	slug := slugSeparators.ReplaceAllString(strings.ToLower(displayName), "_")
	slug = strings.Trim(slug, "_")
	return slug, slug != ""
}

// HumanizeSlug turns "billing_helper" into "Billing Helper". A slug made
// only of underscores is returned as is.
func HumanizeSlug(slug string) string {
	words := strings.Fields(strings.ReplaceAll(slug, "_", " "))
	if len(words) == 0 {
		return slug
	}
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}
