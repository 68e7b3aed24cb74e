package promptstyle

import "strings"

const marker = "TENXCARDS_PROMPT_STYLE_V1"

var commonRules = []string{
	"Follow the system and user instructions precisely.",
	"Use only the provided source text as grounding; do not invent facts.",
}

var modeRules = map[string][]string{
	"json": {"Return a single JSON object that conforms to the schema and contains no extra keys."},
	"text": {"Be concise."},
}

// ApplySystem prefixes system with the house guidance block for mode.
// Prompts that already carry the block come back unchanged.
func ApplySystem(system string, mode string) string {
	base := strings.TrimSpace(system)
	if base == "" || strings.Contains(base, marker) {
		return base
	}

	rules, ok := modeRules[strings.ToLower(strings.TrimSpace(mode))]
	if !ok {
		rules = modeRules["text"]
	}

	lines := []string{marker, "You are a careful assistant for 10x Cards."}
	if first, _, _ := strings.Cut(base, "\n"); strings.TrimSpace(first) != "" {
		lines = append(lines, "Task summary: "+strings.TrimSpace(first))
	}
	lines = append(lines, commonRules...)
	lines = append(lines, rules...)
	lines = append(lines, "---", base)
	return strings.Join(lines, "\n")
}
