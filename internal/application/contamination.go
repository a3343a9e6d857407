package application

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bnema/mailbot/internal/domain"
)

// minEchoLength is the shortest reference line treated as leaked when it
// shows up verbatim in model output.
const minEchoLength = 40

type contaminationRule struct {
	name    string
	pattern *regexp.Regexp
}

var contaminationRules = []contaminationRule{
	{name: "chat_template_token", pattern: regexp.MustCompile(`<\|(?:im_start|im_end|system|endoftext|eot_id)\|>`)},
	{name: "instruction_marker", pattern: regexp.MustCompile(`\[/?INST\]|<</?SYS>>`)},
	{name: "system_prompt_label", pattern: regexp.MustCompile(`(?im)^\s*(?:#+\s*)?(?:system prompt|system message|system instructions)\s*:`)},
	{name: "prompt_injection", pattern: regexp.MustCompile(`(?i)ignore\s+(?:all\s+)?(?:previous|prior|above)\s+instructions`)},
	{name: "private_key", pattern: regexp.MustCompile(`-----BEGIN [A-Z ]*PRIVATE KEY-----`)},
	{name: "api_key", pattern: regexp.MustCompile(`\bsk-[A-Za-z0-9_-]{20,}`)},
	{name: "bearer_token", pattern: regexp.MustCompile(`(?i)authorization:\s*bearer\s+\S+`)},
}

type ContaminationFinding struct {
	Rule  string
	Match string
}

// ContaminationScanner rejects model output that carries prompt scaffolding,
// secrets, or verbatim lines of the reference material the model was given.
type ContaminationScanner struct {
	rules     []contaminationRule
	reference []string
}

func NewContaminationScanner(reference ...string) *ContaminationScanner {
	scanner := &ContaminationScanner{rules: contaminationRules}
	for _, text := range reference {
		for _, line := range strings.Split(text, "\n") {
			line = strings.TrimSpace(line)
			if len(line) >= minEchoLength {
				scanner.reference = append(scanner.reference, line)
			}
		}
	}
	return scanner
}

func (s *ContaminationScanner) Scan(output string) []ContaminationFinding {
	var findings []ContaminationFinding
	for _, rule := range s.rules {
		if match := rule.pattern.FindString(output); match != "" {
			findings = append(findings, ContaminationFinding{Rule: rule.name, Match: match})
		}
	}
	for _, line := range s.reference {
		if strings.Contains(output, line) {
			findings = append(findings, ContaminationFinding{Rule: "reference_echo", Match: line})
		}
	}
	return findings
}

// Check wraps domain.ErrContaminatedOutput naming the rules that matched.
// Matched text is left out of the error so secrets do not reach logs.
func (s *ContaminationScanner) Check(output string) error {
	findings := s.Scan(output)
	if len(findings) == 0 {
		return nil
	}

	rules := make([]string, 0, len(findings))
	for _, finding := range findings {
		rules = append(rules, finding.Rule)
	}
	return fmt.Errorf("%w: %s", domain.ErrContaminatedOutput, strings.Join(rules, ", "))
}
