package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"receptionist-platform/internal/apperr"
)

// Synthesis is the structured result of a prompt-synthesis call.
type Synthesis struct {
	OrganisationName string `json:"organisation_name"`
	Prompt           string `json:"vapi_prompt"`
}

// BuildResearchPrompt constructs the instruction sent to the synthesis
// provider. The provider is told to answer with strictly a two-field JSON
// object; ParseSynthesis tolerates fenced or prose-wrapped answers anyway.
func BuildResearchPrompt(targetURL, businessName, research, language string) string {
	var b strings.Builder
	b.WriteString(targetURL)
	b.WriteString("\n\n")

	if language == "nl" {
		b.WriteString("Onderzoek deze website met het doel van het schrijven van een uitgebreide assistent-prompt voor een behulpzame AI-stemagent receptionist stem/chat widget op de website die veelgestelde vragen zou beantwoorden en de potentiële klant zou begeleiden om een afspraak te boeken.")
	} else {
		b.WriteString("Research this website with the goal of writing a comprehensive assistant prompt for a helpful AI voice agent receptionist voice/chat widget on the website that would answer frequently asked questions and guide the potential customer to book an appointment.")
	}

	if businessName != "" {
		b.WriteString(fmt.Sprintf("\n\nBusiness name: %s", businessName))
	}
	if research != "" {
		b.WriteString("\n\nWebsite content:\n")
		b.WriteString(research)
	}

	b.WriteString(`

Return ONLY a JSON object with this structure:
{
  "organisation_name": "the company name",
  "vapi_prompt": "the complete assistant prompt"
}

No other text, no explanation, only the JSON object.`)
	return b.String()
}

// StripFences removes markdown code-fence markers. Providers frequently wrap
// the JSON answer in ```json ... ``` despite instructions.
func StripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// ExtractObject returns the first top-level {...} span in s, honoring string
// literals and escapes so braces inside values don't end the span early.
// Returns "" when no complete object exists.
func ExtractObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// ParseSynthesis decodes raw provider content into a Synthesis. It strips
// fences, extracts the first top-level object, then decodes strictly. A
// missing prompt field yields an empty prompt, which is a valid (degenerate)
// outcome; undecodable content is a synthesis error carrying a bounded
// excerpt of the raw response.
func ParseSynthesis(content string) (Synthesis, error) {
	cleaned := StripFences(content)
	obj := ExtractObject(cleaned)
	if obj == "" {
		return Synthesis{}, apperr.Synthesis("no JSON object in synthesis response", content)
	}

	var out Synthesis
	if err := json.Unmarshal([]byte(obj), &out); err != nil {
		return Synthesis{}, apperr.Synthesis("synthesis response is not valid JSON", content)
	}
	return out, nil
}
