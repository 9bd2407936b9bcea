package generator

import (
	"encoding/json"
	"errors"
	"strings"

	"itemforge/internal/domain"
)

// ParseDraft decodes a model reply into a draft. Code fences and any prose
// around the outermost JSON object are ignored.
func ParseDraft(reply string) (*domain.Draft, error) {
	s := strings.TrimSpace(reply)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimPrefix(s, "json")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	start, end := strings.Index(s, "{"), strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return nil, errors.New("reply contains no JSON object")
	}
	var d domain.Draft
	if err := json.Unmarshal([]byte(s[start:end+1]), &d); err != nil {
		return nil, err
	}
	if isEmpty(d) {
		return nil, errors.New("reply has none of the draft keys")
	}
	return &d, nil
}

func isEmpty(d domain.Draft) bool {
	return d.Name == "" && d.Type == "" && d.Slot == "" && d.Description == "" &&
		d.PrimarySpellEffect == nil && len(d.OtherEffects) == 0 && d.Rarity == "" &&
		d.SourceType == "" && d.Activation == "" && d.Duration == "" && d.PlaytestNote == ""
}
