// Package render turns validated items into human-readable cards.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/template"

	"github.com/charmbracelet/lipgloss"

	"itemforge/internal/domain"
	"itemforge/internal/pricing"
)

// Format selects an item rendering.
type Format string

const (
	FormatJSON       Format = "json"
	FormatStandard   Format = "standard"
	FormatTournament Format = "tournament"
)

// ParseFormat maps a flag value onto a Format. Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatStandard, "mic":
		return FormatStandard, nil
	case FormatTournament:
		return FormatTournament, nil
	default:
		return "", fmt.Errorf("unknown format %q", s)
	}
}

// CategoryEmoji decorates tournament card titles by item type.
var CategoryEmoji = map[string]string{
	"Wondrous Item": "✨",
	"Weapon":        "⚔️",
	"Armor":         "🛡️",
	"Ring":          "💍",
	"Rod":           "🪄",
	"Staff":         "🌿",
	"Scroll":        "📜",
	"Potion":        "🧪",
	"Wand":          "🪄",
}

const standardCard = `🧿 **{{ .name }}**  
**Slot:** {{ .slot }}  
**Aura:** {{ .aura }}  
**CL:** {{ .CL }}th  
**Prezzo:** {{ gp .market_price_gp }} gp  
**Descrizione:**  
{{ .description }}

**Costruzione:**  
Craft Wondrous Item, *{{ .primary_spell_effect }}*; **Costo:** {{ gp .crafting_cost_gp }} gp
`

const tournamentCard = `### {{ with .category_emoji }}{{ . }} {{ end }}{{ .name }}
📦 {{ .slot }} • LI {{ .CL }}° • Prezzo {{ gp .market_price_gp }} gp • Peso — lb • Rarità: {{ .rarity }}
**Aura/Scuola:** {{ .aura_it }}
**Descrizione:** {{ .description }}
**Uso/Attivazione:** {{ .activation }} • **Durata:** {{ .duration }}
**Effetto (1 riga):** {{ first .other_effects }}
**Dettaglio:**
{{ range .other_effects }}- {{ . }}
{{ end }}**Costruzione:** Craft Wondrous Item, *{{ .primary_spell_effect }}*; Costo: {{ gp .crafting_cost_gp }} gp
**Nota Playtest:** {{ .playtest_note }}
`

var funcs = template.FuncMap{
	"gp": func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) },
	"first": func(list []string) string {
		if len(list) == 0 {
			return ""
		}
		return list[0]
	},
}

var (
	standardTmpl   = template.Must(template.New("standard").Funcs(funcs).Option("missingkey=error").Parse(standardCard))
	tournamentTmpl = template.Must(template.New("tournament").Funcs(funcs).Option("missingkey=error").Parse(tournamentCard))
)

// Render writes item to w in the requested format.
func Render(w io.Writer, item domain.ValidatedItem, f Format) error {
	switch f {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(item)
	case FormatStandard:
		return standardTmpl.Execute(w, item.Fields())
	case FormatTournament:
		fields := item.Fields()
		fields["aura_it"] = pricing.TranslateAura(fields["aura"].(string))
		fields["category_emoji"] = CategoryEmoji[item.Type]
		return tournamentTmpl.Execute(w, fields)
	default:
		return fmt.Errorf("unknown format %q", f)
	}
}

// String renders item to a string.
func String(item domain.ValidatedItem, f Format) (string, error) {
	var sb strings.Builder
	if err := Render(&sb, item, f); err != nil {
		return "", err
	}
	return sb.String(), nil
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFD700"))
	validStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#00C853"))
	invalidStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5252"))
)

// Header is a one-line terminal summary: title, price and checklist verdict.
func Header(item domain.ValidatedItem) string {
	f := item.Fields()
	title := strings.TrimSpace(CategoryEmoji[item.Type] + " " + f["name"].(string))
	verdict := validStyle.Render("valid")
	if !item.IsValid {
		verdict = invalidStyle.Render(fmt.Sprintf("%d issue(s)", len(item.ValidationErrors)))
	}
	return fmt.Sprintf("%s  %s gp  %s", titleStyle.Render(title), strconv.FormatFloat(f["market_price_gp"].(float64), 'f', -1, 64), verdict)
}
