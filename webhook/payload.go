package webhook

import "github.com/use-agent/transwatch/models"

// Embed colours.
const (
	ColorWarning  = 0xFF9900
	ColorComplete = 0x00FF00
)

const footerText = "Bluesky Crowdin Translation Monitor"

// Payload is the JSON body of a Discord webhook execution.
type Payload struct {
	Content string  `json:"content"`
	Embeds  []Embed `json:"embeds"`
}

// Embed is a Discord rich embed. A nil Timestamp is sent as null and
// Discord stamps the message on receipt.
type Embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Color       int          `json:"color"`
	Fields      []EmbedField `json:"fields"`
	Footer      EmbedFooter  `json:"footer"`
	Timestamp   *string      `json:"timestamp"`
}

// EmbedField is one name/value row of an embed.
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// EmbedFooter is the small text under an embed.
type EmbedFooter struct {
	Text string `json:"text"`
}

type variant struct {
	title       string
	description string
	color       int
	emoji       string
}

var (
	warning = variant{
		title:       "⚠️ Translation Needed",
		description: "There are untranslated or unapproved strings that need attention.",
		color:       ColorWarning,
		emoji:       "🔧",
	}
	complete = variant{
		title:       "🎉 Translation Complete!",
		description: "All strings are translated and approved.",
		color:       ColorComplete,
		emoji:       "✅",
	}
)

// BuildPayload renders the alert for result. The variant follows
// IsThereAJob: warning when work remains, complete otherwise.
func BuildPayload(result models.CheckResult) Payload {
	v := complete
	if result.IsThereAJob {
		v = warning
	}

	return Payload{
		Content: v.emoji + " **Bluesky Turkish Translation Update**",
		Embeds: []Embed{{
			Title:       v.title,
			Description: v.description,
			Color:       v.color,
			Fields: []EmbedField{
				{Name: "📈 Translated", Value: result.TranslatedPercent, Inline: true},
				{Name: "✅ Approved", Value: result.ApprovedPercent, Inline: true},
				{Name: "📝 Words to Translate", Value: result.WordsToTranslate, Inline: false},
			},
			Footer: EmbedFooter{Text: footerText},
		}},
	}
}
