package extract

import (
	"fmt"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
)

// SystemPrompt is sent with every completion request.
const SystemPrompt = "You are a helpful assistant that extracts structured data."

const promptTemplate = `I have the following %s block for a product card:
%s

Extract:
- ID
- Title
- Price
- Image (url)
- Description

Return only the JSON object.`

// Format selects how a fragment is embedded in the prompt.
type Format string

const (
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
)

// Prompter builds the per-card user prompt.
type Prompter struct {
	format Format
	trim   bool
	conv   *converter.Converter
}

// NewPrompter returns a Prompter for format. Unknown formats embed HTML.
// With trim set, cards pass through TrimCard first.
func NewPrompter(format Format, trim bool) *Prompter {
	p := &Prompter{format: format, trim: trim}
	if format == FormatMarkdown {
		p.conv = converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
			),
		)
	}
	return p
}

// Build embeds fragment in the extraction instruction.
func (p *Prompter) Build(fragment string) (string, error) {
	if p.trim {
		fragment = TrimCard(fragment)
	}
	if p.conv == nil {
		return fmt.Sprintf(promptTemplate, "HTML", fragment), nil
	}
	md, err := p.conv.ConvertString(fragment)
	if err != nil {
		return "", fmt.Errorf("convert card to markdown: %w", err)
	}
	return fmt.Sprintf(promptTemplate, "Markdown", md), nil
}
