package lex

// OptionsPerPage is the Lex limit on buttons per generic attachment. Options
// beyond it spill onto further pages.
const OptionsPerPage = 5

// ResponseCard renders selectable options in clients that support it.
type ResponseCard struct {
	Version            int          `json:"version"`
	ContentType        string       `json:"contentType"`
	GenericAttachments []Attachment `json:"genericAttachments"`
}

// Attachment is one page of a response card.
type Attachment struct {
	Title    string   `json:"title"`
	SubTitle string   `json:"subTitle,omitempty"`
	Buttons  []Button `json:"buttons"`
}

// Button is a single selectable option. Selecting it sends Value as the
// user's next utterance.
type Button struct {
	Text  string `json:"text"`
	Value string `json:"value"`
}

// NewResponseCard builds a card from options, chunked into pages of
// OptionsPerPage buttons each.
func NewResponseCard(title, subtitle string, options []string) *ResponseCard {
	if title == "" {
		title = " "
	}

	var pages []Attachment
	for start := 0; start < len(options); start += OptionsPerPage {
		end := start + OptionsPerPage
		if end > len(options) {
			end = len(options)
		}
		page := Attachment{Title: title, SubTitle: subtitle}
		for _, opt := range options[start:end] {
			page.Buttons = append(page.Buttons, Button{Text: opt, Value: opt})
		}
		pages = append(pages, page)
	}

	return &ResponseCard{
		Version:            1,
		ContentType:        "application/vnd.amazonaws.card.generic",
		GenericAttachments: pages,
	}
}

// Pages reports how many pages the card holds.
func (c *ResponseCard) Pages() int {
	if c == nil {
		return 0
	}
	return len(c.GenericAttachments)
}
