package jira

// ADFDocument is an Atlassian Document Format document. Jira Cloud's v3
// create endpoint requires descriptions in this envelope rather than
// plain text.
type ADFDocument struct {
	Type    string    `json:"type"`
	Version int       `json:"version"`
	Content []ADFNode `json:"content"`
}

// ADFNode is a node in an ADF document.
type ADFNode struct {
	Type    string    `json:"type"`
	Text    string    `json:"text,omitempty"`
	Content []ADFNode `json:"content,omitempty"`
}

// TextDocument wraps plain text as a single-paragraph ADF document.
func TextDocument(text string) ADFDocument {
	return ADFDocument{
		Type:    "doc",
		Version: 1,
		Content: []ADFNode{
			{
				Type: "paragraph",
				Content: []ADFNode{
					{Type: "text", Text: text},
				},
			},
		},
	}
}
