package models

import "strings"

// Role identifies which side of the conversation produced a message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// InlineData carries raw media bytes, base64 encoded, with their mime type.
type InlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// FileData references media by URL instead of inline bytes. GoogleURI is
// filled in once the file has been uploaded to the File API.
type FileData struct {
	MimeType  string  `json:"mimeType"`
	FileURL   string  `json:"fileUrl,omitempty"`
	GoogleURI *string `json:"googleUri,omitempty"`
}

// Part is one element of a message's content: text, or one image reference.
type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inline_data,omitempty"`
	FileData   *FileData   `json:"file_data,omitempty"`
}

// IsEmpty reports whether the part carries no content at all.
func (p Part) IsEmpty() bool {
	return p.Text == "" && p.InlineData == nil && p.FileData == nil
}

// Message is one stored conversation turn.
type Message struct {
	Role  Role   `json:"role"`
	Parts []Part `json:"parts"`
	// Incomplete marks a model turn whose stream was abandoned or failed
	// partway; Parts hold whatever fragments were received.
	Incomplete bool `json:"incomplete,omitempty"`
}

// Text concatenates the text parts of the message in order.
func (m Message) Text() string {
	var sb strings.Builder
	for _, p := range m.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String()
}

// UserInput is what a caller supplies for one turn: prompt text and
// optionally one image. Either field may be empty, but not both.
type UserInput struct {
	Text  string      `json:"text"`
	Image *InlineData `json:"image,omitempty"`
}

// IsEmpty reports whether the input has neither text nor an image.
func (in UserInput) IsEmpty() bool {
	return strings.TrimSpace(in.Text) == "" && in.Image == nil
}

// AsParts converts the input into message parts, image first to match the
// multimodal prompt order the API expects.
func (in UserInput) AsParts() []Part {
	parts := []Part{}
	if in.Image != nil {
		parts = append(parts, Part{InlineData: in.Image})
	}
	if in.Text != "" {
		parts = append(parts, Part{Text: in.Text})
	}
	return parts
}

// UserMessage builds the stored user turn for this input.
func (in UserInput) UserMessage() Message {
	return Message{Role: RoleUser, Parts: in.AsParts()}
}
