package models

import "testing"

func TestUserInputIsEmpty(t *testing.T) {
	cases := []struct {
		name  string
		input UserInput
		empty bool
	}{
		{"nothing", UserInput{}, true},
		{"whitespace only", UserInput{Text: "  \n\t "}, true},
		{"text", UserInput{Text: "hello"}, false},
		{"image only", UserInput{Image: &InlineData{MimeType: "image/png", Data: "aGk="}}, false},
		{"text and image", UserInput{Text: "caption", Image: &InlineData{MimeType: "image/png", Data: "aGk="}}, false},
	}
	for _, c := range cases {
		if got := c.input.IsEmpty(); got != c.empty {
			t.Errorf("%s: IsEmpty() = %v, expected %v", c.name, got, c.empty)
		}
	}
}

func TestUserInputAsParts_ImageFirst(t *testing.T) {
	input := UserInput{
		Text:  "what is this?",
		Image: &InlineData{MimeType: "image/jpeg", Data: "aGk="},
	}

	parts := input.AsParts()
	if len(parts) != 2 {
		t.Fatalf("Expected 2 parts, got %d", len(parts))
	}
	if parts[0].InlineData == nil {
		t.Errorf("Expected the image part first, got %+v", parts[0])
	}
	if parts[1].Text != "what is this?" {
		t.Errorf("Expected the text part second, got %+v", parts[1])
	}
}

func TestMessageText_ConcatenatesTextParts(t *testing.T) {
	msg := Message{
		Role: RoleModel,
		Parts: []Part{
			{Text: "Hello, "},
			{InlineData: &InlineData{MimeType: "image/png", Data: "aGk="}},
			{Text: "world"},
		},
	}
	if msg.Text() != "Hello, world" {
		t.Errorf("Expected 'Hello, world', got %q", msg.Text())
	}
}

func TestPartIsEmpty(t *testing.T) {
	if !(Part{}).IsEmpty() {
		t.Errorf("Zero part should be empty")
	}
	if (Part{Text: "x"}).IsEmpty() {
		t.Errorf("Text part should not be empty")
	}
	if (Part{FileData: &FileData{FileURL: "https://example.com/a.png"}}).IsEmpty() {
		t.Errorf("File part should not be empty")
	}
}
