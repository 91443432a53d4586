package models

// GenerateResponse is one upstream result. For the atomic call it holds the
// complete model turn; for the streaming call each response is one fragment
// in emission order.
type GenerateResponse struct {
	Parts []Part `json:"parts"`
}

// Text concatenates the response's text parts.
func (r GenerateResponse) Text() string {
	return Message{Parts: r.Parts}.Text()
}
