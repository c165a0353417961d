package dto

// FAQChatRequest payload.
type FAQChatRequest struct {
	Message string `json:"message" validate:"required,max=2000"`
}

// FAQChatResponse is the responder's reply.
type FAQChatResponse struct {
	Response string `json:"response"`
	Matched  bool   `json:"matched"`
}
