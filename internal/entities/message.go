package entities

// Message is an inbound or outbound chatbot message
type Message struct {
	ID       string
	From     string // Customer phone number
	To       string
	Content  string
	Platform string // e.g., "whatsapp", "web"
	Name     string // Push name when the transport provides one
}

type Response struct {
	Content string `json:"content"`
}

// Message directions stored with conversation embeddings
const (
	MessageInbound  = "inbound"
	MessageOutbound = "outbound"
)
