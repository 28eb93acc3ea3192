// Package notify delivers challenge notifications to the external dispatch
// service over HTTP or a persistent WebSocket.
package notify

// TypeChallenge tags a challenge envelope.
const TypeChallenge = "chess.challenge"

// Challenge is what the game controller hands over after creating a pending
// game: who challenged, and which game the recipient may accept.
type Challenge struct {
	RecipientID   string
	TriggerName   string
	TriggerUserID string
	GameID        string
}

// Envelope is the wire shape accepted by the dispatch service, both as an
// HTTP body and as a WebSocket text frame.
type Envelope struct {
	Type        string           `json:"type"`
	RecipientID string           `json:"recipientId"`
	Payload     ChallengePayload `json:"payload"`
}

type ChallengePayload struct {
	TriggerName   string `json:"triggerName"`
	TriggerUserID string `json:"triggerUserId"`
	GameID        string `json:"gameId"`
	Text          string `json:"text,omitempty"`
}

// Ack is an optional server frame acknowledging an envelope.
type Ack struct {
	Type   string `json:"type"`
	GameID string `json:"gameId,omitempty"`
	Error  string `json:"error,omitempty"`
}

// WebSocketState tracks the egress connection.
type WebSocketState int

const (
	WSStateDisconnected WebSocketState = iota
	WSStateConnecting
	WSStateConnected
	WSStateReconnecting
	WSStateFailed
)

func (s WebSocketState) String() string {
	switch s {
	case WSStateConnecting:
		return "connecting"
	case WSStateConnected:
		return "connected"
	case WSStateReconnecting:
		return "reconnecting"
	case WSStateFailed:
		return "failed"
	default:
		return "disconnected"
	}
}
