package chessdto

type ChallengeRequest struct {
	OpponentID string `json:"opponentId"`
}

type MoveRequest struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
}

type LegalMovesResponse struct {
	From string   `json:"from"`
	To   []string `json:"to"`
}
