package chessdto

// PlayerProfile is the display data shown next to a game.
type PlayerProfile struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
}
