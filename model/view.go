package model

// QuestView is a quest log joined with its template, as returned to clients.
type QuestView struct {
	Log        *QuestLog      `json:"log"`
	Template   *QuestTemplate `json:"template"`
	IsRotating bool           `json:"is_rotating"`
}
