package ws

// ClientMsg é a mensagem enviada pelo cliente WebSocket
type ClientMsg struct {
	Type   string `json:"type"`   // subscribe | unsubscribe | ping
	UserID string `json:"userId"` // opcional; se informado, deve ser o usuário autenticado
}
