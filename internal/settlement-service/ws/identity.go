package ws

import "context"

type userKey struct{}

// WithUser marca a requisição com o usuário autenticado para o upgrade
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// UserFrom devolve o usuário autenticado, se houver
func UserFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userKey{}).(string)
	return id, ok && id != ""
}
