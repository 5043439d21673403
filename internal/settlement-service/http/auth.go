package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"

	"github.com/radieske/sports-bet-settlement/internal/settlement-service/dto"
	"github.com/radieske/sports-bet-settlement/internal/settlement-service/ws"
)

const balanceAudience = "balance-ws"

// DefaultTokenTTL é a validade do token de saldo quando Options.TokenTTL não é informado
const DefaultTokenTTL = 15 * time.Minute

// IssueBalanceToken assina um token HS256 que só dá acesso ao saldo de userID
func IssueBalanceToken(secret, userID string, ttl time.Duration, now time.Time) (string, time.Time, error) {
	if secret == "" {
		return "", time.Time{}, errors.New("empty signing secret")
	}
	exp := now.Add(ttl)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		Audience:  jwt.ClaimStrings{balanceAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	signed, err := tok.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign balance token: %w", err)
	}
	return signed, exp, nil
}

// parseBalanceToken valida assinatura, expiração e audiência e devolve o usuário
func parseBalanceToken(secret, raw string) (string, error) {
	if secret == "" {
		return "", errors.New("empty signing secret")
	}
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	if !claims.VerifyAudience(balanceAudience, true) {
		return "", errors.New("wrong audience")
	}
	if claims.Subject == "" {
		return "", errors.New("missing subject")
	}
	return claims.Subject, nil
}

// requireBalanceToken autentica o upgrade do WebSocket.
// Navegadores não mandam Authorization no upgrade, então ?token= também vale.
func (s *Server) requireBalanceToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			raw = r.URL.Query().Get("token")
		}
		userID, err := parseBalanceToken(s.opts.Secret, raw)
		if raw == "" || err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r.WithContext(ws.WithUser(r.Context(), userID)))
	})
}

// issueToken entrega ao backend um token de saldo para repassar ao navegador do usuário
func (s *Server) issueToken(w http.ResponseWriter, r *http.Request) {
	ttl := s.opts.TokenTTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	tok, exp, err := IssueBalanceToken(s.opts.Secret, chi.URLParam(r, "userID"), ttl, time.Now())
	if err != nil {
		s.log.Error("token issue failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, dto.TokenResponse{Token: tok, ExpiresAt: exp})
}
