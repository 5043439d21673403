package httpapi

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/radieske/sports-bet-settlement/internal/settlement-service/dto"
	"github.com/radieske/sports-bet-settlement/internal/settlement-service/repo"
	"github.com/radieske/sports-bet-settlement/internal/settlement-service/settler"
	"github.com/radieske/sports-bet-settlement/pkg/deadheat"
)

// Settler é o orquestrador de liquidação usado pelo webhook
type Settler interface {
	Settle(ctx context.Context, req settler.Request) (settler.Result, error)
}

// LedgerReader lê o histórico de lançamentos do usuário
type LedgerReader interface {
	ListLedger(ctx context.Context, userID string, limit int) ([]repo.LedgerEntry, error)
}

type Options struct {
	Secret      string // bearer token; vazio rejeita todas as chamadas autenticadas
	RateLimit   float64
	RateBurst   int
	CORSOrigins []string
	TokenTTL    time.Duration    // validade do token de /ws/balance
	WS          http.HandlerFunc // /ws/balance (opcional)
}

// Server expõe o webhook de liquidação, a leitura do ledger e o WebSocket de saldo
type Server struct {
	log     *zap.Logger
	settler Settler
	ledger  LedgerReader
	opts    Options
	limiter *rate.Limiter
}

// NewServer instancia o servidor HTTP de liquidação
func NewServer(log *zap.Logger, s Settler, ledger LedgerReader, opts Options) *Server {
	srv := &Server{log: log, settler: s, ledger: ledger, opts: opts}
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst <= 0 {
			burst = 1
		}
		srv.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return srv
}

// Router retorna o roteador chi com middlewares e rotas
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Group(func(r chi.Router) {
		r.Use(chimiddleware.Timeout(15 * time.Second))
		r.Use(s.requireBearer)

		r.With(s.throttle).Post("/v1/settlements", s.settle) // webhook do provedor de resultados
		r.Get("/v1/users/{userID}/ledger", s.listLedger)     // ?limit=N
		r.Post("/v1/users/{userID}/ws-token", s.issueToken)
	})

	if s.opts.WS != nil {
		r.With(s.requireBalanceToken).Get("/ws/balance", s.opts.WS)
	}
	return r
}

// requireBearer compara o token com o segredo em tempo constante
func (s *Server) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || s.opts.Secret == "" || subtle.ConstantTimeCompare([]byte(token), []byte(s.opts.Secret)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) throttle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// settle aplica o resultado de uma aposta
func (s *Server) settle(w http.ResponseWriter, r *http.Request) {
	var req dto.SettleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.BetID == "" || req.Result == "" {
		writeError(w, http.StatusBadRequest, "bet_id and result are required")
		return
	}

	res, err := s.settler.Settle(r.Context(), settler.Request{
		BetID:              req.BetID,
		Result:             req.Result,
		Winnings:           req.Winnings,
		DeadHeatPositions:  req.DeadHeatPositions,
		Sport:              req.Sport,
		Rule4WithdrawnOdds: req.Rule4WithdrawnOdds,
	})
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			s.log.Error("settlement failed", zap.String("bet_id", req.BetID), zap.Error(err))
			writeError(w, status, "internal error")
			return
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.SettleResponse{
		Success:           true,
		BetID:             res.BetID,
		Result:            res.Result,
		Winnings:          res.Winnings.InexactFloat64(),
		OriginalWinnings:  res.OriginalWinnings.InexactFloat64(),
		DeadHeatApplied:   res.DeadHeatApplied,
		DeadHeatPositions: res.DeadHeatPositions,
		Rule4Applied:      res.Rule4Applied,
		SettledAt:         res.SettledAt,
	})
}

// listLedger retorna os lançamentos do usuário, mais recentes primeiro
func (s *Server) listLedger(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := s.ledger.ListLedger(r.Context(), userID, limit)
	if err != nil {
		s.log.Error("ledger read failed", zap.String("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "ledger read failed")
		return
	}
	if entries == nil {
		entries = []repo.LedgerEntry{}
	}
	writeJSON(w, http.StatusOK, dto.LedgerResponse{UserID: userID, Entries: entries})
}

// statusFor traduz erros do domínio em status HTTP
func statusFor(err error) int {
	var verr *deadheat.ValidationError
	switch {
	case errors.As(err, &verr), errors.Is(err, settler.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, settler.ErrBetNotFound):
		return http.StatusNotFound
	case errors.Is(err, settler.ErrAlreadySettled):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON serializa a resposta em JSON e define o status HTTP
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, dto.ErrorResponse{Error: msg})
}
