// Package httpapi exposes the game controller and the challenge directory
// over HTTP, with WebSocket streams for live updates. Callers are identified
// by the X-User-Id header set by the fronting gateway.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/park285/cheese-teamchess/internal/directory"
	"github.com/park285/cheese-teamchess/internal/pvpchess"
	"github.com/park285/cheese-teamchess/pkg/chessdto"
	"go.uber.org/zap"
)

const (
	HeaderUserID = "X-User-Id"

	codeUnauthenticated = "UNAUTHENTICATED"
	codeBadRequest      = "BAD_REQUEST"
	codeNotConfigured   = "NOT_CONFIGURED"

	ctxUserID    = "userID"
	maxBodyBytes = 1 << 16
)

// Games is the controller surface used by the handlers.
type Games interface {
	CreateChallenge(ctx context.Context, challengerID, opponentID string) (*pvpchess.Game, error)
	AcceptChallenge(ctx context.Context, gameID, userID string) (*pvpchess.Game, error)
	DeclineChallenge(ctx context.Context, gameID, userID string) error
	SubmitMove(ctx context.Context, req pvpchess.MoveRequest) (*pvpchess.Game, error)
	Resign(ctx context.Context, gameID, userID string) (*pvpchess.Game, error)
	Game(ctx context.Context, gameID string) (*pvpchess.Game, error)
	LegalMoves(ctx context.Context, gameID, square string) ([]string, error)
	WatchGame(ctx context.Context, gameID string) (*pvpchess.Subscription, error)
	Ping(ctx context.Context) error
}

type Directory interface {
	Get(ctx context.Context, userID string) (*directory.Directory, error)
	Live(ctx context.Context, userID string) (*directory.Live, error)
}

// History is optional; nil disables /v1/history.
type History interface {
	RecentGames(ctx context.Context, userID string, limit int) ([]pvpchess.ArchivedGame, error)
}

type Server struct {
	games   Games
	dir     Directory
	history History
	logger  *zap.Logger
	origins []string
	engine  *gin.Engine
}

type Option func(*Server)

func WithHistory(h History) Option { return func(s *Server) { s.history = h } }

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithOriginPatterns allows cross-origin WebSocket upgrades from hosts
// matching the patterns.
func WithOriginPatterns(p ...string) Option { return func(s *Server) { s.origins = p } }

func New(games Games, dir Directory, opts ...Option) *Server {
	s := &Server{games: games, dir: dir, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	s.engine = gin.New()
	s.engine.Use(s.logRequests(), s.recoverPanics())
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.engine.GET("/healthz", s.handleHealth)

	v1 := s.engine.Group("/v1", s.requireUser())
	v1.POST("/challenges", s.handleCreateChallenge)
	v1.POST("/games/:id/accept", s.handleAccept)
	v1.POST("/games/:id/decline", s.handleDecline)
	v1.POST("/games/:id/moves", s.handleMove)
	v1.POST("/games/:id/resign", s.handleResign)
	v1.GET("/games/:id", s.handleGetGame)
	v1.GET("/games/:id/legal-moves", s.handleLegalMoves)
	v1.GET("/games/:id/stream", s.handleGameStream)
	v1.GET("/directory", s.handleDirectory)
	v1.GET("/directory/stream", s.handleDirectoryStream)
	v1.GET("/history", s.handleHistory)
}

// Handler exposes the gin engine to an http.Server.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := s.games.Ping(ctx); err != nil {
		s.pushError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleCreateChallenge(c *gin.Context) {
	var req chessdto.ChallengeRequest
	if !bindJSON(c, &req) {
		return
	}
	userID := c.GetString(ctxUserID)
	g, err := s.games.CreateChallenge(c.Request.Context(), userID, req.OpponentID)
	if err != nil {
		s.pushError(c, err)
		return
	}
	c.JSON(http.StatusCreated, pvpchess.ToDTO(g, userID))
}

func (s *Server) handleAccept(c *gin.Context) {
	userID := c.GetString(ctxUserID)
	g, err := s.games.AcceptChallenge(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		s.pushError(c, err)
		return
	}
	c.JSON(http.StatusOK, pvpchess.ToDTO(g, userID))
}

func (s *Server) handleDecline(c *gin.Context) {
	if err := s.games.DeclineChallenge(c.Request.Context(), c.Param("id"), c.GetString(ctxUserID)); err != nil {
		s.pushError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleMove(c *gin.Context) {
	var req chessdto.MoveRequest
	if !bindJSON(c, &req) {
		return
	}
	userID := c.GetString(ctxUserID)
	g, err := s.games.SubmitMove(c.Request.Context(), pvpchess.MoveRequest{
		GameID:    c.Param("id"),
		UserID:    userID,
		From:      req.From,
		To:        req.To,
		Promotion: req.Promotion,
	})
	if err != nil {
		s.pushError(c, err)
		return
	}
	c.JSON(http.StatusOK, pvpchess.ToDTO(g, userID))
}

func (s *Server) handleResign(c *gin.Context) {
	userID := c.GetString(ctxUserID)
	g, err := s.games.Resign(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		s.pushError(c, err)
		return
	}
	c.JSON(http.StatusOK, pvpchess.ToDTO(g, userID))
}

// participantGame loads the game and rejects outsiders.
func (s *Server) participantGame(ctx context.Context, gameID, userID string) (*pvpchess.Game, error) {
	g, err := s.games.Game(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if !g.IsParticipant(userID) {
		return nil, pvpchess.ErrNotParticipant
	}
	return g, nil
}

func (s *Server) handleGetGame(c *gin.Context) {
	userID := c.GetString(ctxUserID)
	g, err := s.participantGame(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		s.pushError(c, err)
		return
	}
	c.JSON(http.StatusOK, pvpchess.ToDTO(g, userID))
}

func (s *Server) handleLegalMoves(c *gin.Context) {
	id := c.Param("id")
	from := strings.ToLower(strings.TrimSpace(c.Query("from")))
	if _, err := s.participantGame(c.Request.Context(), id, c.GetString(ctxUserID)); err != nil {
		s.pushError(c, err)
		return
	}
	dests, err := s.games.LegalMoves(c.Request.Context(), id, from)
	if err != nil {
		s.pushError(c, err)
		return
	}
	c.JSON(http.StatusOK, chessdto.LegalMovesResponse{From: from, To: dests})
}

func (s *Server) handleDirectory(c *gin.Context) {
	d, err := s.dir.Get(c.Request.Context(), c.GetString(ctxUserID))
	if err != nil {
		s.pushError(c, err)
		return
	}
	c.JSON(http.StatusOK, d.DTO())
}

func (s *Server) handleHistory(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusNotFound, chessdto.DomainError{Code: codeNotConfigured, Message: "game archive is not configured"})
		return
	}
	limit := 20
	if v := strings.TrimSpace(c.Query("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, chessdto.DomainError{Code: codeBadRequest, Message: "limit must be a positive integer"})
			return
		}
		limit = n
	}
	list, err := s.history.RecentGames(c.Request.Context(), c.GetString(ctxUserID), limit)
	if err != nil {
		s.pushError(c, err)
		return
	}
	c.JSON(http.StatusOK, chessdto.HistoryResponse{Games: pvpchess.ArchivedDTO(list)})
}

func bindJSON(c *gin.Context, v any) bool {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	if err := c.ShouldBindJSON(v); err != nil {
		c.JSON(http.StatusBadRequest, chessdto.DomainError{Code: codeBadRequest, Message: "invalid JSON body"})
		return false
	}
	return true
}

// statusFor maps controller error codes to HTTP statuses.
func statusFor(code string) int {
	switch code {
	case pvpchess.CodeInvalidChallenge:
		return http.StatusBadRequest
	case pvpchess.CodeNotParticipant:
		return http.StatusForbidden
	case pvpchess.CodeGameNotFound:
		return http.StatusNotFound
	case pvpchess.CodeInvalidState, pvpchess.CodeNotYourTurn:
		return http.StatusConflict
	case pvpchess.CodeIllegalMove:
		return http.StatusUnprocessableEntity
	case pvpchess.CodeStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func toDomainError(err error) chessdto.DomainError {
	code := pvpchess.Code(err)
	if code == pvpchess.CodeInternal {
		return chessdto.DomainError{Code: code, Message: "internal error"}
	}
	return chessdto.DomainError{Code: code, Message: err.Error(), Retryable: pvpchess.Retryable(err)}
}

func (s *Server) pushError(c *gin.Context, err error) {
	if errors.Is(err, context.Canceled) {
		c.Abort()
		return
	}
	de := toDomainError(err)
	status := statusFor(de.Code)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		s.logger.Error("http_request_error", zap.String("path", c.Request.URL.Path), zap.String("code", de.Code), zap.Error(err))
	}
	c.JSON(status, de)
}
