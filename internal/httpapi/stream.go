package httpapi

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/park285/cheese-teamchess/internal/pvpchess"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const writeTimeout = 5 * time.Second

func (s *Server) accept(c *gin.Context) (*websocket.Conn, error) {
	return websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		OriginPatterns:  s.origins,
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
}

// handleGameStream upgrades and forwards every snapshot of one game. The
// stream ends after a removal.
func (s *Server) handleGameStream(c *gin.Context) {
	id, userID := c.Param("id"), c.GetString(ctxUserID)
	if _, err := s.participantGame(c.Request.Context(), id, userID); err != nil {
		s.pushError(c, err)
		return
	}
	conn, err := s.accept(c)
	if err != nil {
		s.logger.Warn("ws_accept_error", zap.String("path", c.Request.URL.Path), zap.Error(err))
		return
	}
	defer conn.CloseNow()

	// Client frames are ignored; CloseRead cancels ctx when the peer leaves.
	ctx := conn.CloseRead(c.Request.Context())
	sub, err := s.games.WatchGame(ctx, id)
	if err != nil {
		_ = conn.Close(websocket.StatusInternalError, pvpchess.Code(err))
		return
	}
	defer sub.Close()

	for snap := range sub.Updates() {
		if err := writeFrame(ctx, conn, pvpchess.EventDTO(snap, userID)); err != nil {
			s.logStreamEnd(c, userID, err)
			return
		}
		if snap.Removed() {
			_ = conn.Close(websocket.StatusNormalClosure, "game removed")
			return
		}
	}
	_ = conn.Close(websocket.StatusGoingAway, "subscription ended")
}

// handleDirectoryStream forwards the caller's directory after every change.
func (s *Server) handleDirectoryStream(c *gin.Context) {
	userID := c.GetString(ctxUserID)
	conn, err := s.accept(c)
	if err != nil {
		s.logger.Warn("ws_accept_error", zap.String("path", c.Request.URL.Path), zap.Error(err))
		return
	}
	defer conn.CloseNow()

	ctx := conn.CloseRead(c.Request.Context())
	live, err := s.dir.Live(ctx, userID)
	if err != nil {
		_ = conn.Close(websocket.StatusInternalError, pvpchess.Code(err))
		return
	}
	defer live.Close()

	for d := range live.Views() {
		if err := writeFrame(ctx, conn, d.DTO()); err != nil {
			s.logStreamEnd(c, userID, err)
			return
		}
	}
	_ = conn.Close(websocket.StatusGoingAway, "subscription ended")
}

func writeFrame(ctx context.Context, conn *websocket.Conn, v any) error {
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(wctx, conn, v)
}

func (s *Server) logStreamEnd(c *gin.Context, userID string, err error) {
	if errors.Is(err, context.Canceled) || websocket.CloseStatus(err) != -1 {
		return
	}
	s.logger.Warn("ws_stream_write_error", zap.String("path", c.Request.URL.Path), zap.String("user_id", userID), zap.Error(err))
}
