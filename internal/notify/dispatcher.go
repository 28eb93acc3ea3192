package notify

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
)

// Dispatcher delivers challenge notifications.
type Dispatcher interface {
	SendChallenge(ctx context.Context, c Challenge) error
}

// Renderer produces the human-readable line carried in the payload;
// *msgcat.Catalog satisfies it.
type Renderer interface {
	Render(key string, data any) (string, error)
}

const (
	ModeHTTP = "http"
	ModeWS   = "ws"
	ModeAuto = "auto"
	ModeOff  = "off"
)

// NewDispatcher picks a transport by mode. auto prefers the WebSocket while it
// is connected and falls back to HTTP once per send. A mode whose transport is
// missing degrades to whatever is configured, or to a no-op.
func NewDispatcher(mode string, dryrun bool, c *Client, ws *WebSocket, text Renderer, logger *zap.Logger) Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	var h, w egress
	if c != nil {
		h = &httpEgress{c: c}
	}
	if ws != nil {
		w = &wsEgress{ws: ws}
	}

	var e egress
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case ModeOff:
	case ModeWS:
		e = firstNonNil(w, h)
	case ModeAuto:
		switch {
		case w != nil && h != nil:
			e = &autoEgress{ws: w.(*wsEgress), http: h.(*httpEgress), logger: logger}
		default:
			e = firstNonNil(w, h)
		}
	default:
		e = firstNonNil(h, w)
	}
	return &dispatcher{egress: e, dryrun: dryrun, text: text, logger: logger}
}

// Nop discards every notification.
func Nop() Dispatcher { return &dispatcher{logger: zap.NewNop()} }

type dispatcher struct {
	egress egress
	dryrun bool
	text   Renderer
	logger *zap.Logger
}

func (d *dispatcher) SendChallenge(ctx context.Context, c Challenge) error {
	if strings.TrimSpace(c.RecipientID) == "" || strings.TrimSpace(c.GameID) == "" {
		return errors.New("notify: recipient and game id required")
	}
	env := Envelope{
		Type:        TypeChallenge,
		RecipientID: c.RecipientID,
		Payload: ChallengePayload{
			TriggerName:   c.TriggerName,
			TriggerUserID: c.TriggerUserID,
			GameID:        c.GameID,
			Text:          d.render(c),
		},
	}
	if d.dryrun {
		d.logger.Info("notify_dryrun",
			zap.String("type", env.Type),
			zap.String("recipient_id", env.RecipientID),
			zap.String("game_id", env.Payload.GameID),
			zap.String("text", env.Payload.Text),
		)
		return nil
	}
	if d.egress == nil {
		return nil
	}
	if err := d.egress.send(ctx, env); err != nil {
		return err
	}
	d.logger.Debug("notify_sent", zap.String("via", d.egress.name()), zap.String("game_id", env.Payload.GameID))
	return nil
}

func (d *dispatcher) render(c Challenge) string {
	if d.text == nil {
		return ""
	}
	name := c.TriggerName
	if strings.TrimSpace(name) == "" {
		name = c.TriggerUserID
	}
	s, err := d.text.Render("challenge.received", map[string]any{"Name": name})
	if err != nil {
		d.logger.Warn("notify_render_error", zap.String("game_id", c.GameID), zap.Error(err))
		return ""
	}
	return s
}

type egress interface {
	send(ctx context.Context, env Envelope) error
	name() string
}

func firstNonNil(list ...egress) egress {
	for _, e := range list {
		if e != nil {
			return e
		}
	}
	return nil
}

type httpEgress struct{ c *Client }

func (h *httpEgress) send(ctx context.Context, env Envelope) error { return h.c.Send(ctx, env) }
func (h *httpEgress) name() string                                { return ModeHTTP }

type wsEgress struct{ ws *WebSocket }

func (w *wsEgress) send(ctx context.Context, env Envelope) error { return w.ws.WriteJSON(ctx, env) }
func (w *wsEgress) name() string                                { return ModeWS }

type autoEgress struct {
	ws     *wsEgress
	http   *httpEgress
	logger *zap.Logger
}

func (a *autoEgress) send(ctx context.Context, env Envelope) error {
	if a.ws.ws.Connected() {
		err := a.ws.send(ctx, env)
		if err == nil {
			return nil
		}
		a.logger.Warn("egress_fallback", zap.String("type", env.Type), zap.String("game_id", env.Payload.GameID), zap.Error(err))
	}
	return a.http.send(ctx, env)
}

func (a *autoEgress) name() string { return ModeAuto }
