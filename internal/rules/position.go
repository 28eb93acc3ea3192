// Package rules adapts github.com/corentings/chess/v2 to the narrow contract the
// game controller needs: legal destinations from a square, move application,
// and terminal-state detection.
package rules

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// StartFEN is the canonical starting position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

var (
	ErrInvalidSquare    = errors.New("invalid square")
	ErrInvalidPromotion = errors.New("invalid promotion piece")
	ErrIllegalMove      = errors.New("illegal move")
	ErrInvalidPosition  = errors.New("invalid position")
)

// Result is the terminal verdict of a position.
type Result string

const (
	ResultNone  Result = ""
	ResultWhite Result = "white"
	ResultBlack Result = "black"
	ResultDraw  Result = "draw"
)

// Applied describes a move accepted by Apply.
type Applied struct {
	SAN string
	UCI string
}

// Position is a disposable, single-owner projection of a game record.
// It is not safe for concurrent use.
type Position struct {
	game *nchess.Game
}

func New() *Position { return &Position{game: nchess.NewGame()} }

// FromFEN builds a position without move history, so repetition draws are
// counted from this point only.
func FromFEN(fen string) (*Position, error) {
	fen = strings.TrimSpace(fen)
	if fen == "" || fen == "startpos" || fen == StartFEN {
		return New(), nil
	}
	opt, err := nchess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPosition, err)
	}
	return &Position{game: nchess.NewGame(opt)}, nil
}

// Replay applies UCI moves from the starting position.
func Replay(uciMoves []string) (*Position, error) {
	game := nchess.NewGame()
	for i, mv := range uciMoves {
		if err := game.PushNotationMove(mv, nchess.UCINotation{}, nil); err != nil {
			return nil, fmt.Errorf("%w: ply %d %q: %v", ErrInvalidPosition, i+1, mv, err)
		}
	}
	return &Position{game: game}, nil
}

// Restore prefers replaying the UCI history (keeps repetition counts) and
// falls back to the stored FEN when the history is missing or disagrees.
func Restore(fen string, uciMoves []string) (*Position, error) {
	if len(uciMoves) > 0 {
		if p, err := Replay(uciMoves); err == nil {
			if strings.TrimSpace(fen) == "" || p.FEN() == strings.TrimSpace(fen) {
				return p, nil
			}
		}
	}
	return FromFEN(fen)
}

func (p *Position) FEN() string { return p.game.FEN() }

func (p *Position) WhiteToMove() bool { return p.game.Position().Turn() == nchess.White }

// Ply returns the number of moves played since the position was built.
func (p *Position) Ply() int { return len(p.game.Moves()) }

// LegalMoves lists destination squares reachable from square, sorted.
// Promotions to several pieces collapse into one destination.
func (p *Position) LegalMoves(square string) ([]string, error) {
	from, err := ParseSquare(square)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	out := []string{}
	for _, mv := range p.game.ValidMoves() {
		if mv.S1() != from {
			continue
		}
		to := mv.S2().String()
		if _, ok := seen[to]; ok {
			continue
		}
		seen[to] = struct{}{}
		out = append(out, to)
	}
	sort.Strings(out)
	return out, nil
}

// Apply plays from→to. An empty promotion promotes to a queen; a promotion
// on a non-promoting move is illegal.
func (p *Position) Apply(from, to, promotion string) (Applied, error) {
	s1, err := ParseSquare(from)
	if err != nil {
		return Applied{}, err
	}
	s2, err := ParseSquare(to)
	if err != nil {
		return Applied{}, err
	}
	choice, err := ParsePromotion(promotion)
	if err != nil {
		return Applied{}, err
	}
	if p.game.Outcome() != nchess.NoOutcome {
		return Applied{}, fmt.Errorf("%w: game already decided", ErrIllegalMove)
	}

	var picked *nchess.Move
	for _, mv := range p.game.ValidMoves() {
		if mv.S1() != s1 || mv.S2() != s2 {
			continue
		}
		promo := mv.Promo()
		if promo == nchess.NoPieceType && choice != nchess.NoPieceType {
			continue
		}
		if promo != nchess.NoPieceType && promo != orQueen(choice) {
			continue
		}
		m := mv
		picked = &m
		break
	}
	if picked == nil {
		return Applied{}, fmt.Errorf("%w: %s%s", ErrIllegalMove, strings.ToLower(from), strings.ToLower(to))
	}

	san := nchess.AlgebraicNotation{}.Encode(p.game.Position(), picked)
	uci := picked.String()
	if err := p.game.Move(picked, nil); err != nil {
		return Applied{}, fmt.Errorf("%w: %v", ErrIllegalMove, err)
	}
	return Applied{SAN: san, UCI: uci}, nil
}

func (p *Position) IsCheckmate() bool { return p.game.Method() == nchess.Checkmate }

func (p *Position) IsStalemate() bool { return p.game.Method() == nchess.Stalemate }

// IsDraw covers stalemate and the automatic draws (insufficient material,
// fivefold repetition, seventy-five move rule).
func (p *Position) IsDraw() bool { return p.game.Outcome() == nchess.Draw }

// IsCheck reports whether the side to move has its king attacked. It reads
// the board, so positions loaded from FEN answer correctly.
func (p *Position) IsCheck() bool {
	pos := p.game.Position()
	return kingAttacked(pos.Board().SquareMap(), pos.Turn())
}

// Result returns the verdict and the method name ("" while in progress).
func (p *Position) Result() (Result, string) {
	switch p.game.Outcome() {
	case nchess.WhiteWon:
		return ResultWhite, methodName(p.game.Method())
	case nchess.BlackWon:
		return ResultBlack, methodName(p.game.Method())
	case nchess.Draw:
		return ResultDraw, methodName(p.game.Method())
	default:
		return ResultNone, ""
	}
}

func methodName(m nchess.Method) string {
	switch m {
	case nchess.Checkmate:
		return "checkmate"
	case nchess.Stalemate:
		return "stalemate"
	case nchess.InsufficientMaterial:
		return "insufficient_material"
	case nchess.FivefoldRepetition:
		return "fivefold_repetition"
	case nchess.SeventyFiveMoveRule:
		return "seventy_five_move_rule"
	case nchess.Resignation:
		return "resignation"
	default:
		return strings.ToLower(m.String())
	}
}

// ParseSquare reads algebraic squares such as "e4".
func ParseSquare(s string) (nchess.Square, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		var zero nchess.Square
		return zero, fmt.Errorf("%w: %q", ErrInvalidSquare, s)
	}
	return nchess.NewSquare(nchess.File(s[0]-'a'), nchess.Rank(s[1]-'1')), nil
}

// ParsePromotion accepts "", piece letters (q, r, b, n) or names.
func ParsePromotion(s string) (nchess.PieceType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return nchess.NoPieceType, nil
	case "q", "queen":
		return nchess.Queen, nil
	case "r", "rook":
		return nchess.Rook, nil
	case "b", "bishop":
		return nchess.Bishop, nil
	case "n", "knight":
		return nchess.Knight, nil
	default:
		return nchess.NoPieceType, fmt.Errorf("%w: %q", ErrInvalidPromotion, s)
	}
}

func orQueen(pt nchess.PieceType) nchess.PieceType {
	if pt == nchess.NoPieceType {
		return nchess.Queen
	}
	return pt
}
