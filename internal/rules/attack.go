package rules

import nchess "github.com/corentings/chess/v2"

// kingAttacked reports whether any piece of the other colour attacks the
// king of side. A board without that king is never in check.
func kingAttacked(board map[nchess.Square]nchess.Piece, side nchess.Color) bool {
	king, found := nchess.NoSquare, false
	for sq, pc := range board {
		if pc.Type() == nchess.King && pc.Color() == side {
			king, found = sq, true
			break
		}
	}
	if !found {
		return false
	}
	for sq, pc := range board {
		if pc.Color() != side && attacks(board, sq, pc, king) {
			return true
		}
	}
	return false
}

func attacks(board map[nchess.Square]nchess.Piece, from nchess.Square, pc nchess.Piece, target nchess.Square) bool {
	df := int(target.File()) - int(from.File())
	dr := int(target.Rank()) - int(from.Rank())
	adf, adr := abs(df), abs(dr)

	switch pc.Type() {
	case nchess.Pawn:
		forward := 1
		if pc.Color() == nchess.Black {
			forward = -1
		}
		return dr == forward && adf == 1
	case nchess.Knight:
		return (adf == 1 && adr == 2) || (adf == 2 && adr == 1)
	case nchess.King:
		return max(adf, adr) == 1
	case nchess.Bishop:
		return adf == adr && adf > 0 && clearPath(board, from, df, dr)
	case nchess.Rook:
		return (df == 0) != (dr == 0) && clearPath(board, from, df, dr)
	case nchess.Queen:
		line := (adf == adr && adf > 0) || ((df == 0) != (dr == 0))
		return line && clearPath(board, from, df, dr)
	default:
		return false
	}
}

// clearPath checks the squares strictly between from and from+(df,dr).
func clearPath(board map[nchess.Square]nchess.Piece, from nchess.Square, df, dr int) bool {
	sf, sr := sign(df), sign(dr)
	steps := max(abs(df), abs(dr))
	f, r := int(from.File()), int(from.Rank())
	for i := 1; i < steps; i++ {
		f, r = f+sf, r+sr
		if _, taken := board[nchess.NewSquare(nchess.File(f), nchess.Rank(r))]; taken {
			return false
		}
	}
	return true
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func sign(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	default:
		return 0
	}
}
