package engine

// SquareScore is the flat score of a hand holding a 2x2 block of one rank.
const SquareScore = -20

// ScoreRule names the pairing rule that shaped a hand's score.
type ScoreRule uint8

const (
	RuleSum    ScoreRule = iota // plain sum of face-up values
	RuleSquare                  // 2x2 block of one rank
	RuleColumn                  // at least one cancelled column
	RuleRow                     // at least one cancelled row
)

// Breakdown describes how Score arrived at its total.
//   - Values holds each slot's contribution (0 for face-down or cancelled slots).
//   - Cancelled marks slots zeroed by a column or row match.
//   - Square is true when the 2x2 rule fired; Values is then all zero.
type Breakdown struct {
	Total     int
	Values    [HandSize]int
	Cancelled [HandSize]bool
	Square    bool
	Columns   int
	Rows      int
}

// Rule returns the strongest rule that applied.
func (b Breakdown) Rule() ScoreRule {
	switch {
	case b.Square:
		return RuleSquare
	case b.Rows > 0:
		return RuleRow
	case b.Columns > 0:
		return RuleColumn
	}
	return RuleSum
}

// Score returns the Golf score of h. Only face-up slots contribute.
func Score(h Hand) int { return ScoreBreakdown(h).Total }

// ScoreBreakdown scores h and reports which slots were cancelled.
//
// Rules, in order:
//   - any 2x2 block of four face-up cards of one rank scores SquareScore and nothing else counts
//   - a column whose two cards are face up and share a rank contributes 0
//   - a row whose three cards are face up and share a rank contributes 0
//   - every remaining face-up card contributes its Value
//
// The column and row passes both read the dealt grid, so a card can be
// cancelled by either.
func ScoreBreakdown(h Hand) Breakdown {
	var b Breakdown

	for left := 0; left+1 < GridCols; left++ {
		if sameFaceUpRank(h, left, left+1, GridCols+left, GridCols+left+1) {
			b.Square = true
			b.Total = SquareScore
			return b
		}
	}

	for col := 0; col < GridCols; col++ {
		if sameFaceUpRank(h, col, GridCols+col) {
			b.Cancelled[col] = true
			b.Cancelled[GridCols+col] = true
			b.Columns++
		}
	}

	for row := 0; row < GridRows; row++ {
		base := row * GridCols
		if sameFaceUpRank(h, base, base+1, base+2) {
			b.Cancelled[base] = true
			b.Cancelled[base+1] = true
			b.Cancelled[base+2] = true
			b.Rows++
		}
	}

	for i, s := range h {
		if !s.FaceUp || b.Cancelled[i] {
			continue
		}
		b.Values[i] = s.Card.Value()
		b.Total += b.Values[i]
	}
	return b
}

// sameFaceUpRank reports whether every listed slot is face up and all share one rank.
func sameFaceUpRank(h Hand, idx ...int) bool {
	rank := h[idx[0]].Card.Rank()
	for _, i := range idx {
		if !h[i].FaceUp || h[i].Card.Rank() != rank {
			return false
		}
	}
	return true
}
