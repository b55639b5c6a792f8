package game

import "fmt"

// Contender is one eligible picker entering battle resolution, in room
// membership order.
type Contender struct {
	ID     int64
	Name   string
	Choice Choice
}

// Outcome is the result of resolving one round of battles.
type Outcome struct {
	// Points holds per-player point deltas. Every non-tie comparison credits
	// exactly one player with exactly one point.
	Points map[int64]int
	// Eliminated lists losers in the order they were first queued. A player
	// queued more than once (the two-contender cycle) appears once.
	Eliminated []int64
	// Log carries one line per comparison, in pairing order.
	Log []string
}

// ResolveBattles pairs contender i against contender (i+1)%n for every i,
// producing exactly n comparisons: each contender attacks once and defends
// once. For n == 2 the cycle revisits the same pair in both directions, so the
// two players battle twice in one round; both outcomes stand. That duplication
// is the original pairing rule and is preserved, not suppressed.
//
// Fewer than two contenders means no battles.
func ResolveBattles(contenders []Contender) Outcome {
	out := Outcome{Points: make(map[int64]int)}
	n := len(contenders)
	if n < 2 {
		return out
	}

	queued := make(map[int64]bool)
	queue := func(id int64) {
		if !queued[id] {
			queued[id] = true
			out.Eliminated = append(out.Eliminated, id)
		}
	}

	for i := 0; i < n; i++ {
		attacker := contenders[i]
		defender := contenders[(i+1)%n]

		line := fmt.Sprintf("%s(%s) vs %s(%s): ",
			attacker.Name, attacker.Choice, defender.Name, defender.Choice)

		switch Compare(attacker.Choice, defender.Choice) {
		case 1:
			line += attacker.Name + " Wins!"
			out.Points[attacker.ID]++
			queue(defender.ID)
		case -1:
			line += defender.Name + " Wins!"
			out.Points[defender.ID]++
			queue(attacker.ID)
		default:
			line += "Tie!"
		}
		out.Log = append(out.Log, line)
	}
	return out
}
