package game

import "strings"

// Choice is one of the canonical pick symbols.
type Choice string

const (
	ChoiceNone     Choice = ""
	ChoiceRock     Choice = "r"
	ChoicePaper    Choice = "p"
	ChoiceScissors Choice = "s"
	ChoiceLizard   Choice = "l"
	ChoiceSpock    Choice = "sp"
)

// Extended reports whether the choice belongs to the lizard/spock extension.
func (c Choice) Extended() bool {
	return c == ChoiceLizard || c == ChoiceSpock
}

// ParseChoice normalizes a raw token to a canonical symbol. Matching is
// case-insensitive and prefix-based ("rock" -> r, "spock" -> sp). The "sp"
// prefix must be checked before the bare "s" prefix or spock is unreachable.
func ParseChoice(token string) (Choice, bool) {
	t := strings.ToLower(strings.TrimSpace(token))
	switch {
	case t == "":
		return ChoiceNone, false
	case strings.HasPrefix(t, "sp"):
		return ChoiceSpock, true
	case strings.HasPrefix(t, "r"):
		return ChoiceRock, true
	case strings.HasPrefix(t, "p"):
		return ChoicePaper, true
	case strings.HasPrefix(t, "s"):
		return ChoiceScissors, true
	case strings.HasPrefix(t, "l"):
		return ChoiceLizard, true
	default:
		return ChoiceNone, false
	}
}

// beats maps each choice to the set of choices it defeats.
var beats = map[Choice][]Choice{
	ChoiceRock:     {ChoiceScissors, ChoiceLizard},
	ChoicePaper:    {ChoiceRock, ChoiceSpock},
	ChoiceScissors: {ChoicePaper, ChoiceLizard},
	ChoiceLizard:   {ChoiceSpock, ChoicePaper},
	ChoiceSpock:    {ChoiceScissors, ChoiceRock},
}

// Compare resolves one comparison: 1 if a beats b, -1 if b beats a, 0 on tie.
func Compare(a, b Choice) int {
	if a == b {
		return 0
	}
	for _, victim := range beats[a] {
		if victim == b {
			return 1
		}
	}
	return -1
}
