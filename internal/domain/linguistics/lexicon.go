package linguistics

var positiveEmotionWords = map[string]struct{}{
	"happy":     {},
	"joy":       {},
	"love":      {},
	"excited":   {},
	"grateful":  {},
	"wonderful": {},
	"blessed":   {},
	"peaceful":  {},
	"proud":     {},
	"hopeful":   {},
}

var negativeEmotionWords = map[string]struct{}{
	"sad":        {},
	"angry":      {},
	"worried":    {},
	"anxious":    {},
	"lonely":     {},
	"scared":     {},
	"frustrated": {},
	"confused":   {},
	"tired":      {},
	"hurt":       {},
}

// connectives mark a sentence as complex.
var connectives = map[string]struct{}{
	"however":      {},
	"although":     {},
	"therefore":    {},
	"furthermore":  {},
	"consequently": {},
	"nevertheless": {},
	"meanwhile":    {},
	"moreover":     {},
}

// IsEmotionWord reports whether w belongs to either emotion lexicon.
func IsEmotionWord(w string) bool {
	if _, ok := positiveEmotionWords[w]; ok {
		return true
	}
	_, ok := negativeEmotionWords[w]
	return ok
}

// IsConnective reports whether w is a logical connective.
func IsConnective(w string) bool {
	_, ok := connectives[w]
	return ok
}
