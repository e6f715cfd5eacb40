package expression

// Rule maps a predicate over Scores to a label.
type Rule struct {
	Label Label
	Match func(s Scores) bool
}

// DefaultRules is the fixed decision table. Order is the tie-break: a face that
// satisfies both the Happy and Sad rules is reported Happy.
var DefaultRules = []Rule{
	{
		Label: Happy,
		Match: func(s Scores) bool { return s.SmileLeft > Threshold && s.SmileRight > Threshold },
	},
	{
		Label: Sad,
		Match: func(s Scores) bool { return s.FrownLeft > Threshold },
	},
	{
		Label: Angry,
		Match: func(s Scores) bool { return s.BrowDown > Threshold },
	},
	{
		Label: Surprised,
		Match: func(s Scores) bool { return s.JawOpen > Threshold && s.EyeWide > Threshold },
	},
}

// Classifier evaluates an ordered rule list; the first matching rule wins.
type Classifier struct {
	rules    []Rule
	fallback Label
}

// NewClassifier creates a Classifier over rules that returns fallback when
// nothing matches. A nil rules slice yields a classifier that always returns
// fallback.
func NewClassifier(rules []Rule, fallback Label) *Classifier {
	return &Classifier{
		rules:    rules,
		fallback: fallback,
	}
}

// Classify returns the label of the first rule that matches s.
func (c *Classifier) Classify(s Scores) Label {
	for _, r := range c.rules {
		if r.Match != nil && r.Match(s) {
			return r.Label
		}
	}
	return c.fallback
}

var defaultClassifier = NewClassifier(DefaultRules, Neutral)

// Classify runs the default decision table.
func Classify(s Scores) Label {
	return defaultClassifier.Classify(s)
}
