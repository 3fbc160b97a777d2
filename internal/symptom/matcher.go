package symptom

// MinOverlap is the number of shared symptoms a condition needs before it
// counts as a match. A single shared symptom such as "Fatigue" appears in too
// many conditions to mean anything.
const MinOverlap = 2

// Score is the overlap between a selection and one condition.
type Score struct {
	ConditionID string   `json:"condition_id"`
	Matched     []string `json:"matched"`
	Overlap     int      `json:"overlap"`
	Candidate   bool     `json:"candidate"`
}

// Match returns the condition sharing the most symptoms with s, provided it
// shares at least MinOverlap. Ties go to the condition declared first.
func (kb *KnowledgeBase) Match(s Set) (Condition, bool) {
	if len(s) == 0 {
		return Condition{}, false
	}
	best, bestOverlap := -1, 0
	for i, cs := range kb.sets {
		n := cs.Overlap(s)
		if n >= MinOverlap && n > bestOverlap {
			best, bestOverlap = i, n
		}
	}
	if best < 0 {
		return Condition{}, false
	}
	c := kb.conditions[best]
	c.Symptoms = append([]string(nil), c.Symptoms...)
	return c, true
}

// Scores reports the overlap with every condition, in declaration order.
func (kb *KnowledgeBase) Scores(s Set) []Score {
	out := make([]Score, len(kb.conditions))
	for i, c := range kb.conditions {
		var matched []string
		for _, name := range c.Symptoms {
			if s.Has(name) {
				matched = append(matched, name)
			}
		}
		n := kb.sets[i].Overlap(s)
		out[i] = Score{
			ConditionID: c.ID,
			Matched:     matched,
			Overlap:     n,
			Candidate:   n >= MinOverlap,
		}
	}
	return out
}
