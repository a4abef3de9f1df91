package mdmx

// Explanation records how one target was classified and rewritten.
type Explanation struct {
	Target    Target
	Rule      string // empty when no rule matched
	Directive Directive
	Override  *Override // nil for Passthrough
}

// Explain classifies t and computes its override in one step.
func (c *Classifier) Explain(t Target) Explanation {
	d, rule := c.Classify(t)
	e := Explanation{Target: t, Directive: d}
	if rule != nil {
		e.Rule = rule.Name
	}
	if d.IsPassthrough() {
		return e
	}

	var attrs *AttributeSet
	if t.HasTitle {
		attrs = ParseAttributes(t.Title)
	}
	e.Override = Rewrite(t, d, attrs)
	return e
}
