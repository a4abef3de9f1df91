package mdmx

// Override redirects rendering of a node to a different element.
// Once present it fully determines the node's output.
type Override struct {
	Element    string
	Properties *AttributeSet
}

// Void reports whether the element has no content or closing tag.
func (o *Override) Void() bool {
	return o.Element == "input"
}

// Rewrite builds the render override for a classified target.
// attrs is the parsed annotation; it is applied on top of Action properties.
// Passthrough yields nil.
func Rewrite(t Target, d Directive, attrs *AttributeSet) *Override {
	switch d.Kind {
	case Input:
		props := NewAttributeSet()
		props.Set("name", d.Name)
		props.Set("type", "text")
		props.Set("placeholder", d.Placeholder)
		if d.LegacyTrigger && t.HasTitle && t.Title != "" {
			// The image form binds the whole raw title, unparsed.
			props.Set("hx-trigger", t.Title)
		}
		return &Override{Element: "input", Properties: props}
	case Action:
		props := NewAttributeSet()
		props.Set("hx-"+d.Verb, d.Path)
		props.Merge(attrs)
		return &Override{Element: "button", Properties: props}
	default:
		return nil
	}
}
