package mdmx

import "fmt"

// NodeKind identifies which markdown construct a Target came from.
type NodeKind string

const (
	KindLink  NodeKind = "link"
	KindImage NodeKind = "image"
)

// Target is the classifier's view of a link or image node.
type Target struct {
	Kind        NodeKind
	Destination string
	// Title is the annotation. HasTitle distinguishes `""` from no title.
	Title    string
	HasTitle bool
	// Text is the plain display text (link label or image alt).
	Text string
}

// DirectiveKind enumerates what a node means.
type DirectiveKind int

const (
	Passthrough DirectiveKind = iota
	Input
	Action
)

func (k DirectiveKind) String() string {
	switch k {
	case Input:
		return "input"
	case Action:
		return "action"
	default:
		return "passthrough"
	}
}

// Directive is the classified meaning of a node.
// Name and Placeholder are set for Input, Verb and Path for Action.
type Directive struct {
	Kind        DirectiveKind
	Name        string
	Placeholder string
	Verb        string
	Path        string
	// LegacyTrigger binds the raw title to hx-trigger (image form only).
	LegacyTrigger bool
}

// InputDirective builds an Input directive.
func InputDirective(name, placeholder string) Directive {
	return Directive{Kind: Input, Name: name, Placeholder: placeholder}
}

// ActionDirective builds an Action directive.
func ActionDirective(verb, path string) Directive {
	return Directive{Kind: Action, Verb: verb, Path: path}
}

// IsPassthrough reports whether the node should be left untouched.
func (d Directive) IsPassthrough() bool {
	return d.Kind == Passthrough
}

func (d Directive) String() string {
	switch d.Kind {
	case Input:
		return fmt.Sprintf("Input(%q, %q)", d.Name, d.Placeholder)
	case Action:
		return fmt.Sprintf("Action(%q, %q)", d.Verb, d.Path)
	default:
		return "Passthrough"
	}
}
