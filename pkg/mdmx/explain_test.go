package mdmx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifier_Explain(t *testing.T) {
	c := NewClassifier(nil)

	tests := []struct {
		name        string
		target      Target
		rule        string
		element     string
		props       string
		passthrough bool
	}{
		{
			name:    "explicit verb with annotation",
			target:  Target{Kind: KindLink, Destination: "PUT /items/1", Title: "hx-swap=none primary", HasTitle: true, Text: "Save"},
			rule:    "explicit-verb",
			element: "button",
			props:   "hx-put=/items/1 hx-swap=none primary",
		},
		{
			name:    "absolute path defaults to post",
			target:  Target{Kind: KindLink, Destination: "/api/x", Text: "Go"},
			rule:    "absolute-path",
			element: "button",
			props:   "hx-post=/api/x",
		},
		{
			name:    "empty link is an input",
			target:  Target{Kind: KindLink, Destination: "", Text: "email"},
			rule:    "empty-target",
			element: "input",
			props:   "name=email type=text placeholder=email",
		},
		{
			name:    "image input keeps raw trigger",
			target:  Target{Kind: KindImage, Destination: "@input:q", Title: "keyup changed", HasTitle: true, Text: "Search"},
			rule:    "image-input",
			element: "input",
			props:   "name=q type=text placeholder=Search hx-trigger=keyup changed",
		},
		{
			name:        "external url",
			target:      Target{Kind: KindLink, Destination: "https://htmx.org", Text: "htmx"},
			rule:        "external-url",
			passthrough: true,
		},
		{
			name:        "relative path matches nothing",
			target:      Target{Kind: KindLink, Destination: "docs/readme.md", Text: "readme"},
			passthrough: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := c.Explain(tt.target)
			assert.Equal(t, tt.rule, e.Rule)
			assert.Equal(t, tt.target, e.Target)
			if tt.passthrough {
				assert.True(t, e.Directive.IsPassthrough())
				assert.Nil(t, e.Override)
				return
			}
			require.NotNil(t, e.Override)
			assert.Equal(t, tt.element, e.Override.Element)
			assert.Equal(t, tt.props, e.Override.Properties.String())
		})
	}
}
