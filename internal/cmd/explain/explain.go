// Package explain provides the explain command.
package explain

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/open-cli-collective/mdmx/internal/view"
	"github.com/open-cli-collective/mdmx/pkg/mdmx"
)

type explainOptions struct {
	image    bool
	title    string
	hasTitle bool
	text     string
	rules    bool
	legacy   bool
	output   string
	noColor  bool
	writer   io.Writer
}

// NewCmdExplain creates the explain command.
func NewCmdExplain() *cobra.Command {
	opts := &explainOptions{}

	cmd := &cobra.Command{
		Use:   "explain [destination]",
		Short: "Show how a link or image destination is interpreted",
		Long: `Classify a single link or image destination and print the matching
rule, the directive, and the element and attributes it renders as.

With --rules, list the classification rules in priority order instead.`,
		Example: `  # A verb link with an annotation
  mdmx explain "POST /api/save" --title "hx-target=#result primary" --text Save

  # An input image
  mdmx explain @input:q --image --title "keyup changed" --text Search

  # List the rules, including the legacy @verb:path form
  mdmx explain --rules --legacy`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.output, _ = cmd.Flags().GetString("output")
			opts.noColor, _ = cmd.Flags().GetBool("no-color")
			opts.hasTitle = cmd.Flags().Changed("title")
			opts.writer = cmd.OutOrStdout()

			if opts.rules {
				return runRules(opts)
			}
			if len(args) == 0 {
				return errors.New("a destination is required (or use --rules)")
			}
			return runExplain(args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.image, "image", false, "Treat the destination as an image")
	cmd.Flags().StringVar(&opts.title, "title", "", "Title annotation")
	cmd.Flags().StringVar(&opts.text, "text", "", "Link text or image alt text")
	cmd.Flags().BoolVar(&opts.rules, "rules", false, "List the classification rules")
	cmd.Flags().BoolVar(&opts.legacy, "legacy", false, "Include the @verb:path rule")

	return cmd
}

func (o *explainOptions) classifier() *mdmx.Classifier {
	if o.legacy {
		return mdmx.NewClassifier(mdmx.LegacyRules)
	}
	return mdmx.NewClassifier(mdmx.DefaultRules)
}

func (o *explainOptions) renderer() (*view.Renderer, error) {
	if err := view.ValidateFormat(o.output); err != nil {
		return nil, err
	}
	r := view.NewRenderer(view.Format(o.output), o.noColor)
	if o.writer != nil {
		r.SetWriter(o.writer)
	}
	return r, nil
}

// explanationJSON is the --output json shape.
type explanationJSON struct {
	Kind        mdmx.NodeKind      `json:"kind"`
	Destination string             `json:"destination"`
	Rule        string             `json:"rule"`
	Directive   string             `json:"directive"`
	Element     string             `json:"element,omitempty"`
	Properties  *mdmx.AttributeSet `json:"properties,omitempty"`
}

func runExplain(destination string, opts *explainOptions) error {
	renderer, err := opts.renderer()
	if err != nil {
		return err
	}

	target := mdmx.Target{
		Kind:        mdmx.KindLink,
		Destination: destination,
		Title:       opts.title,
		HasTitle:    opts.hasTitle,
		Text:        opts.text,
	}
	if opts.image {
		target.Kind = mdmx.KindImage
	}

	e := opts.classifier().Explain(target)
	rule := e.Rule
	if rule == "" {
		rule = "(none)"
	}

	if renderer.Format() == view.FormatJSON {
		out := explanationJSON{
			Kind:        target.Kind,
			Destination: destination,
			Rule:        rule,
			Directive:   e.Directive.String(),
		}
		if e.Override != nil {
			out.Element = e.Override.Element
			out.Properties = e.Override.Properties
		}
		return renderer.RenderJSON(out)
	}

	renderer.RenderKeyValue("Kind", string(target.Kind))
	renderer.RenderKeyValue("Rule", rule)
	renderer.RenderKeyValue("Directive", e.Directive.String())
	if e.Override == nil {
		renderer.RenderKeyValue("Element", "(unchanged)")
		return nil
	}
	renderer.RenderKeyValue("Element", e.Override.Element)

	var rows [][]string
	e.Override.Properties.Each(func(k, v string) {
		if renderer.Format() == view.FormatTable {
			v = view.Truncate(v, maxValueWidth)
		}
		rows = append(rows, []string{k, v})
	})
	renderer.RenderTable([]string{"ATTRIBUTE", "VALUE"}, rows)
	return nil
}

func runRules(opts *explainOptions) error {
	renderer, err := opts.renderer()
	if err != nil {
		return err
	}

	rules := opts.classifier().Rules()
	headers := []string{"PRIORITY", "NAME", "KIND", "EXAMPLE", "DESCRIPTION"}
	rows := make([][]string, 0, len(rules))
	for i, r := range rules {
		rows = append(rows, []string{strconv.Itoa(i + 1), r.Name, string(r.Kind), r.Example, r.Description})
	}
	renderer.RenderTable(headers, rows)

	if renderer.Format() != view.FormatJSON {
		renderer.RenderText(fmt.Sprintf("\nUnmatched destinations render unchanged. %s", defaultVerbNote))
	}
	return nil
}

// maxValueWidth caps attribute values in table output.
const maxValueWidth = 60

const defaultVerbNote = "Bare absolute paths use the " + mdmx.DefaultVerb + " verb."
