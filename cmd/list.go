package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"specctl/internal/descriptor"
	"specctl/internal/harness"
	"specctl/internal/mcpserver"
)

func newListCmd() *cobra.Command {
	var (
		filter string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the test classes and their methods",
		RunE: func(cmd *cobra.Command, args []string) error {
			classes, err := harness.Select(catalog(), filter)
			if err != nil {
				return err
			}
			if asJSON {
				jsonData, err := json.MarshalIndent(mcpserver.Describe(classes), "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal classes to JSON: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(jsonData))
				return nil
			}
			printClasses(cmd.OutOrStdout(), classes)
			return nil
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "", "Regular expression matched against class names")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the classes as JSON")
	_ = cmd.RegisterFlagCompletionFunc("filter", completeClassNames)
	return cmd
}

func printClasses(out io.Writer, classes []*descriptor.Class) {
	if len(classes) == 0 {
		fmt.Fprintln(out, "No test classes found")
		return
	}

	width := nameWidth(classes, false)
	for _, c := range classes {
		fmt.Fprintf(out, "%s%s\n", c.Name, classMarkers(c))
		for _, m := range c.Methods {
			line := "  " + runewidth.FillRight(m.Name, width) + " " + methodMarkers(m)
			fmt.Fprintln(out, strings.TrimRight(line, " "))
		}
	}
}

func classMarkers(c *descriptor.Class) string {
	var parts []string
	if c.Ignored {
		parts = append(parts, "ignored")
	}
	if c.Environment != nil {
		parts = append(parts, "when "+c.Environment.String())
	}
	if len(c.Context.Modules) > 0 {
		parts = append(parts, "context "+strings.Join(c.Context.Modules, ","))
	}
	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, "; ") + ")"
}

func methodMarkers(m *descriptor.Method) string {
	var parts []string
	if m.Ignored {
		parts = append(parts, "ignored")
	}
	if m.Environment != nil {
		parts = append(parts, "when "+m.Environment.String())
	}
	if m.Expected != nil {
		parts = append(parts, "expects "+m.Expected.Name)
	}
	return strings.Join(parts, "; ")
}

// nameWidth is the widest method name in display columns. Qualified names
// include the class, as test IDs do.
func nameWidth(classes []*descriptor.Class, qualified bool) int {
	width := 0
	for _, c := range classes {
		for _, m := range c.Methods {
			name := m.Name
			if qualified {
				name = c.Name + "." + m.Name
			}
			width = max(width, runewidth.StringWidth(name))
		}
	}
	return width
}

// completeClassNames provides shell completion for class filters.
func completeClassNames(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	var names []string
	for _, c := range catalog() {
		if strings.HasPrefix(c.Name, toComplete) {
			names = append(names, c.Name)
		}
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}
