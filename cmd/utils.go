package cmd

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"
)

// choiceFlag is a pflag.Value restricted to a fixed set of choices. Each choice may
// carry a description that shows up in shell completion.
type choiceFlag struct {
	value   string
	choices []string
	help    map[string]string
}

func newChoiceFlag(defaultVal string, help map[string]string) choiceFlag {
	choices := slices.Sorted(maps.Keys(help))
	if !slices.Contains(choices, defaultVal) {
		panic(fmt.Sprintf("default value %q not in allowed set", defaultVal))
	}
	return choiceFlag{value: defaultVal, choices: choices, help: help}
}

func (c *choiceFlag) String() string { return c.value }
func (c *choiceFlag) Type() string   { return "enum" }
func (c *choiceFlag) Value() string  { return c.value }

// HelpString renders the choices for a flag usage line
func (c *choiceFlag) HelpString() string {
	return "[" + strings.Join(c.choices, ", ") + "]"
}

func (c *choiceFlag) Set(v string) error {
	if !slices.Contains(c.choices, v) {
		return fmt.Errorf("must be one of: %s", strings.Join(c.choices, ", "))
	}
	c.value = v
	return nil
}

func (c *choiceFlag) complete(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	items := make([]string, 0, len(c.choices))
	for _, choice := range c.choices {
		if !strings.HasPrefix(choice, toComplete) {
			continue
		}
		if desc := c.help[choice]; desc != "" {
			choice += "\t" + desc
		}
		items = append(items, choice)
	}
	return items, cobra.ShellCompDirectiveNoFileComp
}
