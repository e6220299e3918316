package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"fintrack/internal/core"
)

func newRulesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Work with category rules text",
	}
	cmd.AddCommand(newRulesCheckCommand(), newRulesDefaultCommand())
	return cmd
}

func newRulesCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check <file|->",
		Short: "Validate rules text and list its categories",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			rules, err := core.ParseRules(text)
			var perr *core.ParseError
			if errors.As(err, &perr) {
				return fmt.Errorf("%s:%d: %s: %q", args[0], perr.Line, perr.Reason, perr.Text)
			}
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d categories\n", len(rules))
			for _, r := range rules {
				fmt.Fprintf(out, "  %s (%d keywords)\n", r.Category, len(r.Keywords))
			}
			return nil
		},
	}
}

func newRulesDefaultCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "default",
		Short: "Print the built-in rules text",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := io.WriteString(cmd.OutOrStdout(), core.DefaultRules().String()+"\n")
			return err
		},
	}
}

// readInput reads a file, or stdin when name is "-".
func readInput(stdin io.Reader, name string) (string, error) {
	var (
		b   []byte
		err error
	)
	if name == "-" {
		b, err = io.ReadAll(stdin)
	} else {
		b, err = os.ReadFile(name)
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", name, err)
	}
	return strings.ReplaceAll(string(b), "\r\n", "\n"), nil
}
