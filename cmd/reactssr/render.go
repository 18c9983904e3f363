package main

import (
	"encoding/json"
	"fmt"
	"html/template"

	"github.com/cryguy/reactssr"
	"github.com/spf13/cobra"
)

func renderCmd() *cobra.Command {
	var (
		flags contextFlags
		tag   string
		id    string
		ujs   bool
		bare  bool
	)

	cmd := &cobra.Command{
		Use:   "render NAME [PROPS_JSON]",
		Short: "Render a component and print the HTML fragment",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			props := map[string]any{}
			if len(args) == 2 {
				if err := json.Unmarshal([]byte(args[1]), &props); err != nil {
					return fmt.Errorf("parsing props: %w", err)
				}
			}

			r, logger, err := flags.renderer(nil)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			var opts []reactssr.Option
			if tag != "" {
				opts = append(opts, reactssr.Tag(tag))
			}
			if id != "" {
				opts = append(opts, reactssr.ID(id))
			}

			var out template.HTML
			switch {
			case bare:
				out, err = r.RenderToString(args[0], props)
			case ujs:
				out, err = r.ReactDirective(args[0], props, opts...)
			default:
				out, err = r.ReactComponent(args[0], props, opts...)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&tag, "tag", "", "wrapper tag (default div)")
	cmd.Flags().StringVar(&id, "id", "", "mount element id (default random)")
	cmd.Flags().BoolVar(&ujs, "ujs", false, "emit a data-react directive instead of an inline script")
	cmd.Flags().BoolVar(&bare, "bare", false, "print only the server-rendered markup")
	return cmd
}
