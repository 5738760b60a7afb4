package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"datapilot/domain/catalog"
	"datapilot/domain/core"

	"github.com/spf13/cobra"
)

func newRolesCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "roles [role-id]",
		Short: "List analysis roles, or the tasks of one role",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if len(args) == 1 {
				role, ok := catalog.Lookup(core.RoleID(args[0]))
				if !ok {
					return fmt.Errorf("unknown role %q", args[0])
				}
				if asJSON {
					return json.NewEncoder(out).Encode(role)
				}
				fmt.Fprintf(out, "%s %s\n%s\n\n", role.Icon.Glyph(), role.Name, role.Description)
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				for _, task := range catalog.TasksFor(role.ID) {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", task.ID, task.Name, task.Description)
				}
				return tw.Flush()
			}

			roles := catalog.Roles()
			if asJSON {
				return json.NewEncoder(out).Encode(roles)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			for _, role := range roles {
				fmt.Fprintf(tw, "%s\t%s\t%d tasks\n", role.ID, role.Name, len(role.Tasks))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}
