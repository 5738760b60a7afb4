package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"datapilot/adapters/api"
	"datapilot/domain/core"

	"github.com/spf13/cobra"
)

func newFetchCmd() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Call the analytics backend directly",
	}
	cmd.PersistentFlags().StringVarP(&outPath, "out", "o", "", "Write the response to a file instead of stdout")

	client := func() (*api.Client, error) {
		cfg, err := loadConfig()
		if err != nil {
			return nil, err
		}
		return api.NewClient(cfg.Backend.BaseURL, api.WithStaticToken(cfg.Backend.Token)), nil
	}

	var format string
	reportCmd := &cobra.Command{
		Use:   "report <role-id>",
		Short: "Download the role's report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client()
			if err != nil {
				return err
			}
			data, err := c.Report(cmd.Context(), core.RoleID(args[0]), format)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), outPath, data)
		},
	}
	reportCmd.Flags().StringVar(&format, "format", "xlsx", "Report format")

	chartCmd := &cobra.Command{
		Use:   "chart <chart-id>",
		Short: "Download one chart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client()
			if err != nil {
				return err
			}
			data, err := c.ChartExport(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), outPath, data)
		},
	}

	previewCmd := &cobra.Command{
		Use:   "preview <role-id>",
		Short: "Print the preview of the role's latest dataset as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client()
			if err != nil {
				return err
			}
			ds, err := c.Preview(cmd.Context(), core.RoleID(args[0]))
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(ds, "", "  ")
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), outPath, append(data, '\n'))
		},
	}

	cmd.AddCommand(reportCmd, chartCmd, previewCmd)
	return cmd
}

func writeOutput(stdout io.Writer, path string, data []byte) error {
	if path == "" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Fprintf(stdout, "wrote %s (%d bytes)\n", path, len(data))
	return nil
}
