package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"datapilot/adapters/export"
	"datapilot/domain/analysis"
	"datapilot/domain/catalog"
	"datapilot/domain/core"
	"datapilot/internal/container"

	"github.com/spf13/cobra"
)

type runOptions struct {
	role     string
	file     string
	out      string
	clean    string
	tasks    []string
	question string
	formats  []string
}

func newRunCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Drive the analysis wizard headless against a file",
		Long: `Upload a file, optionally clean it, run role tasks, ask a question and
write the report into the output directory.

Example: datapilot run --role finance --file q3.csv --clean impute --task forecasting --out ./out`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			c, err := container.New(cfg)
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background())
			return runPipeline(cmd.Context(), cmd.OutOrStdout(), c, opts)
		},
	}

	cmd.Flags().StringVar(&opts.role, "role", string(catalog.GeneralRoleID), "Role id (see `roles`)")
	cmd.Flags().StringVar(&opts.file, "file", "", "CSV or Excel file to analyze")
	cmd.Flags().StringVar(&opts.out, "out", ".", "Directory for downloaded artifacts")
	cmd.Flags().StringVar(&opts.clean, "clean", "", "Cleaning action to apply")
	cmd.Flags().StringSliceVar(&opts.tasks, "task", nil, "Task ids to run (default: every task of the role)")
	cmd.Flags().StringVar(&opts.question, "question", "", "Question for the AI insight step")
	cmd.Flags().StringSliceVar(&opts.formats, "format", []string{"xlsx"}, "Report formats to download")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runPipeline(ctx context.Context, out io.Writer, c *container.Container, opts runOptions) error {
	role, ok := catalog.Lookup(core.RoleID(opts.role))
	if !ok {
		return fmt.Errorf("unknown role %q", opts.role)
	}

	f, err := os.Open(opts.file)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", opts.file, err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", opts.file, err)
	}

	w := c.NewWizard(role)
	ds, err := w.UploadFile(ctx, analysis.Upload{
		FileHandle: analysis.FileHandle{Name: filepath.Base(opts.file), Size: info.Size()},
		Body:       f,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "uploaded %s: %d columns, %d preview rows\n", info.Name(), len(ds.Columns), len(ds.Rows))

	if _, err := w.RequestPreview(ctx); err != nil {
		return err
	}

	if opts.clean != "" {
		rows, err := w.RunCleaningAction(ctx, opts.clean)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "cleaned with %s: %d rows\n", opts.clean, len(rows))
	}

	tasks := opts.tasks
	if len(tasks) == 0 {
		for _, t := range catalog.TasksFor(role.ID) {
			tasks = append(tasks, string(t.ID))
		}
	}
	for _, id := range tasks {
		chart, err := w.RunTask(ctx, core.TaskID(id))
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "task %s: %s chart %q (%d points)\n", id, chart.Kind, chart.Title, len(chart.Data))
	}

	if opts.question != "" {
		insight, err := w.AskQuestion(ctx, opts.question)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\nQ: %s\nA: %s\n\n", insight.Question, insight.Response)
	}

	saver := export.DirSaver{Dir: opts.out}
	for _, format := range opts.formats {
		artifact, err := w.DownloadArtifact(ctx, export.KindReport, format, saver)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "wrote %s\n", filepath.Join(opts.out, artifact.Name))
	}
	return nil
}
