package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"tododay/internal/controller"
)

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every todo to a text report",
		Long: `Write every todo, grouped by day, to todos_YYYYMMDD_HHMM.txt in the
export directory. The search filter of the interactive list does not apply.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), rootOpts, appOptions{stderr: cmd.ErrOrStderr(), exportDir: dir})
			if err != nil {
				return err
			}
			defer a.Close()

			path, err := exportAndWait(cmd.Context(), a.ctrl)
			if err != nil {
				return err
			}
			return newFormatter(cmd, rootOpts).message("Saved to %s", path)
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "export directory (default from config)")
	return cmd
}

// exportAndWait starts an export and blocks until it succeeds or fails.
func exportAndWait(ctx context.Context, ctrl *controller.Controller) (string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	states := ctrl.ExportState().Subscribe(ctx)
	ctrl.ExportTodos()
	for s := range states {
		switch s := s.(type) {
		case controller.ExportSuccess:
			ctrl.ClearExportState()
			return s.Path, nil
		case controller.ExportError:
			ctrl.ClearExportState()
			return "", errors.New(s.Message)
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "", controller.ErrClosed
}
