package cli

import (
	"github.com/spf13/cobra"

	"tododay/internal/config"
)

// NewThemeCommand creates the theme command.
func NewThemeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "theme [system|light|dark]",
		Short:     "Show or set the color theme",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: config.Themes,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(cmd, rootOpts)
			if len(args) == 0 {
				cfg, err := config.LoadOrCreate(rootOpts.ConfigPath)
				if err != nil {
					return err
				}
				return f.message("%s", cfg.Theme)
			}
			if err := config.SetTheme(rootOpts.ConfigPath, args[0]); err != nil {
				return err
			}
			return f.message("Theme set to %s", args[0])
		},
	}
}
