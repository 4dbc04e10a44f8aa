// Package cli implements the exceptionctl command line.
package cli

import (
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tiremarket/internal/logging"
)

// ErrConflicts is returned by check when the selection overlaps active
// exceptions. main maps it to exit code 1.
var ErrConflicts = errors.New("conflicts found")

type globalOptions struct {
	verbose bool
	logger  *zap.Logger
}

func (g *globalOptions) log() *zap.Logger {
	if g.logger == nil {
		g.logger = logging.NewDevelopment(g.verbose)
	}
	return g.logger
}

// NewRootCmd returns the exceptionctl command tree.
func NewRootCmd(version string) *cobra.Command {
	g := &globalOptions{}
	root := &cobra.Command{
		Use:     "exceptionctl",
		Version: version,
		Short:   "Inspect agreement commission exceptions",
		Long: `exceptionctl talks to the tiremarket admin API.

It checks whether a brand and diameter selection would overlap the active
commission exceptions of an agreement before anyone saves it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	root.SetVersionTemplate("{{.Version}}\n")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "log requests to stderr")
	root.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		if g.logger != nil {
			_ = g.logger.Sync()
		}
	}

	root.AddCommand(newCheckCmd(g))
	return root
}
