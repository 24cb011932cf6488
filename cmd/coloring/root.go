package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/linusheck/synthesis/pkg/coloring"
	"github.com/linusheck/synthesis/pkg/metrics"
	"github.com/linusheck/synthesis/pkg/problem"
	"github.com/linusheck/synthesis/pkg/version"
)

type options struct {
	debug          bool
	version        bool
	checkFamily    bool
	checkScheduler bool
	minimizeCore   bool
	singleCheck    bool
	traceCores     bool
	metrics        bool
	parallel       int
	jq             string

	logger   *logrus.Logger
	registry *prometheus.Registry
}

func newRootCmd() *cobra.Command {
	o := options{}

	cmd := &cobra.Command{
		Use:           "coloring",
		Short:         "Colors model choices with the paths of a parametric decision tree",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			o.logger = logrus.New()
			o.logger.SetOutput(cmd.ErrOrStderr())
			if o.debug {
				o.logger.SetLevel(logrus.DebugLevel)
			}
			o.registry = prometheus.NewRegistry()
			metrics.RegisterWith(o.registry)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.version {
				fmt.Fprint(cmd.OutOrStdout(), version.String())
				return nil
			}
			return cmd.Help()
		},
	}

	o.addFlags(cmd.PersistentFlags())
	cmd.Flags().BoolVar(&o.version, "version", false, "displays the coloring version")

	cmd.AddCommand(newInfoCmd(&o), newRunCmd(&o), newWatchCmd(&o))
	return cmd
}

func (o *options) addFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&o.debug, "debug", false, "use debug log level")
	fs.BoolVar(&o.checkFamily, "check-family", false, "verify that every family is satisfiable before selecting choices")
	fs.BoolVar(&o.checkScheduler, "check-scheduler", false, "verify that selected choices admit a consistent scheduler")
	fs.BoolVar(&o.minimizeCore, "minimize-core", true, "shrink unsat cores before harmonizing")
	fs.BoolVar(&o.singleCheck, "single-check", false, "skip harmonizing formulas; inconsistent answers carry only a core")
	fs.BoolVar(&o.traceCores, "trace-cores", false, "print every unsat core to stderr")
	fs.BoolVar(&o.metrics, "metrics", false, "print engine metrics after running")
}

func newInfoCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "info FILE",
		Short: "Describe the family of a problem",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := problem.Load(args[0])
			if err != nil {
				return err
			}
			e, err := p.Engine(o.engineOptions(args[0])...)
			if err != nil {
				return err
			}
			return writeInfo(cmd.OutOrStdout(), e)
		},
	}
}

func (o *options) engineOptions(path string) []coloring.Option {
	options := []coloring.Option{
		coloring.WithLogger(o.logger.WithField("problem", path)),
		coloring.WithFamilyCheck(o.checkFamily),
		coloring.WithSchedulerCheck(o.checkScheduler),
		coloring.WithCoreMinimization(o.minimizeCore),
		coloring.WithSingleConsistencyCheck(o.singleCheck),
	}
	if o.traceCores {
		options = append(options, coloring.WithTracer(coloring.LoggingTracer{Writer: os.Stderr}))
	}
	return options
}

func (o *options) writeMetrics(w io.Writer) error {
	families, err := o.registry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.FmtText)
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}

func writeInfo(w io.Writer, e *coloring.Engine) error {
	fmt.Fprintf(w, "states: %d\nchoices: %d\nvariables: %d\nnodes: %d\npaths: %d\nholes: %d\n",
		e.NumStates(), e.NumChoices(), e.NumVariables(), e.NumNodes(), e.NumPaths(), e.NumHoles())
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tNAME\tKIND\tOPTIONS")
	for i, h := range e.FamilyInfo() {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n", i, h.Name, h.Kind, h.NumOptions)
	}
	return tw.Flush()
}
