package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ghodss/yaml"
	"github.com/itchyny/gojq"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/linusheck/synthesis/pkg/problem"
)

type report struct {
	Problem string            `json:"problem"`
	Answers []*problem.Answer `json:"answers"`
}

func newRunCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run FILE...",
		Short: "Run the queries of one or more problems",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := o.filter()
			if err != nil {
				return err
			}
			reports, err := o.runAll(args)
			if err != nil {
				return err
			}
			for _, r := range reports {
				if err := render(cmd.OutOrStdout(), r, filter); err != nil {
					return err
				}
			}
			if o.metrics {
				return o.writeMetrics(cmd.ErrOrStderr())
			}
			return nil
		},
	}
	addRunFlags(cmd, o)
	return cmd
}

func addRunFlags(cmd *cobra.Command, o *options) {
	cmd.Flags().IntVar(&o.parallel, "parallel", 0, "maximum number of problems solved at once, 0 for no limit")
	cmd.Flags().StringVar(&o.jq, "jq", "", "jq expression applied to the report of every problem")
}

func (o *options) filter() (*gojq.Query, error) {
	if o.jq == "" {
		return nil, nil
	}
	q, err := gojq.Parse(o.jq)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse jq expression %q", o.jq)
	}
	return q, nil
}

// runAll answers the problems concurrently, one engine per file. Reports
// keep the order of paths.
func (o *options) runAll(paths []string) ([]*report, error) {
	reports := make([]*report, len(paths))
	g := errgroup.Group{}
	if o.parallel > 0 {
		g.SetLimit(o.parallel)
	}
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			r, err := o.run(path)
			reports[i] = r
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

// run answers every query of a problem file.
func (o *options) run(path string) (*report, error) {
	p, err := problem.Load(path)
	if err != nil {
		return nil, err
	}
	e, err := p.Engine(o.engineOptions(path)...)
	if err != nil {
		return nil, err
	}
	r := &report{Problem: path, Answers: make([]*problem.Answer, 0, len(p.Queries))}
	for _, q := range p.Queries {
		a, err := q.Run(e)
		if err != nil {
			return nil, errors.Wrapf(err, "problem %s", path)
		}
		o.logger.WithFields(logrus.Fields{"problem": path, "query": q.Name}).Info("query answered")
		r.Answers = append(r.Answers, a)
	}
	return r, nil
}

// render writes r as a YAML document, or every value filter yields for it.
func render(w io.Writer, r *report, filter *gojq.Query) error {
	if filter == nil {
		out, err := yaml.Marshal(r)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "---\n%s", out)
		return err
	}

	raw, err := json.Marshal(r)
	if err != nil {
		return err
	}
	var input interface{}
	if err := json.Unmarshal(raw, &input); err != nil {
		return err
	}
	iter := filter.Run(input)
	for {
		v, ok := iter.Next()
		if !ok {
			return nil
		}
		if err, ok := v.(error); ok {
			return errors.Wrapf(err, "jq on %s", r.Problem)
		}
		out, err := json.Marshal(v)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%s\n", out); err != nil {
			return err
		}
	}
}
