package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dissolveproject/dissolve/internal/genericlist"
	"github.com/dissolveproject/dissolve/internal/infrastructure/monitoring/logging"
	"github.com/dissolveproject/dissolve/internal/procedure"
)

// NewProcedureCmd builds a synthetic configuration, then drives a canned
// RDF-style procedure over its atom pairs: a Box node that records the
// cell volume, a Collect1D node that bins pairwise distances, and a
// Process1D node that normalises the resulting histogram.
//
// Collect1D memoises its result against the Configuration's
// ContentsVersion (Context.isFresh), and CalculateDistance-style
// resolution only ever looks at the first atom of a named selection, so
// this command does not drive Select/CalculateDistance at all — instead
// it writes each pair's distance directly under the source key the
// Collect1D node reads, and forces a fresh ContentsVersion between
// samples via Configuration.SetAtomPosition's documented side effect of
// bumping the version counter even when the position is unchanged.
func NewProcedureCmd() *cobra.Command {
	var (
		nMolecules int
		boxLength  float64
		rangeMax   float64
		delta      float64
	)

	cmd := &cobra.Command{
		Use:   "procedure",
		Short: "Run a canned RDF-style Collect1D/Process1D procedure against a synthetic configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			bc := GetBenchContext(cmd)
			log := bc.Logger.Named("procedure")

			cfg, _, _, _, err := buildSyntheticSystem(nMolecules, boxLength, rangeMax)
			if err != nil {
				return fmt.Errorf("building synthetic system: %w", err)
			}

			const sourceName = "pair-distance"
			collect := procedure.NewCollect1D("rdf", sourceName, 0, rangeMax, delta)
			normalise := func(hist []float64) []float64 {
				out := make([]float64, len(hist))
				total := 0.0
				for _, v := range hist {
					total += v
				}
				if total == 0 {
					return out
				}
				for i, v := range hist {
					out[i] = v / total
				}
				return out
			}
			process := procedure.NewProcess1D("rdf-normalised", "rdf", normalise)
			boxNode := procedure.NewBox("cell-volume")
			seq := procedure.NewSequence("bench-rdf", boxNode, collect, process)

			ctx := procedure.NewContext(cfg, cfg.Data)
			if err := seq.Prepare(ctx); err != nil {
				return fmt.Errorf("procedure prepare: %w", err)
			}
			if _, err := boxNode.Execute(ctx); err != nil {
				return fmt.Errorf("box execute: %w", err)
			}

			nAtoms := cfg.NAtoms()
			samples := 0
			for i := 0; i < nAtoms; i++ {
				for j := i + 1; j < nAtoms; j++ {
					pi := cfg.AtomPosition(i)
					pj := cfg.AtomPosition(j)
					dist := cfg.Box().MinimumDistance(pi, pj)

					genericlist.Add(cfg.Data, "value", ctx.Key(sourceName), dist, false)
					// Re-setting atom i's own position is a no-op geometrically
					// but bumps ContentsVersion, forcing Collect1D to treat
					// this sample as fresh rather than memoised.
					if err := cfg.SetAtomPosition(i, pi); err != nil {
						return fmt.Errorf("bumping contents version: %w", err)
					}

					if _, err := collect.Execute(ctx); err != nil {
						return fmt.Errorf("collect1d execute: %w", err)
					}
					samples++
				}
			}

			if _, err := process.Execute(ctx); err != nil {
				return fmt.Errorf("process1d execute: %w", err)
			}
			if err := seq.Finalise(ctx); err != nil {
				return fmt.Errorf("procedure finalise: %w", err)
			}

			volume, err := genericlist.Value[float64](cfg.Data, "volume", ctx.Key("cell-volume"))
			if err != nil {
				log.Warn("cell volume not recorded", logging.Err(err))
			}

			normalised, err := genericlist.Value[[]float64](cfg.Data, fmt.Sprintf("%s//Process1D//%s//%s", ctx.Prefix(), cfg.Name, "rdf-normalised"), "")
			if err != nil {
				return fmt.Errorf("reading normalised histogram: %w", err)
			}

			fmt.Printf("atoms:       %d\n", nAtoms)
			fmt.Printf("pair samples: %d\n", samples)
			fmt.Printf("cell volume: %.4f\n", volume)
			fmt.Printf("normalised histogram (%d bins):\n", len(normalised))
			for i, v := range normalised {
				lo := float64(i) * delta
				fmt.Printf("  [%.3f, %.3f) = %.6f\n", lo, lo+delta, v)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&nMolecules, "molecules", 32, "number of single-atom molecules to instance")
	cmd.Flags().Float64Var(&boxLength, "box-length", 20.0, "cubic box edge length (Angstrom)")
	cmd.Flags().Float64Var(&rangeMax, "range-max", 10.0, "upper bound of the histogram range (Angstrom)")
	cmd.Flags().Float64Var(&delta, "delta", 0.5, "histogram bin width (Angstrom)")

	return cmd
}
