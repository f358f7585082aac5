package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dissolveproject/dissolve/internal/box"
	"github.com/dissolveproject/dissolve/internal/infrastructure/database/neo4j"
	"github.com/dissolveproject/dissolve/internal/species"
)

// NewTopologyCmd loads a synthetic Species definition (a 3-atom bent
// molecule with two bonds) and pushes it to the TopologyStore backed by
// Neo4j, using the service's own TopologyConfig. This is expected to
// fail gracefully when no Neo4j instance is reachable; dissolve-bench is
// a smoke-test harness, not a substitute for a running deployment.
func NewTopologyCmd() *cobra.Command {
	var speciesName string

	cmd := &cobra.Command{
		Use:   "topology",
		Short: "Build a Species definition and push its bonded topology to the TopologyStore",
		RunE: func(cmd *cobra.Command, args []string) error {
			bc := GetBenchContext(cmd)
			log := bc.Logger.Named("topology")

			sp, err := buildBentTriatomic(speciesName)
			if err != nil {
				return fmt.Errorf("building species definition: %w", err)
			}

			driver, err := neo4j.NewDriver(bc.Config.Topology, bc.Logger)
			if err != nil {
				return fmt.Errorf("connecting to neo4j: %w", err)
			}
			defer driver.Close()

			store := neo4j.NewTopologyStore(driver)

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			if err := store.WriteSpeciesTopology(ctx, sp.Name, sp); err != nil {
				return fmt.Errorf("writing species topology: %w", err)
			}

			log.Info("wrote species topology")
			fmt.Printf("wrote topology for species %q: %d atoms, %d bonds, %d angles\n",
				sp.Name, len(sp.Atoms), len(sp.Bonds), len(sp.Angles))
			return nil
		},
	}

	cmd.Flags().StringVar(&speciesName, "species", "bench-water", "name to register the synthetic species under")

	return cmd
}

// buildBentTriatomic constructs a water-shaped 3-atom Species: one
// central atom bonded to two outer atoms, plus the bend angle between
// them, enough bonded topology to exercise WriteSpeciesTopology's node
// and edge writes.
func buildBentTriatomic(name string) (*species.Species, error) {
	sp, err := species.NewSpecies(name, 3)
	if err != nil {
		return nil, err
	}
	sp.Atoms[0] = species.SpeciesAtom{TypeIndex: 0, Position: box.Vec3{X: 0, Y: 0, Z: 0}, Charge: -0.8}
	sp.Atoms[1] = species.SpeciesAtom{TypeIndex: 1, Position: box.Vec3{X: 0.96, Y: 0, Z: 0}, Charge: 0.4}
	sp.Atoms[2] = species.SpeciesAtom{TypeIndex: 1, Position: box.Vec3{X: -0.24, Y: 0.93, Z: 0}, Charge: 0.4}

	if err := sp.AddBond(species.Bond{I: 0, J: 1, Kind: species.BondHarmonic, Parameters: []float64{450.0, 0.96}}); err != nil {
		return nil, err
	}
	if err := sp.AddBond(species.Bond{I: 0, J: 2, Kind: species.BondHarmonic, Parameters: []float64{450.0, 0.96}}); err != nil {
		return nil, err
	}
	if err := sp.AddAngle(species.Angle{I: 1, J: 0, K: 2, Kind: species.AngleHarmonic, Parameters: []float64{55.0, 104.5}}); err != nil {
		return nil, err
	}

	return sp, nil
}
