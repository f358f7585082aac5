package neo4j

import (
	"context"
	"fmt"

	"github.com/dissolveproject/dissolve/internal/species"
)

// TopologyStore mirrors a Species' bonded topology as a property graph:
// one node per atom, one BONDED relationship per bond. Angles and torsions
// are not written. It exists
// for graph queries (ring perception, connected-component checks) that
// are awkward to express directly over species.Species's index slices;
// the in-memory Species remains authoritative for every simulation-time
// read.
type TopologyStore struct {
	driver *Driver
}

// NewTopologyStore wraps an already-connected Driver.
func NewTopologyStore(driver *Driver) *TopologyStore {
	return &TopologyStore{driver: driver}
}

// WriteSpeciesTopology replaces the mirrored graph for the named species
// with one derived from sp: every prior existing atom/bond node for this
// species is deleted first so the write is idempotent.
func (t *TopologyStore) WriteSpeciesTopology(ctx context.Context, name string, sp *species.Species) error {
	_, err := t.driver.ExecuteWrite(ctx, func(tx Transaction) (interface{}, error) {
		if _, err := tx.Run(ctx, `
			MATCH (a:Atom {species: $species})
			DETACH DELETE a
		`, map[string]any{"species": name}); err != nil {
			return nil, err
		}

		for i, atom := range sp.Atoms {
			if _, err := tx.Run(ctx, `
				CREATE (:Atom {species: $species, index: $index, type_index: $type_index})
			`, map[string]any{"species": name, "index": i, "type_index": atom.TypeIndex}); err != nil {
				return nil, err
			}
		}

		for _, b := range sp.Bonds {
			if _, err := tx.Run(ctx, `
				MATCH (a:Atom {species: $species, index: $i}), (b:Atom {species: $species, index: $j})
				CREATE (a)-[:BONDED {kind: $kind}]->(b)
			`, map[string]any{"species": name, "i": b.I, "j": b.J, "kind": int(b.Kind)}); err != nil {
				return nil, err
			}
		}

		return nil, nil
	})
	return err
}

// bondEdge is one BONDED relationship read back from the graph.
type bondEdge struct {
	I, J int
}

// ReadBondedPairs returns every bonded atom-index pair mirrored for the
// named species, used to cross-check the in-memory topology against the
// graph after a write.
func (t *TopologyStore) ReadBondedPairs(ctx context.Context, name string) ([]bondEdge, error) {
	res, err := t.driver.ExecuteRead(ctx, func(tx Transaction) (interface{}, error) {
		result, err := tx.Run(ctx, `
			MATCH (a:Atom {species: $species})-[:BONDED]->(b:Atom {species: $species})
			RETURN a.index AS i, b.index AS j
		`, map[string]any{"species": name})
		if err != nil {
			return nil, err
		}

		var edges []bondEdge
		for result.Next(ctx) {
			rec := result.Record()
			iVal, _ := rec.Values[0].(int64)
			jVal, _ := rec.Values[1].(int64)
			edges = append(edges, bondEdge{I: int(iVal), J: int(jVal)})
		}
		if err := result.Err(); err != nil {
			return nil, err
		}
		return edges, nil
	})
	if err != nil {
		return nil, err
	}
	edges, _ := res.([]bondEdge)
	return edges, nil
}

// DeleteSpeciesTopology removes every mirrored atom/bond node for name.
func (t *TopologyStore) DeleteSpeciesTopology(ctx context.Context, name string) error {
	_, err := t.driver.ExecuteWrite(ctx, func(tx Transaction) (interface{}, error) {
		_, err := tx.Run(ctx, `MATCH (a:Atom {species: $species}) DETACH DELETE a`, map[string]any{"species": name})
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("delete species topology for %q: %w", name, err)
	}
	return nil
}
