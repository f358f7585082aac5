package neo4j

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/dissolveproject/dissolve/internal/infrastructure/monitoring/logging"
	"github.com/dissolveproject/dissolve/internal/species"
)

func TestWriteSpeciesTopology_UsesSingleWriteTransaction(t *testing.T) {
	driverMock := new(mockInternalDriver)
	session := new(mockSession)
	driverMock.On("NewSession", mock.Anything, mock.Anything).Return(internalSession(session))
	session.On("Close", mock.Anything).Return(nil)
	session.On("ExecuteWrite", mock.Anything, mock.Anything).Return(nil, nil)

	d := &Driver{driver: driverMock, logger: logging.NewNopLogger()}
	store := NewTopologyStore(d)

	sp, err := species.NewSpecies("water", 3)
	assert.NoError(t, err)
	assert.NoError(t, sp.AddBond(species.Bond{I: 0, J: 1, Kind: species.BondHarmonic, Parameters: []float64{450, 1.0}}))

	err = store.WriteSpeciesTopology(context.Background(), "water", sp)
	assert.NoError(t, err)
	session.AssertNumberOfCalls(t, "ExecuteWrite", 1)
}
