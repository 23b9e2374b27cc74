package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestNewTrajectoryPlot(t *testing.T) {
	assert := assert.New(t)

	so, err := NewSecondOrder(oscillator, 1)
	assert.NoError(err)

	q0 := mat.NewVecDense(1, []float64{1})
	dq0 := mat.NewVecDense(1, nil)
	rec, err := so.Simulate(q0, dq0, nil, math.Pi, 0.01)
	assert.NoError(err)

	p, err := NewTrajectoryPlot(rec)
	assert.NoError(err)
	assert.NotNil(p)

	p, err = NewTrajectoryPlot(rec, "q", "dq")
	assert.NoError(err)
	assert.NotNil(p)

	p, err = NewTrajectoryPlot(nil)
	assert.Nil(p)
	assert.Error(err)

	p, err = NewTrajectoryPlot(&Record{})
	assert.Nil(p)
	assert.Error(err)
}
