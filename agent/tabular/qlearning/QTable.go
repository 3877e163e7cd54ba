package qlearning

import (
	"fmt"
	"math"

	"github.com/rlgrid/gridsim/utils/floatutils"
	"github.com/rlgrid/gridsim/utils/matutils"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/stat/distuv"
)

// MaxStates is the largest number of states a QTable may enumerate
const MaxStates = 1 << 22

// QTable stores one action value per (state, action) pair of a
// discrete environment. States are discrete observation vectors
// enumerated in mixed-radix order given the observation bounds.
type QTable struct {
	bounds []r1.Interval
	values *mat.Dense // states x actions
}

// NewQTable returns a QTable over all observations within bounds. If
// init is non-nil, action values are sampled from it, otherwise they
// are zero.
func NewQTable(bounds []r1.Interval, actions int,
	init distuv.Rander) (*QTable, error) {
	if actions <= 0 {
		return nil, fmt.Errorf("newQTable: need at least one action, have %d",
			actions)
	}

	states := 1
	for _, radix := range matutils.Radices(bounds) {
		if radix <= 0 || states > MaxStates/radix {
			return nil, fmt.Errorf("newQTable: observation space too large "+
				"to enumerate (more than %d states)", MaxStates)
		}
		states *= radix
	}

	values := mat.NewDense(states, actions, nil)
	if init != nil {
		raw := values.RawMatrix().Data
		for i := range raw {
			raw[i] = init.Rand()
		}
	}

	b := make([]r1.Interval, len(bounds))
	copy(b, bounds)
	return &QTable{bounds: b, values: values}, nil
}

// Dims returns the number of states and actions in the table
func (q *QTable) Dims() (states, actions int) {
	return q.values.Dims()
}

// Index returns the row of the table holding the action values of obs
func (q *QTable) Index(obs mat.Vector) (int, error) {
	return matutils.Ravel(obs, q.bounds)
}

// Values returns a copy of the action values of obs
func (q *QTable) Values(obs mat.Vector) ([]float64, error) {
	i, err := q.Index(obs)
	if err != nil {
		return nil, fmt.Errorf("values: %w", err)
	}

	row := q.values.RawRowView(i)
	values := make([]float64, len(row))
	copy(values, row)
	return values, nil
}

// At returns the action value of action in obs
func (q *QTable) At(obs mat.Vector, action int) (float64, error) {
	i, err := q.Index(obs)
	if err != nil {
		return math.NaN(), fmt.Errorf("at: %w", err)
	}
	return q.values.At(i, action), nil
}

// Max returns the largest action value of obs
func (q *QTable) Max(obs mat.Vector) (float64, error) {
	values, err := q.Values(obs)
	if err != nil {
		return math.NaN(), fmt.Errorf("max: %w", err)
	}
	return floatutils.Max(values...), nil
}

// Update moves the action value of action in obs a fraction
// learningRate of the way towards target
func (q *QTable) Update(obs mat.Vector, action int, target,
	learningRate float64) error {
	i, err := q.Index(obs)
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}

	current := q.values.At(i, action)
	q.values.Set(i, action, current+learningRate*(target-current))
	return nil
}

// tableData is the gob encoded form of a QTable
type tableData struct {
	Bounds  []r1.Interval
	States  int
	Actions int
	Values  []float64
}

func (q *QTable) data() tableData {
	states, actions := q.values.Dims()
	values := make([]float64, states*actions)
	for i := 0; i < states; i++ {
		copy(values[i*actions:], q.values.RawRowView(i))
	}
	return tableData{q.bounds, states, actions, values}
}

func fromData(d tableData) (*QTable, error) {
	if d.States*d.Actions != len(d.Values) {
		return nil, fmt.Errorf("fromData: have %d values for a %dx%d table",
			len(d.Values), d.States, d.Actions)
	}
	return &QTable{
		bounds: d.Bounds,
		values: mat.NewDense(d.States, d.Actions, d.Values),
	}, nil
}
