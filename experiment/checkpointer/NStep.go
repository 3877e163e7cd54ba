package checkpointer

import (
	"fmt"

	ts "github.com/rlgrid/gridsim/timestep"
)

// NStep implements checkpointing every N environment steps, counted
// across episodes
type NStep struct {
	interval int
	steps    int
	object   Serializable // Object to save

	// filename returns the filename of the file to save the object in.
	//
	// If each serialized object should be saved in a separate file with
	// each file having an incremented number as a suffix (e.g.
	// file1.bin, file2.bin, ..., fileK.bin), then simply use the
	// static function FilenameEnumerator, which will return a function
	// that will enumerate filenames.
	filename func() string
}

// NewNStep returns a checkpointer that checkpoints every n steps.
func NewNStep(n int, object Serializable,
	filename func() string) (*NStep, error) {
	if n <= 0 {
		return nil, fmt.Errorf("newNStep: interval must be positive, have %d",
			n)
	}
	return &NStep{
		interval: n,
		object:   object,
		filename: filename,
	}, nil
}

// Checkpoint checkpoints the Checkpointer's tracked object by calling
// its Save() method once every n calls. The first TimeStep of each
// episode is not counted as a step.
func (n *NStep) Checkpoint(t ts.TimeStep) error {
	if t.First() {
		return nil
	}

	n.steps++
	if n.steps%n.interval == 0 {
		if err := n.object.Save(n.filename()); err != nil {
			return fmt.Errorf("checkpoint: %w", err)
		}
	}
	return nil
}
