// Package checkpointer implements checkpointing of learned weights
// during an experiment
package checkpointer

// Saver is an object whose state can be saved to a file
type Saver interface {
	Save(path string) error
}

// Checkpointer checkpoints/saves objects at the end of episodes
type Checkpointer interface {
	// Checkpoint is called at the end of each episode with the
	// 0-indexed episode number. It returns the path written, or an
	// empty string if no checkpoint was taken.
	Checkpoint(episode int) (string, error)
}
