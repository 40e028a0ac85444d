package checkpointer

import (
	"fmt"
	"os"
)

// nEpisode implements checkpointing every N episodes
type nEpisode struct {
	interval int
	object   Saver // Object to save

	// filename returns the filename of the checkpoint of an episode.
	// To enumerate checkpoints by episode use FilenameEnumerator.
	filename func(int) string
}

// NewNEpisode returns a checkpointer that checkpoints object on every
// episode whose number is a multiple of n. The directory of the
// checkpoint files is created if it does not exist.
func NewNEpisode(n int, object Saver, filename func(int) string,
	dir string) (Checkpointer, error) {
	if n < 1 {
		return nil, fmt.Errorf("newnepisode: interval must be positive"+
			"\n\twant(>0)\n\thave(%v)", n)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("newnepisode: could not create checkpoint "+
			"directory: %w", err)
	}

	return &nEpisode{
		interval: n,
		object:   object,
		filename: filename,
	}, nil
}

// Checkpoint checkpoints the Checkpointer's tracked object by calling
// its Save() method
func (n *nEpisode) Checkpoint(episode int) (string, error) {
	if episode%n.interval != 0 {
		return "", nil
	}

	path := n.filename(episode)
	if err := n.object.Save(path); err != nil {
		return "", fmt.Errorf("checkpoint: %w", err)
	}
	return path, nil
}
