package checkpointer

import (
	"fmt"
	"path/filepath"
)

// FilenameEnumerator returns a function which returns, for an
// episode number, the checkpoint filename in dir with the episode
// number as a suffix. For example, with prefix "agent_episode_" and
// extension ".gob", episode 10 is saved in dir/agent_episode_10.gob.
func FilenameEnumerator(dir, prefix, extension string) func(int) string {
	return func(episode int) string {
		return filepath.Join(dir, fmt.Sprintf("%v%v%v", prefix, episode,
			extension))
	}
}
