package checkpointer

import (
	"os"
	"path/filepath"
	"testing"
)

type fileSaver struct {
	saved []string
}

func (f *fileSaver) Save(path string) error {
	f.saved = append(f.saved, path)
	return os.WriteFile(path, []byte("weights"), 0o644)
}

func TestNEpisode(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "checkpoints")
	saver := &fileSaver{}

	c, err := NewNEpisode(5, saver,
		FilenameEnumerator(dir, "agent_episode_", ".gob"), dir)
	if err != nil {
		t.Fatal(err)
	}

	for episode := 0; episode < 12; episode++ {
		if _, err := c.Checkpoint(episode); err != nil {
			t.Fatal(err)
		}
	}

	want := []string{
		filepath.Join(dir, "agent_episode_0.gob"),
		filepath.Join(dir, "agent_episode_5.gob"),
		filepath.Join(dir, "agent_episode_10.gob"),
	}
	if len(saver.saved) != len(want) {
		t.Fatalf("checkpoints: want(%v) have(%v)", want, saver.saved)
	}
	for i := range want {
		if saver.saved[i] != want[i] {
			t.Errorf("checkpoint %v: want(%v) have(%v)", i, want[i],
				saver.saved[i])
		}
		if _, err := os.Stat(want[i]); err != nil {
			t.Errorf("checkpoint %v not written: %v", i, err)
		}
	}
}

func TestNEpisodeInvalidInterval(t *testing.T) {
	if _, err := NewNEpisode(0, &fileSaver{}, nil, t.TempDir()); err == nil {
		t.Error("expected an error for a zero interval")
	}
}
