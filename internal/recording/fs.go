package recording

import (
	"context"
	"os"
	"path/filepath"
)

// FSLocator looks for recordings below a local root directory.
type FSLocator struct {
	Root string
}

func (l FSLocator) Find(_ context.Context, sessionID string) (Recording, bool, error) {
	dir := filepath.Join(l.Root, filepath.FromSlash(Prefix(sessionID)))
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return Recording{}, false, nil
	}
	if err != nil {
		return Recording{}, false, err
	}

	var objs []Recording
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		full := filepath.Join(dir, e.Name())
		objs = append(objs, Recording{
			Key:     Prefix(sessionID) + e.Name(),
			URL:     "file://" + filepath.ToSlash(full),
			Updated: info.ModTime(),
			Size:    info.Size(),
		})
	}
	rec, ok := latest(objs)
	return rec, ok, nil
}
