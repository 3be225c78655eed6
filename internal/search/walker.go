package search

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
)

// walker streams file candidates from a pre-order depth-first traversal.
// Excluded directories are pruned before descending, so their subtrees are
// never read. Unreadable directories are counted and skipped; only a root
// that cannot be listed is an error. Cancellation is checked between
// directory listings, so latency is bounded by one directory, not the tree.
type walker struct {
	ctx      context.Context
	exclude  map[string]bool // directory basenames
	hidden   bool            // descend into dot-directories
	dirErrs  *atomic.Int64
	fileErrs *atomic.Int64
}

// run walks root and sends candidates to out, closing it when the walk
// ends for any reason. Symlinks are never followed, which also rules out
// traversal cycles.
func (w *walker) run(root string, out chan<- candidate) error {
	defer close(out)

	stack := []string{root}
	first := true

	for len(stack) > 0 {
		if w.ctx.Err() != nil {
			return nil
		}

		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := os.ReadDir(dir)
		if err != nil {
			if first {
				return err
			}
			w.dirErrs.Add(1)
			logWarn("skipping directory %s: %v", dir, err)
			continue
		}
		first = false

		// Collect subdirectories separately and push them in reverse so
		// the stack pops them in listing order.
		var dirs []string
		for _, e := range entries {
			name := e.Name()

			if e.IsDir() {
				if w.skipDir(name) {
					logDebug("pruned directory %s", filepath.Join(dir, name))
					continue
				}
				dirs = append(dirs, filepath.Join(dir, name))
				continue
			}
			if !e.Type().IsRegular() {
				continue
			}
			if !w.hidden && strings.HasPrefix(name, ".") {
				continue
			}

			info, err := e.Info()
			if err != nil {
				// vanished between listing and stat
				w.fileErrs.Add(1)
				continue
			}

			c := candidate{
				path:    filepath.Join(dir, name),
				size:    info.Size(),
				modTime: info.ModTime(),
				ext:     strings.ToLower(strings.TrimPrefix(filepath.Ext(name), ".")),
			}
			select {
			case out <- c:
			case <-w.ctx.Done():
				return nil
			}
		}

		for i := len(dirs) - 1; i >= 0; i-- {
			stack = append(stack, dirs[i])
		}
	}
	return nil
}

func (w *walker) skipDir(name string) bool {
	if !w.hidden && strings.HasPrefix(name, ".") {
		return true
	}
	return skipDirs[name] || w.exclude[name]
}
