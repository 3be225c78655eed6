package search

import (
	"bytes"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/edsrzf/mmap-go"
)

// cpuMatcher applies the compiled content pattern to file bodies on worker
// goroutines. It is stateless apart from the shared read-only pattern, so
// one instance serves every worker in a session.
type cpuMatcher struct {
	re      *regexp.Regexp
	maxScan int64
}

// scanFile reads at most maxScan bytes of the file and matches the pattern.
// Binary-looking content returns no matches rather than nonsense hits. The
// error is only non-nil for read failures; callers count and move on.
func (m *cpuMatcher) scanFile(path string) ([]Match, error) {
	data, release, err := readCapped(path, m.maxScan)
	if err != nil {
		return nil, err
	}
	defer release()

	if looksBinary(data) {
		return nil, nil
	}
	return m.matchBuffer(data), nil
}

// matchBuffer returns the pattern's matches in one buffer, offset order,
// capped at maxMatchesPerFile.
func (m *cpuMatcher) matchBuffer(data []byte) []Match {
	return buildMatches(data, m.re.FindAllIndex(data, maxMatchesPerFile))
}

// buildMatches turns ascending [start,end) byte pairs into Matches with
// line numbers and excerpts. Both dispatch paths go through here, which is
// what keeps CPU and GPU output byte-identical for the same offsets — nil
// for no matches included.
func buildMatches(data []byte, locs [][]int) []Match {
	if len(locs) == 0 {
		return nil
	}
	matches := make([]Match, 0, len(locs))
	line, pos := 1, 0
	for _, loc := range locs {
		line += bytes.Count(data[pos:loc[0]], []byte{'\n'})
		pos = loc[0]
		matches = append(matches, Match{
			Line:    line,
			Offset:  int64(loc[0]),
			Excerpt: excerpt(data, loc[0]),
		})
	}
	return matches
}

// excerpt returns the line containing off, trimmed and capped.
func excerpt(data []byte, off int) string {
	start := bytes.LastIndexByte(data[:off], '\n') + 1
	end := bytes.IndexByte(data[off:], '\n')
	if end < 0 {
		end = len(data)
	} else {
		end += off
	}
	if end-start > excerptLimit {
		end = start + excerptLimit
	}
	return strings.TrimSpace(string(data[start:end]))
}

// looksBinary sniffs the first chunk for a NUL byte.
func looksBinary(data []byte) bool {
	n := len(data)
	if n > binarySniffLen {
		n = binarySniffLen
	}
	return bytes.IndexByte(data[:n], 0) >= 0
}

// readCapped returns at most limit bytes of the file: memory-mapped above
// the mmap threshold, read through the buffer pool below it. The release
// func must be called once the data is no longer referenced.
func readCapped(path string, limit int64) ([]byte, func(), error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	size := info.Size()
	if size > limit {
		size = limit
	}
	if size == 0 {
		f.Close()
		return nil, func() {}, nil
	}

	if size >= mmapThreshold {
		if m, err := mmap.Map(f, mmap.RDONLY, 0); err == nil {
			f.Close()
			data := []byte(m)
			if int64(len(data)) > size {
				data = data[:size]
			}
			return data, func() { _ = m.Unmap() }, nil
		}
		// mapping can fail on odd filesystems, fall through to a read
	}
	defer f.Close()

	buf := bufferPool.Get().([]byte)
	buf = buf[:cap(buf)]
	pooled := true
	if int64(len(buf)) < size {
		bufferPool.Put(buf)
		buf = make([]byte, size)
		pooled = false
	}
	data := buf[:size]
	if _, err := io.ReadFull(f, data); err != nil {
		if pooled {
			bufferPool.Put(buf)
		}
		return nil, nil, err
	}

	release := func() {}
	if pooled {
		release = func() { bufferPool.Put(buf) }
	}
	return data, release, nil
}
