package search

// Dispatch between the CPU and GPU matchers. The decision is a single
// stateless policy call per batch; nothing else in the engine branches on
// which path a batch took.

// useGPU reports whether a batch is worth offloading: a live device, the
// request opted in, the pattern has a device-eligible needle, and the
// batch carries enough bytes to amortize the transfer.
func (s *Session) useGPU(batchBytes int64) bool {
	return s.device != nil &&
		!s.gpuLost.Load() &&
		s.pattern.needle != nil &&
		batchBytes >= s.engine.gpuMinBytes
}

// runBatchCPU scans each file in the batch with the regex engine.
func (s *Session) runBatchCPU(batch []candidate) {
	s.cpuBatches.Add(1)
	for _, c := range batch {
		matches, err := s.matcher.scanFile(c.path)
		if err != nil {
			s.skippedFiles.Add(1)
			logDebug("unreadable file %s: %v", c.path, err)
			continue
		}
		s.emitContent(c, matches)
	}
}

// runBatchGPU loads the batch into memory and offloads the literal kernel.
// Any device error falls back to CPU matching of the already-loaded
// buffers and retires the device for the rest of the session; callers see
// identical results either way.
func (s *Session) runBatchGPU(batch []candidate) {
	s.gpuBatches.Add(1)

	buffers := make([][]byte, 0, len(batch))
	kept := make([]candidate, 0, len(batch))
	releases := make([]func(), 0, len(batch))
	defer func() {
		for _, release := range releases {
			release()
		}
	}()

	for _, c := range batch {
		data, release, err := readCapped(c.path, s.matcher.maxScan)
		if err != nil {
			s.skippedFiles.Add(1)
			logDebug("unreadable file %s: %v", c.path, err)
			continue
		}
		if looksBinary(data) {
			release()
			continue
		}
		kept = append(kept, c)
		buffers = append(buffers, data)
		releases = append(releases, release)
	}
	if len(kept) == 0 {
		return
	}

	offsets, err := s.device.MatchBatch(s.pattern.needle, buffers)
	if err != nil {
		s.markGPULost(err)
		for i, c := range kept {
			s.emitContent(c, s.matcher.matchBuffer(buffers[i]))
		}
		return
	}

	for i, c := range kept {
		locs := normalizeOffsets(offsets[i], len(s.pattern.needle))
		s.emitContent(c, buildMatches(buffers[i], locs))
	}
}

// normalizeOffsets reduces the kernel's every-occurrence offsets to the
// leftmost non-overlapping matches the regex engine would report.
func normalizeOffsets(offs []int, needleLen int) [][]int {
	locs := make([][]int, 0, len(offs))
	next := 0
	for _, o := range offs {
		if o < next {
			continue
		}
		locs = append(locs, []int{o, o + needleLen})
		next = o + needleLen
		if len(locs) >= maxMatchesPerFile {
			break
		}
	}
	return locs
}
