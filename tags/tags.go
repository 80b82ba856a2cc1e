// Package tags implements the "!tags.m3u"-style sidecar tag scanner
// (spec.md §3.1, §6.1): a companion text file living next to a playlist or
// a bank of streams, holding blocks of `key=value` lines under a
// `target_filename` header line. Lookup is a simple forward scan, not an
// index — tag files are small and read once per track change.
package tags

import (
	"bufio"
	"bytes"
	"strings"

	"github.com/farcloser/vgmgo/streamfile"
)

// Reader iterates (key, value) pairs belonging to whichever target
// filename was last located with Find. It holds the whole sidecar in
// memory (tag files are a handful of kilobytes at most) and re-scans from
// the first line on every Find call, mirroring the forward-scan
// contract the host line in spec.md §3.1 documents ("purely string
// iteration; not in the hot decode path").
type Reader struct {
	lines []string
	// commands apply to every subsequent target until overridden; see
	// Find's "global" pass below.
	globalKV map[string]string

	blockStart int
	blockEnd   int
	cursor     int
}

// Init reads the whole sidecar stream into memory and prepares a Reader.
// sf is the already-opened "!tags.m3u" (or similarly named) companion
// file; callers locate it themselves via StreamFile.OpenSibling, same as
// every other cross-file reference in this engine.
func Init(sf streamfile.File) (*Reader, error) {
	size := sf.Size()
	buf := make([]byte, size)
	if _, err := streamfile.ReadFull(sf, buf, 0); err != nil {
		return nil, err
	}

	r := &Reader{globalKV: map[string]string{}}
	scanner := bufio.NewScanner(bytes.NewReader(buf))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		r.lines = append(r.lines, line)
	}
	return r, nil
}

// isTargetLine reports whether line names a target filename rather than a
// key=value pair, a comment, or a global directive. Target lines don't
// contain '=' and don't start with '#'.
func isTargetLine(line string) bool {
	if strings.HasPrefix(line, "#") {
		return false
	}
	return !strings.Contains(line, "=")
}

// Find locates the tag block for targetFilename (matched case-sensitively
// against the bare filename, same as the line text), resetting Next's
// iteration cursor to the start of that block. Lines before the first
// target line apply globally to every target (spec.md §4.1's sidecar
// convention) and are folded in ahead of the per-target pairs, with
// per-target pairs taking priority on key collision.
func (r *Reader) Find(targetFilename string) bool {
	r.globalKV = map[string]string{}
	r.blockStart = -1
	r.blockEnd = -1

	i := 0
	for i < len(r.lines) && !isTargetLine(r.lines[i]) {
		if k, v, ok := splitKV(r.lines[i]); ok {
			r.globalKV[k] = v
		}
		i++
	}

	for i < len(r.lines) {
		if isTargetLine(r.lines[i]) && matchesTarget(r.lines[i], targetFilename) {
			r.blockStart = i + 1
			j := i + 1
			for j < len(r.lines) && !isTargetLine(r.lines[j]) {
				j++
			}
			r.blockEnd = j
			r.cursor = r.blockStart
			return true
		}
		i++
		for i < len(r.lines) && !isTargetLine(r.lines[i]) {
			i++
		}
	}
	return false
}

// matchesTarget compares a target line to the filename being looked up.
// A bare "*" wildcard line matches any file. Find takes the first matching
// target line in file order, so a "*" block placed before a file's own
// block is the one selected.
func matchesTarget(line, targetFilename string) bool {
	return line == targetFilename || line == "*"
}

func splitKV(line string) (key, value string, ok bool) {
	idx := strings.IndexByte(line, '=')
	if idx < 0 {
		return "", "", false
	}
	return strings.TrimSpace(line[:idx]), strings.TrimSpace(line[idx+1:]), true
}

// Next advances the iterator and returns the next (key, value) pair in the
// matched block, reporting ok=false once the block (or the global prefix,
// once the block is exhausted) is consumed.
func (r *Reader) Next() (key, value string, ok bool) {
	for r.cursor < r.blockEnd {
		line := r.lines[r.cursor]
		r.cursor++
		if k, v, ok := splitKV(line); ok {
			delete(r.globalKV, k)
			return k, v, true
		}
	}
	// Block exhausted: drain any global keys not already overridden by a
	// per-block pair we've already yielded this pass.
	for k, v := range r.globalKV {
		delete(r.globalKV, k)
		return k, v, true
	}
	return "", "", false
}
