package transcript

import (
	"bufio"
	"fmt"
	"io"

	"github.com/google/renameio/v2"
)

// Header precedes the segment lines in every transcript file.
const Header = "TIMESTAMPED TRANSCRIPT\n===================\n\n"

// Write renders the transcript to w: the header, then one line per segment.
// Segment order is written as given.
func Write(w io.Writer, result Result) error {
	bw := bufio.NewWriter(w)
	if _, err := io.WriteString(bw, Header); err != nil {
		return err
	}
	for _, seg := range result.Segments {
		if _, err := fmt.Fprintln(bw, SegmentLine(seg)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteFile atomically replaces path with the rendered transcript.
func WriteFile(path string, result Result) error {
	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("create transcript file %s: %w", path, err)
	}
	defer func() {
		_ = pending.Cleanup()
	}()

	if err := Write(pending, result); err != nil {
		return fmt.Errorf("write transcript %s: %w", path, err)
	}

	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("commit transcript %s: %w", path, err)
	}
	return nil
}
