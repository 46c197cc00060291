// Package golden compares byte images against golden files.
//
// Golden files are text: whitespace separated hex bytes, 16 per
// line, with '#' starting a comment line.
package golden

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

// CompareBytes compares got with the golden file at path. If
// update is set, the golden file is rewritten with got instead.
func CompareBytes(path string, update bool, got []byte) error {
	if update {
		return os.WriteFile(path, Encode(got), 0o640)
	}
	enc, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	want, err := Decode(enc)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if bytes.Equal(got, want) {
		return nil
	}
	mismatches := 0
	first := -1
	for i := range min(len(got), len(want)) {
		if got[i] != want[i] {
			if first == -1 {
				first = i
			}
			mismatches++
		}
	}
	if first == -1 {
		first = min(len(got), len(want))
	}
	return fmt.Errorf("%s: lengths %d, %d, with %d byte mismatches, first at offset %d", path, len(got), len(want), mismatches, first)
}

// Encode formats b as a golden file.
func Encode(b []byte) []byte {
	buf := new(bytes.Buffer)
	for len(b) > 0 {
		n := min(len(b), 16)
		fmt.Fprintf(buf, "% x\n", b[:n])
		b = b[n:]
	}
	return buf.Bytes()
}

// Decode parses a golden file.
func Decode(enc []byte) ([]byte, error) {
	var out []byte
	s := bufio.NewScanner(bytes.NewReader(enc))
	line := 0
	for s.Scan() {
		line++
		l := strings.TrimSpace(s.Text())
		if l == "" || strings.HasPrefix(l, "#") {
			continue
		}
		for _, f := range strings.Fields(l) {
			b, err := hex.DecodeString(f)
			if err != nil || len(b) != 1 {
				return nil, fmt.Errorf("line %d: invalid byte %q", line, f)
			}
			out = append(out, b[0])
		}
	}
	return out, s.Err()
}
