package match

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// LoadTerms reads a term list from path. See ReadTerms for the format.
func LoadTerms(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadTerms(f)
}

// ReadTerms reads one term per line. Blank lines and lines starting with
// '#' are skipped; surrounding whitespace is trimmed.
func ReadTerms(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
