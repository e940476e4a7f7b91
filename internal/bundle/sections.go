package bundle

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"
)

// Section is one delimited block recovered from a bundle.
type Section struct {
	Location string
	Content  []byte
}

// Sections splits bundle text back into its blocks. Text before the first
// START line (the preamble) is ignored. It reports an error for a START
// without a matching END.
func Sections(text []byte) ([]Section, error) {
	const (
		startPrefix = rule + " START: "
		endPrefix   = rule + " END: "
		suffix      = " " + rule
	)

	var (
		sections []Section
		current  *Section
		body     bytes.Buffer
	)

	scanner := bufio.NewScanner(bytes.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), len(text)+1)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case current == nil && strings.HasPrefix(line, startPrefix) && strings.HasSuffix(line, suffix):
			loc := strings.TrimSuffix(strings.TrimPrefix(line, startPrefix), suffix)
			current = &Section{Location: loc}
			body.Reset()
		case current != nil && line == endPrefix+current.Location+suffix:
			current.Content = append([]byte(nil), body.Bytes()...)
			sections = append(sections, *current)
			current = nil
		case current != nil:
			body.WriteString(line)
			body.WriteByte('\n')
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if current != nil {
		return nil, fmt.Errorf("block %s has no END line", current.Location)
	}
	return sections, nil
}
