package extract

import (
	"regexp"
	"strconv"
	"strings"
)

var lineNumberPrefix = regexp.MustCompile(`^\s*([1-9]|1[0-9]|2[0-5])(\s+|$)`)

// minNumberedLines is how many numbered lines a page needs before its leading
// numbers are treated as a line number column
const minNumberedLines = 10

// FilterLineNumbers removes the line number column (1-25 at the start of each
// line) that deposition transcripts print in the left margin. Pages are only
// changed when enough lines carry a leading number and those numbers mostly
// count upwards one by one.
func FilterLineNumbers(text string) string {
	lines := strings.Split(text, "\n")

	numbered, ascending := 0, 0
	prev := 0
	for _, line := range lines {
		m := lineNumberPrefix.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		numbered++
		if n == prev+1 || n == 1 {
			ascending++
		}
		prev = n
	}

	if numbered < minNumberedLines || ascending*5 < numbered*4 {
		return text
	}

	for i, line := range lines {
		if loc := lineNumberPrefix.FindStringIndex(line); loc != nil {
			lines[i] = line[loc[1]:]
		}
	}
	return strings.Join(lines, "\n")
}
