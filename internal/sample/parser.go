// Package sample turns raw marks into samples and applies the limit and rescale policies.
package sample

import (
	"bufio"
	"math"
	"strconv"
	"strings"

	"gaussfit/domain/marks"
	"gaussfit/internal/errors"
)

// isDelimiter reports the token separators of a single-line marks file
func isDelimiter(r rune) bool {
	switch r {
	case ' ', ',', ';', ':', '\t':
		return true
	}
	return false
}

// Tokenize splits a delimited line into maximal runs of non-delimiter characters
func Tokenize(line string) []string {
	return strings.FieldsFunc(line, isDelimiter)
}

// Parse reads a marks file body: a title line followed either by one delimited line
// of marks, or by one mark per line.
func Parse(text string) (marks.Sample, error) {
	title, tokens := SplitText(text)
	return ParseTokens(title, tokens)
}

// SplitText separates the title from the raw tokens without classifying them.
// Blank lines before the title and after the last mark are ignored.
func SplitText(text string) (string, []string) {
	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if len(lines) == 0 && strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) == 0 {
		return "", nil
	}

	title := strings.TrimSpace(lines[0])
	body := lines[1:]
	if len(body) == 1 {
		return title, Tokenize(body[0])
	}

	tokens := make([]string, len(body))
	for i, line := range body {
		tokens[i] = strings.TrimSpace(line)
	}
	return title, tokens
}

// ParseTokens classifies every token as a mark or a missing entry.
// Only a structurally empty input is an error.
func ParseTokens(title string, tokens []string) (marks.Sample, error) {
	if len(tokens) == 0 {
		return marks.Sample{}, errors.ParseError("no marks found in input")
	}

	observations := make([]marks.Observation, len(tokens))
	for i, token := range tokens {
		if v, ok := parseMark(token); ok {
			observations[i] = marks.Value(i, v)
		} else {
			observations[i] = marks.Missing(i, token)
		}
	}
	return marks.NewSample(title, observations), nil
}

func parseMark(token string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(token), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
