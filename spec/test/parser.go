package test

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"regexp"
)

// TestCase is a source text and the trees expected from parsing it. Trees are written in the
// tree-literal notation; more than one tree describes the derivations of an ambiguous parse.
type TestCase struct {
	Description string
	Source      string
	Trees       []*TreeText
}

// TreeText is a tree literal and the line of the test case file it starts at.
type TreeText struct {
	Text string
	Line int
}

// ParseTestCase reads a test case made of parts separated by lines of dashes:
//
//	description
//	---
//	source
//	---
//	tree
//	---
//	another tree of the same source
func ParseTestCase(r io.Reader) (*TestCase, error) {
	parts, err := splitIntoParts(r)
	if err != nil {
		return nil, err
	}
	if len(parts) < 3 {
		return nil, fmt.Errorf("too few part delimiters: a test case consists of a description, a source and at least one tree: %v parts found", len(parts))
	}

	c := &TestCase{
		Description: string(parts[0].buf),
		Source:      string(parts[1].buf),
	}
	line := parts[0].lineCount + parts[1].lineCount + 3
	for _, part := range parts[2:] {
		c.Trees = append(c.Trees, &TreeText{
			Text: string(part.buf),
			Line: line,
		})
		line += part.lineCount + 1
	}
	return c, nil
}

type testCasePart struct {
	buf       []byte
	lineCount int
}

func splitIntoParts(r io.Reader) ([]*testCasePart, error) {
	var bufs []*testCasePart
	s := bufio.NewScanner(r)
	for {
		buf, lineCount, err := readPart(s)
		if err != nil {
			return nil, err
		}
		if buf == nil {
			break
		}
		bufs = append(bufs, &testCasePart{
			buf:       buf,
			lineCount: lineCount,
		})
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return bufs, nil
}

var reDelim = regexp.MustCompile(`^\s*---+\s*$`)

func readPart(s *bufio.Scanner) ([]byte, int, error) {
	if !s.Scan() {
		return nil, 0, s.Err()
	}
	buf := &bytes.Buffer{}
	line := s.Bytes()
	if reDelim.Match(line) {
		// (*bytes.Buffer).Bytes() returns nil when nothing has been written, and nil ends the parts.
		return []byte{}, 0, nil
	}
	buf.Write(line)
	lineCount := 1
	for s.Scan() {
		line := s.Bytes()
		if reDelim.Match(line) {
			return buf.Bytes(), lineCount, nil
		}
		buf.WriteString("\n")
		buf.Write(line)
		lineCount++
	}
	if err := s.Err(); err != nil {
		return nil, 0, err
	}
	return buf.Bytes(), lineCount, nil
}
