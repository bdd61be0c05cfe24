package report

import (
	"encoding/csv"
	"io"
)

// CSVWriter exports one row per mention.
type CSVWriter struct {
	baseWriter
}

// NewCSVWriter creates a CSVWriter that outputs to the given writer.
func NewCSVWriter(output io.Writer) *CSVWriter {
	return &CSVWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs a header row and every mention.
func (w *CSVWriter) Write(s *Summary) (int, error) {
	cw := &countingWriter{w: w.output}
	c := csv.NewWriter(cw)
	if err := c.Write(mentionHeader); err != nil {
		return cw.n, err
	}
	for _, m := range s.Mentions {
		if err := c.Write(mentionRow(m)); err != nil {
			return cw.n, err
		}
	}
	c.Flush()
	return cw.n, c.Error()
}

type countingWriter struct {
	w io.Writer
	n int
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += n
	return n, err
}
