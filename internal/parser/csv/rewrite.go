package csv

import (
	"bufio"
	"bytes"
	"io"
)

// Replacement is a literal byte sequence rewritten before the CSV reader sees
// it. Used for known broken quoting or stray bytes in real-world exports.
type Replacement struct {
	Old string `json:"old" yaml:"old"`
	New string `json:"new" yaml:"new"`
}

// streamingRewriter is an io.Reader that performs a rolling find/replace of
// several literal patterns without buffering the whole stream. The last
// maxLen-1 bytes of each block are carried into the next block so that a
// match spanning a chunk boundary is still found.
type streamingRewriter struct {
	br    *bufio.Reader
	rules []Replacement
	keep  int
	carry []byte
	buf   bytes.Buffer
	eof   bool
}

func newStreamingRewriter(r io.Reader, rules []Replacement) *streamingRewriter {
	keep := 0
	for _, rr := range rules {
		if n := len(rr.Old) - 1; n > keep {
			keep = n
		}
	}
	return &streamingRewriter{
		br:    bufio.NewReaderSize(r, 64*1024),
		rules: rules,
		keep:  keep,
		carry: make([]byte, 0, keep),
	}
}

// wrapScrub returns r unchanged when there is nothing to rewrite.
func wrapScrub(r io.Reader, rules []Replacement) io.Reader {
	active := rules[:0:0]
	for _, rr := range rules {
		if rr.Old != "" && rr.Old != rr.New {
			active = append(active, rr)
		}
	}
	if len(active) == 0 {
		return r
	}
	return newStreamingRewriter(r, active)
}

func (sr *streamingRewriter) Read(p []byte) (int, error) {
	if sr.buf.Len() > 0 {
		return sr.buf.Read(p)
	}
	if sr.eof {
		return 0, io.EOF
	}

	tmp := make([]byte, 64*1024)
	n, rerr := sr.br.Read(tmp)
	if n > 0 {
		block := tmp[:n]
		if len(sr.carry) > 0 {
			joined := make([]byte, 0, len(sr.carry)+len(block))
			joined = append(joined, sr.carry...)
			joined = append(joined, block...)
			block = joined
		}
		for _, rr := range sr.rules {
			block = bytes.ReplaceAll(block, []byte(rr.Old), []byte(rr.New))
		}

		if sr.keep > 0 && len(block) > sr.keep {
			sr.buf.Write(block[:len(block)-sr.keep])
			sr.carry = append(sr.carry[:0], block[len(block)-sr.keep:]...)
		} else if sr.keep > 0 {
			sr.carry = append(sr.carry[:0], block...)
		} else {
			sr.buf.Write(block)
		}
	}

	if rerr == io.EOF {
		if len(sr.carry) > 0 {
			sr.buf.Write(sr.carry)
			sr.carry = sr.carry[:0]
		}
		sr.eof = true
	} else if rerr != nil {
		return 0, rerr
	}

	if sr.buf.Len() > 0 {
		return sr.buf.Read(p)
	}
	if sr.eof {
		return 0, io.EOF
	}
	return 0, nil
}
