package main

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/Full-finger/Loquat-sub001/bridge"
	"github.com/Full-finger/Loquat-sub001/errors"
	"github.com/Full-finger/Loquat-sub001/message"
)

// maxLineSize bounds a single stdin batch. Longer lines are skipped.
const maxLineSize = 4 * 1024 * 1024

// lineReader yields newline-terminated lines up to limit bytes. An oversized
// line is consumed to its newline and reported instead of ending the input.
type lineReader struct {
	r     *bufio.Reader
	limit int
}

func (lr *lineReader) next() (line []byte, tooLong bool, err error) {
	for {
		chunk, more, err := lr.r.ReadLine()
		if err != nil {
			if err == io.EOF && (len(line) > 0 || tooLong) {
				return line, tooLong, nil
			}
			return nil, false, err
		}
		if !tooLong {
			if len(line)+len(chunk) > lr.limit {
				tooLong, line = true, nil
			} else {
				line = append(line, chunk...)
			}
		}
		if !more {
			return line, tooLong, nil
		}
	}
}

// pumpBatches reads one JSON batch per line from r and submits it. Blank
// lines are skipped; oversized and undecodable lines are logged and skipped.
// A submit failure stops the pump.
func pumpBatches(ctx context.Context, r io.Reader, sub bridge.Submitter, logger *slog.Logger) (int, error) {
	lr := &lineReader{r: bufio.NewReaderSize(r, 64*1024), limit: maxLineSize}

	codec := bridge.JSONCodec{}
	line, submitted := 0, 0
	for {
		raw, tooLong, err := lr.next()
		if err == io.EOF {
			return submitted, nil
		}
		if err != nil {
			return submitted, errors.IO(err, "main", "pumpBatches", "read input")
		}
		line++
		if err := ctx.Err(); err != nil {
			return submitted, err
		}

		if tooLong {
			logger.Warn("Skipping oversized batch", "line", line, "max_bytes", maxLineSize)
			continue
		}
		text := bytes.TrimSpace(raw)
		if len(text) == 0 {
			continue
		}

		batch, err := codec.Decode(text)
		var pkgs []message.Package
		if err == nil {
			pkgs, err = batch.ToPackages()
		}
		if err != nil {
			logger.Warn("Skipping invalid batch", "line", line, "error", err)
			continue
		}
		if len(pkgs) == 0 {
			continue
		}

		if err := sub.SubmitWait(ctx, pkgs); err != nil {
			return submitted, errors.Wrap(err, "main", "pumpBatches", fmt.Sprintf("submit line %d", line))
		}
		submitted++
	}
}

// lineSink writes each released set as one JSON batch line.
type lineSink struct {
	mu    sync.Mutex
	w     io.Writer
	codec bridge.Codec
}

func newLineSink(w io.Writer) *lineSink {
	return &lineSink{w: w, codec: bridge.JSONCodec{}}
}

// Deliver implements pipeline.Sink.
func (s *lineSink) Deliver(_ context.Context, pkgs []message.Package) error {
	data, err := s.codec.Encode(bridge.NewBatch(pkgs))
	if err != nil {
		return err
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(data); err != nil {
		return errors.IO(err, "lineSink", "Deliver", "write batch")
	}
	return nil
}
