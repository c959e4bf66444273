package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ayusman/accuread/internal/recognition"
)

// tsvColumns is the column count of tesseract's TSV output:
// level page block par line word left top width height conf text.
const tsvColumns = 12

type lineKey struct {
	page, block, par, line int
}

type lineAcc struct {
	words []string
	conf  float64
}

// parseTSV groups tesseract word rows into lines. Line confidence is the mean
// word confidence scaled to [0,1]; rows with negative confidence or empty
// text are layout rows and are skipped.
func parseTSV(r io.Reader) ([]recognition.Line, error) {
	sc := bufio.NewScanner(r)
	var (
		order  []lineKey
		groups = map[lineKey]*lineAcc{}
		header = true
	)

	for sc.Scan() {
		row := sc.Text()
		if header {
			header = false
			if strings.HasPrefix(row, "level") {
				continue
			}
		}
		cols := strings.Split(row, "\t")
		if len(cols) < tsvColumns {
			continue
		}

		text := strings.TrimSpace(strings.Join(cols[tsvColumns-1:], "\t"))
		conf, err := strconv.ParseFloat(cols[10], 64)
		if err != nil {
			return nil, fmt.Errorf("bad confidence %q: %w", cols[10], err)
		}
		if conf < 0 || text == "" {
			continue
		}

		var k lineKey
		for i, dst := range []*int{&k.page, &k.block, &k.par, &k.line} {
			v, err := strconv.Atoi(cols[i+1])
			if err != nil {
				return nil, fmt.Errorf("bad layout index %q: %w", cols[i+1], err)
			}
			*dst = v
		}

		acc, ok := groups[k]
		if !ok {
			acc = &lineAcc{}
			groups[k] = acc
			order = append(order, k)
		}
		acc.words = append(acc.words, text)
		acc.conf += conf
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	lines := make([]recognition.Line, 0, len(order))
	for _, k := range order {
		acc := groups[k]
		lines = append(lines, recognition.Line{
			Text:       strings.Join(acc.words, " "),
			Confidence: acc.conf / float64(len(acc.words)) / 100,
		})
	}
	return lines, nil
}
