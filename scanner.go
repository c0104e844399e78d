package docweaver

import "strings"

type scanState int

const (
	stateScan      scanState = iota // copying text
	stateDirective                  // between the markers
	stateString                     // inside a quoted argument value
)

// region is one directive found in the source. Offsets are byte offsets
// into the scanned text.
type region struct {
	start     int // offset of the start marker
	end       int // offset just past the end marker
	bodyStart int // offset of the first byte after the start marker
	body      string
}

// scanner splits text into literal runs and directive regions in a single
// left-to-right pass. Quoted strings inside a directive may contain the end
// marker.
type scanner struct {
	startMark string
	endMark   string
}

// scan returns the directive regions of src in order. It fails with
// UnterminatedDirectiveError when a start marker is never closed.
func (s scanner) scan(src string) ([]region, error) {
	var (
		regions []region
		state   = stateScan
		cur     region
		quote   byte
	)
	i := 0
	for i < len(src) {
		switch state {
		case stateScan:
			if strings.HasPrefix(src[i:], s.startMark) {
				cur = region{start: i, bodyStart: i + len(s.startMark)}
				state = stateDirective
				i += len(s.startMark)
				continue
			}
			i++

		case stateDirective:
			c := src[i]
			if c == '"' || c == '\'' {
				quote = c
				state = stateString
				i++
				continue
			}
			if strings.HasPrefix(src[i:], s.endMark) {
				cur.body = src[cur.bodyStart:i]
				cur.end = i + len(s.endMark)
				regions = append(regions, cur)
				state = stateScan
				i = cur.end
				continue
			}
			i++

		case stateString:
			switch src[i] {
			case '\\':
				i += 2
			case quote:
				state = stateDirective
				i++
			default:
				i++
			}
		}
	}
	if state != stateScan {
		return nil, NewUnterminatedDirectiveError(src, cur.start, s.endMark)
	}
	return regions, nil
}
