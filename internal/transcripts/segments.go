package transcripts

import (
	"regexp"
	"strconv"
	"strings"
)

// Transcript text is stored as plain lines, optionally prefixed with a
// [mm:ss] or [hh:mm:ss] timestamp. Raw pasted transcripts often have no
// timestamps at all.
var timestampRe = regexp.MustCompile(`^\[(?:(\d{1,2}):)?(\d{1,2}):(\d{2})\]\s*(.*)$`)

// ParseSegments splits stored transcript text into timestamped segments.
// Lines with a timestamp prefix start a new segment at that offset;
// continuation lines are appended to the current segment. Text with no
// timestamps at all becomes a single segment at offset 0. Blank input
// yields no segments.
func ParseSegments(transcript string) []Segment {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return nil
	}

	var segments []Segment
	for _, line := range strings.Split(transcript, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		m := timestampRe.FindStringSubmatch(line)
		if m == nil {
			if len(segments) == 0 {
				segments = append(segments, Segment{OffsetMs: 0})
			}
			last := &segments[len(segments)-1]
			if last.Text == "" {
				last.Text = line
			} else {
				last.Text += " " + line
			}
			continue
		}

		var hours int64
		if m[1] != "" {
			hours, _ = strconv.ParseInt(m[1], 10, 64)
		}
		minutes, _ := strconv.ParseInt(m[2], 10, 64)
		seconds, _ := strconv.ParseInt(m[3], 10, 64)

		segments = append(segments, Segment{
			Text:     m[4],
			OffsetMs: ((hours*60+minutes)*60 + seconds) * 1000,
		})
	}

	// Drop empty trailing segments from timestamp-only lines.
	out := segments[:0]
	for _, s := range segments {
		if strings.TrimSpace(s.Text) != "" {
			out = append(out, s)
		}
	}
	return out
}
