package streaming

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Segment is a fixed-duration slice of a media file, derived per request and
// never persisted.
type Segment struct {
	Index    int
	Start    float64 // seconds
	Duration float64 // seconds
}

// NumberOfSegments returns how many full-length windows cover totalDuration.
func NumberOfSegments(totalDuration, segmentLength float64) int {
	if totalDuration <= 0 || segmentLength <= 0 {
		return 0
	}
	return int(math.Ceil(totalDuration / segmentLength))
}

// SegmentsFor slices totalDuration into consecutive segments of
// segmentLength seconds. The final segment carries the remainder when the
// duration is not an exact multiple.
func SegmentsFor(totalDuration, segmentLength float64) []Segment {
	count := NumberOfSegments(totalDuration, segmentLength)
	if count == 0 {
		return nil
	}

	segments := make([]Segment, 0, count)
	for i := 0; i < count; i++ {
		start := float64(i) * segmentLength
		duration := segmentLength
		if remaining := totalDuration - start; remaining < duration {
			duration = remaining
		}
		segments = append(segments, Segment{Index: i, Start: start, Duration: duration})
	}
	return segments
}

// SegmentWindow returns the transcode window for one requested segment
// index: seek to index*segmentLength, bounded to segmentLength or to the
// remainder for the final segment.
func SegmentWindow(index int, totalDuration, segmentLength float64) Segment {
	start := float64(index) * segmentLength
	duration := segmentLength
	if remaining := totalDuration - start; remaining > 0 && remaining < duration {
		duration = remaining
	}
	return Segment{Index: index, Start: start, Duration: duration}
}

// RenderPlaylist generates the VOD index document enumerating every segment
// of a file. The exact shape, including CRLF line endings and the
// boundary-inclusive final entry carrying the duration remainder, is what
// shipped clients parse; do not normalize it.
func RenderPlaylist(fileID string, totalDuration, segmentLength float64) string {
	var b strings.Builder

	b.WriteString("#EXTM3U\r\n")
	b.WriteString("#EXT-X-PLAYLIST-TYPE:VOD\r\n")
	b.WriteString("#EXT-X-TARGETDURATION:" + formatSeconds(segmentLength) + "\r\n")
	b.WriteString("#EXT-X-VERSION:4\r\n")
	b.WriteString("#EXT-X-MEDIA-SEQUENCE:0\r\n")

	numberOfSegments := NumberOfSegments(totalDuration, segmentLength)
	for segment := 0; segment <= numberOfSegments; segment++ {
		if segment == numberOfSegments {
			b.WriteString("#EXTINF:" + formatSeconds(math.Mod(totalDuration, segmentLength)) + "\r\n")
		} else {
			b.WriteString("#EXTINF:" + formatSeconds(segmentLength) + ",\r\n")
		}
		fmt.Fprintf(&b, "/HLS/%s/segment/%d\r\n", fileID, segment)
	}

	b.WriteString("#EXT-X-ENDLIST\r\n")
	return b.String()
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
