package streaming

import (
	"strings"
	"testing"
)

func TestNumberOfSegments(t *testing.T) {
	tests := []struct {
		total  float64
		segLen float64
		want   int
	}{
		{total: 25, segLen: 10, want: 3},
		{total: 30, segLen: 10, want: 3},
		{total: 30.1, segLen: 10, want: 4},
		{total: 5, segLen: 10, want: 1},
		{total: 0, segLen: 10, want: 0},
		{total: 10, segLen: 0, want: 0},
	}

	for _, tc := range tests {
		if got := NumberOfSegments(tc.total, tc.segLen); got != tc.want {
			t.Errorf("NumberOfSegments(%v, %v) = %d, want %d", tc.total, tc.segLen, got, tc.want)
		}
	}
}

func TestSegmentsFor(t *testing.T) {
	segments := SegmentsFor(25, 10)
	if len(segments) != 3 {
		t.Fatalf("got %d segments, want 3", len(segments))
	}

	want := []Segment{
		{Index: 0, Start: 0, Duration: 10},
		{Index: 1, Start: 10, Duration: 10},
		{Index: 2, Start: 20, Duration: 5},
	}
	for i, seg := range segments {
		if seg != want[i] {
			t.Errorf("segment %d = %+v, want %+v", i, seg, want[i])
		}
	}

	// Coverage is exact: starts are contiguous and durations sum to the total.
	var sum float64
	for _, seg := range segments {
		sum += seg.Duration
	}
	if sum != 25 {
		t.Errorf("durations sum to %v, want 25", sum)
	}
}

func TestSegmentsForExactMultiple(t *testing.T) {
	segments := SegmentsFor(30, 10)
	if len(segments) != 3 {
		t.Fatalf("got %d segments, want 3", len(segments))
	}
	for _, seg := range segments {
		if seg.Duration != 10 {
			t.Errorf("segment %d duration = %v, want 10", seg.Index, seg.Duration)
		}
	}
}

func TestSegmentsForEmpty(t *testing.T) {
	if got := SegmentsFor(0, 10); got != nil {
		t.Errorf("SegmentsFor(0, 10) = %v, want nil", got)
	}
}

func TestSegmentWindow(t *testing.T) {
	tests := []struct {
		name         string
		index        int
		total        float64
		segLen       float64
		wantStart    float64
		wantDuration float64
	}{
		{name: "first", index: 0, total: 25, segLen: 10, wantStart: 0, wantDuration: 10},
		{name: "middle", index: 1, total: 25, segLen: 10, wantStart: 10, wantDuration: 10},
		{name: "final remainder", index: 2, total: 25, segLen: 10, wantStart: 20, wantDuration: 5},
		{name: "past end keeps full length", index: 9, total: 25, segLen: 10, wantStart: 90, wantDuration: 10},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := SegmentWindow(tc.index, tc.total, tc.segLen)
			if got.Start != tc.wantStart || got.Duration != tc.wantDuration {
				t.Errorf("SegmentWindow(%d) = start %v dur %v, want start %v dur %v",
					tc.index, got.Start, got.Duration, tc.wantStart, tc.wantDuration)
			}
		})
	}
}

func TestRenderPlaylist(t *testing.T) {
	got := RenderPlaylist("7", 25, 10)

	want := "#EXTM3U\r\n" +
		"#EXT-X-PLAYLIST-TYPE:VOD\r\n" +
		"#EXT-X-TARGETDURATION:10\r\n" +
		"#EXT-X-VERSION:4\r\n" +
		"#EXT-X-MEDIA-SEQUENCE:0\r\n" +
		"#EXTINF:10,\r\n" +
		"/HLS/7/segment/0\r\n" +
		"#EXTINF:10,\r\n" +
		"/HLS/7/segment/1\r\n" +
		"#EXTINF:10,\r\n" +
		"/HLS/7/segment/2\r\n" +
		"#EXTINF:5\r\n" +
		"/HLS/7/segment/3\r\n" +
		"#EXT-X-ENDLIST\r\n"

	if got != want {
		t.Errorf("playlist mismatch:\ngot:\n%q\nwant:\n%q", got, want)
	}
}

func TestRenderPlaylistShape(t *testing.T) {
	got := RenderPlaylist("42", 123.4, 10)

	if !strings.HasPrefix(got, "#EXTM3U\r\n") {
		t.Error("playlist must open with #EXTM3U")
	}
	if !strings.HasSuffix(got, "#EXT-X-ENDLIST\r\n") {
		t.Error("playlist must close with #EXT-X-ENDLIST")
	}
	if strings.Contains(strings.ReplaceAll(got, "\r\n", ""), "\n") {
		t.Error("playlist must use CRLF line endings exclusively")
	}

	// 13 full windows plus the boundary entry.
	if n := strings.Count(got, "#EXTINF:"); n != 14 {
		t.Errorf("got %d #EXTINF entries, want 14", n)
	}
	if !strings.Contains(got, "/HLS/42/segment/13\r\n") {
		t.Error("missing boundary segment URL")
	}
}
