package streaming

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// RangePlan is the serve window computed for one request.
type RangePlan struct {
	Status int // http.StatusOK or http.StatusPartialContent
	Start  int64
	End    int64 // inclusive
	Length int64
	Total  int64
}

// PlanRange translates a Range header into a serve window for a resource of
// totalSize bytes. An empty header yields a full-body 200 plan. Malformed or
// unsatisfiable ranges return ErrInvalidRange; bytes are never served from a
// window the client did not validly ask for.
func PlanRange(rangeHeader string, totalSize int64) (RangePlan, error) {
	if totalSize <= 0 {
		return RangePlan{}, fmt.Errorf("%w: resource size %d", ErrInvalidRange, totalSize)
	}

	rangeHeader = strings.TrimSpace(rangeHeader)
	if rangeHeader == "" {
		return RangePlan{
			Status: http.StatusOK,
			Start:  0,
			End:    totalSize - 1,
			Length: totalSize,
			Total:  totalSize,
		}, nil
	}

	spec, ok := strings.CutPrefix(rangeHeader, "bytes=")
	if !ok {
		return RangePlan{}, fmt.Errorf("%w: unsupported unit in %q", ErrInvalidRange, rangeHeader)
	}

	startStr, endStr, ok := strings.Cut(spec, "-")
	if !ok {
		return RangePlan{}, fmt.Errorf("%w: %q", ErrInvalidRange, rangeHeader)
	}

	start, err := strconv.ParseInt(strings.TrimSpace(startStr), 10, 64)
	if err != nil || start < 0 {
		return RangePlan{}, fmt.Errorf("%w: bad start in %q", ErrInvalidRange, rangeHeader)
	}

	end := totalSize - 1
	if trimmed := strings.TrimSpace(endStr); trimmed != "" {
		end, err = strconv.ParseInt(trimmed, 10, 64)
		if err != nil || end < 0 {
			return RangePlan{}, fmt.Errorf("%w: bad end in %q", ErrInvalidRange, rangeHeader)
		}
		// Clamp a past-the-end suffix per RFC 7233.
		if end >= totalSize {
			end = totalSize - 1
		}
	}

	if start >= totalSize || start > end {
		return RangePlan{}, fmt.Errorf("%w: %d-%d of %d", ErrInvalidRange, start, end, totalSize)
	}

	return RangePlan{
		Status: http.StatusPartialContent,
		Start:  start,
		End:    end,
		Length: end - start + 1,
		Total:  totalSize,
	}, nil
}

// Apply writes the partial-content headers for the plan.
func (p RangePlan) Apply(h http.Header) {
	h.Set("Accept-Ranges", "bytes")
	h.Set("Content-Length", strconv.FormatInt(p.Length, 10))
	if p.Status == http.StatusPartialContent {
		h.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", p.Start, p.End, p.Total))
	}
}
