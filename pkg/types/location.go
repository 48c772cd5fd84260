package types

// OffsetSpan is byte range [Start, End) - half-open interval, measured from
// the start of the logical stream.
type OffsetSpan struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// Len returns the number of bytes covered by the span.
func (s OffsetSpan) Len() int64 {
	return s.End - s.Start
}
