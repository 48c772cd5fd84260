package stream

// SplitChunks partitions data into consecutive chunks of at most size bytes.
// The chunks alias data. A size <= 0, or data no longer than size, yields a
// single chunk; empty data yields no chunks.
func SplitChunks(data []byte, size int) [][]byte {
	if len(data) == 0 {
		return nil
	}
	if size <= 0 || len(data) <= size {
		return [][]byte{data}
	}

	chunks := make([][]byte, 0, (len(data)+size-1)/size)
	for start := 0; start < len(data); start += size {
		end := min(start+size, len(data))
		chunks = append(chunks, data[start:end:end])
	}
	return chunks
}

// SplitAt partitions data at the given cut points. Cut points outside
// [0, len(data)] are clamped and out-of-order points produce empty chunks,
// so the concatenation of the result is always data.
func SplitAt(data []byte, cuts []int) [][]byte {
	chunks := make([][]byte, 0, len(cuts)+1)
	prev := 0
	for _, c := range cuts {
		c = max(prev, min(c, len(data)))
		chunks = append(chunks, data[prev:c:c])
		prev = c
	}
	return append(chunks, data[prev:])
}
