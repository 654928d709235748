package scan

// Chunk is one unit of parallel work. Matches are owned by the chunk their
// first byte falls in; Overlap is the read-ahead past End.
type Chunk struct {
	Index   int
	Start   int64
	End     int64
	Overlap int
}

// Len is the size of the owned range.
func (c Chunk) Len() int64 { return c.End - c.Start }

// Partition splits [origin, end) into contiguous chunks of chunkSize bytes;
// the last one may be shorter. Every chunk but the last reads overlap bytes
// past its end.
func Partition(origin, end, chunkSize int64, overlap int) []Chunk {
	if end <= origin || chunkSize <= 0 {
		return nil
	}
	n := (end - origin + chunkSize - 1) / chunkSize
	chunks := make([]Chunk, 0, n)
	for i, start := 0, origin; start < end; i, start = i+1, start+chunkSize {
		c := Chunk{Index: i, Start: start, End: min(start+chunkSize, end), Overlap: overlap}
		if c.End == end {
			c.Overlap = 0
		}
		chunks = append(chunks, c)
	}
	return chunks
}

// alignUp rounds n up to a multiple of unit.
func alignUp(n, unit int64) int64 {
	if unit <= 1 {
		return n
	}
	return (n + unit - 1) / unit * unit
}
