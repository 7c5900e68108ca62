package datautil

// InChunks splits symbols into contiguous chunks of at most size elements.
// A size <= 0 yields a single chunk.
func InChunks(symbols []string, size int) [][]string {
	if len(symbols) == 0 {
		return nil
	}
	if size <= 0 {
		return [][]string{symbols}
	}
	chunks := make([][]string, 0, (len(symbols)+size-1)/size)
	for pos := 0; pos < len(symbols); pos += size {
		end := pos + size
		if end > len(symbols) {
			end = len(symbols)
		}
		chunks = append(chunks, symbols[pos:end])
	}
	return chunks
}
