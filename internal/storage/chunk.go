package storage

import (
	"strconv"
	"strings"
)

// MaxBindParams is Postgres' ceiling on bind parameters per statement.
const MaxBindParams = 65535

// ChunkSize returns how many rows of columnCount columns fit in one
// statement without exceeding the parameter ceiling.
func ChunkSize(columnCount int) int {
	return MaxBindParams / columnCount
}

// Chunks slices a record list of the given length into contiguous
// [start, end) index pairs sized for columnCount columns per record.
func Chunks(length, columnCount int) [][2]int {
	if length == 0 {
		return nil
	}
	size := ChunkSize(columnCount)
	chunks := make([][2]int, 0, (length+size-1)/size)
	for start := 0; start < length; start += size {
		end := start + size
		if end > length {
			end = length
		}
		chunks = append(chunks, [2]int{start, end})
	}
	return chunks
}

// valuesPlaceholders builds the "($1,$2),($3,$4),..." clause for a
// multi-row insert of rows x cols parameters.
func valuesPlaceholders(rows, cols int) string {
	var b strings.Builder
	n := 1
	for r := 0; r < rows; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for c := 0; c < cols; c++ {
			if c > 0 {
				b.WriteString(", ")
			}
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			n++
		}
		b.WriteByte(')')
	}
	return b.String()
}
