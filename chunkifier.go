package main

// chunker splits raw document text into fixed-size overlapping pieces for
// files that arrive without page structure.
type chunker struct {
	size    int
	overlap int
}

func (c *chunker) split(text string) []string {
	l := len(text)
	if l == 0 {
		return []string{}
	}

	step := c.size - c.overlap
	if step <= 0 {
		// an overlap >= size would never advance the scan; fall back
		// to non-overlapping chunks
		step = max(c.size, 1)
	}
	pos := 0
	res := make([]string, 0, l/step+1)

	for {
		end := min(pos+c.size, l)
		res = append(res, text[pos:end])
		if end >= l {
			break
		}

		pos += step
	}

	return res
}
