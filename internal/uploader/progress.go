package uploader

import "io"

// countingReader reports cumulative read progress of a body with a known
// total size as an integer percentage. The callback fires at most once per
// percentage point.
type countingReader struct {
	r       io.Reader
	total   int64
	read    int64
	lastPct int
	onPct   func(percent int)
}

func newCountingReader(r io.Reader, total int64, onPct func(int)) *countingReader {
	return &countingReader{r: r, total: total, lastPct: -1, onPct: onPct}
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 && c.total > 0 {
		c.read += int64(n)
		pct := int(c.read * 100 / c.total)
		if pct > 100 {
			pct = 100
		}
		if pct != c.lastPct {
			c.lastPct = pct
			if c.onPct != nil {
				c.onPct(pct)
			}
		}
	}
	return n, err
}
