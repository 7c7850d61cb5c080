package transport

import "io"

// progressReader reports cumulative bytes read as a fraction of total.
type progressReader struct {
	reader     io.Reader
	total      int64
	done       int64
	onProgress ProgressFunc
}

// Read forwards to the wrapped reader and reports progress for every non-empty chunk.
func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.reader.Read(buf)
	if n > 0 {
		p.done += int64(n)

		fraction := float64(p.done) / float64(p.total)
		if fraction > 1 {
			fraction = 1
		}

		p.onProgress(fraction)
	}

	return n, err
}
