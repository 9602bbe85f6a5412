package worker

import (
	"io"

	"go.uber.org/zap"
)

const progressStep = 20

// progressReader logs download progress every progressStep percent.
type progressReader struct {
	r     io.Reader
	total int64
	read  int64
	next  int
	log   *zap.Logger
}

func newProgressReader(r io.Reader, total int64, log *zap.Logger) *progressReader {
	return &progressReader{r: r, total: total, next: progressStep, log: log}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	if p.total > 0 {
		pct := int(p.read * 100 / p.total)
		for p.next <= 100 && pct >= p.next {
			p.log.Info("download progress", zap.Int("percent", p.next))
			p.next += progressStep
		}
	}
	return n, err
}
