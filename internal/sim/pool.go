package sim

import "sync"

// samplePool recycles the elapsed-time buffers used while marching segments.
type samplePool struct {
	pool sync.Pool
}

var elapsedPool samplePool

func (p *samplePool) Get(n int) []float64 {
	if v, ok := p.pool.Get().(*[]float64); ok && cap(*v) >= n {
		return (*v)[:n]
	}
	return make([]float64, n)
}

func (p *samplePool) Put(buf []float64) {
	buf = buf[:0]
	p.pool.Put(&buf)
}
