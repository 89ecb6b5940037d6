package motiondetection

import "sync"

// sampleQueue keeps the most recent binary sensor samples. A reading is motion when the
// mean of the window exceeds the threshold, which filters out single spurious pulses.
type sampleQueue struct {
	mu      sync.Mutex
	samples []float64
	next    int
	filled  bool
}

func newSampleQueue(size int) *sampleQueue {
	if size < 1 {
		size = 1
	}
	return &sampleQueue{samples: make([]float64, size)}
}

func (q *sampleQueue) push(active bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	v := 0.0
	if active {
		v = 1.0
	}
	q.samples[q.next] = v
	q.next = (q.next + 1) % len(q.samples)
	if q.next == 0 {
		q.filled = true
	}
}

// mean returns the average of the window and false until the window has been filled once
func (q *sampleQueue) mean() (float64, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.filled {
		return 0, false
	}
	sum := 0.0
	for _, v := range q.samples {
		sum += v
	}
	return sum / float64(len(q.samples)), true
}

func (q *sampleQueue) reset() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i := range q.samples {
		q.samples[i] = 0
	}
	q.next = 0
	q.filled = false
}
