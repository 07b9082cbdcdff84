package worker

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"sessionclock-backend/internal/metrics"
)

// Job is a single write-behind storage call.
type Job struct {
	Key  uuid.UUID
	Name string
	Run  func(ctx context.Context) error
}

// Pool runs write-behind jobs. Jobs sharing a key always land on the same
// worker, so they execute in submission order. Failed jobs are logged and
// not retried; the next reload reconciles.
type Pool struct {
	queues      []chan Job
	timeout     time.Duration
	workerCount int

	mu       sync.RWMutex
	stopped  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewPool(workerCount, queueSize int, timeout time.Duration) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}

	queues := make([]chan Job, workerCount)
	for i := range queues {
		queues[i] = make(chan Job, queueSize)
	}

	return &Pool{
		queues:      queues,
		timeout:     timeout,
		workerCount: workerCount,
		stopChan:    make(chan struct{}),
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i, p.queues[i])
	}

	log.Printf("Started %d write-behind workers", p.workerCount)
}

// Submit enqueues job without blocking. It reports false when the job was
// dropped.
func (p *Pool) Submit(job Job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		metrics.WritesDropped.Inc()
		return false
	}

	select {
	case p.queues[p.shard(job.Key)] <- job:
		return true
	default:
		metrics.WritesDropped.Inc()
		log.Printf("write-behind: queue full, dropping %s for %s", job.Name, job.Key)
		return false
	}
}

// Stop refuses new jobs, drains what is queued and waits for the workers.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.stopChan)
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Pool) shard(key uuid.UUID) int {
	return int(xxhash.Sum64(key[:]) % uint64(len(p.queues)))
}

func (p *Pool) worker(id int, queue chan Job) {
	defer p.wg.Done()

	for {
		select {
		case job := <-queue:
			p.run(id, job)
		case <-p.stopChan:
			for {
				select {
				case job := <-queue:
					p.run(id, job)
				default:
					log.Printf("Write-behind worker %d shutting down", id)
					return
				}
			}
		}
	}
}

func (p *Pool) run(id int, job Job) {
	ctx := context.Background()
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	if err := job.Run(ctx); err != nil {
		metrics.WritesFailed.Inc()
		log.Printf("Worker %d: %s for %s failed: %v", id, job.Name, job.Key, err)
	}
}
