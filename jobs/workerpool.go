package jobs

import (
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
)

// WorkerPool executes queued jobs on a fixed set of workers. Job state is
// persisted through the Store so callers can poll job status over the API.
type WorkerPool struct {
	wg       *sync.WaitGroup
	jobChan  chan *Job
	store    Store
	capacity uint
	workers  uint
}

type WorkerPoolStatus struct {
	QueueLength int  `json:"queueLength"`
	Capacity    uint `json:"poolCapacity"`
	WorkerCount uint `json:"workerCount"`
}

// ErrQueueFull is returned when a job cannot be accepted right now.
var ErrQueueFull = fmt.Errorf("job queue is full")

func NewWorkerPool(store Store, capacity, workers uint) *WorkerPool {
	return &WorkerPool{
		wg:       &sync.WaitGroup{},
		jobChan:  make(chan *Job, capacity),
		store:    store,
		capacity: capacity,
		workers:  workers,
	}
}

func (p *WorkerPool) Start() {
	for i := uint(0); i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// Stop closes the queue and waits for in-flight jobs to finish.
func (p *WorkerPool) Stop() {
	close(p.jobChan)
	p.wg.Wait()
}

func (p *WorkerPool) Status() (WorkerPoolStatus, error) {
	return WorkerPoolStatus{
		QueueLength: len(p.jobChan),
		Capacity:    p.capacity,
		WorkerCount: p.workers,
	}, nil
}

// AddJob persists a new job and enqueues it. When the queue is full, the job
// row stays behind with status QueueFull and ErrQueueFull is returned so
// the caller can respond 503.
func (p *WorkerPool) AddJob(jobType, accountID string, do func() (string, error)) (*Job, error) {
	job := &Job{Type: jobType, AccountID: accountID, Do: do, Status: Init}
	if err := p.store.InsertJob(job); err != nil {
		return nil, err
	}

	select {
	case p.jobChan <- job:
	default:
		job.Status = QueueFull
		if err := p.store.UpdateJob(job); err != nil {
			log.WithFields(log.Fields{"jobId": job.ID, "error": err}).Warn("Unable to update job")
		}
		return job, ErrQueueFull
	}

	job.Status = Accepted
	if err := p.store.UpdateJob(job); err != nil {
		log.WithFields(log.Fields{"jobId": job.ID, "error": err}).Warn("Unable to update job")
	}

	return job, nil
}

func (p *WorkerPool) worker() {
	defer p.wg.Done()
	for job := range p.jobChan {
		if job == nil {
			return
		}
		p.process(job)
	}
}

func (p *WorkerPool) process(job *Job) {
	result, err := job.Do()
	if err != nil {
		job.Status = Error
		job.Error = err.Error()
		log.WithFields(log.Fields{"jobId": job.ID, "type": job.Type, "error": err}).Warn("Job failed")
	} else {
		job.Status = Complete
		job.Result = result
	}

	if err := p.store.UpdateJob(job); err != nil {
		log.WithFields(log.Fields{"jobId": job.ID, "error": err}).Warn("Unable to update job")
	}
}
