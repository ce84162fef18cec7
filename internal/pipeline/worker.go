package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"
)

// TaskResult carries a completed task's output back to the orchestrator.
type TaskResult struct {
	Name  string
	Value interface{}
	Err   error
}

type task struct {
	ctx   context.Context
	name  string
	fn    func(ctx context.Context) (interface{}, error)
	reply chan TaskResult
}

// Pool runs heavy compute stages off the orchestration goroutine so the
// cycle loop stays responsive to cancellation. Tasks receive a copy of the
// cycle's input snapshot and communicate only through their result channel.
type Pool struct {
	tasks  chan task
	wg     sync.WaitGroup
	logger arbor.ILogger

	closeOnce sync.Once
}

// NewPool starts a pool with the given number of workers.
func NewPool(workers int, logger arbor.ILogger) *Pool {
	if workers < 1 {
		workers = 1
	}

	p := &Pool{
		tasks:  make(chan task),
		logger: logger,
	}

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	logger.Debug().Int("workers", workers).Msg("Worker pool started")
	return p
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for t := range p.tasks {
		t.reply <- p.run(t)
	}
}

func (p *Pool) run(t task) (result TaskResult) {
	result.Name = t.name
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().Str("task", t.name).Msgf("Worker task panicked: %v", r)
			result.Err = fmt.Errorf("task %s panicked: %v", t.name, r)
		}
	}()

	if err := t.ctx.Err(); err != nil {
		result.Err = err
		return result
	}

	result.Value, result.Err = t.fn(t.ctx)
	return result
}

// Submit queues a task and returns the channel its result will arrive on.
// The channel is buffered, so an abandoned result never wedges a worker.
func (p *Pool) Submit(ctx context.Context, name string, fn func(ctx context.Context) (interface{}, error)) <-chan TaskResult {
	reply := make(chan TaskResult, 1)
	t := task{ctx: ctx, name: name, fn: fn, reply: reply}

	select {
	case p.tasks <- t:
	case <-ctx.Done():
		reply <- TaskResult{Name: name, Err: ctx.Err()}
	}
	return reply
}

// Close stops accepting tasks and waits for in-flight work to finish.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.tasks)
		p.wg.Wait()
	})
}
