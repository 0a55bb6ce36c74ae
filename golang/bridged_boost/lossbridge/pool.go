package lossbridge

import "sync"

//Task is one unit of work for a Pool.
type Task interface {
	Run()
}

//Pool runs tasks on a fixed number of goroutines.
type Pool struct {
	tasks chan Task
	wg    sync.WaitGroup
}

//NewPool starts threadsNum workers; at least one is always started.
func NewPool(threadsNum int) *Pool {
	if threadsNum < 1 {
		threadsNum = 1
	}
	pool := &Pool{tasks: make(chan Task, threadsNum)}
	pool.wg.Add(threadsNum)
	for i := 0; i < threadsNum; i++ {
		go func() {
			defer pool.wg.Done()
			for task := range pool.tasks {
				task.Run()
			}
		}()
	}
	return pool
}

//AddTask queues a task, blocking while all workers are busy.
func (pool *Pool) AddTask(task Task) {
	pool.tasks <- task
}

//Close stops accepting tasks.
func (pool *Pool) Close() {
	close(pool.tasks)
}

//WaitAll blocks until every queued task has run. Close must be called first.
func (pool *Pool) WaitAll() {
	pool.wg.Wait()
}
