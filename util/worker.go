package util

import (
	"errors"
	"sync"

	"github.com/mohitkumar/canvasflow/logger"
	"go.uber.org/zap"
)

var ErrWorkerFull = errors.New("worker queue is full")

// Worker runs handler for every queued item on a single goroutine.
type Worker[T any] struct {
	name     string
	stop     chan struct{}
	stopOnce sync.Once
	wg       *sync.WaitGroup
	handler  func(T) error
	items    chan T
}

func NewWorker[T any](name string, wg *sync.WaitGroup, handler func(T) error, capacity int) *Worker[T] {
	if wg == nil {
		wg = &sync.WaitGroup{}
	}
	return &Worker[T]{
		items:   make(chan T, capacity),
		name:    name,
		wg:      wg,
		stop:    make(chan struct{}),
		handler: handler,
	}
}

func (w *Worker[T]) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		for {
			select {
			case item := <-w.items:
				err := w.handler(item)
				if err != nil {
					logger.Error("error in handling item in worker", zap.String("worker", w.name), zap.Any("item", item), zap.Error(err))
				}
			case <-w.stop:
				logger.Info("stopping worker", zap.String("worker", w.name))
				return
			}
		}
	}()
}

// Submit queues item without blocking.
func (w *Worker[T]) Submit(item T) error {
	select {
	case w.items <- item:
		return nil
	default:
		return ErrWorkerFull
	}
}

func (w *Worker[T]) Stop() {
	w.stopOnce.Do(func() {
		close(w.stop)
	})
}
