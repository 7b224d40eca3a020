package worker

import "github.com/lyra-media/lyra/pkg/logger"

var workerLogger = logger.Get("Worker")

type (
	WorkerWakeupChan chan int
	WorkerStatus     int

	// WorkerTask is the unit of work a worker runs in a loop. The boolean
	// return indicates whether the task found work to do; a worker whose
	// task returns false goes to sleep until woken by the pool.
	WorkerTask func(Worker) (bool, error)
)

const (
	Sleeping WorkerStatus = iota
	Working
	Finished
)

type Worker interface {
	Start()
	Status() WorkerStatus
	WakeupChan() WorkerWakeupChan
	Label() string
	Sleep() bool
	Close()
}

type taskWorker struct {
	label         string
	task          WorkerTask
	wakeupChan    WorkerWakeupChan
	currentStatus WorkerStatus
}

func NewWorker(label string, task WorkerTask) *taskWorker {
	return &taskWorker{
		label:         label,
		task:          task,
		wakeupChan:    make(WorkerWakeupChan),
		currentStatus: Sleeping,
	}
}

// Start runs the workers task in a loop until the task reports no
// remaining work, at which point the worker sleeps until the pool wakes
// it. An error from the task stops the worker.
func (worker *taskWorker) Start() {
	workerLogger.Emit(logger.NEW, "Starting worker with label %v\n", worker.label)
	worker.currentStatus = Working

	for {
		didWork, err := worker.task(worker)
		if err != nil {
			workerLogger.Emit(logger.ERROR, "Worker with label %v has reported an error(%T): %v\n", worker.label, err, err.Error())
			break
		}

		if didWork {
			continue
		}

		if !worker.Sleep() {
			return
		}
	}

	worker.currentStatus = Finished
	workerLogger.Emit(logger.STOP, "Worker with label %v has stopped\n", worker.label)
}

// Status returns the current status of this worker
func (worker *taskWorker) Status() WorkerStatus {
	return worker.currentStatus
}

func (worker *taskWorker) WakeupChan() WorkerWakeupChan {
	return worker.wakeupChan
}

// Close closes the Worker by closing the WakeChan.
// Note that this does not interupt currently running
// goroutines.
func (worker *taskWorker) Close() {
	close(worker.wakeupChan)
}

// Label returns the label for this worker
func (worker *taskWorker) Label() string {
	return worker.label
}

// Sleep puts a worker to sleep until it's wakeupChan is
// signalled from another goroutine. Returns a boolean that
// is 'false' if the wakeup channel was closed - indicating
// the worker should quit.
func (worker *taskWorker) Sleep() (isAlive bool) {
	worker.currentStatus = Sleeping

	if _, isAlive = <-worker.wakeupChan; isAlive {
		worker.currentStatus = Working
	} else {
		workerLogger.Emit(logger.STOP, "Wakeup channel for worker '%v' has been closed - worker is exiting\n", worker.label)
		worker.currentStatus = Finished
	}

	return isAlive
}
