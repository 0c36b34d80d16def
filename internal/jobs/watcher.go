package jobs

// Watch blocks until every item enqueued so far, and any added while
// waiting, has been marked done, then invokes notify once. The app
// spawns one watcher goroutine per batch start; overlapping starts
// spawn overlapping watchers.
func Watch(queue *Queue, notify func()) {
	queue.Join()
	if notify != nil {
		notify()
	}
}
