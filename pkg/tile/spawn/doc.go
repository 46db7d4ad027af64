// Package spawn boots one goroutine per core and implements remote
// execution on top of the instruction FIFO (input channel 0).
//
// An idle core blocks on its instruction FIFO. A packet arriving there
// carries a Task; the core acknowledges the packet when it dequeues it,
// runs the task, and returns to idle. Execute reaches a group of cores,
// RemoteExecute a single one, and Spawn runs a word function on a
// designated neighbour and sends the result back.
//
// A task that panics or returns an error is a fault: it is logged, recorded
// and cancels the runtime so every blocked core unwinds instead of stalling.
package spawn
