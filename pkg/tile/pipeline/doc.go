// Package pipeline runs a sequence of stages on consecutive cores of a tile.
//
// Loop is the buffered pipeline: every stage sees every iteration, data
// lives in caller-owned buffers indexed by iteration, and stages pass one
// token per iteration over a credited link, so no stage gets more than one
// token ahead of the next.
//
// DataDriven streams words: stage 0 produces values until it produces the
// end-of-stream sentinel, every other stage transforms what it receives and
// forwards the sentinel, and the terminal stage ends the parallel section.
package pipeline
