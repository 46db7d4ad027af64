// Package plumb contains the plumbing shared by the execution patterns:
// the parallel-section state that replaces interrupts with cooperative
// shutdown, the locomotive that drives a node's receive-compute-send loop,
// context options, and helpers for feeding and draining channels. It does
// not define a pattern itself; loop, pipeline and dataflow build on it.
package plumb
