// Package messaging implements the asynchronous delivery subsystem of the
// permission backend: a resilient SQS publisher (single, batch and ordered
// publishing) and a concurrent consumer runtime with at-least-once semantics
// and automatic dead-lettering via the queue service's redrive policy.
package messaging
