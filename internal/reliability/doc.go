// Package reliability provides the resilience pipeline wrapped around every
// network call to the queue service: bounded retry with backoff for transient
// failures, plus a circuit breaker for the publish path. Centralizing the
// policy here keeps backoff behavior identical between publish and consume
// and keeps the retry budget independently tunable.
package reliability
