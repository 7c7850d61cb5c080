// Package events fans launcher notifications out to any number of subscribers.
//
// Publishers see a single Publish method. Each subscriber owns an unbounded
// FIFO drained by its own goroutine, so a slow subscriber never blocks a
// download or the child output pumps, and every subscriber observes events
// in publish order.
package events
