// Package measurement provides the named values that ping builders sample
// when a ping is assembled. Some measurements accumulate state between
// pings (events, session duration, searches), some persist across process
// restarts (client id, sequence numbers, session counts), and some describe
// the static environment.
package measurement

// Measurement is one named value in a ping payload. Flush is called when a
// ping is assembled; implementations may reset accumulated state as part of
// flushing, so callers must place the returned value into exactly one ping.
type Measurement interface {
	Field() string
	Flush() (any, error)
}
