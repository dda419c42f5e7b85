// Package execs runs external commands.
//
// [Executor.Run] buffers a command's output and returns it once the command
// exits. [Executor.Watch] starts a command and returns a [Stream] that yields
// its output one line at a time; closing the stream terminates the process.
//
// A non-zero exit status is reported as an [*Error], which carries whatever
// output the command produced before failing.
package execs
