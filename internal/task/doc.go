// Package task implements the bounded-parallelism scheduler that runs all
// child-process work of the coordinator.
//
// A Manager owns a fixed pool of worker goroutines. Tasks are closures
// receiving a *Context whose Successful field is the task outcome. Tasks may
// submit further tasks through their Context and wait on them; to keep a
// fan-out from oversubscribing the pool, the submitter runs the last subtask
// of a fan-out inline on its own worker (Context.AddTaskSameThread), and
// Context.RunTask runs the callee inline whenever no other worker is idle.
//
// Waiting is cooperative: a goroutine blocked in WaitForTasks executes
// queued tasks itself until its wait set completes. This is what lets the
// calling (main) goroutine participate as an effective worker, and it makes
// progress possible even with a single worker and arbitrarily deep
// reentrant submissions.
package task
