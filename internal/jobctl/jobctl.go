/*****************************************************************************************************************/

//	@package	github.com/stellarforge/platesolve

/*****************************************************************************************************************/

// Package jobctl provides the cancellation and identity primitives a solve job's
// components share: an in-process cancel flag, an optional pair of sentinel files used to
// coordinate cancellation/completion across child solver processes, and ulid-stamped job
// IDs.
package jobctl

/*****************************************************************************************************************/

import (
	"crypto/rand"
	"os"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid"
)

/*****************************************************************************************************************/

// NewJobID mints a new, time-sortable job identifier.
func NewJobID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}

/*****************************************************************************************************************/

// Token is the cancellation handle threaded through a solve: pkg/solver polls it between
// candidate indexes, depth ranges and quads. pkg/partition and pkg/verify do not take a
// Token.
// Cancellation is cooperative - nothing here preempts a running goroutine.
type Token struct {
	cancelled  atomic.Bool
	solved     atomic.Bool
	cancelPath string
	solvedPath string
}

/*****************************************************************************************************************/

// New creates a Token. cancelPath and solvedPath are optional sentinel file paths; when
// set, Cancelled/Solved also treat the file's existence as true, letting a sibling child
// solver process (not just a goroutine in this process) signal cancellation or victory.
// Pass empty strings to use the in-process atomic flags only.
func New(cancelPath, solvedPath string) *Token {
	return &Token{cancelPath: cancelPath, solvedPath: solvedPath}
}

/*****************************************************************************************************************/

// Cancel marks the token cancelled in-process, and touches the cancel sentinel file if one
// was configured.
func (t *Token) Cancel() {
	t.cancelled.Store(true)

	if t.cancelPath != "" {
		_ = touch(t.cancelPath)
	}
}

/*****************************************************************************************************************/

// MarkSolved marks the token solved in-process, and touches the solved sentinel file if
// one was configured - the signal other child solvers poll to know they can stop early.
func (t *Token) MarkSolved() {
	t.solved.Store(true)

	if t.solvedPath != "" {
		_ = touch(t.solvedPath)
	}
}

/*****************************************************************************************************************/

// Cancelled reports whether this job has been cancelled, either in-process or via the
// cancel sentinel file.
func (t *Token) Cancelled() bool {
	if t.cancelled.Load() {
		return true
	}

	return t.cancelPath != "" && exists(t.cancelPath)
}

/*****************************************************************************************************************/

// Solved reports whether any sibling child solver has already found a solution, either
// in-process or via the solved sentinel file.
func (t *Token) Solved() bool {
	if t.solved.Load() {
		return true
	}

	return t.solvedPath != "" && exists(t.solvedPath)
}

/*****************************************************************************************************************/

// Done reports whether this job should stop work for any reason - cancelled, or already
// solved by a sibling.
func (t *Token) Done() bool {
	return t.Cancelled() || t.Solved()
}

/*****************************************************************************************************************/

// Cleanup removes any sentinel files this token owns, best-effort - called once a job
// (parent or child) has fully wound down.
func (t *Token) Cleanup() {
	if t.cancelPath != "" {
		_ = os.Remove(t.cancelPath)
	}

	if t.solvedPath != "" {
		_ = os.Remove(t.solvedPath)
	}
}

/*****************************************************************************************************************/

func touch(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	return f.Close()
}

/*****************************************************************************************************************/

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

/*****************************************************************************************************************/
