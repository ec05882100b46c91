/*****************************************************************************************************************/

//	@package	github.com/stellarforge/platesolve

/*****************************************************************************************************************/

package jobctl

/*****************************************************************************************************************/

import (
	"path/filepath"
	"testing"
)

/*****************************************************************************************************************/

func TestNewJobIDIsUnique(t *testing.T) {
	a := NewJobID()
	b := NewJobID()

	if a == b {
		t.Errorf("Expected two calls to NewJobID to differ, Got=%s twice", a)
	}
}

/*****************************************************************************************************************/

func TestTokenCancelInProcess(t *testing.T) {
	token := New("", "")

	if token.Cancelled() {
		t.Errorf("Expected a fresh Token to not be cancelled")
	}

	token.Cancel()

	if !token.Cancelled() {
		t.Errorf("Expected Token.Cancelled() to be true after Cancel()")
	}

	if !token.Done() {
		t.Errorf("Expected Token.Done() to be true once cancelled")
	}
}

/*****************************************************************************************************************/

func TestTokenSolvedViaSentinelFile(t *testing.T) {
	dir := t.TempDir()
	solvedPath := filepath.Join(dir, "solved")

	writer := New("", solvedPath)
	reader := New("", solvedPath)

	if reader.Solved() {
		t.Errorf("Expected reader.Solved() to be false before the sentinel file exists")
	}

	writer.MarkSolved()

	if !reader.Solved() {
		t.Errorf("Expected reader.Solved() to be true once the sentinel file has been touched by another Token")
	}

	if !reader.Done() {
		t.Errorf("Expected reader.Done() to be true once a sibling has marked solved")
	}

	reader.Cleanup()
}

/*****************************************************************************************************************/

func TestTokenCancelViaSentinelFile(t *testing.T) {
	dir := t.TempDir()
	cancelPath := filepath.Join(dir, "cancel")

	writer := New(cancelPath, "")
	reader := New(cancelPath, "")

	if reader.Cancelled() {
		t.Errorf("Expected reader.Cancelled() to be false before the sentinel file exists")
	}

	writer.Cancel()

	if !reader.Cancelled() {
		t.Errorf("Expected reader.Cancelled() to be true once the sentinel file has been touched by another Token")
	}

	reader.Cleanup()
}

/*****************************************************************************************************************/
