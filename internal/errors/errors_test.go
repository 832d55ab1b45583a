package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIsAndUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	e := FilesystemError("write", "/tmp/x", cause)
	assert.True(t, e.Is(KindFilesystemError))
	assert.False(t, e.Is(KindNotFound))
	assert.Equal(t, cause, e.Unwrap())
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(NotFound("artifact", "abc")))
	assert.False(t, IsNotFound(Validation("bad input")))
	assert.False(t, IsNotFound(errors.New("plain error")))
}

func TestPartialOutcomeFailedErrorsNilWhenEmpty(t *testing.T) {
	outcome := PartialDeploy([]string{"a", "b"}, nil)
	assert.Nil(t, outcome.FailedErrors())
}

func TestPartialOutcomeFailedErrorsCombinesEveryItem(t *testing.T) {
	outcome := PartialDeploy([]string{"a"}, []FailedItem{
		{ID: "b", Err: errors.New("permission denied")},
		{ID: "c", Err: errors.New("checksum mismatch")},
	})
	err := outcome.FailedErrors()
	assert.ErrorContains(t, err, "b: permission denied")
	assert.ErrorContains(t, err, "c: checksum mismatch")
}

func TestPartialSyncErrorString(t *testing.T) {
	outcome := PartialSync([]string{"a"}, []string{"b"}, []FailedItem{{ID: "c", Err: errors.New("boom")}})
	assert.Equal(t, "partial_sync: 1 applied, 1 conflicts, 1 failed", outcome.Error())
}
