package types

import (
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorClassification(t *testing.T) {
	assert.True(t, IsGraphCycleError(NewGraphCycleErrorf("p", "cycle")))
	assert.True(t, IsUnsupportedNodeTypeError(NewUnsupportedNodeTypeError("alien")))
	assert.True(t, IsValidationError(NewValidationErrorf("missing filename")))
	assert.True(t, IsAdapterRequestError(NewAdapterRequestErrorf("connection refused")))
	assert.True(t, IsJobFailedError(NewJobFailedErrorf("backend exploded")))
	assert.True(t, IsTimeoutError(NewTimeoutErrorf("budget exhausted")))

	assert.False(t, IsValidationError(NewTimeoutErrorf("budget exhausted")))
	assert.False(t, IsTimeoutError(nil))
}

func TestErrorClassificationSurvivesAnnotation(t *testing.T) {
	err := NewValidationErrorf("node a: missing filename")
	err = errors.Trace(err)
	err = errors.Annotatef(err, "while validating pipeline")

	assert.True(t, IsValidationError(err))
	assert.False(t, IsJobFailedError(err))
	assert.Contains(t, err.Error(), "missing filename")
}
