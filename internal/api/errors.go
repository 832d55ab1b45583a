package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	skillmeaterrors "github.com/miethe/skillmeat/internal/errors"
)

// statusFor maps a structured error's Kind to an HTTP status, matching
// the §7 taxonomy's input/state/io/policy groupings.
func statusFor(err *skillmeaterrors.Error) int {
	switch err.Kind {
	case skillmeaterrors.KindValidation, skillmeaterrors.KindPathOutsideRoot,
		skillmeaterrors.KindCyclicComposite, skillmeaterrors.KindDepthExceeded,
		skillmeaterrors.KindDanglingMember:
		return http.StatusBadRequest
	case skillmeaterrors.KindUnknownEntity, skillmeaterrors.KindNotFound:
		return http.StatusNotFound
	case skillmeaterrors.KindConflict, skillmeaterrors.KindLocalModificationPresent,
		skillmeaterrors.KindConcurrentModification, skillmeaterrors.KindStaleSnapshot:
		return http.StatusConflict
	case skillmeaterrors.KindReadOnlyField, skillmeaterrors.KindReadOnlyArtifact,
		skillmeaterrors.KindPermissionDenied:
		return http.StatusForbidden
	case skillmeaterrors.KindFeatureDisabled:
		return http.StatusNotImplemented
	case skillmeaterrors.KindPartialDeploy, skillmeaterrors.KindPartialSync:
		return http.StatusMultiStatus
	default:
		return http.StatusInternalServerError
	}
}

// respondErr writes the §7 envelope. A structured Error reports its
// own Kind and detail block; any other error (a driver error that
// never passed through the errors package) falls back to a bare
// "unknown" kind rather than inventing a misleading taxonomy entry.
func respondErr(c *gin.Context, err error) {
	serr, ok := err.(*skillmeaterrors.Error)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"kind": "unknown", "message": err.Error()})
		return
	}
	c.JSON(statusFor(serr), gin.H{"kind": serr.Kind, "message": serr.Message, "detail": serr.Detail})
}
