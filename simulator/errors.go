package simulator

import (
	"errors"
	"net/http"

	"github.com/kamalbuilds/movetracer/clients/fullnode"
	"github.com/kamalbuilds/movetracer/history"
	"github.com/kamalbuilds/movetracer/movement"
	"github.com/kamalbuilds/movetracer/utils"
)

// HTTPStatus maps an orchestration error to the status a REST caller should see.
func HTTPStatus(err error) int {
	var (
		configErr    *utils.ConfigError
		payloadErr   *movement.InvalidPayloadError
		clientErr    *fullnode.UpstreamClientError
		exhaustedErr *fullnode.AllEndpointsFailedError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &configErr), errors.As(err, &payloadErr), errors.Is(err, ErrNotReplayable):
		return http.StatusBadRequest
	case errors.As(err, &clientErr):
		return clientErr.StatusCode
	case errors.As(err, &exhaustedErr):
		return http.StatusServiceUnavailable
	case errors.Is(err, history.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, utils.ErrResourceBusy):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
