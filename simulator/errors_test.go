package simulator_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/kamalbuilds/movetracer/clients/fullnode"
	"github.com/kamalbuilds/movetracer/history"
	"github.com/kamalbuilds/movetracer/movement"
	"github.com/kamalbuilds/movetracer/simulator"
	"github.com/kamalbuilds/movetracer/utils"
	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := map[string]struct {
		err  error
		want int
	}{
		"nil":            {nil, http.StatusOK},
		"config":         {&utils.ConfigError{Network: "x"}, http.StatusBadRequest},
		"payload":        {&movement.InvalidPayloadError{Field: "function"}, http.StatusBadRequest},
		"not replayable": {simulator.ErrNotReplayable, http.StatusBadRequest},
		"upstream 404":   {&fullnode.UpstreamClientError{StatusCode: http.StatusNotFound}, http.StatusNotFound},
		"wrapped 422": {
			fmt.Errorf("simulate: %w", &fullnode.UpstreamClientError{StatusCode: http.StatusUnprocessableEntity}),
			http.StatusUnprocessableEntity,
		},
		"exhausted": {&fullnode.AllEndpointsFailedError{Network: "testnet"}, http.StatusServiceUnavailable},
		"busy":      {utils.ErrResourceBusy, http.StatusTooManyRequests},
		"no record": {history.ErrNotFound, http.StatusNotFound},
		"other":     {errors.New("boom"), http.StatusInternalServerError},
		"canceled":  {context.Canceled, http.StatusInternalServerError},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.want, simulator.HTTPStatus(test.err))
		})
	}
}
