package strut_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strutkit/strut"
)

func TestError_and_Errorf(t *testing.T) {
	t.Parallel()

	err := strut.Error(http.StatusNotFound, "widget not found")
	assert.Equal(t, "widget not found", err.Error())
	assert.Equal(t, http.StatusNotFound, strut.ErrorStatus(err))

	err = strut.Errorf(http.StatusConflict, "widget %s is locked", "w-1")
	assert.Equal(t, "widget w-1 is locked", err.Error())
	assert.Equal(t, http.StatusConflict, strut.ErrorStatus(err))
}

func TestErrorStatus(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		err  error
		want int
	}{
		"http error": {
			err:  strut.Error(http.StatusTeapot, "short and stout"),
			want: http.StatusTeapot,
		},
		"problem": {
			err:  strut.NewProblem(http.StatusForbidden, "nope"),
			want: http.StatusForbidden,
		},
		"wrapped http error": {
			err:  fmt.Errorf("while fetching: %w", strut.Error(http.StatusBadGateway, "upstream")),
			want: http.StatusBadGateway,
		},
		"plain error": {
			err:  errors.New("whatever"),
			want: http.StatusInternalServerError,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, strut.ErrorStatus(tc.err))
		})
	}
}

func TestNewProblem(t *testing.T) {
	t.Parallel()

	p := strut.NewProblem(http.StatusNotFound, "no such widget")
	assert.Equal(t, "about:blank", p.Type)
	assert.Equal(t, "Not Found", p.Title)
	assert.Equal(t, http.StatusNotFound, p.Status)
	assert.Equal(t, "no such widget", p.Detail)
	assert.Equal(t, "no such widget", p.Error())
	assert.Equal(t, http.StatusNotFound, p.StatusCode())
}

func TestProblem_error_prefers_detail(t *testing.T) {
	t.Parallel()

	p := &strut.Problem{Title: "Bad Request", Status: http.StatusBadRequest}
	assert.Equal(t, "Bad Request", p.Error())

	p.Detail = "limit must be a number"
	assert.Equal(t, "limit must be a number", p.Error())
}

func TestRegistrationError_wraps_sentinels(t *testing.T) {
	t.Parallel()

	regErr := &strut.RegistrationError{
		Method:   http.MethodGet,
		Template: "/widgets/{id}",
		Err:      fmt.Errorf("%w: {id} is not bound by any extractor", strut.ErrVarMismatch),
	}

	assert.Equal(t, "register GET /widgets/{id}: path variable mismatch: {id} is not bound by any extractor", regErr.Error())
	assert.ErrorIs(t, regErr, strut.ErrVarMismatch)

	var target *strut.RegistrationError
	require.ErrorAs(t, error(regErr), &target)
	assert.Equal(t, "/widgets/{id}", target.Template)
}
