package apq

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

func TestStatusForResponse(t *testing.T) {
	tests := []struct {
		name          string
		resp          *Response
		defaultStatus int
		want          int
	}{
		{
			name:          "nil response keeps default",
			resp:          nil,
			defaultStatus: http.StatusOK,
			want:          http.StatusOK,
		},
		{
			name:          "no errors keeps default",
			resp:          &Response{},
			defaultStatus: http.StatusOK,
			want:          http.StatusOK,
		},
		{
			name: "sentinel maps to 202",
			resp: &Response{Errors: gqlerror.List{
				{Message: NotFoundMessage},
			}},
			defaultStatus: http.StatusOK,
			want:          http.StatusAccepted,
		},
		{
			name: "sentinel overrides server error status",
			resp: &Response{Errors: gqlerror.List{
				{Message: NotFoundMessage},
			}},
			defaultStatus: http.StatusInternalServerError,
			want:          http.StatusAccepted,
		},
		{
			name: "other error message keeps default",
			resp: &Response{Errors: gqlerror.List{
				{Message: "Syntax Error: Unexpected <EOF>"},
			}},
			defaultStatus: http.StatusBadRequest,
			want:          http.StatusBadRequest,
		},
		{
			name: "sentinel only honored in first error",
			resp: &Response{Errors: gqlerror.List{
				{Message: "some other error"},
				{Message: NotFoundMessage},
			}},
			defaultStatus: http.StatusOK,
			want:          http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusForResponse(tt.resp, tt.defaultStatus))
		})
	}
}

func TestStatusForBody(t *testing.T) {
	sentinel := []byte(`{"errors":[{"message":"PersistedQueryNotFound"}]}`)
	assert.Equal(t, http.StatusAccepted, StatusForBody(sentinel, http.StatusOK))
	assert.Equal(t, http.StatusAccepted, StatusForBody(sentinel, http.StatusInternalServerError))

	data := []byte(`{"data":{"posts":[]}}`)
	assert.Equal(t, http.StatusOK, StatusForBody(data, http.StatusOK))

	notJSON := []byte(`<html>upstream error page</html>`)
	assert.Equal(t, http.StatusBadGateway, StatusForBody(notJSON, http.StatusBadGateway))
}
