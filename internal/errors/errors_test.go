package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapKeepsCode(t *testing.T) {
	base := FetchFailed("/api/stats", fmt.Errorf("connection refused"))
	wrapped := Wrap(base, "refresh stats")

	assert.Equal(t, CodeFetchFailed, GetCode(wrapped))
	assert.Contains(t, wrapped.Error(), "connection refused")
	assert.ErrorIs(t, wrapped, base)
}

func TestWrapPlainError(t *testing.T) {
	assert.Nil(t, Wrap(nil, "nothing"))
	assert.Equal(t, CodeInternalError, GetCode(Wrap(fmt.Errorf("boom"), "ctx")))
	assert.Equal(t, "UNKNOWN", GetCode(fmt.Errorf("plain")))
}

func TestWrapfThroughFmt(t *testing.T) {
	err := fmt.Errorf("outer: %w", NotFound("agent file"))
	assert.True(t, HasCode(err, CodeNotFound))
	assert.Equal(t, "agent file not found", NotFound("agent file").Error())
	assert.Equal(t, CodeNotFound, GetCode(Wrapf(err, "read %s", "SOUL.md")))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{NotFound("x"), http.StatusNotFound},
		{InvalidInput("bad"), http.StatusBadRequest},
		{MalformedPayload("flowchart", "missing mermaid"), http.StatusBadGateway},
		{ExternalServiceError("agent main", fmt.Errorf("offline")), http.StatusBadGateway},
		{RenderFailed(fmt.Errorf("parse")), http.StatusInternalServerError},
		{fmt.Errorf("plain"), http.StatusInternalServerError},
	}
	for _, test := range tests {
		assert.Equal(t, test.want, HTTPStatus(test.err), "error %v", test.err)
	}
}

func TestExternalServiceError(t *testing.T) {
	cause := fmt.Errorf("offline")
	err := ExternalServiceError("agent coding", cause)
	assert.Equal(t, CodeExternalService, err.Code)
	assert.Equal(t, "agent coding service error: offline", err.Error())
	assert.ErrorIs(t, err, cause)
}
