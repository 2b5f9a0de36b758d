package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"billbook/internal/core"
)

type testEnvelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) testEnvelope {
	t.Helper()
	var env testEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("invalid envelope %q: %v", rec.Body.String(), err)
	}
	return env
}

func TestResponseBuilder_Success(t *testing.T) {
	rec := httptest.NewRecorder()
	Success(http.StatusCreated, "created", map[string]int{"n": 1}).Header("X-Test", "yes").Write(rec)

	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d", rec.Code)
	}
	if rec.Header().Get("X-Test") != "yes" {
		t.Error("custom header missing")
	}
	env := decodeEnvelope(t, rec)
	if env.Code != 0 || env.Msg != "created" || string(env.Data) != `{"n":1}` {
		t.Errorf("envelope = %+v", env)
	}
}

func TestResponseBuilder_ErrorHasNullData(t *testing.T) {
	rec := httptest.NewRecorder()
	NotFoundError("bill not found").Write(rec)

	env := decodeEnvelope(t, rec)
	if env.Code != http.StatusNotFound || env.Msg != "bill not found" || string(env.Data) != "null" {
		t.Errorf("envelope = %+v", env)
	}
}

func TestWriteError_StatusMapping(t *testing.T) {
	tests := []struct {
		err     error
		status  int
		message string
	}{
		{core.ErrInvalidAmount, http.StatusBadRequest, "amount must be greater than zero"},
		{core.Errorf(core.ErrDuplicate, "category already exists"), http.StatusBadRequest, "category already exists"},
		{core.Errorf(core.ErrUnauthorized, "no token"), http.StatusUnauthorized, "no token"},
		{core.Errorf(core.ErrForbidden, "not yours"), http.StatusForbidden, "not yours"},
		{fmt.Errorf("load: %w", core.Errorf(core.ErrNotFound, "bill not found")), http.StatusNotFound, "bill not found"},
		{core.Errorf(core.ErrInUse, "category in use"), http.StatusConflict, "category in use"},
		{core.ErrNotFound, http.StatusNotFound, "Not Found"},
		{errors.New("disk on fire"), http.StatusInternalServerError, "internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			env := decodeEnvelope(t, rec)
			if env.Code != tt.status || env.Msg != tt.message {
				t.Errorf("envelope = %+v, want code %d msg %q", env, tt.status, tt.message)
			}
		})
	}
}
