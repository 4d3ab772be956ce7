package response

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOKWithData(t *testing.T) {
	data := map[string]string{"key": "value"}
	resp := OKWithData(data)

	assert.Equal(t, StatusOK, resp.Status)
	assert.Empty(t, resp.Error)
	assert.Equal(t, data, resp.Data)
}

func TestError(t *testing.T) {
	resp := Error("something went wrong")

	assert.Equal(t, StatusError, resp.Status)
	assert.Equal(t, "something went wrong", resp.Error)
	assert.Nil(t, resp.Data)
}

func TestFail(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	Fail(rec, req, http.StatusConflict, "already exists")

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"status":"Error","error":"already exists"}`, rec.Body.String())
}

func TestValidationError(t *testing.T) {
	type input struct {
		Name  string `validate:"required"`
		Kind  string `validate:"oneof=workout product"`
		Price int64  `validate:"gt=0"`
		Link  string `validate:"omitempty,url"`
		Owner string `validate:"omitempty,uuid"`
	}

	err := validator.New().Struct(input{Kind: "food", Link: "not a link", Owner: "42"})
	require.Error(t, err)

	resp := ValidationError(err.(validator.ValidationErrors))

	assert.Equal(t, StatusError, resp.Status)
	assert.Contains(t, resp.Error, "field Name is a required field")
	assert.Contains(t, resp.Error, "field Kind must be one of: workout product")
	assert.Contains(t, resp.Error, "field Price must be greater than 0")
	assert.Contains(t, resp.Error, "field Link must be a valid url")
	assert.Contains(t, resp.Error, "field Owner can contain only uuid")
}
