package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/xiebiao/library/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func perform(t *testing.T, fn func(c *gin.Context)) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/books/1", nil)
	fn(c)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var body ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestError_MapsKindToStatus(t *testing.T) {
	testCases := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		{"不存在", apperrors.New(apperrors.ErrCodeBookNotFound, "图书不存在"), http.StatusNotFound, apperrors.KindNotFound},
		{"冲突", apperrors.New(apperrors.ErrCodeISBNDuplicate, "ISBN号已存在"), http.StatusConflict, apperrors.KindConflict},
		{"状态非法", apperrors.New(apperrors.ErrCodeBookNotAvailable, "图书已借出"), http.StatusBadRequest, apperrors.KindInvalidState},
		{"参数错误", apperrors.ErrInvalidParams, http.StatusUnprocessableEntity, apperrors.KindValidation},
		{"存储故障", apperrors.Wrap(errors.New("dial tcp: refused"), "查询图书失败"), http.StatusInternalServerError, apperrors.KindStoreFailure},
		{"未分类错误", errors.New("boom"), http.StatusInternalServerError, apperrors.KindInternal},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := perform(t, func(c *gin.Context) { Error(c, tc.err) })

			assert.Equal(t, tc.status, w.Code)
			body := decodeError(t, w)
			assert.Equal(t, tc.kind, body.Error)
			assert.NotEmpty(t, body.Message)
		})
	}
}

func TestError_InternalDetailIncluded(t *testing.T) {
	w := perform(t, func(c *gin.Context) {
		Error(c, apperrors.Wrap(errors.New("server selection timeout"), "查询图书失败"))
	})

	body := decodeError(t, w)
	assert.Equal(t, "查询图书失败", body.Message)
	assert.Equal(t, "server selection timeout", body.Detail)
}

func TestSuccessHelpers(t *testing.T) {
	w := perform(t, func(c *gin.Context) { Created(c, gin.H{"id": "1"}) })
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"id":"1"}`, w.Body.String())

	w = perform(t, func(c *gin.Context) { OK(c, NewPageData([]string{}, 12, 1, 5, 3)) })
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"books":[],"total":12,"page":1,"page_size":5,"total_pages":3}`, w.Body.String())
}
