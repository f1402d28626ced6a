package handler

import (
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
)

func newTestContext(method, target string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, target, nil)
	c.Request = req
	return c, w
}

func ginParam(key, value string) gin.Param {
	return gin.Param{Key: key, Value: value}
}
