package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestRegistrationHandlerRejectsBadTermID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewRegistrationHandler(nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/terms/abc/events", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "abc"}}

	handler.ListEvents(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegistrationHandlerRejectsBadTimestamp(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewRegistrationHandler(nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/terms/1/events/not-a-time", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "1"}, {Key: "ts", Value: "not-a-time"}}

	handler.GetEvent(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTermHandlerRejectsBadID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewTermHandler(nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/terms/abc", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "abc"}}

	handler.Get(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
