package http

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealerhub/internal/entities"
)

type fakeCarLister struct {
	statuses []string
	cars     []entities.Car
}

func (f *fakeCarLister) GetByStatus(_ context.Context, status string) ([]entities.Car, error) {
	f.statuses = append(f.statuses, status)
	return f.cars, nil
}

func TestListCarsDefaultStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	lister := &fakeCarLister{cars: []entities.Car{{ID: 1, Brand: "Toyota", Model: "Camry", Status: "in_stock"}}}
	h := &Handler{cars: lister}

	r := gin.New()
	r.GET("/cars", h.ListCars)

	t.Run("no filter lists stocked cars", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("GET", "/cars", nil))

		require.Equal(t, 200, w.Code)
		require.Len(t, lister.statuses, 1)
		assert.Equal(t, "in_stock", lister.statuses[0])
		assert.Contains(t, w.Body.String(), "Camry")
	})

	t.Run("explicit filter passes through", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("GET", "/cars?status=sold", nil))

		require.Equal(t, 200, w.Code)
		assert.Equal(t, "sold", lister.statuses[len(lister.statuses)-1])
	})
}
