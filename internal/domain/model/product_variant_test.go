package model_test

import (
	"testing"

	"app/internal/domain/model"

	"github.com/stretchr/testify/assert"
)

func TestNewDefaultVariant(t *testing.T) {
	p := model.Product{ID: 3, Name: "Mug", Price: 500}

	v := model.NewDefaultVariant(p)

	//永続化前なのでID=0のまま
	assert.Equal(t, int64(0), v.ID)
	assert.Equal(t, int64(3), v.ProductID)
	assert.Equal(t, model.DefaultVariantLabel, v.Label)
	assert.Equal(t, int64(500), v.Price)
	assert.Equal(t, int64(0), v.Inventory)
}
