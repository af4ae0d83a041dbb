package service

import (
	"testing"

	"restopos/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestDesglosarImpuesto(t *testing.T) {
	tasa := dec("0.18")
	cases := []struct{ total, base, impuesto string }{
		{"94.00", "79.66", "14.34"},
		{"118.00", "100.00", "18.00"},
		{"0.01", "0.01", "0.00"},
		{"30.00", "25.42", "4.58"},
	}
	for _, tc := range cases {
		base, imp := desglosarImpuesto(dec(tc.total), tasa)
		assert.True(t, dec(tc.base).Equal(base), "%s base %s", tc.total, base)
		assert.True(t, dec(tc.impuesto).Equal(imp), "%s impuesto %s", tc.total, imp)
		assert.True(t, base.Add(imp).Equal(dec(tc.total)))
	}
}

func TestDentroDeTolerancia(t *testing.T) {
	tol := dec("0.01")
	assert.True(t, dentroDeTolerancia(dec("94.01"), dec("94.00"), tol))
	assert.True(t, dentroDeTolerancia(dec("93.99"), dec("94.00"), tol))
	assert.False(t, dentroDeTolerancia(dec("94.02"), dec("94.00"), tol))
	assert.True(t, maxCero(dec("-3")).IsZero())
}

func TestSeriesPara(t *testing.T) {
	s := testReglas().Series
	assert.Equal(t, "NV01", s.Para(model.DocNotaVenta))
	assert.Equal(t, "F001", s.Para(model.DocFactura))
	assert.Equal(t, "B001", s.Para(model.DocBoleta))
	assert.Equal(t, "FC01", s.NotaCreditoPara(model.DocFactura))
	assert.Equal(t, "BC01", s.NotaCreditoPara(model.DocBoleta))
}
