package service

import (
	"testing"

	"restopos/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestEvaluarTransicion(t *testing.T) {
	salon := []Capacidad{CapSalon}
	cocina := []Capacidad{CapCocina}
	todo := []Capacidad{CapSalon, CapCocina}

	cases := []struct {
		actual, destino string
		caps            []Capacidad
		want            ResultadoTransicion
	}{
		{model.ItemPendiente, model.ItemEnviado, salon, TransicionPermitida},
		{model.ItemPendiente, model.ItemEnviado, cocina, TransicionProhibida},
		{model.ItemEnviado, model.ItemEnPreparacion, cocina, TransicionPermitida},
		{model.ItemEnviado, model.ItemEnPreparacion, salon, TransicionProhibida},
		{model.ItemEnPreparacion, model.ItemListo, cocina, TransicionPermitida},
		{model.ItemListo, model.ItemEntregado, salon, TransicionPermitida},
		{model.ItemListo, model.ItemEntregado, cocina, TransicionProhibida},
		{model.ItemPendiente, model.ItemListo, todo, TransicionInvalida},
		{model.ItemListo, model.ItemEnPreparacion, todo, TransicionInvalida},
		{model.ItemEntregado, model.ItemPendiente, todo, TransicionInvalida},
		{model.ItemEnviado, "SERVIDO", todo, TransicionInvalida},
		{model.ItemPendiente, model.ItemEnviado, nil, TransicionProhibida},
	}
	for _, tc := range cases {
		got := EvaluarTransicion(tc.actual, tc.destino, tc.caps)
		assert.Equal(t, tc.want, got, "%s -> %s with %v", tc.actual, tc.destino, tc.caps)
	}
}

func TestCapacidadesPorRol(t *testing.T) {
	assert.True(t, Actor{Rol: RolMozo}.Puede(CapSalon))
	assert.False(t, Actor{Rol: RolMozo}.Puede(CapCocina))
	assert.True(t, Actor{Rol: RolCocina}.Puede(CapCocina))
	assert.True(t, Actor{Rol: RolAdministrador}.Puede(CapCocina))
	assert.True(t, Actor{Rol: RolAdministrador}.Puede(CapSalon))
	assert.Empty(t, Actor{Rol: "invitado"}.Capacidades())
}
