package service

import (
	"slices"

	"restopos/internal/apierror"
	"restopos/internal/model"
)

// ResultadoTransicion is the verdict of the item transition table.
type ResultadoTransicion int

const (
	TransicionPermitida ResultadoTransicion = iota
	TransicionInvalida
	TransicionProhibida
)

// transicionesItem maps state -> next state -> capability required.
// ENTREGADO has no exits.
var transicionesItem = map[string]map[string]Capacidad{
	model.ItemPendiente:     {model.ItemEnviado: CapSalon},
	model.ItemEnviado:       {model.ItemEnPreparacion: CapCocina},
	model.ItemEnPreparacion: {model.ItemListo: CapCocina},
	model.ItemListo:         {model.ItemEntregado: CapSalon},
}

// EvaluarTransicion decides a requested item transition from the static table.
func EvaluarTransicion(actual, destino string, caps []Capacidad) ResultadoTransicion {
	requerida, ok := transicionesItem[actual][destino]
	if !ok {
		return TransicionInvalida
	}
	if !slices.Contains(caps, requerida) {
		return TransicionProhibida
	}
	return TransicionPermitida
}

func validarTransicion(item *model.OrdenItem, destino string, actor Actor) error {
	if item.Cancelado {
		return apierror.InvalidState("ITEM_CANCELLED", "el item %s esta cancelado", item.ID)
	}
	switch EvaluarTransicion(item.Estado, destino, actor.Capacidades()) {
	case TransicionInvalida:
		return apierror.InvalidState("INVALID_TRANSITION", "transicion %s -> %s no permitida", item.Estado, destino).
			With("current_status", item.Estado)
	case TransicionProhibida:
		return apierror.Forbidden("FORBIDDEN_TRANSITION", "el rol %q no puede mover items a %s", actor.Rol, destino)
	}
	return nil
}
