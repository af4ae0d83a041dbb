package service

import (
	"slices"

	"github.com/google/uuid"
)

// Roles as issued in the access token.
const (
	RolMozo          = "mozo"
	RolCocina        = "cocina"
	RolCajero        = "cajero"
	RolAdministrador = "administrador"
)

// Capacidad is what a role is allowed to do to an item.
type Capacidad string

const (
	// CapSalon covers front-of-house work: sending and delivering.
	CapSalon Capacidad = "salon"
	// CapCocina covers preparation work.
	CapCocina Capacidad = "cocina"
)

var capacidadesPorRol = map[string][]Capacidad{
	RolMozo:          {CapSalon},
	RolCajero:        {CapSalon},
	RolCocina:        {CapCocina},
	RolAdministrador: {CapSalon, CapCocina},
}

// Roles grouped by capability, for route gating.
var (
	RolesSalon  = []string{RolMozo, RolCajero, RolAdministrador}
	RolesCocina = []string{RolCocina, RolAdministrador}
	RolesCaja   = []string{RolCajero, RolAdministrador}
)

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UsuarioID uuid.UUID
	Rol       string
}

func (a Actor) Capacidades() []Capacidad {
	return capacidadesPorRol[a.Rol]
}

func (a Actor) Puede(c Capacidad) bool {
	return slices.Contains(a.Capacidades(), c)
}
