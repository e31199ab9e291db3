package models

import "time"

// Role classifies an authenticated user.
type Role string

const (
	RoleMedico        Role = "MEDICO"
	RoleFarmaceuta    Role = "FARMACEUTA"
	RoleAdministrador Role = "ADMINISTRADOR"
	RoleUnknown       Role = "DESCONOCIDO"
)

// ParseRole maps a wire string to a Role.
func ParseRole(s string) Role {
	switch s {
	case "MEDICO":
		return RoleMedico
	case "FARMACEUTA":
		return RoleFarmaceuta
	case "ADMINISTRADOR":
		return RoleAdministrador
	default:
		return RoleUnknown
	}
}

// EstadoReceta is the dispensing state of a prescription.
// Médico issues CONFECCIONADA; the farmacéuta moves it through
// PROCESO and LISTA to ENTREGADA.
type EstadoReceta string

const (
	EstadoConfeccionada EstadoReceta = "CONFECCIONADA"
	EstadoProceso       EstadoReceta = "PROCESO"
	EstadoLista         EstadoReceta = "LISTA"
	EstadoEntregada     EstadoReceta = "ENTREGADA"
)

// ParseEstadoReceta validates a wire string as an EstadoReceta.
func ParseEstadoReceta(s string) (EstadoReceta, bool) {
	switch EstadoReceta(s) {
	case EstadoConfeccionada, EstadoProceso, EstadoLista, EstadoEntregada:
		return EstadoReceta(s), true
	}
	return "", false
}

// Usuario is an authenticated identity as the login operation returns it.
type Usuario struct {
	ID     string
	Nombre string
	Rol    Role
}

type Medico struct {
	ID           string
	Nombre       string
	Especialidad string
}

type Farmaceuta struct {
	ID     string
	Nombre string
}

type Paciente struct {
	ID              string
	Nombre          string
	Telefono        string
	FechaNacimiento time.Time
}

type Medicamento struct {
	Codigo       string
	Nombre       string
	Presentacion string
}

type DetalleReceta struct {
	MedicamentoCodigo string
	Cantidad          int
	Indicaciones      string
	DiasTratamiento   int
}

type Receta struct {
	ID          string
	PacienteID  string
	MedicoID    string
	Fecha       time.Time
	FechaRetiro time.Time
	Estado      EstadoReceta
	Detalles    []DetalleReceta
}

// FechaFormato is the date layout used on the wire and in storage.
const FechaFormato = "2006-01-02"
