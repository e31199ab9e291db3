package logic

import (
	"errors"
	"fmt"
	"strings"

	"hospital/db"
	"hospital/models"
)

// ErrCredenciales is the single message for any authentication failure, so
// the protocol never reveals whether an id exists.
var ErrCredenciales = errors.New("Credenciales incorrectas")

// Logic validates domain operations before touching storage. Error messages
// are operator-facing; the connection handler sends them verbatim as the
// ERROR payload.
type Logic struct {
	db *db.DB
}

func New(database *db.DB) *Logic {
	return &Logic{db: database}
}

// ==================== Autenticación ====================

func (l *Logic) Login(id, clave string) (models.Usuario, error) {
	if id == "" || clave == "" {
		return models.Usuario{}, ErrCredenciales
	}

	usuario, ok, err := l.db.Authenticate(id, clave)
	if err != nil {
		// Storage faults also surface as the generic message.
		return models.Usuario{}, ErrCredenciales
	}
	if !ok {
		return models.Usuario{}, ErrCredenciales
	}
	return usuario, nil
}

func (l *Logic) CambiarClave(userID, actual, nueva string) error {
	if nueva == "" {
		return errors.New("La nueva clave no puede estar vacía")
	}
	err := l.db.UpdateClave(userID, actual, nueva)
	if err == db.ErrNoRows {
		return errors.New("Usuario no encontrado")
	}
	return err
}

// ==================== Médicos ====================

func (l *Logic) ListarMedicos() ([]models.Medico, error) {
	return l.db.ListarMedicos()
}

func (l *Logic) BuscarMedico(id string) (*models.Medico, error) {
	if strings.TrimSpace(id) == "" {
		return nil, nil
	}
	return l.db.BuscarMedico(id)
}

func (l *Logic) BuscarMedicosPorNombre(nombre string) ([]models.Medico, error) {
	medicos, err := l.db.ListarMedicos()
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(nombre)
	var out []models.Medico
	for _, m := range medicos {
		if strings.Contains(strings.ToLower(m.Nombre), q) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (l *Logic) AgregarMedico(m models.Medico) error {
	if err := validarMedico(m); err != nil {
		return err
	}

	existente, err := l.db.BuscarMedico(m.ID)
	if err != nil {
		return err
	}
	if existente != nil {
		return fmt.Errorf("Ya existe un médico con el id: %s", m.ID)
	}

	// Regla: clave inicial = id
	return l.db.InsertMedico(m, m.ID)
}

func (l *Logic) ModificarMedico(m models.Medico) error {
	if err := validarMedico(m); err != nil {
		return err
	}

	err := l.db.UpdateMedico(m)
	if err == db.ErrNoRows {
		return fmt.Errorf("No existe médico con id: %s", m.ID)
	}
	return err
}

func (l *Logic) EliminarMedico(id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("El ID es obligatorio")
	}
	err := l.db.DeleteMedico(id)
	if err == db.ErrNoRows {
		return errors.New("Médico no encontrado")
	}
	return err
}

func validarMedico(m models.Medico) error {
	if strings.TrimSpace(m.ID) == "" {
		return errors.New("El id es obligatorio.")
	}
	if strings.TrimSpace(m.Nombre) == "" {
		return errors.New("El nombre es obligatorio.")
	}
	if strings.TrimSpace(m.Especialidad) == "" {
		return errors.New("La especialidad es obligatoria.")
	}
	return nil
}

// ==================== Farmacéutas ====================

func (l *Logic) ListarFarmaceutas() ([]models.Farmaceuta, error) {
	return l.db.ListarFarmaceutas()
}

func (l *Logic) BuscarFarmaceuta(id string) (*models.Farmaceuta, error) {
	if strings.TrimSpace(id) == "" {
		return nil, nil
	}
	return l.db.BuscarFarmaceuta(id)
}

func (l *Logic) AgregarFarmaceuta(f models.Farmaceuta) error {
	if err := validarFarmaceuta(f); err != nil {
		return err
	}

	existente, err := l.db.BuscarFarmaceuta(f.ID)
	if err != nil {
		return err
	}
	if existente != nil {
		return fmt.Errorf("Ya existe un farmaceuta con el id: %s", f.ID)
	}

	// Regla: clave inicial = id
	return l.db.InsertFarmaceuta(f, f.ID)
}

func (l *Logic) ModificarFarmaceuta(f models.Farmaceuta) error {
	if err := validarFarmaceuta(f); err != nil {
		return err
	}

	err := l.db.UpdateFarmaceuta(f)
	if err == db.ErrNoRows {
		return fmt.Errorf("No existe farmaceuta con id: %s", f.ID)
	}
	return err
}

func (l *Logic) EliminarFarmaceuta(id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("El ID es obligatorio")
	}
	err := l.db.DeleteFarmaceuta(id)
	if err == db.ErrNoRows {
		return errors.New("Farmaceuta no encontrado")
	}
	return err
}

func validarFarmaceuta(f models.Farmaceuta) error {
	if strings.TrimSpace(f.ID) == "" {
		return errors.New("El id es obligatorio.")
	}
	if strings.TrimSpace(f.Nombre) == "" {
		return errors.New("El nombre es obligatorio.")
	}
	return nil
}

// ==================== Pacientes ====================

func (l *Logic) ListarPacientes() ([]models.Paciente, error) {
	return l.db.ListarPacientes()
}

func (l *Logic) BuscarPaciente(id string) (*models.Paciente, error) {
	if strings.TrimSpace(id) == "" {
		return nil, nil
	}
	return l.db.BuscarPaciente(id)
}

func (l *Logic) AgregarPaciente(p models.Paciente) error {
	if err := validarPaciente(p); err != nil {
		return err
	}

	existente, err := l.db.BuscarPaciente(p.ID)
	if err != nil {
		return err
	}
	if existente != nil {
		return fmt.Errorf("Ya existe un paciente con el id: %s", p.ID)
	}

	return l.db.InsertPaciente(p)
}

func (l *Logic) ModificarPaciente(p models.Paciente) error {
	if err := validarPaciente(p); err != nil {
		return err
	}

	err := l.db.UpdatePaciente(p)
	if err == db.ErrNoRows {
		return fmt.Errorf("No existe paciente con id: %s", p.ID)
	}
	return err
}

func (l *Logic) EliminarPaciente(id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("El ID es obligatorio")
	}
	err := l.db.DeletePaciente(id)
	if err == db.ErrNoRows {
		return errors.New("Paciente no encontrado")
	}
	return err
}

func validarPaciente(p models.Paciente) error {
	if strings.TrimSpace(p.ID) == "" {
		return errors.New("El id es obligatorio.")
	}
	if strings.TrimSpace(p.Nombre) == "" {
		return errors.New("El nombre es obligatorio.")
	}
	if strings.TrimSpace(p.Telefono) == "" {
		return errors.New("El teléfono es obligatorio.")
	}
	if p.FechaNacimiento.IsZero() {
		return errors.New("La fecha de nacimiento es obligatoria.")
	}
	return nil
}

// ==================== Medicamentos ====================

func (l *Logic) ListarMedicamentos() ([]models.Medicamento, error) {
	return l.db.ListarMedicamentos()
}

func (l *Logic) BuscarMedicamento(codigo string) (*models.Medicamento, error) {
	if strings.TrimSpace(codigo) == "" {
		return nil, nil
	}
	return l.db.BuscarMedicamento(codigo)
}

func (l *Logic) AgregarMedicamento(m models.Medicamento) error {
	if err := validarMedicamento(m); err != nil {
		return err
	}

	existente, err := l.db.BuscarMedicamento(m.Codigo)
	if err != nil {
		return err
	}
	if existente != nil {
		return fmt.Errorf("Ya existe un medicamento con el código: %s", m.Codigo)
	}

	return l.db.InsertMedicamento(m)
}

func (l *Logic) ModificarMedicamento(m models.Medicamento) error {
	if err := validarMedicamento(m); err != nil {
		return err
	}

	err := l.db.UpdateMedicamento(m)
	if err == db.ErrNoRows {
		return fmt.Errorf("No existe medicamento con código: %s", m.Codigo)
	}
	return err
}

func (l *Logic) EliminarMedicamento(codigo string) error {
	if strings.TrimSpace(codigo) == "" {
		return errors.New("El código es obligatorio")
	}
	err := l.db.DeleteMedicamento(codigo)
	if err == db.ErrNoRows {
		return errors.New("Medicamento no encontrado")
	}
	return err
}

func validarMedicamento(m models.Medicamento) error {
	if strings.TrimSpace(m.Codigo) == "" {
		return errors.New("El código es obligatorio.")
	}
	if strings.TrimSpace(m.Nombre) == "" {
		return errors.New("El nombre es obligatorio.")
	}
	if strings.TrimSpace(m.Presentacion) == "" {
		return errors.New("La presentación es obligatoria.")
	}
	return nil
}

// ==================== Recetas ====================

func (l *Logic) ListarRecetas() ([]models.Receta, error) {
	return l.db.ListarRecetas()
}

func (l *Logic) BuscarReceta(id string) (*models.Receta, error) {
	if strings.TrimSpace(id) == "" {
		return nil, nil
	}
	return l.db.BuscarReceta(id)
}

func (l *Logic) ListarRecetasPorPaciente(pacienteID string) ([]models.Receta, error) {
	if strings.TrimSpace(pacienteID) == "" {
		return nil, errors.New("El ID del paciente no puede estar vacío.")
	}
	return l.db.ListarRecetasPorPaciente(pacienteID)
}

// CrearReceta validates the receta against its referenced paciente and
// médico before storing it. The prescriber identity check (médico may only
// prescribe as itself) is enforced by the caller, which knows the session.
func (l *Logic) CrearReceta(r models.Receta) error {
	if strings.TrimSpace(r.ID) == "" {
		return errors.New("El ID de la receta es obligatorio.")
	}
	if len(r.Detalles) == 0 {
		return errors.New("La receta debe tener al menos un medicamento.")
	}
	if r.Fecha.IsZero() || r.FechaRetiro.IsZero() {
		return errors.New("La receta debe tener una fecha válida.")
	}

	existente, err := l.db.BuscarReceta(r.ID)
	if err != nil {
		return err
	}
	if existente != nil {
		return fmt.Errorf("Ya existe una receta con el id: %s", r.ID)
	}

	paciente, err := l.db.BuscarPaciente(r.PacienteID)
	if err != nil {
		return err
	}
	if paciente == nil {
		return fmt.Errorf("Paciente no encontrado: %s", r.PacienteID)
	}

	medico, err := l.db.BuscarMedico(r.MedicoID)
	if err != nil {
		return err
	}
	if medico == nil {
		return fmt.Errorf("Médico no encontrado: %s", r.MedicoID)
	}

	for _, d := range r.Detalles {
		med, err := l.db.BuscarMedicamento(d.MedicamentoCodigo)
		if err != nil {
			return err
		}
		if med == nil {
			return fmt.Errorf("Medicamento no encontrado: %s", d.MedicamentoCodigo)
		}
		if d.Cantidad <= 0 {
			return errors.New("La cantidad debe ser mayor que cero.")
		}
	}

	return l.db.InsertReceta(r)
}

// estadoOrden defines the dispensing sequence.
var estadoOrden = map[models.EstadoReceta]int{
	models.EstadoConfeccionada: 0,
	models.EstadoProceso:       1,
	models.EstadoLista:         2,
	models.EstadoEntregada:     3,
}

// ActualizarEstadoReceta advances a receta through the dispensing sequence.
// Moving backwards is rejected.
func (l *Logic) ActualizarEstadoReceta(id string, nuevo models.EstadoReceta) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("El ID de la receta es obligatorio.")
	}

	receta, err := l.db.BuscarReceta(id)
	if err != nil {
		return err
	}
	if receta == nil {
		return fmt.Errorf("No existe una receta con el ID: %s", id)
	}

	if estadoOrden[nuevo] < estadoOrden[receta.Estado] {
		return fmt.Errorf("No se puede pasar de %s a %s", receta.Estado, nuevo)
	}

	return l.db.UpdateRecetaEstado(id, nuevo)
}

func (l *Logic) RecetasPorEstado() (map[models.EstadoReceta]int, error) {
	return l.db.RecetasPorEstado()
}
