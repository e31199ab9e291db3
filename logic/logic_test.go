package logic

import (
	"path/filepath"
	"testing"
	"time"

	"hospital/db"
	"hospital/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupLogic(t *testing.T) *Logic {
	t.Helper()

	database, err := db.New(filepath.Join(t.TempDir(), "hospital.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	return New(database)
}

func fecha(t *testing.T, s string) time.Time {
	t.Helper()
	f, err := time.Parse(models.FechaFormato, s)
	require.NoError(t, err)
	return f
}

func seedReceta(t *testing.T, l *Logic) {
	t.Helper()

	require.NoError(t, l.AgregarMedico(models.Medico{ID: "m1", Nombre: "Dra. Rojas", Especialidad: "Pediatría"}))
	require.NoError(t, l.AgregarPaciente(models.Paciente{ID: "p1", Nombre: "Ana Solís", Telefono: "8888-0000", FechaNacimiento: fecha(t, "1990-05-20")}))
	require.NoError(t, l.AgregarMedicamento(models.Medicamento{Codigo: "med1", Nombre: "Acetaminofén", Presentacion: "tabletas 500mg"}))
}

func nuevaReceta(t *testing.T, id string) models.Receta {
	t.Helper()
	return models.Receta{
		ID:          id,
		PacienteID:  "p1",
		MedicoID:    "m1",
		Fecha:       fecha(t, "2026-08-31"),
		FechaRetiro: fecha(t, "2026-09-03"),
		Estado:      models.EstadoConfeccionada,
		Detalles: []models.DetalleReceta{
			{MedicamentoCodigo: "med1", Cantidad: 10, Indicaciones: "cada 8 horas", DiasTratamiento: 3},
		},
	}
}

func TestLoginInitialClaveIsID(t *testing.T) {
	l := setupLogic(t)
	require.NoError(t, l.AgregarMedico(models.Medico{ID: "m1", Nombre: "Dra. Rojas", Especialidad: "Pediatría"}))

	u, err := l.Login("m1", "m1")
	require.NoError(t, err)
	assert.Equal(t, "m1", u.ID)
	assert.Equal(t, "Dra. Rojas", u.Nombre)
	assert.Equal(t, models.RoleMedico, u.Rol)
}

func TestLoginFailures(t *testing.T) {
	l := setupLogic(t)
	require.NoError(t, l.AgregarMedico(models.Medico{ID: "m1", Nombre: "Dra. Rojas", Especialidad: "Pediatría"}))

	for _, tc := range []struct{ id, clave string }{
		{"m1", "mala"},
		{"nadie", "nadie"},
		{"", "m1"},
		{"m1", ""},
	} {
		_, err := l.Login(tc.id, tc.clave)
		assert.ErrorIs(t, err, ErrCredenciales, "login %q/%q", tc.id, tc.clave)
	}
}

func TestLoginSeededAdmin(t *testing.T) {
	l := setupLogic(t)

	u, err := l.Login("admin", "admin")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdministrador, u.Rol)
}

func TestCambiarClave(t *testing.T) {
	l := setupLogic(t)
	require.NoError(t, l.AgregarFarmaceuta(models.Farmaceuta{ID: "f1", Nombre: "Luis Mora"}))

	assert.EqualError(t, l.CambiarClave("f1", "mala", "nueva"), "La clave actual es incorrecta")
	assert.EqualError(t, l.CambiarClave("f1", "f1", ""), "La nueva clave no puede estar vacía")
	assert.EqualError(t, l.CambiarClave("nadie", "x", "y"), "Usuario no encontrado")

	require.NoError(t, l.CambiarClave("f1", "f1", "secreta"))

	_, err := l.Login("f1", "f1")
	assert.ErrorIs(t, err, ErrCredenciales)
	_, err = l.Login("f1", "secreta")
	assert.NoError(t, err)
}

func TestMedicoCrud(t *testing.T) {
	l := setupLogic(t)

	assert.EqualError(t, l.AgregarMedico(models.Medico{Nombre: "x", Especialidad: "y"}), "El id es obligatorio.")
	assert.EqualError(t, l.AgregarMedico(models.Medico{ID: "m1", Especialidad: "y"}), "El nombre es obligatorio.")
	assert.EqualError(t, l.AgregarMedico(models.Medico{ID: "m1", Nombre: "x"}), "La especialidad es obligatoria.")

	m := models.Medico{ID: "m1", Nombre: "Dra. Rojas", Especialidad: "Pediatría"}
	require.NoError(t, l.AgregarMedico(m))
	assert.EqualError(t, l.AgregarMedico(m), "Ya existe un médico con el id: m1")

	encontrado, err := l.BuscarMedico("m1")
	require.NoError(t, err)
	require.NotNil(t, encontrado)
	assert.Equal(t, "Pediatría", encontrado.Especialidad)

	m.Especialidad = "Cardiología"
	require.NoError(t, l.ModificarMedico(m))
	assert.EqualError(t, l.ModificarMedico(models.Medico{ID: "nadie", Nombre: "x", Especialidad: "y"}), "No existe médico con id: nadie")

	lista, err := l.ListarMedicos()
	require.NoError(t, err)
	assert.Len(t, lista, 1)
	assert.Equal(t, "Cardiología", lista[0].Especialidad)

	require.NoError(t, l.EliminarMedico("m1"))
	assert.EqualError(t, l.EliminarMedico("m1"), "Médico no encontrado")
	assert.EqualError(t, l.EliminarMedico("  "), "El ID es obligatorio")
}

func TestBuscarMedicosPorNombre(t *testing.T) {
	l := setupLogic(t)
	require.NoError(t, l.AgregarMedico(models.Medico{ID: "m1", Nombre: "Dra. Rojas", Especialidad: "Pediatría"}))
	require.NoError(t, l.AgregarMedico(models.Medico{ID: "m2", Nombre: "Dr. Vega", Especialidad: "Cardiología"}))

	// Case-insensitive substring match
	encontrados, err := l.BuscarMedicosPorNombre("roja")
	require.NoError(t, err)
	require.Len(t, encontrados, 1)
	assert.Equal(t, "m1", encontrados[0].ID)

	encontrados, err = l.BuscarMedicosPorNombre("DR")
	require.NoError(t, err)
	assert.Len(t, encontrados, 2)

	encontrados, err = l.BuscarMedicosPorNombre("nadie")
	require.NoError(t, err)
	assert.Empty(t, encontrados)
}

func TestPacienteValidation(t *testing.T) {
	l := setupLogic(t)

	nac := fecha(t, "1990-05-20")
	assert.EqualError(t, l.AgregarPaciente(models.Paciente{Nombre: "x", Telefono: "1", FechaNacimiento: nac}), "El id es obligatorio.")
	assert.EqualError(t, l.AgregarPaciente(models.Paciente{ID: "p1", Telefono: "1", FechaNacimiento: nac}), "El nombre es obligatorio.")
	assert.EqualError(t, l.AgregarPaciente(models.Paciente{ID: "p1", Nombre: "x", FechaNacimiento: nac}), "El teléfono es obligatorio.")
	assert.EqualError(t, l.AgregarPaciente(models.Paciente{ID: "p1", Nombre: "x", Telefono: "1"}), "La fecha de nacimiento es obligatoria.")

	p := models.Paciente{ID: "p1", Nombre: "Ana Solís", Telefono: "8888-0000", FechaNacimiento: nac}
	require.NoError(t, l.AgregarPaciente(p))
	assert.EqualError(t, l.AgregarPaciente(p), "Ya existe un paciente con el id: p1")

	encontrado, err := l.BuscarPaciente("p1")
	require.NoError(t, err)
	require.NotNil(t, encontrado)
	assert.True(t, nac.Equal(encontrado.FechaNacimiento))
}

func TestMedicamentoCrud(t *testing.T) {
	l := setupLogic(t)

	assert.EqualError(t, l.AgregarMedicamento(models.Medicamento{Nombre: "x", Presentacion: "y"}), "El código es obligatorio.")

	m := models.Medicamento{Codigo: "med1", Nombre: "Acetaminofén", Presentacion: "tabletas 500mg"}
	require.NoError(t, l.AgregarMedicamento(m))
	assert.EqualError(t, l.AgregarMedicamento(m), "Ya existe un medicamento con el código: med1")

	m.Presentacion = "jarabe 120ml"
	require.NoError(t, l.ModificarMedicamento(m))
	assert.EqualError(t, l.ModificarMedicamento(models.Medicamento{Codigo: "nada", Nombre: "x", Presentacion: "y"}), "No existe medicamento con código: nada")

	require.NoError(t, l.EliminarMedicamento("med1"))
	assert.EqualError(t, l.EliminarMedicamento("med1"), "Medicamento no encontrado")
}

func TestCrearRecetaValidation(t *testing.T) {
	l := setupLogic(t)
	seedReceta(t, l)

	r := nuevaReceta(t, "r1")

	sinID := r
	sinID.ID = ""
	assert.EqualError(t, l.CrearReceta(sinID), "El ID de la receta es obligatorio.")

	sinDetalles := r
	sinDetalles.Detalles = nil
	assert.EqualError(t, l.CrearReceta(sinDetalles), "La receta debe tener al menos un medicamento.")

	sinFecha := r
	sinFecha.Fecha = time.Time{}
	assert.EqualError(t, l.CrearReceta(sinFecha), "La receta debe tener una fecha válida.")

	malPaciente := r
	malPaciente.PacienteID = "nadie"
	assert.EqualError(t, l.CrearReceta(malPaciente), "Paciente no encontrado: nadie")

	malMedico := r
	malMedico.MedicoID = "nadie"
	assert.EqualError(t, l.CrearReceta(malMedico), "Médico no encontrado: nadie")

	malMedicamento := r
	malMedicamento.Detalles = []models.DetalleReceta{{MedicamentoCodigo: "nada", Cantidad: 1}}
	assert.EqualError(t, l.CrearReceta(malMedicamento), "Medicamento no encontrado: nada")

	malCantidad := r
	malCantidad.Detalles = []models.DetalleReceta{{MedicamentoCodigo: "med1", Cantidad: 0}}
	assert.EqualError(t, l.CrearReceta(malCantidad), "La cantidad debe ser mayor que cero.")

	require.NoError(t, l.CrearReceta(r))
	assert.EqualError(t, l.CrearReceta(r), "Ya existe una receta con el id: r1")

	guardada, err := l.BuscarReceta("r1")
	require.NoError(t, err)
	require.NotNil(t, guardada)
	assert.Equal(t, models.EstadoConfeccionada, guardada.Estado)
	require.Len(t, guardada.Detalles, 1)
	assert.Equal(t, 10, guardada.Detalles[0].Cantidad)
}

func TestActualizarEstadoReceta(t *testing.T) {
	l := setupLogic(t)
	seedReceta(t, l)
	require.NoError(t, l.CrearReceta(nuevaReceta(t, "r1")))

	assert.EqualError(t, l.ActualizarEstadoReceta("nadie", models.EstadoProceso), "No existe una receta con el ID: nadie")

	// Forward transitions, including skips, are allowed
	require.NoError(t, l.ActualizarEstadoReceta("r1", models.EstadoProceso))
	require.NoError(t, l.ActualizarEstadoReceta("r1", models.EstadoLista))

	// Moving backwards is rejected
	assert.EqualError(t, l.ActualizarEstadoReceta("r1", models.EstadoConfeccionada), "No se puede pasar de LISTA a CONFECCIONADA")

	require.NoError(t, l.ActualizarEstadoReceta("r1", models.EstadoEntregada))

	guardada, err := l.BuscarReceta("r1")
	require.NoError(t, err)
	assert.Equal(t, models.EstadoEntregada, guardada.Estado)
}

func TestListarRecetasPorPaciente(t *testing.T) {
	l := setupLogic(t)
	seedReceta(t, l)
	require.NoError(t, l.CrearReceta(nuevaReceta(t, "r1")))
	require.NoError(t, l.CrearReceta(nuevaReceta(t, "r2")))

	_, err := l.ListarRecetasPorPaciente(" ")
	assert.EqualError(t, err, "El ID del paciente no puede estar vacío.")

	recetas, err := l.ListarRecetasPorPaciente("p1")
	require.NoError(t, err)
	assert.Len(t, recetas, 2)

	recetas, err = l.ListarRecetasPorPaciente("otro")
	require.NoError(t, err)
	assert.Empty(t, recetas)
}

func TestRecetasPorEstado(t *testing.T) {
	l := setupLogic(t)
	seedReceta(t, l)
	require.NoError(t, l.CrearReceta(nuevaReceta(t, "r1")))
	require.NoError(t, l.CrearReceta(nuevaReceta(t, "r2")))
	require.NoError(t, l.ActualizarEstadoReceta("r2", models.EstadoProceso))

	counts, err := l.RecetasPorEstado()
	require.NoError(t, err)
	assert.Equal(t, 1, counts[models.EstadoConfeccionada])
	assert.Equal(t, 1, counts[models.EstadoProceso])
	assert.Zero(t, counts[models.EstadoEntregada])
}
