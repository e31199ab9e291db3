package protocol

import (
	"strings"
)

// Command tags (client to server).
const (
	TagLogin        = "LOGIN"
	TagLogout       = "LOGOUT"
	TagCambiarClave = "CAMBIAR_CLAVE"

	TagListarMedicos      = "LISTAR_MEDICOS"
	TagBuscarMedico       = "BUSCAR_MEDICO"
	TagBuscarMedicoNombre = "BUSCAR_MEDICO_NOMBRE"
	TagAgregarMedico      = "AGREGAR_MEDICO"
	TagModificarMedico    = "MODIFICAR_MEDICO"
	TagEliminarMedico     = "ELIMINAR_MEDICO"

	TagListarFarmaceutas   = "LISTAR_FARMACEUTAS"
	TagBuscarFarmaceuta    = "BUSCAR_FARMACEUTA"
	TagAgregarFarmaceuta   = "AGREGAR_FARMACEUTA"
	TagModificarFarmaceuta = "MODIFICAR_FARMACEUTA"
	TagEliminarFarmaceuta  = "ELIMINAR_FARMACEUTA"

	TagListarPacientes   = "LISTAR_PACIENTES"
	TagBuscarPaciente    = "BUSCAR_PACIENTE"
	TagAgregarPaciente   = "AGREGAR_PACIENTE"
	TagModificarPaciente = "MODIFICAR_PACIENTE"
	TagEliminarPaciente  = "ELIMINAR_PACIENTE"

	TagListarMedicamentos   = "LISTAR_MEDICAMENTOS"
	TagBuscarMedicamento    = "BUSCAR_MEDICAMENTO"
	TagAgregarMedicamento   = "AGREGAR_MEDICAMENTO"
	TagModificarMedicamento = "MODIFICAR_MEDICAMENTO"
	TagEliminarMedicamento  = "ELIMINAR_MEDICAMENTO"

	TagListarRecetas          = "LISTAR_RECETAS"
	TagBuscarReceta           = "BUSCAR_RECETA"
	TagCrearReceta            = "CREAR_RECETA"
	TagActualizarEstadoReceta = "ACTUALIZAR_ESTADO_RECETA"
	TagListarRecetasPaciente  = "LISTAR_RECETAS_PACIENTE"

	TagDashboardEstadisticas = "DASHBOARD_ESTADISTICAS"

	TagEnviarMensaje         = "ENVIAR_MENSAJE"
	TagListarUsuariosActivos = "LISTAR_USUARIOS_ACTIVOS"
	TagCargarHistorial       = "CARGAR_HISTORIAL"

	TagPing = "PING"
)

// Reply and push tags (server to client).
const (
	TagOK           = "OK"
	TagError        = "ERROR"
	TagPong         = "PONG"
	TagBienvenido   = "BIENVENIDO"
	TagNotificacion = "NOTIFICACION"
	TagMensaje      = "MENSAJE"
)

// Notification kinds (second field of a NOTIFICACION line).
const (
	NotifLogin          = "LOGIN"
	NotifLogout         = "LOGOUT"
	NotifReconexion     = "RECONEXION"
	NotifServerShutdown = "SERVER_SHUTDOWN"
)

// Delim separates fields within a line. Rows inside an OK payload are
// comma-joined, so neither '|' nor ',' may appear inside a field value.
const Delim = "|"

// Encode builds one wire line, newline terminated.
func Encode(tag string, fields ...string) string {
	if len(fields) == 0 {
		return tag + "\n"
	}
	return tag + Delim + strings.Join(fields, Delim) + "\n"
}

// Decode splits a received line into its tag and fields. Trailing empty
// fields are preserved: "CAMBIAR_CLAVE|vieja|" decodes to two fields, the
// second one empty, so arity checks see the declared delimiter count.
func Decode(line string) (tag string, fields []string) {
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	parts := strings.Split(line, Delim)
	return parts[0], parts[1:]
}

// EncodeRows serializes result rows into an OK reply: each row becomes one
// field with its columns comma-joined, matching the original serialization
// (OK|id,nombre,especialidad|id,nombre,especialidad).
func EncodeRows(rows [][]string) string {
	fields := make([]string, 0, len(rows))
	for _, row := range rows {
		fields = append(fields, strings.Join(row, ","))
	}
	return Encode(TagOK, fields...)
}

// DecodeRows parses the payload fields of an OK reply back into rows.
func DecodeRows(fields []string) [][]string {
	var rows [][]string
	for _, f := range fields {
		if f == "" {
			continue
		}
		rows = append(rows, strings.Split(f, ","))
	}
	return rows
}

// Sanitize strips the characters that are structural on the wire. Commas
// are included because sanitized text ends up inside comma-joined rows
// (chat history). Applied to free-text fields before encoding.
func Sanitize(s string) string {
	s = strings.ReplaceAll(s, Delim, " ")
	s = strings.ReplaceAll(s, ",", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	return s
}
