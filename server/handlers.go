package server

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"hospital/models"
	"hospital/protocol"
)

// connHandler processes the commands of one connection. Replies are fully
// encoded lines; pushes to other sessions go through the server.
type connHandler struct {
	srv     *Server
	session *Session

	// closing is set by LOGOUT; the read loop sends the reply and then
	// tears the connection down.
	closing bool
}

type handlerFunc func(h *connHandler, fields []string) string

// command declares one protocol operation: its handler, the minimum number
// of fields after the tag, the usage string echoed on arity errors, and its
// authentication/role gate. Mutating operations carry a role; read
// operations are open, as in the original protocol.
type command struct {
	fn        handlerFunc
	minFields int
	usage     string
	auth      bool
	role      models.Role // empty: any (authenticated if auth is set)
}

var dispatch = map[string]command{
	protocol.TagLogin:        {fn: (*connHandler).handleLogin, minFields: 2, usage: "LOGIN|usuario|clave"},
	protocol.TagLogout:       {fn: (*connHandler).handleLogout},
	protocol.TagCambiarClave: {fn: (*connHandler).handleCambiarClave, minFields: 2, usage: "CAMBIAR_CLAVE|claveActual|nuevaClave", auth: true},

	protocol.TagListarMedicos:      {fn: (*connHandler).handleListarMedicos},
	protocol.TagBuscarMedico:       {fn: (*connHandler).handleBuscarMedico, minFields: 1, usage: "BUSCAR_MEDICO|id"},
	protocol.TagBuscarMedicoNombre: {fn: (*connHandler).handleBuscarMedicoNombre, minFields: 1, usage: "BUSCAR_MEDICO_NOMBRE|nombre"},
	protocol.TagAgregarMedico:      {fn: (*connHandler).handleAgregarMedico, minFields: 3, usage: "AGREGAR_MEDICO|id|nombre|especialidad", auth: true, role: models.RoleAdministrador},
	protocol.TagModificarMedico:    {fn: (*connHandler).handleModificarMedico, minFields: 3, usage: "MODIFICAR_MEDICO|id|nombre|especialidad", auth: true, role: models.RoleAdministrador},
	protocol.TagEliminarMedico:     {fn: (*connHandler).handleEliminarMedico, minFields: 1, usage: "ELIMINAR_MEDICO|id", auth: true, role: models.RoleAdministrador},

	protocol.TagListarFarmaceutas:   {fn: (*connHandler).handleListarFarmaceutas},
	protocol.TagBuscarFarmaceuta:    {fn: (*connHandler).handleBuscarFarmaceuta, minFields: 1, usage: "BUSCAR_FARMACEUTA|id"},
	protocol.TagAgregarFarmaceuta:   {fn: (*connHandler).handleAgregarFarmaceuta, minFields: 2, usage: "AGREGAR_FARMACEUTA|id|nombre", auth: true, role: models.RoleAdministrador},
	protocol.TagModificarFarmaceuta: {fn: (*connHandler).handleModificarFarmaceuta, minFields: 2, usage: "MODIFICAR_FARMACEUTA|id|nombre", auth: true, role: models.RoleAdministrador},
	protocol.TagEliminarFarmaceuta:  {fn: (*connHandler).handleEliminarFarmaceuta, minFields: 1, usage: "ELIMINAR_FARMACEUTA|id", auth: true, role: models.RoleAdministrador},

	protocol.TagListarPacientes:   {fn: (*connHandler).handleListarPacientes},
	protocol.TagBuscarPaciente:    {fn: (*connHandler).handleBuscarPaciente, minFields: 1, usage: "BUSCAR_PACIENTE|id"},
	protocol.TagAgregarPaciente:   {fn: (*connHandler).handleAgregarPaciente, minFields: 4, usage: "AGREGAR_PACIENTE|id|nombre|telefono|fechaNacimiento(YYYY-MM-DD)", auth: true, role: models.RoleAdministrador},
	protocol.TagModificarPaciente: {fn: (*connHandler).handleModificarPaciente, minFields: 4, usage: "MODIFICAR_PACIENTE|id|nombre|telefono|fechaNacimiento", auth: true, role: models.RoleAdministrador},
	protocol.TagEliminarPaciente:  {fn: (*connHandler).handleEliminarPaciente, minFields: 1, usage: "ELIMINAR_PACIENTE|id", auth: true, role: models.RoleAdministrador},

	protocol.TagListarMedicamentos:   {fn: (*connHandler).handleListarMedicamentos},
	protocol.TagBuscarMedicamento:    {fn: (*connHandler).handleBuscarMedicamento, minFields: 1, usage: "BUSCAR_MEDICAMENTO|codigo"},
	protocol.TagAgregarMedicamento:   {fn: (*connHandler).handleAgregarMedicamento, minFields: 3, usage: "AGREGAR_MEDICAMENTO|codigo|nombre|presentacion", auth: true, role: models.RoleAdministrador},
	protocol.TagModificarMedicamento: {fn: (*connHandler).handleModificarMedicamento, minFields: 3, usage: "MODIFICAR_MEDICAMENTO|codigo|nombre|presentacion", auth: true, role: models.RoleAdministrador},
	protocol.TagEliminarMedicamento:  {fn: (*connHandler).handleEliminarMedicamento, minFields: 1, usage: "ELIMINAR_MEDICAMENTO|codigo", auth: true, role: models.RoleAdministrador},

	protocol.TagListarRecetas:          {fn: (*connHandler).handleListarRecetas},
	protocol.TagBuscarReceta:           {fn: (*connHandler).handleBuscarReceta, minFields: 1, usage: "BUSCAR_RECETA|id"},
	protocol.TagCrearReceta:            {fn: (*connHandler).handleCrearReceta, minFields: 7, usage: "CREAR_RECETA|recetaId|pacienteId|medicoId|fecha|fechaRetiro|estado|numDetalles|detalle...", auth: true, role: models.RoleMedico},
	protocol.TagActualizarEstadoReceta: {fn: (*connHandler).handleActualizarEstadoReceta, minFields: 2, usage: "ACTUALIZAR_ESTADO_RECETA|recetaId|nuevoEstado", auth: true, role: models.RoleFarmaceuta},
	protocol.TagListarRecetasPaciente:  {fn: (*connHandler).handleListarRecetasPaciente, minFields: 1, usage: "LISTAR_RECETAS_PACIENTE|pacienteId"},

	protocol.TagDashboardEstadisticas: {fn: (*connHandler).handleDashboardEstadisticas},

	protocol.TagEnviarMensaje:         {fn: (*connHandler).handleEnviarMensaje, minFields: 2, usage: "ENVIAR_MENSAJE|usuarioDestinoId|mensaje", auth: true},
	protocol.TagListarUsuariosActivos: {fn: (*connHandler).handleListarUsuariosActivos, auth: true},
	protocol.TagCargarHistorial:       {fn: (*connHandler).handleCargarHistorial, minFields: 1, usage: "CARGAR_HISTORIAL|otroUsuarioId", auth: true},

	protocol.TagPing: {fn: (*connHandler).handlePing},
}

// The table is verified once at startup instead of scattering length checks
// through the handlers.
func init() {
	for tag, cmd := range dispatch {
		if cmd.fn == nil {
			panic("dispatch: nil handler for " + tag)
		}
		if cmd.minFields > 0 && !strings.HasPrefix(cmd.usage, tag+protocol.Delim) {
			panic("dispatch: usage does not match tag " + tag)
		}
		if cmd.role != "" && !cmd.auth {
			panic("dispatch: role gate without auth for " + tag)
		}
	}
}

// dispatch parses one line and produces the reply line. Nothing raised by a
// collaborator may escape: any panic is converted to an ERROR reply so only
// transport failures terminate the read loop.
func (h *connHandler) dispatch(line string) (reply string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Panic processing %q: %v", line, r)
			reply = errorLine(fmt.Sprintf("%v", r))
		}
	}()

	tag, fields := protocol.Decode(line)

	cmd, ok := dispatch[tag]
	if !ok {
		return errorLine("Comando desconocido: " + tag)
	}

	if cmd.auth && !h.session.Authenticated() {
		return errorLine("Debe estar autenticado")
	}
	if cmd.role != "" {
		if id := h.session.Identity(); id == nil || id.Rol != cmd.role {
			return errorLine("Operación permitida solo para " + string(cmd.role))
		}
	}
	if len(fields) < cmd.minFields {
		return errorLine("Formato: " + cmd.usage)
	}

	return cmd.fn(h, fields)
}

func errorLine(msg string) string {
	return protocol.Encode(protocol.TagError, msg)
}

func okLine(fields ...string) string {
	return protocol.Encode(protocol.TagOK, fields...)
}

// ==================== Autenticación ====================

func (h *connHandler) handleLogin(fields []string) string {
	usuario, err := h.srv.logic.Login(fields[0], fields[1])
	if err != nil {
		log.Printf("Login fallido para: %s", fields[0])
		return errorLine(err.Error())
	}

	h.session.setIdentity(&Identity{
		UserID: usuario.ID,
		Nombre: usuario.Nombre,
		Rol:    usuario.Rol,
	})

	log.Printf("Login exitoso: %s (%s)", usuario.Nombre, usuario.Rol)

	h.srv.broadcastExcept(protocol.Encode(protocol.TagNotificacion,
		protocol.NotifLogin, usuario.ID, usuario.Nombre, string(usuario.Rol)), h.session)

	return okLine(usuario.Nombre, string(usuario.Rol))
}

func (h *connHandler) handleLogout(_ []string) string {
	id := h.session.Identity()
	if id == nil {
		return errorLine("No hay sesión activa")
	}

	h.srv.broadcastExcept(protocol.Encode(protocol.TagNotificacion,
		protocol.NotifLogout, id.UserID, id.Nombre, string(id.Rol)), h.session)

	h.session.setIdentity(nil)
	h.closing = true

	return okLine("Logout exitoso")
}

func (h *connHandler) handleCambiarClave(fields []string) string {
	id := h.session.Identity()
	if err := h.srv.logic.CambiarClave(id.UserID, fields[0], fields[1]); err != nil {
		return errorLine(err.Error())
	}
	return okLine("Clave cambiada exitosamente")
}

// ==================== Médicos ====================

func (h *connHandler) handleListarMedicos(_ []string) string {
	medicos, err := h.srv.logic.ListarMedicos()
	if err != nil {
		return errorLine(err.Error())
	}

	rows := make([][]string, 0, len(medicos))
	for _, m := range medicos {
		rows = append(rows, medicoRow(m))
	}
	return protocol.EncodeRows(rows)
}

func medicoRow(m models.Medico) []string {
	return []string{m.ID, m.Nombre, m.Especialidad}
}

func (h *connHandler) handleBuscarMedico(fields []string) string {
	m, err := h.srv.logic.BuscarMedico(fields[0])
	if err != nil {
		return errorLine(err.Error())
	}
	if m == nil {
		return errorLine("Médico no encontrado")
	}
	return protocol.EncodeRows([][]string{medicoRow(*m)})
}

func (h *connHandler) handleBuscarMedicoNombre(fields []string) string {
	medicos, err := h.srv.logic.BuscarMedicosPorNombre(fields[0])
	if err != nil {
		return errorLine(err.Error())
	}

	rows := make([][]string, 0, len(medicos))
	for _, m := range medicos {
		rows = append(rows, medicoRow(m))
	}
	return protocol.EncodeRows(rows)
}

func (h *connHandler) handleAgregarMedico(fields []string) string {
	m := models.Medico{ID: fields[0], Nombre: fields[1], Especialidad: fields[2]}
	if err := h.srv.logic.AgregarMedico(m); err != nil {
		return errorLine(err.Error())
	}
	return okLine("Médico agregado exitosamente")
}

func (h *connHandler) handleModificarMedico(fields []string) string {
	m := models.Medico{ID: fields[0], Nombre: fields[1], Especialidad: fields[2]}
	if err := h.srv.logic.ModificarMedico(m); err != nil {
		return errorLine(err.Error())
	}
	return okLine("Médico modificado exitosamente")
}

func (h *connHandler) handleEliminarMedico(fields []string) string {
	if err := h.srv.logic.EliminarMedico(fields[0]); err != nil {
		return errorLine(err.Error())
	}
	return okLine("Médico eliminado exitosamente")
}

// ==================== Farmacéutas ====================

func (h *connHandler) handleListarFarmaceutas(_ []string) string {
	farmaceutas, err := h.srv.logic.ListarFarmaceutas()
	if err != nil {
		return errorLine(err.Error())
	}

	rows := make([][]string, 0, len(farmaceutas))
	for _, f := range farmaceutas {
		rows = append(rows, []string{f.ID, f.Nombre})
	}
	return protocol.EncodeRows(rows)
}

func (h *connHandler) handleBuscarFarmaceuta(fields []string) string {
	f, err := h.srv.logic.BuscarFarmaceuta(fields[0])
	if err != nil {
		return errorLine(err.Error())
	}
	if f == nil {
		return errorLine("Farmaceuta no encontrado")
	}
	return protocol.EncodeRows([][]string{{f.ID, f.Nombre}})
}

func (h *connHandler) handleAgregarFarmaceuta(fields []string) string {
	f := models.Farmaceuta{ID: fields[0], Nombre: fields[1]}
	if err := h.srv.logic.AgregarFarmaceuta(f); err != nil {
		return errorLine(err.Error())
	}
	return okLine("Farmaceuta agregado exitosamente")
}

func (h *connHandler) handleModificarFarmaceuta(fields []string) string {
	f := models.Farmaceuta{ID: fields[0], Nombre: fields[1]}
	if err := h.srv.logic.ModificarFarmaceuta(f); err != nil {
		return errorLine(err.Error())
	}
	return okLine("Farmaceuta modificado exitosamente")
}

func (h *connHandler) handleEliminarFarmaceuta(fields []string) string {
	if err := h.srv.logic.EliminarFarmaceuta(fields[0]); err != nil {
		return errorLine(err.Error())
	}
	return okLine("Farmaceuta eliminado exitosamente")
}

// ==================== Pacientes ====================

func (h *connHandler) handleListarPacientes(_ []string) string {
	pacientes, err := h.srv.logic.ListarPacientes()
	if err != nil {
		return errorLine(err.Error())
	}

	rows := make([][]string, 0, len(pacientes))
	for _, p := range pacientes {
		rows = append(rows, pacienteRow(p))
	}
	return protocol.EncodeRows(rows)
}

func pacienteRow(p models.Paciente) []string {
	return []string{p.ID, p.Nombre, p.Telefono, p.FechaNacimiento.Format(models.FechaFormato)}
}

func (h *connHandler) handleBuscarPaciente(fields []string) string {
	p, err := h.srv.logic.BuscarPaciente(fields[0])
	if err != nil {
		return errorLine(err.Error())
	}
	if p == nil {
		return errorLine("Paciente no encontrado")
	}
	return protocol.EncodeRows([][]string{pacienteRow(*p)})
}

func (h *connHandler) handleAgregarPaciente(fields []string) string {
	p, errMsg := parsePaciente(fields)
	if errMsg != "" {
		return errorLine(errMsg)
	}
	if err := h.srv.logic.AgregarPaciente(p); err != nil {
		return errorLine(err.Error())
	}
	return okLine("Paciente agregado exitosamente")
}

func (h *connHandler) handleModificarPaciente(fields []string) string {
	p, errMsg := parsePaciente(fields)
	if errMsg != "" {
		return errorLine(errMsg)
	}
	if err := h.srv.logic.ModificarPaciente(p); err != nil {
		return errorLine(err.Error())
	}
	return okLine("Paciente modificado exitosamente")
}

func parsePaciente(fields []string) (models.Paciente, string) {
	fecha, err := time.Parse(models.FechaFormato, fields[3])
	if err != nil {
		return models.Paciente{}, "Formato de fecha inválido. Use YYYY-MM-DD"
	}
	return models.Paciente{
		ID:              fields[0],
		Nombre:          fields[1],
		Telefono:        fields[2],
		FechaNacimiento: fecha,
	}, ""
}

func (h *connHandler) handleEliminarPaciente(fields []string) string {
	if err := h.srv.logic.EliminarPaciente(fields[0]); err != nil {
		return errorLine(err.Error())
	}
	return okLine("Paciente eliminado exitosamente")
}

// ==================== Medicamentos ====================

func (h *connHandler) handleListarMedicamentos(_ []string) string {
	medicamentos, err := h.srv.logic.ListarMedicamentos()
	if err != nil {
		return errorLine(err.Error())
	}

	rows := make([][]string, 0, len(medicamentos))
	for _, m := range medicamentos {
		rows = append(rows, []string{m.Codigo, m.Nombre, m.Presentacion})
	}
	return protocol.EncodeRows(rows)
}

func (h *connHandler) handleBuscarMedicamento(fields []string) string {
	m, err := h.srv.logic.BuscarMedicamento(fields[0])
	if err != nil {
		return errorLine(err.Error())
	}
	if m == nil {
		return errorLine("Medicamento no encontrado")
	}
	return protocol.EncodeRows([][]string{{m.Codigo, m.Nombre, m.Presentacion}})
}

func (h *connHandler) handleAgregarMedicamento(fields []string) string {
	m := models.Medicamento{Codigo: fields[0], Nombre: fields[1], Presentacion: fields[2]}
	if err := h.srv.logic.AgregarMedicamento(m); err != nil {
		return errorLine(err.Error())
	}
	return okLine("Medicamento agregado exitosamente")
}

func (h *connHandler) handleModificarMedicamento(fields []string) string {
	m := models.Medicamento{Codigo: fields[0], Nombre: fields[1], Presentacion: fields[2]}
	if err := h.srv.logic.ModificarMedicamento(m); err != nil {
		return errorLine(err.Error())
	}
	return okLine("Medicamento modificado exitosamente")
}

func (h *connHandler) handleEliminarMedicamento(fields []string) string {
	if err := h.srv.logic.EliminarMedicamento(fields[0]); err != nil {
		return errorLine(err.Error())
	}
	return okLine("Medicamento eliminado exitosamente")
}

// ==================== Recetas ====================

func (h *connHandler) handleListarRecetas(_ []string) string {
	recetas, err := h.srv.logic.ListarRecetas()
	if err != nil {
		return errorLine(err.Error())
	}
	return h.recetasReply(recetas)
}

func (h *connHandler) handleListarRecetasPaciente(fields []string) string {
	recetas, err := h.srv.logic.ListarRecetasPorPaciente(fields[0])
	if err != nil {
		return errorLine(err.Error())
	}
	return h.recetasReply(recetas)
}

// recetasReply serializes receta rows with the paciente and médico names
// resolved, as the original listing does.
func (h *connHandler) recetasReply(recetas []models.Receta) string {
	rows := make([][]string, 0, len(recetas))
	for _, r := range recetas {
		rows = append(rows, h.recetaRow(r))
	}
	return protocol.EncodeRows(rows)
}

func (h *connHandler) recetaRow(r models.Receta) []string {
	pacienteNombre := r.PacienteID
	if p, err := h.srv.logic.BuscarPaciente(r.PacienteID); err == nil && p != nil {
		pacienteNombre = p.Nombre
	}
	medicoNombre := r.MedicoID
	if m, err := h.srv.logic.BuscarMedico(r.MedicoID); err == nil && m != nil {
		medicoNombre = m.Nombre
	}
	return []string{
		r.ID, pacienteNombre, medicoNombre,
		r.Fecha.Format(models.FechaFormato), string(r.Estado),
	}
}

func (h *connHandler) handleBuscarReceta(fields []string) string {
	r, err := h.srv.logic.BuscarReceta(fields[0])
	if err != nil {
		return errorLine(err.Error())
	}
	if r == nil {
		return errorLine("Receta no encontrada")
	}
	return protocol.EncodeRows([][]string{h.recetaRow(*r)})
}

func (h *connHandler) handleCrearReceta(fields []string) string {
	id := h.session.Identity()

	recetaID := fields[0]
	pacienteID := fields[1]
	medicoID := fields[2]

	if medicoID != id.UserID {
		return errorLine("Solo puede crear recetas como el médico autenticado")
	}

	fecha, err := time.Parse(models.FechaFormato, fields[3])
	if err != nil {
		return errorLine("Formato de fecha inválido. Use YYYY-MM-DD")
	}
	fechaRetiro, err := time.Parse(models.FechaFormato, fields[4])
	if err != nil {
		return errorLine("Formato de fecha inválido. Use YYYY-MM-DD")
	}

	estado, ok := models.ParseEstadoReceta(fields[5])
	if !ok {
		return errorLine("Estado de receta inválido: " + fields[5])
	}

	numDetalles, err := strconv.Atoi(fields[6])
	if err != nil {
		return errorLine("Formato numérico inválido: " + fields[6])
	}
	if len(fields) < 7+numDetalles {
		return errorLine(fmt.Sprintf("Faltan detalles de medicamentos. Se esperaban %d", numDetalles))
	}

	detalles := make([]models.DetalleReceta, 0, numDetalles)
	for i := 0; i < numDetalles; i++ {
		detalle, errMsg := parseDetalle(fields[7+i], i)
		if errMsg != "" {
			return errorLine(errMsg)
		}
		detalles = append(detalles, detalle)
	}

	receta := models.Receta{
		ID:          recetaID,
		PacienteID:  pacienteID,
		MedicoID:    medicoID,
		Fecha:       fecha,
		FechaRetiro: fechaRetiro,
		Estado:      estado,
		Detalles:    detalles,
	}

	if err := h.srv.logic.CrearReceta(receta); err != nil {
		return errorLine(err.Error())
	}

	log.Printf("Receta creada: %s por médico %s", recetaID, medicoID)
	return okLine("Receta creada exitosamente", recetaID)
}

// parseDetalle parses one "codigo,cantidad,indicaciones,dias" field.
func parseDetalle(s string, pos int) (models.DetalleReceta, string) {
	parts := strings.SplitN(s, ",", 4)
	if len(parts) < 4 {
		return models.DetalleReceta{}, fmt.Sprintf(
			"Formato de detalle inválido en posición %d. Esperado: medCodigo,cantidad,indicaciones,dias", pos)
	}

	cantidad, err := strconv.Atoi(parts[1])
	if err != nil {
		return models.DetalleReceta{}, "Formato numérico inválido: " + parts[1]
	}
	dias, err := strconv.Atoi(parts[3])
	if err != nil {
		return models.DetalleReceta{}, "Formato numérico inválido: " + parts[3]
	}

	return models.DetalleReceta{
		MedicamentoCodigo: parts[0],
		Cantidad:          cantidad,
		Indicaciones:      parts[2],
		DiasTratamiento:   dias,
	}, ""
}

func (h *connHandler) handleActualizarEstadoReceta(fields []string) string {
	estado, ok := models.ParseEstadoReceta(fields[1])
	if !ok {
		return errorLine("Estado de receta inválido: " + fields[1])
	}

	if err := h.srv.logic.ActualizarEstadoReceta(fields[0], estado); err != nil {
		return errorLine(err.Error())
	}
	return okLine("Estado actualizado exitosamente")
}

// ==================== Dashboard ====================

func (h *connHandler) handleDashboardEstadisticas(_ []string) string {
	counts, err := h.srv.logic.RecetasPorEstado()
	if err != nil {
		return errorLine(err.Error())
	}

	// Fixed order so the reply is deterministic.
	estados := []models.EstadoReceta{
		models.EstadoConfeccionada, models.EstadoProceso,
		models.EstadoLista, models.EstadoEntregada,
	}
	var rows [][]string
	for _, estado := range estados {
		if count, ok := counts[estado]; ok {
			rows = append(rows, []string{string(estado), strconv.Itoa(count)})
		}
	}
	return protocol.EncodeRows(rows)
}

// ==================== Chat ====================

func (h *connHandler) handleEnviarMensaje(fields []string) string {
	id := h.session.Identity()
	destinatarioID := fields[0]
	texto := protocol.Sanitize(strings.Join(fields[1:], " "))

	// Retained regardless of whether the recipient is online; an offline
	// recipient sees it later through CARGAR_HISTORIAL.
	h.srv.history.Append(id.UserID, destinatarioID, texto)

	delivered := h.srv.deliverTo(destinatarioID, protocol.Encode(
		protocol.TagMensaje, id.UserID, id.Nombre, texto))
	if !delivered {
		log.Printf("Destinatario offline, mensaje guardado para: %s", destinatarioID)
	}

	return okLine("Mensaje enviado a " + destinatarioID)
}

func (h *connHandler) handleListarUsuariosActivos(_ []string) string {
	var rows [][]string
	for _, sess := range h.srv.registry.AllAuthenticated() {
		if sess == h.session {
			continue
		}
		if sid := sess.Identity(); sid != nil {
			rows = append(rows, []string{sid.UserID, sid.Nombre, string(sid.Rol)})
		}
	}
	return protocol.EncodeRows(rows)
}

func (h *connHandler) handleCargarHistorial(fields []string) string {
	id := h.session.Identity()

	var rows [][]string
	for _, entry := range h.srv.history.HistoryFor(id.UserID, fields[0]) {
		rows = append(rows, []string{
			entry.SenderID,
			entry.Text,
			entry.Timestamp.Format(time.RFC3339),
		})
	}
	return protocol.EncodeRows(rows)
}

// ==================== Utilidad ====================

func (h *connHandler) handlePing(_ []string) string {
	return protocol.Encode(protocol.TagPong, "Servidor activo")
}
