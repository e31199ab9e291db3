package ui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"hospital/client/protocol"
	"hospital/models"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// newDialogForm builds a form with the shared dialog styling.
func (a *App) newDialogForm(title string) *tview.Form {
	form := tview.NewForm()
	form.SetBackgroundColor(ColorBg)
	form.SetFieldBackgroundColor(tcell.NewRGBColor(0, 0, 64))
	form.SetFieldTextColor(ColorFg)
	form.SetLabelColor(ColorHighlight)
	form.SetButtonBackgroundColor(tcell.NewRGBColor(0, 128, 128))
	form.SetButtonTextColor(ColorTitle)
	form.SetBorder(true)
	form.SetBorderColor(ColorBorder)
	form.SetTitle(title)
	form.SetTitleColor(ColorTitle)
	return form
}

// showDialog centers a form with a status line below it.
func (a *App) showDialog(form *tview.Form, statusLabel *tview.TextView, height int) {
	flex := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().
			AddItem(nil, 0, 1, false).
			AddItem(form, 56, 0, true).
			AddItem(nil, 0, 1, false), height, 0, true).
		AddItem(tview.NewFlex().
			AddItem(nil, 0, 1, false).
			AddItem(statusLabel, 56, 0, false).
			AddItem(nil, 0, 1, false), 1, 0, false).
		AddItem(nil, 0, 1, false)
	flex.SetBackgroundColor(ColorBg)

	a.pages.AddPage("dialog", flex, true, true)
	a.app.SetFocus(form)
}

func (a *App) closeDialog() {
	a.pages.RemovePage("dialog")
	a.app.SetFocus(a.table)
}

func newStatusLabel() *tview.TextView {
	label := tview.NewTextView()
	label.SetBackgroundColor(ColorBg)
	label.SetTextColor(tcell.ColorRed)
	return label
}

// submitReply closes the dialog and refreshes the section on OK,
// otherwise shows the server message in the status line.
func (a *App) submitReply(statusLabel *tview.TextView) func(string) {
	return func(line string) {
		if !replyOK(line) {
			statusLabel.SetText(replyMessage(line))
			return
		}
		a.closeDialog()
		a.showSection(a.currentSection)
	}
}

func (a *App) showAddDialog() {
	switch {
	case a.userRol == models.RoleAdministrador:
		switch a.currentSection {
		case sectionMedicos:
			a.showMedicoDialog(nil)
		case sectionFarmaceutas:
			a.showFarmaceutaDialog(nil)
		case sectionPacientes:
			a.showPacienteDialog(nil)
		case sectionMedicamentos:
			a.showMedicamentoDialog(nil)
		}
	case a.userRol == models.RoleMedico && a.currentSection == sectionRecetas:
		a.showRecetaDialog()
	}
}

func (a *App) showEditDialog() {
	row, ok := a.selectedRow()
	if !ok {
		return
	}

	switch {
	case a.userRol == models.RoleAdministrador:
		switch a.currentSection {
		case sectionMedicos:
			a.showMedicoDialog(row)
		case sectionFarmaceutas:
			a.showFarmaceutaDialog(row)
		case sectionPacientes:
			a.showPacienteDialog(row)
		case sectionMedicamentos:
			a.showMedicamentoDialog(row)
		}
	case a.userRol == models.RoleFarmaceuta && a.currentSection == sectionRecetas:
		a.showEstadoRecetaDialog(row)
	}
}

func (a *App) showMedicoDialog(row []string) {
	editing := row != nil
	title := " Agregar médico "
	if editing {
		title = " Modificar médico "
	}

	form := a.newDialogForm(title)
	statusLabel := newStatusLabel()

	m := models.Medico{}
	if editing {
		m.ID = row[0]
		m.Nombre = row[1]
		m.Especialidad = row[2]
	}

	form.AddInputField("ID: ", m.ID, 30, nil, func(text string) { m.ID = text })
	if editing {
		form.GetFormItem(0).(*tview.InputField).SetDisabled(true)
	}
	form.AddInputField("Nombre: ", m.Nombre, 30, nil, func(text string) { m.Nombre = text })
	form.AddInputField("Especialidad: ", m.Especialidad, 30, nil, func(text string) { m.Especialidad = text })

	form.AddButton("Guardar", func() {
		if editing {
			a.client.ModificarMedico(m, a.submitReply(statusLabel))
		} else {
			a.client.AgregarMedico(m, a.submitReply(statusLabel))
		}
	})
	form.AddButton("Cancelar", a.closeDialog)

	a.showDialog(form, statusLabel, 11)
}

func (a *App) showFarmaceutaDialog(row []string) {
	editing := row != nil
	title := " Agregar farmacéuta "
	if editing {
		title = " Modificar farmacéuta "
	}

	form := a.newDialogForm(title)
	statusLabel := newStatusLabel()

	f := models.Farmaceuta{}
	if editing {
		f.ID = row[0]
		f.Nombre = row[1]
	}

	form.AddInputField("ID: ", f.ID, 30, nil, func(text string) { f.ID = text })
	if editing {
		form.GetFormItem(0).(*tview.InputField).SetDisabled(true)
	}
	form.AddInputField("Nombre: ", f.Nombre, 30, nil, func(text string) { f.Nombre = text })

	form.AddButton("Guardar", func() {
		if editing {
			a.client.ModificarFarmaceuta(f, a.submitReply(statusLabel))
		} else {
			a.client.AgregarFarmaceuta(f, a.submitReply(statusLabel))
		}
	})
	form.AddButton("Cancelar", a.closeDialog)

	a.showDialog(form, statusLabel, 9)
}

func (a *App) showPacienteDialog(row []string) {
	editing := row != nil
	title := " Agregar paciente "
	if editing {
		title = " Modificar paciente "
	}

	form := a.newDialogForm(title)
	statusLabel := newStatusLabel()

	p := models.Paciente{}
	var nacimiento string
	if editing {
		p.ID = row[0]
		p.Nombre = row[1]
		p.Telefono = row[2]
		nacimiento = row[3]
	}

	form.AddInputField("ID: ", p.ID, 30, nil, func(text string) { p.ID = text })
	if editing {
		form.GetFormItem(0).(*tview.InputField).SetDisabled(true)
	}
	form.AddInputField("Nombre: ", p.Nombre, 30, nil, func(text string) { p.Nombre = text })
	form.AddInputField("Teléfono: ", p.Telefono, 30, nil, func(text string) { p.Telefono = text })
	form.AddInputField("Nacimiento (AAAA-MM-DD): ", nacimiento, 30, nil,
		func(text string) { nacimiento = text })

	form.AddButton("Guardar", func() {
		fecha, err := time.Parse(models.FechaFormato, nacimiento)
		if err != nil {
			statusLabel.SetText("Formato de fecha inválido. Use YYYY-MM-DD")
			return
		}
		p.FechaNacimiento = fecha
		if editing {
			a.client.ModificarPaciente(p, a.submitReply(statusLabel))
		} else {
			a.client.AgregarPaciente(p, a.submitReply(statusLabel))
		}
	})
	form.AddButton("Cancelar", a.closeDialog)

	a.showDialog(form, statusLabel, 13)
}

func (a *App) showMedicamentoDialog(row []string) {
	editing := row != nil
	title := " Agregar medicamento "
	if editing {
		title = " Modificar medicamento "
	}

	form := a.newDialogForm(title)
	statusLabel := newStatusLabel()

	m := models.Medicamento{}
	if editing {
		m.Codigo = row[0]
		m.Nombre = row[1]
		m.Presentacion = row[2]
	}

	form.AddInputField("Código: ", m.Codigo, 30, nil, func(text string) { m.Codigo = text })
	if editing {
		form.GetFormItem(0).(*tview.InputField).SetDisabled(true)
	}
	form.AddInputField("Nombre: ", m.Nombre, 30, nil, func(text string) { m.Nombre = text })
	form.AddInputField("Presentación: ", m.Presentacion, 30, nil, func(text string) { m.Presentacion = text })

	form.AddButton("Guardar", func() {
		if editing {
			a.client.ModificarMedicamento(m, a.submitReply(statusLabel))
		} else {
			a.client.AgregarMedicamento(m, a.submitReply(statusLabel))
		}
	})
	form.AddButton("Cancelar", a.closeDialog)

	a.showDialog(form, statusLabel, 11)
}

// showRecetaDialog lets a médico create a prescription. Each detalle
// line has the form "codigo,cantidad,indicaciones,dias"; several are
// separated with ";".
func (a *App) showRecetaDialog() {
	form := a.newDialogForm(" Nueva receta ")
	statusLabel := newStatusLabel()

	r := models.Receta{
		MedicoID: a.userID,
		Estado:   models.EstadoConfeccionada,
	}
	fecha := time.Now().Format(models.FechaFormato)
	retiro := time.Now().AddDate(0, 0, 3).Format(models.FechaFormato)
	var detalles string

	form.AddInputField("ID receta: ", "", 30, nil, func(text string) { r.ID = text })
	form.AddInputField("Paciente: ", "", 30, nil, func(text string) { r.PacienteID = text })
	form.AddInputField("Fecha (AAAA-MM-DD): ", fecha, 30, nil, func(text string) { fecha = text })
	form.AddInputField("Retiro (AAAA-MM-DD): ", retiro, 30, nil, func(text string) { retiro = text })
	form.AddInputField("Detalles (cod,cant,indic,dias;...): ", "", 40, nil,
		func(text string) { detalles = text })

	form.AddButton("Crear", func() {
		parsed, err := parseDetalles(detalles)
		if err != nil {
			statusLabel.SetText(err.Error())
			return
		}
		fechaT, err := time.Parse(models.FechaFormato, fecha)
		if err != nil {
			statusLabel.SetText("Formato de fecha inválido. Use YYYY-MM-DD")
			return
		}
		retiroT, err := time.Parse(models.FechaFormato, retiro)
		if err != nil {
			statusLabel.SetText("Formato de fecha inválido. Use YYYY-MM-DD")
			return
		}
		r.Fecha = fechaT
		r.FechaRetiro = retiroT
		r.Detalles = parsed
		a.client.CrearReceta(r, a.submitReply(statusLabel))
	})
	form.AddButton("Cancelar", a.closeDialog)

	a.showDialog(form, statusLabel, 15)
}

func parseDetalles(s string) ([]models.DetalleReceta, error) {
	var out []models.DetalleReceta
	for _, item := range strings.Split(s, ";") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts := strings.SplitN(item, ",", 4)
		if len(parts) != 4 {
			return nil, fmt.Errorf("Detalle inválido: %s", item)
		}
		cantidad, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, fmt.Errorf("Cantidad inválida: %s", parts[1])
		}
		dias, err := strconv.Atoi(strings.TrimSpace(parts[3]))
		if err != nil {
			return nil, fmt.Errorf("Días inválidos: %s", parts[3])
		}
		out = append(out, models.DetalleReceta{
			MedicamentoCodigo: strings.TrimSpace(parts[0]),
			Cantidad:          cantidad,
			Indicaciones:      strings.TrimSpace(parts[2]),
			DiasTratamiento:   dias,
		})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("La receta debe tener al menos un detalle")
	}
	return out, nil
}

func (a *App) showEstadoRecetaDialog(row []string) {
	recetaID := row[0]
	estado := models.EstadoConfeccionada

	form := a.newDialogForm(fmt.Sprintf(" Receta %s ", recetaID))
	statusLabel := newStatusLabel()

	estados := []string{
		string(models.EstadoConfeccionada),
		string(models.EstadoProceso),
		string(models.EstadoLista),
		string(models.EstadoEntregada),
	}
	form.AddDropDown("Nuevo estado: ", estados, 0, func(option string, index int) {
		estado = models.EstadoReceta(option)
	})

	form.AddButton("Actualizar", func() {
		a.client.ActualizarEstadoReceta(recetaID, estado, a.submitReply(statusLabel))
	})
	form.AddButton("Cancelar", a.closeDialog)

	a.showDialog(form, statusLabel, 9)
}

func (a *App) showDeleteDialog() {
	if a.userRol != models.RoleAdministrador {
		return
	}
	id, ok := a.selectedRowID()
	if !ok {
		return
	}

	var noun string
	var del func(string, protocol.Callback)
	switch a.currentSection {
	case sectionMedicos:
		noun, del = "médico", a.client.EliminarMedico
	case sectionFarmaceutas:
		noun, del = "farmacéuta", a.client.EliminarFarmaceuta
	case sectionPacientes:
		noun, del = "paciente", a.client.EliminarPaciente
	case sectionMedicamentos:
		noun, del = "medicamento", a.client.EliminarMedicamento
	default:
		return
	}

	modal := tview.NewModal()
	modal.SetText(fmt.Sprintf("¿Eliminar %s %s?", noun, id))
	modal.SetBackgroundColor(ColorBg)
	modal.SetTextColor(ColorFg)
	modal.SetButtonBackgroundColor(tcell.NewRGBColor(0, 128, 128))
	modal.SetButtonTextColor(ColorTitle)
	modal.AddButtons([]string{"Eliminar", "Cancelar"})
	modal.SetDoneFunc(func(buttonIndex int, buttonLabel string) {
		if buttonLabel == "Eliminar" {
			del(id, func(line string) {
				if !replyOK(line) {
					a.setConnectionError(replyMessage(line))
				}
				a.closeDialog()
				a.showSection(a.currentSection)
			})
			return
		}
		a.closeDialog()
	})

	a.pages.AddPage("dialog", modal, true, true)
}

func (a *App) showCambiarClaveDialog() {
	form := a.newDialogForm(" Cambiar clave ")
	statusLabel := newStatusLabel()

	var actual, nueva string
	form.AddPasswordField("Clave actual: ", "", 30, '*', func(text string) { actual = text })
	form.AddPasswordField("Clave nueva: ", "", 30, '*', func(text string) { nueva = text })

	form.AddButton("Cambiar", func() {
		if actual == "" || nueva == "" {
			statusLabel.SetText("Ingrese ambas claves")
			return
		}
		a.client.CambiarClave(actual, nueva, func(line string) {
			if !replyOK(line) {
				statusLabel.SetText(replyMessage(line))
				return
			}
			a.closeDialog()
			a.setConnectionNotice("Clave actualizada")
		})
	})
	form.AddButton("Cancelar", a.closeDialog)

	a.showDialog(form, statusLabel, 9)
}

// showFatalDialog shows a terminal error and quits when dismissed.
func (a *App) showFatalDialog(msg string) {
	modal := tview.NewModal()
	modal.SetText(msg)
	modal.SetBackgroundColor(ColorBg)
	modal.SetTextColor(ColorFg)
	modal.SetButtonBackgroundColor(tcell.NewRGBColor(0, 128, 128))
	modal.SetButtonTextColor(ColorTitle)
	modal.AddButtons([]string{"Salir"})
	modal.SetDoneFunc(func(buttonIndex int, buttonLabel string) {
		a.app.Stop()
	})

	a.pages.AddPage("fatal", modal, true, true)
}
