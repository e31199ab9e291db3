package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// Sections of the main screen, in sidebar order.
const (
	sectionMedicos = iota
	sectionFarmaceutas
	sectionPacientes
	sectionMedicamentos
	sectionRecetas
	sectionActivos
	sectionDashboard
)

var sectionTitles = []string{
	"Médicos",
	"Farmacéutas",
	"Pacientes",
	"Medicamentos",
	"Recetas",
	"Usuarios activos",
	"Dashboard",
}

var sectionHeaders = [][]string{
	{"ID", "Nombre", "Especialidad"},
	{"ID", "Nombre"},
	{"ID", "Nombre", "Teléfono", "Nacimiento"},
	{"Código", "Nombre", "Presentación"},
	{"ID", "Paciente", "Médico", "Fecha", "Retiro", "Estado"},
	{"ID", "Nombre", "Rol"},
	{"Estado", "Recetas"},
}

func (a *App) showMainScreen() {
	a.pages.RemovePage("login")
	a.pages.RemovePage("background")

	mainPage := a.createMainPage()
	a.pages.AddPage("main", mainPage, true, true)

	a.sectionsList.SetTitle(fmt.Sprintf(" %s [%s] ", a.userName, a.userRol))

	a.updateConnectionStatus()
	a.updateStatusBarText()

	a.showSection(sectionMedicos)
	a.app.SetFocus(a.sectionsList)
}

func (a *App) createMainPage() tview.Primitive {
	// Sections list on the left
	a.sectionsList = tview.NewList()
	a.sectionsList.SetBorder(true)
	a.sectionsList.SetBorderColor(ColorBorder)
	a.sectionsList.SetBackgroundColor(ColorBg)
	a.sectionsList.SetTitleColor(ColorTitle)
	a.sectionsList.SetMainTextColor(ColorFg)
	a.sectionsList.SetMainTextStyle(tcell.StyleDefault.Foreground(ColorFg).Background(ColorBg))
	a.sectionsList.SetSelectedTextColor(ColorTitle)
	a.sectionsList.SetSelectedBackgroundColor(tcell.NewRGBColor(0, 128, 128))
	a.sectionsList.SetHighlightFullLine(true)
	a.sectionsList.ShowSecondaryText(false)

	for _, title := range sectionTitles {
		a.sectionsList.AddItem(title, "", 0, nil)
	}
	a.sectionsList.SetChangedFunc(func(index int, mainText, secondaryText string, shortcut rune) {
		a.showSection(index)
	})
	a.sectionsList.SetSelectedFunc(func(index int, mainText, secondaryText string, shortcut rune) {
		a.app.SetFocus(a.table)
	})

	// Entity table on the right
	a.table = tview.NewTable()
	a.table.SetBorder(true)
	a.table.SetBorderColor(ColorBorder)
	a.table.SetBackgroundColor(ColorBg)
	a.table.SetTitleColor(ColorTitle)
	a.table.SetSelectable(true, false)
	a.table.SetSelectedStyle(tcell.StyleDefault.Foreground(ColorTitle).Background(tcell.NewRGBColor(0, 128, 128)))
	a.table.SetFixed(1, 0)

	a.table.SetSelectedFunc(func(row, column int) {
		if a.currentSection == sectionActivos {
			if id, ok := a.selectedRowID(); ok {
				a.openChat(id)
			}
		}
	})
	a.table.SetDoneFunc(func(key tcell.Key) {
		a.app.SetFocus(a.sectionsList)
	})

	// Connection status view
	a.connectionView = tview.NewTextView()
	a.connectionView.SetBorder(true)
	a.connectionView.SetBorderColor(ColorBorder)
	a.connectionView.SetBackgroundColor(ColorBg)
	a.connectionView.SetTitle(" Conexión ")
	a.connectionView.SetTitleColor(ColorTitle)
	a.connectionView.SetTextColor(ColorFg)
	a.connectionView.SetDynamicColors(true)
	a.connectionView.SetTextAlign(tview.AlignCenter)
	a.updateConnectionStatus()

	// Status bar at bottom
	a.statusBar = tview.NewTextView()
	a.statusBar.SetBackgroundColor(tcell.NewRGBColor(0, 128, 128))
	a.statusBar.SetTextColor(ColorTitle)
	a.statusBar.SetTextAlign(tview.AlignCenter)
	a.updateStatusBarText()

	content := tview.NewFlex().
		AddItem(a.sectionsList, 24, 0, true).
		AddItem(a.table, 0, 1, false)

	mainFlex := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(content, 0, 1, true).
		AddItem(a.connectionView, 3, 0, false).
		AddItem(a.statusBar, 1, 0, false)
	mainFlex.SetBackgroundColor(ColorBg)

	mainFlex.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyF1:
			a.showHelp()
			return nil
		case tcell.KeyF2:
			a.showAddDialog()
			return nil
		case tcell.KeyF3:
			a.showEditDialog()
			return nil
		case tcell.KeyF4:
			a.showDeleteDialog()
			return nil
		case tcell.KeyF5:
			a.showSection(a.currentSection)
			return nil
		case tcell.KeyF7:
			a.showCambiarClaveDialog()
			return nil
		case tcell.KeyF10, tcell.KeyEsc:
			a.quit()
			return nil
		}
		return event
	})

	return mainFlex
}

// showSection loads and renders the rows of a section.
func (a *App) showSection(index int) {
	a.currentSection = index
	a.table.SetTitle(fmt.Sprintf(" %s ", sectionTitles[index]))

	cb := func(line string) {
		if !replyOK(line) {
			a.setConnectionError(replyMessage(line))
			return
		}
		rows := replyRows(line)
		if index == sectionActivos {
			a.mu.Lock()
			a.activos = rows
			a.mu.Unlock()
		}
		a.renderRows(index, rows)
	}

	switch index {
	case sectionMedicos:
		a.client.ListarMedicos(cb)
	case sectionFarmaceutas:
		a.client.ListarFarmaceutas(cb)
	case sectionPacientes:
		a.client.ListarPacientes(cb)
	case sectionMedicamentos:
		a.client.ListarMedicamentos(cb)
	case sectionRecetas:
		a.client.ListarRecetas(cb)
	case sectionActivos:
		a.client.ListarUsuariosActivos(cb)
	case sectionDashboard:
		a.client.DashboardEstadisticas(cb)
	}
}

func (a *App) renderRows(section int, rows [][]string) {
	if section != a.currentSection {
		return
	}

	a.mu.Lock()
	a.tableRows = rows
	a.mu.Unlock()

	a.table.Clear()
	for col, h := range sectionHeaders[section] {
		cell := tview.NewTableCell(h).
			SetTextColor(ColorHighlight).
			SetBackgroundColor(ColorBg).
			SetSelectable(false).
			SetExpansion(1)
		a.table.SetCell(0, col, cell)
	}

	a.mu.RLock()
	unread := make(map[string]int, len(a.unread))
	for k, v := range a.unread {
		unread[k] = v
	}
	a.mu.RUnlock()

	rowColor := ColorFg
	if section == sectionActivos {
		rowColor = ColorOnline
	}
	for i, row := range rows {
		for col, value := range row {
			text := value
			if section == sectionActivos && col == 1 && unread[row[0]] > 0 {
				text = fmt.Sprintf("%s (%d)", value, unread[row[0]])
			}
			cell := tview.NewTableCell(text).
				SetTextColor(rowColor).
				SetBackgroundColor(ColorBg).
				SetExpansion(1)
			a.table.SetCell(i+1, col, cell)
		}
	}
	if len(rows) > 0 {
		a.table.Select(1, 0)
	}
}

// selectedRowID returns the first column of the selected table row.
func (a *App) selectedRowID() (string, bool) {
	row, _ := a.table.GetSelection()
	idx := row - 1

	a.mu.RLock()
	defer a.mu.RUnlock()
	if idx < 0 || idx >= len(a.tableRows) || len(a.tableRows[idx]) == 0 {
		return "", false
	}
	return a.tableRows[idx][0], true
}

// selectedRow returns a copy of the selected table row.
func (a *App) selectedRow() ([]string, bool) {
	row, _ := a.table.GetSelection()
	idx := row - 1

	a.mu.RLock()
	defer a.mu.RUnlock()
	if idx < 0 || idx >= len(a.tableRows) {
		return nil, false
	}
	out := make([]string, len(a.tableRows[idx]))
	copy(out, a.tableRows[idx])
	return out, true
}
