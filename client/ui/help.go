package ui

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

func (a *App) showHelp() {
	helpText := `
 [yellow]Pantalla principal[-]
 ───────────────────────────────────────────────────────────────
   [white]F1[-]       Mostrar esta ayuda
   [white]F2[-]       Agregar (administrador) / Nueva receta (médico)
   [white]F3[-]       Modificar (administrador) / Estado (farmacéuta)
   [white]F4[-]       Eliminar (administrador)
   [white]F5[-]       Actualizar la sección actual
   [white]F7[-]       Cambiar clave
   [white]F10/Esc[-]  Salir
   [white]Enter[-]    Abrir chat (sección Usuarios activos)
   [white]↑ ↓[-]      Navegar

 [yellow]Chat[-]
 ───────────────────────────────────────────────────────────────
   [white]Enter[-]    Enviar mensaje
   [white]F5[-]       Recargar historial
   [white]Esc[-]      Volver a la pantalla principal

 [yellow]Roles[-]
 ───────────────────────────────────────────────────────────────
   ADMINISTRADOR  administra médicos, farmacéutas, pacientes
                  y medicamentos
   MEDICO         crea recetas a su propio nombre
   FARMACEUTA     avanza el estado de las recetas

 [yellow]Conexión[-]
 ───────────────────────────────────────────────────────────────
   La conexión se mantiene con un PING automático cada 30s.
   Si se pierde, el cliente reintenta 3 veces cada 3s.
`

	helpView := tview.NewTextView()
	helpView.SetText(helpText)
	helpView.SetBackgroundColor(ColorBg)
	helpView.SetTextColor(ColorFg)
	helpView.SetDynamicColors(true)
	helpView.SetBorder(true)
	helpView.SetBorderColor(ColorBorder)
	helpView.SetTitle(" Ayuda ")
	helpView.SetTitleColor(ColorTitle)
	helpView.SetScrollable(true)

	statusBar := tview.NewTextView()
	statusBar.SetBackgroundColor(tcell.NewRGBColor(0, 128, 128))
	statusBar.SetTextColor(ColorTitle)
	statusBar.SetTextAlign(tview.AlignCenter)
	statusBar.SetText(" ↑↓/PgUp/PgDn: Desplazar | Esc/Enter/F1: Cerrar ")

	flex := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(helpView, 0, 1, true).
		AddItem(statusBar, 1, 0, false)
	flex.SetBackgroundColor(ColorBg)

	flex.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyEsc, tcell.KeyEnter, tcell.KeyF1:
			a.pages.RemovePage("help")
			a.app.SetFocus(a.sectionsList)
			return nil
		case tcell.KeyUp:
			row, col := helpView.GetScrollOffset()
			helpView.ScrollTo(row-1, col)
			return nil
		case tcell.KeyDown:
			row, col := helpView.GetScrollOffset()
			helpView.ScrollTo(row+1, col)
			return nil
		case tcell.KeyPgUp:
			row, col := helpView.GetScrollOffset()
			helpView.ScrollTo(row-10, col)
			return nil
		case tcell.KeyPgDn:
			row, col := helpView.GetScrollOffset()
			helpView.ScrollTo(row+10, col)
			return nil
		}
		return event
	})

	a.pages.AddPage("help", flex, true, true)
}
