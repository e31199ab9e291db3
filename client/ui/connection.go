package ui

import (
	"fmt"

	"hospital/models"
)

func (a *App) updateConnectionStatus() {
	if a.connectionView == nil {
		return
	}
	if a.client != nil && a.client.IsConnected() {
		a.connectionView.SetText(fmt.Sprintf("[green]● Conectado a %s[-]", a.serverAddr))
	} else {
		a.connectionView.SetText(fmt.Sprintf("[red]○ Desconectado de %s[-]", a.serverAddr))
	}
}

func (a *App) setConnectionError(err string) {
	if a.connectionView == nil {
		return
	}
	a.connectionView.SetText(fmt.Sprintf("[red]✗ %s[-]", err))
}

func (a *App) setConnectionNotice(text string) {
	if a.connectionView == nil {
		return
	}
	a.connectionView.SetText(fmt.Sprintf("[yellow]%s[-]", text))
}

func (a *App) updateStatusBarText() {
	if a.statusBar == nil {
		return
	}
	switch a.userRol {
	case models.RoleAdministrador:
		a.statusBar.SetText(" F1:Ayuda | F2:Agregar | F3:Modificar | F4:Eliminar | F5:Actualizar | F7:Clave | F10:Salir ")
	case models.RoleMedico:
		a.statusBar.SetText(" F1:Ayuda | F2:Nueva receta | F5:Actualizar | F7:Clave | F10:Salir ")
	case models.RoleFarmaceuta:
		a.statusBar.SetText(" F1:Ayuda | F3:Estado receta | F5:Actualizar | F7:Clave | F10:Salir ")
	default:
		a.statusBar.SetText(" F1:Ayuda | F5:Actualizar | F10:Salir ")
	}
}
