package ui

import (
	"time"

	wire "hospital/protocol"
)

// handleServerPush processes pushes from the connector. It always runs
// on the UI goroutine.
func (a *App) handleServerPush(tag string, fields []string) {
	switch tag {
	case wire.TagBienvenido:
		// Greeting, nothing to do.

	case wire.TagNotificacion:
		if len(fields) == 0 {
			return
		}
		a.handleNotification(fields[0], fields[1:])

	case wire.TagMensaje:
		// MENSAJE|senderId|senderNombre|texto
		if len(fields) < 3 {
			return
		}
		a.handleIncomingMessage(fields[0], fields[1], fields[2])

	case wire.TagError:
		// Terminal connector failure, reconnection gave up.
		msg := "Conexión perdida"
		if len(fields) > 0 {
			msg = fields[0]
		}
		a.updateConnectionStatus()
		a.showFatalDialog(msg)
	}
}

func (a *App) handleNotification(kind string, fields []string) {
	switch kind {
	case wire.NotifLogin, wire.NotifLogout:
		// NOTIFICACION|LOGIN|id|nombre|rol
		if len(fields) >= 2 {
			if kind == wire.NotifLogin {
				a.setConnectionNotice(fields[1] + " se ha conectado")
			} else {
				a.setConnectionNotice(fields[1] + " se ha desconectado")
			}
		}
		if a.currentSection == sectionActivos {
			a.showSection(sectionActivos)
		}

	case wire.NotifReconexion:
		a.updateConnectionStatus()
		if len(fields) > 0 {
			a.setConnectionNotice(fields[0])
		}

	case wire.NotifServerShutdown:
		msg := "El servidor se está apagando"
		if len(fields) > 0 {
			msg = fields[0]
		}
		a.showFatalDialog(msg)
	}
}

func (a *App) handleIncomingMessage(senderID, senderNombre, texto string) {
	a.mu.Lock()
	a.mensajes[senderID] = append(a.mensajes[senderID], chatMessage{
		SenderID: senderID,
		Text:     texto,
		Time:     time.Now().Format(time.RFC3339),
	})
	inChat := a.currentChat == senderID
	if !inChat {
		a.unread[senderID]++
	}
	a.mu.Unlock()

	if inChat && a.chatView != nil {
		a.refreshChatView()
		return
	}

	a.setConnectionNotice("Mensaje de " + senderNombre)
	if a.currentSection == sectionActivos {
		a.showSection(sectionActivos)
	}
}
