package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

func (a *App) openChat(peerID string) {
	a.mu.Lock()
	a.currentChat = peerID
	a.unread[peerID] = 0
	a.mu.Unlock()

	chatPage := a.createChatPage(peerID)
	a.pages.AddPage("chat", chatPage, true, true)
	a.pages.SwitchToPage("chat")

	a.loadHistory(peerID)
}

func (a *App) peerName(peerID string) string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, row := range a.activos {
		if len(row) >= 2 && row[0] == peerID {
			return row[1]
		}
	}
	return peerID
}

func (a *App) createChatPage(peerID string) tview.Primitive {
	a.chatView = tview.NewTextView()
	a.chatView.SetBorder(true)
	a.chatView.SetBorderColor(ColorBorder)
	a.chatView.SetBackgroundColor(ColorBg)
	a.chatView.SetTitle(fmt.Sprintf(" %s ", a.peerName(peerID)))
	a.chatView.SetTitleColor(ColorTitle)
	a.chatView.SetTextColor(ColorFg)
	a.chatView.SetDynamicColors(true)
	a.chatView.SetScrollable(true)
	a.chatView.ScrollToEnd()

	a.messageInput = tview.NewInputField()
	a.messageInput.SetLabel("> ")
	a.messageInput.SetFieldWidth(0)
	a.messageInput.SetBackgroundColor(ColorBg)
	a.messageInput.SetFieldBackgroundColor(tcell.NewRGBColor(0, 0, 64))
	a.messageInput.SetFieldTextColor(ColorFg)
	a.messageInput.SetLabelColor(ColorHighlight)
	a.messageInput.SetBorder(true)
	a.messageInput.SetBorderColor(ColorBorder)
	a.messageInput.SetTitle(" Mensaje ")
	a.messageInput.SetTitleColor(ColorTitle)

	a.messageInput.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter {
			text := a.messageInput.GetText()
			if text != "" {
				a.sendMessage(peerID, text)
				a.messageInput.SetText("")
			}
		}
	})

	chatStatus := tview.NewTextView()
	chatStatus.SetBackgroundColor(tcell.NewRGBColor(0, 128, 128))
	chatStatus.SetTextColor(ColorTitle)
	chatStatus.SetTextAlign(tview.AlignCenter)
	chatStatus.SetText(" Enter:Enviar | F5:Actualizar | Esc:Volver ")

	mainFlex := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.chatView, 0, 1, false).
		AddItem(a.messageInput, 3, 0, true).
		AddItem(chatStatus, 1, 0, false)
	mainFlex.SetBackgroundColor(ColorBg)

	mainFlex.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyEsc:
			a.closeChat()
			return nil
		case tcell.KeyF5:
			a.loadHistory(peerID)
			return nil
		case tcell.KeyPgUp:
			row, col := a.chatView.GetScrollOffset()
			a.chatView.ScrollTo(row-10, col)
			return nil
		case tcell.KeyPgDn:
			row, col := a.chatView.GetScrollOffset()
			a.chatView.ScrollTo(row+10, col)
			return nil
		}
		return event
	})

	return mainFlex
}

func (a *App) loadHistory(peerID string) {
	a.client.CargarHistorial(peerID, func(line string) {
		if !replyOK(line) {
			a.setConnectionError(replyMessage(line))
			return
		}
		// Rows: senderId,texto,timestamp
		rows := replyRows(line)
		messages := make([]chatMessage, 0, len(rows))
		for _, row := range rows {
			if len(row) < 3 {
				continue
			}
			messages = append(messages, chatMessage{
				SenderID: row[0],
				Text:     row[1],
				Time:     row[2],
			})
		}

		a.mu.Lock()
		a.mensajes[peerID] = messages
		a.mu.Unlock()

		a.refreshChatView()
	})
}

func (a *App) refreshChatView() {
	if a.chatView == nil {
		return
	}

	a.mu.RLock()
	messages := a.mensajes[a.currentChat]
	a.mu.RUnlock()

	var sb strings.Builder
	for _, msg := range messages {
		color := ColorTheirs
		arrow := "<"
		if msg.SenderID == a.userID {
			color = ColorMine
			arrow = ">"
		}
		sb.WriteString(fmt.Sprintf("[gray]%s[-] [#%06x]%s %s[-]\n",
			formatClock(msg.Time), color.Hex(), arrow, msg.Text))
	}

	a.chatView.SetText(sb.String())
	a.chatView.ScrollToEnd()
}

func (a *App) sendMessage(peerID, text string) {
	a.client.EnviarMensaje(peerID, text, func(line string) {
		if !replyOK(line) {
			a.setConnectionError(replyMessage(line))
			return
		}
		a.mu.Lock()
		a.mensajes[peerID] = append(a.mensajes[peerID], chatMessage{
			SenderID: a.userID,
			Text:     text,
			Time:     time.Now().Format(time.RFC3339),
		})
		a.mu.Unlock()
		a.refreshChatView()
	})
}

func (a *App) closeChat() {
	a.mu.Lock()
	a.currentChat = ""
	a.mu.Unlock()
	a.chatView = nil
	a.messageInput = nil
	a.pages.RemovePage("chat")
	a.pages.SwitchToPage("main")
	a.app.SetFocus(a.table)
}
