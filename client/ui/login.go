package ui

import (
	"fmt"

	"hospital/client/protocol"
	"hospital/models"
	wire "hospital/protocol"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

func (a *App) showLoginDialog() {
	form := tview.NewForm()
	form.SetBackgroundColor(ColorBg)
	form.SetFieldBackgroundColor(tcell.NewRGBColor(0, 0, 64))
	form.SetFieldTextColor(ColorFg)
	form.SetLabelColor(ColorHighlight)
	form.SetButtonBackgroundColor(tcell.NewRGBColor(0, 128, 128))
	form.SetButtonTextColor(ColorTitle)
	form.SetBorder(true)
	form.SetBorderColor(ColorBorder)
	form.SetTitle(" Sistema Hospital ")
	form.SetTitleColor(ColorTitle)

	statusText := tview.NewTextView()
	statusText.SetBackgroundColor(ColorBg)
	statusText.SetTextColor(tcell.ColorRed)
	statusText.SetTextAlign(tview.AlignCenter)
	statusText.SetDynamicColors(true)

	idField := tview.NewInputField()
	idField.SetLabel("Usuario: ")
	idField.SetFieldWidth(30)
	idField.SetBackgroundColor(ColorBg)

	claveField := tview.NewInputField()
	claveField.SetLabel("Clave: ")
	claveField.SetFieldWidth(30)
	claveField.SetMaskCharacter('*')
	claveField.SetBackgroundColor(ColorBg)

	form.AddFormItem(idField)
	form.AddFormItem(claveField)

	form.AddButton("Entrar", func() {
		id := idField.GetText()
		clave := claveField.GetText()
		if id == "" || clave == "" {
			statusText.SetText("[red]Ingrese usuario y clave[-]")
			return
		}
		a.doLogin(id, clave, statusText)
	})

	form.AddButton("Salir", func() {
		a.app.Stop()
	})

	formFlex := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(form, 0, 1, true).
		AddItem(statusText, 1, 0, false)

	width := 54
	height := 11

	modal := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().
			AddItem(nil, 0, 1, false).
			AddItem(formFlex, width, 0, true).
			AddItem(nil, 0, 1, false), height, 0, true).
		AddItem(nil, 0, 1, false)

	a.pages.AddPage("login", modal, true, true)
	a.app.SetFocus(form)
}

func (a *App) doLogin(id, clave string, statusText *tview.TextView) {
	statusText.SetText("Conectando...")

	// Connect in a goroutine to avoid blocking the UI
	go func() {
		if a.client == nil || !a.client.IsConnected() {
			client := protocol.NewClient(a.serverAddr, a.connCfg,
				func(f func()) { a.app.QueueUpdateDraw(f) },
				a.handleServerPush)
			if err := client.Connect(); err != nil {
				a.app.QueueUpdateDraw(func() {
					statusText.SetText(fmt.Sprintf("Error de conexión: %v", err))
				})
				return
			}
			a.client = client
		}

		a.client.Login(id, clave, func(line string) {
			if !replyOK(line) {
				statusText.SetText(replyMessage(line))
				return
			}
			_, fields := wire.Decode(line)
			a.userID = id
			a.userName = id
			if len(fields) >= 1 {
				a.userName = fields[0]
			}
			a.userRol = models.RoleUnknown
			if len(fields) >= 2 {
				a.userRol = models.ParseRole(fields[1])
			}
			a.showMainScreen()
		})
	}()
}
