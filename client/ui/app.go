package ui

import (
	"sync"

	"hospital/client/protocol"
	"hospital/models"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// chatMessage is one line of a conversation as the UI shows it.
type chatMessage struct {
	SenderID string
	Text     string
	Time     string
}

// App is the main application
type App struct {
	app        *tview.Application
	pages      *tview.Pages
	client     *protocol.Client
	serverAddr string
	connCfg    protocol.Config

	userID   string
	userName string
	userRol  models.Role

	mu          sync.RWMutex
	activos     [][]string                // id, nombre, rol
	mensajes    map[string][]chatMessage  // peer id -> conversation
	unread      map[string]int            // peer id -> unread count
	currentChat string
	tableRows   [][]string // rows currently shown in the entity table

	currentSection int

	sectionsList   *tview.List
	table          *tview.Table
	chatView       *tview.TextView
	messageInput   *tview.InputField
	statusBar      *tview.TextView
	connectionView *tview.TextView
}

// NewApp creates a new application instance
func NewApp(serverAddr string, connCfg protocol.Config) *App {
	return &App{
		serverAddr: serverAddr,
		connCfg:    connCfg,
		mensajes:   make(map[string][]chatMessage),
		unread:     make(map[string]int),
	}
}

// Run starts the application
func (a *App) Run() error {
	a.app = tview.NewApplication()
	a.pages = tview.NewPages()

	// Create empty background
	background := tview.NewBox()
	background.SetBackgroundColor(tcell.NewRGBColor(64, 64, 64))
	a.pages.AddPage("background", background, true, true)

	// Show login dialog on top
	a.showLoginDialog()

	return a.app.SetRoot(a.pages, true).EnableMouse(false).Run()
}

// quit exits the application
func (a *App) quit() {
	if a.client != nil && a.client.IsConnected() {
		a.client.Logout(nil)
		a.client.Disconnect()
	}
	a.app.Stop()
}
