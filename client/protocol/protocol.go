// Package protocol implements the client side connector: a resilient
// TCP connection to the hospital server with a watchdog, bounded
// reconnection and request/reply correlation for the UI.
package protocol

import (
	"bufio"
	"fmt"
	"log"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	wire "hospital/protocol"

	"hospital/models"
)

// Callback receives the raw reply line of a command, without the
// trailing newline.
type Callback func(line string)

// Observer receives server pushes (NOTIFICACION, MENSAJE, BIENVENIDO)
// and connector-generated lines (RECONEXION notice, terminal ERROR).
type Observer func(tag string, fields []string)

// Config controls the connector's liveness and retry behavior.
type Config struct {
	WatchdogInterval  time.Duration
	ReconnectAttempts int
	ReconnectDelay    time.Duration
	SendWorkers       int
}

// DefaultConfig matches the server defaults.
func DefaultConfig() Config {
	return Config{
		WatchdogInterval:  30 * time.Second,
		ReconnectAttempts: 3,
		ReconnectDelay:    3 * time.Second,
		SendWorkers:       4,
	}
}

type sendReq struct {
	line string
	cb   Callback
}

// Client is a hospital protocol client. All callbacks and observer
// invocations are marshalled through runOnUI, so UI code never needs
// its own locking.
type Client struct {
	addr     string
	cfg      Config
	runOnUI  func(func())
	observer Observer

	mu           sync.Mutex
	conn         net.Conn
	connected    bool
	closed       bool
	reconnecting bool
	pending      []Callback

	// writeMu keeps the pending enqueue and the wire write atomic, so
	// replies arrive in the same order callbacks were queued.
	writeMu sync.Mutex

	sendCh chan sendReq
	done   chan struct{}
}

// NewClient creates a connector for addr. Zero Config fields fall back
// to DefaultConfig. runOnUI marshals a closure onto the UI context
// (tview's QueueUpdateDraw); observer receives pushes.
func NewClient(addr string, cfg Config, runOnUI func(func()), observer Observer) *Client {
	def := DefaultConfig()
	if cfg.WatchdogInterval <= 0 {
		cfg.WatchdogInterval = def.WatchdogInterval
	}
	if cfg.ReconnectAttempts <= 0 {
		cfg.ReconnectAttempts = def.ReconnectAttempts
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = def.ReconnectDelay
	}
	if cfg.SendWorkers <= 0 {
		cfg.SendWorkers = def.SendWorkers
	}
	return &Client{
		addr:     addr,
		cfg:      cfg,
		runOnUI:  runOnUI,
		observer: observer,
		sendCh:   make(chan sendReq, 64),
		done:     make(chan struct{}),
	}
}

// Connect dials the server and starts the read loop, the watchdog and
// the send workers.
func (c *Client) Connect() error {
	conn, err := net.DialTimeout("tcp", c.addr, 10*time.Second)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	for i := 0; i < c.cfg.SendWorkers; i++ {
		go c.sendLoop()
	}
	go c.watchdogLoop()
	go c.readLoop(conn)

	return nil
}

// Disconnect closes the connection for good. No reconnection is
// attempted after a Disconnect.
func (c *Client) Disconnect() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.connected = false
	conn := c.conn
	c.pending = nil
	c.mu.Unlock()

	close(c.done)
	if conn != nil {
		conn.Close()
	}
}

// IsConnected reports whether the connector currently has a live
// connection.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// EnviarComando queues a command line for sending. The reply line is
// handed to cb on the UI context. When disconnected, cb receives an
// ERROR line immediately.
func (c *Client) EnviarComando(tag string, cb Callback, fields ...string) {
	c.mu.Lock()
	down := !c.connected || c.closed
	c.mu.Unlock()

	if down {
		// Async: EnviarComando may run on the UI goroutine, where a
		// synchronous QueueUpdateDraw would deadlock.
		go c.dispatchCallback(cb, wire.TagError+wire.Delim+"No hay conexión con el servidor")
		return
	}

	c.sendCh <- sendReq{line: wire.Encode(tag, fields...), cb: cb}
}

func (c *Client) dispatchCallback(cb Callback, line string) {
	if cb == nil {
		return
	}
	c.runOnUI(func() { cb(line) })
}

func (c *Client) notifyObserver(tag string, fields []string) {
	if c.observer == nil {
		return
	}
	c.runOnUI(func() { c.observer(tag, fields) })
}

// sendLoop drains queued commands. The enqueue of the callback and the
// write share writeMu so reply order matches callback order.
func (c *Client) sendLoop() {
	for {
		select {
		case <-c.done:
			return
		case req := <-c.sendCh:
			c.writeMu.Lock()
			c.mu.Lock()
			if !c.connected || c.closed {
				c.mu.Unlock()
				c.writeMu.Unlock()
				c.dispatchCallback(req.cb, wire.TagError+wire.Delim+"No hay conexión con el servidor")
				continue
			}
			if req.cb != nil {
				c.pending = append(c.pending, req.cb)
			}
			conn := c.conn
			c.mu.Unlock()

			_, err := conn.Write([]byte(req.line))
			if err != nil {
				// No reply will ever arrive for this command: take its
				// callback back off the queue and fail it directly. The
				// tail entry is ours because writeMu is still held.
				if req.cb != nil {
					c.mu.Lock()
					if n := len(c.pending); n > 0 {
						c.pending = c.pending[:n-1]
					}
					c.mu.Unlock()
				}
				c.writeMu.Unlock()

				log.Printf("Client %s: write failed: %v", c.addr, err)
				c.dispatchCallback(req.cb,
					wire.TagError+wire.Delim+"Error de comunicación con el servidor")
				c.handleDisconnect(conn)
				continue
			}
			c.writeMu.Unlock()
		}
	}
}

// watchdogLoop pings the server periodically. A failed ping surfaces
// through the send path as a disconnect.
func (c *Client) watchdogLoop() {
	ticker := time.NewTicker(c.cfg.WatchdogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.mu.Lock()
			up := c.connected && !c.closed
			c.mu.Unlock()
			if up {
				c.sendCh <- sendReq{line: wire.Encode(wire.TagPing)}
			}
		}
	}
}

// readLoop reads server lines until the connection fails, then hands
// off to the reconnection logic.
func (c *Client) readLoop(conn net.Conn) {
	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			c.handleDisconnect(conn)
			return
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}

		tag, fields := wire.Decode(line)
		switch tag {
		case wire.TagPong:
			// Watchdog traffic, not a command reply.
		case wire.TagNotificacion, wire.TagMensaje, wire.TagBienvenido:
			c.notifyObserver(tag, fields)
		default:
			c.resolveOldest(line)
		}
	}
}

// resolveOldest pops the oldest pending callback. Replies arrive on
// one stream in request order, so the head of the queue is always the
// owner of the reply.
func (c *Client) resolveOldest(line string) {
	c.mu.Lock()
	if len(c.pending) == 0 {
		c.mu.Unlock()
		log.Printf("Client %s: unsolicited reply: %q", c.addr, line)
		return
	}
	cb := c.pending[0]
	c.pending = c.pending[1:]
	c.mu.Unlock()

	c.dispatchCallback(cb, line)
}

// handleDisconnect tears down the failed connection and starts the
// reconnection attempts. Callbacks pending on the dead connection are
// dropped; the UI learns about the outage through the observer. The read
// loop and the send workers can report the same dead connection at the
// same time; the reconnecting flag makes sure only one of them redials.
func (c *Client) handleDisconnect(conn net.Conn) {
	c.mu.Lock()
	if c.closed || c.conn != conn || c.reconnecting {
		c.mu.Unlock()
		return
	}
	c.reconnecting = true
	c.connected = false
	c.pending = nil
	c.mu.Unlock()

	conn.Close()
	log.Printf("Client %s: connection lost, reconnecting", c.addr)

	go c.reconnectLoop()
}

func (c *Client) reconnectLoop() {
	defer func() {
		c.mu.Lock()
		c.reconnecting = false
		c.mu.Unlock()
	}()

	for attempt := 1; attempt <= c.cfg.ReconnectAttempts; attempt++ {
		select {
		case <-c.done:
			return
		case <-time.After(c.cfg.ReconnectDelay):
		}

		conn, err := net.DialTimeout("tcp", c.addr, 10*time.Second)
		if err != nil {
			log.Printf("Client %s: reconnect attempt %d failed: %v", c.addr, attempt, err)
			continue
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			conn.Close()
			return
		}
		c.conn = conn
		c.connected = true
		// Cleared here, not in the defer, so a failure on the fresh
		// connection is never mistaken for the redial still running.
		c.reconnecting = false
		c.mu.Unlock()

		log.Printf("Client %s: reconnected on attempt %d", c.addr, attempt)
		go c.readLoop(conn)
		c.notifyObserver(wire.TagNotificacion,
			[]string{wire.NotifReconexion, "Conexión restablecida"})
		return
	}

	c.notifyObserver(wire.TagError,
		[]string{"No se pudo reconectar al servidor. Reinicie la aplicación."})
}

// Typed command helpers.

func (c *Client) Login(id, clave string, cb Callback) {
	c.EnviarComando(wire.TagLogin, cb, id, clave)
}

func (c *Client) Logout(cb Callback) {
	c.EnviarComando(wire.TagLogout, cb)
}

func (c *Client) CambiarClave(actual, nueva string, cb Callback) {
	c.EnviarComando(wire.TagCambiarClave, cb, actual, nueva)
}

func (c *Client) ListarMedicos(cb Callback) {
	c.EnviarComando(wire.TagListarMedicos, cb)
}

func (c *Client) BuscarMedico(id string, cb Callback) {
	c.EnviarComando(wire.TagBuscarMedico, cb, id)
}

func (c *Client) BuscarMedicosPorNombre(nombre string, cb Callback) {
	c.EnviarComando(wire.TagBuscarMedicoNombre, cb, nombre)
}

func (c *Client) AgregarMedico(m models.Medico, cb Callback) {
	c.EnviarComando(wire.TagAgregarMedico, cb, m.ID, m.Nombre, m.Especialidad)
}

func (c *Client) ModificarMedico(m models.Medico, cb Callback) {
	c.EnviarComando(wire.TagModificarMedico, cb, m.ID, m.Nombre, m.Especialidad)
}

func (c *Client) EliminarMedico(id string, cb Callback) {
	c.EnviarComando(wire.TagEliminarMedico, cb, id)
}

func (c *Client) ListarFarmaceutas(cb Callback) {
	c.EnviarComando(wire.TagListarFarmaceutas, cb)
}

func (c *Client) BuscarFarmaceuta(id string, cb Callback) {
	c.EnviarComando(wire.TagBuscarFarmaceuta, cb, id)
}

func (c *Client) AgregarFarmaceuta(f models.Farmaceuta, cb Callback) {
	c.EnviarComando(wire.TagAgregarFarmaceuta, cb, f.ID, f.Nombre)
}

func (c *Client) ModificarFarmaceuta(f models.Farmaceuta, cb Callback) {
	c.EnviarComando(wire.TagModificarFarmaceuta, cb, f.ID, f.Nombre)
}

func (c *Client) EliminarFarmaceuta(id string, cb Callback) {
	c.EnviarComando(wire.TagEliminarFarmaceuta, cb, id)
}

func (c *Client) ListarPacientes(cb Callback) {
	c.EnviarComando(wire.TagListarPacientes, cb)
}

func (c *Client) BuscarPaciente(id string, cb Callback) {
	c.EnviarComando(wire.TagBuscarPaciente, cb, id)
}

func (c *Client) AgregarPaciente(p models.Paciente, cb Callback) {
	c.EnviarComando(wire.TagAgregarPaciente, cb,
		p.ID, p.Nombre, p.Telefono, p.FechaNacimiento.Format(models.FechaFormato))
}

func (c *Client) ModificarPaciente(p models.Paciente, cb Callback) {
	c.EnviarComando(wire.TagModificarPaciente, cb,
		p.ID, p.Nombre, p.Telefono, p.FechaNacimiento.Format(models.FechaFormato))
}

func (c *Client) EliminarPaciente(id string, cb Callback) {
	c.EnviarComando(wire.TagEliminarPaciente, cb, id)
}

func (c *Client) ListarMedicamentos(cb Callback) {
	c.EnviarComando(wire.TagListarMedicamentos, cb)
}

func (c *Client) BuscarMedicamento(codigo string, cb Callback) {
	c.EnviarComando(wire.TagBuscarMedicamento, cb, codigo)
}

func (c *Client) AgregarMedicamento(m models.Medicamento, cb Callback) {
	c.EnviarComando(wire.TagAgregarMedicamento, cb, m.Codigo, m.Nombre, m.Presentacion)
}

func (c *Client) ModificarMedicamento(m models.Medicamento, cb Callback) {
	c.EnviarComando(wire.TagModificarMedicamento, cb, m.Codigo, m.Nombre, m.Presentacion)
}

func (c *Client) EliminarMedicamento(codigo string, cb Callback) {
	c.EnviarComando(wire.TagEliminarMedicamento, cb, codigo)
}

func (c *Client) ListarRecetas(cb Callback) {
	c.EnviarComando(wire.TagListarRecetas, cb)
}

func (c *Client) BuscarReceta(id string, cb Callback) {
	c.EnviarComando(wire.TagBuscarReceta, cb, id)
}

func (c *Client) ListarRecetasPaciente(pacienteID string, cb Callback) {
	c.EnviarComando(wire.TagListarRecetasPaciente, cb, pacienteID)
}

// CrearReceta sends the receta header followed by the detalle count and
// one "codigo,cantidad,indicaciones,dias" field per detalle.
func (c *Client) CrearReceta(r models.Receta, cb Callback) {
	fields := []string{
		r.ID, r.PacienteID, r.MedicoID,
		r.Fecha.Format(models.FechaFormato),
		r.FechaRetiro.Format(models.FechaFormato),
		string(r.Estado),
		strconv.Itoa(len(r.Detalles)),
	}
	for _, d := range r.Detalles {
		fields = append(fields, fmt.Sprintf("%s,%d,%s,%d",
			d.MedicamentoCodigo, d.Cantidad, d.Indicaciones, d.DiasTratamiento))
	}
	c.EnviarComando(wire.TagCrearReceta, cb, fields...)
}

func (c *Client) ActualizarEstadoReceta(recetaID string, estado models.EstadoReceta, cb Callback) {
	c.EnviarComando(wire.TagActualizarEstadoReceta, cb, recetaID, string(estado))
}

func (c *Client) DashboardEstadisticas(cb Callback) {
	c.EnviarComando(wire.TagDashboardEstadisticas, cb)
}

func (c *Client) EnviarMensaje(destinatarioID, texto string, cb Callback) {
	c.EnviarComando(wire.TagEnviarMensaje, cb, destinatarioID, wire.Sanitize(texto))
}

func (c *Client) ListarUsuariosActivos(cb Callback) {
	c.EnviarComando(wire.TagListarUsuariosActivos, cb)
}

func (c *Client) CargarHistorial(otroID string, cb Callback) {
	c.EnviarComando(wire.TagCargarHistorial, cb, otroID)
}
