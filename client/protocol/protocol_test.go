package protocol

import (
	"bufio"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	wire "hospital/protocol"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// brokenConn fails every write, simulating a connection the OS has
// already torn down.
type brokenConn struct {
	net.Conn
}

func (brokenConn) Write([]byte) (int, error) {
	return 0, errors.New("broken pipe")
}

// directUI runs closures inline, standing in for tview's
// QueueUpdateDraw in tests.
func directUI(f func()) { f() }

type push struct {
	tag    string
	fields []string
}

// scriptServer is a single-connection TCP server the tests drive by
// hand: read a command line, write back whatever the script says.
type scriptServer struct {
	t  *testing.T
	ln net.Listener
}

func newScriptServer(t *testing.T) *scriptServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	return &scriptServer{t: t, ln: ln}
}

func (s *scriptServer) addr() string { return s.ln.Addr().String() }

func (s *scriptServer) accept() net.Conn {
	s.t.Helper()
	if d, ok := s.ln.(*net.TCPListener); ok {
		d.SetDeadline(time.Now().Add(2 * time.Second))
	}
	conn, err := s.ln.Accept()
	require.NoError(s.t, err)
	s.t.Cleanup(func() { conn.Close() })
	return conn
}

// expectNoAccept fails the test if another connection arrives within d.
func (s *scriptServer) expectNoAccept(d time.Duration) {
	s.t.Helper()
	if l, ok := s.ln.(*net.TCPListener); ok {
		l.SetDeadline(time.Now().Add(d))
	}
	conn, err := s.ln.Accept()
	if err == nil {
		conn.Close()
		s.t.Fatal("unexpected extra connection")
	}
}

func readLine(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	return line
}

func writeLine(t *testing.T, conn net.Conn, line string) {
	t.Helper()
	_, err := conn.Write([]byte(line + "\n"))
	require.NoError(t, err)
}

func quietConfig() Config {
	return Config{
		WatchdogInterval:  time.Hour,
		ReconnectAttempts: 1,
		ReconnectDelay:    10 * time.Millisecond,
		SendWorkers:       2,
	}
}

func TestEnviarComandoWithoutConnection(t *testing.T) {
	c := NewClient("127.0.0.1:1", quietConfig(), directUI, nil)

	replies := make(chan string, 1)
	c.EnviarComando(wire.TagPing, func(line string) { replies <- line })

	select {
	case line := <-replies:
		assert.Equal(t, "ERROR|No hay conexión con el servidor", line)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the error callback")
	}
	assert.False(t, c.IsConnected())
}

func TestRepliesResolveInRequestOrder(t *testing.T) {
	srv := newScriptServer(t)

	c := NewClient(srv.addr(), quietConfig(), directUI, nil)
	require.NoError(t, c.Connect())
	defer c.Disconnect()

	conn := srv.accept()
	reader := bufio.NewReader(conn)

	replies := make(chan string, 2)
	c.ListarMedicos(func(line string) { replies <- "medicos:" + line })
	c.ListarPacientes(func(line string) { replies <- "pacientes:" + line })

	// Commands arrive on one stream; answer them in arrival order.
	for i := 0; i < 2; i++ {
		line := readLine(t, reader)
		switch line {
		case "LISTAR_MEDICOS\n":
			writeLine(t, conn, "OK|m1,Dra. Rojas,Pediatría")
		case "LISTAR_PACIENTES\n":
			writeLine(t, conn, "OK|p1,Ana Solís")
		default:
			t.Fatalf("unexpected command: %q", line)
		}
	}

	got := []string{<-replies, <-replies}
	assert.Contains(t, got, "medicos:OK|m1,Dra. Rojas,Pediatría")
	assert.Contains(t, got, "pacientes:OK|p1,Ana Solís")
}

func TestPushesGoToObserverNotCallbacks(t *testing.T) {
	srv := newScriptServer(t)

	pushes := make(chan push, 4)
	observer := func(tag string, fields []string) { pushes <- push{tag, fields} }

	c := NewClient(srv.addr(), quietConfig(), directUI, observer)
	require.NoError(t, c.Connect())
	defer c.Disconnect()

	conn := srv.accept()
	reader := bufio.NewReader(conn)

	replies := make(chan string, 1)
	c.ListarUsuariosActivos(func(line string) { replies <- line })
	require.Equal(t, "LISTAR_USUARIOS_ACTIVOS\n", readLine(t, reader))

	// Interleave pushes and watchdog traffic before the reply. None of
	// them may consume the pending callback.
	writeLine(t, conn, "BIENVENIDO|Sistema Hospital - Servidor Activo")
	writeLine(t, conn, "PONG|Servidor activo")
	writeLine(t, conn, "NOTIFICACION|LOGIN|m1|Dra. Rojas|MEDICO")
	writeLine(t, conn, "MENSAJE|m1|Dra. Rojas|hola")
	writeLine(t, conn, "OK|m1,Dra. Rojas,MEDICO")

	select {
	case line := <-replies:
		assert.Equal(t, "OK|m1,Dra. Rojas,MEDICO", line)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the reply")
	}

	p := <-pushes
	assert.Equal(t, wire.TagBienvenido, p.tag)

	p = <-pushes
	assert.Equal(t, wire.TagNotificacion, p.tag)
	require.Len(t, p.fields, 4)
	assert.Equal(t, wire.NotifLogin, p.fields[0])

	p = <-pushes
	assert.Equal(t, wire.TagMensaje, p.tag)
	assert.Equal(t, []string{"m1", "Dra. Rojas", "hola"}, p.fields)
}

func TestWatchdogSendsPing(t *testing.T) {
	srv := newScriptServer(t)

	cfg := quietConfig()
	cfg.WatchdogInterval = 20 * time.Millisecond

	c := NewClient(srv.addr(), cfg, directUI, nil)
	require.NoError(t, c.Connect())
	defer c.Disconnect()

	conn := srv.accept()
	reader := bufio.NewReader(conn)

	assert.Equal(t, "PING\n", readLine(t, reader))
	writeLine(t, conn, "PONG|Servidor activo")

	// The pong is swallowed; a later command still resolves normally.
	replies := make(chan string, 1)
	c.ListarMedicos(func(line string) { replies <- line })
	for {
		line := readLine(t, reader)
		if line == "PING\n" {
			continue
		}
		require.Equal(t, "LISTAR_MEDICOS\n", line)
		break
	}
	writeLine(t, conn, "OK")

	select {
	case line := <-replies:
		assert.Equal(t, "OK", line)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the reply")
	}
}

func TestReconnectNotifiesOnce(t *testing.T) {
	srv := newScriptServer(t)

	pushes := make(chan push, 4)
	observer := func(tag string, fields []string) { pushes <- push{tag, fields} }

	cfg := quietConfig()
	cfg.ReconnectAttempts = 3

	c := NewClient(srv.addr(), cfg, directUI, observer)
	require.NoError(t, c.Connect())
	defer c.Disconnect()

	first := srv.accept()
	first.Close()

	// The connector redials and the server accepts the new connection.
	second := srv.accept()
	defer second.Close()

	select {
	case p := <-pushes:
		assert.Equal(t, wire.TagNotificacion, p.tag)
		require.NotEmpty(t, p.fields)
		assert.Equal(t, wire.NotifReconexion, p.fields[0])
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the reconnection notice")
	}
	assert.True(t, c.IsConnected())

	// No duplicate notice follows.
	select {
	case p := <-pushes:
		t.Fatalf("unexpected extra push: %v", p)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestReconnectGivesUpAfterBoundedAttempts(t *testing.T) {
	srv := newScriptServer(t)

	pushes := make(chan push, 4)
	observer := func(tag string, fields []string) { pushes <- push{tag, fields} }

	cfg := quietConfig()
	cfg.ReconnectAttempts = 2

	c := NewClient(srv.addr(), cfg, directUI, observer)
	require.NoError(t, c.Connect())
	defer c.Disconnect()

	conn := srv.accept()

	// Kill the server entirely so every redial fails.
	srv.ln.Close()
	conn.Close()

	select {
	case p := <-pushes:
		assert.Equal(t, wire.TagError, p.tag)
		require.NotEmpty(t, p.fields)
		assert.Equal(t, "No se pudo reconectar al servidor. Reinicie la aplicación.", p.fields[0])
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the terminal error")
	}
	assert.False(t, c.IsConnected())

	// Commands after the terminal failure fail fast.
	replies := make(chan string, 1)
	c.ListarMedicos(func(line string) { replies <- line })
	select {
	case line := <-replies:
		assert.Equal(t, "ERROR|No hay conexión con el servidor", line)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the fail-fast error")
	}
}

func TestConcurrentFailureDetectionReconnectsOnce(t *testing.T) {
	srv := newScriptServer(t)

	pushes := make(chan push, 8)
	observer := func(tag string, fields []string) { pushes <- push{tag, fields} }

	cfg := quietConfig()
	cfg.ReconnectAttempts = 3

	c := NewClient(srv.addr(), cfg, directUI, observer)
	require.NoError(t, c.Connect())
	defer c.Disconnect()

	first := srv.accept()
	c.mu.Lock()
	dead := c.conn
	c.mu.Unlock()

	// The read loop notices the closed connection on its own; two send
	// workers reporting the same failure must not start extra redials.
	first.Close()
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.handleDisconnect(dead)
		}()
	}
	wg.Wait()

	second := srv.accept()
	defer second.Close()

	select {
	case p := <-pushes:
		assert.Equal(t, wire.TagNotificacion, p.tag)
		require.NotEmpty(t, p.fields)
		assert.Equal(t, wire.NotifReconexion, p.fields[0])
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the reconnection notice")
	}

	// Exactly one notice and exactly one new connection.
	select {
	case p := <-pushes:
		t.Fatalf("unexpected extra push: %v", p)
	case <-time.After(200 * time.Millisecond):
	}
	srv.expectNoAccept(200 * time.Millisecond)
}

func TestFailedWriteErrorsItsCallback(t *testing.T) {
	c := NewClient("127.0.0.1:1", quietConfig(), directUI, nil)

	// Install a connection whose writes always fail and run one worker
	// against it.
	serverSide, _ := net.Pipe()
	c.mu.Lock()
	c.conn = brokenConn{serverSide}
	c.connected = true
	c.mu.Unlock()
	go c.sendLoop()
	defer c.Disconnect()

	replies := make(chan string, 1)
	c.ListarMedicos(func(line string) { replies <- line })

	select {
	case line := <-replies:
		assert.Equal(t, "ERROR|Error de comunicación con el servidor", line)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the write-failure error")
	}

	// The failed command left nothing behind on the callback queue.
	c.mu.Lock()
	assert.Empty(t, c.pending)
	c.mu.Unlock()
}

func TestDisconnectStopsReconnection(t *testing.T) {
	srv := newScriptServer(t)

	pushes := make(chan push, 4)
	observer := func(tag string, fields []string) { pushes <- push{tag, fields} }

	cfg := quietConfig()
	cfg.ReconnectDelay = 50 * time.Millisecond

	c := NewClient(srv.addr(), cfg, directUI, observer)
	require.NoError(t, c.Connect())

	conn := srv.accept()
	conn.Close()

	// Disconnect before the first redial fires; no notice, no error.
	c.Disconnect()

	select {
	case p := <-pushes:
		t.Fatalf("unexpected push after Disconnect: %v", p)
	case <-time.After(200 * time.Millisecond):
	}
	assert.False(t, c.IsConnected())
}
