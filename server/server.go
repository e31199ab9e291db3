package server

import (
	"bufio"
	"io"
	"log"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"hospital/logic"
	"hospital/protocol"

	"github.com/google/uuid"
)

const greeting = "Sistema Hospital - Servidor Activo"

type Server struct {
	logic    *logic.Logic
	config   *ServerConfig
	registry *Registry
	history  *HistoryStore

	mu       sync.Mutex
	listener net.Listener
	closed   bool
}

type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func New(lg *logic.Logic, config *ServerConfig) *Server {
	return &Server{
		logic:    lg,
		config:   config,
		registry: NewRegistry(),
		history:  NewHistoryStore(),
	}
}

// Start listens and accepts connections until Shutdown. Blocks.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", ":"+strconv.Itoa(s.config.Port))
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		listener.Close()
		return nil
	}
	s.listener = listener
	s.mu.Unlock()

	log.Printf("Hospital server started on %s", listener.Addr())

	for {
		conn, err := listener.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed {
				return nil
			}
			log.Printf("Error accepting connection: %v", err)
			continue
		}

		go s.handleConnection(conn)
	}
}

// Addr returns the listening address once Start has bound it. Used by tests
// that start the server on port 0.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	remoteAddr := conn.RemoteAddr().String()
	log.Printf("New client connected from %s", remoteAddr)

	session := newSession(uuid.NewString(), conn, s.config.WriteTimeout)
	s.registry.Add(session)

	h := &connHandler{srv: s, session: session}

	session.Send(protocol.Encode(protocol.TagBienvenido, greeting))

	reader := bufio.NewReader(conn)
	for {
		conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
		line, err := reader.ReadString('\n')
		if err != nil {
			if err != io.EOF {
				if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
					// Idle connection, keep waiting. The client watchdog
					// pings well inside the read timeout.
					continue
				}
				if strings.Contains(err.Error(), "use of closed network connection") {
					break
				}
				log.Printf("Error reading from %s: %v", remoteAddr, err)
			}
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if !strings.HasPrefix(line, protocol.TagLogin+protocol.Delim) &&
			!strings.HasPrefix(line, protocol.TagCambiarClave+protocol.Delim) {
			log.Printf("Received from %s: %q", remoteAddr, line)
		}

		reply := h.dispatch(line)
		if err := session.Send(reply); err != nil {
			log.Printf("Error writing to %s: %v", remoteAddr, err)
			break
		}
		if h.closing {
			break
		}
	}

	s.disconnect(session, remoteAddr)
}

// disconnect deregisters the session and, when it was authenticated,
// broadcasts the logout to the remaining sessions. Runs for every
// termination path: LOGOUT, EOF, read error, shutdown.
func (s *Server) disconnect(session *Session, remoteAddr string) {
	s.registry.Remove(session)

	if id := session.Identity(); id != nil {
		s.broadcastExcept(protocol.Encode(protocol.TagNotificacion,
			protocol.NotifLogout, id.UserID, id.Nombre, string(id.Rol)), session)
		log.Printf("Client %s disconnected from %s", id.UserID, remoteAddr)
	} else {
		log.Printf("Client disconnected from %s", remoteAddr)
	}
}

// broadcastExcept delivers a line to every authenticated session except the
// excluded one. Best effort: a failed send to one recipient does not abort
// delivery to the rest.
func (s *Server) broadcastExcept(line string, except *Session) {
	for _, sess := range s.registry.AllAuthenticated() {
		if sess == except {
			continue
		}
		if err := sess.Send(line); err != nil {
			log.Printf("Broadcast send failed for %s: %v", sess.ConnID, err)
		}
	}
}

// deliverTo sends a line to the authenticated session of one user.
func (s *Server) deliverTo(userID string, line string) bool {
	sess := s.registry.FindByUserID(userID)
	if sess == nil {
		return false
	}
	if err := sess.Send(line); err != nil {
		log.Printf("Delivery to %s failed: %v", userID, err)
		return false
	}
	return true
}

// Shutdown notifies every connected session, closes their streams and
// releases the listening port.
func (s *Server) Shutdown() {
	s.mu.Lock()
	s.closed = true
	listener := s.listener
	s.mu.Unlock()

	notice := protocol.Encode(protocol.TagNotificacion,
		protocol.NotifServerShutdown, "El servidor se está apagando")

	for _, sess := range s.registry.Snapshot() {
		sess.Send(notice)
		sess.conn.Close()
		s.registry.Remove(sess)
	}

	if listener != nil {
		listener.Close()
	}

	log.Printf("Hospital server stopped")
}

// GetStats returns server statistics as a formatted string.
func (s *Server) GetStats() string {
	sessions := s.registry.Snapshot()

	var users []string
	for _, sess := range sessions {
		if id := sess.Identity(); id != nil {
			users = append(users, id.UserID)
		}
	}

	return "connections=" + strconv.Itoa(len(sessions)) +
		",users=" + strings.Join(users, ";")
}
