package server

import (
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"hospital/models"

	"github.com/stretchr/testify/assert"
)

func newTestSession(connID string) *Session {
	serverConn, _ := net.Pipe()
	return newSession(connID, serverConn, time.Second)
}

func authenticate(s *Session, userID string, rol models.Role) {
	s.setIdentity(&Identity{UserID: userID, Nombre: "Nombre " + userID, Rol: rol})
}

func TestRegistryAddRemove(t *testing.T) {
	r := NewRegistry()
	s := newTestSession("c1")

	r.Add(s)
	assert.Equal(t, 1, r.Len())

	r.Remove(s)
	assert.Equal(t, 0, r.Len())

	// Removing twice is harmless
	r.Remove(s)
	assert.Equal(t, 0, r.Len())
}

func TestRegistryFindByUserID(t *testing.T) {
	r := NewRegistry()

	anon := newTestSession("c1")
	r.Add(anon)

	authed := newTestSession("c2")
	authenticate(authed, "m1", models.RoleMedico)
	r.Add(authed)

	assert.Nil(t, r.FindByUserID("nadie"))
	assert.Same(t, authed, r.FindByUserID("m1"))

	// Logout makes the session invisible to user lookups
	authed.setIdentity(nil)
	assert.Nil(t, r.FindByUserID("m1"))
}

func TestRegistryAllAuthenticated(t *testing.T) {
	r := NewRegistry()

	anon := newTestSession("c1")
	r.Add(anon)

	authed := newTestSession("c2")
	authenticate(authed, "f1", models.RoleFarmaceuta)
	r.Add(authed)

	all := r.AllAuthenticated()
	assert.Len(t, all, 1)
	assert.Same(t, authed, all[0])

	assert.Len(t, r.Snapshot(), 2)
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s := newTestSession(fmt.Sprintf("c%d", i))
			authenticate(s, fmt.Sprintf("u%d", i), models.RoleMedico)
			r.Add(s)
			r.FindByUserID(fmt.Sprintf("u%d", i))
			r.AllAuthenticated()
			r.Remove(s)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, r.Len())
}

func TestHistoryCanonicalPair(t *testing.T) {
	h := NewHistoryStore()

	h.Append("m1", "f1", "hola")
	h.Append("f1", "m1", "buenas")

	// Both orderings of the pair see the same conversation
	fromA := h.HistoryFor("m1", "f1")
	fromB := h.HistoryFor("f1", "m1")
	assert.Len(t, fromA, 2)
	assert.Equal(t, fromA, fromB)

	assert.Equal(t, "m1", fromA[0].SenderID)
	assert.Equal(t, "hola", fromA[0].Text)
	assert.Equal(t, "f1", fromA[1].SenderID)
	assert.Equal(t, "buenas", fromA[1].Text)
}

func TestHistoryUnknownPairIsEmpty(t *testing.T) {
	h := NewHistoryStore()
	assert.Empty(t, h.HistoryFor("a", "b"))
}

func TestHistoryPairsAreIsolated(t *testing.T) {
	h := NewHistoryStore()

	h.Append("m1", "f1", "para f1")
	h.Append("m1", "admin", "para admin")

	assert.Len(t, h.HistoryFor("m1", "f1"), 1)
	assert.Len(t, h.HistoryFor("m1", "admin"), 1)
	assert.Empty(t, h.HistoryFor("f1", "admin"))
}

func TestHistoryConcurrentAppend(t *testing.T) {
	h := NewHistoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.Append("m1", "f1", "mensaje")
		}()
	}
	wg.Wait()

	assert.Len(t, h.HistoryFor("m1", "f1"), 20)
}
