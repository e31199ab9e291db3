package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncode(t *testing.T) {
	assert.Equal(t, "PING\n", Encode(TagPing))
	assert.Equal(t, "LOGIN|m1|clave\n", Encode(TagLogin, "m1", "clave"))
	assert.Equal(t, "OK|nombre|\n", Encode(TagOK, "nombre", ""))
}

func TestDecode(t *testing.T) {
	tag, fields := Decode("LOGIN|m1|clave\n")
	assert.Equal(t, TagLogin, tag)
	assert.Equal(t, []string{"m1", "clave"}, fields)

	tag, fields = Decode("LOGOUT")
	assert.Equal(t, TagLogout, tag)
	assert.Empty(t, fields)

	// Windows line endings are tolerated
	tag, fields = Decode("PING\r\n")
	assert.Equal(t, TagPing, tag)
	assert.Empty(t, fields)
}

func TestDecodePreservesTrailingEmptyFields(t *testing.T) {
	// An empty last field still counts for arity checks
	_, fields := Decode("CAMBIAR_CLAVE|vieja|\n")
	assert.Equal(t, []string{"vieja", ""}, fields)

	_, fields = Decode("ENVIAR_MENSAJE||\n")
	assert.Equal(t, []string{"", ""}, fields)
}

func TestRoundTrip(t *testing.T) {
	line := Encode(TagAgregarMedico, "m1", "Dra. Rojas", "Pediatría")
	tag, fields := Decode(line)
	assert.Equal(t, TagAgregarMedico, tag)
	assert.Equal(t, []string{"m1", "Dra. Rojas", "Pediatría"}, fields)
}

func TestEncodeRows(t *testing.T) {
	rows := [][]string{
		{"m1", "Dra. Rojas", "Pediatría"},
		{"m2", "Dr. Vega", "Cardiología"},
	}
	assert.Equal(t, "OK|m1,Dra. Rojas,Pediatría|m2,Dr. Vega,Cardiología\n", EncodeRows(rows))

	// An empty result set is a bare OK
	assert.Equal(t, "OK\n", EncodeRows(nil))
}

func TestDecodeRows(t *testing.T) {
	tag, fields := Decode("OK|m1,Dra. Rojas,Pediatría|m2,Dr. Vega,Cardiología\n")
	assert.Equal(t, TagOK, tag)

	rows := DecodeRows(fields)
	assert.Len(t, rows, 2)
	assert.Equal(t, []string{"m1", "Dra. Rojas", "Pediatría"}, rows[0])
	assert.Equal(t, []string{"m2", "Dr. Vega", "Cardiología"}, rows[1])

	assert.Empty(t, DecodeRows(nil))
	assert.Empty(t, DecodeRows([]string{""}))
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "hola mundo", Sanitize("hola|mundo"))
	assert.Equal(t, "linea uno linea dos", Sanitize("linea uno\nlinea dos"))
	assert.Equal(t, "uno  dos y tres", Sanitize("uno, dos y tres"))
	assert.Equal(t, "sin cambios", Sanitize("sin cambios"))
}

func TestSanitizedTextSurvivesRowEncoding(t *testing.T) {
	// A chat message with commas must not shift the columns of the
	// comma-joined history row it is stored in.
	texto := Sanitize("hola, qué tal, todo bien")
	line := EncodeRows([][]string{{"m1", texto, "2026-08-31T10:00:00Z"}})

	_, fields := Decode(line)
	rows := DecodeRows(fields)
	assert.Len(t, rows, 1)
	assert.Equal(t, []string{"m1", texto, "2026-08-31T10:00:00Z"}, rows[0])
}
