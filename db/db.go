package db

import (
	"database/sql"
	"errors"
	"time"

	"hospital/models"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/bcrypt"
)

var ErrNoRows = errors.New("no rows found")

type DB struct {
	conn *sql.DB
}

func New(path string) (*DB, error) {
	conn, err := sql.Open("sqlite3", path+"?_foreign_keys=1&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		conn.Close()
		return nil, err
	}

	return db, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) init() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS administrador (
			id TEXT PRIMARY KEY,
			clave TEXT NOT NULL,
			nombre TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS medico (
			id TEXT PRIMARY KEY,
			clave TEXT NOT NULL,
			nombre TEXT NOT NULL,
			especialidad TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS farmaceuta (
			id TEXT PRIMARY KEY,
			clave TEXT NOT NULL,
			nombre TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS paciente (
			id TEXT PRIMARY KEY,
			nombre TEXT NOT NULL,
			telefono TEXT NOT NULL,
			fecha_nacimiento TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS medicamento (
			codigo TEXT PRIMARY KEY,
			nombre TEXT NOT NULL,
			presentacion TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS receta (
			id TEXT PRIMARY KEY,
			paciente_id TEXT NOT NULL,
			medico_id TEXT NOT NULL,
			fecha TEXT NOT NULL,
			fecha_retiro TEXT NOT NULL,
			estado TEXT NOT NULL,
			FOREIGN KEY (paciente_id) REFERENCES paciente(id),
			FOREIGN KEY (medico_id) REFERENCES medico(id)
		)`,
		`CREATE TABLE IF NOT EXISTS detalle_receta (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			receta_id TEXT NOT NULL,
			medicamento_codigo TEXT NOT NULL,
			cantidad INTEGER NOT NULL,
			indicaciones TEXT NOT NULL,
			dias_tratamiento INTEGER NOT NULL,
			FOREIGN KEY (receta_id) REFERENCES receta(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_receta_paciente ON receta(paciente_id)`,
		`CREATE INDEX IF NOT EXISTS idx_detalle_receta ON detalle_receta(receta_id)`,
	}

	for _, query := range queries {
		if _, err := db.conn.Exec(query); err != nil {
			return err
		}
	}

	return db.seedAdmin()
}

// seedAdmin creates the bootstrap administrator account when the table is
// empty, so a fresh database can be logged into.
func (db *DB) seedAdmin() error {
	var count int
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM administrador").Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte("admin"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	_, err = db.conn.Exec(
		"INSERT INTO administrador (id, clave, nombre) VALUES (?, ?, ?)",
		"admin", string(hashed), "Administrador",
	)
	return err
}

// ==================== Credenciales ====================

// userTables maps each role to the table holding its credentials.
var userTables = []struct {
	table string
	role  models.Role
}{
	{"administrador", models.RoleAdministrador},
	{"medico", models.RoleMedico},
	{"farmaceuta", models.RoleFarmaceuta},
}

// Authenticate verifies id/clave against the three user tables and returns
// the matching identity. ok is false both for an unknown id and a wrong
// clave; callers must not distinguish the two.
func (db *DB) Authenticate(id, clave string) (models.Usuario, bool, error) {
	for _, ut := range userTables {
		var hashed, nombre string
		err := db.conn.QueryRow(
			"SELECT clave, nombre FROM "+ut.table+" WHERE id = ?", id,
		).Scan(&hashed, &nombre)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return models.Usuario{}, false, err
		}

		if bcrypt.CompareHashAndPassword([]byte(hashed), []byte(clave)) != nil {
			return models.Usuario{}, false, nil
		}
		return models.Usuario{ID: id, Nombre: nombre, Rol: ut.role}, true, nil
	}
	return models.Usuario{}, false, nil
}

// UpdateClave replaces the stored clave for a user after verifying the
// current one. Returns ErrNoRows when the id matches no user table.
func (db *DB) UpdateClave(id, actual, nueva string) error {
	for _, ut := range userTables {
		var hashed string
		err := db.conn.QueryRow(
			"SELECT clave FROM "+ut.table+" WHERE id = ?", id,
		).Scan(&hashed)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return err
		}

		if bcrypt.CompareHashAndPassword([]byte(hashed), []byte(actual)) != nil {
			return errors.New("La clave actual es incorrecta")
		}

		newHash, err := bcrypt.GenerateFromPassword([]byte(nueva), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		_, err = db.conn.Exec(
			"UPDATE "+ut.table+" SET clave = ? WHERE id = ?", string(newHash), id,
		)
		return err
	}
	return ErrNoRows
}

func hashClave(clave string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(clave), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ==================== Médicos ====================

func (db *DB) ListarMedicos() ([]models.Medico, error) {
	rows, err := db.conn.Query("SELECT id, nombre, especialidad FROM medico ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var medicos []models.Medico
	for rows.Next() {
		var m models.Medico
		if err := rows.Scan(&m.ID, &m.Nombre, &m.Especialidad); err != nil {
			return nil, err
		}
		medicos = append(medicos, m)
	}
	return medicos, rows.Err()
}

func (db *DB) BuscarMedico(id string) (*models.Medico, error) {
	var m models.Medico
	err := db.conn.QueryRow(
		"SELECT id, nombre, especialidad FROM medico WHERE id = ?", id,
	).Scan(&m.ID, &m.Nombre, &m.Especialidad)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// InsertMedico stores the médico with clave as given (already the initial
// clave chosen by the logic layer).
func (db *DB) InsertMedico(m models.Medico, clave string) error {
	hashed, err := hashClave(clave)
	if err != nil {
		return err
	}
	_, err = db.conn.Exec(
		"INSERT INTO medico (id, clave, nombre, especialidad) VALUES (?, ?, ?, ?)",
		m.ID, hashed, m.Nombre, m.Especialidad,
	)
	return err
}

func (db *DB) UpdateMedico(m models.Medico) error {
	result, err := db.conn.Exec(
		"UPDATE medico SET nombre = ?, especialidad = ? WHERE id = ?",
		m.Nombre, m.Especialidad, m.ID,
	)
	if err != nil {
		return err
	}
	return requireRows(result)
}

func (db *DB) DeleteMedico(id string) error {
	result, err := db.conn.Exec("DELETE FROM medico WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireRows(result)
}

// ==================== Farmacéutas ====================

func (db *DB) ListarFarmaceutas() ([]models.Farmaceuta, error) {
	rows, err := db.conn.Query("SELECT id, nombre FROM farmaceuta ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var farmaceutas []models.Farmaceuta
	for rows.Next() {
		var f models.Farmaceuta
		if err := rows.Scan(&f.ID, &f.Nombre); err != nil {
			return nil, err
		}
		farmaceutas = append(farmaceutas, f)
	}
	return farmaceutas, rows.Err()
}

func (db *DB) BuscarFarmaceuta(id string) (*models.Farmaceuta, error) {
	var f models.Farmaceuta
	err := db.conn.QueryRow(
		"SELECT id, nombre FROM farmaceuta WHERE id = ?", id,
	).Scan(&f.ID, &f.Nombre)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (db *DB) InsertFarmaceuta(f models.Farmaceuta, clave string) error {
	hashed, err := hashClave(clave)
	if err != nil {
		return err
	}
	_, err = db.conn.Exec(
		"INSERT INTO farmaceuta (id, clave, nombre) VALUES (?, ?, ?)",
		f.ID, hashed, f.Nombre,
	)
	return err
}

func (db *DB) UpdateFarmaceuta(f models.Farmaceuta) error {
	result, err := db.conn.Exec(
		"UPDATE farmaceuta SET nombre = ? WHERE id = ?", f.Nombre, f.ID,
	)
	if err != nil {
		return err
	}
	return requireRows(result)
}

func (db *DB) DeleteFarmaceuta(id string) error {
	result, err := db.conn.Exec("DELETE FROM farmaceuta WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireRows(result)
}

// ==================== Pacientes ====================

func (db *DB) ListarPacientes() ([]models.Paciente, error) {
	rows, err := db.conn.Query(
		"SELECT id, nombre, telefono, fecha_nacimiento FROM paciente ORDER BY id",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pacientes []models.Paciente
	for rows.Next() {
		p, err := scanPaciente(rows)
		if err != nil {
			return nil, err
		}
		pacientes = append(pacientes, p)
	}
	return pacientes, rows.Err()
}

func scanPaciente(rows *sql.Rows) (models.Paciente, error) {
	var p models.Paciente
	var fecha string
	if err := rows.Scan(&p.ID, &p.Nombre, &p.Telefono, &fecha); err != nil {
		return p, err
	}
	t, err := time.Parse(models.FechaFormato, fecha)
	if err != nil {
		return p, err
	}
	p.FechaNacimiento = t
	return p, nil
}

func (db *DB) BuscarPaciente(id string) (*models.Paciente, error) {
	var p models.Paciente
	var fecha string
	err := db.conn.QueryRow(
		"SELECT id, nombre, telefono, fecha_nacimiento FROM paciente WHERE id = ?", id,
	).Scan(&p.ID, &p.Nombre, &p.Telefono, &fecha)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.FechaNacimiento, err = time.Parse(models.FechaFormato, fecha)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (db *DB) InsertPaciente(p models.Paciente) error {
	_, err := db.conn.Exec(
		"INSERT INTO paciente (id, nombre, telefono, fecha_nacimiento) VALUES (?, ?, ?, ?)",
		p.ID, p.Nombre, p.Telefono, p.FechaNacimiento.Format(models.FechaFormato),
	)
	return err
}

func (db *DB) UpdatePaciente(p models.Paciente) error {
	result, err := db.conn.Exec(
		"UPDATE paciente SET nombre = ?, telefono = ?, fecha_nacimiento = ? WHERE id = ?",
		p.Nombre, p.Telefono, p.FechaNacimiento.Format(models.FechaFormato), p.ID,
	)
	if err != nil {
		return err
	}
	return requireRows(result)
}

func (db *DB) DeletePaciente(id string) error {
	result, err := db.conn.Exec("DELETE FROM paciente WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireRows(result)
}

// ==================== Medicamentos ====================

func (db *DB) ListarMedicamentos() ([]models.Medicamento, error) {
	rows, err := db.conn.Query(
		"SELECT codigo, nombre, presentacion FROM medicamento ORDER BY codigo",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var medicamentos []models.Medicamento
	for rows.Next() {
		var m models.Medicamento
		if err := rows.Scan(&m.Codigo, &m.Nombre, &m.Presentacion); err != nil {
			return nil, err
		}
		medicamentos = append(medicamentos, m)
	}
	return medicamentos, rows.Err()
}

func (db *DB) BuscarMedicamento(codigo string) (*models.Medicamento, error) {
	var m models.Medicamento
	err := db.conn.QueryRow(
		"SELECT codigo, nombre, presentacion FROM medicamento WHERE codigo = ?", codigo,
	).Scan(&m.Codigo, &m.Nombre, &m.Presentacion)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (db *DB) InsertMedicamento(m models.Medicamento) error {
	_, err := db.conn.Exec(
		"INSERT INTO medicamento (codigo, nombre, presentacion) VALUES (?, ?, ?)",
		m.Codigo, m.Nombre, m.Presentacion,
	)
	return err
}

func (db *DB) UpdateMedicamento(m models.Medicamento) error {
	result, err := db.conn.Exec(
		"UPDATE medicamento SET nombre = ?, presentacion = ? WHERE codigo = ?",
		m.Nombre, m.Presentacion, m.Codigo,
	)
	if err != nil {
		return err
	}
	return requireRows(result)
}

func (db *DB) DeleteMedicamento(codigo string) error {
	result, err := db.conn.Exec("DELETE FROM medicamento WHERE codigo = ?", codigo)
	if err != nil {
		return err
	}
	return requireRows(result)
}

// ==================== Recetas ====================

func (db *DB) ListarRecetas() ([]models.Receta, error) {
	return db.queryRecetas(
		"SELECT id, paciente_id, medico_id, fecha, fecha_retiro, estado FROM receta ORDER BY fecha, id",
	)
}

func (db *DB) ListarRecetasPorPaciente(pacienteID string) ([]models.Receta, error) {
	return db.queryRecetas(
		"SELECT id, paciente_id, medico_id, fecha, fecha_retiro, estado FROM receta WHERE paciente_id = ? ORDER BY fecha, id",
		pacienteID,
	)
}

func (db *DB) queryRecetas(query string, args ...any) ([]models.Receta, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recetas []models.Receta
	for rows.Next() {
		var r models.Receta
		var fecha, retiro, estado string
		if err := rows.Scan(&r.ID, &r.PacienteID, &r.MedicoID, &fecha, &retiro, &estado); err != nil {
			return nil, err
		}
		if r.Fecha, err = time.Parse(models.FechaFormato, fecha); err != nil {
			return nil, err
		}
		if r.FechaRetiro, err = time.Parse(models.FechaFormato, retiro); err != nil {
			return nil, err
		}
		r.Estado = models.EstadoReceta(estado)
		recetas = append(recetas, r)
	}
	return recetas, rows.Err()
}

func (db *DB) BuscarReceta(id string) (*models.Receta, error) {
	var r models.Receta
	var fecha, retiro, estado string
	err := db.conn.QueryRow(
		"SELECT id, paciente_id, medico_id, fecha, fecha_retiro, estado FROM receta WHERE id = ?", id,
	).Scan(&r.ID, &r.PacienteID, &r.MedicoID, &fecha, &retiro, &estado)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if r.Fecha, err = time.Parse(models.FechaFormato, fecha); err != nil {
		return nil, err
	}
	if r.FechaRetiro, err = time.Parse(models.FechaFormato, retiro); err != nil {
		return nil, err
	}
	r.Estado = models.EstadoReceta(estado)

	r.Detalles, err = db.detallesReceta(id)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (db *DB) detallesReceta(recetaID string) ([]models.DetalleReceta, error) {
	rows, err := db.conn.Query(
		"SELECT medicamento_codigo, cantidad, indicaciones, dias_tratamiento FROM detalle_receta WHERE receta_id = ? ORDER BY id",
		recetaID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var detalles []models.DetalleReceta
	for rows.Next() {
		var d models.DetalleReceta
		if err := rows.Scan(&d.MedicamentoCodigo, &d.Cantidad, &d.Indicaciones, &d.DiasTratamiento); err != nil {
			return nil, err
		}
		detalles = append(detalles, d)
	}
	return detalles, rows.Err()
}

// InsertReceta stores the receta and its detalles in one transaction.
func (db *DB) InsertReceta(r models.Receta) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		"INSERT INTO receta (id, paciente_id, medico_id, fecha, fecha_retiro, estado) VALUES (?, ?, ?, ?, ?, ?)",
		r.ID, r.PacienteID, r.MedicoID,
		r.Fecha.Format(models.FechaFormato),
		r.FechaRetiro.Format(models.FechaFormato),
		string(r.Estado),
	)
	if err != nil {
		return err
	}

	for _, d := range r.Detalles {
		_, err = tx.Exec(
			"INSERT INTO detalle_receta (receta_id, medicamento_codigo, cantidad, indicaciones, dias_tratamiento) VALUES (?, ?, ?, ?, ?)",
			r.ID, d.MedicamentoCodigo, d.Cantidad, d.Indicaciones, d.DiasTratamiento,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (db *DB) UpdateRecetaEstado(id string, estado models.EstadoReceta) error {
	result, err := db.conn.Exec(
		"UPDATE receta SET estado = ? WHERE id = ?", string(estado), id,
	)
	if err != nil {
		return err
	}
	return requireRows(result)
}

// RecetasPorEstado returns the receta count grouped by estado.
func (db *DB) RecetasPorEstado() (map[models.EstadoReceta]int, error) {
	rows, err := db.conn.Query("SELECT estado, COUNT(*) FROM receta GROUP BY estado")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.EstadoReceta]int)
	for rows.Next() {
		var estado string
		var count int
		if err := rows.Scan(&estado, &count); err != nil {
			return nil, err
		}
		counts[models.EstadoReceta(estado)] = count
	}
	return counts, rows.Err()
}

func requireRows(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNoRows
	}
	return nil
}
