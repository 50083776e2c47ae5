// Package store provides SQLite persistence for receipts and their
// message envelopes.
package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"ncastro/comprobantes/internal/models"
	"ncastro/comprobantes/internal/recerror"
)

var log = logrus.New()

// SetLogger sets a custom logger for this package
func SetLogger(logger *logrus.Logger) {
	if logger != nil {
		log = logger
	}
}

// Store wraps the SQLite database holding receipts.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the database at path and runs the
// schema migration.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database %s: %w", path, err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.Migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the schema when it does not exist yet.
func (s *Store) Migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS mensajes (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		message_id TEXT NOT NULL UNIQUE,
		timestamp  DATETIME NOT NULL,
		sender     TEXT,
		author     TEXT,
		body       TEXT
	);

	CREATE TABLE IF NOT EXISTS comprobantes (
		id                         INTEGER PRIMARY KEY AUTOINCREMENT,
		banco                      TEXT,
		monto                      TEXT,
		fecha_transferencia        TEXT,
		id_transferencia           TEXT,
		detalle                    TEXT,
		imagen_path                TEXT,
		remitente_nombre           TEXT,
		remitente_id               TEXT,
		remitente_cuenta           TEXT,
		destinatario_nombre        TEXT,
		destinatario_id            TEXT,
		destinatario_cuenta        TEXT,
		cliente_codigo             TEXT,
		conciliado                 INTEGER NOT NULL DEFAULT 0,
		fecha_conciliacion         DATETIME,
		observaciones_conciliacion TEXT,
		mensaje_id                 INTEGER REFERENCES mensajes(id)
	);

	CREATE INDEX IF NOT EXISTS idx_comprobantes_id_transferencia
		ON comprobantes(id_transferencia);
	CREATE INDEX IF NOT EXISTS idx_comprobantes_conciliado
		ON comprobantes(conciliado);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return &recerror.PersistenceError{Op: "migrate", Err: err}
	}
	return nil
}

// SaveReceipts stores a batch of receipts in one transaction, skipping
// duplicates. A receipt with a transfer id is a duplicate when the same
// id+bank+amount combination exists, either already in the database or
// earlier in this batch; two banks may legitimately reuse a transfer id.
// Receipts without a transfer id are always inserted under a generated
// message envelope.
func (s *Store) SaveReceipts(receipts []*models.Receipt) (saved, skipped int, err error) {
	if len(receipts) == 0 {
		return 0, 0, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, 0, &recerror.PersistenceError{Op: "save receipts", Err: err}
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	seen := make(map[string]bool, len(receipts))
	for _, r := range receipts {
		if r.IDTransferencia != "" {
			key := r.IDTransferencia + "\x00" + r.Banco + "\x00" + r.Monto
			if seen[key] {
				log.WithField("id_transferencia", r.IDTransferencia).
					Info("Skipping duplicate within batch")
				skipped++
				continue
			}

			var exists int
			err = tx.QueryRow(
				`SELECT COUNT(1) FROM comprobantes
				 WHERE id_transferencia = ? AND banco = ? AND monto = ?`,
				r.IDTransferencia, r.Banco, r.Monto).Scan(&exists)
			if err != nil {
				return 0, 0, &recerror.PersistenceError{Op: "duplicate check", Err: err}
			}
			if exists > 0 {
				log.WithField("id_transferencia", r.IDTransferencia).
					Info("Skipping receipt already stored")
				skipped++
				continue
			}
			seen[key] = true
		}

		messageID := r.IDTransferencia
		if messageID == "" {
			messageID = uuid.NewString()
		}
		msg := models.Message{MessageID: messageID, Timestamp: time.Now().UTC()}
		if err = s.insertReceipt(tx, msg, r); err != nil {
			return 0, 0, err
		}
		saved++
	}

	if err = tx.Commit(); err != nil {
		return 0, 0, &recerror.PersistenceError{Op: "save receipts", Err: err}
	}

	log.WithFields(logrus.Fields{"saved": saved, "skipped": skipped}).
		Info("Receipt batch stored")
	return saved, skipped, nil
}

// SaveReceiptForMessage stores one receipt under an explicit message
// envelope (the HTTP receiver path). Returns false when the receipt was
// skipped as a duplicate.
func (s *Store) SaveReceiptForMessage(msg models.Message, r *models.Receipt) (stored bool, err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return false, &recerror.PersistenceError{Op: "save receipt", Err: err}
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if r.IDTransferencia != "" {
		var exists int
		err = tx.QueryRow(
			`SELECT COUNT(1) FROM comprobantes
			 WHERE id_transferencia = ? AND banco = ? AND monto = ?`,
			r.IDTransferencia, r.Banco, r.Monto).Scan(&exists)
		if err != nil {
			return false, &recerror.PersistenceError{Op: "duplicate check", Err: err}
		}
		if exists > 0 {
			_ = tx.Rollback()
			err = nil
			return false, nil
		}
	}

	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	if err = s.insertReceipt(tx, msg, r); err != nil {
		return false, err
	}
	if err = tx.Commit(); err != nil {
		return false, &recerror.PersistenceError{Op: "save receipt", Err: err}
	}
	return true, nil
}

// insertReceipt writes the message envelope (get-or-create by message_id)
// and the receipt row inside the caller's transaction.
func (s *Store) insertReceipt(tx *sql.Tx, msg models.Message, r *models.Receipt) error {
	var mensajeID int64
	err := tx.QueryRow(`SELECT id FROM mensajes WHERE message_id = ?`, msg.MessageID).
		Scan(&mensajeID)
	switch {
	case err == sql.ErrNoRows:
		res, err := tx.Exec(
			`INSERT INTO mensajes (message_id, timestamp, sender, author, body)
			 VALUES (?, ?, ?, ?, ?)`,
			msg.MessageID, msg.Timestamp, msg.Sender, msg.Author, msg.Body)
		if err != nil {
			return &recerror.PersistenceError{Op: "insert message", Err: err}
		}
		mensajeID, err = res.LastInsertId()
		if err != nil {
			return &recerror.PersistenceError{Op: "insert message", Err: err}
		}
	case err != nil:
		return &recerror.PersistenceError{Op: "lookup message", Err: err}
	}

	res, err := tx.Exec(
		`INSERT INTO comprobantes
		 (banco, monto, fecha_transferencia, id_transferencia, detalle, imagen_path,
		  remitente_nombre, remitente_id, remitente_cuenta,
		  destinatario_nombre, destinatario_id, destinatario_cuenta,
		  cliente_codigo, conciliado, mensaje_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?)`,
		r.Banco, r.Monto, r.FechaTransferencia, r.IDTransferencia, r.Detalle, r.ImagenPath,
		r.RemitenteNombre, r.RemitenteID, r.RemitenteCuenta,
		r.DestinatarioNombre, r.DestinatarioID, r.DestinatarioCuenta,
		r.ClienteCodigo, mensajeID)
	if err != nil {
		return &recerror.PersistenceError{Op: "insert receipt", Err: err}
	}
	r.ID, err = res.LastInsertId()
	if err != nil {
		return &recerror.PersistenceError{Op: "insert receipt", Err: err}
	}
	r.MensajeID = mensajeID
	return nil
}

// ListReceipts returns every stored receipt, raw fields only. Normalized
// companion fields are filled by the reconciliation loader.
func (s *Store) ListReceipts() ([]models.Receipt, error) {
	rows, err := s.db.Query(
		`SELECT id, banco, monto, fecha_transferencia, id_transferencia, detalle,
		        imagen_path, remitente_nombre, remitente_id, remitente_cuenta,
		        destinatario_nombre, destinatario_id, destinatario_cuenta,
		        cliente_codigo, conciliado, fecha_conciliacion,
		        observaciones_conciliacion, mensaje_id
		 FROM comprobantes ORDER BY id`)
	if err != nil {
		return nil, &recerror.PersistenceError{Op: "list receipts", Err: err}
	}
	defer func() {
		_ = rows.Close()
	}()

	var receipts []models.Receipt
	for rows.Next() {
		var r models.Receipt
		var banco, monto, fecha, idTransf, detalle, imagen sql.NullString
		var remNombre, remID, remCuenta sql.NullString
		var dstNombre, dstID, dstCuenta sql.NullString
		var cliente, observaciones sql.NullString
		var fechaConciliacion sql.NullTime
		var mensajeID sql.NullInt64

		if err := rows.Scan(&r.ID, &banco, &monto, &fecha, &idTransf, &detalle,
			&imagen, &remNombre, &remID, &remCuenta,
			&dstNombre, &dstID, &dstCuenta,
			&cliente, &r.Conciliado, &fechaConciliacion,
			&observaciones, &mensajeID); err != nil {
			return nil, &recerror.PersistenceError{Op: "scan receipt", Err: err}
		}

		r.Banco = banco.String
		r.Monto = monto.String
		r.FechaTransferencia = fecha.String
		r.IDTransferencia = idTransf.String
		r.Detalle = detalle.String
		r.ImagenPath = imagen.String
		r.RemitenteNombre = remNombre.String
		r.RemitenteID = remID.String
		r.RemitenteCuenta = remCuenta.String
		r.DestinatarioNombre = dstNombre.String
		r.DestinatarioID = dstID.String
		r.DestinatarioCuenta = dstCuenta.String
		r.ClienteCodigo = cliente.String
		r.ObservacionesConciliacion = observaciones.String
		if fechaConciliacion.Valid {
			t := fechaConciliacion.Time
			r.FechaConciliacion = &t
		}
		r.MensajeID = mensajeID.Int64

		receipts = append(receipts, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &recerror.PersistenceError{Op: "list receipts", Err: err}
	}
	return receipts, nil
}

// MarkReconciled flags the given receipts as reconciled in a single
// statement inside one transaction. All-or-nothing: any failure rolls the
// whole batch back and no receipt is marked. The flag is monotonic; this
// is the only writer and it only ever sets it.
func (s *Store) MarkReconciled(ids []int64, when time.Time, note string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return &recerror.PersistenceError{Op: "mark reconciled", Err: err}
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, 0, len(ids)+2)
	args = append(args, when, note)
	for _, id := range ids {
		args = append(args, id)
	}

	query := fmt.Sprintf(
		`UPDATE comprobantes
		 SET conciliado = 1, fecha_conciliacion = ?, observaciones_conciliacion = ?
		 WHERE id IN (%s)`, placeholders)

	if _, err := tx.Exec(query, args...); err != nil {
		_ = tx.Rollback()
		return &recerror.PersistenceError{Op: "mark reconciled", Err: err}
	}
	if err := tx.Commit(); err != nil {
		return &recerror.PersistenceError{Op: "mark reconciled", Err: err}
	}

	log.WithField("count", len(ids)).Info("Receipts marked as reconciled")
	return nil
}
