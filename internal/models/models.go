// Package models defines the typed records shared across the application:
// stored receipts, bank statement movements and reconciliation results.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Receipt represents one transfer confirmation extracted from a receipt
// image and stored in the database. Raw fields hold whatever the vision
// model returned; the *Norm companions are computed at load time and are
// never written back.
type Receipt struct {
	ID                 int64
	Banco              string
	Monto              string
	FechaTransferencia string
	IDTransferencia    string
	Detalle            string
	ImagenPath         string

	RemitenteNombre string
	RemitenteID     string
	RemitenteCuenta string

	DestinatarioNombre string
	DestinatarioID     string
	DestinatarioCuenta string

	ClienteCodigo string

	Conciliado                bool
	FechaConciliacion         *time.Time
	ObservacionesConciliacion string

	MensajeID int64

	// Normalized companion fields, populated by the receipt loader.
	MontoNorm          decimal.Decimal
	MontoValido        bool
	FechaNorm          time.Time
	FechaValida        bool
	RemitenteIDNorm    string
	DestinatarioIDNorm string
}

// Message is the envelope a receipt arrived in, either a bot message or a
// synthetic one generated during directory ingestion.
type Message struct {
	ID        int64
	MessageID string
	Timestamp time.Time
	Sender    string
	Author    string
	Body      string
}

// BankMovement is one normalized row of the bank statement. Immutable
// after normalization; lives for a single reconciliation run.
type BankMovement struct {
	// Raw values as they appeared in the spreadsheet.
	RawFecha string
	RawCUIT  string
	RawMonto string

	// Canonical values used for matching.
	Fecha time.Time
	CUIT  string
	Monto decimal.Decimal

	// Row is the 1-based row number in the source sheet.
	Row int
}

// MatchResult pairs one receipt with one bank movement. It carries
// snapshots of both sides so the report does not depend on live records.
type MatchResult struct {
	ReceiptID     int64
	BankRow       int
	DateDeltaDays int
	AmountDelta   decimal.Decimal

	Receipt  Receipt
	Movement BankMovement
}

// Outcome is the partition produced by one matching run.
type Outcome struct {
	Matches           []MatchResult
	UnmatchedBank     []BankMovement
	UnmatchedReceipts []Receipt
}

// ImageQuality is the verdict of the receipt image quality classifier.
type ImageQuality string

const (
	QualityHigh    ImageQuality = "alta_calidad"
	QualityLow     ImageQuality = "baja_calidad"
	QualityUnknown ImageQuality = "desconocida"
)
