// Package export writes stored receipts out as CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/gocarina/gocsv"
	"github.com/sirupsen/logrus"

	"ncastro/comprobantes/internal/models"
)

var log = logrus.New()

// SetLogger sets a custom logger for this package
func SetLogger(logger *logrus.Logger) {
	if logger != nil {
		log = logger
	}
}

// Delimiter used for CSV output.
var Delimiter rune = ','

// row maps a receipt onto the exported CSV columns.
type row struct {
	ID                 int64  `csv:"id"`
	Banco              string `csv:"banco"`
	Monto              string `csv:"monto"`
	FechaTransferencia string `csv:"fecha_transferencia"`
	IDTransferencia    string `csv:"id_transferencia"`
	Detalle            string `csv:"detalle"`
	RemitenteNombre    string `csv:"remitente_nombre"`
	RemitenteCUIT      string `csv:"remitente_cuit"`
	DestinatarioNombre string `csv:"destinatario_nombre"`
	DestinatarioCUIT   string `csv:"destinatario_cuit"`
	ClienteCodigo      string `csv:"cliente_codigo"`
	Conciliado         bool   `csv:"conciliado"`
	FechaConciliacion  string `csv:"fecha_conciliacion"`
	Observaciones      string `csv:"observaciones"`
	Imagen             string `csv:"imagen"`
}

// WriteReceipts writes receipts to a CSV file at path.
func WriteReceipts(receipts []models.Receipt, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating CSV file %s: %w", path, err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			log.WithError(err).Warn("Failed to close CSV file")
		}
	}()

	rows := make([]row, 0, len(receipts))
	for _, r := range receipts {
		fechaConciliacion := ""
		if r.FechaConciliacion != nil {
			fechaConciliacion = r.FechaConciliacion.Format("2006-01-02 15:04:05")
		}
		rows = append(rows, row{
			ID:                 r.ID,
			Banco:              r.Banco,
			Monto:              r.Monto,
			FechaTransferencia: r.FechaTransferencia,
			IDTransferencia:    r.IDTransferencia,
			Detalle:            r.Detalle,
			RemitenteNombre:    r.RemitenteNombre,
			RemitenteCUIT:      r.RemitenteID,
			DestinatarioNombre: r.DestinatarioNombre,
			DestinatarioCUIT:   r.DestinatarioID,
			ClienteCodigo:      r.ClienteCodigo,
			Conciliado:         r.Conciliado,
			FechaConciliacion:  fechaConciliacion,
			Observaciones:      r.ObservacionesConciliacion,
			Imagen:             r.ImagenPath,
		})
	}

	csvWriter := csv.NewWriter(file)
	csvWriter.Comma = Delimiter
	if err := gocsv.MarshalCSV(&rows, gocsv.NewSafeCSVWriter(csvWriter)); err != nil {
		return fmt.Errorf("error writing CSV data: %w", err)
	}

	log.WithFields(logrus.Fields{"file": path, "count": len(rows)}).
		Info("Receipts exported to CSV")
	return nil
}
