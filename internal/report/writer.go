// Package report renders a reconciliation outcome into a multi-sheet
// spreadsheet for manual inspection.
package report

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"ncastro/comprobantes/internal/models"
)

var log = logrus.New()

// SetLogger sets a custom logger for this package
func SetLogger(logger *logrus.Logger) {
	if logger != nil {
		log = logger
	}
}

// Sheet names. Each sheet is written only when its partition is
// non-empty.
const (
	SheetMatched           = "Conciliados"
	SheetMissingInDB       = "Faltantes en BD"
	SheetMissingInBank     = "Faltantes en Banco"
	placeholderSheet       = "Sheet1"
	placeholderSheetRename = "Resumen"
)

// Write renders the outcome into an xlsx file at path. The report shows
// raw source values alongside the computed deltas so a reviewer can see
// exactly what was compared.
func Write(outcome *models.Outcome, path string) error {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			log.WithError(err).Warn("Failed to close report workbook")
		}
	}()

	sheets := 0

	if len(outcome.Matches) > 0 {
		if err := writeMatched(f, outcome.Matches); err != nil {
			return err
		}
		sheets++
	}
	if len(outcome.UnmatchedBank) > 0 {
		if err := writeMissingInDB(f, outcome.UnmatchedBank); err != nil {
			return err
		}
		sheets++
	}
	if len(outcome.UnmatchedReceipts) > 0 {
		if err := writeMissingInBank(f, outcome.UnmatchedReceipts); err != nil {
			return err
		}
		sheets++
	}

	if sheets > 0 {
		if err := f.DeleteSheet(placeholderSheet); err != nil {
			return fmt.Errorf("error removing placeholder sheet: %w", err)
		}
	} else {
		// A workbook needs at least one sheet even when every partition
		// is empty.
		if err := f.SetSheetName(placeholderSheet, placeholderSheetRename); err != nil {
			return fmt.Errorf("error renaming placeholder sheet: %w", err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("error saving report to %s: %w", path, err)
	}

	log.WithFields(logrus.Fields{"file": path, "sheets": sheets}).
		Info("Reconciliation report written")
	return nil
}

func writeMatched(f *excelize.File, matches []models.MatchResult) error {
	if _, err := f.NewSheet(SheetMatched); err != nil {
		return fmt.Errorf("error creating sheet %s: %w", SheetMatched, err)
	}

	header := []interface{}{
		"ID Comprobante", "Cliente Código", "Banco",
		"Fecha Comprobante", "Fecha Banco", "Diferencia Días",
		"Monto Comprobante", "Monto Banco", "Diferencia Monto", "Imagen",
	}
	if err := setRow(f, SheetMatched, 1, header); err != nil {
		return err
	}

	for i, m := range matches {
		row := []interface{}{
			m.ReceiptID,
			m.Receipt.ClienteCodigo,
			m.Receipt.Banco,
			m.Receipt.FechaTransferencia,
			m.Movement.RawFecha,
			m.DateDeltaDays,
			m.Receipt.Monto,
			m.Movement.RawMonto,
			m.AmountDelta.InexactFloat64(),
			m.Receipt.ImagenPath,
		}
		if err := setRow(f, SheetMatched, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeMissingInDB(f *excelize.File, movements []models.BankMovement) error {
	if _, err := f.NewSheet(SheetMissingInDB); err != nil {
		return fmt.Errorf("error creating sheet %s: %w", SheetMissingInDB, err)
	}

	if err := setRow(f, SheetMissingInDB, 1, []interface{}{"Fecha", "CUIT", "Monto"}); err != nil {
		return err
	}
	for i, mv := range movements {
		row := []interface{}{mv.RawFecha, mv.RawCUIT, mv.RawMonto}
		if err := setRow(f, SheetMissingInDB, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeMissingInBank(f *excelize.File, receipts []models.Receipt) error {
	if _, err := f.NewSheet(SheetMissingInBank); err != nil {
		return fmt.Errorf("error creating sheet %s: %w", SheetMissingInBank, err)
	}

	header := []interface{}{
		"ID", "Cliente Código", "Banco", "Fecha Transferencia", "Monto", "Imagen",
	}
	if err := setRow(f, SheetMissingInBank, 1, header); err != nil {
		return err
	}
	for i, r := range receipts {
		row := []interface{}{
			r.ID, r.ClienteCodigo, r.Banco, r.FechaTransferencia, r.Monto, r.ImagenPath,
		}
		if err := setRow(f, SheetMissingInBank, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, rowNum int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return fmt.Errorf("error computing cell for row %d: %w", rowNum, err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("error writing row %d of %s: %w", rowNum, sheet, err)
	}
	return nil
}
