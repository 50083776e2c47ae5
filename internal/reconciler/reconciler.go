// Package reconciler orchestrates a reconciliation run: load both
// sources, match, persist the outcome and write the report.
package reconciler

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"ncastro/comprobantes/internal/bankstatement"
	"ncastro/comprobantes/internal/config"
	"ncastro/comprobantes/internal/matcher"
	"ncastro/comprobantes/internal/models"
	"ncastro/comprobantes/internal/normalize"
	"ncastro/comprobantes/internal/report"
)

// ReconciledNote is written into every receipt marked by a run.
const ReconciledNote = "Conciliado automáticamente"

var log = logrus.New()

// SetLogger sets a custom logger for this package
func SetLogger(logger *logrus.Logger) {
	if logger != nil {
		log = logger
	}
}

// ReceiptStore is the slice of the persistence layer a run needs.
type ReceiptStore interface {
	ListReceipts() ([]models.Receipt, error)
	MarkReconciled(ids []int64, when time.Time, note string) error
}

// Coordinator runs the reconciliation pipeline. The stages are strictly
// sequential and synchronous: a failure while loading aborts before any
// database mutation, and a failure while persisting aborts before the
// report is written.
type Coordinator struct {
	cfg   *config.Config
	store ReceiptStore

	// Injection points for tests.
	loadBank    func(path string, cfg *config.Config) ([]models.BankMovement, error)
	writeReport func(outcome *models.Outcome, path string) error
	now         func() time.Time
}

// New creates a Coordinator bound to the given configuration and store.
func New(cfg *config.Config, store ReceiptStore) *Coordinator {
	return &Coordinator{
		cfg:         cfg,
		store:       store,
		loadBank:    bankstatement.Load,
		writeReport: report.Write,
		now:         time.Now,
	}
}

// Run executes one reconciliation against the bank statement at bankPath
// and writes the report to reportPath. An empty reportPath gets a
// timestamped default next to the working directory.
func (c *Coordinator) Run(bankPath, reportPath string) (*models.Outcome, error) {
	movements, err := c.loadBank(bankPath, c.cfg)
	if err != nil {
		return nil, err
	}

	receipts, err := c.loadReceipts()
	if err != nil {
		return nil, err
	}

	outcome := matcher.Match(movements, receipts, matcher.Config{
		DateToleranceDays: c.cfg.Tolerances.FechaDias,
		AmountTolerance:   decimal.NewFromFloat(c.cfg.Tolerances.MontoDiferencia),
	})

	if err := c.persist(outcome.Matches); err != nil {
		// Fail fast: no partial report for a run whose state update
		// rolled back.
		return nil, err
	}

	if reportPath == "" {
		reportPath = fmt.Sprintf("reporte_conciliacion_%s.xlsx",
			c.now().Format("20060102_150405"))
	}
	if err := c.writeReport(&outcome, reportPath); err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"conciliados":        len(outcome.Matches),
		"faltantes_en_bd":    len(outcome.UnmatchedBank),
		"faltantes_en_banco": len(outcome.UnmatchedReceipts),
		"reporte":            reportPath,
	}).Info("Reconciliation completed")

	return &outcome, nil
}

// loadReceipts reads every stored receipt and computes the normalized
// companion fields. Receipts that cannot produce a valid matching key are
// dropped with a warning, as are already reconciled ones unless the
// configuration keeps them in the pool.
func (c *Coordinator) loadReceipts() ([]models.Receipt, error) {
	stored, err := c.store.ListReceipts()
	if err != nil {
		return nil, err
	}

	pool := make([]models.Receipt, 0, len(stored))
	for _, r := range stored {
		if r.Conciliado && !c.cfg.Reconciliation.IncludeReconciled {
			continue
		}

		Normalize(&r, c.cfg)

		if r.RemitenteIDNorm == "" {
			log.WithField("id", r.ID).Warn("Dropping receipt without sender tax-id")
			continue
		}
		if !r.FechaValida {
			log.WithFields(logrus.Fields{"id": r.ID, "fecha": r.FechaTransferencia}).
				Warn("Dropping receipt with unparsable date")
			continue
		}
		if !r.MontoValido || !r.MontoNorm.IsPositive() {
			log.WithFields(logrus.Fields{"id": r.ID, "monto": r.Monto}).
				Warn("Dropping receipt with invalid amount")
			continue
		}

		pool = append(pool, r)
	}

	log.WithFields(logrus.Fields{"stored": len(stored), "candidates": len(pool)}).
		Info("Receipts loaded")
	return pool, nil
}

// Normalize fills the normalized companion fields of a receipt using the
// same transforms applied to the bank side. Raw fields are not touched.
func Normalize(r *models.Receipt, cfg *config.Config) {
	r.RemitenteIDNorm = normalize.TaxID(r.RemitenteID)
	r.DestinatarioIDNorm = normalize.TaxID(r.DestinatarioID)
	r.FechaNorm, r.FechaValida = normalize.Date(r.FechaTransferencia, cfg.DataFormats.FechaFormat)
	// Stored amounts were standardized at extraction time to a plain
	// decimal-point format.
	r.MontoNorm, r.MontoValido = normalize.Amount(r.Monto, ".", "")
}

// persist marks every matched receipt as reconciled in one transaction.
// Zero matches is not an error; the report is still produced.
func (c *Coordinator) persist(matches []models.MatchResult) error {
	if len(matches) == 0 {
		log.Info("No matches to persist")
		return nil
	}

	ids := make([]int64, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.ReceiptID)
	}
	return c.store.MarkReconciled(ids, c.now(), ReconciledNote)
}
