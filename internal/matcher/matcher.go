// Package matcher pairs normalized bank movements with stored receipts.
//
// The algorithm is greedy and order-sensitive: bank movements are scanned
// in input order and each one takes the first eligible receipt, also in
// input order. There is no global best-fit assignment; first eligible
// wins. That keeps a daily batch run at O(bank x receipts) with no
// backtracking, which is the deliberate trade-off for this volume.
package matcher

import (
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"ncastro/comprobantes/internal/models"
	"ncastro/comprobantes/internal/normalize"
)

var log = logrus.New()

// SetLogger sets a custom logger for this package
func SetLogger(logger *logrus.Logger) {
	if logger != nil {
		log = logger
	}
}

// Config holds the tolerance windows for a matching run.
type Config struct {
	// DateToleranceDays is the maximum allowed difference in calendar
	// days between receipt and bank movement dates.
	DateToleranceDays int
	// AmountTolerance is the maximum allowed absolute difference between
	// the two amounts, in currency units.
	AmountTolerance decimal.Decimal
}

// Match partitions the inputs into matched pairs and the unmatched
// remainder on each side. Both inputs must be pre-normalized and
// pre-filtered; records reaching this function always carry a valid
// date, tax-id and positive amount.
//
// The sender tax-id is the only hard filter: a receipt is eligible for a
// bank movement only when the canonical sender id equals the canonical
// bank counterpart id. Date and amount are soft filters inside their
// tolerance windows. Each record participates in at most one match.
func Match(movements []models.BankMovement, receipts []models.Receipt, cfg Config) models.Outcome {
	matchedBank := make(map[int]bool, len(movements))
	matchedReceipts := make(map[int]bool, len(receipts))

	var matches []models.MatchResult

	for i, mv := range movements {
		for j, rc := range receipts {
			if matchedReceipts[j] {
				continue
			}
			if rc.RemitenteIDNorm != mv.CUIT {
				continue
			}

			dateDelta := normalize.DayDelta(rc.FechaNorm, mv.Fecha)
			if dateDelta > cfg.DateToleranceDays {
				continue
			}

			amountDelta := rc.MontoNorm.Sub(mv.Monto).Abs()
			if amountDelta.GreaterThan(cfg.AmountTolerance) {
				continue
			}

			matches = append(matches, models.MatchResult{
				ReceiptID:     rc.ID,
				BankRow:       mv.Row,
				DateDeltaDays: dateDelta,
				AmountDelta:   amountDelta,
				Receipt:       rc,
				Movement:      mv,
			})
			matchedBank[i] = true
			matchedReceipts[j] = true
			// A bank movement matches at most one receipt.
			break
		}
	}

	outcome := models.Outcome{Matches: matches}
	for i, mv := range movements {
		if !matchedBank[i] {
			outcome.UnmatchedBank = append(outcome.UnmatchedBank, mv)
		}
	}
	for j, rc := range receipts {
		if !matchedReceipts[j] {
			outcome.UnmatchedReceipts = append(outcome.UnmatchedReceipts, rc)
		}
	}

	log.WithFields(logrus.Fields{
		"matches":            len(outcome.Matches),
		"unmatched_bank":     len(outcome.UnmatchedBank),
		"unmatched_receipts": len(outcome.UnmatchedReceipts),
	}).Info("Matching completed")

	return outcome
}
