package reconciler

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ncastro/comprobantes/internal/config"
	"ncastro/comprobantes/internal/models"
)

type fakeStore struct {
	receipts []models.Receipt
	listErr  error
	markErr  error

	markedIDs  []int64
	markedWhen time.Time
	markedNote string
}

func (f *fakeStore) ListReceipts() ([]models.Receipt, error) {
	return f.receipts, f.listErr
}

func (f *fakeStore) MarkReconciled(ids []int64, when time.Time, note string) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.markedIDs = append(f.markedIDs, ids...)
	f.markedWhen = when
	f.markedNote = note
	return nil
}

func testReceipt(id int64, cuit, fecha, monto string) models.Receipt {
	return models.Receipt{
		ID:                 id,
		Banco:              "Banco Galicia",
		Monto:              monto,
		FechaTransferencia: fecha,
		RemitenteID:        cuit,
	}
}

func testMovement(row int, cuit string, fecha time.Time, monto string) models.BankMovement {
	return models.BankMovement{
		Row:      row,
		RawCUIT:  cuit,
		CUIT:     cuit,
		Fecha:    fecha,
		Monto:    decimal.RequireFromString(monto),
		RawMonto: monto,
	}
}

func newTestCoordinator(store *fakeStore, movements []models.BankMovement) (*Coordinator, *[]string) {
	cfg := config.Default()
	c := New(cfg, store)
	c.loadBank = func(path string, cfg *config.Config) ([]models.BankMovement, error) {
		return movements, nil
	}
	var reports []string
	c.writeReport = func(outcome *models.Outcome, path string) error {
		reports = append(reports, path)
		return nil
	}
	c.now = func() time.Time {
		return time.Date(2024, time.March, 5, 12, 0, 0, 0, time.UTC)
	}
	return c, &reports
}

func TestRunMatchesAndPersists(t *testing.T) {
	store := &fakeStore{receipts: []models.Receipt{
		testReceipt(1, "20-12345678-9", "2024/03/01", "1000.50"),
		testReceipt(2, "27-00000000-1", "2024/03/02", "500.00"),
	}}
	movements := []models.BankMovement{
		testMovement(2, "20123456789", time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), "1000.50"),
	}

	c, reports := newTestCoordinator(store, movements)
	outcome, err := c.Run("banco.xlsx", "reporte.xlsx")
	require.NoError(t, err)

	require.Len(t, outcome.Matches, 1)
	assert.Equal(t, int64(1), outcome.Matches[0].ReceiptID)
	assert.Len(t, outcome.UnmatchedReceipts, 1)
	assert.Empty(t, outcome.UnmatchedBank)

	assert.Equal(t, []int64{1}, store.markedIDs)
	assert.Equal(t, ReconciledNote, store.markedNote)
	assert.Equal(t, []string{"reporte.xlsx"}, *reports)
}

func TestRunDefaultReportPath(t *testing.T) {
	store := &fakeStore{}
	c, reports := newTestCoordinator(store, nil)

	_, err := c.Run("banco.xlsx", "")
	require.NoError(t, err)
	require.Len(t, *reports, 1)
	assert.Equal(t, "reporte_conciliacion_20240305_120000.xlsx", (*reports)[0])
}

func TestRunBankLoadFailureAbortsBeforeMutation(t *testing.T) {
	store := &fakeStore{receipts: []models.Receipt{
		testReceipt(1, "20-12345678-9", "2024/03/01", "1000.50"),
	}}
	c, reports := newTestCoordinator(store, nil)
	c.loadBank = func(path string, cfg *config.Config) ([]models.BankMovement, error) {
		return nil, errors.New("file corrupt")
	}

	_, err := c.Run("banco.xlsx", "reporte.xlsx")
	require.Error(t, err)
	assert.Empty(t, store.markedIDs)
	assert.Empty(t, *reports)
}

func TestRunPersistFailureSkipsReport(t *testing.T) {
	store := &fakeStore{
		receipts: []models.Receipt{testReceipt(1, "20-12345678-9", "2024/03/01", "1000.50")},
		markErr:  errors.New("database locked"),
	}
	movements := []models.BankMovement{
		testMovement(2, "20123456789", time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), "1000.50"),
	}

	c, reports := newTestCoordinator(store, movements)
	_, err := c.Run("banco.xlsx", "reporte.xlsx")
	require.Error(t, err)
	assert.Empty(t, *reports)
}

func TestRunZeroMatchesStillReports(t *testing.T) {
	store := &fakeStore{
		receipts: []models.Receipt{testReceipt(1, "20-12345678-9", "2024/03/01", "1000.50")},
		markErr:  errors.New("must not be called"),
	}
	movements := []models.BankMovement{
		testMovement(2, "27999999990", time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), "1000.50"),
	}

	c, reports := newTestCoordinator(store, movements)
	outcome, err := c.Run("banco.xlsx", "reporte.xlsx")
	require.NoError(t, err)
	assert.Empty(t, outcome.Matches)
	assert.Len(t, *reports, 1)
}

func TestLoadReceiptsFiltersInvalidAndReconciled(t *testing.T) {
	conciliado := testReceipt(5, "20-12345678-9", "2024/03/01", "1000.50")
	conciliado.Conciliado = true

	store := &fakeStore{receipts: []models.Receipt{
		testReceipt(1, "20-12345678-9", "2024/03/01", "1000.50"),
		testReceipt(2, "", "2024/03/01", "1000.50"),          // no sender id
		testReceipt(3, "20-12345678-9", "not a date", "10"),  // bad date
		testReceipt(4, "20-12345678-9", "2024/03/01", "abc"), // bad amount
		conciliado,
	}}

	c, _ := newTestCoordinator(store, nil)
	pool, err := c.loadReceipts()
	require.NoError(t, err)
	require.Len(t, pool, 1)
	assert.Equal(t, int64(1), pool[0].ID)
	assert.Equal(t, "20123456789", pool[0].RemitenteIDNorm)
	assert.True(t, pool[0].MontoValido)
	assert.True(t, pool[0].FechaValida)
}

func TestLoadReceiptsIncludeReconciled(t *testing.T) {
	conciliado := testReceipt(5, "20-12345678-9", "2024/03/01", "1000.50")
	conciliado.Conciliado = true

	store := &fakeStore{receipts: []models.Receipt{conciliado}}
	c, _ := newTestCoordinator(store, nil)
	c.cfg.Reconciliation.IncludeReconciled = true

	pool, err := c.loadReceipts()
	require.NoError(t, err)
	assert.Len(t, pool, 1)
}
