// Package extractor turns receipt images into structured receipts using
// the Gemini vision API.
package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"

	"ncastro/comprobantes/internal/config"
	"ncastro/comprobantes/internal/models"
)

var log = logrus.New()

// SetLogger sets a custom logger for this package
func SetLogger(logger *logrus.Logger) {
	if logger != nil {
		log = logger
	}
}

const prompt = `Analizá esta imagen de un comprobante de transferencia bancaria argentina
y extraé los datos en formato JSON. Respondé ÚNICAMENTE con el JSON, sin texto adicional.

{
  "banco": "nombre del banco o billetera emisora",
  "monto": "importe transferido, solo números y separador decimal",
  "fecha_transferencia": "fecha de la operación tal como figura",
  "id_transferencia": "número de operación, comprobante o referencia",
  "detalle": "concepto o motivo si figura",
  "remitente": {"nombre": "", "cuit": "", "cuenta": ""},
  "destinatario": {"nombre": "", "cuit": "", "cuenta": ""}
}

Si un campo no figura en la imagen, dejalo como cadena vacía. El CUIT/CUIL
puede aparecer con o sin guiones; copialo tal como figura.`

// receiptPayload mirrors the JSON shape the model is asked to produce.
type receiptPayload struct {
	Banco              string `json:"banco"`
	Monto              string `json:"monto"`
	FechaTransferencia string `json:"fecha_transferencia"`
	IDTransferencia    string `json:"id_transferencia"`
	Detalle            string `json:"detalle"`
	Remitente          party  `json:"remitente"`
	Destinatario       party  `json:"destinatario"`
}

type party struct {
	Nombre string `json:"nombre"`
	CUIT   string `json:"cuit"`
	Cuenta string `json:"cuenta"`
}

// Extractor wraps a Gemini generative model.
type Extractor struct {
	client  *genai.Client
	model   *genai.GenerativeModel
	workers int
}

// New creates an Extractor from the AI section of the configuration.
func New(ctx context.Context, cfg *config.Config) (*Extractor, error) {
	if cfg.AI.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.AI.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	workers := cfg.AI.Workers
	if workers < 1 {
		workers = 1
	}
	return &Extractor{
		client:  client,
		model:   client.GenerativeModel(cfg.AI.Model),
		workers: workers,
	}, nil
}

// Close releases the underlying API client.
func (e *Extractor) Close() error {
	return e.client.Close()
}

// ExtractImage sends raw image bytes to the model and parses the reply.
func (e *Extractor) ExtractImage(ctx context.Context, data []byte, format string) (*models.Receipt, error) {
	resp, err := e.model.GenerateContent(ctx, genai.Text(prompt), genai.ImageData(format, data))
	if err != nil {
		return nil, fmt.Errorf("Gemini API error: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil ||
		len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no response from Gemini API")
	}

	responseText := fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0])
	return parseResponse(responseText)
}

// ExtractFile reads an image from disk and extracts its receipt.
func (e *Extractor) ExtractFile(ctx context.Context, path string) (*models.Receipt, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading image %s: %w", path, err)
	}

	r, err := e.ExtractImage(ctx, data, imageFormat(path))
	if err != nil {
		return nil, err
	}
	r.ImagenPath = path
	return r, nil
}

// FileResult pairs an image path with its extraction outcome.
type FileResult struct {
	Path    string
	Receipt *models.Receipt
	Err     error
}

// ExtractDir extracts every image in a directory using a bounded worker
// pool. Results preserve directory order; individual failures are
// reported per file, not as a pool failure.
func (e *Extractor) ExtractDir(ctx context.Context, dir string) ([]FileResult, error) {
	paths, err := listImages(dir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, nil
	}

	type indexedResult struct {
		index  int
		result FileResult
	}

	pathChan := make(chan int, e.workers)
	resultChan := make(chan indexedResult, len(paths))

	var wg sync.WaitGroup
	for w := 0; w < e.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range pathChan {
				r, err := e.ExtractFile(ctx, paths[i])
				resultChan <- indexedResult{i, FileResult{Path: paths[i], Receipt: r, Err: err}}
			}
		}()
	}

	go func() {
		defer close(pathChan)
		for i := range paths {
			select {
			case pathChan <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	ordered := make([]FileResult, len(paths))
	for r := range resultChan {
		ordered[r.index] = r.result
	}
	results := make([]FileResult, 0, len(paths))
	for _, r := range ordered {
		if r.Path != "" {
			results = append(results, r)
		}
	}

	log.WithFields(logrus.Fields{"dir": dir, "images": len(paths), "workers": e.workers}).
		Info("Directory extraction completed")
	return results, nil
}

var imageExtensions = map[string]string{
	".jpg":  "jpeg",
	".jpeg": "jpeg",
	".png":  "png",
	".webp": "webp",
}

func imageFormat(path string) string {
	if format, ok := imageExtensions[strings.ToLower(filepath.Ext(path))]; ok {
		return format
	}
	return "jpeg"
}

func listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("error reading directory %s: %w", dir, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, ok := imageExtensions[strings.ToLower(filepath.Ext(entry.Name()))]; ok {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	return paths, nil
}

// parseResponse decodes the model reply into a receipt. Models often wrap
// JSON in a markdown code fence even when told not to.
func parseResponse(text string) (*models.Receipt, error) {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimPrefix(cleaned, "```")
		if idx := strings.LastIndex(cleaned, "```"); idx >= 0 {
			cleaned = cleaned[:idx]
		}
		cleaned = strings.TrimSpace(cleaned)
	}

	var payload receiptPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, fmt.Errorf("error parsing model response as JSON: %w", err)
	}

	return &models.Receipt{
		Banco:              strings.TrimSpace(payload.Banco),
		Monto:              cleanAmount(payload.Monto),
		FechaTransferencia: strings.TrimSpace(payload.FechaTransferencia),
		IDTransferencia:    strings.TrimSpace(payload.IDTransferencia),
		Detalle:            strings.TrimSpace(payload.Detalle),
		RemitenteNombre:    strings.TrimSpace(payload.Remitente.Nombre),
		RemitenteID:        strings.TrimSpace(payload.Remitente.CUIT),
		RemitenteCuenta:    strings.TrimSpace(payload.Remitente.Cuenta),
		DestinatarioNombre: strings.TrimSpace(payload.Destinatario.Nombre),
		DestinatarioID:     strings.TrimSpace(payload.Destinatario.CUIT),
		DestinatarioCuenta: strings.TrimSpace(payload.Destinatario.Cuenta),
	}, nil
}

// cleanAmount converts a model-reported amount to a plain decimal-point
// string. Receipts mix the Argentine convention (1.234,56) with the
// plain one (1234.56), so the separators are disambiguated by position.
func cleanAmount(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return ""
	}

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0:
		// Both present: the rightmost separator is the decimal one.
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		// Comma only: decimal separator in the local convention.
		if strings.Count(s, ",") > 1 {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	case lastDot >= 0:
		// Dot only: a lone dot followed by exactly three digits at the
		// end is a thousands separator (1.000), otherwise decimal.
		if strings.Count(s, ".") > 1 {
			s = strings.ReplaceAll(s, ".", "")
		} else if len(s)-lastDot-1 == 3 {
			s = strings.ReplaceAll(s, ".", "")
		}
	}
	return s
}
