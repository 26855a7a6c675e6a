// Package extraction pulls a fixed schema of shipment fields out of a
// document with a JSON-constrained LLM call.
package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/fabfab/doc-intel/llm"
)

// ErrParse is returned when the model could not produce valid JSON even
// after the corrective retry. The accompanying Result is null-filled with
// zero confidence; callers should treat the error as recovered.
var ErrParse = errors.New("extraction response was not valid JSON")

// maxPromptChars bounds the document text included in the prompt. Longer
// documents lose their tail; a known cost/latency trade-off.
const maxPromptChars = 4000

const fieldCount = 11

// Result maps the fixed shipment schema; nil means the model reported the
// field as absent. Confidence is the fraction of fields found.
type Result struct {
	ShipmentID       *string `json:"shipment_id"`
	Shipper          *string `json:"shipper"`
	Consignee        *string `json:"consignee"`
	PickupDatetime   *string `json:"pickup_datetime"`
	DeliveryDatetime *string `json:"delivery_datetime"`
	EquipmentType    *string `json:"equipment_type"`
	Mode             *string `json:"mode"`
	Rate             *string `json:"rate"`
	Currency         *string `json:"currency"`
	Weight           *string `json:"weight"`
	CarrierName      *string `json:"carrier_name"`

	Confidence float64 `json:"confidence"`
}

func (r *Result) fields() []*string {
	return []*string{
		r.ShipmentID,
		r.Shipper,
		r.Consignee,
		r.PickupDatetime,
		r.DeliveryDatetime,
		r.EquipmentType,
		r.Mode,
		r.Rate,
		r.Currency,
		r.Weight,
		r.CarrierName,
	}
}

type Extractor struct {
	llm    llm.Client
	logger *log.Logger
}

func NewExtractor(llmClient llm.Client, logger *log.Logger) *Extractor {
	if logger == nil {
		logger = log.Default()
	}
	return &Extractor{llm: llmClient, logger: logger}
}

// Extract asks the model for the shipment schema over the first
// maxPromptChars of fullText. An invalid JSON response is retried once with
// a corrective instruction; a second failure yields a null-filled Result and
// ErrParse.
func (e *Extractor) Extract(ctx context.Context, fullText string) (Result, error) {
	if e.llm == nil {
		return Result{}, fmt.Errorf("llm client is not configured")
	}

	prompt := buildExtractionPrompt(truncate(fullText, maxPromptChars))

	raw, err := e.generate(ctx, prompt)
	if err != nil {
		return Result{}, err
	}

	result, parseErr := parseResult(raw)
	if parseErr == nil {
		return result, nil
	}

	e.logger.Printf("extraction parse failed, retrying once: %v", parseErr)

	raw, err = e.generate(ctx, prompt+"\n\nThe previous output was not valid JSON. Return ONLY a valid JSON object, nothing else.")
	if err != nil {
		return Result{}, err
	}

	result, parseErr = parseResult(raw)
	if parseErr != nil {
		e.logger.Printf("extraction parse failed after retry: %v", parseErr)
		return Result{}, fmt.Errorf("%w: %v", ErrParse, parseErr)
	}
	return result, nil
}

func (e *Extractor) generate(ctx context.Context, prompt string) (string, error) {
	raw, err := e.llm.GenerateJSON(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}})
	if err != nil {
		return "", fmt.Errorf("generate extraction: %w", err)
	}
	return raw, nil
}

func buildExtractionPrompt(text string) string {
	var sb strings.Builder
	sb.WriteString("Extract the following logistics information from the document.\n")
	sb.WriteString("Return ONLY a JSON object with these exact fields. Use null if information is not found.\n\n")
	sb.WriteString("Fields to extract:\n")
	sb.WriteString("- shipment_id: string\n")
	sb.WriteString("- shipper: string (company name)\n")
	sb.WriteString("- consignee: string (company name)\n")
	sb.WriteString("- pickup_datetime: string (ISO format if possible)\n")
	sb.WriteString("- delivery_datetime: string (ISO format if possible)\n")
	sb.WriteString("- equipment_type: string (e.g., \"53' Dry Van\", \"Flatbed\")\n")
	sb.WriteString("- mode: string (e.g., \"Truckload\", \"LTL\")\n")
	sb.WriteString("- rate: string (numeric value)\n")
	sb.WriteString("- currency: string (e.g., \"USD\")\n")
	sb.WriteString("- weight: string (with units)\n")
	sb.WriteString("- carrier_name: string\n\n")
	sb.WriteString("Document:\n")
	sb.WriteString(text)
	sb.WriteString("\n\nReturn ONLY valid JSON, no other text.")
	return sb.String()
}

// parseResult tolerates prose around the JSON object by cutting from the
// first '{' to the last '}'.
func parseResult(raw string) (Result, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return Result{}, fmt.Errorf("no JSON object in response")
	}

	// Shadow type without Confidence so the model cannot inject its own.
	var payload struct {
		ShipmentID       *string `json:"shipment_id"`
		Shipper          *string `json:"shipper"`
		Consignee        *string `json:"consignee"`
		PickupDatetime   *string `json:"pickup_datetime"`
		DeliveryDatetime *string `json:"delivery_datetime"`
		EquipmentType    *string `json:"equipment_type"`
		Mode             *string `json:"mode"`
		Rate             *string `json:"rate"`
		Currency         *string `json:"currency"`
		Weight           *string `json:"weight"`
		CarrierName      *string `json:"carrier_name"`
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &payload); err != nil {
		return Result{}, fmt.Errorf("unmarshal extraction response: %w", err)
	}

	result := Result{
		ShipmentID:       payload.ShipmentID,
		Shipper:          payload.Shipper,
		Consignee:        payload.Consignee,
		PickupDatetime:   payload.PickupDatetime,
		DeliveryDatetime: payload.DeliveryDatetime,
		EquipmentType:    payload.EquipmentType,
		Mode:             payload.Mode,
		Rate:             payload.Rate,
		Currency:         payload.Currency,
		Weight:           payload.Weight,
		CarrierName:      payload.CarrierName,
	}

	found := 0
	for _, field := range result.fields() {
		if field != nil {
			found++
		}
	}
	result.Confidence = float64(found) / fieldCount

	return result, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	// Back up to a rune boundary so the cut never emits a partial rune.
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
