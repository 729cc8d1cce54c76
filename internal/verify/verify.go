package verify

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strconv"

	"github.com/fazendarp/fazendabot/internal/ocr"
	"github.com/shopspring/decimal"
)

// inventoryFraction is the share of the screenshot width holding the
// claimant's personal inventory.
const inventoryFraction = 0.4

var countPattern = regexp.MustCompile(`(\d+)\s*[xX]`)

// Verifier runs the full evidence check for a claim. Both collaborators are
// optional; with either missing the outcome degrades to "cannot verify" and
// the receipt goes to mandatory human review.
type Verifier struct {
	OCR    ocr.Capability
	Images ImageCapability
	Icons  *IconMatcher
	Log    *slog.Logger
}

// AnimalOutcome carries the parsed screenshot values for an animal claim.
type AnimalOutcome struct {
	Valid         bool
	CannotVerify  bool
	Quantity      int64
	FarmIncome    decimal.Decimal
	ExtractedText string
	Message       string
}

// PlantOutcome merges the text validation with the independent icon check.
type PlantOutcome struct {
	Valid            bool
	CannotVerify     bool
	UsedFallback     bool
	ExtractedText    string
	DetectedQuantity int64
	QuantityMatch    bool
	AutoAccept       bool
	Message          string
}

// Animal OCRs the screenshot and extracts delivery count and farm income.
func (v *Verifier) Animal(ctx context.Context, screenshotPath string) AnimalOutcome {
	text, ok := v.extractText(ctx, screenshotPath)
	if !ok {
		return AnimalOutcome{
			CannotVerify: true,
			Message:      "não foi possível verificar a imagem automaticamente; aguardando revisão manual",
		}
	}

	fields := ExtractAnimal(text)
	return AnimalOutcome{
		Valid:         fields.Valid,
		Quantity:      fields.Quantity,
		FarmIncome:    fields.FarmIncome,
		ExtractedText: text,
		Message:       fields.Message,
	}
}

// Plant validates the claimed quantity against the OCR text, then runs the
// icon cross-check over the inventory region. An icon mismatch never rejects
// the claim; it only forces human review.
func (v *Verifier) Plant(ctx context.Context, screenshotPath, crop string, claimed int64) PlantOutcome {
	text, ok := v.extractText(ctx, screenshotPath)
	if !ok {
		return PlantOutcome{
			CannotVerify: true,
			Message:      "não foi possível verificar a imagem automaticamente; aguardando revisão manual",
		}
	}

	fields := ValidatePlant(text, crop, claimed)
	out := PlantOutcome{
		Valid:         fields.Valid,
		UsedFallback:  fields.UsedFallback,
		ExtractedText: text,
		Message:       fields.Message,
	}
	if !fields.Valid {
		return out
	}

	detected, matched := v.iconCheck(ctx, screenshotPath, crop, claimed)
	out.DetectedQuantity = detected
	out.QuantityMatch = matched
	// The trust-gap fallback never auto-accepts, whatever the icons say.
	out.AutoAccept = matched && !fields.UsedFallback
	if out.Message == "" {
		if matched {
			out.Message = fmt.Sprintf("verificado: %dx %s confirmado no inventário", detected, crop)
		} else {
			out.Message = "quantidade não confirmada pela verificação de ícones; revisão manual necessária"
		}
	}
	return out
}

// iconCheck crops the inventory region, matches it against the crop icon
// templates and runs a narrow OCR pass for an "Nx" count. Returns the
// detected quantity and whether it equals the claim.
func (v *Verifier) iconCheck(ctx context.Context, screenshotPath, crop string, claimed int64) (int64, bool) {
	if !v.Images.Available() || v.Icons.Empty() {
		return 0, false
	}

	region, err := v.Images.CropLeft(screenshotPath, inventoryFraction)
	if err != nil {
		v.logWarn("icon check: crop failed", "error", err)
		return 0, false
	}

	detectedCrop, confidence := v.Icons.BestMatch(region)
	if confidence < iconMatchThreshold || detectedCrop != crop {
		v.logWarn("icon check: no confident template match",
			"crop", crop, "best", detectedCrop, "confidence", confidence)
		return 0, false
	}

	regionPath, err := v.Images.SaveRegion(region, "inventory")
	if err != nil {
		return 0, false
	}
	defer os.Remove(regionPath)

	regionText, err := v.OCR.ExtractText(ctx, regionPath)
	if err != nil {
		v.logWarn("icon check: region ocr failed", "error", err)
		return 0, false
	}

	m := countPattern.FindStringSubmatch(regionText)
	if m == nil {
		return 0, false
	}
	detected, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return detected, detected == claimed
}

// extractText preprocesses the screenshot when the image capability is
// present and runs the OCR engine over it.
func (v *Verifier) extractText(ctx context.Context, screenshotPath string) (string, bool) {
	if !v.OCR.Available() {
		return "", false
	}

	path := screenshotPath
	if v.Images.Available() {
		prep, err := v.Images.Preprocess(screenshotPath)
		if err != nil {
			v.logWarn("preprocess failed, using original image", "error", err)
		} else {
			path = prep
			defer os.Remove(prep)
		}
	}

	text, err := v.OCR.ExtractText(ctx, path)
	if err != nil {
		v.logWarn("ocr failed", "error", err)
		return "", false
	}
	return text, true
}

func (v *Verifier) logWarn(msg string, args ...interface{}) {
	if v.Log != nil {
		v.Log.Warn(msg, args...)
	}
}
