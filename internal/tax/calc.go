// Package tax implements the Nigerian taxation engine: bracketed PAYE for the
// 2025 and 2026 regimes, Corporate Income Tax tiers, and Value-Added Tax with
// category exemptions and business input-VAT credit.
package tax

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInvalidInput rejects negative or non-finite amounts.
var ErrInvalidInput = errors.New("tax: invalid input")

// VATRate is the standard Nigerian VAT rate.
const VATRate = 0.075

var exemptCategories = map[string]bool{
	"food":          true,
	"healthcare":    true,
	"education":     true,
	"rent":          true,
	"power":         true,
	"baby_products": true,
}

// ExemptCategories lists the VAT-exempt categories in seed order.
func ExemptCategories() []string {
	return []string{"food", "healthcare", "education", "rent", "power", "baby_products"}
}

type bracket struct {
	width float64 // math.Inf(1) for the open top bracket
	rate  float64
}

var brackets2025 = []bracket{
	{300000, 0.07},
	{300000, 0.11},
	{500000, 0.15},
	{500000, 0.19},
	{math.Inf(1), 0.21},
}

var brackets2026 = []bracket{
	{800000, 0.0},
	{2200000, 0.15},
	{9000000, 0.18},
	{13000000, 0.21},
	{25000000, 0.23},
	{math.Inf(1), 0.25},
}

func applyBrackets(taxable float64, brs []bracket) float64 {
	var due float64
	for _, b := range brs {
		if taxable > b.width {
			due += b.width * b.rate
			taxable -= b.width
		} else {
			due += taxable * b.rate
			break
		}
	}
	return round2(due)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func checkAmounts(amounts ...float64) error {
	for _, a := range amounts {
		if a < 0 || math.IsNaN(a) || math.IsInf(a, 0) {
			return fmt.Errorf("%w: amounts must be non-negative finite numbers", ErrInvalidInput)
		}
	}
	return nil
}

// PAYE computes Pay-As-You-Earn income tax. Years from 2026 onward use the
// 2026 regime (taxable = gross − pension − rent relief); earlier years use the
// 2025 regime (20% relief plus the ₦200,000 consolidated relief allowance,
// rent relief ignored).
func PAYE(year int, gross, pension, rentRelief float64) (float64, string, error) {
	if err := checkAmounts(gross, pension, rentRelief); err != nil {
		return 0, "", err
	}
	if year >= 2026 {
		taxable := math.Max(0, gross-pension-rentRelief)
		due := applyBrackets(taxable, brackets2026)
		return due, "PAYE 2026: 0% up to ₦800,000, 15% next ₦2,200,000, 18% next ₦9,000,000, 21% next ₦13,000,000, 23% next ₦25,000,000, 25% above ₦50,000,000", nil
	}
	relief := (gross - pension) * 0.2
	const cra = 200000
	taxable := math.Max(0, gross-pension-relief-cra)
	due := applyBrackets(taxable, brackets2025)
	return due, "PAYE 2025: 7% up to ₦300,000, 11% next ₦300,000, 15% next ₦500,000, 19% next ₦500,000, 21% above ₦1,600,000, with 20% relief and ₦200,000 CRA", nil
}

// CITResult carries the Corporate Income Tax outcome.
type CITResult struct {
	Tax              float64 `json:"tax"`
	Explanation      string  `json:"explanation"`
	SimplifiedReturn bool    `json:"simplified_return"`
	AuditRequired    bool    `json:"audit_required"`
}

// CIT computes Corporate Income Tax on annual turnover. Through 2025 small
// companies (≤₦25M) pay nothing, medium (≤₦100M) 25%, large 30%. From 2026
// the small-company threshold rises to ₦50M and everything above pays 30%.
func CIT(year int, turnover float64) (CITResult, error) {
	if err := checkAmounts(turnover); err != nil {
		return CITResult{}, err
	}
	if year <= 2025 {
		switch {
		case turnover <= 25000000:
			return CITResult{0, "0% CIT for turnover ≤ ₦25M in 2025, simplified return, no audit", true, false}, nil
		case turnover <= 100000000:
			return CITResult{round2(turnover * 0.25), "25% CIT for turnover ₦25M+ to ₦100M in 2025", false, true}, nil
		default:
			return CITResult{round2(turnover * 0.30), "30% CIT for turnover > ₦100M in 2025", false, true}, nil
		}
	}
	if turnover <= 50000000 {
		return CITResult{0, "0% CIT for turnover ≤ ₦50M, simplified return, no audit", true, false}, nil
	}
	return CITResult{round2(turnover * 0.30), "30% CIT for turnover > ₦50M", false, true}, nil
}

// VAT computes Value-Added Tax on an amount. Exempt categories pay nothing; a
// business reclaims input VAT so its due is also zero. A missing or unknown
// category is non-fatal and yields zero with an explanation.
func VAT(amount float64, category string, isBusiness bool) (float64, string, error) {
	if err := checkAmounts(amount); err != nil {
		return 0, "", err
	}
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" || !knownCategory(category) {
		return 0, "Invalid category: no VAT applied", nil
	}
	if exemptCategories[category] {
		return 0, fmt.Sprintf("%s is VAT-exempt", capitalize(category)), nil
	}
	if isBusiness {
		return 0, "Input VAT reclaimed for business", nil
	}
	return round2(amount * VATRate), "7.5% VAT applied", nil
}

func knownCategory(category string) bool {
	if exemptCategories[category] {
		return true
	}
	switch category {
	case "other", "goods", "services", "business_credit":
		return true
	}
	return false
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Summary combines PAYE, CIT and VAT for the calculator page, including the
// monthly PAYE figure.
type Summary struct {
	Name             string  `json:"name"`
	GrossIncome      float64 `json:"gross_income"`
	Pension          float64 `json:"pension"`
	RentRelief       float64 `json:"rent_relief"`
	MonthlyPAYE      float64 `json:"monthly_paye"`
	AnnualPAYE       float64 `json:"annual_paye"`
	PAYEExplanation  string  `json:"paye_explanation"`
	SMETurnover      float64 `json:"sme_turnover"`
	SMECIT           float64 `json:"sme_cit"`
	CITExplanation   string  `json:"cit_explanation"`
	SimplifiedReturn bool    `json:"simplified_return"`
	AuditRequired    bool    `json:"audit_required"`
	VATAmount        float64 `json:"vat_amount"`
	VATTax           float64 `json:"vat_tax"`
	VATExplanation   string  `json:"vat_explanation"`
}

// Summarize runs all three computations for one filer.
func Summarize(name string, year int, gross, pension, rentRelief, turnover, vatAmount float64, vatCategory string, isBusinessVAT bool) (Summary, error) {
	paye, payeExpl, err := PAYE(year, gross, pension, rentRelief)
	if err != nil {
		return Summary{}, err
	}
	cit, err := CIT(year, turnover)
	if err != nil {
		return Summary{}, err
	}
	vat, vatExpl, err := VAT(vatAmount, vatCategory, isBusinessVAT)
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		Name:             name,
		GrossIncome:      gross,
		Pension:          pension,
		RentRelief:       rentRelief,
		MonthlyPAYE:      round2(paye / 12),
		AnnualPAYE:       paye,
		PAYEExplanation:  payeExpl,
		SMETurnover:      turnover,
		SMECIT:           cit.Tax,
		CITExplanation:   cit.Explanation,
		SimplifiedReturn: cit.SimplifiedReturn,
		AuditRequired:    cit.AuditRequired,
		VATAmount:        vatAmount,
		VATTax:           vat,
		VATExplanation:   vatExpl,
	}, nil
}
