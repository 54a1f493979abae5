package tax

import "time"

// SeedRates returns the canonical published rate rows for both PAYE regimes,
// the CIT tiers and the VAT headline rate.
func SeedRates() []Rate {
	return []Rate{
		{ID: "paye-2025-1", Regime: "paye", Year: 2025, Band: "First ₦300,000", RatePercent: 7, Description: "After 20% relief and ₦200,000 CRA"},
		{ID: "paye-2025-2", Regime: "paye", Year: 2025, Band: "Next ₦300,000", RatePercent: 11, Description: ""},
		{ID: "paye-2025-3", Regime: "paye", Year: 2025, Band: "Next ₦500,000", RatePercent: 15, Description: ""},
		{ID: "paye-2025-4", Regime: "paye", Year: 2025, Band: "Next ₦500,000", RatePercent: 19, Description: ""},
		{ID: "paye-2025-5", Regime: "paye", Year: 2025, Band: "Above ₦1,600,000", RatePercent: 21, Description: ""},

		{ID: "paye-2026-1", Regime: "paye", Year: 2026, Band: "First ₦800,000", RatePercent: 0, Description: "Tax-free band under the 2026 reforms"},
		{ID: "paye-2026-2", Regime: "paye", Year: 2026, Band: "Next ₦2,200,000", RatePercent: 15, Description: ""},
		{ID: "paye-2026-3", Regime: "paye", Year: 2026, Band: "Next ₦9,000,000", RatePercent: 18, Description: ""},
		{ID: "paye-2026-4", Regime: "paye", Year: 2026, Band: "Next ₦13,000,000", RatePercent: 21, Description: ""},
		{ID: "paye-2026-5", Regime: "paye", Year: 2026, Band: "Next ₦25,000,000", RatePercent: 23, Description: ""},
		{ID: "paye-2026-6", Regime: "paye", Year: 2026, Band: "Above ₦50,000,000", RatePercent: 25, Description: ""},

		{ID: "cit-2025-small", Regime: "cit", Year: 2025, Band: "Turnover ≤ ₦25M", RatePercent: 0, Description: "Simplified return, no audited accounts required"},
		{ID: "cit-2025-medium", Regime: "cit", Year: 2025, Band: "Turnover ₦25M to ₦100M", RatePercent: 25, Description: ""},
		{ID: "cit-2025-large", Regime: "cit", Year: 2025, Band: "Turnover > ₦100M", RatePercent: 30, Description: ""},
		{ID: "cit-2026-small", Regime: "cit", Year: 2026, Band: "Turnover ≤ ₦50M", RatePercent: 0, Description: "Small-company exemption raised to ₦50M"},
		{ID: "cit-2026-large", Regime: "cit", Year: 2026, Band: "Turnover > ₦50M", RatePercent: 30, Description: ""},

		{ID: "vat-standard", Regime: "vat", Year: 2025, Band: "Standard rate", RatePercent: 7.5, Description: "Essential categories exempt"},
	}
}

// SeedVATRules returns the per-category treatment table.
func SeedVATRules() []VATRule {
	rules := []VATRule{}
	notes := map[string]string{
		"food":          "Basic food items are VAT-exempt",
		"healthcare":    "Medical services and medicines are VAT-exempt",
		"education":     "Tuition and educational materials are VAT-exempt",
		"rent":          "Residential rent is VAT-exempt",
		"power":         "Electricity is VAT-exempt",
		"baby_products": "Baby products are VAT-exempt",
	}
	for _, c := range ExemptCategories() {
		rules = append(rules, VATRule{Category: c, Exempt: true, RatePercent: 0, Note: notes[c]})
	}
	rules = append(rules,
		VATRule{Category: "goods", Exempt: false, RatePercent: 7.5, Note: "Standard-rated goods"},
		VATRule{Category: "services", Exempt: false, RatePercent: 7.5, Note: "Standard-rated services"},
		VATRule{Category: "other", Exempt: false, RatePercent: 7.5, Note: "Standard rate applies"},
		VATRule{Category: "business_credit", Exempt: false, RatePercent: 7.5, Note: "Registered businesses reclaim input VAT"},
	)
	return rules
}

// SeedPaymentLocations returns the starter set of tax offices.
func SeedPaymentLocations() []PaymentLocation {
	return []PaymentLocation{
		{
			ID:      "nrs-lagos-ikeja",
			Name:    "NRS Ikeja Office",
			Address: "2 Obafemi Awolowo Way, Ikeja",
			City:    "Ikeja",
			State:   "Lagos",
			Phone:   "+2348000000001",
			Hours:   "Mon-Fri 8:00-16:00",
		},
		{
			ID:      "nrs-lagos-island",
			Name:    "NRS Lagos Island Office",
			Address: "17 Broad Street, Lagos Island",
			City:    "Lagos",
			State:   "Lagos",
			Phone:   "+2348000000002",
			Hours:   "Mon-Fri 8:00-16:00",
		},
		{
			ID:      "nrs-abuja-cbd",
			Name:    "NRS Headquarters",
			Address: "Revenue House, 15 Sokode Crescent, Wuse Zone 5",
			City:    "Abuja",
			State:   "FCT",
			Phone:   "+2348000000003",
			Hours:   "Mon-Fri 8:00-16:00",
		},
	}
}

// SeedReminders returns the default filing deadlines.
func SeedReminders() []Reminder {
	return []Reminder{
		{
			ID:      "vat-q-filing",
			Title:   "Quarterly VAT filing",
			Body:    "File VAT returns for the quarter by the 21st of the following month.",
			DueDate: nextQuarterEnd(time.Now().UTC()),
			Regime:  "vat",
		},
		{
			ID:      "paye-annual",
			Title:   "Annual PAYE returns",
			Body:    "Employers must file annual PAYE returns by 31 January.",
			DueDate: nextJanuary31(time.Now().UTC()),
			Regime:  "paye",
		},
	}
}

func nextQuarterEnd(now time.Time) time.Time {
	q := (int(now.Month())-1)/3 + 1
	end := time.Date(now.Year(), time.Month(q*3+1), 0, 0, 0, 0, 0, time.UTC)
	if !end.After(now) {
		return nextQuarterEnd(end.AddDate(0, 0, 1))
	}
	return end
}

func nextJanuary31(now time.Time) time.Time {
	d := time.Date(now.Year(), time.January, 31, 0, 0, 0, 0, time.UTC)
	if !d.After(now) {
		d = d.AddDate(1, 0, 0)
	}
	return d
}
