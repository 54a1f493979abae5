package learning

// SeedCourses returns the canonical catalog. Seeding is insert-if-missing so
// admin edits survive restarts.
func SeedCourses() []Course {
	return []Course{
		{
			ID:            "budgeting_101",
			TitleEn:       "Budgeting Basics",
			TitleHa:       "Tushen Kasafin Kudi",
			DescriptionEn: "Plan your income and expenses with a simple monthly budget.",
			DescriptionHa: "Tsara kudin shiga da kashewa da kasafi mai sauki na wata-wata.",
			Theme:         "personal_finance",
			RolesAllowed:  []string{"all"},
			Modules: []Module{
				{
					ID: "module-1", TitleEn: "Getting Started", TitleHa: "Farawa",
					Lessons: []Lesson{
						{ID: "module-1-lesson-1", TitleEn: "What is a budget?", TitleHa: "Menene kasafi?", ContentEn: "A budget is a plan for your money over a fixed period.", QuizID: "quiz-1-1"},
						{ID: "module-1-lesson-2", TitleEn: "Needs versus wants", TitleHa: "Bukatu da sha'awa", ContentEn: "Separate essential spending from optional spending before allocating."},
					},
				},
			},
		},
		{
			ID:            "savings_basics",
			TitleEn:       "Savings Basics",
			TitleHa:       "Tushen Ajiya",
			DescriptionEn: "Build an emergency fund and make saving automatic.",
			Theme:         "personal_finance",
			RolesAllowed:  []string{"all"},
			Modules: []Module{
				{
					ID: "module-1", TitleEn: "Why Save", TitleHa: "Dalilin Ajiya",
					Lessons: []Lesson{
						{ID: "module-1-lesson-1", TitleEn: "The emergency fund", ContentEn: "Aim for three months of expenses in an account you do not touch.", QuizID: "quiz-savings-1"},
					},
				},
			},
		},
		{
			ID:            "tax_reforms_2025",
			TitleEn:       "Nigeria Tax Reforms 2025",
			TitleHa:       "Sauye-sauyen Haraji na Najeriya 2025",
			DescriptionEn: "What the 2025/2026 tax reform acts change for individuals and small businesses.",
			DescriptionHa: "Abin da dokokin sauye-sauyen haraji na 2025/2026 suka canza ga daidaikun mutane da kananan sana'o'i.",
			Theme:         "taxation",
			RolesAllowed:  []string{"all"},
			Modules: []Module{
				{
					ID: "module-1", TitleEn: "The New Rules", TitleHa: "Sabbin Dokoki",
					Lessons: []Lesson{
						{ID: "module-1-lesson-1", TitleEn: "Your new PAYE bands", ContentEn: "From 2026 the first ₦800,000 of taxable income is tax-free and rent relief replaces the CRA.", QuizID: "quiz-tax-reforms-2025"},
						{ID: "module-1-lesson-2", TitleEn: "Small company relief", ContentEn: "Companies with turnover at or below ₦50M pay no CIT and file a simplified return.", ContentType: ContentPDF, ContentPath: "docs/tax_reforms/small-company-relief.pdf"},
					},
				},
			},
		},
		{
			ID:            "digital_foundations",
			TitleEn:       "Digital Foundations",
			TitleHa:       "Tushen Fasahar Zamani",
			DescriptionEn: "Get comfortable with the digital tools every modern earner needs.",
			Theme:         "digital_skills",
			RolesAllowed:  []string{"all"},
			Modules: []Module{
				{
					ID: "module-1", TitleEn: "First Steps Online", TitleHa: "Matakan Farko a Yanar Gizo",
					Lessons: []Lesson{
						{ID: "module-1-lesson-1", TitleEn: "Staying safe online", ContentEn: "Use unique passwords and never share an OTP with anyone."},
						{ID: "module-1-lesson-2", TitleEn: "Email essentials", ContentEn: "A professional email address is the anchor of your digital identity.", ContentType: ContentVideo, ContentPath: "videos/digital_foundations/email-essentials.mp4"},
					},
				},
				{
					ID: "module-3", TitleEn: "Spreadsheets", TitleHa: "Maƙunsar Bayanai",
					Lessons: []Lesson{
						{ID: "module-3-lesson-1", TitleEn: "Your first ledger sheet", ContentEn: "Track income and expense rows with a running balance column.", QuizID: "quiz-digital-foundations-3-1"},
					},
				},
			},
		},
		{
			ID:            "business_budgeting_101",
			TitleEn:       "Business Budgeting",
			DescriptionEn: "Separate business money from personal money and plan for slow months.",
			RolesAllowed:  []string{"trader", "agent"},
			Modules: []Module{
				{
					ID: "module-1", TitleEn: "Cash Flow First",
					Lessons: []Lesson{
						{ID: "module-1-lesson-1", TitleEn: "Recording daily sales", ContentEn: "Record every sale the day it happens, however small."},
					},
				},
			},
		},
		{
			ID:            "business_compliance_101",
			TitleEn:       "Business Compliance",
			DescriptionEn: "Registration, levies and the filings a small business cannot skip.",
			RolesAllowed:  []string{"trader", "agent"},
			Modules: []Module{
				{
					ID: "module-1", TitleEn: "Staying Registered",
					Lessons: []Lesson{
						{ID: "module-1-lesson-1", TitleEn: "CAC registration", ContentEn: "A registered business name unlocks bank accounts and formal contracts."},
					},
				},
			},
		},
		{
			ID:            "aml_101",
			TitleEn:       "Anti-Money-Laundering Basics",
			DescriptionEn: "Spot and refuse suspicious transactions as an agent.",
			RolesAllowed:  []string{"agent"},
			Modules: []Module{
				{
					ID: "module-1", TitleEn: "Know Your Customer",
					Lessons: []Lesson{
						{ID: "module-1-lesson-1", TitleEn: "Why KYC exists", ContentEn: "Identifying customers protects you and the financial system."},
					},
				},
			},
		},
		{
			ID:            "islamic_finance_101",
			TitleEn:       "Islamic Finance Basics",
			TitleHa:       "Tushen Kudi na Musulunci",
			DescriptionEn: "Riba-free saving, sharing of profit and loss, and halal investing.",
			RolesAllowed:  []string{"all"},
			Modules: []Module{
				{
					ID: "module-1", TitleEn: "Core Principles", TitleHa: "Muhimman Ka'idoji",
					Lessons: []Lesson{
						{ID: "module-1-lesson-1", TitleEn: "What riba means", ContentEn: "Interest-bearing lending is replaced with shared risk and reward.", QuizID: "quiz-islamic-finance-1"},
					},
				},
			},
		},
		{
			ID:            "financial_quiz",
			TitleEn:       "Financial Health Check",
			DescriptionEn: "A short self-assessment of your money habits.",
			RolesAllowed:  []string{"all"},
			Modules: []Module{
				{
					ID: "module-1", TitleEn: "Check Yourself",
					Lessons: []Lesson{
						{ID: "module-1-lesson-1", TitleEn: "Take the reality check", ContentEn: "Answer honestly. There are no wrong answers, only a starting point.", QuizID: "reality_check_quiz"},
					},
				},
			},
		},
	}
}

// SeedQuizzes returns the canonical quiz bank.
func SeedQuizzes() []Quiz {
	return []Quiz{
		{
			ID: "quiz-1-1", CourseID: "budgeting_101", TitleEn: "Budgeting check", PassPercent: 60,
			Questions: []Question{
				{TextEn: "A budget is best described as:", Options: []string{"A record of past spending", "A plan for future money", "A bank statement"}, AnswerEn: "A plan for future money"},
				{TextEn: "Which should be allocated first?", Options: []string{"Wants", "Needs", "Entertainment"}, AnswerEn: "Needs"},
			},
		},
		{
			ID: "quiz-savings-1", CourseID: "savings_basics", TitleEn: "Savings check", PassPercent: 60,
			Questions: []Question{
				{TextEn: "A good emergency fund target is:", Options: []string{"One week of expenses", "Three months of expenses", "Ten years of expenses"}, AnswerEn: "Three months of expenses"},
			},
		},
		{
			ID: "quiz-tax-reforms-2025", CourseID: "tax_reforms_2025", TitleEn: "Tax reforms check", PassPercent: 60,
			Questions: []Question{
				{TextEn: "From 2026, how much taxable income is tax-free?", Options: []string{"₦300,000", "₦800,000", "Nothing is tax-free"}, AnswerEn: "₦800,000"},
				{TextEn: "From 2026 the small-company CIT exemption covers turnover up to:", Options: []string{"₦25M", "₦50M", "₦100M"}, AnswerEn: "₦50M"},
				{TextEn: "Which relief replaces the CRA from 2026?", Options: []string{"Rent relief", "Transport relief", "None"}, AnswerEn: "Rent relief"},
			},
		},
		{
			ID: "quiz-digital-foundations-3-1", CourseID: "digital_foundations", TitleEn: "Spreadsheet check", PassPercent: 60,
			Questions: []Question{
				{TextEn: "A running balance column shows:", Options: []string{"Total after each entry", "Only the final total", "Dates"}, AnswerEn: "Total after each entry"},
			},
		},
		{
			ID: "quiz-islamic-finance-1", CourseID: "islamic_finance_101", TitleEn: "Islamic finance check", PassPercent: 60,
			Questions: []Question{
				{TextEn: "Riba refers to:", Options: []string{"Charity", "Interest", "Profit sharing"}, AnswerEn: "Interest"},
			},
		},
		{
			// The reality check has no pass mark: every submission records a
			// score and earns the badge.
			ID: "reality_check_quiz", TitleEn: "Financial Reality Check", PassPercent: 0,
			Questions: []Question{
				{TextEn: "Do you track your spending every week?", Options: []string{"Yes", "No"}, AnswerEn: "Yes"},
				{TextEn: "Do you save before you spend?", Options: []string{"Yes", "No"}, AnswerEn: "Yes"},
				{TextEn: "Could you cover an unexpected ₦50,000 expense today?", Options: []string{"Yes", "No"}, AnswerEn: "Yes"},
				{TextEn: "Do you know your monthly income figure?", Options: []string{"Yes", "No"}, AnswerEn: "Yes"},
				{TextEn: "Do you have a written financial goal?", Options: []string{"Yes", "No"}, AnswerEn: "Yes"},
			},
		},
	}
}
