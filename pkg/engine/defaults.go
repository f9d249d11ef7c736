package engine

// DefaultTemplates returns the standard five-day close task templates.
func DefaultTemplates() []TaskTemplate {
	return []TaskTemplate{
		// T+1
		{Name: "Record cash receipts and disbursements", Category: "CASH", Day: 1},
		{Name: "Post payroll entries", Category: "PAYROLL", Day: 1},
		{Name: "Run AP accruals", Category: "ACCRUALS", Day: 1},
		{Name: "Run fixed asset depreciation", Category: "DEPRECIATION", Day: 1},
		{Name: "Post prepaid amortization", Category: "AMORTIZATION", Day: 1},
		{Name: "Post intercompany transactions", Category: "INTERCOMPANY", Day: 1},

		// T+2
		{Name: "Complete bank reconciliation", Category: "RECONCILIATION", Day: 2,
			DependsOn: []string{"Record cash receipts and disbursements"}},
		{Name: "Post revenue recognition entries", Category: "REVENUE", Day: 2},
		{Name: "Complete AR subledger reconciliation", Category: "RECONCILIATION", Day: 2,
			DependsOn: []string{"Post revenue recognition entries"}},
		{Name: "Complete AP subledger reconciliation", Category: "RECONCILIATION", Day: 2,
			DependsOn: []string{"Run AP accruals"}},
		{Name: "Post FX revaluation entries", Category: "FX", Day: 2},
		{Name: "Post remaining accrual entries", Category: "ACCRUALS", Day: 2},

		// T+3
		{Name: "Complete all balance sheet reconciliations", Category: "RECONCILIATION", Day: 3,
			DependsOn: []string{
				"Complete bank reconciliation",
				"Complete AR subledger reconciliation",
				"Complete AP subledger reconciliation",
			}},
		{Name: "Complete intercompany reconciliation", Category: "INTERCOMPANY", Day: 3,
			DependsOn: []string{"Post intercompany transactions"}},
		{Name: "Post reconciliation adjustments", Category: "ADJUSTMENTS", Day: 3,
			DependsOn: []string{"Complete all balance sheet reconciliations"}},
		{Name: "Run preliminary trial balance", Category: "REPORTING", Day: 3,
			DependsOn: []string{"Post reconciliation adjustments"}},
		{Name: "Perform preliminary flux analysis", Category: "ANALYSIS", Day: 3,
			DependsOn: []string{"Run preliminary trial balance"}},

		// T+4
		{Name: "Post tax provision entries", Category: "TAX", Day: 4,
			DependsOn: []string{"Run preliminary trial balance"}},
		{Name: "Complete equity roll-forward", Category: "EQUITY", Day: 4},
		{Name: "Generate draft financial statements", Category: "REPORTING", Day: 4,
			DependsOn: []string{"Post tax provision entries", "Complete equity roll-forward"}},
		{Name: "Perform detailed flux analysis", Category: "ANALYSIS", Day: 4,
			DependsOn: []string{"Generate draft financial statements"}},
		{Name: "Management review of financials", Category: "REVIEW", Day: 4,
			DependsOn: []string{"Perform detailed flux analysis"}},

		// T+5
		{Name: "Post final adjustments", Category: "ADJUSTMENTS", Day: 5,
			DependsOn: []string{"Management review of financials"}},
		{Name: "Finalize financial statements", Category: "REPORTING", Day: 5,
			DependsOn: []string{"Post final adjustments"}},
		{Name: "Lock period in system", Category: "CLOSE", Day: 5,
			DependsOn: []string{"Finalize financial statements"}},
		{Name: "Distribute reporting package", Category: "REPORTING", Day: 5,
			DependsOn: []string{"Lock period in system"}},
		{Name: "Conduct close retrospective", Category: "PROCESS", Day: 5,
			DependsOn: []string{"Distribute reporting package"}},
	}
}

// DefaultCatalog builds the catalog of standard close templates.
// It panics if the built-in templates fail validation.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(DefaultTemplates())
	if err != nil {
		panic("engine: invalid default catalog: " + err.Error())
	}
	return c
}
