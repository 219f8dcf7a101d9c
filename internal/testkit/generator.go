package testkit

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"spendlens/domain/contract"
	"spendlens/domain/table"
)

// GeneratorConfig sizes the synthetic IT estate
type GeneratorConfig struct {
	VendorCount  int       `json:"vendor_count"`
	ProjectCount int       `json:"project_count"`
	SystemCount  int       `json:"system_count"`
	GrantCount   int       `json:"grant_count"`
	Departments  []string  `json:"departments"`
	Seed         int64     `json:"seed"`
	Now          time.Time `json:"now"`
}

// DefaultGeneratorConfig returns defaults shaped like a small college:
// two dozen vendors, a modest project portfolio, a handful of grants.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		VendorCount:  24,
		ProjectCount: 12,
		SystemCount:  10,
		GrantCount:   6,
		Departments:  []string{"IT", "Finance", "Registrar", "Admissions", "Facilities", "Library", "Advancement"},
		Seed:         42,
		Now:          time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
	}
}

// Generator produces registry-shaped tables from a seeded source.
// Same config, same seed, same bytes.
type Generator struct {
	config GeneratorConfig
	rng    *rand.Rand
}

// NewGenerator creates a new synthetic data generator
func NewGenerator(config GeneratorConfig) *Generator {
	if config.Now.IsZero() {
		config.Now = time.Now().UTC()
	}
	if len(config.Departments) == 0 {
		config.Departments = DefaultGeneratorConfig().Departments
	}
	return &Generator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// Dataset bundles every generated table, one per registry metric.
type Dataset struct {
	Vendors      *table.Table
	Contracts    *table.Table
	Projects     *table.Table
	Systems      *table.Table
	Satisfaction *table.Table
	Staff        *table.Table
	Budget       *table.Table
	Grants       *table.Table
}

// Generate produces the full dataset. Tables are built in a fixed
// order so the same seed always yields the same values.
func (g *Generator) Generate() *Dataset {
	vendors, contracts := g.generateVendors()
	return &Dataset{
		Vendors:      vendors,
		Contracts:    contracts,
		Projects:     g.generateProjects(),
		Systems:      g.generateSystems(),
		Satisfaction: g.generateSatisfaction(),
		Staff:        g.generateStaff(),
		Budget:       g.generateBudget(),
		Grants:       g.generateGrants(),
	}
}

var vendorNames = []string{
	"Oracle", "Microsoft", "Workday", "Salesforce", "Zoom", "Adobe",
	"Cisco", "ServiceNow", "Atlassian", "Okta", "Splunk", "Tableau",
	"DocuSign", "Box", "Ellucian", "Blackbaud", "Instructure",
	"Anthology", "Paycom", "Qualtrics", "PagerDuty", "Datadog",
	"Terminalfour", "TouchNet",
}

var vendorCategories = []string{
	"ERP", "Cloud Infrastructure", "Collaboration",
	"Security", "Analytics", "Student Systems",
}

// generateVendors builds the vendor table and the contract alert
// table from the same vendor list so spend and renewal dates line up.
// Vendor 0 always renews inside the critical window and vendor 1
// inside the warning window so alerting paths stay covered.
func (g *Generator) generateVendors() (*table.Table, *table.Table) {
	vendors := table.New(
		"vendor_name", "category", "annual_spend", "satisfaction_score",
		"risk_level", "months_to_renewal", "contract_end",
	)
	contracts := make([]contract.Contract, 0, g.config.VendorCount)

	for i := 0; i < g.config.VendorCount; i++ {
		name := vendorNames[i%len(vendorNames)]
		if i >= len(vendorNames) {
			name = fmt.Sprintf("%s %d", name, i/len(vendorNames)+1)
		}
		category := vendorCategories[i%len(vendorCategories)]
		spend := g.dollars(18_000, 320_000)
		satisfaction := g.score(2.8, 4.9)

		risk := "Low"
		switch {
		case i%7 == 0:
			risk = "High"
		case i%3 == 0:
			risk = "Medium"
		}

		daysToEnd := g.renewalDays(i)
		end := g.config.Now.AddDate(0, 0, daysToEnd)

		vendors.AppendRow(
			name,
			category,
			fmt.Sprintf("%.0f", spend),
			fmt.Sprintf("%.1f", satisfaction),
			risk,
			fmt.Sprintf("%d", daysToEnd/30),
			end.Format("2006-01-02"),
		)

		contracts = append(contracts, contract.Contract{
			Vendor:         name,
			SystemProduct:  fmt.Sprintf("%s Platform", name),
			StartDate:      end.AddDate(-3, 0, 0),
			EndDate:        end,
			AnnualSpend:    decimal.NewFromFloat(spend),
			Currency:       "USD",
			ContractNumber: fmt.Sprintf("CNT-%04d", 1000+i),
			ContractType:   "Subscription",
			Department:     g.pick(g.config.Departments),
			RenewalOption:  g.pick([]string{"Auto-Renew", "Manual", "Negotiable"}),
			SourceSystem:   g.pick([]string{"SAP", "Paycom", "File_Upload"}),
			FetchedAt:      g.config.Now,
		})
	}

	return vendors, contract.ToTable(contracts, g.config.Now, contract.DefaultWarningDays)
}

// renewalDays spreads contract ends across alert bands
func (g *Generator) renewalDays(i int) int {
	switch i {
	case 0:
		return 14 + g.rng.Intn(10)
	case 1:
		return 45 + g.rng.Intn(30)
	default:
		return 120 + g.rng.Intn(600)
	}
}

var projectVerbs = []string{"Migration", "Modernization", "Rollout", "Upgrade", "Consolidation", "Automation"}
var projectAreas = []string{"ERP", "Campus WiFi", "Student Portal", "Data Warehouse", "Identity", "Classroom AV", "Advising", "Payments"}

func (g *Generator) generateProjects() *table.Table {
	t := table.New(
		"project_name", "department", "budget", "spent_to_date",
		"budget_utilization_pct", "status", "health", "risk_flag",
		"risk_score", "business_value_score", "category", "type",
	)

	for i := 0; i < g.config.ProjectCount; i++ {
		name := fmt.Sprintf("%s %s", projectAreas[i%len(projectAreas)], projectVerbs[(i/len(projectAreas)+i)%len(projectVerbs)])
		budget := g.dollars(60_000, 800_000)

		// Every fifth project runs hot so at-risk reporting always
		// has material, every third wobbles.
		health, status := "Green", "In Progress"
		utilization := float64(40 + g.rng.Intn(55))
		switch {
		case i%5 == 4:
			health, status = "Red", "At Risk"
			utilization = float64(100 + g.rng.Intn(25))
		case i%3 == 2:
			health = "Yellow"
			utilization = float64(80 + g.rng.Intn(18))
		}
		if i%6 == 5 && status == "In Progress" {
			status = "Completed"
			utilization = float64(88 + g.rng.Intn(12))
		}

		riskFlag := "LOW"
		riskScore := 10 + g.rng.Intn(40)
		switch health {
		case "Red":
			riskFlag = "HIGH"
			riskScore = 70 + g.rng.Intn(26)
		case "Yellow":
			riskFlag = "MEDIUM"
			riskScore = 45 + g.rng.Intn(30)
		}

		valueScore := 5 + g.rng.Intn(3)
		if i%4 == 0 {
			valueScore = 8 + g.rng.Intn(3)
		}

		spent := math.Round(budget * utilization / 100)
		t.AppendRow(
			name,
			g.pick(g.config.Departments),
			fmt.Sprintf("%.0f", budget),
			fmt.Sprintf("%.0f", spent),
			fmt.Sprintf("%.0f", utilization),
			status,
			health,
			riskFlag,
			fmt.Sprintf("%d", riskScore),
			fmt.Sprintf("%d", valueScore),
			g.pick([]string{"Infrastructure", "Applications", "Security", "Data"}),
			g.pick([]string{"Run", "Grow", "Transform"}),
		)
	}
	return t
}

var systemNames = []string{
	"Learning Management", "Student Information", "Email & Calendar",
	"HR & Payroll", "Finance System", "CRM", "Library Services",
	"Identity Management", "Backup Platform", "Data Warehouse",
	"Ticketing", "Telephony",
}

func (g *Generator) generateSystems() *table.Table {
	t := table.New(
		"system_name", "category", "monthly_cost", "utilization_pct",
		"availability_pct", "user_count", "incidents_monthly",
	)

	for i := 0; i < g.config.SystemCount; i++ {
		name := systemNames[i%len(systemNames)]
		if i >= len(systemNames) {
			name = fmt.Sprintf("%s %d", name, i/len(systemNames)+1)
		}

		// Every fourth system idles below the rightsizing threshold.
		utilization := 60 + g.rng.Intn(38)
		if i%4 == 3 {
			utilization = 30 + g.rng.Intn(25)
		}

		t.AppendRow(
			name,
			g.pick([]string{"Academic", "Administrative", "Infrastructure"}),
			fmt.Sprintf("%.0f", g.dollars(600, 14_000)),
			fmt.Sprintf("%d", utilization),
			fmt.Sprintf("%.2f", g.score(97.6, 99.98)),
			fmt.Sprintf("%d", 50+g.rng.Intn(1900)),
			fmt.Sprintf("%d", g.rng.Intn(7)),
		)
	}
	return t
}

func (g *Generator) generateSatisfaction() *table.Table {
	t := table.New(
		"department", "satisfaction_score", "response_rate",
		"tickets_resolved", "avg_resolution_time",
	)
	for _, dept := range g.config.Departments {
		t.AppendRow(
			dept,
			fmt.Sprintf("%.1f", g.score(2.9, 4.8)),
			fmt.Sprintf("%d", 40+g.rng.Intn(55)),
			fmt.Sprintf("%d", 20+g.rng.Intn(380)),
			fmt.Sprintf("%.1f", g.score(1.5, 22)),
		)
	}
	return t
}

var teamNames = []string{"Infrastructure", "Applications", "Service Desk", "Security", "Data & Analytics"}

func (g *Generator) generateStaff() *table.Table {
	t := table.New("team", "headcount", "engagement_score", "attrition_pct")
	for _, team := range teamNames {
		t.AppendRow(
			team,
			fmt.Sprintf("%d", 3+g.rng.Intn(9)),
			fmt.Sprintf("%.1f", g.score(2.6, 4.7)),
			fmt.Sprintf("%.0f", g.score(0, 18)),
		)
	}
	return t
}

var budgetCategories = []string{
	"Software Licensing", "Cloud Services", "Hardware",
	"Professional Services", "Telecom", "Training",
}

// generateBudget emits one line per category. Every third category is
// left materially under budget so reallocation plays have something
// to move.
func (g *Generator) generateBudget() *table.Table {
	t := table.New("budget_category", "budget_amount", "actual_amount", "variance_amount")
	for i, category := range budgetCategories {
		budget := g.dollars(120_000, 900_000)
		var variance float64
		if i%3 == 0 {
			variance = -(55_000 + g.dollars(0, 60_000))
		} else {
			variance = g.dollars(-30_000, 35_000)
		}
		actual := budget - variance
		t.AppendRow(
			category,
			fmt.Sprintf("%.0f", budget),
			fmt.Sprintf("%.0f", actual),
			fmt.Sprintf("%.0f", variance),
		)
	}
	return t
}

var grantNames = []string{
	"Title III Strengthening Institutions", "NSF STEM Pathways",
	"TRIO Student Support", "Perkins CTE Innovation",
	"NIH Biomedical Research Infrastructure", "DOE Campus Energy",
	"NEH Digital Humanities", "USDA Rural Education",
}

// generateGrants always flags the first award as high clawback risk
// so compliance monitoring has a live case.
func (g *Generator) generateGrants() *table.Table {
	t := table.New("grant_name", "award_amount", "risk_level", "reporting_deadline")
	for i := 0; i < g.config.GrantCount; i++ {
		name := grantNames[i%len(grantNames)]
		risk := g.pick([]string{"Low", "Low", "Medium"})
		if i == 0 {
			risk = "High"
		}
		t.AppendRow(
			name,
			fmt.Sprintf("%.0f", g.dollars(100_000, 1_500_000)),
			risk,
			g.config.Now.AddDate(0, 1+g.rng.Intn(10), 0).Format("2006-01-02"),
		)
	}
	return t
}

// dollars returns a uniform amount rounded to whole dollars
func (g *Generator) dollars(min, max float64) float64 {
	return math.Round(min + g.rng.Float64()*(max-min))
}

// score returns a uniform value with one decimal of precision
func (g *Generator) score(min, max float64) float64 {
	return math.Round((min+g.rng.Float64()*(max-min))*10) / 10
}

func (g *Generator) pick(options []string) string {
	return options[g.rng.Intn(len(options))]
}
