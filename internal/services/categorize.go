package services

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"lumen_banksync/internal/models"
	"lumen_banksync/pkg/utils"
)

const (
	CategoryIncome = "Income"
	CategoryOther  = "Other"
)

// CategorizeOptions carries everything the engine may consult besides the
// transaction itself. ManualCategory short-circuits all other layers.
type CategorizeOptions struct {
	ManualCategory string
	UserRules      []models.CategoryRule
}

// Categorize resolves a category for tx. Precedence: manual override, user
// rules (priority asc, created_at asc), MCC hint, weighted keyword scoring,
// then the Income/Other fallback. Pure and deterministic; never errors.
func Categorize(tx models.NormalizedTransaction, opts CategorizeOptions) string {
	if opts.ManualCategory != "" {
		return opts.ManualCategory
	}

	if cat := matchUserRules(tx, opts.UserRules); cat != "" {
		return cat
	}

	if cat := mccCategory(tx); cat != "" {
		return cat
	}

	if cat := keywordCategory(tx); cat != "" {
		return cat
	}

	if tx.Amount.IsPositive() {
		return CategoryIncome
	}
	return CategoryOther
}

// ---------------------------------------------------------------------------
// User-defined rules
// ---------------------------------------------------------------------------

func matchUserRules(tx models.NormalizedTransaction, rules []models.CategoryRule) string {
	// Rules arrive sorted by (priority ASC, created_at ASC) from the query;
	// first match wins.
	for _, rule := range rules {
		if rule.Currency != "" && !strings.EqualFold(rule.Currency, tx.Currency) {
			continue
		}
		if ruleMatches(rule, tx) {
			return rule.Category
		}
	}
	return ""
}

func ruleMatches(rule models.CategoryRule, tx models.NormalizedTransaction) bool {
	combined := strings.ToLower(strings.TrimSpace(tx.Description + " " + tx.Counterparty))
	pattern := strings.ToLower(rule.Pattern)

	switch rule.MatchType {
	case models.RuleMatchTransactionID:
		return rule.Pattern == tx.TransactionID
	case models.RuleMatchExact:
		return strings.ToLower(tx.Description) == pattern || strings.ToLower(tx.Counterparty) == pattern
	case models.RuleMatchContains:
		return pattern != "" && strings.Contains(combined, pattern)
	case models.RuleMatchPrefix:
		return pattern != "" && strings.HasPrefix(combined, pattern)
	case models.RuleMatchSuffix:
		return pattern != "" && strings.HasSuffix(combined, pattern)
	case models.RuleMatchRegex:
		re, err := regexp.Compile("(?i)" + rule.Pattern)
		if err != nil {
			// A bad user pattern is a non-match, never a failure.
			utils.Logger.Debugf("skipping invalid rule regex %q: %v", rule.Pattern, err)
			return false
		}
		return re.MatchString(combined)
	case models.RuleMatchAmount:
		want, err := decimal.NewFromString(rule.Pattern)
		if err != nil {
			return false
		}
		return tx.Amount.Equal(want)
	case models.RuleMatchAmountRange:
		return amountInRange(rule, tx.Amount)
	default:
		return false
	}
}

func amountInRange(rule models.CategoryRule, amount decimal.Decimal) bool {
	if rule.AmountMin.Valid {
		min, err := decimal.NewFromString(rule.AmountMin.String)
		if err != nil || amount.LessThan(min) {
			return false
		}
	}
	if rule.AmountMax.Valid {
		max, err := decimal.NewFromString(rule.AmountMax.String)
		if err != nil || amount.GreaterThan(max) {
			return false
		}
	}
	return rule.AmountMin.Valid || rule.AmountMax.Valid
}

// ---------------------------------------------------------------------------
// MCC hint
// ---------------------------------------------------------------------------

var mccCategories = map[string]string{
	"5411": "Groceries",
	"5499": "Groceries",
	"5812": "Restaurants",
	"5813": "Restaurants",
	"5814": "Restaurants",
	"5541": "Transport",
	"5542": "Transport",
	"4111": "Transport",
	"4121": "Transport",
	"4789": "Transport",
	"5912": "Health",
	"8011": "Health",
	"8021": "Health",
	"8062": "Health",
	"7832": "Entertainment",
	"7922": "Entertainment",
	"7941": "Entertainment",
	"5651": "Shopping",
	"5691": "Shopping",
	"5942": "Shopping",
	"5732": "Shopping",
	"4900": "Utilities",
	"4814": "Utilities",
	"4899": "Utilities",
	"7011": "Travel",
	"4511": "Travel",
	"4722": "Travel",
}

// mccCategory consults the card network's merchant code. Inbound amounts are
// excluded: a refund from a grocer is not a grocery spend.
func mccCategory(tx models.NormalizedTransaction) string {
	if tx.MCC == "" || tx.Amount.IsPositive() {
		return ""
	}
	return mccCategories[tx.MCC]
}

// ---------------------------------------------------------------------------
// Weighted keyword scoring
// ---------------------------------------------------------------------------

type keywordPattern struct {
	re     *regexp.Regexp
	weight int
}

type keywordEntry struct {
	category string
	patterns []keywordPattern
}

// keywordTable is evaluated in order; on a score tie the earliest entry wins,
// so ordering here is part of the engine's contract.
var keywordTable = []keywordEntry{
	{"Groceries", []keywordPattern{
		{regexp.MustCompile(`\b(ica|coop|lidl|willys|hemk[öo]p|aldi|tesco|rewe|carrefour|netto)\b`), 10},
		{regexp.MustCompile(`\b(supermarket|grocery|groceries|livs)\b`), 4},
	}},
	{"Restaurants", []keywordPattern{
		{regexp.MustCompile(`\b(mcdonalds|burger king|subway|kfc|starbucks|espresso house|max burgers|pizza hut|dominos)\b`), 10},
		{regexp.MustCompile(`\b(restaurant|restaurang|cafe|caf[ée]|pizzeria|sushi|takeaway|foodora|wolt|ubereats)\b`), 5},
	}},
	{"Entertainment", []keywordPattern{
		{regexp.MustCompile(`\b(netflix|spotify|hbo|disney\+?|viaplay|steam|playstation|nintendo|twitch|youtube premium)\b`), 10},
		{regexp.MustCompile(`\b(cinema|bio|concert|theatre|theater|streaming)\b`), 4},
	}},
	{"Transport", []keywordPattern{
		{regexp.MustCompile(`\b(uber|bolt|lyft|sl|sj|v[äa]sttrafik|skånetrafiken|ruter|flixbus)\b`), 10},
		{regexp.MustCompile(`\b(taxi|parking|parkering|fuel|bensin|diesel|circle k|okq8|shell|preem)\b`), 5},
	}},
	{"Shopping", []keywordPattern{
		{regexp.MustCompile(`\b(amazon|zalando|h&m|hm\.com|ikea|elgiganten|clas ohlson|apotea|boozt|ebay)\b`), 10},
		{regexp.MustCompile(`\b(store|shop|retail|webshop|clothing)\b`), 3},
	}},
	{"Utilities", []keywordPattern{
		{regexp.MustCompile(`\b(vattenfall|eon|fortum|telia|telenor|tele2|tre|comviq|hyresavi|el[nä]t)\b`), 10},
		{regexp.MustCompile(`\b(electricity|broadband|internet|mobile|phone bill|insurance|f[öo]rs[äa]kring|rent|hyra)\b`), 5},
	}},
	{"Health", []keywordPattern{
		{regexp.MustCompile(`\b(apotek|apoteket|pharmacy|folktandv[åa]rden|vårdcentral|sats|fitness24seven|nordic wellness)\b`), 10},
		{regexp.MustCompile(`\b(gym|dentist|doctor|clinic|hospital|medical)\b`), 5},
	}},
	{"Travel", []keywordPattern{
		{regexp.MustCompile(`\b(ryanair|norwegian|sas|lufthansa|klm|airbnb|booking\.com|hotels\.com|expedia)\b`), 10},
		{regexp.MustCompile(`\b(hotel|hostel|flight|airline|airport)\b`), 5},
	}},
	{CategoryIncome, []keywordPattern{
		{regexp.MustCompile(`\b(salary|l[öo]n|payroll|wages|pension)\b`), 10},
		{regexp.MustCompile(`\b(refund|återbetalning|deposit|dividend|utdelning)\b`), 5},
	}},
}

// keywordCategory folds the weighted pattern table over the lower-cased
// description plus counterparty and returns the highest-scoring category.
func keywordCategory(tx models.NormalizedTransaction) string {
	text := strings.ToLower(tx.Description + " " + tx.Counterparty)

	best := ""
	bestScore := 0
	for _, entry := range keywordTable {
		score := 0
		for _, p := range entry.patterns {
			if p.re.MatchString(text) {
				score += p.weight
			}
		}
		// Strict > keeps the first-registered category on ties.
		if score > bestScore {
			best = entry.category
			bestScore = score
		}
	}
	return best
}
