package insights

import (
	"cmp"
	"math"
	"slices"

	"example.com/budget-tracker/backend/internal/money"
)

const maxTopCategories = 6

type CategoryTotal struct {
	Category string  `json:"category"`
	Spent    float64 `json:"spent"`
	Count    int     `json:"count"`
}

type Snapshot struct {
	Income        float64         `json:"income"`
	Expenses      float64         `json:"expenses"`
	Net           float64         `json:"net"`
	TopCategories []CategoryTotal `json:"topCategories"`
	Count         int             `json:"count"`
}

// IsIncome reports how a transaction is classified: an explicit tone wins,
// otherwise a positive amount is income.
func IsIncome(t Transaction) bool {
	if t.Tone != "" {
		return t.Tone == ToneIncome
	}

	return t.Amount > 0
}

// ComputeSnapshot сводит транзакции в доходы, расходы, итог и топ категорий расходов.
func ComputeSnapshot(transactions []Transaction) Snapshot {
	var income, expenses float64

	categories := make([]CategoryTotal, 0)
	index := make(map[string]int)

	for _, t := range transactions {
		abs := math.Abs(t.Amount)

		if IsIncome(t) {
			income += abs
			continue
		}

		expenses += abs

		key := t.Category
		if key == "" {
			key = defaultCategory
		}

		i, ok := index[key]
		if !ok {
			i = len(categories)
			index[key] = i
			categories = append(categories, CategoryTotal{Category: key})
		}
		categories[i].Spent += abs
		categories[i].Count++
	}

	// Stable sort keeps first-seen order for equal totals.
	slices.SortStableFunc(categories, func(a, b CategoryTotal) int {
		return cmp.Compare(b.Spent, a.Spent)
	})

	if len(categories) > maxTopCategories {
		categories = categories[:maxTopCategories]
	}

	for i := range categories {
		categories[i].Spent = money.Round2(categories[i].Spent)
	}

	roundedIncome := money.Round2(income)
	roundedExpenses := money.Round2(expenses)

	return Snapshot{
		Income:        roundedIncome,
		Expenses:      roundedExpenses,
		Net:           money.Round2(roundedIncome - roundedExpenses),
		TopCategories: categories,
		Count:         len(transactions),
	}
}
