package insights

import (
	"encoding/json"

	"example.com/budget-tracker/backend/internal/ai"
)

const systemPrompt = "You are a personalized budgeting coach helping students and young adults build healthy money habits. " +
	"Carefully analyze the user's actual spending data (categories, amounts, frequency, patterns) and tie every " +
	"recommendation to their real transactions. Reference their spending categories and exact dollar amounts. " +
	"Be supportive, specific and relatable, never shaming. Focus on behavioral changes, small wins and consistent saving habits."

const userDirective = "Return ONLY valid JSON with keys summary, highlights, suggestions, watchouts, actionPlan, disclaimer. " +
	"Do not wrap the JSON in code fences. Provide specific dollar amounts, weekly limits, and detailed action steps. Data: "

type outputFormat struct {
	Summary     string `json:"summary"`
	Highlights  string `json:"highlights"`
	Suggestions string `json:"suggestions"`
	Watchouts   string `json:"watchouts"`
	ActionPlan  string `json:"actionPlan"`
	Disclaimer  string `json:"disclaimer"`
}

type promptInstructions struct {
	OutputFormat outputFormat `json:"outputFormat"`
}

type promptPayload struct {
	PeriodDays   int                `json:"periodDays"`
	Snapshot     Snapshot           `json:"snapshot"`
	Transactions []Transaction      `json:"transactions"`
	Instructions promptInstructions `json:"instructions"`
}

var insightOutputFormat = outputFormat{
	Summary:     "string (2-3 sentences overview)",
	Highlights:  "array of 3-5 positive achievements or patterns",
	Suggestions: "array of 4-5 detailed, high-impact actionable recommendations with specific dollar limits, weekly targets, and step-by-step action plans",
	Watchouts:   "array of 2-4 specific warnings with exact spending limits to avoid overspending",
	ActionPlan:  "object with weeklyGoals (array of 3-4 specific weekly financial goals with dollar amounts), spendingLimits (object mapping category to limit string), and quickWins (array of 3-4 immediate actions user can take this week)",
	Disclaimer:  "one short sentence: educational, not financial advice",
}

// BuildPrompt собирает системное сообщение и пользовательские данные для модели.
func BuildPrompt(periodDays int, snapshot Snapshot, transactions []Transaction) ([]ai.Message, string, error) {
	payload, err := json.Marshal(promptPayload{
		PeriodDays:   periodDays,
		Snapshot:     snapshot,
		Transactions: transactions,
		Instructions: promptInstructions{OutputFormat: insightOutputFormat},
	})
	if err != nil {
		return nil, "", err
	}

	user := userDirective + string(payload)

	return []ai.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: user},
	}, user, nil
}
