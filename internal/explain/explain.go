// Package explain turns free-text questions about a finished risk result
// into canned, data-interpolated answers. It is a fixed rule table, not a
// model: rules are tested in order and the first match wins, so a question
// touching several topics always resolves to the earliest category.
package explain

import (
	"fmt"
	"strings"

	"alive/internal/predict"
)

type rule struct {
	match   func(text string) bool
	respond func(res predict.Result) string
}

func anyOf(words ...string) func(string) bool {
	return func(text string) bool {
		for _, w := range words {
			if strings.Contains(text, w) {
				return true
			}
		}
		return false
	}
}

// Rule order is significant: categories overlap, and priority is part of
// the contract ("why risk and what to eat" is a risk question).
var rules = []rule{
	{anyOf("hello", "hi", "help"), greet},
	{anyOf("why", "risk", "score"), riskFactors},
	{anyOf("eat", "diet", "food"), diet},
	{anyOf("exercise", "run", "active"), exercise},
	{anyOf("smoke", "smoking", "alcohol", "drink"), habits},
}

// Analyze answers one question about res. It is a pure function: identical
// input always produces identical output, and nothing is kept between
// calls.
func Analyze(text string, res predict.Result) string {
	t := strings.ToLower(text)
	for _, r := range rules {
		if r.match(t) {
			return r.respond(res)
		}
	}
	return "I didn't quite catch that context. You can ask me about your 'Risk Factors', 'Diet Recommendations', or 'Exercise Advice'."
}

func greet(res predict.Result) string {
	return fmt.Sprintf("Hello %s. I have analyzed your cardiovascular report. Your calculated risk is %.1f%%. I am here to explain your results or offer advice. What would you like to know?",
		res.Name, res.RiskPercent())
}

// riskFactors lists every contributing factor whose predicate fires, in a
// fixed order. The clauses are independent; any subset may appear.
func riskFactors(res predict.Result) string {
	var reasons []string
	if res.HighRisk() {
		reasons = append(reasons, "Overall, your calculated risk is above normal.")
	}
	if res.ApHi > 130 {
		reasons = append(reasons, fmt.Sprintf("Your systolic blood pressure is %d, which is considered elevated.", res.ApHi))
	}
	if res.Cholesterol > 1 {
		reasons = append(reasons, "Your cholesterol levels are flagged as above normal.")
	}
	if res.Smokes() {
		reasons = append(reasons, "Smoking is a significant contributor to your risk score.")
	}
	if res.BMI() > 25 {
		reasons = append(reasons, "Your BMI suggests you are overweight, which adds strain to your heart.")
	}

	if len(reasons) == 0 {
		return "Your risk is quite low! You are doing a great job maintaining your health. Keep up the active lifestyle."
	}
	return "Based on your data: " + strings.Join(reasons, " ")
}

func diet(res predict.Result) string {
	if res.Cholesterol > 1 || res.Gluc > 1 {
		return "Since your biomarkers for cholesterol or glucose are elevated, I recommend a diet low in saturated fats and added sugars. Focus on leafy greens, whole grains, and lean proteins."
	}
	return "A balanced diet is key. Maintain a colorful plate with plenty of vegetables, fruits, and heart-healthy fats like olive oil and avocados."
}

func exercise(res predict.Result) string {
	if res.IsActive() {
		return "You are already active, which is fantastic! Aim for 150 minutes of moderate activity per week to maintain this protection."
	}
	return "I noticed you listed yourself as inactive. Starting small, like a 30-minute daily walk, can reduce your heart disease risk by up to 20%."
}

func habits(res predict.Result) string {
	if res.Smokes() {
		return "Smoking is the single biggest modifiable risk factor. Quitting today can immediately lower your blood pressure and heart rate."
	}
	if res.Drinks() {
		return "Alcohol should be consumed in moderation. Excessive intake can raise blood pressure."
	}
	return "You reported no smoking or alcohol issues, which is excellent for your long-term heart health."
}
