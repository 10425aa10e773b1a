package agent

import (
	"fmt"
	"strings"
)

var cowbellKeywords = []string{"cowbell", "moar cowbell", "more cowbell", "needs moar cowbell"}

// IsCowbellIssue checks if an issue is related to cowbell (SNL reference)
func IsCowbellIssue(title, body string) bool {
	text := strings.ToLower(title + " " + body)
	for _, keyword := range cowbellKeywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}

// ScopePrompt builds the prompt asking the agent to analyze an issue and
// return a confidence score, complexity estimate, and action plan.
func ScopePrompt(title, body, repo string) string {
	if IsCowbellIssue(title, body) {
		return fmt.Sprintf(`
This appears to be a cowbell-related issue (referencing the famous SNL sketch)!

Repository: %s
Issue Title: %s
Issue Description: %s

For this humorous cowbell request, please provide:
CONFIDENCE_SCORE: 15
COMPLEXITY: Low
ACTION_PLAN:
1. Add cowbell sound effect to frontend assets
2. Create cowbell detection logic in issue processing
3. Implement audio playback component in the dashboard
4. Add visual cowbell icon/animation for matching issues
5. Update issue display to trigger cowbell effects
6. Add toggle to enable/disable cowbell feature

This is a fun easter egg feature that adds personality to the system while maintaining professional functionality.
`, repo, title, body)
	}

	return fmt.Sprintf(`
Please analyze this GitHub issue and provide:
1. A confidence score (0-100) for how well-defined and actionable this issue is
2. A detailed action plan for implementing the solution
3. An estimate of complexity (Low/Medium/High)

Repository: %s
Issue Title: %s
Issue Description: %s

Please provide your analysis in the following format:
CONFIDENCE_SCORE: [0-100]
COMPLEXITY: [Low/Medium/High]
ACTION_PLAN: [Detailed step-by-step plan]
`, repo, title, body)
}

// ExecutePrompt builds the prompt asking the agent to implement a previously
// produced action plan.
func ExecutePrompt(title, body, actionPlan, repo string) string {
	return fmt.Sprintf(`
Please implement the solution for this GitHub issue based on the action plan provided.

Repository: %s
Issue Title: %s
Issue Description: %s

Action Plan:
%s

Please implement the solution and create a pull request.
`, repo, title, body, actionPlan)
}
