package llm

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// maxEntryExcerpt caps journal content sent to the energy assessment prompt.
const maxEntryExcerpt = 200

// ExtractionPrompt generates the prompt for entity extraction from a journal entry.
func ExtractionPrompt(entry string) string {
	return fmt.Sprintf(`You are an expert Psychologist and Data Scientist. Analyze the following diary entry.
Extract unique entities into JSON format.
For 'People', infer the relationship, sentiment (Positive/Neutral/Negative), and summarize interaction context.
For 'Feelings', rate intensity 1-10 and identify root cause.
For 'Events', categorize them and identify date/time if possible.

Return ONLY a raw JSON object with keys: 'people', 'events', 'feelings'.
Each key should be an array. If no entities of a type are found, return an empty array.
Do not use markdown.

Example format:
{
  "people": [{"name": "Sarah", "relationship": "friend", "sentiment": "Positive", "context": "Had lunch together"}],
  "events": [{"name": "Lunch at cafe", "category": "social", "date": null, "context": "New cafe downtown"}],
  "feelings": [{"name": "happiness", "intensity": 8, "root_cause": "Good conversation with friend"}]
}

Entry:
%s`, entry)
}

// EnergyEntry is one journal entry summarized for the energy assessment prompt.
type EnergyEntry struct {
	Date    time.Time
	Mood    string
	Content string
}

// EnergyAssessmentPrompt generates the prompt for assessing user energy from
// recent journal entries. Content is truncated per entry to keep the prompt
// bounded.
func EnergyAssessmentPrompt(entries []EnergyEntry) string {
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteString("\n\n")
		}
		content := truncateExcerpt(e.Content)
		fmt.Fprintf(&b, "Date: %s\nMood: %s\nContent: %s", e.Date.Format("2006-01-02"), e.Mood, content)
	}

	return fmt.Sprintf(`You are analyzing a user's recent journal entries to assess their current energy level.

Recent Journal Entries:
%s

Analyze the mood, tone, and content to determine the user's current energy level.

Return ONLY a raw JSON object (no markdown, no code blocks) with:
{
  "energy_level": "LOW" | "MEDIUM" | "HIGH",
  "confidence": 0.0 to 1.0,
  "reasoning": "brief explanation"
}

Guidelines:
- LOW: Tired, stressed, overwhelmed, sad, anxious
- MEDIUM: Neutral, calm, content, stable
- HIGH: Energized, motivated, happy, excited, productive
- Confidence: How certain you are based on the entries (0.0 = uncertain, 1.0 = very certain)`, b.String())
}

// truncateExcerpt caps content at maxEntryExcerpt bytes, backing up to a rune
// boundary so the cut never leaves an invalid UTF-8 tail.
func truncateExcerpt(content string) string {
	if len(content) <= maxEntryExcerpt {
		return content
	}
	cut := maxEntryExcerpt
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut] + "..."
}

// ContextMatchPrompt generates the prompt for scoring how well a task fits
// the user's current situation.
func ContextMatchPrompt(title, taskContext, taskEnergy, timeOfDay, dayOfWeek, userEnergy, location string) string {
	return fmt.Sprintf(`You are scoring how well a task matches the current user context.

Task: "%s"
Task Context: %s
Task Energy Required: %s

Current User Context:
- Time: %s
- Day: %s
- User Energy: %s
- Location: %s

Return ONLY a raw JSON object (no markdown, no code blocks) with:
{
  "context_match_score": 0 to 100,
  "reasoning": "brief explanation"
}

Scoring Guidelines:
- High score (80-100): Perfect match (e.g., personal task on weekend, professional task during work hours)
- Medium score (40-79): Acceptable match
- Low score (0-39): Poor match (e.g., high-energy task when user is tired)

Consider:
- Work tasks score higher during weekdays 9am-6pm
- Personal tasks score higher on weekends
- High-energy tasks score lower when user energy is LOW
- Time-sensitive tasks score higher as deadline approaches`, title, taskContext, taskEnergy, timeOfDay, dayOfWeek, userEnergy, location)
}

// TaskClassificationPrompt generates the prompt for classifying a raw task
// description into context, category, and energy level.
func TaskClassificationPrompt(input, timeOfDay, dayOfWeek, recentMood string) string {
	return fmt.Sprintf(`You are an expert task classifier for a personal journaling assistant.

Analyze the following user input and classify it:

User Input: "%s"

Current Context:
- Time of Day: %s
- Day of Week: %s
- Recent Mood: %s

Return ONLY a raw JSON object (no markdown, no code blocks) with:
{
  "context": "PERSONAL" | "PROFESSIONAL" | "MIXED",
  "category": "string (e.g., Travel, Feature Development, Bug Fix, Study, Health)",
  "energy_level": "LOW" | "MEDIUM" | "HIGH",
  "reasoning": "brief explanation of classification"
}

Classification Guidelines:
- PERSONAL: Travel, hobbies, health, personal goals, shopping, entertainment
- PROFESSIONAL: Product management, coding, meetings, stakeholder communication
- MIXED: Tasks that span both contexts
- Energy LOW: Simple, routine tasks (book ticket, send email)
- Energy MEDIUM: Planning, research, writing
- Energy HIGH: Complex problem-solving, creative work, strategic thinking`, input, timeOfDay, dayOfWeek, recentMood)
}

// TaskDecompositionPrompt generates the prompt for breaking a task into
// subtasks with time estimates.
func TaskDecompositionPrompt(title, taskContext, category string) string {
	return fmt.Sprintf(`You are an expert task decomposer for a personal journaling assistant.

Break down this task into granular, actionable subtasks:

Main Task: "%s"
Context: %s
Category: %s

Return ONLY a raw JSON object (no markdown, no code blocks) with:
{
  "subtasks": [
    {
      "title": "Clear, actionable subtask",
      "estimated_minutes": number
    }
  ],
  "tags": ["tag1", "tag2", "tag3"],
  "estimated_total_minutes": number,
  "priority": "LOW" | "MEDIUM" | "HIGH"
}

Guidelines:
- Each subtask should be completable in one sitting
- Estimate realistic time (in minutes)
- Include 5-10 relevant tags
- Order subtasks logically (dependencies first)
- Be specific and actionable`, title, taskContext, category)
}
