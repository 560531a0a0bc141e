package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// ErrBadModelOutput marks a model response that could not be parsed into the
// structure a task requires.
var ErrBadModelOutput = errors.New("unusable model output")

const personaPrompt = `You are StudyCompanion, a private assistant for a single user named Mitchell (Mitch).
You must:
1. Never overwrite user summaries or notes without their approval.
2. Help generate study plans based on deadlines, topic size, and pace level.
3. Remind the user to rest when study time is excessive (especially weekends).
4. Generate summaries and quizzes upon request only.
5. Always be kind, encouraging, and use concise explanations.
6. Address the user as "Mitch" in a warm, supportive manner.
7. Be encouraging but not overly enthusiastic, keeping a mature, caring tone.`

// Turn is one prior exchange in a conversation, oldest first.
type Turn struct {
	Role    string
	Content string
}

// ChatReply is the assistant's answer to a chat turn plus follow-up actions
// inferred from the answer text.
type ChatReply struct {
	Content     string   `json:"content"`
	Suggestions []string `json:"suggestions"`
}

// SummaryRequest describes a summarization task.
type SummaryRequest struct {
	Text     string
	Context  string
	MaxWords int
}

// Deadline is an upcoming assessment fed into plan generation.
type Deadline struct {
	Subject string
	Date    time.Time
	Type    string
}

// PlanRequest describes a study-plan generation task.
type PlanRequest struct {
	Subjects       []string
	Deadlines      []Deadline
	Pace           int
	AvailableHours int
}

// PlanSession is one block inside a generated weekly schedule.
type PlanSession struct {
	Subject string `json:"subject"`
	Time    string `json:"time"`
	Topic   string `json:"topic"`
	Type    string `json:"type"`
}

// DaySchedule groups generated sessions for a single day.
type DaySchedule struct {
	Day      string        `json:"day"`
	Sessions []PlanSession `json:"sessions"`
}

// StudyPlan is a generated weekly schedule.
type StudyPlan struct {
	Schedule []DaySchedule `json:"schedule"`
}

// QuizQuestion is one generated question with its answer key.
type QuizQuestion struct {
	Type        string   `json:"type"`
	Question    string   `json:"question"`
	Options     []string `json:"options,omitempty"`
	Correct     string   `json:"correct"`
	Explanation string   `json:"explanation"`
}

// Quiz is a generated set of questions on a topic.
type Quiz struct {
	Title     string         `json:"title"`
	Questions []QuizQuestion `json:"questions"`
}

// DocumentRef is a candidate document for relevance ranking.
type DocumentRef struct {
	ID      int64
	Title   string
	Content string
}

// RankedDocument is one relevance-ranking result.
type RankedDocument struct {
	ID        int64   `json:"id"`
	Relevance float64 `json:"relevance"`
	Excerpt   string  `json:"excerpt"`
}

// Assistant runs the study-companion tasks on top of a TextGenerator.
type Assistant struct {
	generator TextGenerator
	pick      func(n int) int
}

// NewAssistant wraps a text generator with the StudyCompanion persona.
func NewAssistant(generator TextGenerator) *Assistant {
	return &Assistant{
		generator: generator,
		pick:      rand.Intn,
	}
}

// Chat answers one conversational turn. Prior history is folded into the
// prompt oldest first, and follow-up suggestions are keyword-matched from the
// reply text.
func (a *Assistant) Chat(ctx context.Context, message string, history []Turn) (ChatReply, error) {
	if strings.TrimSpace(message) == "" {
		return ChatReply{}, fmt.Errorf("message required")
	}
	var userPrompt string
	if historyText := buildHistory(history); historyText != "" {
		userPrompt = fmt.Sprintf("Conversation so far:\n%s\n\nMitch's latest message: %s", historyText, message)
	} else {
		userPrompt = message
	}
	content, err := a.generator.GenerateText(ctx, personaPrompt, userPrompt)
	if err != nil {
		return ChatReply{}, fmt.Errorf("chat: %w", err)
	}
	return ChatReply{
		Content:     content,
		Suggestions: extractSuggestions(content),
	}, nil
}

// Summarize condenses study material into a study-friendly summary.
func (a *Assistant) Summarize(ctx context.Context, req SummaryRequest) (string, error) {
	if strings.TrimSpace(req.Text) == "" {
		return "", fmt.Errorf("text required")
	}
	var b strings.Builder
	b.WriteString("Please create a concise summary of the following study material for Mitch.\n")
	b.WriteString("Focus on key concepts, important details, and main takeaways.\n")
	if req.Context != "" {
		fmt.Fprintf(&b, "Context: %s\n", req.Context)
	}
	if req.MaxWords > 0 {
		fmt.Fprintf(&b, "Keep it under %d words.\n", req.MaxWords)
	}
	b.WriteString("\nStudy material:\n")
	b.WriteString(req.Text)
	b.WriteString("\n\nFormat the summary in a clear, study-friendly way with bullet points or numbered lists where appropriate.")

	summary, err := a.generator.GenerateText(ctx, personaPrompt, b.String())
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	return summary, nil
}

// GenerateStudyPlan asks the model for a weekly schedule and parses the
// structured response.
func (a *Assistant) GenerateStudyPlan(ctx context.Context, req PlanRequest) (StudyPlan, error) {
	if len(req.Subjects) == 0 {
		return StudyPlan{}, fmt.Errorf("subjects required")
	}
	deadlines := make([]string, 0, len(req.Deadlines))
	for _, d := range req.Deadlines {
		deadlines = append(deadlines, fmt.Sprintf("%s (%s) due %s", d.Subject, d.Type, d.Date.Format("Mon Jan 2 2006")))
	}
	prompt := fmt.Sprintf(`Create a personalized weekly study plan for Mitch.

Subjects: %s
Deadlines: %s
Learning pace: %d/80 (1=relaxed, 80=intensive)
Available study hours per day: %d

The schedule must prioritize subjects with approaching deadlines, balance load according to the pace setting, and include regular breaks and review sessions.

Respond with only a JSON object in this exact shape:
{"schedule": [{"day": "Monday", "sessions": [{"subject": "Anatomy", "time": "14:30-15:30", "topic": "Nervous System", "type": "study"}]}]}`,
		strings.Join(req.Subjects, ", "), strings.Join(deadlines, "; "), req.Pace, req.AvailableHours)

	raw, err := a.generator.GenerateText(ctx, personaPrompt, prompt)
	if err != nil {
		return StudyPlan{}, fmt.Errorf("generate study plan: %w", err)
	}
	var plan StudyPlan
	if err := decodeModelJSON(raw, &plan); err != nil {
		return StudyPlan{}, err
	}
	if len(plan.Schedule) == 0 {
		return StudyPlan{}, fmt.Errorf("study plan without schedule: %w", ErrBadModelOutput)
	}
	return plan, nil
}

// GenerateQuiz asks the model for a quiz on a topic and parses the structured
// response. difficulty defaults to "medium" and count to 5.
func (a *Assistant) GenerateQuiz(ctx context.Context, topic, difficulty string, count int) (Quiz, error) {
	if strings.TrimSpace(topic) == "" {
		return Quiz{}, fmt.Errorf("topic required")
	}
	if strings.TrimSpace(difficulty) == "" {
		difficulty = "medium"
	}
	if count <= 0 {
		count = 5
	}
	prompt := fmt.Sprintf(`Generate a %s difficulty quiz for Mitch on the topic: %s

Create %d questions that test understanding, not just memorization.
Include a mix of multiple choice, short answer, and scenario-based questions.

Respond with only a JSON object in this exact shape:
{"quiz": {"title": "Quiz Title", "questions": [{"type": "multiple_choice", "question": "...", "options": ["A", "B", "C", "D"], "correct": "B", "explanation": "..."}]}}`,
		difficulty, topic, count)

	raw, err := a.generator.GenerateText(ctx, personaPrompt, prompt)
	if err != nil {
		return Quiz{}, fmt.Errorf("generate quiz: %w", err)
	}
	var wrapper struct {
		Quiz Quiz `json:"quiz"`
	}
	if err := decodeModelJSON(raw, &wrapper); err != nil {
		return Quiz{}, err
	}
	if len(wrapper.Quiz.Questions) == 0 {
		return Quiz{}, fmt.Errorf("quiz without questions: %w", ErrBadModelOutput)
	}
	return wrapper.Quiz, nil
}

// FindRelevantContent ranks documents against a query. Document content is
// truncated before prompting so large uploads stay within model limits.
func (a *Assistant) FindRelevantContent(ctx context.Context, query string, docs []DocumentRef) ([]RankedDocument, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query required")
	}
	if len(docs) == 0 {
		return []RankedDocument{}, nil
	}
	var b strings.Builder
	for _, doc := range docs {
		fmt.Fprintf(&b, "%d. %s: %s\n", doc.ID, doc.Title, truncate(doc.Content, 200))
	}
	prompt := fmt.Sprintf(`Help Mitch find the most relevant study materials for this query: %q

Available documents:
%s
Respond with only a JSON object listing relevant documents ranked by relevance (0-1 score), each with a brief excerpt explaining why it is relevant. Use the numeric document ids given above.

Format: {"documents": [{"id": 1, "relevance": 0.9, "excerpt": "This section covers..."}]}`, query, b.String())

	raw, err := a.generator.GenerateText(ctx, personaPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("find relevant content: %w", err)
	}
	var wrapper struct {
		Documents []RankedDocument `json:"documents"`
	}
	if err := decodeModelJSON(raw, &wrapper); err != nil {
		return nil, err
	}
	if wrapper.Documents == nil {
		wrapper.Documents = []RankedDocument{}
	}
	for i := range wrapper.Documents {
		wrapper.Documents[i].Relevance = clampScore(wrapper.Documents[i].Relevance)
	}
	return wrapper.Documents, nil
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

var breakMessages = []string{
	"Hey Mitch, you've been studying hard! Time for a well-deserved break.",
	"Great progress today! Your brain will thank you for a short break.",
	"You're doing amazing! Let's take a breather and come back refreshed.",
	"Study sessions are most effective with regular breaks. You've earned this one!",
}

// SuggestBreak returns an encouragement message once study time crosses the
// daily threshold: 120 minutes on weekdays, 90 on weekends. No model call is
// involved.
func (a *Assistant) SuggestBreak(minutesStudied int, day time.Weekday) (string, bool) {
	threshold := 120
	if day == time.Saturday || day == time.Sunday {
		threshold = 90
	}
	if minutesStudied < threshold {
		return "", false
	}
	return breakMessages[a.pick(len(breakMessages))], true
}

func buildHistory(history []Turn) string {
	if len(history) == 0 {
		return ""
	}
	lines := make([]string, 0, len(history))
	for _, turn := range history {
		role := "Mitch"
		if turn.Role == "assistant" {
			role = "Assistant"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", role, turn.Content))
	}
	return strings.Join(lines, "\n")
}

func extractSuggestions(content string) []string {
	lower := strings.ToLower(content)
	suggestions := []string{}
	if strings.Contains(lower, "study plan") {
		suggestions = append(suggestions, "Generate a study plan")
	}
	if strings.Contains(lower, "quiz") || strings.Contains(lower, "test") {
		suggestions = append(suggestions, "Create a practice quiz")
	}
	if strings.Contains(lower, "summary") || strings.Contains(lower, "summarize") {
		suggestions = append(suggestions, "Summarize this content")
	}
	if strings.Contains(lower, "break") || strings.Contains(lower, "rest") {
		suggestions = append(suggestions, "Take a break")
	}
	return suggestions
}

// decodeModelJSON strips markdown code fences the model may wrap around its
// answer and unmarshals the remainder.
func decodeModelJSON(raw string, v any) error {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
		text = strings.TrimSpace(text)
	}
	if err := json.Unmarshal([]byte(text), v); err != nil {
		return fmt.Errorf("decode model output: %v: %w", err, ErrBadModelOutput)
	}
	return nil
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
