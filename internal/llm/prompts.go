package llm

import (
	"fmt"
	"sort"
	"strings"

	"cicerone/pkg/types"
)

// slotDescriptions maps slot names to the phrasing used in prompts. Unknown
// slots fall back to their raw name.
var slotDescriptions = map[string]string{
	"location":      "the city or area",
	"food_type":     "the type of cuisine",
	"budget":        "the price range",
	"time":          "the time of day",
	"activity_type": "the type of activity",
	"date":          "the date or period",
}

func describeSlot(slot string) string {
	if d, ok := slotDescriptions[slot]; ok {
		return d
	}
	return strings.ReplaceAll(slot, "_", " ")
}

// ExtractionPrompt builds the prompt for the intent/slot/emotion extractor.
// The expected reply is line-oriented so that small local models can produce
// it reliably; ParseExtraction also accepts a JSON object as a fallback.
func ExtractionPrompt(message string, intents []string) string {
	var b strings.Builder
	b.WriteString("You are an expert at analyzing tourism requests. Analyze the user message and extract:\n")
	fmt.Fprintf(&b, "1. The main intent, one of: %s, or \"unknown\".\n", strings.Join(intents, ", "))
	b.WriteString("2. The filled slots among: location, food_type, budget, time, activity_type, date. Leave a slot empty when the message does not mention it; never invent values.\n")
	b.WriteString("3. The user's emotion in one word (e.g. neutral, happy, frustrated).\n")
	b.WriteString("4. Whether the message merely picks one of the options previously offered (\"I'll take the first one\") instead of giving new information.\n")
	b.WriteString("5. When the user asks about something already discussed earlier in the conversation, the question to look up, otherwise leave it empty.\n")
	b.WriteString("\nReply in exactly this format with no other text:\n")
	b.WriteString("Intent: <intent>\n")
	b.WriteString("Emotion: <emotion>\n")
	b.WriteString("Selection: <yes|no>\n")
	b.WriteString("Recall: <question or empty>\n")
	b.WriteString("Slots:\n")
	b.WriteString("- location: <value or empty>\n")
	b.WriteString("- food_type: <value or empty>\n")
	b.WriteString("- budget: <value or empty>\n")
	b.WriteString("- time: <value or empty>\n")
	b.WriteString("- activity_type: <value or empty>\n")
	b.WriteString("- date: <value or empty>\n")
	fmt.Fprintf(&b, "\nMessage to analyze: %s\n", message)
	return b.String()
}

// QuestionPrompt builds the prompt that generates the next clarifying
// question. The contract is a single open question about missingSlot, with no
// options enumerated.
func QuestionPrompt(intent, missingSlot string, known types.SlotSet, emotion string) string {
	var b strings.Builder
	b.WriteString("You are a tourism assistant helping a user refine a request. ")
	b.WriteString("Ask ONE short, natural, open question to learn ")
	b.WriteString(describeSlot(missingSlot))
	b.WriteString(". Do not list possible answers, do not mention being an assistant, and do not ask about anything already known.\n\n")
	fmt.Fprintf(&b, "Request type: %s\n", intent)
	fmt.Fprintf(&b, "User's mood: %s\n", emotion)
	b.WriteString("Already known:\n")
	b.WriteString(formatKnownSlots(known))
	b.WriteString("\nReply with only the question.\n")
	return b.String()
}

// AnswerPrompt builds the prompt that generates the final answer once all
// required slots are filled. Search results, when present, are the only
// factual evidence the answer may cite.
func AnswerPrompt(intent string, known types.SlotSet, emotion string, searchResults string) string {
	var b strings.Builder
	b.WriteString("You are a tourism assistant. Write a concise, helpful recommendation for the user's request using only the verified information below. ")
	b.WriteString("Mention names, addresses, and opening hours when available; when the evidence is thin, suggest reliable sources instead of inventing details. ")
	b.WriteString("Match the user's mood and end with a short open question.\n\n")
	fmt.Fprintf(&b, "Request type: %s\n", intent)
	fmt.Fprintf(&b, "User's mood: %s\n", emotion)
	b.WriteString("Request details:\n")
	b.WriteString(formatKnownSlots(known))
	b.WriteString("\nSearch results:\n")
	if searchResults == "" {
		b.WriteString("(none available)\n")
	} else {
		b.WriteString(searchResults)
		b.WriteString("\n")
	}
	return b.String()
}

// RecallPrompt builds the prompt that answers "what did we already discuss"
// questions from persisted exchanges. The expected reply is a JSON object
// {"found": bool, "confidence": "high"|"medium"|"low", "information": "..."}.
func RecallPrompt(query string, documents []string) string {
	var b strings.Builder
	b.WriteString("Search the conversation history below for information answering the question. ")
	b.WriteString("Reply with only a JSON object of the form ")
	b.WriteString(`{"found": true/false, "confidence": "high"/"medium"/"low", "information": "<what you found>"}.`)
	b.WriteString(" Use \"low\" confidence when you are unsure.\n\n")
	fmt.Fprintf(&b, "Question: %s\n\nHistory:\n", query)
	for i, doc := range documents {
		fmt.Fprintf(&b, "--- exchange %d ---\n%s\n", i+1, doc)
	}
	return b.String()
}

// formatKnownSlots renders the filled slots one per line, sorted by name so
// prompts are deterministic.
func formatKnownSlots(known types.SlotSet) string {
	names := known.Names()
	if len(names) == 0 {
		return "(nothing yet)\n"
	}
	sort.Strings(names)
	var b strings.Builder
	for _, name := range names {
		v, _ := known.Get(name)
		fmt.Fprintf(&b, "- %s: %s\n", describeSlot(name), v)
	}
	return b.String()
}
