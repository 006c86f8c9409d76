package prompt

import (
	"fmt"
	"regexp"
	"strings"
)

// Template 把策略文本与运行时数据渲染成完整提示词
type Template interface {
	Name() string
	Render(policyText string, rt *Runtime) string
}

// ---------------------------------------------------------------------------
// Stage 1：意图分类

type IntentClassificationTemplate struct{}

func (IntentClassificationTemplate) Name() string { return "intent_classification" }

func (IntentClassificationTemplate) Render(policyText string, rt *Runtime) string {
	projectInfo := ""
	if rt.Project != nil {
		desc := rt.Project.Description
		if len(desc) > 100 {
			desc = desc[:100]
		}
		projectInfo = fmt.Sprintf("Project: %s - %s", rt.Project.Name, desc)
	}

	var docNames []string
	for i, d := range rt.Documents {
		if i >= 5 {
			break
		}
		docNames = append(docNames, d.Name)
	}
	docList := "None"
	if len(docNames) > 0 {
		docList = strings.Join(docNames, ", ")
	}

	conversationContext := BuildConversationContext(rt.ChatHistory, rt.HistoryWindow)

	task := fmt.Sprintf(`Classify the user's intent based on their message and the conversation context.

CONVERSATION HISTORY:
%s

CURRENT MESSAGE: "%s"

PROJECT CONTEXT:
%s
Documents: %s`, conversationContext, rt.UserMessage, projectInfo, docList)

	outputFormat := `{
    "action": "UPDATE_DOCUMENT | SHOW_DOCUMENT | CREATE_DOCUMENT | DELETE_DOCUMENT | ANSWER_ONLY | LIST_DOCUMENTS | NEEDS_CLARIFICATION",
    "targets": [
        {
            "document_name": "Python Guide",
            "summary": "Brief description of why this document is relevant",
            "role": "primary"
        }
    ],
    "new_document": { "name": "optional document name" },
    "confidence": 0.0-1.0,
    "intent_statement": "What user wants in CURRENT MESSAGE only (use history for context, not for intent)"
}`

	return fmt.Sprintf("%s\n\nTASK:\n%s\n\nOUTPUT FORMAT:\n%s", policyText, task, outputFormat)
}

// ---------------------------------------------------------------------------
// Stage 2：决策

// DecisionTemplate 按意图类型渲染决策提示词。
// intentType 取 "conversation"、"edit"、"create"、"delete"、"clarify" 之一。
type DecisionTemplate struct {
	IntentType string
}

func (DecisionTemplate) Name() string { return "agent_decision" }

func (t DecisionTemplate) Render(policyText string, rt *Runtime) string {
	date := rt.Date

	var taskParts []string
	if rt.Project != nil {
		taskParts = append(taskParts, fmt.Sprintf("Project: %s (id:%s)", rt.Project.Name, rt.Project.ID))
	}
	if intentCtx := buildIntentContext(rt.Intent); intentCtx != "" {
		taskParts = append(taskParts, intentCtx)
	}
	taskParts = append(taskParts,
		fmt.Sprintf("Current Date Context: Today is %s, current year is %d", date.DateStr, date.Year),
		"",
		"Documents:",
		BuildDocumentsList(rt.Documents, 2000),
		"",
		fmt.Sprintf("User: %q", rt.UserMessage),
	)
	task := strings.Join(taskParts, "\n")

	switch t.IntentType {
	case "conversation":
		task += "\n\n" + conversationTaskSection(date)
	case "edit":
		task += "\n\n" + editTaskSection
	case "create":
		task += "\n\n" + createTaskSection
	case "delete":
		task += "\n\n" + deleteTaskSection
	case "clarify":
		task += "\n\n" + clarifyTaskSection
	}
	task += "\n\n" + commonTaskSections(date)

	outputFormat := `{
    "should_edit": boolean,
    "should_create": boolean,
    "should_delete": boolean,
    "document_id": string|null,
    "document_name": string|null,
    "document_content": string|null,
    "standing_instruction": string|null,
    "edit_scope": "selective"|"full"|null,
    "needs_clarification": boolean,
    "pending_confirmation": boolean,
    "needs_web_search": boolean,
    "search_query": string|null,
    "clarification_question": string|null,
    "confirmation_prompt": string|null,
    "intent_statement": string|null,
    "reasoning": string,
    "conversational_response": string|null,
    "change_summary": string|null,
    "content_summary": string|null
}`

	return fmt.Sprintf("%s\n\nTASK:\n%s\n\nOUTPUT FORMAT:\n%s", policyText, task, outputFormat)
}

func buildIntentContext(meta *IntentMetadata) string {
	if meta == nil {
		return ""
	}
	ctx := fmt.Sprintf("STAGE 1 CLASSIFICATION:\n- Action: %s\n- Intent: %s\n- Target Documents: %d document(s) identified",
		meta.Action, meta.IntentStatement, len(meta.Targets))
	for _, target := range meta.Targets {
		if target.Role != "primary" {
			continue
		}
		ctx += fmt.Sprintf("\n- Primary target: %s (id: %s)", target.DocumentName, target.DocumentID)
		if target.Summary != "" {
			ctx += "\n  Summary: " + target.Summary
		}
		break
	}
	return ctx
}

func conversationTaskSection(date DateContext) string {
	return fmt.Sprintf(`**CRITICAL: This is a CONVERSATION/ANSWER_ONLY action from Stage 1**
- should_edit: MUST be false (do NOT edit documents)
- should_create: MUST be false (do NOT create documents)
- Only provide answers, explanations, or information

Provide helpful response:
- General knowledge questions: use web search if needed, provide direct answer
  * "who is the current president" → needs_web_search: true, search_query: "current president of US %d"
  * "what happened in December" → needs_web_search: true, search_query uses most recent December (December %d, based on current date: %s)
  * When web search results are provided, use SPECIFIC information from them (names, dates, events)
- Actionable advice/strategy questions ("what can I do", "how do I", "how to") → needs_web_search: true
- Greetings: include project summary + doc list
- Questions about documents: answer based on doc content and conversation history
- "Summarize": provide doc summary in chat (don't edit)
- For location questions ("where did you save"): reference specific document names and what was done`,
		date.Year, date.MostRecentDecemberYear, date.DateStr)
}

const editTaskSection = `Action words: add, update, change, remove, edit, rewrite, modify, delete, insert, save, put

**CRITICAL: Content Alignment Validation**
Before deciding to edit an existing document, check if the request aligns with the document's topic:
- If request topic doesn't align: user explicitly named the document → proceed; otherwise → should_create: true, should_edit: false

Special cases:
- "save it/that/this" → save content from conversation history to a document
  * If user mentioned a document name, use that document
  * If no match or misaligned → CREATE a new one with inferred name

Document Resolution:
1. Name match (case-insensitive)
2. Content alignment check
3. Content match ("add hotels" → travel/itinerary doc)
4. Topic match ("edit the document about [topic]")
5. Context ("save it", "add it there") → check conversation history for content and document reference
6. If multiple match → use most relevant
7. If no match but user explicitly said "edit the document about [topic]" → should_edit: true, document_id: null
8. If request topic doesn't align with any existing document → should_create: true, should_edit: false

Edit Scope:
- "selective": small changes (heading, section, add to X, improve, update, enhance) → preserve all else
- "full": only if user explicitly says "rewrite entire" or "complete overhaul"; even then preserve ALL sections and headings

CRITICAL: For selective edits, preserve ALL other content unchanged. For "full" edits, preserve ALL sections even if content is rewritten.`

const createTaskSection = `BEFORE creating:
1. Infer doc name from request:
   - "create a script" → "Script" or "Video Script"
   - "make a new document about [topic]" → use topic as name
   - CRITICAL: "write/create/make a document on it/that/this" → extract topic from the MOST RECENT assistant response and use it as the name
2. Check if doc with that name exists → if yes, EDIT instead (UNLESS user explicitly said "new document")
3. Only create if NO matching name exists OR user explicitly said "new document"

CRITICAL: "make a new document" keywords take PRIORITY; on name conflict append a number or use the topic as name.

Document Name: extract intelligently, capitalize properly. REQUIRED if should_create is true.
Document Content: generate based on conversation context, referenced documents, and the inferred purpose. Include it in document_content.`

const deleteTaskSection = `BEFORE deleting:
1. Resolve the document: name match (case-insensitive), or anaphoric reference ("delete it") via conversation history. If no match → needs_clarification: true.
2. Confirmation handling:
   - CRITICAL: Always set pending_confirmation: true for deletion requests (destructive action)
   - When user confirms ("yes", "go ahead", "proceed") after a confirmation prompt → should_delete: true, pending_confirmation: false
   - When user says "no", "cancel", "don't" → should_delete: false, pending_confirmation: false
3. document_id: required if should_delete: true
4. confirmation_prompt: required if pending_confirmation: true, format "Are you sure you want to delete [document name]?"
5. Deletion is permanent. Only proceed when the user explicitly confirms.`

const clarifyTaskSection = `Only ask when:
- Multiple docs could match AND truly ambiguous
- Info doesn't exist AND can't be inferred
- Intent completely unclear

FORBIDDEN: Don't ask if info exists in docs or can be inferred.`

func commonTaskSections(date DateContext) string {
	return fmt.Sprintf(`WEB SEARCH:
ALWAYS search for:
- General knowledge questions: "who is", "what is", "when did", "where is"
- Questions about recent events/changes; for month-only queries use the most recent occurrence (most recent December: December %d)
- "latest", "current", "new version", "recent", "up-to-date"
- Safety-critical information, new products, current prices, time-sensitive data, travel/location information
CRITICAL: If editing a document that is ABOUT "latest [thing]" or "current [thing]", even "make more verbose" or "improve" → needs_web_search: true
Never search: stable knowledge, creative content, user's personal notes

CRITICAL - Search Query Generation:
- ALWAYS use the current year (%d) unless the user explicitly mentions a different year
- For month-only queries, infer the most recent occurrence based on the current date (%s)

DESTRUCTIVE ACTIONS:
Set pending_confirmation: true for delete, remove, clear, large structural changes

CONFIRMATION HANDLING:
- When user confirms ("yes", "ok", "go ahead", "proceed", "sure") after a confirmation prompt:
  * Check chat history for the most recent message with pending confirmation
  * Inherit the pending action (should_edit/should_create/should_delete) and set pending_confirmation: false
- When user says "no", "cancel", "don't" → clear all action flags and pending_confirmation

FIELD RULES:
- should_edit: true for explicit edit requests including "save it/that/this"
- should_create: true for "create a [noun]" patterns; check for existing name first (if exists → should_edit instead)
- should_delete: true only for explicit delete requests confirmed by the user
- document_id: required if should_edit or should_delete; resolve by name match, conversation context, or most relevant document; if truly unclear → needs_clarification: true
- search_query: required if needs_web_search: true; include the current year (%d)
- edit_scope: "selective" for small changes including "save it", "full" for large
- intent_statement: required for document operations; first person past tense ("I have updated...")
- content_summary: required if should_edit or should_create; active voice without pronouns ("Added a section on...")`,
		date.MostRecentDecemberYear, date.Year, date.DateStr, date.Year)
}

// ---------------------------------------------------------------------------
// 文档改写

// RewriteTemplate 改写提示词。EditScope 为 "selective"、"full" 或空。
type RewriteTemplate struct {
	EditScope string
}

func (RewriteTemplate) Name() string { return "document_rewrite" }

var confirmationWords = map[string]bool{
	"yes": true, "ok": true, "okay": true, "sure": true, "yeah": true,
	"yep": true, "proceed": true, "go ahead": true, "do it": true,
}

func (t RewriteTemplate) Render(policyText string, rt *Runtime) string {
	effectiveRequest := rt.UserMessage
	taskNote := ""
	if rt.IntentStatement != "" && confirmationWords[strings.ToLower(strings.TrimSpace(rt.UserMessage))] {
		effectiveRequest = rt.IntentStatement
		taskNote = fmt.Sprintf("Note: User confirmed with %q. The full intent is: %s", rt.UserMessage, rt.IntentStatement)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Update document based on user request. Request: %q\n%s\n\n", effectiveRequest, taskNote)
	sb.WriteString(`CRITICAL: Read the "Current Content" section below FIRST before making any changes.
Understand the existing structure, format, and content, then build upon it.

Standing Instruction: ` + rt.StandingInstruction + `

=== CURRENT CONTENT (READ THIS FIRST) ===
` + rt.CurrentContent + `
=== END OF CURRENT CONTENT ===

`)
	sb.WriteString(t.scopeInstructions(rt.UserMessage))
	sb.WriteString(renderWebSearchSection(rt.WebSearchResults))
	sb.WriteString(renderValidationErrors(rt.ValidationErrors))
	sb.WriteString(`

Output Requirements:
- Pure markdown (NO HTML tags)
- Preserve ALL formatting: tables, links, images, code blocks, lists, headings
- Preserve ALL sections not mentioned in request
- Build upon existing content - don't replace it unless explicitly asked
- Match existing style, tone, and format
- MANDATORY: If web search results were provided above, the document MUST end with a "## Sources" section listing ALL URLs as - [Title](URL)
- Return ONLY markdown content (no explanations)`)

	return fmt.Sprintf("%s\n\nTASK:\n%s", policyText, sb.String())
}

func (t RewriteTemplate) scopeInstructions(userMessage string) string {
	switch t.EditScope {
	case "selective":
		return fmt.Sprintf(`SELECTIVE EDIT - Build upon existing content:
1. Read the Current Content first: understand the structure, format, style, and existing information
2. Identify what needs to change based on %q
3. Build upon existing content: keep the same structure, format, and style; update only the relevant parts
4. Preserve ALL other content exactly: everything not mentioned in the request stays the same

CRITICAL FOR SECTION REMOVAL:
- If user asks to remove specific sections, ONLY remove those exact sections
- Do NOT remove sections with similar names or content - only exact matches
- After removal, all remaining sections must appear in the same order and format

Examples:
- "replace heading" → change ONLY heading text, keep everything else
- "add to section X" → modify ONLY section X, preserve rest
- "change title" → change ONLY title, preserve all content`, userMessage)
	case "full":
		return `FULL REWRITE - Preserve ALL sections and structure:
- You may modify content extensively BUT must preserve ALL headings and sections (even if you rewrite their content)
- DO NOT remove sections unless explicitly asked
- If restructuring: maintain all original sections, just reorganize
- CRITICAL: Every heading in the original must appear in the output (unless explicitly asked to remove)`
	default:
		return fmt.Sprintf(`Preserve ALL content unless explicitly asked to remove:
1. Read the Current Content first
2. Identify what to change based on %q
3. Build upon existing content: update relevant parts while preserving structure and style
4. Preserve everything else: all content not mentioned in the request stays the same`, userMessage)
	}
}

var (
	searchURLPattern   = regexp.MustCompile(`URL:\s*(https?://\S+)`)
	searchTitlePattern = regexp.MustCompile(`Title:\s*([^\n]+)`)
)

func renderWebSearchSection(results string) string {
	if results == "" {
		return ""
	}

	urls := searchURLPattern.FindAllStringSubmatch(results, -1)
	titles := searchTitlePattern.FindAllStringSubmatch(results, -1)

	var sources []string
	for i, u := range urls {
		if i >= 5 {
			break
		}
		title := "Source"
		if i < len(titles) {
			title = strings.TrimSpace(titles[i][1])
		}
		sources = append(sources, fmt.Sprintf("- [%s](%s)", title, u[1]))
	}

	return fmt.Sprintf(`
Web Search Results:
%s

MANDATORY - Web Search Source Attribution (DO NOT SKIP):
1. Find ALL "URL:" lines in the web search results above
2. Extract the Title from the line immediately before each URL
3. Add a "## Sources" section at the VERY END of the document
4. Format each source as: - [Title](URL)
5. Include ALL URLs, even if you only used part of the content

Expected Sources Section Format:
## Sources
%s

The Sources section MUST be the last thing in the document. If you skip this, the document is incomplete and invalid.
`, results, strings.Join(sources, "\n"))
}

var lostSectionsPattern = regexp.MustCompile(`:\s*([^.]+)`)

func renderValidationErrors(validationErrors []string) string {
	if len(validationErrors) == 0 {
		return ""
	}

	// 从错误信息里提取被误删的章节名
	var sections []string
	seen := map[string]bool{}
	for _, e := range validationErrors {
		if !strings.Contains(e, "Lost") || !strings.Contains(e, "sections") {
			continue
		}
		m := lostSectionsPattern.FindStringSubmatch(e)
		if m == nil {
			continue
		}
		for _, s := range strings.Split(m[1], ",") {
			s = strings.TrimSpace(s)
			if s == "" || strings.HasPrefix(s, "and ") || seen[s] {
				continue
			}
			seen[s] = true
			sections = append(sections, s)
		}
	}

	out := "\n\nCRITICAL - Previous attempt had validation issues:\n" + strings.Join(validationErrors, "\n") + "\n\nYou MUST fix these issues:\n"
	if len(sections) > 0 {
		out += "- The following sections were ACCIDENTALLY removed and MUST be restored:\n"
		for _, s := range sections {
			out += "  * " + s + "\n"
		}
		out += "- These sections were NOT requested to be removed by the user\n"
	} else {
		out += "- Restore ALL missing sections mentioned above (they were accidentally removed)\n"
	}
	out += `- Preserve ALL original headings and sections that were NOT explicitly requested to be removed
- Only remove the sections explicitly mentioned in the user's request
- Keep everything else completely intact`
	return out
}

// ---------------------------------------------------------------------------
// 纯对话

type ConversationalTemplate struct {
	HasWebSearch bool
}

func (ConversationalTemplate) Name() string { return "conversational" }

func (t ConversationalTemplate) Render(policyText string, rt *Runtime) string {
	userLower := strings.ToLower(rt.UserMessage)
	date := rt.Date

	var task string
	switch {
	case strings.Contains(userLower, "where") || strings.Contains(userLower, "what did you"):
		webPart := ""
		if rt.WebSearchResults != "" {
			webPart = "\nWeb Search Results (use this information to answer the user's question):\n" + rt.WebSearchResults + "\n"
		}
		task = fmt.Sprintf(`User is asking about location/status of documents or changes.

Context from conversation history:
%s
%s
User question: %q

Provide a clear answer:
- If context mentions a document was created/updated, tell user the document name
- Reference specific document names from the context
- Be specific about what was done and where
- If web search results are provided, use them to provide accurate, up-to-date information

Answer: Provide the information directly. If including a closing statement, add 2-3 blank lines BEFORE it.`,
			rt.Context, webPart, rt.UserMessage)

	case rt.WebSearchResults != "":
		task = fmt.Sprintf(`=== WEB SEARCH COMPLETED ===
A web search has ALREADY been performed. The results are below.

SEARCH RESULTS:
%s

=== YOUR TASK ===
Read the search results above and answer this question: %q

MANDATORY FORMAT:
- Start your response IMMEDIATELY with the answer
- Extract the answer from the "Content:" sections in the search results above
- For "who is" questions, use the EXACT name from the Content sections
- The search results are MORE CURRENT than your training data (current as of %s)

DO NOT say "I will search" or "Let me look" - the search is already done.

Answer now:`, rt.WebSearchResults, rt.UserMessage, date.DateStr)

	default:
		contextPart := ""
		if rt.Context != "" {
			contextPart = "Context: " + rt.Context + "\n"
		}
		task = fmt.Sprintf(`Helpful assistant for document management.

CURRENT USER QUESTION (answer this one): %q

CRITICAL: Answer the question above. Chat history below is for context only - do not answer previous questions.

%s
Response: Helpful, friendly, concise. For "summarize" or "read", provide content summary in chat.

Current date context: Today is %s, current year is %d
- When user asks about "this year" or "current year" → use %d
- When user asks about a month without a year, use the most recent occurrence of that month based on the current date

CRITICAL - Formatting for closing statements:
- If you include a closing pleasantry, add 2-3 blank lines BEFORE it to separate the information from the pleasantry`,
			rt.UserMessage, contextPart, date.DateStr, date.Year, date.Year)
	}

	return fmt.Sprintf("%s\n\nTASK:\n%s", policyText, task)
}
