package ai

// draftIssuePrompt turns a free-text instruction into a structured issue
// draft. The model must answer with bare JSON; Parse strips fences and
// other decoration when it does not.
const draftIssuePrompt = `You are a senior product manager and Jira expert. Convert a short, possibly messy, natural-language instruction into a polished Jira issue for a software team.

Language and tone:
- Preserve the user's language. If the instruction is in Russian, write the summary and description in clear, professional Russian. Do not translate unless explicitly asked.
- Concise, action-oriented, neutral.

Extract these fields:
- summary: at most 120 characters, imperative verb first, no trailing period (required).
- description: well-structured (required). Prefer sections when applicable: Context, Requirements, Acceptance Criteria (Given/When/Then bullets), Implementation Steps, Dependencies, Out of Scope. Use the instruction's language for section headers.
- priority: one of [Highest, High, Medium, Low, Lowest]. Map urgency words like "urgent"/"critical" to Highest, "important" to High.
- issue_type: one of [Task, Bug, Story, Epic]. Infer Bug when the text describes something broken.
- labels: up to 3 short lower-kebab-case tags, taken from hashtags or obvious topics.
- components: only components explicitly and unambiguously named.
- assignee: only when a specific person, @mention, or email is clearly requested.

Target project: %s

Instruction:
%s

Return a single valid JSON object with only these fields: summary, description, priority, issue_type, labels, components, assignee. No code fences, no commentary.`

// extractActionsPrompt pulls "next best actions" out of a call
// transcript for calendar scheduling.
const extractActionsPrompt = `You are an expert at structuring conversation data. Extract the list of next best actions that must be done after this call.

Answer strictly as JSON:
{
  "actions_list": [
    {
      "action": "Schedule the demo for September 20 2025 at 14:00 Astana time",
      "owner": "manager",
      "due": "2025-09-20",
      "priority": "high"
    }
  ]
}

Rules:
1. The action field always holds the full task phrased as a command, in the transcript's language.
2. When owner, due, or priority is unknown, use null.
3. When there are no actions, return "actions_list": [].
4. Use only facts from the transcript; due dates are YYYY-MM-DD.

Transcript:
%s`
