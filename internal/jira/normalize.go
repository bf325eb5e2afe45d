package jira

import "strings"

// issueTypeSynonyms maps normalized issue-type spellings to the
// canonical token used for matching against project metadata.
var issueTypeSynonyms = map[string]string{
	"user story": "story",
	"story":      "story",
	"sub task":   "sub-task",
	"subtask":    "sub-task",
}

// prioritySynonyms maps normalized priority spellings to Jira's
// standard priority ladder.
var prioritySynonyms = map[string]string{
	"p0":       "highest",
	"blocker":  "highest",
	"critical": "highest",
	"urgent":   "highest",
	"p1":       "high",
	"major":    "high",
	"p2":       "medium",
	"normal":   "medium",
	"p3":       "low",
	"minor":    "low",
	"p4":       "lowest",
	"trivial":  "lowest",
}

// normalizeName lowercases, maps underscores and hyphens to spaces, and
// collapses runs of whitespace. Total and deterministic.
func normalizeName(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, "_", " ")
	s = strings.ReplaceAll(s, "-", " ")
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeIssueTypeName maps a free-form issue-type spelling to its
// canonical token. Unrecognized input passes through normalized.
func NormalizeIssueTypeName(raw string) string {
	s := normalizeName(raw)
	if canonical, ok := issueTypeSynonyms[s]; ok {
		return canonical
	}
	return s
}

// NormalizePriorityName maps a free-form priority spelling to its
// canonical token. Unrecognized input passes through normalized.
func NormalizePriorityName(raw string) string {
	s := normalizeName(raw)
	if canonical, ok := prioritySynonyms[s]; ok {
		return canonical
	}
	return s
}
