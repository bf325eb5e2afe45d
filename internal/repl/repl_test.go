package repl

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskbridge/internal/history"
	"taskbridge/internal/jira"
	"taskbridge/internal/types"
)

type drafterFunc func(ctx context.Context, project, instruction string) (*types.IssueDraft, error)

func (f drafterFunc) DraftIssue(ctx context.Context, project, instruction string) (*types.IssueDraft, error) {
	return f(ctx, project, instruction)
}

type creatorFunc func(ctx context.Context, project string, draft types.IssueDraft) (*jira.CreateResult, error)

func (f creatorFunc) CreateIssue(ctx context.Context, project string, draft types.IssueDraft) (*jira.CreateResult, error) {
	return f(ctx, project, draft)
}

type stubRecorder struct {
	entries []history.Entry
}

func (s *stubRecorder) Record(_ context.Context, entry history.Entry) error {
	s.entries = append(s.entries, entry)
	return nil
}

func (s *stubRecorder) List(context.Context, int) ([]history.Entry, error) {
	return s.entries, nil
}

func newTestREPL(t *testing.T, drafter Drafter, creator IssueCreator, recorder Recorder) *REPL {
	t.Helper()
	r, err := New(&Config{
		Drafter:  drafter,
		Creator:  creator,
		Recorder: recorder,
		Project:  "PROJ",
	})
	require.NoError(t, err)
	r.ctx = context.Background()
	return r
}

func TestNewRequiresPipeline(t *testing.T) {
	_, err := New(&Config{Creator: creatorFunc(nil)})
	assert.Error(t, err)

	_, err = New(&Config{Drafter: drafterFunc(nil)})
	assert.Error(t, err)
}

func TestNewDefaultsProject(t *testing.T) {
	r, err := New(&Config{
		Drafter: drafterFunc(nil),
		Creator: creatorFunc(nil),
	})
	require.NoError(t, err)
	assert.Equal(t, "PROJ", r.project)
}

func TestProcessInputSwitchesProject(t *testing.T) {
	r := newTestREPL(t, drafterFunc(nil), creatorFunc(nil), nil)

	require.NoError(t, r.processInput("project ops"))
	assert.Equal(t, "OPS", r.project)

	require.NoError(t, r.processInput("project"))
	assert.Equal(t, "OPS", r.project)
}

func TestProcessInputCreatesIssue(t *testing.T) {
	var gotProject, gotInstruction string
	recorder := &stubRecorder{}

	drafter := drafterFunc(func(_ context.Context, project, instruction string) (*types.IssueDraft, error) {
		gotProject = project
		gotInstruction = instruction
		return &types.IssueDraft{Summary: "Fix login", Description: "d", IssueType: "bug"}, nil
	})
	creator := creatorFunc(func(_ context.Context, project string, draft types.IssueDraft) (*jira.CreateResult, error) {
		return &jira.CreateResult{
			Issue:      jira.CreatedIssue{Key: "PROJ-7"},
			Resolution: jira.Resolution{IssueTypeName: "Bug", PriorityName: "High"},
		}, nil
	})

	r := newTestREPL(t, drafter, creator, recorder)

	require.NoError(t, r.processInput("fix the login bug, high priority"))

	assert.Equal(t, "PROJ", gotProject)
	assert.Equal(t, "fix the login bug, high priority", gotInstruction)
	require.Len(t, recorder.entries, 1)
	assert.Equal(t, "PROJ-7", recorder.entries[0].IssueKey)
	assert.Equal(t, "bug", recorder.entries[0].RequestedType)
	assert.Equal(t, "Bug", recorder.entries[0].ResolvedType)
}

func TestProcessInputWrapsCreateFailure(t *testing.T) {
	drafter := drafterFunc(func(context.Context, string, string) (*types.IssueDraft, error) {
		return &types.IssueDraft{Summary: "s", Description: "d"}, nil
	})
	creator := creatorFunc(func(context.Context, string, types.IssueDraft) (*jira.CreateResult, error) {
		return nil, errors.New("boom")
	})

	r := newTestREPL(t, drafter, creator, nil)

	err := r.processInput("do something")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create issue")
}

func TestCmdRecentWithoutRecorder(t *testing.T) {
	r := newTestREPL(t, drafterFunc(nil), creatorFunc(nil), nil)
	assert.Error(t, r.cmdRecent(nil))
}

func TestCmdExitSignalsEOF(t *testing.T) {
	r := newTestREPL(t, drafterFunc(nil), creatorFunc(nil), nil)
	assert.Equal(t, io.EOF, r.cmdExit(nil))
}
