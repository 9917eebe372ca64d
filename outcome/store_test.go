package outcome_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datasophos/NexusLIMS-sub001/iox"
	"github.com/datasophos/NexusLIMS-sub001/outcome"
	"github.com/datasophos/NexusLIMS-sub001/types"
)

func openStore(t *testing.T) *outcome.Store {
	t.Helper()
	s, err := outcome.Open(filepath.Join(t.TempDir(), "outcomes.db"))
	require.NoError(t, err)
	t.Cleanup(iox.CloseFunc(s))
	return s
}

func TestInsertResult_SuccessRow(t *testing.T) {
	s := openStore(t)

	r := types.NewSuccess("cdcs", "rec-1", "http://cdcs.example/data/rec-1")
	require.NoError(t, s.InsertResult(context.Background(), "sess-001", r))

	rows, err := s.BySession(context.Background(), "sess-001")
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, "sess-001", row.SessionID)
	assert.Equal(t, "cdcs", row.Destination)
	assert.True(t, row.Success)
	require.NotNil(t, row.RecordID)
	assert.Equal(t, "rec-1", *row.RecordID)
	require.NotNil(t, row.RecordURL)
	assert.Equal(t, "http://cdcs.example/data/rec-1", *row.RecordURL)
	assert.Nil(t, row.ErrorMessage)
	assert.NotEmpty(t, row.AttemptID)
	assert.False(t, row.Timestamp.IsZero())
}

func TestInsertResult_FailureRow(t *testing.T) {
	s := openStore(t)

	require.NoError(t, s.InsertResult(context.Background(), "sess-001", types.NewFailure("elabftw", "timeout")))

	rows, err := s.BySession(context.Background(), "sess-001")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.False(t, rows[0].Success)
	require.NotNil(t, rows[0].ErrorMessage)
	assert.Equal(t, "timeout", *rows[0].ErrorMessage)
	assert.Nil(t, rows[0].RecordID)
	assert.Nil(t, rows[0].RecordURL)
}

func TestInsertResult_MetadataSerializedToJSON(t *testing.T) {
	s := openStore(t)

	r := types.NewSuccess("labarchives", "la-1", "http://la.example/1").
		WithMetadata(map[string]any{"cdcs_link_embedded": true})
	require.NoError(t, s.InsertResult(context.Background(), "sess-001", r))

	rows, err := s.BySession(context.Background(), "sess-001")
	require.NoError(t, err)
	require.NotNil(t, rows[0].MetadataJSON)
	assert.JSONEq(t, `{"cdcs_link_embedded": true}`, *rows[0].MetadataJSON)
}

func TestInsertResult_EmptyMetadataLeavesColumnNull(t *testing.T) {
	s := openStore(t)

	require.NoError(t, s.InsertResult(context.Background(), "sess-001", types.NewSuccess("cdcs", "1", "")))

	rows, err := s.BySession(context.Background(), "sess-001")
	require.NoError(t, err)
	assert.Nil(t, rows[0].MetadataJSON)
}

func TestInsertResult_AppendOnlyPerAttempt(t *testing.T) {
	s := openStore(t)

	// Two runs against the same session/destination pair produce two rows,
	// never an update of the first.
	require.NoError(t, s.InsertResult(context.Background(), "sess-001", types.NewFailure("cdcs", "network error")))
	require.NoError(t, s.InsertResult(context.Background(), "sess-001", types.NewSuccess("cdcs", "rec-2", "")))

	rows, err := s.BySession(context.Background(), "sess-001")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.False(t, rows[0].Success)
	assert.True(t, rows[1].Success)
	assert.NotEqual(t, rows[0].AttemptID, rows[1].AttemptID)
}

func TestBySession_ScopedToSession(t *testing.T) {
	s := openStore(t)

	require.NoError(t, s.InsertResult(context.Background(), "sess-001", types.NewSuccess("cdcs", "1", "")))
	require.NoError(t, s.InsertResult(context.Background(), "sess-002", types.NewSuccess("cdcs", "2", "")))

	rows, err := s.BySession(context.Background(), "sess-002")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "sess-002", rows[0].SessionID)
}

func TestHistory_NewestFirstWithLimit(t *testing.T) {
	s := openStore(t)

	for _, sess := range []string{"sess-001", "sess-002", "sess-003"} {
		require.NoError(t, s.InsertResult(context.Background(), sess, types.NewSuccess("cdcs", "", "")))
	}

	rows, err := s.History(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "sess-003", rows[0].SessionID)
	assert.Equal(t, "sess-002", rows[1].SessionID)
}
