package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-originality/internal/adapters/driven/memory"
	"github.com/custodia-labs/sercha-originality/internal/core/domain"
)

func sampleReport(docID string, score float64) *domain.PlagiarismReport {
	return &domain.PlagiarismReport{
		DocumentID:       docID,
		OriginalityScore: score,
		Matches:          []domain.Match{},
		Statistics:       domain.ReportStatistics{TotalWords: 42},
	}
}

func TestReportService_RecordAndGet(t *testing.T) {
	svc := NewReportService(memory.NewReportStore(), quietLogger())
	alice := &domain.AuthContext{Subject: "alice", Role: domain.RoleMember}

	rec, err := svc.Record(context.Background(), "alice", sampleReport("doc-1", 91.5), 300)
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, 42, rec.WordCount)
	assert.Equal(t, 300, rec.TextLength)

	got, err := svc.Get(context.Background(), alice, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "doc-1", got.Report.DocumentID)
}

func TestReportService_Ownership(t *testing.T) {
	svc := NewReportService(memory.NewReportStore(), quietLogger())
	bob := &domain.AuthContext{Subject: "bob", Role: domain.RoleMember}
	admin := &domain.AuthContext{Subject: "root", Role: domain.RoleAdmin}

	rec, err := svc.Record(context.Background(), "alice", sampleReport("doc-1", 50), 10)
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), bob, rec.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.ErrorIs(t, svc.Delete(context.Background(), bob, rec.ID), domain.ErrForbidden)

	_, err = svc.Get(context.Background(), admin, rec.ID)
	assert.NoError(t, err)

	_, err = svc.Get(context.Background(), nil, rec.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestReportService_History(t *testing.T) {
	svc := NewReportService(memory.NewReportStore(), quietLogger())
	alice := &domain.AuthContext{Subject: "alice", Role: domain.RoleMember}

	for i := range 3 {
		_, err := svc.Record(context.Background(), "alice", sampleReport("doc", float64(i)), 10)
		require.NoError(t, err)
	}
	_, err := svc.Record(context.Background(), "bob", sampleReport("other", 1), 10)
	require.NoError(t, err)

	history, err := svc.History(context.Background(), alice, 0)
	require.NoError(t, err)
	assert.Len(t, history, 3)
	for _, h := range history {
		assert.Equal(t, "doc", h.DocumentID)
	}

	limited, err := svc.History(context.Background(), alice, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	_, err = svc.History(context.Background(), nil, 10)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestReportService_Delete(t *testing.T) {
	svc := NewReportService(memory.NewReportStore(), quietLogger())
	alice := &domain.AuthContext{Subject: "alice", Role: domain.RoleMember}

	rec, err := svc.Record(context.Background(), "alice", sampleReport("doc-1", 50), 10)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), alice, rec.ID))
	_, err = svc.Get(context.Background(), alice, rec.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(context.Background(), alice, rec.ID), domain.ErrNotFound)
}

func TestReportService_RecordNil(t *testing.T) {
	svc := NewReportService(memory.NewReportStore(), quietLogger())
	_, err := svc.Record(context.Background(), "alice", nil, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestReportService_Prune(t *testing.T) {
	svc := NewReportService(memory.NewReportStore(), quietLogger())
	alice := &domain.AuthContext{Subject: "alice", Role: domain.RoleMember}

	_, err := svc.Record(context.Background(), "alice", sampleReport("doc-1", 90), 10)
	require.NoError(t, err)

	removed, err := svc.Prune(context.Background(), time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, removed, "recent records are kept")

	removed, err = svc.Prune(context.Background(), time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	history, err := svc.History(context.Background(), alice, 0)
	require.NoError(t, err)
	assert.Empty(t, history)
}
