package reconcile

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func issuesByKind(issues []DataQualityIssue) map[IssueKind][]DataQualityIssue {
	m := make(map[IssueKind][]DataQualityIssue)
	for _, issue := range issues {
		m[issue.Kind] = append(m[issue.Kind], issue)
	}
	return m
}

func TestAnalyzeAssignments(t *testing.T) {
	t.Run("clean rows produce no issues", func(t *testing.T) {
		rows := []AssignmentRow{
			row("S1", "1", "Alpha", "T1"),
			row("S2", "2", "Beta", "T2"),
		}

		assert.Empty(t, AnalyzeAssignments(rows))
	})

	t.Run("missing signature", func(t *testing.T) {
		rows := []AssignmentRow{
			row("", "1", "Alpha", "T1"),
			row("   ", "2", "Beta", "T2"),
			row("S3", "3", "Gamma", "T3"),
		}

		byKind := issuesByKind(AnalyzeAssignments(rows))

		require.Len(t, byKind[IssueMissingSignature], 1)
		issue := byKind[IssueMissingSignature][0]
		assert.Equal(t, SeverityHigh, issue.Severity)
		assert.Equal(t, 2, issue.Count)
		assert.Len(t, issue.Rows, 2)
	})

	t.Run("missing mid", func(t *testing.T) {
		rows := []AssignmentRow{
			row("S1", "", "Alpha", "T1"),
			row("S2", "2", "Beta", "T2"),
		}

		byKind := issuesByKind(AnalyzeAssignments(rows))

		require.Len(t, byKind[IssueMissingMID], 1)
		assert.Equal(t, SeverityHigh, byKind[IssueMissingMID][0].Severity)
		assert.Len(t, byKind[IssueMissingMID][0].Rows, 1)
	})

	t.Run("duplicate serial across merchants triggers both checks", func(t *testing.T) {
		// One serial in 3 rows under 2 distinct merchants
		rows := []AssignmentRow{
			row("AB-100", "1", "Alpha", "T1"),
			row("AB-100", "1", "Alpha", "T2"),
			row("AB-100", "2", "Beta", "T3"),
		}

		byKind := issuesByKind(AnalyzeAssignments(rows))

		require.Len(t, byKind[IssueDuplicateSignature], 1)
		dup := byKind[IssueDuplicateSignature][0]
		assert.Equal(t, "AB-100", dup.Serial)
		assert.Equal(t, 3, dup.Count)
		assert.Equal(t, SeverityHigh, dup.Severity)

		require.Len(t, byKind[IssueSignatureConflict], 1)
		conflict := byKind[IssueSignatureConflict][0]
		assert.Equal(t, "AB-100", conflict.Serial)
		assert.Equal(t, []string{"1", "2"}, conflict.MerchantIDs)
		assert.Len(t, conflict.Rows, 3)
	})

	t.Run("same serial for one merchant with several TIDs is not a conflict", func(t *testing.T) {
		rows := []AssignmentRow{
			row("AB-100", "1", "Alpha", "T1"),
			row("AB-100", "001", "Alpha", "T2"),
		}

		byKind := issuesByKind(AnalyzeAssignments(rows))

		// raw duplicate is still reported, but no cross-merchant conflict
		require.Len(t, byKind[IssueDuplicateSignature], 1)
		assert.Empty(t, byKind[IssueSignatureConflict])
	})

	t.Run("raw serial equality distinguishes case variants", func(t *testing.T) {
		rows := []AssignmentRow{
			row("AB-100", "1", "Alpha", "T1"),
			row("ab-100", "2", "Beta", "T2"),
		}

		byKind := issuesByKind(AnalyzeAssignments(rows))

		// different raw values: not a global duplicate
		assert.Empty(t, byKind[IssueDuplicateSignature])
	})

	t.Run("inconsistent merchant names", func(t *testing.T) {
		rows := []AssignmentRow{
			row("S1", "0042", "Karma Store", "T1"),
			row("S2", "42", "Karma  Store", "T2"),
			row("S3", "42", "Karma Store", "T3"),
		}

		byKind := issuesByKind(AnalyzeAssignments(rows))

		require.Len(t, byKind[IssueInconsistentName], 1)
		issue := byKind[IssueInconsistentName][0]
		assert.Equal(t, SeverityMedium, issue.Severity)
		assert.Equal(t, "42", issue.MerchantID)
		assert.Equal(t, []string{"Karma  Store", "Karma Store"}, issue.Names)
		assert.Len(t, issue.Rows, 3)
	})

	t.Run("a row may appear in several issues", func(t *testing.T) {
		rows := []AssignmentRow{
			row("", "", "Nameless", "T1"),
		}

		byKind := issuesByKind(AnalyzeAssignments(rows))

		assert.Len(t, byKind[IssueMissingSignature], 1)
		assert.Len(t, byKind[IssueMissingMID], 1)
	})

	t.Run("order insensitive", func(t *testing.T) {
		rows := []AssignmentRow{
			row("AB-100", "1", "Alpha", "T1"),
			row("AB-100", "2", "Beta", "T2"),
			row("", "3", "Gamma", "T3"),
			row("S4", "4", "Delta", "T4"),
			row("S4", "4", "Delta Store", "T5"),
		}

		base := AnalyzeAssignments(rows)

		rng := rand.New(rand.NewSource(7))
		for i := 0; i < 10; i++ {
			shuffled := make([]AssignmentRow, len(rows))
			copy(shuffled, rows)
			rng.Shuffle(len(shuffled), func(a, b int) {
				shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
			})

			got := AnalyzeAssignments(shuffled)
			require.Len(t, got, len(base))
			for j := range base {
				assert.Equal(t, base[j].Kind, got[j].Kind)
				assert.Equal(t, base[j].Serial, got[j].Serial)
				assert.Equal(t, base[j].MerchantID, got[j].MerchantID)
				assert.Equal(t, base[j].Count, got[j].Count)
				assert.Equal(t, base[j].MerchantIDs, got[j].MerchantIDs)
				assert.Equal(t, base[j].Names, got[j].Names)
				assert.ElementsMatch(t, base[j].Rows, got[j].Rows)
			}
		}
	})
}
