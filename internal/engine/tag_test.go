package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testID = Identity("0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef")

func TestExtractTag(t *testing.T) {
	tests := []struct {
		name   string
		notes  string
		wantID Identity
		wantOK bool
	}{
		{
			name:   "tag only",
			notes:  "SOURCE_ID: " + string(testID),
			wantID: testID,
			wantOK: true,
		},
		{
			name:   "tag in the middle of prose",
			notes:  "Agenda:\n- roadmap\nSOURCE_ID: " + string(testID) + "\nsee attached",
			wantID: testID,
			wantOK: true,
		},
		{
			name:   "trailing whitespace after the identity",
			notes:  "SOURCE_ID: " + string(testID) + "  ",
			wantID: testID,
			wantOK: true,
		},
		{
			name:   "legacy 32-char digest still accepted",
			notes:  "SOURCE_ID: 0123456789abcdef0123456789abcdef",
			wantID: Identity("0123456789abcdef0123456789abcdef"),
			wantOK: true,
		},
		{
			name:   "no tag",
			notes:  "just a plain description",
			wantOK: false,
		},
		{
			name:   "empty notes",
			notes:  "",
			wantOK: false,
		},
		{
			name:   "prose after the prefix is not an identity",
			notes:  "SOURCE_ID: the upstream calendar",
			wantOK: false,
		},
		{
			name:   "uppercase hex is rejected",
			notes:  "SOURCE_ID: " + strings.ToUpper(string(testID)),
			wantOK: false,
		},
		{
			name:   "too-short hex is rejected",
			notes:  "SOURCE_ID: abcdef",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := ExtractTag(tt.notes)
			require.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantID, id)
			}
		})
	}
}

func TestUpsertTag(t *testing.T) {
	other := Identity("fedcba9876543210fedcba9876543210fedcba9876543210fedcba9876543210")

	t.Run("empty notes become the tag line", func(t *testing.T) {
		got := UpsertTag("", testID)
		assert.Equal(t, "SOURCE_ID: "+string(testID), got)
	})

	t.Run("prepends when no tag exists", func(t *testing.T) {
		got := UpsertTag("user note\nsecond line", testID)
		assert.Equal(t, "SOURCE_ID: "+string(testID)+"\nuser note\nsecond line", got)
	})

	t.Run("rewrites an existing tag in place", func(t *testing.T) {
		notes := "before\nSOURCE_ID: " + string(other) + "\nafter"
		got := UpsertTag(notes, testID)
		assert.Equal(t, "before\nSOURCE_ID: "+string(testID)+"\nafter", got)
	})

	t.Run("drops duplicate tag lines", func(t *testing.T) {
		notes := "SOURCE_ID: " + string(other) + "\nmiddle\nSOURCE_ID: " + string(other)
		got := UpsertTag(notes, testID)
		assert.Equal(t, "SOURCE_ID: "+string(testID)+"\nmiddle", got)
	})

	t.Run("prose resembling a tag survives", func(t *testing.T) {
		notes := "SOURCE_ID: see the wiki"
		got := UpsertTag(notes, testID)
		assert.Equal(t, "SOURCE_ID: "+string(testID)+"\nSOURCE_ID: see the wiki", got)
	})

	t.Run("round trip", func(t *testing.T) {
		got := UpsertTag("my annotations", testID)
		id, ok := ExtractTag(got)
		require.True(t, ok)
		assert.Equal(t, testID, id)
		assert.Contains(t, got, "my annotations")
	})

	t.Run("idempotent", func(t *testing.T) {
		once := UpsertTag("notes", testID)
		assert.Equal(t, once, UpsertTag(once, testID))
	})
}
