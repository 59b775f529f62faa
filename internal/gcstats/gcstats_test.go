package gcstats

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ftengine/ftengine/internal/forkgc"
)

func TestUpdateFieldStatsAccumulatesAndReverses(t *testing.T) {
	c := New()
	c.UpdateFieldStats(FieldText, OptSortable, VectorAlgoNone, 1)
	c.UpdateFieldStats(FieldText, 0, VectorAlgoNone, 1)

	snap := c.Snapshot()
	require.Equal(t, int64(2), snap.Fields[FieldText].Total)
	require.Equal(t, int64(1), snap.Fields[FieldText].Sortable)

	c.UpdateFieldStats(FieldText, OptSortable, VectorAlgoNone, -1)
	snap = c.Snapshot()
	require.Equal(t, int64(1), snap.Fields[FieldText].Total)
	require.Equal(t, int64(0), snap.Fields[FieldText].Sortable)
}

func TestUpdateFieldStatsTagCaseSensitive(t *testing.T) {
	c := New()
	c.UpdateFieldStats(FieldTag, OptCaseSensitive, VectorAlgoNone, 1)
	snap := c.Snapshot()
	require.Equal(t, int64(1), snap.Fields[FieldTag].Total)
	require.Equal(t, int64(1), snap.Fields[FieldTag].CaseSensitive)
}

func TestUpdateFieldStatsVectorAlgoBreakdown(t *testing.T) {
	c := New()
	c.UpdateFieldStats(FieldVector, 0, VectorAlgoHNSW, 1)
	c.UpdateFieldStats(FieldVector, 0, VectorAlgoFlat, 1)
	snap := c.Snapshot()
	require.Equal(t, int64(2), snap.Fields[FieldVector].Total)
	require.Equal(t, int64(1), snap.Fields[FieldVector].HNSW)
	require.Equal(t, int64(1), snap.Fields[FieldVector].Flat)
}

func TestRecordQueryDoesNotDoubleCountCursorReads(t *testing.T) {
	c := New()
	c.RecordQuery(false, false) // FT.SEARCH
	c.RecordQuery(false, true)  // FT.AGGREGATE
	c.RecordQuery(true, true)   // FT.CURSOR READ on an aggregate: still unique per original semantics
	c.RecordQuery(true, false)  // FT.CURSOR READ continuing a paged search: not unique

	snap := c.Snapshot()
	require.Equal(t, int64(4), snap.TotalQueryCommands)
	require.Equal(t, int64(3), snap.TotalUniqueQueries)
}

func TestRecordGCRoundTracksRoundsAndLastStats(t *testing.T) {
	c := New()
	c.RecordGCRound(forkgc.Stats{EntriesCollected: 5})
	c.RecordGCRound(forkgc.Stats{EntriesCollected: 7})

	snap := c.Snapshot()
	require.Equal(t, int64(2), snap.GCRounds)
	require.Equal(t, int64(7), snap.LastGCEntriesReclaimed)
}

func TestSnapshotRenderOmitsZeroSections(t *testing.T) {
	c := New()
	c.UpdateFieldStats(FieldText, OptSortable, VectorAlgoNone, 1)
	c.SetDocTableSize(42)
	c.SetCursorsOpen(3)

	out := c.Snapshot().Render()
	require.Contains(t, out, "fields_text: total=1 sortable=1 no_index=0")
	require.NotContains(t, out, "fields_tag:")
	require.NotContains(t, out, "fields_vector:")
	require.True(t, strings.Contains(out, "doc_table_size: 42"))
	require.True(t, strings.Contains(out, "cursors_open: 3"))
}
