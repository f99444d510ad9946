package inode

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oss-userfs/userfs/backend/sector"
	"github.com/oss-userfs/userfs/util/layout"
)

func smallGeometry() layout.Geometry {
	return layout.Geometry{SectorSize: 64, TotalSectors: 64, MaxFiles: 16, MaxSectorsPerFile: 4, MaxOpenFiles: 4}
}

func newTable(t *testing.T) (*Table, layout.Geometry) {
	t.Helper()
	g := smallGeometry()
	dev := sector.New(g)
	_, err := dev.Load(filepath.Join(t.TempDir(), "img"))
	require.NoError(t, err)
	table := NewTable(dev, g)
	require.NoError(t, table.ZeroAll())
	return table, g
}

func TestStoreThenLoadRoundTrip(t *testing.T) {
	table, g := newTable(t)
	in := New(KindFile, g)
	in.Size = 42
	in.Data[0] = 7
	in.Data[1] = 8

	require.NoError(t, table.Store(nil, 3, in))

	got, err := table.Load(nil, 3)
	require.NoError(t, err)
	require.Equal(t, int32(42), got.Size)
	require.Equal(t, KindFile, got.Type)
	require.Equal(t, uint32(7), got.Data[0])
	require.Equal(t, uint32(8), got.Data[1])
}

func TestLoadOutOfRange(t *testing.T) {
	table, _ := newTable(t)
	_, err := table.Load(nil, -1)
	require.Error(t, err)
	_, err = table.Load(nil, 1000)
	require.Error(t, err)
}

func TestCacheServesRepeatedLoadsWithoutCorruption(t *testing.T) {
	table, g := newTable(t)
	a := New(KindFile, g)
	a.Size = 1
	b := New(KindDir, g)
	b.Size = 2

	// Inodes 0 and 1 likely share a sector for this geometry; storing both
	// through the same cache must not let one clobber the other.
	var c Cache
	require.NoError(t, table.Store(&c, 0, a))
	require.NoError(t, table.Store(&c, 1, b))

	got0, err := table.Load(&c, 0)
	require.NoError(t, err)
	got1, err := table.Load(&c, 1)
	require.NoError(t, err)

	require.Equal(t, int32(1), got0.Size)
	require.Equal(t, KindFile, got0.Type)
	require.Equal(t, int32(2), got1.Size)
	require.Equal(t, KindDir, got1.Type)
}

func TestDataEntriesFile(t *testing.T) {
	g := smallGeometry()
	in := New(KindFile, g)
	in.Size = int32(g.SectorSize + 1)
	if got := in.DataEntries(g); got != 2 {
		t.Fatalf("DataEntries = %d, want 2", got)
	}
}

func TestDataEntriesDir(t *testing.T) {
	g := smallGeometry()
	in := New(KindDir, g)
	perSector := g.DirentsPerSector()
	in.Size = int32(perSector + 1)
	if got := in.DataEntries(g); got != 2 {
		t.Fatalf("DataEntries = %d, want 2", got)
	}
}
